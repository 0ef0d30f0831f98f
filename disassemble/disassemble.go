// Package disassemble implements a disassembler for 8080 opcodes.
package disassemble

import (
	"fmt"

	"github.com/mkchandler/i8080/memory"
	"github.com/mkchandler/i8080/opcode"
)

// Step disassembles the instruction at pc, returning the formatted line and
// the instruction length in bytes (1, 2 or 3) the caller should advance pc
// by to reach the next instruction. Like the teacher's 6502 disassembler,
// this does not interpret control flow: a JMP target is printed, not
// followed, so a sequence straddling a data region will disassemble that
// data as if it were code.
func Step(pc uint16, m memory.Bank) (string, int) {
	op := m.Read(pc)
	info := opcode.Table[op]
	b1 := m.Read(pc + 1)
	b2 := m.Read(pc + 2)

	var bytesCol, mnem string
	switch info.Size {
	case 2:
		bytesCol = fmt.Sprintf("%.2X %.2X   ", op, b1)
		mnem = fmt.Sprintf(info.Fmt, b1)
	case 3:
		bytesCol = fmt.Sprintf("%.2X %.2X %.2X", op, b1, b2)
		mnem = fmt.Sprintf(info.Fmt, uint16(b2)<<8|uint16(b1))
	default:
		bytesCol = fmt.Sprintf("%.2X      ", op)
		mnem = info.Fmt
	}
	return fmt.Sprintf("%.4X %s %s", pc, bytesCol, mnem), int(info.Size)
}
