// Package cpu defines the Intel 8080 architecture and provides the methods
// needed to run the CPU and interface with it for emulation.
package cpu

import (
	"fmt"
	"log"

	"github.com/mkchandler/i8080/io"
	"github.com/mkchandler/i8080/memory"
	"github.com/mkchandler/i8080/opcode"
)

// CPUType is an enumeration of the valid CPU types. The 8080 has no
// documented variants the way the 6502 family does (NMOS/CMOS/Ricoh), but
// the enum is kept single-membered rather than removed: Init validates
// against it the same way a multi-variant CPU family would, and it gives a
// named home for a future CPU_I8085 should this ever grow undocumented
// 8085-only opcodes. See Open Questions in DESIGN.md.
type CPUType int

const (
	CPU_UNIMPLEMENTED CPUType = iota // Start of valid cpu enumerations.
	CPU_I8080                        // Intel 8080.
	CPU_MAX                          // End of CPU enumerations.
)

// Flag bit masks used when packing/unpacking the Processor Status Word for
// PUSH PSW / POP PSW.
const (
	flagS = uint8(0x80)
	flagZ = uint8(0x40)
	flagA = uint8(0x10)
	flagP = uint8(0x04)
	flagC = uint8(0x01)
	// flagAlwaysSet is bit 1, always written as 1 in the packed byte.
	flagAlwaysSet = uint8(0x02)
)

// Chip holds the entire architectural state of one 8080: registers, flags,
// the interrupt-enable and halt latches, and the cycle count attributed to
// the most recently executed instruction.
type Chip struct {
	A                uint8  // Accumulator register
	B, C             uint8  // BC register pair
	D, E             uint8  // DE register pair
	H, L             uint8  // HL register pair
	SP               uint16 // Stack pointer
	PC               uint16 // Program counter
	CF, ZF, SF, PF   bool   // Carry, zero, sign, parity flags
	AF               bool   // Auxiliary (half) carry flag
	EI               bool   // Interrupt-enable latch
	HLT              bool   // Halted latch
	Cycles           int    // Cycles attributed to the most recent Step
	cpuType          CPUType
	ram              memory.Bank
	portIn           io.InPort
	portOut          io.OutPort
	trace            *log.Logger
}

// InvalidCPUState represents an invalid CPU configuration passed to Init.
type InvalidCPUState struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// HaltedError describes a Step call against a halted CPU. It's never
// returned by Step (per spec this is forward-progress-preserving, not an
// error condition a caller needs to branch on) but is formatted into the
// trace log so the reason a trace goes quiet is spelled out the same way an
// actual error would be.
type HaltedError struct {
	PC uint16
}

// Error implements the error interface.
func (e HaltedError) Error() string {
	return fmt.Sprintf("cpu halted at %04X; only an interrupt can resume", e.PC)
}

// ChipDef defines an 8080 to be created by Init.
type ChipDef struct {
	// Cpu is the CPU variant. Must be CPU_I8080.
	Cpu CPUType
	// Ram is the memory image this CPU borrows for its lifetime. Required.
	Ram memory.Bank
	// PortIn is an optional host callback backing the IN instruction.
	PortIn io.InPort
	// PortOut is an optional host callback backing the OUT instruction.
	PortOut io.OutPort
}

// Init creates a new 8080 in power-on state (all registers, flags and
// latches zeroed; PC, EI and HLT are the host's to set afterwards per the
// CP/M convention of loading a ROM at 0x0100 and starting with EI=1).
func Init(def *ChipDef) (*Chip, error) {
	if def.Cpu <= CPU_UNIMPLEMENTED || def.Cpu >= CPU_MAX {
		return nil, InvalidCPUState{fmt.Sprintf("CPU type %d is invalid", def.Cpu)}
	}
	if def.Ram == nil {
		return nil, InvalidCPUState{"Ram must be non-nil"}
	}
	p := &Chip{
		cpuType: def.Cpu,
		ram:     def.Ram,
		portIn:  def.PortIn,
		portOut: def.PortOut,
	}
	p.PowerOn()
	return p, nil
}

// PowerOn resets the CPU to its power-on state. Unlike the NMOS 6502 family
// (whose registers and decimal mode start randomized), the 8080 has no
// analogous ambiguity documented for this design, so every register, flag
// and latch is simply zeroed. The memory image itself is untouched; it is
// the host's responsibility to load a ROM image and set PC before the first
// Step.
func (p *Chip) PowerOn() {
	p.A, p.B, p.C, p.D, p.E, p.H, p.L = 0, 0, 0, 0, 0, 0, 0
	p.SP, p.PC = 0, 0
	p.CF, p.ZF, p.SF, p.PF, p.AF = false, false, false, false, false
	p.EI, p.HLT = false, false
	p.Cycles = 0
}

// SetTrace installs a logger that receives one line per Step call describing
// the opcode executed, the register file, flags and mem[HL], and one line per
// Interrupt call giving the vector and whether it was accepted.
// A nil logger (the default) disables tracing entirely at no runtime cost
// beyond the nil check.
func (p *Chip) SetTrace(l *log.Logger) {
	p.trace = l
}

// Step advances the CPU by exactly one instruction, mutating state and
// setting Cycles to the number of clock cycles attributable to it (including
// any taken-branch penalty). It has no return value and never fails: an
// unknown opcode is reported to the trace logger (if installed) and treated
// as a no-op, matching this design's forward-progress guarantee.
func (p *Chip) Step() {
	if p.HLT {
		p.Cycles = 0
		if p.trace != nil {
			p.trace.Print(HaltedError{PC: p.PC})
		}
		return
	}

	oldPC := p.PC
	op := p.ram.Read(p.PC)
	info := opcode.Table[op]

	p.PC += uint16(info.Size)
	p.Cycles = int(info.Cycles)

	// All instructions may need the byte(s) following the opcode; reading
	// them unconditionally is harmless since memory.Bank reads here have no
	// side effects (unlike a memory-mapped-I/O bus).
	b1 := p.ram.Read(oldPC + 1)
	b2 := p.ram.Read(oldPC + 2)

	p.dispatch(op, oldPC, b1, b2)

	if p.trace != nil {
		p.traceLine(oldPC, op, info, b1, b2)
	}
}

// Interrupt delivers an RST-style interrupt: rstArg must be one of
// {0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38}. Per §4.5/§4.7, this is
// only honored when EI is set; otherwise it's silently dropped, modeling
// "already servicing an interrupt". On acceptance it clears EI and HLT and
// performs an unconditional CALL to rstArg.
func (p *Chip) Interrupt(rstArg uint8) {
	accepted := p.EI
	p.rst(rstArg)
	if p.trace != nil {
		p.trace.Printf("interrupt RST %02X: accepted=%s pc=%04X sp=%04X", rstArg, bit(accepted), p.PC, p.SP)
	}
}

// traceLine emits one debug line in the spirit of the original C core's
// ENABLE_DEBUG block: opcode, mnemonic, register file, flags, mem[HL].
func (p *Chip) traceLine(pc uint16, op uint8, info opcode.Info, b1, b2 uint8) {
	mnem := info.Fmt
	switch info.Size {
	case 2:
		mnem = fmt.Sprintf(info.Fmt, b1)
	case 3:
		mnem = fmt.Sprintf(info.Fmt, uint16(b2)<<8|uint16(b1))
	}
	p.trace.Printf(
		"%04X: (%02X) %-16s a=%02X,bc=%04X,de=%04X,hl=%04X,sp=%04X | c=%s,p=%s,a=%s,z=%s,s=%s | M=%02X",
		pc, op, mnem,
		p.A, p.getRP(0), p.getRP(1), p.getRP(2), p.SP,
		bit(p.CF), bit(p.PF), bit(p.AF), bit(p.ZF), bit(p.SF),
		p.ram.Read(p.hl()),
	)
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
