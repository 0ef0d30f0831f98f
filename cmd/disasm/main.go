// Command disasm is a standalone 8080 disassembler CLI, generalized from
// the teacher's flag-based disassembler/disassembler.go into the cobra-based
// shape oisee-z80-optimizer uses for its own vintage-CPU tooling. It has no
// dependency on the cpu package beyond the shared opcode table: this binary
// never executes a single instruction, only formats them.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkchandler/i8080/disassemble"
	"github.com/mkchandler/i8080/memory"
)

func main() {
	var origin uint16
	var start uint16
	var count int

	root := &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble a raw 8080 binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			ram := memory.NewRAM()
			if err := memory.LoadImage(ram, origin, raw); err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}

			pc := start
			if pc == 0 {
				pc = origin
			}
			end := uint32(origin) + uint32(len(raw))
			if count > 0 {
				end = uint32(pc) + uint32(count)
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			for uint32(pc) < end {
				line, n := disassemble.Step(pc, ram)
				fmt.Fprintln(w, line)
				pc += uint16(n)
			}
			return nil
		},
	}

	root.Flags().Uint16VarP(&origin, "origin", "o", 0x0100, "address the file is loaded at (CP/M convention: 0x0100)")
	root.Flags().Uint16VarP(&start, "start", "s", 0, "address to start disassembling from (defaults to --origin)")
	root.Flags().IntVarP(&count, "count", "n", 0, "number of bytes to disassemble (0 means to end of file)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
