// Command cpmharness runs the classic CP/M-hosted 8080 exerciser ROMs
// (TST8080, 8080PRE, CPUTEST, 8080EXM) against the cpu engine, the same way
// original_source/cputest.c drives them against the reference C core. It's
// the host-side harness spec.md §1 scopes out of the core proper, kept here
// only because it's the one place the core's Step/Interrupt interface gets
// exercised end to end.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"

	"github.com/mkchandler/i8080/cpu"
	"github.com/mkchandler/i8080/irq"
	"github.com/mkchandler/i8080/memory"
)

// romOrigin is the CP/M convention: a .COM is always loaded at 0x0100, with
// the zero page below it belonging to the BIOS/BDOS stubs.
const romOrigin = 0x0100

// defaultROMs is the exerciser set original_source/cputest.c runs by
// default. A ROM not present under --rom-dir is skipped, not an error: the
// pack ships no binaries, so a clean checkout runs zero of them and still
// exits 0.
var defaultROMs = []string{
	"TST8080.COM",
	"8080PRE.COM",
	"CPUTEST.COM",
	"8080EXM.COM",
}

// bdos emulates just enough of the CP/M BDOS to satisfy these exercisers'
// console output: function 2 (single character in E) and function 9
// ($-terminated string at DE), dispatched on OUT port 1 with the function
// number in C. OUT port 0 is the exerciser's own "I'm done" signal.
type bdos struct {
	ram  memory.Bank
	c    *cpu.Chip
	out  *bufio.Writer
	done *bool
}

func (b *bdos) Output(port uint8, val uint8) {
	if port == 0 {
		*b.done = true
		return
	}
	switch b.c.C {
	case 2:
		b.out.WriteByte(b.c.E)
	case 9:
		addr := uint16(b.c.D)<<8 | uint16(b.c.E)
		for {
			ch := b.ram.Read(addr)
			if ch == '$' {
				break
			}
			b.out.WriteByte(ch)
			addr++
		}
	}
}

// cycleTimer is an irq.Sender that fires every interval cycles, modeling the
// periodic console timer a real CP/M BIOS would drive off a hardware clock
// tick. An interval of 0 disables it: Raised never returns true, so the
// exerciser ROMs (none of which install a handler at the RST vector this
// harness delivers to) run exactly as they do with no timer present.
type cycleTimer struct {
	interval uint64
	next     uint64
	cycles   *uint64
}

func (t *cycleTimer) Raised() bool {
	if t.interval == 0 {
		return false
	}
	if *t.cycles < t.next {
		return false
	}
	t.next += t.interval
	return true
}

var _ irq.Sender = (*cycleTimer)(nil)

func loadROM(path string) (memory.Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading rom %s", path)
	}
	ram := memory.NewRAM()
	if err := memory.LoadImage(ram, romOrigin, raw); err != nil {
		return nil, errors.Wrapf(err, "loading rom %s", path)
	}
	// CP/M BIOS stub conventions original_source/cputest.c plants: OUT 0
	// exits, OUT 1 is the BDOS syscall trampoline (followed by EI;RET so
	// the exerciser's own interrupt tests keep working afterward).
	ram.Write(0x0000, 0xD3)
	ram.Write(0x0001, 0x00)
	ram.Write(0x0005, 0xD3)
	ram.Write(0x0006, 0x01)
	ram.Write(0x0007, 0xFB)
	ram.Write(0x0008, 0xC9)
	return ram, nil
}

// timerRST is the RST vector the console timer delivers to (0x08, RST 1).
// loadROM's BDOS stub at 0x0005 runs through 0x0008, so the byte at this
// vector is that stub's trailing RET: a delivered interrupt returns straight
// to the interrupted code.
const timerRST = 0x08

func runROM(path string, out *bufio.Writer, timerInterval uint64) error {
	ram, err := loadROM(path)
	if err != nil {
		return err
	}

	done := false
	outPort := &bdos{ram: ram, out: out, done: &done}
	c, err := cpu.Init(&cpu.ChipDef{Cpu: cpu.CPU_I8080, Ram: ram, PortOut: outPort})
	if err != nil {
		return errors.Wrap(err, "initializing cpu")
	}
	outPort.c = c
	c.PC = romOrigin
	c.EI = true

	var instructions, cycles uint64
	timer := &cycleTimer{interval: timerInterval, next: timerInterval, cycles: &cycles}

	fmt.Fprintf(out, "running %s\n", path)
	out.Flush()

	for !done {
		c.Step()
		cycles += uint64(c.Cycles)
		instructions++
		if timer.Raised() {
			c.Interrupt(timerRST)
		}
	}

	fmt.Fprintf(out, "\n%s: %d cycles, %d instructions\n", path, cycles, instructions)
	return out.Flush()
}

func main() {
	app := &cli.App{
		Name:  "cpmharness",
		Usage: "run CP/M-hosted 8080 exerciser ROMs against the cpu engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rom-dir",
				Aliases: []string{"d"},
				Usage:   "directory containing the exerciser .COM files",
				Value:   "roms",
			},
			&cli.Uint64Flag{
				Name:  "timer-interval",
				Usage: "deliver an RST 1 every N cycles via the cycleTimer irq.Sender (0 disables it)",
				Value: 0,
			},
		},
		Action: func(c *cli.Context) error {
			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()

			ran := 0
			for _, name := range defaultROMs {
				path := filepath.Join(c.String("rom-dir"), name)
				if _, err := os.Stat(path); err != nil {
					continue
				}
				if err := runROM(path, out, c.Uint64("timer-interval")); err != nil {
					return err
				}
				ran++
			}
			if ran == 0 {
				fmt.Fprintf(out, "no exerciser ROMs found under %s; nothing to run\n", c.String("rom-dir"))
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
