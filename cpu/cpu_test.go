package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/mkchandler/i8080/memory"
)

// setup returns a freshly powered-on CPU with prog loaded at 0x0100 and PC
// pointing at it, the CP/M convention this module's harness also uses.
func setup(t *testing.T, prog []byte) (*Chip, memory.Bank) {
	t.Helper()
	ram := memory.NewRAM()
	if err := memory.LoadImage(ram, 0x0100, prog); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	c, err := Init(&ChipDef{Cpu: CPU_I8080, Ram: ram})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.PC = 0x0100
	return c, ram
}

func (p *Chip) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.Step()
	}
}

func TestMVIAndHalt(t *testing.T) {
	c, _ := setup(t, []byte{
		0x3E, 0x42, // MVI A,0x42
		0x76, // HLT
	})
	c.step(t, 1)
	if c.A != 0x42 {
		t.Errorf("MVI A: got %.2X want 42 state: %s", c.A, spew.Sdump(c))
	}
	if c.HLT {
		t.Errorf("HLT latched early: state: %s", spew.Sdump(c))
	}
	c.step(t, 1)
	if !c.HLT {
		t.Errorf("HLT: latch not set after opcode state: %s", spew.Sdump(c))
	}
	before := c.PC
	c.step(t, 1)
	if c.PC != before {
		t.Errorf("Step on halted CPU advanced PC: got %.4X want %.4X", c.PC, before)
	}
}

func TestADIFlags(t *testing.T) {
	c, _ := setup(t, []byte{
		0x3E, 0xF0, // MVI A,0xF0
		0xC6, 0x10, // ADI 0x10 -> 0x100 wraps to 0x00, sets CF and ZF
	})
	c.step(t, 2)
	if c.A != 0x00 {
		t.Fatalf("ADI result: got %.2X want 00 state: %s", c.A, spew.Sdump(c))
	}
	if !c.ZF || !c.CF {
		t.Errorf("ADI flags: got zf=%t cf=%t want zf=true cf=true state: %s", c.ZF, c.CF, spew.Sdump(c))
	}
	if c.SF || !c.PF {
		t.Errorf("ADI flags: got sf=%t pf=%t want sf=false pf=true state: %s", c.SF, c.PF, spew.Sdump(c))
	}
}

func TestACIWidenedCarry(t *testing.T) {
	// ACI with an operand that alone would wrap mod-256 to the identity but,
	// widened with the incoming carry, must still report a carry out. This
	// is the Open Question resolution documented in DESIGN.md: the
	// carry-in is added in a 9-bit accumulator, not folded into the 8-bit
	// operand before the compare against A.
	c, _ := setup(t, []byte{
		0x3E, 0x01, // MVI A,0x01
		0x37,       // STC (CF=1)
		0xCE, 0xFF, // ACI 0xFF -> 0x01+0xFF+1 = 0x101
	})
	c.step(t, 3)
	if c.A != 0x01 {
		t.Fatalf("ACI result: got %.2X want 01 state: %s", c.A, spew.Sdump(c))
	}
	if !c.CF {
		t.Errorf("ACI carry-out lost to narrow add: state: %s", spew.Sdump(c))
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	c, _ := setup(t, []byte{
		0x01, 0xCD, 0xAB, // LXI B,0xABCD
		0xC5,       // PUSH B
		0x01, 0, 0, // LXI B,0x0000 (clobber)
		0xC1, // POP B
	})
	c.SP = 0xFFF0
	c.step(t, 4)
	if got := c.getRP(0); got != 0xABCD {
		t.Errorf("PUSH/POP round trip: got %.4X want ABCD state: %s", got, spew.Sdump(c))
	}
}

func TestPushPopPSW(t *testing.T) {
	c, _ := setup(t, []byte{
		0xF5, // PUSH PSW
		0xF1, // POP PSW
	})
	c.SP = 0xFFF0
	c.A = 0x5A
	c.SF, c.ZF, c.AF, c.PF, c.CF = true, false, true, false, true
	want := c.flagsByte()
	c.step(t, 1)
	c.A, c.SF, c.ZF, c.AF, c.PF, c.CF = 0, false, false, false, false, false
	c.step(t, 1)
	if c.A != 0x5A {
		t.Errorf("POP PSW: A got %.2X want 5A", c.A)
	}
	if got := c.flagsByte(); got != want {
		t.Errorf("POP PSW: flags got %.2X want %.2X state: %s", got, want, spew.Sdump(c))
	}
	if got := c.flagsByte() & flagAlwaysSet; got == 0 {
		t.Errorf("POP PSW: bit 1 must always read back set")
	}
}

func TestDAA(t *testing.T) {
	// 0x19 + 0x28 in BCD = 0x47; binary ADD first produces 0x41 with AF set
	// (9+8 carries out of the low nibble), DAA must correct it to 0x47.
	c, _ := setup(t, []byte{
		0x3E, 0x19, // MVI A,0x19
		0x06, 0x28, // MVI B,0x28
		0x80, // ADD B
		0x27, // DAA
	})
	c.step(t, 4)
	if c.A != 0x47 {
		t.Errorf("DAA: got %.2X want 47 state: %s", c.A, spew.Sdump(c))
	}
}

func TestRLC(t *testing.T) {
	c, _ := setup(t, []byte{
		0x3E, 0x85, // MVI A,0x85
		0x07, // RLC
	})
	c.step(t, 2)
	if c.A != 0x0B {
		t.Errorf("RLC: got %.2X want 0B state: %s", c.A, spew.Sdump(c))
	}
	if !c.CF {
		t.Errorf("RLC: carry not set from vacated bit 7 state: %s", spew.Sdump(c))
	}
}

func TestConditionalBranchCycles(t *testing.T) {
	c, _ := setup(t, []byte{
		0xB7,       // ORA A (clears CF, sets ZF per A==0 at power on)
		0xD4, 0, 0, // CNC 0x0000 (taken, since CF=0)
	})
	c.step(t, 1)
	c.step(t, 1)
	if c.Cycles != 17 {
		t.Errorf("CNC taken cycles: got %d want 17 state: %s", c.Cycles, spew.Sdump(c))
	}
	if c.PC != 0x0000 {
		t.Errorf("CNC taken target: got %.4X want 0000", c.PC)
	}
}

func TestXCHGInvolution(t *testing.T) {
	c, _ := setup(t, []byte{
		0xEB, // XCHG
		0xEB, // XCHG
	})
	c.H, c.L, c.D, c.E = 0x11, 0x22, 0x33, 0x44
	before := c.registerSnapshot()
	c.step(t, 1)
	if c.hl() != 0x3344 || c.getRP(1) != 0x1122 {
		t.Fatalf("XCHG: got hl=%.4X de=%.4X want hl=3344 de=1122", c.hl(), c.getRP(1))
	}
	c.step(t, 1)
	if diff := deep.Equal(before, c.registerSnapshot()); diff != nil {
		t.Errorf("XCHG;XCHG not an involution: %v", diff)
	}
}

func TestCMAInvolution(t *testing.T) {
	c, _ := setup(t, []byte{0x2F, 0x2F}) // CMA; CMA
	c.A = 0x5A
	want := c.A
	c.step(t, 2)
	if c.A != want {
		t.Errorf("CMA;CMA not an involution: got %.2X want %.2X", c.A, want)
	}
}

func TestCMPLeavesAUnchanged(t *testing.T) {
	c, _ := setup(t, []byte{
		0x3E, 0x10, // MVI A,0x10
		0x06, 0x20, // MVI B,0x20
		0xB8, // CMP B
	})
	c.step(t, 3)
	if c.A != 0x10 {
		t.Errorf("CMP modified A: got %.2X want 10", c.A)
	}
	if !c.CF {
		t.Errorf("CMP: expected borrow (A<B) to set CF")
	}
}

func TestInterruptDroppedWhenDisabled(t *testing.T) {
	c, _ := setup(t, []byte{0x00}) // NOP
	c.EI = false
	before := c.PC
	c.Interrupt(0x08)
	if c.PC != before {
		t.Errorf("Interrupt accepted while EI clear: PC moved to %.4X", c.PC)
	}
}

func TestInterruptRST(t *testing.T) {
	c, _ := setup(t, []byte{0x00})
	c.SP = 0xFFF0
	c.EI = true
	c.Interrupt(0x10)
	if c.PC != 0x0010 {
		t.Errorf("Interrupt: PC got %.4X want 0010", c.PC)
	}
	if c.EI {
		t.Errorf("Interrupt: EI must clear on acceptance")
	}
	if c.pop16() != 0x0100 {
		t.Errorf("Interrupt: did not push return address")
	}
}

// registerSnapshot is a small comparable view used by deep.Equal so the
// involution checks above aren't sensitive to the unexported ram/port fields
// inside Chip.
type registerSnapshot struct {
	A, B, C, D, E, H, L         uint8
	SP, PC                      uint16
	CF, ZF, SF, PF, AF, EI, HLT bool
}

func (p *Chip) registerSnapshot() registerSnapshot {
	return registerSnapshot{
		A: p.A, B: p.B, C: p.C, D: p.D, E: p.E, H: p.H, L: p.L,
		SP: p.SP, PC: p.PC,
		CF: p.CF, ZF: p.ZF, SF: p.SF, PF: p.PF, AF: p.AF, EI: p.EI, HLT: p.HLT,
	}
}
