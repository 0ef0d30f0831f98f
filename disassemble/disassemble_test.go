package disassemble

import (
	"strings"
	"testing"

	"github.com/mkchandler/i8080/memory"
)

func TestStep(t *testing.T) {
	tests := []struct {
		name    string
		prog    []byte
		wantLen int
		wantSub string
	}{
		{"NOP", []byte{0x00}, 1, "NOP"},
		{"MVI", []byte{0x3E, 0x42}, 2, "MVI  A,42"},
		{"LXI", []byte{0x21, 0xCD, 0xAB}, 3, "LXI  H,ABCD"},
		{"HLT", []byte{0x76}, 1, "HLT"},
		{"undocumented NOP", []byte{0x08}, 1, "*NOP"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ram := memory.NewRAM()
			if err := memory.LoadImage(ram, 0, test.prog); err != nil {
				t.Fatalf("LoadImage: %v", err)
			}
			out, n := Step(0, ram)
			if n != test.wantLen {
				t.Errorf("got len %d want %d (line: %q)", n, test.wantLen, out)
			}
			if !strings.Contains(out, test.wantSub) {
				t.Errorf("got %q, want substring %q", out, test.wantSub)
			}
		})
	}
}
