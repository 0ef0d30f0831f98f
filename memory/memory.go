// Package memory defines the basic interface for working with an 8080's
// address space and provides the flat 64KiB implementation the CPU core
// borrows for the duration of each Step.
package memory

import (
	"github.com/pkg/errors"
)

// Size is the entire 8080 address space: 16 bit addresses, no banking, no MMU.
const Size = 1 << 16

// Bank defines the interface the cpu package depends on for memory access.
// It's deliberately smaller than a banked/paged architecture's memory
// interface since the 8080 has a single flat 64KiB map with no aliasing
// beyond modular 16 bit address wrap.
type Bank interface {
	// Read returns the data byte stored at addr.
	Read(addr uint16) uint8
	// Write updates addr with the new value. There is no ROM concept at this
	// layer; a host wanting read-only regions implements its own Bank.
	Write(addr uint16, val uint8)
	// PowerOn resets the memory to a power-on state (zeroed).
	PowerOn()
}

// ram implements Bank as a flat, fully preallocated 64KiB array.
type ram struct {
	mem [Size]uint8
}

// NewRAM creates a flat 64KiB RAM bank in powered-on (zeroed) state.
func NewRAM() Bank {
	r := &ram{}
	r.PowerOn()
	return r
}

// Read implements Bank. Address arithmetic wraps modulo 2^16 by virtue of
// addr being a uint16, so no masking is required here.
func (r *ram) Read(addr uint16) uint8 {
	return r.mem[addr]
}

// Write implements Bank.
func (r *ram) Write(addr uint16, val uint8) {
	r.mem[addr] = val
}

// PowerOn implements Bank. Unlike the NMOS 6502 teacher style (which
// randomizes RAM on power on to catch uninitialized-read bugs in emulated
// games), CP/M-style ROMs assume zeroed memory below the load origin, so
// this zeroes instead.
func (r *ram) PowerOn() {
	for i := range r.mem {
		r.mem[i] = 0
	}
}

// LoadImage copies b into m starting at origin. Returns an error, wrapped
// with github.com/pkg/errors the way n-ulricksen-nes wraps cartridge load
// failures, if the image doesn't fit in the remaining address space. This is
// purely a host/harness concern; the core never calls it.
func LoadImage(m Bank, origin uint16, b []byte) error {
	if int(origin)+len(b) > Size {
		return errors.Errorf("image of %d bytes at origin 0x%04X exceeds the 64KiB address space", len(b), origin)
	}
	for i, v := range b {
		m.Write(origin+uint16(i), v)
	}
	return nil
}
