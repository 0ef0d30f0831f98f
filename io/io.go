// Package io defines the basic interfaces for working with an 8080's I/O
// port space. The 8080 addresses up to 256 single-byte ports over a
// dedicated IN/OUT bus, separate from the memory address space.
package io

// InPort defines a readable I/O port, sampled by the IN instruction.
type InPort interface {
	// Input returns the current value being presented on the port.
	Input(port uint8) uint8
}

// OutPort defines a writable I/O port, driven by the OUT instruction.
type OutPort interface {
	// Output latches val onto the port. Implementations may have arbitrary
	// host-visible side effects (console output, disk controller kick,
	// and so on); the engine makes no assumption about idempotence.
	Output(port uint8, val uint8)
}
