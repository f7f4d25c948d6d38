// Package emu provides the architectural state of the simulated CPU
// (register file and memory) and a functional, non-timed reference
// emulator over it.
package emu

import (
	"fmt"

	"github.com/sarchlab/o3sim/insts"
)

// RegFile is the architectural register file: general registers r0..r30
// followed by the reserved registers SP, LR, PC, FP, and CPSR at the
// indices published by the insts package. Values are signed 64-bit
// machine words. In the timing simulator the register file is updated
// only at retire; speculative values live in the physical register file.
type RegFile struct {
	values []int64
}

// NewRegFile creates a register file with the given number of
// architectural registers. The count must cover the reserved registers.
func NewRegFile(count uint16) *RegFile {
	if count < insts.RegCount {
		panic(fmt.Sprintf(
			"register file of %d entries cannot hold the %d reserved registers",
			count, insts.RegCount))
	}
	return &RegFile{values: make([]int64, count)}
}

// Value reads an architectural register.
func (r *RegFile) Value(reg uint16) int64 {
	return r.values[reg]
}

// SetValue writes an architectural register.
func (r *RegFile) SetValue(reg uint16, value int64) {
	r.values[reg] = value
}

// Count returns the number of architectural registers.
func (r *RegFile) Count() uint16 {
	return uint16(len(r.values))
}

// Reset zeroes every register.
func (r *RegFile) Reset() {
	for k := range r.values {
		r.values[k] = 0
	}
}
