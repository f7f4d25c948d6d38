package emu

import (
	"fmt"

	"github.com/sarchlab/o3sim/insts"
)

// Memory is the flat, word-addressed data memory. Each address holds one
// signed 64-bit machine word.
type Memory struct {
	words []int64
}

// NewMemory creates a memory of the given size in words.
func NewMemory(size int64) *Memory {
	return &Memory{words: make([]int64, size)}
}

// Size returns the memory size in words.
func (m *Memory) Size() int64 {
	return int64(len(m.words))
}

// Read returns the word at the given address.
func (m *Memory) Read(addr int64) int64 {
	m.check(addr)
	return m.words[addr]
}

// Write stores a word at the given address.
func (m *Memory) Write(addr int64, value int64) {
	m.check(addr)
	m.words[addr] = value
}

func (m *Memory) check(addr int64) {
	if addr < 0 || addr >= int64(len(m.words)) {
		panic(fmt.Sprintf("memory access out of range: address %d, size %d",
			addr, len(m.words)))
	}
}

// Init zeroes the memory and writes the program's data items at their
// preassigned offsets.
func (m *Memory) Init(program *insts.Program) {
	for k := range m.words {
		m.words[k] = 0
	}
	for _, data := range program.DataItems {
		m.Write(data.Offset, data.Value)
	}
}
