package mem

import (
	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
)

// Subsystem couples the flat data memory with the store buffer. It is
// advanced once per cycle, before the pipeline phases, so that stores
// committed in earlier cycles become visible before new loads execute.
type Subsystem struct {
	Memory *emu.Memory
	SB     *StoreBuffer
}

// NewSubsystem creates a memory subsystem.
func NewSubsystem(memorySize int64, sbCapacity uint16, lfbCount uint8) *Subsystem {
	return &Subsystem{
		Memory: emu.NewMemory(memorySize),
		SB:     NewStoreBuffer(sbCapacity, lfbCount),
	}
}

// Init zeroes memory and writes the program's data items.
func (s *Subsystem) Init(program *insts.Program) {
	s.Memory.Init(program)
}

// DoCycle drains the store buffer.
func (s *Subsystem) DoCycle() {
	s.SB.DoCycle(s.Memory)
}
