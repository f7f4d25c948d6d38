// Package mem provides the memory subsystem of the timed core: the flat
// data memory fronted by a store buffer that drains committed stores to
// memory in program order.
package mem

import (
	"fmt"

	"github.com/sarchlab/o3sim/emu"
)

type storeBufferEntry struct {
	addr      int64
	value     int64
	completed bool
}

// StoreBuffer is a ring of pending stores. Slots are allocated at issue
// in program order, filled at execute, and drained to memory in FIFO
// order; the drain stops at the first slot that has not completed yet, so
// stores become memory-visible strictly in program order.
type StoreBuffer struct {
	head     uint64
	tail     uint64
	entries  []storeBufferEntry
	capacity uint16
	lfbCount uint8
}

// NewStoreBuffer creates a store buffer of the given capacity that can
// drain up to lfbCount entries to memory per cycle.
func NewStoreBuffer(capacity uint16, lfbCount uint8) *StoreBuffer {
	return &StoreBuffer{
		entries:  make([]storeBufferEntry, capacity),
		capacity: capacity,
		lfbCount: lfbCount,
	}
}

// Size returns the number of allocated slots.
func (sb *StoreBuffer) Size() uint16 {
	return uint16(sb.tail - sb.head)
}

// HasSpace reports whether a slot can be allocated.
func (sb *StoreBuffer) HasSpace() bool {
	return sb.Size() < sb.capacity
}

// Allocate reserves the next slot in program order and returns its index.
func (sb *StoreBuffer) Allocate() uint16 {
	if !sb.HasSpace() {
		panic("store buffer: can't allocate when full")
	}
	index := uint16(sb.tail % uint64(sb.capacity))
	sb.tail++
	return index
}

// Store fills a previously allocated slot with the address and value of a
// completed store.
func (sb *StoreBuffer) Store(index uint16, addr, value int64) {
	if sb.head == sb.tail {
		panic("store buffer: store into unallocated slot")
	}
	entry := &sb.entries[index]
	if entry.completed {
		panic(fmt.Sprintf("store buffer: slot %d already completed", index))
	}
	entry.addr = addr
	entry.value = value
	entry.completed = true
}

// DoCycle drains up to lfbCount completed entries from the head to
// memory. It stops at the first entry that has not completed, preserving
// program order even when earlier stores are still executing.
func (sb *StoreBuffer) DoCycle(memory *emu.Memory) {
	for k := uint8(0); k < sb.lfbCount; k++ {
		if sb.head == sb.tail {
			break
		}

		entry := &sb.entries[sb.head%uint64(sb.capacity)]
		if !entry.completed {
			return
		}

		memory.Write(entry.addr, entry.value)
		*entry = storeBufferEntry{}
		sb.head++
	}
}
