package backend

import "github.com/sarchlab/o3sim/insts"

// ROBSlotState is the lifecycle state of a reorder-buffer slot.
type ROBSlotState uint8

// Reorder-buffer slot states.
const (
	SlotUnused ROBSlotState = iota
	SlotIssued
	SlotDispatched
	SlotExecuted
)

// ROBSlot is the in-order record of one in-flight instruction.
type ROBSlot struct {
	Instr *insts.Instr

	// PC is the code index the instruction was fetched from.
	PC int64

	State   ROBSlotState
	RSIndex uint16

	// Sink holds the renamed sinks; Result the corresponding result words
	// produced at execute.
	Sink   [insts.MaxSinkCount]insts.Operand
	Result []int64

	// BranchTarget is the resolved next fetch address of a control
	// instruction.
	BranchTarget int64
}

// ROB is the reorder buffer: a ring of slots with three monotonic
// cursors. head is the next slot to retire, issued the next to move into
// a reservation station, tail the next free slot.
type ROB struct {
	capacity uint16
	head     uint64
	issued   uint64
	tail     uint64
	slots    []ROBSlot
}

// NewROB creates a reorder buffer of the given capacity.
func NewROB(capacity uint16) *ROB {
	rob := &ROB{
		capacity: capacity,
		slots:    make([]ROBSlot, capacity),
	}
	for k := range rob.slots {
		rob.slots[k].Result = make([]int64, 0, insts.MaxSinkCount)
	}
	return rob
}

// Get returns the slot at the given index.
func (r *ROB) Get(slotIndex uint16) *ROBSlot {
	return &r.slots[slotIndex]
}

// Size returns the number of in-flight slots.
func (r *ROB) Size() uint16 {
	return uint16(r.tail - r.head)
}

// HasSpace reports whether a slot can be allocated.
func (r *ROB) HasSpace() bool {
	return r.Size() < r.capacity
}

// Allocate reserves the next slot in program order, resets it, and
// returns its index.
func (r *ROB) Allocate() uint16 {
	if !r.HasSpace() {
		panic("reorder buffer: can't allocate when full")
	}
	index := uint16(r.tail % uint64(r.capacity))
	r.tail++

	slot := &r.slots[index]
	slot.Instr = nil
	slot.PC = 0
	slot.State = SlotUnused
	slot.RSIndex = 0
	slot.Sink = [insts.MaxSinkCount]insts.Operand{}
	slot.Result = slot.Result[:0]
	slot.BranchTarget = 0
	return index
}

// HasIssued reports whether slots are waiting for a reservation station.
func (r *ROB) HasIssued() bool {
	return r.tail > r.issued
}

// NextIssued returns the index of the oldest slot still waiting for a
// reservation station and advances the issued cursor past it.
func (r *ROB) NextIssued() uint16 {
	if !r.HasIssued() {
		panic("reorder buffer: no issued slot")
	}
	index := uint16(r.issued % uint64(r.capacity))
	r.issued++
	return index
}

// HeadIndex returns the index of the next slot to retire.
func (r *ROB) HeadIndex() uint16 {
	return uint16(r.head % uint64(r.capacity))
}

// HeadExecuted reports whether the head slot exists and has executed.
func (r *ROB) HeadExecuted() bool {
	if r.tail == r.head {
		return false
	}
	return r.slots[r.HeadIndex()].State == SlotExecuted
}

// AdvanceHead retires the head slot.
func (r *ROB) AdvanceHead() {
	if !r.HeadExecuted() {
		panic("reorder buffer: head has not executed")
	}
	r.slots[r.HeadIndex()].State = SlotUnused
	r.head++
}

// Cursor accessors for invariant checks.

// Head returns the monotonic head cursor.
func (r *ROB) Head() uint64 { return r.head }

// Issued returns the monotonic issued cursor.
func (r *ROB) Issued() uint64 { return r.issued }

// Tail returns the monotonic tail cursor.
func (r *ROB) Tail() uint64 { return r.tail }
