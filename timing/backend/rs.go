package backend

import "github.com/sarchlab/o3sim/insts"

// RSState is the lifecycle state of a reservation station.
type RSState uint8

// Reservation station states.
const (
	RSIdle RSState = iota
	RSBusy
)

// RS is a single reservation station: a decoded operation waiting for its
// source operands. Register sources are replaced by immediates as their
// values arrive over the CDB; the station is ready once every source is
// an immediate-like operand.
type RS struct {
	State  RSState
	Opcode insts.Opcode

	Source         [insts.MaxSourceCount]insts.Operand
	SourceCnt      uint8
	SourceReadyCnt uint8

	Sink    [insts.MaxSinkCount]insts.Operand
	SinkCnt uint8

	// ROBSlotIndex is the reorder-buffer slot this station belongs to.
	ROBSlotIndex uint16

	// SBPos is the store-buffer slot allocated for a memory sink.
	SBPos uint16
}

// Ready reports whether every source operand has its value.
func (rs *RS) Ready() bool {
	return rs.State == RSBusy && rs.SourceReadyCnt == rs.SourceCnt
}

func (rs *RS) reset() {
	*rs = RS{}
}

// RSTable holds the reservation stations, their free stack, and the ready
// queue of stations whose operands are complete.
type RSTable struct {
	capacity  uint16
	array     []RS
	freeStack []uint16

	readyQueue []uint16
	readyHead  uint64
	readyTail  uint64
}

// NewRSTable creates a reservation station table of the given capacity.
func NewRSTable(capacity uint16) *RSTable {
	t := &RSTable{
		capacity:   capacity,
		array:      make([]RS, capacity),
		freeStack:  make([]uint16, 0, capacity),
		readyQueue: make([]uint16, capacity),
	}
	for i := uint16(0); i < capacity; i++ {
		t.freeStack = append(t.freeStack, i)
	}
	return t
}

// Capacity returns the number of stations.
func (t *RSTable) Capacity() uint16 {
	return t.capacity
}

// Get returns the station at the given index.
func (t *RSTable) Get(rsIndex uint16) *RS {
	return &t.array[rsIndex]
}

// HasFree reports whether a station can be allocated.
func (t *RSTable) HasFree() bool {
	return len(t.freeStack) > 0
}

// Allocate pops a free station and marks it busy.
func (t *RSTable) Allocate() uint16 {
	if len(t.freeStack) == 0 {
		panic("reservation station table: no free station")
	}
	rsIndex := t.freeStack[len(t.freeStack)-1]
	t.freeStack = t.freeStack[:len(t.freeStack)-1]
	t.array[rsIndex].State = RSBusy
	return rsIndex
}

// Deallocate resets a station and returns it to the free stack.
func (t *RSTable) Deallocate(rsIndex uint16) {
	t.array[rsIndex].reset()
	t.freeStack = append(t.freeStack, rsIndex)
}

// EnqueueReady appends a station to the ready queue.
func (t *RSTable) EnqueueReady(rsIndex uint16) {
	t.readyQueue[t.readyTail%uint64(t.capacity)] = rsIndex
	t.readyTail++
}

// HasReady reports whether the ready queue is non-empty.
func (t *RSTable) HasReady() bool {
	return t.readyHead != t.readyTail
}

// DequeueReady pops the oldest ready station.
func (t *RSTable) DequeueReady() uint16 {
	if !t.HasReady() {
		panic("reservation station table: ready queue is empty")
	}
	rsIndex := t.readyQueue[t.readyHead%uint64(t.capacity)]
	t.readyHead++
	return rsIndex
}

// Flush releases every busy station and clears the ready queue.
func (t *RSTable) Flush() {
	for t.HasReady() {
		t.DequeueReady()
	}
	t.freeStack = t.freeStack[:0]
	for i := uint16(0); i < t.capacity; i++ {
		t.array[i].reset()
		t.freeStack = append(t.freeStack, i)
	}
}
