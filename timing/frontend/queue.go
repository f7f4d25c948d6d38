// Package frontend provides the fetch frontend of the timed core: the
// bounded instruction queue between fetch and the backend, the shared
// frontend control word, and the fetch unit itself.
package frontend

import "github.com/sarchlab/o3sim/insts"

// Entry is a fetched instruction together with the code index it was
// fetched from. The backend records the index on the reorder-buffer slot;
// conditional branches use it to compute their fall-through target.
type Entry struct {
	Instr *insts.Instr
	PC    int64
}

// Queue is the bounded FIFO between the frontend and the backend. It is
// a ring with monotonic 64-bit cursors.
type Queue struct {
	capacity uint16
	head     uint64
	tail     uint64
	entries  []Entry
}

// NewQueue creates an instruction queue of the given capacity.
func NewQueue(capacity uint16) *Queue {
	return &Queue{
		capacity: capacity,
		entries:  make([]Entry, capacity),
	}
}

// Size returns the number of queued instructions.
func (q *Queue) Size() uint16 {
	return uint16(q.tail - q.head)
}

// IsEmpty reports whether the queue is empty.
func (q *Queue) IsEmpty() bool {
	return q.head == q.tail
}

// IsFull reports whether the queue is full.
func (q *Queue) IsFull() bool {
	return q.Size() == q.capacity
}

// Enqueue appends an entry to the queue.
func (q *Queue) Enqueue(entry Entry) {
	if q.IsFull() {
		panic("instruction queue: can't enqueue when full")
	}
	q.entries[q.tail%uint64(q.capacity)] = entry
	q.tail++
}

// Peek returns the oldest entry without removing it.
func (q *Queue) Peek() Entry {
	if q.IsEmpty() {
		panic("instruction queue: can't peek when empty")
	}
	return q.entries[q.head%uint64(q.capacity)]
}

// Dequeue removes the oldest entry.
func (q *Queue) Dequeue() {
	if q.IsEmpty() {
		panic("instruction queue: can't dequeue when empty")
	}
	q.head++
}
