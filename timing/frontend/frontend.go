package frontend

import (
	"fmt"
	"io"

	"github.com/sarchlab/o3sim/insts"
)

// Control is the state shared between the frontend and the backend. The
// frontend halts itself after fetching a control instruction; the backend
// clears the halt and redirects the fetch address when that instruction
// retires.
type Control struct {
	// IPNextFetch is the code index of the next instruction to fetch.
	IPNextFetch int64

	// Halted is true while an in-flight control instruction owns the next
	// fetch address.
	Halted bool
}

// Frontend fetches instructions from the program into the instruction
// queue, up to nWide per cycle, stalling on a full queue, at the end of
// the program, and after any control instruction.
type Frontend struct {
	queue   *Queue
	control *Control
	nWide   uint8

	program *insts.Program

	trace  bool
	writer io.Writer

	decodeCount uint64
}

// NewFrontend creates a fetch frontend.
func NewFrontend(queue *Queue, control *Control, nWide uint8, trace bool, w io.Writer) *Frontend {
	return &Frontend{
		queue:   queue,
		control: control,
		nWide:   nWide,
		trace:   trace,
		writer:  w,
	}
}

// Init points the frontend at a program and resets the fetch address to
// its entry point.
func (f *Frontend) Init(program *insts.Program) {
	f.program = program
	f.control.IPNextFetch = program.EntryPoint
	f.control.Halted = false
	f.decodeCount = 0
}

// DecodeCount returns the number of instructions fetched so far.
func (f *Frontend) DecodeCount() uint64 {
	return f.decodeCount
}

// DoCycle fetches up to nWide instructions into the queue.
func (f *Frontend) DoCycle() {
	if f.program == nil {
		return
	}

	for k := uint8(0); k < f.nWide; k++ {
		if f.control.Halted {
			return
		}
		if f.queue.IsFull() {
			return
		}
		if f.control.IPNextFetch == int64(len(f.program.Code)) {
			// At the end of the program.
			return
		}

		pc := f.control.IPNextFetch
		instr := f.program.Instr(pc)
		if f.trace {
			fmt.Fprintf(f.writer, "frontend: fetched [%s] at %d\n", instr, pc)
		}
		f.queue.Enqueue(Entry{Instr: instr, PC: pc})
		f.decodeCount++

		if instr.IsControl {
			// The next fetch address is owned by the backend until this
			// instruction retires.
			f.control.Halted = true
			return
		}
		f.control.IPNextFetch++
	}
}
