package frontend_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/loader"
	"github.com/sarchlab/o3sim/timing/frontend"
)

var _ = Describe("Queue", func() {
	var q *frontend.Queue

	BeforeEach(func() {
		q = frontend.NewQueue(2)
	})

	It("should enqueue and dequeue in FIFO order", func() {
		first := frontend.Entry{Instr: insts.NewNOP(), PC: 0}
		second := frontend.Entry{Instr: insts.NewNOP(), PC: 1}
		q.Enqueue(first)
		q.Enqueue(second)

		Expect(q.Peek().PC).To(Equal(int64(0)))
		q.Dequeue()
		Expect(q.Peek().PC).To(Equal(int64(1)))
		q.Dequeue()
		Expect(q.IsEmpty()).To(BeTrue())
	})

	It("should report full and reject overflow", func() {
		q.Enqueue(frontend.Entry{Instr: insts.NewNOP()})
		q.Enqueue(frontend.Entry{Instr: insts.NewNOP()})
		Expect(q.IsFull()).To(BeTrue())
		Expect(func() { q.Enqueue(frontend.Entry{Instr: insts.NewNOP()}) }).To(Panic())
	})

	It("should reject dequeue and peek when empty", func() {
		Expect(func() { q.Dequeue() }).To(Panic())
		Expect(func() { q.Peek() }).To(Panic())
	})
})

var _ = Describe("Frontend", func() {
	var (
		q   *frontend.Queue
		ctl *frontend.Control
		f   *frontend.Frontend
	)

	load := func(src string) {
		program, err := loader.LoadString(src)
		Expect(err).NotTo(HaveOccurred())
		f.Init(program)
	}

	BeforeEach(func() {
		q = frontend.NewQueue(8)
		ctl = &frontend.Control{}
		f = frontend.NewFrontend(q, ctl, 4, false, io.Discard)
	})

	It("should fetch up to nWide instructions per cycle", func() {
		load(`
.text
    MOV r0, #1
    MOV r1, #2
    MOV r2, #3
    MOV r3, #4
    MOV r4, #5
`)
		f.DoCycle()
		Expect(q.Size()).To(Equal(uint16(4)))
		Expect(ctl.IPNextFetch).To(Equal(int64(4)))

		f.DoCycle()
		Expect(q.Size()).To(Equal(uint16(5)))
	})

	It("should stop at the end of the program", func() {
		load(`
.text
    MOV r0, #1
`)
		f.DoCycle()
		f.DoCycle()
		Expect(q.Size()).To(Equal(uint16(1)))
		Expect(f.DecodeCount()).To(Equal(uint64(1)))
	})

	It("should halt after fetching a control instruction", func() {
		load(`
.text
    MOV r0, #1
    B target
    MOV r1, #2
target:
    MOV r2, #3
`)
		f.DoCycle()
		// MOV and B are fetched; the shadow MOV after the branch is not.
		Expect(q.Size()).To(Equal(uint16(2)))
		Expect(ctl.Halted).To(BeTrue())

		// Still halted: nothing more is fetched.
		f.DoCycle()
		Expect(q.Size()).To(Equal(uint16(2)))
	})

	It("should resume at the redirected address when the halt clears", func() {
		load(`
.text
    B target
    MOV r1, #2
target:
    MOV r2, #3
`)
		f.DoCycle()
		Expect(ctl.Halted).To(BeTrue())

		// The backend resolves the branch.
		ctl.IPNextFetch = 2
		ctl.Halted = false

		f.DoCycle()
		Expect(q.Size()).To(Equal(uint16(2)))
		last := q.Peek()
		Expect(last.PC).To(Equal(int64(0)))
		q.Dequeue()
		Expect(q.Peek().PC).To(Equal(int64(2)))
	})

	It("should stall on a full queue", func() {
		small := frontend.NewQueue(2)
		f = frontend.NewFrontend(small, ctl, 4, false, io.Discard)
		load(`
.text
    MOV r0, #1
    MOV r1, #2
    MOV r2, #3
`)
		f.DoCycle()
		Expect(small.Size()).To(Equal(uint16(2)))
		Expect(ctl.IPNextFetch).To(Equal(int64(2)))

		small.Dequeue()
		f.DoCycle()
		Expect(small.Size()).To(Equal(uint16(2)))
		Expect(ctl.IPNextFetch).To(Equal(int64(3)))
	})

	It("should start fetching at the entry point", func() {
		load(`
.global main
.text
helper:
    BX lr
main:
    MOV r0, #1
`)
		f.DoCycle()
		Expect(q.Peek().PC).To(Equal(int64(1)))
	})
})
