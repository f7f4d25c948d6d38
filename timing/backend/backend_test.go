package backend_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/loader"
	"github.com/sarchlab/o3sim/timing/backend"
	"github.com/sarchlab/o3sim/timing/frontend"
	"github.com/sarchlab/o3sim/timing/mem"
)

var _ = Describe("Backend", func() {
	var (
		queue    *frontend.Queue
		control  *frontend.Control
		memSub   *mem.Subsystem
		archRegs *emu.RegFile
		stdout   *bytes.Buffer
		b        *backend.Backend
	)

	BeforeEach(func() {
		queue = frontend.NewQueue(16)
		control = &frontend.Control{}
		memSub = mem.NewSubsystem(32, 4, 2)
		archRegs = emu.NewRegFile(insts.RegCount)
		stdout = &bytes.Buffer{}
		b = backend.New(backend.Config{
			PhysRegCount:  32,
			RSCount:       8,
			ROBCapacity:   16,
			EUCount:       4,
			RetireNWide:   4,
			DispatchNWide: 4,
			IssueNWide:    4,
			StackCapacity: 8,
			Stdout:        stdout,
			TraceWriter:   io.Discard,
		}, queue, control, memSub, archRegs)
	})

	// enqueue feeds a whole program into the instruction queue at once,
	// standing in for the frontend.
	enqueue := func(src string) {
		program, err := loader.LoadString(src)
		Expect(err).NotTo(HaveOccurred())
		memSub.Init(program)
		for pc, instr := range program.Code {
			queue.Enqueue(frontend.Entry{Instr: instr, PC: int64(pc)})
		}
	}

	// drain cycles the memory subsystem and the backend until all
	// in-flight work has retired.
	drain := func() {
		for k := 0; k < 200; k++ {
			memSub.DoCycle()
			b.DoCycle()
			if queue.IsEmpty() && b.ROB().Size() == 0 {
				return
			}
		}
		Fail("backend did not drain")
	}

	It("should execute an independent sequence", func() {
		enqueue(`
.text
    MOV r0, #100
    MOV r1, #10
    ADD r2, r0, r1
`)
		drain()
		Expect(archRegs.Value(0)).To(Equal(int64(100)))
		Expect(archRegs.Value(1)).To(Equal(int64(10)))
		Expect(archRegs.Value(2)).To(Equal(int64(110)))
	})

	It("should forward values over the CDB through a dependency chain", func() {
		enqueue(`
.text
    MOV r0, #1
    MOV r1, r0
    MOV r2, r1
    MOV r3, r2
    MOV r4, r3
`)
		drain()
		Expect(archRegs.Value(4)).To(Equal(int64(1)))
	})

	It("should retire write-after-write chains in program order", func() {
		enqueue(`
.text
    MOV r0, #1
    MOV r0, #2
    MOV r0, #3
    MOV r0, #4
`)
		drain()
		Expect(archRegs.Value(0)).To(Equal(int64(4)))
	})

	It("should release RAT mappings once the last writer retires", func() {
		enqueue(`
.text
    MOV r0, #5
`)
		drain()

		// A later read must see the architectural value, not a stale
		// mapping: issue a dependent instruction after retire.
		enqueue(`
.text
    ADD r1, r0, r0
`)
		drain()
		Expect(archRegs.Value(1)).To(Equal(int64(10)))
	})

	It("should stage stores through the store buffer", func() {
		enqueue(`
.data
    var_a: .dword 0
.text
    MOV r0, #42
    STR r0, var_a
`)
		drain()

		// The store may still sit in the buffer; drain the memory
		// subsystem until it lands.
		for k := 0; k < 4; k++ {
			memSub.DoCycle()
		}
		Expect(memSub.Memory.Read(0)).To(Equal(int64(42)))
	})

	It("should write PRINTR lines during execute", func() {
		enqueue(`
.text
    MOV r3, #7
    PRINTR r3
`)
		drain()
		Expect(stdout.String()).To(Equal("PRINTR r3=7\n"))
	})

	It("should push and pop through the backend stack", func() {
		enqueue(`
.text
    MOV r0, #11
    PUSH r0
    MOV r1, #22
    PUSH r1
    POP r2
    POP r3
`)
		drain()
		Expect(archRegs.Value(2)).To(Equal(int64(22)))
		Expect(archRegs.Value(3)).To(Equal(int64(11)))
		Expect(archRegs.Value(insts.SP)).To(Equal(int64(0)))
	})

	It("should redirect the frontend when a branch retires", func() {
		// Feed only the branch; the frontend would have halted after it.
		q2 := frontend.NewQueue(4)
		program, err := loader.LoadString(".text\n B skip\n NOP\nskip:\n NOP\n")
		Expect(err).NotTo(HaveOccurred())
		b2 := backend.New(backend.Config{
			PhysRegCount: 32, RSCount: 8, ROBCapacity: 16, EUCount: 4,
			RetireNWide: 4, DispatchNWide: 4, IssueNWide: 4, StackCapacity: 8,
			Stdout: io.Discard, TraceWriter: io.Discard,
		}, q2, control, memSub, archRegs)

		control.Halted = true
		q2.Enqueue(frontend.Entry{Instr: program.Code[0], PC: 0})

		for k := 0; k < 20; k++ {
			b2.DoCycle()
		}
		Expect(control.Halted).To(BeFalse())
		Expect(control.IPNextFetch).To(Equal(int64(2)))
	})

	It("should stop retiring at EXIT and raise the exit flag", func() {
		enqueue(`
.text
    MOV r0, #1
    EXIT
`)
		for k := 0; k < 50 && !b.Exited(); k++ {
			memSub.DoCycle()
			b.DoCycle()
		}
		Expect(b.Exited()).To(BeTrue())
		Expect(archRegs.Value(0)).To(Equal(int64(1)))
	})

	It("should count instructions through every phase", func() {
		enqueue(`
.text
    MOV r0, #1
    MOV r1, #2
    ADD r2, r0, r1
`)
		drain()
		issued, dispatched, executed, retired := b.Counts()
		Expect(issued).To(Equal(uint64(3)))
		Expect(dispatched).To(Equal(uint64(3)))
		Expect(executed).To(Equal(uint64(3)))
		Expect(retired).To(Equal(uint64(3)))
	})
})
