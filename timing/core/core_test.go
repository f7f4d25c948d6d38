package core_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/loader"
	"github.com/sarchlab/o3sim/timing/core"
)

// testConfig returns the default configuration with a fast simulated
// clock so tests do not sleep.
func testConfig() *core.Config {
	config := core.DefaultConfig()
	config.FrequencyHz = 1_000_000_000
	return config
}

var _ = Describe("CPU", func() {
	var (
		cpu    *core.CPU
		stdout *bytes.Buffer
	)

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
		cpu = core.NewCPU(testConfig(),
			core.WithStdout(stdout), core.WithTraceWriter(io.Discard))
	})

	// run executes src to completion with a cycle bound so a scheduling
	// bug fails the test instead of hanging it.
	run := func(src string) {
		program, err := loader.LoadString(src)
		Expect(err).NotTo(HaveOccurred())
		cpu.Init(program)
		for k := 0; k < 100000 && !cpu.Exited(); k++ {
			cpu.Tick()
		}
		Expect(cpu.Exited()).To(BeTrue())
	}

	reg := func(r uint16) int64 { return cpu.RegFile().Value(r) }

	It("should add two registers", func() {
		run(`
.text
    MOV r0, #100
    MOV r1, #10
    ADD r2, r0, r1
    EXIT
`)
		Expect(reg(0)).To(Equal(int64(100)))
		Expect(reg(1)).To(Equal(int64(10)))
		Expect(reg(2)).To(Equal(int64(110)))
	})

	It("should subtract two registers", func() {
		run(`
.text
    MOV r0, #100
    MOV r1, #10
    SUB r2, r0, r1
    EXIT
`)
		Expect(reg(2)).To(Equal(int64(90)))
	})

	It("should multiply two registers", func() {
		run(`
.text
    MOV r0, #100
    MOV r1, #10
    MUL r2, r0, r1
    EXIT
`)
		Expect(reg(2)).To(Equal(int64(1000)))
	})

	It("should retire a write-after-write chain in program order", func() {
		run(`
.text
    MOV r0, #1
    MOV r0, #2
    MOV r0, #3
    MOV r0, #4
    MOV r0, #5
    MOV r0, #6
    MOV r0, #7
    MOV r0, #8
    EXIT
`)
		Expect(reg(0)).To(Equal(int64(8)))
	})

	It("should forward a read-after-write dependency chain", func() {
		run(`
.text
    MOV r0, #1
    MOV r1, r0
    MOV r2, r1
    MOV r3, r2
    MOV r4, r3
    MOV r5, r4
    MOV r6, r5
    MOV r7, r6
    MOV r8, r7
    EXIT
`)
		Expect(reg(8)).To(Equal(int64(1)))
	})

	It("should run a nested loop to completion", func() {
		run(`
.text
    MOV r0, #10
    MOV r2, #0
outer:
    MOV r1, #10
inner:
    ADD r2, r2, #1
    SUB r1, r1, #1
    CBNZ r1, inner
    SUB r0, r0, #1
    CBNZ r0, outer
    EXIT
`)
		Expect(reg(2)).To(Equal(int64(100)))
	})

	It("should load through an address taken as an immediate", func() {
		run(`
.data
    var_a: .dword 5
.text
    MOV r0, =var_a
    LDR r0, r0
    EXIT
`)
		Expect(reg(0)).To(Equal(int64(5)))
	})

	It("should make stores visible in memory after draining", func() {
		run(`
.data
    var_a: .dword 0
    var_b: .dword 0
.text
    MOV r0, #7
    MOV r1, #9
    STR r0, var_a
    STR r1, var_b
    EXIT
`)
		Expect(cpu.Memory().Read(0)).To(Equal(int64(7)))
		Expect(cpu.Memory().Read(1)).To(Equal(int64(9)))
	})

	It("should evaluate conditional branches over CMP flags", func() {
		run(`
.text
    MOV r0, #3
    MOV r1, #5
    CMP r0, r1
    BLT less
    MOV r2, #111
    EXIT
less:
    MOV r2, #222
    EXIT
`)
		Expect(reg(2)).To(Equal(int64(222)))
	})

	It("should fall through a not-taken conditional branch", func() {
		run(`
.text
    MOV r0, #5
    CMP r0, #5
    BNE other
    MOV r2, #111
    EXIT
other:
    MOV r2, #222
    EXIT
`)
		Expect(reg(2)).To(Equal(int64(111)))
	})

	It("should call and return with BL/BX", func() {
		run(`
.global main
.text
double:
    ADD r0, r0, r0
    BX lr
main:
    MOV r0, #21
    BL double
    EXIT
`)
		Expect(reg(0)).To(Equal(int64(42)))
		Expect(reg(insts.LR)).To(Equal(int64(4)))
	})

	It("should push and pop through the stack", func() {
		run(`
.text
    MOV r0, #11
    PUSH r0
    MOV r0, #22
    PUSH r0
    POP r1
    POP r2
    EXIT
`)
		Expect(reg(1)).To(Equal(int64(22)))
		Expect(reg(2)).To(Equal(int64(11)))
		Expect(reg(insts.SP)).To(Equal(int64(0)))
	})

	It("should capture PRINTR output", func() {
		run(`
.text
    MOV r3, #42
    PRINTR r3
    EXIT
`)
		Expect(stdout.String()).To(Equal("PRINTR r3=42\n"))
	})

	It("should produce identical state over two fresh runs", func() {
		src := `
.data
    var_a: .dword 3
.text
    MOV r0, #10
    MOV r2, #0
loop:
    ADD r2, r2, r0
    SUB r0, r0, #1
    CBNZ r0, loop
    STR r2, var_a
    EXIT
`
		final := func() ([]int64, int64, uint64) {
			c := core.NewCPU(testConfig(),
				core.WithStdout(io.Discard), core.WithTraceWriter(io.Discard))
			program, err := loader.LoadString(src)
			Expect(err).NotTo(HaveOccurred())
			c.Init(program)
			for k := 0; k < 100000 && !c.Exited(); k++ {
				c.Tick()
			}
			Expect(c.Exited()).To(BeTrue())

			regs := make([]int64, c.RegFile().Count())
			for r := uint16(0); r < c.RegFile().Count(); r++ {
				regs[r] = c.RegFile().Value(r)
			}
			return regs, c.Memory().Read(0), c.Stats().Cycles
		}

		regsA, memA, cyclesA := final()
		regsB, memB, cyclesB := final()
		Expect(regsA).To(Equal(regsB))
		Expect(memA).To(Equal(memB))
		Expect(cyclesA).To(Equal(cyclesB))
		Expect(memA).To(Equal(int64(55)))
	})

	It("should agree with the functional emulator", func() {
		src := `
.data
    total: .dword 0
.text
    MOV r0, #7
    MOV r1, #6
    MUL r2, r0, r1
    ADD r2, r2, #8
    STR r2, total
    CMP r2, #50
    BEQ done
    MOV r3, #1
done:
    EXIT
`
		program, err := loader.LoadString(src)
		Expect(err).NotTo(HaveOccurred())

		ref := emu.NewEmulator(emu.WithStdout(io.Discard))
		ref.LoadProgram(program)
		Expect(ref.Run()).To(Succeed())

		run(src)
		for r := uint16(0); r < insts.GeneralRegCount; r++ {
			Expect(reg(r)).To(Equal(ref.RegFile().Value(r)),
				"register r%d differs", r)
		}
		Expect(cpu.Memory().Read(0)).To(Equal(ref.Memory().Read(0)))
	})

	It("should count retired instructions and report IPC", func() {
		run(`
.text
    MOV r0, #1
    MOV r1, #2
    ADD r2, r0, r1
    EXIT
`)
		stats := cpu.Stats()
		Expect(stats.Retired).To(Equal(uint64(3)))
		Expect(stats.Decoded).To(Equal(uint64(4)))
		Expect(stats.Cycles).To(BeNumerically(">", uint64(0)))
		Expect(stats.IPC()).To(BeNumerically(">", 0.0))
	})

	It("should survive backpressure in tiny configurations", func() {
		config := testConfig()
		config.InstrQueueCapacity = 2
		config.RSCount = 2
		config.ROBCapacity = 2
		config.EUCount = 1
		config.SBCapacity = 1
		config.LFBCount = 1
		config.PhysRegCount = 8
		config.FrontendNWide = 1
		config.RetireNWide = 1
		config.DispatchNWide = 1
		config.IssueNWide = 1
		cpu = core.NewCPU(config,
			core.WithStdout(io.Discard), core.WithTraceWriter(io.Discard))

		run(`
.data
    var_a: .dword 0
.text
    MOV r0, #1
    MOV r1, #2
    ADD r2, r0, r1
    STR r2, var_a
    STR r0, var_a
    STR r1, var_a
    EXIT
`)
		Expect(cpu.Memory().Read(0)).To(Equal(int64(2)))
	})

	It("should run a program whose CMP flags survive between branches", func() {
		run(`
.text
    MOV r0, #10
    CMP r0, #10
    BGE ge
    MOV r1, #1
    EXIT
ge:
    BLE le
    MOV r1, #2
    EXIT
le:
    MOV r1, #3
    EXIT
`)
		// 10 >= 10 and 10 <= 10: both branches taken.
		Expect(reg(1)).To(Equal(int64(3)))
	})
})
