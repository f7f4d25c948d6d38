// Package core wires the timed CPU together: frontend, instruction
// queue, out-of-order backend, memory subsystem, and the clock that
// advances them once per simulated cycle.
package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/timing/backend"
	"github.com/sarchlab/o3sim/timing/frontend"
	"github.com/sarchlab/o3sim/timing/mem"
)

// Stats holds the performance counters of a run.
type Stats struct {
	// Cycles is the number of simulated clock cycles.
	Cycles uint64
	// Decoded is the number of instructions fetched by the frontend.
	Decoded uint64
	// Issued is the number of instructions entered into the reorder buffer.
	Issued uint64
	// Dispatched is the number of instructions sent to execution units.
	Dispatched uint64
	// Executed is the number of instructions completed by execution units.
	Executed uint64
	// Retired is the number of instructions committed in program order.
	Retired uint64
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Retired) / float64(s.Cycles)
}

// CPU is the cycle-accurate simulated processor. Each simulated cycle
// advances the subsystems in fixed order: memory drain, then the backend
// phases (retire, execute, dispatch, issue), then frontend fetch.
type CPU struct {
	config *Config

	queue        *frontend.Queue
	control      *frontend.Control
	frontend     *frontend.Frontend
	backend      *backend.Backend
	memSubsystem *mem.Subsystem
	archRegs     *emu.RegFile

	cyclePeriod time.Duration
	cycleCount  uint64

	traceCycle bool
	writer     io.Writer
}

// Option is a functional option for configuring the CPU.
type Option func(*options)

type options struct {
	stdout io.Writer
	trace  io.Writer
}

// WithStdout sets the writer receiving PRINTR output.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithTraceWriter sets the writer receiving trace lines.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) {
		o.trace = w
	}
}

// NewCPU builds a CPU from a validated configuration.
func NewCPU(config *Config, opts ...Option) *CPU {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid CPU config: %v", err))
	}

	o := &options{stdout: os.Stdout, trace: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	queue := frontend.NewQueue(config.InstrQueueCapacity)
	control := &frontend.Control{}
	memSubsystem := mem.NewSubsystem(config.MemorySize, config.SBCapacity, config.LFBCount)
	archRegs := emu.NewRegFile(config.ArchRegCount)

	be := backend.New(backend.Config{
		PhysRegCount:  config.PhysRegCount,
		RSCount:       config.RSCount,
		ROBCapacity:   config.ROBCapacity,
		EUCount:       config.EUCount,
		RetireNWide:   config.RetireNWide,
		DispatchNWide: config.DispatchNWide,
		IssueNWide:    config.IssueNWide,
		StackCapacity: config.StackCapacity,
		Trace: backend.TraceFlags{
			Issue:    config.Trace.Issue,
			Dispatch: config.Trace.Dispatch,
			Execute:  config.Trace.Execute,
			Retire:   config.Trace.Retire,
		},
		Stdout:      o.stdout,
		TraceWriter: o.trace,
	}, queue, control, memSubsystem, archRegs)

	fe := frontend.NewFrontend(queue, control, config.FrontendNWide,
		config.Trace.Decode, o.trace)

	return &CPU{
		config:       config,
		queue:        queue,
		control:      control,
		frontend:     fe,
		backend:      be,
		memSubsystem: memSubsystem,
		archRegs:     archRegs,
		cyclePeriod:  time.Duration(1_000_000/config.FrequencyHz) * time.Microsecond,
		traceCycle:   config.Trace.Cycle,
		writer:       o.trace,
	}
}

// RegFile returns the architectural register file.
func (c *CPU) RegFile() *emu.RegFile {
	return c.archRegs
}

// Memory returns the data memory.
func (c *CPU) Memory() *emu.Memory {
	return c.memSubsystem.Memory
}

// Exited reports whether an EXIT instruction has retired.
func (c *CPU) Exited() bool {
	return c.backend.Exited()
}

// Stats returns the performance counters.
func (c *CPU) Stats() Stats {
	issued, dispatched, executed, retired := c.backend.Counts()
	return Stats{
		Cycles:     c.cycleCount,
		Decoded:    c.frontend.DecodeCount(),
		Issued:     issued,
		Dispatched: dispatched,
		Executed:   executed,
		Retired:    retired,
	}
}

// Init loads a program: memory is initialized from its data items and the
// frontend starts fetching at its entry point.
func (c *CPU) Init(program *insts.Program) {
	c.memSubsystem.Init(program)
	c.frontend.Init(program)
	c.archRegs.Reset()
	c.archRegs.SetValue(insts.PC, program.EntryPoint)
}

// Tick advances every subsystem by one simulated cycle.
func (c *CPU) Tick() {
	c.cycleCount++

	if c.traceCycle {
		stats := c.Stats()
		fmt.Fprintf(c.writer,
			"cycle %d: decoded=%d issued=%d dispatched=%d executed=%d retired=%d ipc=%.2f\n",
			stats.Cycles, stats.Decoded, stats.Issued, stats.Dispatched,
			stats.Executed, stats.Retired, stats.IPC())
	}

	c.memSubsystem.DoCycle()
	c.backend.DoCycle()
	c.frontend.DoCycle()
}

// Run initializes the CPU with the program and advances it one cycle at
// a time, pacing the simulated clock to the configured frequency, until
// an EXIT instruction retires.
func (c *CPU) Run(program *insts.Program) {
	c.Init(program)
	for !c.backend.Exited() {
		c.Tick()
		time.Sleep(c.cyclePeriod)
	}
}
