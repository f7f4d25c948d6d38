package backend

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/timing/frontend"
	"github.com/sarchlab/o3sim/timing/mem"
)

// TraceFlags selects which backend phases print a trace line per
// processed instruction.
type TraceFlags struct {
	Issue    bool
	Dispatch bool
	Execute  bool
	Retire   bool
}

// Config sizes the backend structures.
type Config struct {
	PhysRegCount  uint16
	RSCount       uint16
	ROBCapacity   uint16
	EUCount       uint8
	RetireNWide   uint8
	DispatchNWide uint8
	IssueNWide    uint8
	StackCapacity uint32

	Trace TraceFlags

	// Stdout receives PRINTR output; TraceWriter receives trace lines.
	// Both default to os.Stdout.
	Stdout      io.Writer
	TraceWriter io.Writer
}

// cdbRequest is one pending common-data-bus broadcast: a physical
// register that received its value this cycle.
type cdbRequest struct {
	physReg uint16
	value   int64
}

// Backend is the out-of-order execution engine. Each cycle it retires
// executed instructions in program order, advances the execution units
// and broadcasts their results, dispatches ready stations, and issues
// new instructions from the queue into the reorder buffer and the
// reservation stations.
type Backend struct {
	queue        *frontend.Queue
	control      *frontend.Control
	memSubsystem *mem.Subsystem
	archRegs     *emu.RegFile

	rsTable  *RSTable
	physRegs *PhysRegFile
	rat      *RAT
	rob      *ROB
	euPool   *EUPool

	retireNWide   uint8
	dispatchNWide uint8
	issueNWide    uint8

	cdbBuffer []cdbRequest

	stack []int64

	trace  TraceFlags
	stdout io.Writer
	writer io.Writer

	exited bool

	issueCount    uint64
	dispatchCount uint64
	executeCount  uint64
	retireCount   uint64
}

// New creates a backend operating on the shared instruction queue,
// frontend control, memory subsystem, and architectural register file.
func New(
	cfg Config,
	queue *frontend.Queue,
	control *frontend.Control,
	memSubsystem *mem.Subsystem,
	archRegs *emu.RegFile,
) *Backend {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	writer := cfg.TraceWriter
	if writer == nil {
		writer = os.Stdout
	}

	return &Backend{
		queue:         queue,
		control:       control,
		memSubsystem:  memSubsystem,
		archRegs:      archRegs,
		rsTable:       NewRSTable(cfg.RSCount),
		physRegs:      NewPhysRegFile(cfg.PhysRegCount),
		rat:           NewRAT(archRegs.Count()),
		rob:           NewROB(cfg.ROBCapacity),
		euPool:        NewEUPool(cfg.EUCount),
		retireNWide:   cfg.RetireNWide,
		dispatchNWide: cfg.DispatchNWide,
		issueNWide:    cfg.IssueNWide,
		cdbBuffer:     make([]cdbRequest, 0, cfg.EUCount),
		stack:         make([]int64, cfg.StackCapacity),
		trace:         cfg.Trace,
		stdout:        stdout,
		writer:        writer,
	}
}

// Exited reports whether an EXIT instruction has retired.
func (b *Backend) Exited() bool {
	return b.exited
}

// ROB returns the reorder buffer, for inspection.
func (b *Backend) ROB() *ROB {
	return b.rob
}

// Counts returns the number of instructions that passed each phase.
func (b *Backend) Counts() (issue, dispatch, execute, retire uint64) {
	return b.issueCount, b.dispatchCount, b.executeCount, b.retireCount
}

// DoCycle runs one backend cycle. Phase order is fixed: retire first,
// then execute with the CDB broadcast, then dispatch, then issue.
func (b *Backend) DoCycle() {
	b.cycleRetire()
	b.cycleExecute()
	b.cycleDispatch()
	b.cycleIssue()
}

// cycleRetire commits up to retireNWide executed instructions from the
// reorder-buffer head, in program order.
func (b *Backend) cycleRetire() {
	for k := uint8(0); k < b.retireNWide; k++ {
		if !b.rob.HeadExecuted() {
			break
		}

		slot := b.rob.Get(b.rob.HeadIndex())
		instr := slot.Instr

		if instr.Opcode == insts.OpEXIT {
			b.exited = true
			break
		}
		if b.trace.Retire {
			fmt.Fprintf(b.writer, "retire: [%s]\n", instr)
		}

		for s := uint8(0); s < instr.SinkCnt; s++ {
			sink := instr.Sink[s]
			if sink.Kind() != insts.KindRegister {
				// A memory sink was staged into the store buffer at
				// execute; it drains on its own.
				continue
			}

			archReg := sink.Register()
			physReg := slot.Sink[s].Register()

			// Only the newest writer in program order still matches the
			// RAT; earlier writers were overwritten at issue.
			entry := b.rat.Entry(archReg)
			if entry.Valid && entry.PhysReg == physReg {
				entry.Valid = false
			}

			b.physRegs.Get(physReg).HasValue = false
			b.physRegs.Deallocate(physReg)

			b.archRegs.SetValue(archReg, slot.Result[s])
		}

		if instr.IsControl {
			b.control.IPNextFetch = slot.BranchTarget
			b.control.Halted = false
		}

		b.rob.AdvanceHead()
		b.retireCount++
	}
}

// cycleExecute advances every executing unit by one cycle, performs the
// operations that complete, and then drains the CDB broadcast buffer into
// the waiting reservation stations.
func (b *Backend) cycleExecute() {
	for euIndex := uint8(0); euIndex < b.euPool.Capacity(); euIndex++ {
		eu := b.euPool.Get(euIndex)
		if eu.State != EUExecuting {
			continue
		}

		eu.CyclesRemaining--
		if eu.CyclesRemaining > 0 {
			continue
		}
		eu.State = EUCompleted

		rsIndex := eu.RSIndex
		rs := b.rsTable.Get(rsIndex)
		slot := b.rob.Get(rs.ROBSlotIndex)
		instr := slot.Instr

		if b.trace.Execute {
			fmt.Fprintf(b.writer, "execute: [%s]\n", instr)
		}

		b.compute(rs, slot, instr)
		b.executeCount++

		for s := uint8(0); s < rs.SinkCnt; s++ {
			sink := rs.Sink[s]
			switch sink.Kind() {
			case insts.KindRegister:
				physReg := sink.Register()
				entry := b.physRegs.Get(physReg)
				entry.Value = slot.Result[s]
				entry.HasValue = true
				b.cdbBuffer = append(b.cdbBuffer,
					cdbRequest{physReg: physReg, value: entry.Value})
			case insts.KindMemory:
				b.memSubsystem.SB.Store(rs.SBPos, sink.MemoryAddr(), slot.Result[s])
			default:
				panic(fmt.Sprintf("illegal sink %s", sink))
			}
		}

		b.rsTable.Deallocate(rsIndex)
		b.euPool.Deallocate(euIndex)
		slot.State = SlotExecuted
	}

	b.broadcastCDB()
}

// broadcastCDB delivers every completed physical-register value to the
// reservation stations still waiting on it.
func (b *Backend) broadcastCDB() {
	for _, req := range b.cdbBuffer {
		for rsIndex := uint16(0); rsIndex < b.rsTable.Capacity(); rsIndex++ {
			rs := b.rsTable.Get(rsIndex)
			if rs.State != RSBusy {
				continue
			}
			slot := b.rob.Get(rs.ROBSlotIndex)
			if slot.State != SlotIssued {
				continue
			}

			for s := uint8(0); s < rs.SourceCnt; s++ {
				source := rs.Source[s]
				if source.Kind() == insts.KindRegister && source.Register() == req.physReg {
					rs.Source[s] = insts.NewImmediate(req.value)
					rs.SourceReadyCnt++
				}
			}

			if rs.Ready() {
				slot.State = SlotDispatched
				b.rsTable.EnqueueReady(rsIndex)
			}
		}
	}
	b.cdbBuffer = b.cdbBuffer[:0]
}

// cycleDispatch moves up to dispatchNWide ready stations onto idle
// execution units.
func (b *Backend) cycleDispatch() {
	for k := uint8(0); k < b.dispatchNWide; k++ {
		if !b.rsTable.HasReady() || !b.euPool.HasIdle() {
			break
		}

		rsIndex := b.rsTable.DequeueReady()
		rs := b.rsTable.Get(rsIndex)

		slot := b.rob.Get(rs.ROBSlotIndex)
		slot.State = SlotDispatched

		euIndex := b.euPool.Allocate()
		eu := b.euPool.Get(euIndex)
		eu.RSIndex = rsIndex
		eu.CyclesRemaining = slot.Instr.Cycles

		if b.trace.Dispatch {
			fmt.Fprintf(b.writer, "dispatch: [%s]\n", slot.Instr)
		}
		b.dispatchCount++
	}
}

// cycleIssue runs the two issue sub-phases: move instructions from the
// queue into the reorder buffer, then bind reorder-buffer slots to
// reservation stations with renamed operands.
func (b *Backend) cycleIssue() {
	for k := uint8(0); k < b.issueNWide; k++ {
		if b.queue.IsEmpty() || !b.rob.HasSpace() {
			break
		}

		entry := b.queue.Peek()
		b.queue.Dequeue()

		slot := b.rob.Get(b.rob.Allocate())
		slot.Instr = entry.Instr
		slot.PC = entry.PC
		slot.State = SlotIssued

		if b.trace.Issue {
			fmt.Fprintf(b.writer, "issue: [%s]\n", entry.Instr)
		}
		b.issueCount++
	}

	for k := uint8(0); k < b.issueNWide; k++ {
		if !b.rob.HasIssued() || !b.rsTable.HasFree() {
			break
		}

		slotIndex := uint16(b.rob.Issued() % uint64(b.rob.capacity))
		slot := b.rob.Get(slotIndex)
		instr := slot.Instr

		if instr.MemStores > 0 && !b.memSubsystem.SB.HasSpace() {
			// No store-buffer slot; stores must allocate in program
			// order, so later instructions cannot bypass.
			break
		}
		b.rob.NextIssued()

		rsIndex := b.rsTable.Allocate()
		rs := b.rsTable.Get(rsIndex)

		slot.RSIndex = rsIndex
		rs.ROBSlotIndex = slotIndex
		rs.Opcode = instr.Opcode
		rs.SourceCnt = instr.SourceCnt
		rs.SourceReadyCnt = 0

		for s := uint8(0); s < instr.SourceCnt; s++ {
			b.renameSource(rs, s, instr.Source[s])
		}

		rs.SinkCnt = instr.SinkCnt
		for s := uint8(0); s < instr.SinkCnt; s++ {
			b.renameSink(rs, s, instr.Sink[s])
		}
		slot.Sink = rs.Sink

		if rs.Ready() {
			slot.State = SlotDispatched
			b.rsTable.EnqueueReady(rsIndex)
		}
	}
}

// renameSource resolves one source operand at issue time. Register
// sources read through the RAT: a valid mapping with a produced value is
// captured as an immediate; a pending one is pinned to the physical
// register and waits for the CDB; an invalid mapping reads the
// architectural register directly.
func (b *Backend) renameSource(rs *RS, s uint8, source insts.Operand) {
	switch source.Kind() {
	case insts.KindRegister:
		archReg := source.Register()
		entry := b.rat.Entry(archReg)
		if entry.Valid {
			physReg := b.physRegs.Get(entry.PhysReg)
			if physReg.HasValue {
				rs.Source[s] = insts.NewImmediate(physReg.Value)
				rs.SourceReadyCnt++
			} else {
				rs.Source[s] = insts.NewRegister(entry.PhysReg)
			}
		} else {
			rs.Source[s] = insts.NewImmediate(b.archRegs.Value(archReg))
			rs.SourceReadyCnt++
		}
	case insts.KindImmediate, insts.KindMemory, insts.KindCode:
		rs.Source[s] = source
		rs.SourceReadyCnt++
	default:
		panic(fmt.Sprintf("illegal source %s", source))
	}
}

// renameSink renames one sink operand at issue time. Register sinks
// allocate a fresh physical register and redirect the RAT; memory sinks
// allocate the next store-buffer slot, which keeps stores FIFO.
func (b *Backend) renameSink(rs *RS, s uint8, sink insts.Operand) {
	switch sink.Kind() {
	case insts.KindRegister:
		physReg := b.physRegs.Allocate()
		b.rat.Update(sink.Register(), physReg)
		rs.Sink[s] = insts.NewRegister(physReg)
	case insts.KindMemory:
		rs.Sink[s] = sink
		rs.SBPos = b.memSubsystem.SB.Allocate()
	default:
		panic(fmt.Sprintf("illegal sink %s", sink))
	}
}
