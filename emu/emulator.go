package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/o3sim/insts"
)

// Default sizes used when no option overrides them.
const (
	DefaultMemorySize    = 1 << 12
	DefaultStackCapacity = 128
)

// StepResult reports the outcome of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated via EXIT.
	Exited bool

	// Err is set if execution cannot continue.
	Err error
}

// Emulator executes a program functionally, one instruction at a time,
// with no timing model. It shares the architectural semantics of the
// timed core and serves as its reference.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	stack   []int64

	program *insts.Program
	pc      int64

	stdout io.Writer

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	exited           bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom writer for PRINTR output.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithMemorySize sets the memory size in words.
func WithMemorySize(size int64) EmulatorOption {
	return func(e *Emulator) {
		e.memory = NewMemory(size)
	}
}

// WithStackCapacity sets the call-stack capacity in words.
func WithStackCapacity(capacity int64) EmulatorOption {
	return func(e *Emulator) {
		e.stack = make([]int64, capacity)
	}
}

// WithMaxInstructions bounds the number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a functional emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: NewRegFile(insts.RegCount),
		memory:  NewMemory(DefaultMemorySize),
		stack:   make([]int64, DefaultStackCapacity),
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram initializes memory from the program's data items and sets
// the program counter to the entry point.
func (e *Emulator) LoadProgram(program *insts.Program) {
	e.program = program
	e.memory.Init(program)
	e.regFile.Reset()
	e.pc = program.EntryPoint
	e.regFile.SetValue(insts.PC, e.pc)
	e.instructionCount = 0
	e.exited = false
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.exited {
		return StepResult{Exited: true}
	}
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("max instructions reached")}
	}
	if e.pc < 0 || e.pc >= int64(len(e.program.Code)) {
		return StepResult{Err: fmt.Errorf("program counter %d outside code", e.pc)}
	}

	instr := e.program.Instr(e.pc)
	e.instructionCount++
	e.execute(instr)

	e.regFile.SetValue(insts.PC, e.pc)
	return StepResult{Exited: e.exited}
}

// Run executes the program until it exits or fails.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Exited {
			return nil
		}
	}
}

// value resolves a source operand to a machine word.
func (e *Emulator) value(op insts.Operand) int64 {
	switch op.Kind() {
	case insts.KindRegister:
		return e.regFile.Value(op.Register())
	case insts.KindImmediate:
		return op.Immediate()
	case insts.KindCode:
		return op.CodeAddr()
	default:
		panic(fmt.Sprintf("operand has no value: %s", op))
	}
}

func (e *Emulator) execute(instr *insts.Instr) {
	next := e.pc + 1

	switch instr.Opcode {
	case insts.OpNOP:
	case insts.OpADD:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])+e.value(instr.Source[1]))
	case insts.OpSUB:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])-e.value(instr.Source[1]))
	case insts.OpMUL:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])*e.value(instr.Source[1]))
	case insts.OpSDIV:
		divisor := e.value(instr.Source[1])
		if divisor == 0 {
			panic(fmt.Sprintf("division by zero at %s", instr))
		}
		e.setReg(instr.Sink[0], e.value(instr.Source[0])/divisor)
	case insts.OpNEG:
		e.setReg(instr.Sink[0], -e.value(instr.Source[0]))
	case insts.OpAND:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])&e.value(instr.Source[1]))
	case insts.OpORR:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])|e.value(instr.Source[1]))
	case insts.OpEOR:
		e.setReg(instr.Sink[0], e.value(instr.Source[0])^e.value(instr.Source[1]))
	case insts.OpMVN:
		e.setReg(instr.Sink[0], ^e.value(instr.Source[0]))
	case insts.OpMOV:
		e.setReg(instr.Sink[0], e.value(instr.Source[0]))
	case insts.OpLDR:
		e.setReg(instr.Sink[0], e.memory.Read(e.loadAddr(instr.Source[0])))
	case insts.OpSTR:
		e.memory.Write(instr.Sink[0].MemoryAddr(), e.value(instr.Source[0]))
	case insts.OpPUSH:
		value := e.value(instr.Source[0])
		sp := e.value(instr.Source[1])
		if sp == int64(len(e.stack)) {
			panic("stack overflow")
		}
		e.stack[sp] = value
		e.setReg(instr.Sink[0], sp+1)
	case insts.OpPOP:
		sp := e.value(instr.Source[0]) - 1
		e.setReg(instr.Sink[0], e.stack[sp])
		e.setReg(instr.Sink[1], sp)
	case insts.OpPRINTR:
		reg := instr.Source[0].Register()
		fmt.Fprintf(e.stdout, "PRINTR %s=%d\n", insts.RegName(reg), e.regFile.Value(reg))
	case insts.OpCMP:
		cpsr := CMPFlags(
			e.value(instr.Source[0]),
			e.value(instr.Source[1]),
			e.regFile.Value(insts.CPSR))
		e.regFile.SetValue(insts.CPSR, cpsr)
	case insts.OpB:
		next = instr.Source[0].CodeAddr()
	case insts.OpBX:
		next = e.value(instr.Source[0])
	case insts.OpBL:
		e.regFile.SetValue(insts.LR, e.pc+1)
		next = instr.Source[0].CodeAddr()
	case insts.OpCBZ:
		if e.value(instr.Source[0]) == 0 {
			next = instr.Source[1].CodeAddr()
		}
	case insts.OpCBNZ:
		if e.value(instr.Source[0]) != 0 {
			next = instr.Source[1].CodeAddr()
		}
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBLE, insts.OpBGT, insts.OpBGE:
		if CondHolds(instr.Opcode, e.regFile.Value(insts.CPSR)) {
			next = instr.Source[0].CodeAddr()
		}
	case insts.OpEXIT:
		e.exited = true
	default:
		panic(fmt.Sprintf("unhandled opcode %s", instr.Opcode))
	}

	e.pc = next
}

// loadAddr resolves an LDR address operand: either a register holding the
// address or a direct data-item reference.
func (e *Emulator) loadAddr(op insts.Operand) int64 {
	if op.Kind() == insts.KindMemory {
		return op.MemoryAddr()
	}
	return e.value(op)
}

func (e *Emulator) setReg(sink insts.Operand, value int64) {
	e.regFile.SetValue(sink.Register(), value)
}
