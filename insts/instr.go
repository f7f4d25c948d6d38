package insts

import (
	"fmt"
	"strings"
)

// Limits of the fixed-size operand arrays carried by instructions,
// reservation stations, and reorder-buffer slots.
const (
	MaxSourceCount = 3
	MaxSinkCount   = 2
)

// Instr is a single decoded instruction. Instructions are immutable once
// produced by the loader; the simulator shares them by pointer.
type Instr struct {
	Opcode Opcode

	// Cycles is the execution latency in clock cycles.
	Cycles uint8

	Source    [MaxSourceCount]Operand
	SourceCnt uint8

	Sink    [MaxSinkCount]Operand
	SinkCnt uint8

	// MemStores is the number of memory sinks. An instruction with
	// MemStores > 0 needs a store-buffer slot at issue.
	MemStores uint8

	// IsControl is true if the instruction reads or writes PC (or is
	// EXIT); the frontend stalls after fetching a control instruction
	// until the backend resolves the next fetch address.
	IsControl bool

	// Loc is the position in the assembly source, when known.
	Loc *SourceLocation
}

// New builds and validates an instruction from an opcode and its assembly
// operands. The operand shapes are checked per opcode; a mismatch returns
// an error naming the offending operand.
func New(opcode Opcode, operands []Operand, loc *SourceLocation) (*Instr, error) {
	instr := &Instr{
		Opcode: opcode,
		Cycles: 1,
		Loc:    loc,
	}

	var err error
	switch opcode {
	case OpADD, OpSUB, OpMUL, OpSDIV, OpAND, OpORR, OpEOR:
		err = instr.buildThreeOperandALU(operands)
	case OpNEG, OpMVN, OpMOV:
		err = instr.buildTwoOperand(operands)
	case OpLDR:
		err = instr.buildLDR(operands)
	case OpSTR:
		err = instr.buildSTR(operands)
	case OpPUSH:
		err = instr.buildPUSH(operands)
	case OpPOP:
		err = instr.buildPOP(operands)
	case OpPRINTR:
		err = instr.buildPRINTR(operands)
	case OpCMP:
		err = instr.buildCMP(operands)
	case OpB, OpBL:
		err = instr.buildDirectBranch(operands)
	case OpBX:
		err = instr.buildBX(operands)
	case OpCBZ, OpCBNZ:
		err = instr.buildCompareBranch(operands)
	case OpBEQ, OpBNE, OpBLT, OpBLE, OpBGT, OpBGE:
		err = instr.buildCondBranch(operands)
	case OpNOP, OpEXIT:
		if len(operands) != 0 {
			err = fmt.Errorf("%s expects 0 operands, got %d", opcode, len(operands))
		}
	default:
		err = fmt.Errorf("unknown opcode %d", opcode)
	}
	if err != nil {
		return nil, err
	}

	instr.IsControl = opcode == OpEXIT || instr.touchesPC()
	return instr, nil
}

func (i *Instr) touchesPC() bool {
	for k := uint8(0); k < i.SourceCnt; k++ {
		op := i.Source[k]
		if op.Kind() == KindRegister && op.Register() == PC {
			return true
		}
	}
	for k := uint8(0); k < i.SinkCnt; k++ {
		op := i.Sink[k]
		if op.Kind() == KindRegister && op.Register() == PC {
			return true
		}
	}
	return false
}

func (i *Instr) buildThreeOperandALU(operands []Operand) error {
	if len(operands) != 3 {
		return fmt.Errorf("%s expects 3 operands, got %d", i.Opcode, len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("%s expects a register as first operand, got %s", i.Opcode, operands[0])
	}
	if operands[1].Kind() != KindRegister {
		return fmt.Errorf("%s expects a register as second operand, got %s", i.Opcode, operands[1])
	}
	if k := operands[2].Kind(); k != KindRegister && k != KindImmediate {
		return fmt.Errorf("%s expects a register or immediate as third operand, got %s", i.Opcode, operands[2])
	}

	i.SinkCnt = 1
	i.Sink[0] = operands[0]
	i.SourceCnt = 2
	i.Source[0] = operands[1]
	i.Source[1] = operands[2]
	return nil
}

func (i *Instr) buildTwoOperand(operands []Operand) error {
	if len(operands) != 2 {
		return fmt.Errorf("%s expects 2 operands, got %d", i.Opcode, len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("%s expects a register as first operand, got %s", i.Opcode, operands[0])
	}
	if k := operands[1].Kind(); k != KindRegister && k != KindImmediate {
		return fmt.Errorf("%s expects a register or immediate as second operand, got %s", i.Opcode, operands[1])
	}

	i.SinkCnt = 1
	i.Sink[0] = operands[0]
	i.SourceCnt = 1
	i.Source[0] = operands[1]
	return nil
}

func (i *Instr) buildLDR(operands []Operand) error {
	if len(operands) != 2 {
		return fmt.Errorf("LDR expects 2 operands, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("LDR expects a register as first operand, got %s", operands[0])
	}
	if k := operands[1].Kind(); k != KindRegister && k != KindMemory {
		return fmt.Errorf("LDR expects a register or data item as second operand, got %s", operands[1])
	}

	i.SinkCnt = 1
	i.Sink[0] = operands[0]
	i.SourceCnt = 1
	i.Source[0] = operands[1]
	return nil
}

func (i *Instr) buildSTR(operands []Operand) error {
	if len(operands) != 2 {
		return fmt.Errorf("STR expects 2 operands, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("STR expects a register as first operand, got %s", operands[0])
	}
	if operands[1].Kind() != KindMemory {
		return fmt.Errorf("STR expects a data item as second operand, got %s", operands[1])
	}

	i.SourceCnt = 1
	i.Source[0] = operands[0]
	i.SinkCnt = 1
	i.Sink[0] = operands[1]
	i.MemStores = 1
	return nil
}

func (i *Instr) buildPUSH(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("PUSH expects 1 operand, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("PUSH expects a register operand, got %s", operands[0])
	}

	i.SourceCnt = 2
	i.Source[0] = operands[0]
	i.Source[1] = NewRegister(SP)
	i.SinkCnt = 1
	i.Sink[0] = NewRegister(SP)
	return nil
}

func (i *Instr) buildPOP(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("POP expects 1 operand, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("POP expects a register operand, got %s", operands[0])
	}

	i.SourceCnt = 1
	i.Source[0] = NewRegister(SP)
	i.SinkCnt = 2
	i.Sink[0] = operands[0]
	i.Sink[1] = NewRegister(SP)
	return nil
}

func (i *Instr) buildPRINTR(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("PRINTR expects 1 operand, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("PRINTR expects a register operand, got %s", operands[0])
	}

	i.SourceCnt = 1
	i.Source[0] = operands[0]
	return nil
}

func (i *Instr) buildCMP(operands []Operand) error {
	if len(operands) != 2 {
		return fmt.Errorf("CMP expects 2 operands, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("CMP expects a register as first operand, got %s", operands[0])
	}
	if k := operands[1].Kind(); k != KindRegister && k != KindImmediate {
		return fmt.Errorf("CMP expects a register or immediate as second operand, got %s", operands[1])
	}

	i.SourceCnt = 3
	i.Source[0] = operands[0]
	i.Source[1] = operands[1]
	i.Source[2] = NewRegister(CPSR)
	i.SinkCnt = 1
	i.Sink[0] = NewRegister(CPSR)
	return nil
}

func (i *Instr) buildDirectBranch(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("%s expects 1 operand, got %d", i.Opcode, len(operands))
	}
	if operands[0].Kind() != KindCode {
		return fmt.Errorf("%s expects a label operand, got %s", i.Opcode, operands[0])
	}

	i.SourceCnt = 1
	i.Source[0] = operands[0]
	if i.Opcode == OpBL {
		i.SinkCnt = 2
		i.Sink[0] = NewRegister(LR)
		i.Sink[1] = NewRegister(PC)
	} else {
		i.SinkCnt = 1
		i.Sink[0] = NewRegister(PC)
	}
	return nil
}

func (i *Instr) buildBX(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("BX expects 1 operand, got %d", len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("BX expects a register operand, got %s", operands[0])
	}

	i.SourceCnt = 1
	i.Source[0] = operands[0]
	i.SinkCnt = 1
	i.Sink[0] = NewRegister(PC)
	return nil
}

func (i *Instr) buildCompareBranch(operands []Operand) error {
	if len(operands) != 2 {
		return fmt.Errorf("%s expects 2 operands, got %d", i.Opcode, len(operands))
	}
	if operands[0].Kind() != KindRegister {
		return fmt.Errorf("%s expects a register as first operand, got %s", i.Opcode, operands[0])
	}
	if operands[1].Kind() != KindCode {
		return fmt.Errorf("%s expects a label as second operand, got %s", i.Opcode, operands[1])
	}

	i.SourceCnt = 2
	i.Source[0] = operands[0]
	i.Source[1] = operands[1]
	i.SinkCnt = 1
	i.Sink[0] = NewRegister(PC)
	return nil
}

func (i *Instr) buildCondBranch(operands []Operand) error {
	if len(operands) != 1 {
		return fmt.Errorf("%s expects 1 operand, got %d", i.Opcode, len(operands))
	}
	if operands[0].Kind() != KindCode {
		return fmt.Errorf("%s expects a label operand, got %s", i.Opcode, operands[0])
	}

	i.SourceCnt = 2
	i.Source[0] = operands[0]
	i.Source[1] = NewRegister(CPSR)
	i.SinkCnt = 1
	i.Sink[0] = NewRegister(PC)
	return nil
}

// NewNOP returns a NOP instruction.
func NewNOP() *Instr {
	return &Instr{Opcode: OpNOP, Cycles: 1}
}

// String renders the instruction roughly the way it is written in
// assembly, with the source location appended when known.
func (i *Instr) String() string {
	var b strings.Builder
	b.WriteString(i.Opcode.String())

	parts := make([]string, 0, MaxSourceCount+MaxSinkCount)
	switch i.Opcode {
	case OpSTR:
		parts = append(parts, i.Source[0].String(), i.Sink[0].String())
	default:
		for k := uint8(0); k < i.SinkCnt; k++ {
			parts = append(parts, i.Sink[k].String())
		}
		for k := uint8(0); k < i.SourceCnt; k++ {
			parts = append(parts, i.Source[k].String())
		}
	}
	if len(parts) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if i.Loc != nil {
		fmt.Fprintf(&b, " ; %s", i.Loc)
	}
	return b.String()
}
