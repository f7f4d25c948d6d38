package insts

import "fmt"

// OperandKind discriminates the Operand tagged union.
type OperandKind uint8

// Operand kinds.
const (
	// KindUnused marks an empty slot in a fixed-size operand array.
	KindUnused OperandKind = iota
	// KindRegister names an architectural register before renaming and a
	// physical register after.
	KindRegister
	// KindImmediate is a constant carried by the instruction itself.
	KindImmediate
	// KindMemory is a word address in data memory.
	KindMemory
	// KindCode is an instruction index in the code section.
	KindCode
)

// Operand is one source or sink of an instruction. It is a closed sum:
// exactly one of the kinds above, with the payload accessed through the
// kind-checked accessors. Accessing the wrong payload is an
// internal-consistency violation and panics.
type Operand struct {
	kind OperandKind
	reg  uint16
	val  int64
}

// Unused is the empty operand used to pad fixed-size operand arrays.
var Unused = Operand{kind: KindUnused}

// NewRegister returns a register operand.
func NewRegister(reg uint16) Operand {
	return Operand{kind: KindRegister, reg: reg}
}

// NewImmediate returns an immediate operand.
func NewImmediate(value int64) Operand {
	return Operand{kind: KindImmediate, val: value}
}

// NewMemory returns a memory-address operand.
func NewMemory(addr int64) Operand {
	return Operand{kind: KindMemory, val: addr}
}

// NewCode returns a code-address operand.
func NewCode(addr int64) Operand {
	return Operand{kind: KindCode, val: addr}
}

// Kind returns the operand kind.
func (o Operand) Kind() OperandKind {
	return o.kind
}

// Register returns the register index. Panics if the operand is not a
// register.
func (o Operand) Register() uint16 {
	if o.kind != KindRegister {
		panic(fmt.Sprintf("operand is not a register: %s", o))
	}
	return o.reg
}

// Immediate returns the immediate value. Panics if the operand is not an
// immediate.
func (o Operand) Immediate() int64 {
	if o.kind != KindImmediate {
		panic(fmt.Sprintf("operand is not an immediate: %s", o))
	}
	return o.val
}

// MemoryAddr returns the memory address. Panics if the operand is not a
// memory operand.
func (o Operand) MemoryAddr() int64 {
	if o.kind != KindMemory {
		panic(fmt.Sprintf("operand is not a memory address: %s", o))
	}
	return o.val
}

// CodeAddr returns the code address. Panics if the operand is not a code
// operand.
func (o Operand) CodeAddr() int64 {
	if o.kind != KindCode {
		panic(fmt.Sprintf("operand is not a code address: %s", o))
	}
	return o.val
}

// String renders the operand the way it is written in assembly.
func (o Operand) String() string {
	switch o.kind {
	case KindRegister:
		return RegName(o.reg)
	case KindImmediate:
		return fmt.Sprintf("#%d", o.val)
	case KindMemory:
		return fmt.Sprintf("[%d]", o.val)
	case KindCode:
		return fmt.Sprintf("@%d", o.val)
	default:
		return "unused"
	}
}
