// Package insts provides the instruction model for the simulated ISA:
// opcodes, operands, instruction construction and validation, and the
// register conventions shared by the loader, the functional emulator,
// and the timing simulator.
package insts

import "fmt"

// Opcode identifies an instruction of the simulated ISA.
type Opcode uint8

// Opcodes of the simulated ISA.
const (
	OpNOP Opcode = iota
	OpADD
	OpSUB
	OpMUL
	OpSDIV
	OpNEG
	OpAND
	OpORR
	OpEOR
	OpMVN
	OpMOV
	OpLDR
	OpSTR
	OpPUSH
	OpPOP
	OpPRINTR
	OpCMP
	OpB
	OpBX
	OpBL
	OpCBZ
	OpCBNZ
	OpBEQ
	OpBNE
	OpBLT
	OpBLE
	OpBGT
	OpBGE
	OpEXIT
)

var mnemonics = map[Opcode]string{
	OpNOP:    "NOP",
	OpADD:    "ADD",
	OpSUB:    "SUB",
	OpMUL:    "MUL",
	OpSDIV:   "SDIV",
	OpNEG:    "NEG",
	OpAND:    "AND",
	OpORR:    "ORR",
	OpEOR:    "EOR",
	OpMVN:    "MVN",
	OpMOV:    "MOV",
	OpLDR:    "LDR",
	OpSTR:    "STR",
	OpPUSH:   "PUSH",
	OpPOP:    "POP",
	OpPRINTR: "PRINTR",
	OpCMP:    "CMP",
	OpB:      "B",
	OpBX:     "BX",
	OpBL:     "BL",
	OpCBZ:    "CBZ",
	OpCBNZ:   "CBNZ",
	OpBEQ:    "BEQ",
	OpBNE:    "BNE",
	OpBLT:    "BLT",
	OpBLE:    "BLE",
	OpBGT:    "BGT",
	OpBGE:    "BGE",
	OpEXIT:   "EXIT",
}

var opcodesByMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, len(mnemonics))
	for op, name := range mnemonics {
		m[name] = op
	}
	return m
}()

// String returns the assembly mnemonic of the opcode.
func (o Opcode) String() string {
	name, ok := mnemonics[o]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
	return name
}

// OpcodeByMnemonic looks up an opcode by its (case-sensitive, upper-case)
// assembly mnemonic. The second return value reports whether the mnemonic
// is known.
func OpcodeByMnemonic(mnemonic string) (Opcode, bool) {
	op, ok := opcodesByMnemonic[mnemonic]
	return op, ok
}

// Register conventions. General-purpose registers r0..r30 are followed by
// the reserved registers at fixed indices. The loader publishes these
// indices; the architectural register file of any configuration must be
// at least RegCount entries.
const (
	// GeneralRegCount is the number of general-purpose registers (r0..r30).
	GeneralRegCount uint16 = 31

	// SP is the stack pointer register.
	SP = GeneralRegCount + iota - 1
	// LR is the link register.
	LR
	// PC is the program counter. An instruction with PC as a source or a
	// sink is a control instruction.
	PC
	// FP is the frame pointer register.
	FP
	// CPSR is the current program status register holding the condition
	// flags written by CMP.
	CPSR

	// RegCount is the total number of architectural registers, including
	// the reserved ones.
	RegCount
)

// Bit positions of the condition flags within the CPSR word.
const (
	OverflowFlag = 28
	CarryFlag    = 29
	ZeroFlag     = 30
	NegativeFlag = 31
)

// RegName returns the assembly name of an architectural register.
func RegName(reg uint16) string {
	switch reg {
	case SP:
		return "SP"
	case LR:
		return "LR"
	case PC:
		return "PC"
	case FP:
		return "FP"
	case CPSR:
		return "CPSR"
	default:
		return fmt.Sprintf("r%d", reg)
	}
}

// SourceLocation is the position of an instruction in the assembly source.
type SourceLocation struct {
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}
