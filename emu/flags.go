package emu

import (
	"fmt"

	"github.com/sarchlab/o3sim/insts"
)

// CMPFlags computes rn - op2 and returns the CPSR value with the N, Z, C,
// and V flag bits set accordingly. The remaining bits of the incoming
// CPSR value are preserved.
func CMPFlags(rn, op2, cpsr int64) int64 {
	result := rn - op2

	set := func(value int64, bit uint, cond bool) int64 {
		if cond {
			return value | (1 << bit)
		}
		return value &^ (1 << bit)
	}

	cpsr = set(cpsr, insts.ZeroFlag, result == 0)
	cpsr = set(cpsr, insts.NegativeFlag, result < 0)
	// Carry is set when the unsigned subtraction does not borrow.
	cpsr = set(cpsr, insts.CarryFlag, uint64(rn) >= uint64(op2))
	// Overflow when the operands have different signs and the result's
	// sign differs from rn.
	cpsr = set(cpsr, insts.OverflowFlag, ((rn^op2)&(rn^result)) < 0)
	return cpsr
}

// CondHolds reports whether the condition of a conditional branch opcode
// holds for the given CPSR value.
func CondHolds(opcode insts.Opcode, cpsr int64) bool {
	z := cpsr&(1<<insts.ZeroFlag) != 0
	n := cpsr&(1<<insts.NegativeFlag) != 0
	v := cpsr&(1<<insts.OverflowFlag) != 0

	switch opcode {
	case insts.OpBEQ:
		return z
	case insts.OpBNE:
		return !z
	case insts.OpBLT:
		return n != v
	case insts.OpBLE:
		return z || n != v
	case insts.OpBGT:
		return !z && n == v
	case insts.OpBGE:
		return n == v
	default:
		panic(fmt.Sprintf("not a conditional branch opcode: %s", opcode))
	}
}
