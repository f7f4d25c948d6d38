package backend

import (
	"fmt"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
)

// compute performs an instruction's effect once its execution unit
// finishes counting down. Results are appended to the reorder-buffer
// slot, one word per sink; control instructions additionally record the
// resolved next fetch address. By this point every register source has
// been replaced by its value.
func (b *Backend) compute(rs *RS, slot *ROBSlot, instr *insts.Instr) {
	switch rs.Opcode {
	case insts.OpNOP, insts.OpEXIT:

	case insts.OpADD:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()+rs.Source[1].Immediate())
	case insts.OpSUB:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()-rs.Source[1].Immediate())
	case insts.OpMUL:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()*rs.Source[1].Immediate())
	case insts.OpSDIV:
		divisor := rs.Source[1].Immediate()
		if divisor == 0 {
			panic(fmt.Sprintf("division by zero at [%s]", instr))
		}
		slot.Result = append(slot.Result, rs.Source[0].Immediate()/divisor)
	case insts.OpNEG:
		slot.Result = append(slot.Result, -rs.Source[0].Immediate())
	case insts.OpAND:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()&rs.Source[1].Immediate())
	case insts.OpORR:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()|rs.Source[1].Immediate())
	case insts.OpEOR:
		slot.Result = append(slot.Result,
			rs.Source[0].Immediate()^rs.Source[1].Immediate())
	case insts.OpMVN:
		slot.Result = append(slot.Result, ^rs.Source[0].Immediate())
	case insts.OpMOV:
		slot.Result = append(slot.Result, rs.Source[0].Immediate())

	case insts.OpLDR:
		// Loads read memory directly, bypassing the store buffer.
		slot.Result = append(slot.Result,
			b.memSubsystem.Memory.Read(b.loadAddr(rs.Source[0])))
	case insts.OpSTR:
		// The value is forwarded into the result; the memory sink stages
		// it into the store buffer.
		slot.Result = append(slot.Result, rs.Source[0].Immediate())

	case insts.OpPUSH:
		value := rs.Source[0].Immediate()
		sp := rs.Source[1].Immediate()
		if sp == int64(len(b.stack)) {
			panic(fmt.Sprintf("stack overflow at [%s]", instr))
		}
		b.stack[sp] = value
		slot.Result = append(slot.Result, sp+1)
	case insts.OpPOP:
		sp := rs.Source[0].Immediate() - 1
		slot.Result = append(slot.Result, b.stack[sp])
		slot.Result = append(slot.Result, sp)

	case insts.OpPRINTR:
		fmt.Fprintf(b.stdout, "PRINTR %s=%d\n",
			insts.RegName(instr.Source[0].Register()), rs.Source[0].Immediate())

	case insts.OpCMP:
		slot.Result = append(slot.Result, emu.CMPFlags(
			rs.Source[0].Immediate(),
			rs.Source[1].Immediate(),
			rs.Source[2].Immediate()))

	case insts.OpB:
		b.resolveBranch(slot, rs.Source[0].CodeAddr())
	case insts.OpBX:
		b.resolveBranch(slot, rs.Source[0].Immediate())
	case insts.OpBL:
		// LR receives the return address, then PC the call target.
		slot.Result = append(slot.Result, slot.PC+1)
		b.resolveBranch(slot, rs.Source[0].CodeAddr())
	case insts.OpCBZ:
		b.resolveCondBranch(slot, rs.Source[1].CodeAddr(),
			rs.Source[0].Immediate() == 0)
	case insts.OpCBNZ:
		b.resolveCondBranch(slot, rs.Source[1].CodeAddr(),
			rs.Source[0].Immediate() != 0)
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBLE, insts.OpBGT, insts.OpBGE:
		b.resolveCondBranch(slot, rs.Source[0].CodeAddr(),
			emu.CondHolds(rs.Opcode, rs.Source[1].Immediate()))

	default:
		panic(fmt.Sprintf("unhandled opcode %s", rs.Opcode))
	}
}

// resolveBranch records an unconditional control transfer: the target
// becomes both the PC sink's result and the committed next fetch address.
func (b *Backend) resolveBranch(slot *ROBSlot, target int64) {
	slot.Result = append(slot.Result, target)
	slot.BranchTarget = target
}

// resolveCondBranch records a conditional control transfer; fall-through
// is the next instruction index.
func (b *Backend) resolveCondBranch(slot *ROBSlot, target int64, taken bool) {
	if !taken {
		target = slot.PC + 1
	}
	slot.Result = append(slot.Result, target)
	slot.BranchTarget = target
}

// loadAddr resolves an LDR address operand: a direct data-item reference
// or a register value captured as an immediate at issue or over the CDB.
func (b *Backend) loadAddr(source insts.Operand) int64 {
	if source.Kind() == insts.KindMemory {
		return source.MemoryAddr()
	}
	return source.Immediate()
}
