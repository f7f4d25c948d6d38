// Package latency provides the per-opcode execution latency model used to
// stamp instructions at load time. Values can be overridden through a
// JSON TimingConfig.
package latency

import (
	"github.com/sarchlab/o3sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with the default timing values.
func NewTable() *Table {
	return &Table{config: DefaultTimingConfig()}
}

// NewTableWithConfig creates a latency table with a custom configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{config: config}
}

// Cycles returns the execution latency in cycles for the given opcode.
func (t *Table) Cycles(opcode insts.Opcode) uint8 {
	switch opcode {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpORR, insts.OpEOR,
		insts.OpNEG, insts.OpMVN, insts.OpMOV, insts.OpCMP:
		return t.config.ALULatency
	case insts.OpMUL:
		return t.config.MultiplyLatency
	case insts.OpSDIV:
		return t.config.DivideLatency
	case insts.OpLDR:
		return t.config.LoadLatency
	case insts.OpSTR:
		return t.config.StoreLatency
	case insts.OpB, insts.OpBX, insts.OpBL, insts.OpCBZ, insts.OpCBNZ,
		insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBLE, insts.OpBGT,
		insts.OpBGE:
		return t.config.BranchLatency
	case insts.OpPUSH, insts.OpPOP:
		return t.config.StackLatency
	default:
		return 1
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
