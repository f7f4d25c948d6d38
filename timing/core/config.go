package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/o3sim/insts"
)

// TraceOptions selects which simulation phases print a trace line per
// processed instruction, plus a per-cycle counter summary.
type TraceOptions struct {
	Decode   bool `json:"decode"`
	Issue    bool `json:"issue"`
	Dispatch bool `json:"dispatch"`
	Execute  bool `json:"execute"`
	Retire   bool `json:"retire"`
	Cycle    bool `json:"cycle"`
}

// Config sizes every structure of the simulated CPU. All integer fields
// must be greater than zero.
type Config struct {
	// ArchRegCount is the number of architectural registers, including
	// the reserved SP, LR, PC, FP, and CPSR.
	ArchRegCount uint16 `json:"arch_reg_count"`

	// PhysRegCount is the number of physical (renamed) registers.
	PhysRegCount uint16 `json:"phys_reg_count"`

	// FrontendNWide is the number of instructions the frontend can fetch
	// per cycle.
	FrontendNWide uint8 `json:"frontend_n_wide"`

	// InstrQueueCapacity is the size of the queue between the frontend
	// and the backend.
	InstrQueueCapacity uint16 `json:"instr_queue_capacity"`

	// FrequencyHz is the simulated clock frequency.
	FrequencyHz uint64 `json:"frequency_hz"`

	// RSCount is the number of reservation stations.
	RSCount uint16 `json:"rs_count"`

	// MemorySize is the size of data memory in machine words.
	MemorySize int64 `json:"memory_size"`

	// SBCapacity is the store buffer capacity.
	SBCapacity uint16 `json:"sb_capacity"`

	// LFBCount limits how many stores can commit to memory per cycle.
	LFBCount uint8 `json:"lfb_count"`

	// ROBCapacity is the reorder buffer capacity.
	ROBCapacity uint16 `json:"rob_capacity"`

	// EUCount is the number of execution units.
	EUCount uint8 `json:"eu_count"`

	// RetireNWide is the number of instructions that can retire per cycle.
	RetireNWide uint8 `json:"retire_n_wide"`

	// DispatchNWide is the number of instructions that can be sent to
	// execution units per cycle.
	DispatchNWide uint8 `json:"dispatch_n_wide"`

	// IssueNWide is the number of instructions that can enter the reorder
	// buffer, and the reservation stations, per cycle.
	IssueNWide uint8 `json:"issue_n_wide"`

	// StackCapacity is the size of the call stack in words.
	StackCapacity uint32 `json:"stack_capacity"`

	// Trace selects per-phase trace output.
	Trace TraceOptions `json:"trace"`
}

// DefaultConfig returns a Config with moderate out-of-order resources.
func DefaultConfig() *Config {
	return &Config{
		ArchRegCount:       insts.RegCount,
		PhysRegCount:       64,
		FrontendNWide:      4,
		InstrQueueCapacity: 16,
		FrequencyHz:        1_000_000,
		RSCount:            16,
		MemorySize:         1024,
		SBCapacity:         16,
		LFBCount:           4,
		ROBCapacity:        32,
		EUCount:            8,
		RetireNWide:        4,
		DispatchNWide:      4,
		IssueNWide:         4,
		StackCapacity:      128,
	}
}

// LoadConfig loads a Config from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CPU config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse CPU config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize CPU config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CPU config file: %w", err)
	}
	return nil
}

// Validate checks that every structural parameter is usable.
func (c *Config) Validate() error {
	if c.ArchRegCount < insts.RegCount {
		return fmt.Errorf("arch_reg_count must be at least %d to cover the reserved registers",
			insts.RegCount)
	}
	if c.PhysRegCount == 0 {
		return fmt.Errorf("phys_reg_count must be > 0")
	}
	if c.FrontendNWide == 0 {
		return fmt.Errorf("frontend_n_wide must be > 0")
	}
	if c.InstrQueueCapacity == 0 {
		return fmt.Errorf("instr_queue_capacity must be > 0")
	}
	if c.FrequencyHz == 0 {
		return fmt.Errorf("frequency_hz must be > 0")
	}
	if c.RSCount == 0 {
		return fmt.Errorf("rs_count must be > 0")
	}
	if c.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.SBCapacity == 0 {
		return fmt.Errorf("sb_capacity must be > 0")
	}
	if c.LFBCount == 0 {
		return fmt.Errorf("lfb_count must be > 0")
	}
	if c.ROBCapacity == 0 {
		return fmt.Errorf("rob_capacity must be > 0")
	}
	if c.EUCount == 0 {
		return fmt.Errorf("eu_count must be > 0")
	}
	if c.RetireNWide == 0 {
		return fmt.Errorf("retire_n_wide must be > 0")
	}
	if c.DispatchNWide == 0 {
		return fmt.Errorf("dispatch_n_wide must be > 0")
	}
	if c.IssueNWide == 0 {
		return fmt.Errorf("issue_n_wide must be > 0")
	}
	if c.StackCapacity == 0 {
		return fmt.Errorf("stack_capacity must be > 0")
	}
	return nil
}
