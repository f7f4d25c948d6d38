package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execution latency values, in cycles, per instruction
// class.
type TimingConfig struct {
	// ALULatency is the latency for basic ALU operations
	// (ADD, SUB, AND, ORR, EOR, NEG, MVN, MOV). Default: 1 cycle.
	ALULatency uint8 `json:"alu_latency"`

	// MultiplyLatency is the latency for integer multiply. Default: 3.
	MultiplyLatency uint8 `json:"multiply_latency"`

	// DivideLatency is the latency for signed integer divide. Default: 10.
	DivideLatency uint8 `json:"divide_latency"`

	// LoadLatency is the latency for LDR. Default: 4 cycles.
	LoadLatency uint8 `json:"load_latency"`

	// StoreLatency is the latency for STR (fire-and-forget into the store
	// buffer). Default: 1 cycle.
	StoreLatency uint8 `json:"store_latency"`

	// BranchLatency is the latency for control instructions. Default: 1.
	BranchLatency uint8 `json:"branch_latency"`

	// StackLatency is the latency for PUSH and POP. Default: 1.
	StackLatency uint8 `json:"stack_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		MultiplyLatency: 3,
		DivideLatency:   10,
		LoadLatency:     4,
		StoreLatency:    1,
		BranchLatency:   1,
		StackLatency:    1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}
	return nil
}

// Validate checks that all latency values are > 0.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatency == 0 {
		return fmt.Errorf("divide_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.StackLatency == 0 {
		return fmt.Errorf("stack_latency must be > 0")
	}
	return nil
}
