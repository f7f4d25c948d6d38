// Package main provides the o3sim command: a cycle-accurate simulator of
// a superscalar out-of-order processor running assembly-text programs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/o3sim/emu"
	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/loader"
	"github.com/sarchlab/o3sim/timing/core"
	"github.com/sarchlab/o3sim/timing/latency"
)

var (
	timing      = flag.Bool("timing", false, "Enable cycle-accurate timing simulation")
	configPath  = flag.String("config", "", "Path to CPU configuration JSON file")
	latencyPath = flag.String("latency", "", "Path to instruction latency JSON file")
	trace       = flag.Bool("trace", false, "Trace every pipeline phase (implies -timing)")
	interactive = flag.Bool("i", false, "Run the interactive monitor (implies -timing)")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: o3sim [options] <program.asm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	programPath := flag.Arg(0)

	config := core.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = core.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading CPU config: %v\n", err)
			os.Exit(1)
		}
	}
	if *trace {
		config.Trace = core.TraceOptions{
			Decode:   true,
			Issue:    true,
			Dispatch: true,
			Execute:  true,
			Retire:   true,
		}
	}

	latencies := latency.NewTable()
	if *latencyPath != "" {
		timingConfig, err := latency.LoadConfig(*latencyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading latency config: %v\n", err)
			os.Exit(1)
		}
		latencies = latency.NewTableWithConfig(timingConfig)
	}

	program, err := loader.Load(programPath, loader.WithLatencyTable(latencies))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Instructions: %d\n", len(program.Code))
		fmt.Printf("Data items: %d\n", len(program.DataItems))
		fmt.Printf("Entry point: %d\n", program.EntryPoint)
	}

	switch {
	case *interactive:
		runMonitor(config, program)
	case *timing || *trace:
		runTiming(config, program)
	default:
		runEmulation(config, program)
	}
}

// runEmulation runs the program on the functional emulator.
func runEmulation(config *core.Config, program *insts.Program) {
	emulator := emu.NewEmulator(
		emu.WithMemorySize(config.MemorySize),
		emu.WithStackCapacity(int64(config.StackCapacity)),
	)
	emulator.LoadProgram(program)
	if err := emulator.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("\nInstructions executed: %d\n", emulator.InstructionCount())
	}
	printRegFile(emulator.RegFile())
}

// runTiming runs the program on the cycle-accurate CPU.
func runTiming(config *core.Config, program *insts.Program) {
	cpu := core.NewCPU(config)
	cpu.Run(program)

	stats := cpu.Stats()
	if *verbose {
		fmt.Printf("\nTotal Cycles: %d\n", stats.Cycles)
		fmt.Printf("Retired Instructions: %d\n", stats.Retired)
		fmt.Printf("IPC: %.2f\n", stats.IPC())
	}
	printRegFile(cpu.RegFile())
}

// printRegFile prints the final architectural register file state,
// skipping registers that are still zero.
func printRegFile(regFile *emu.RegFile) {
	fmt.Println("\nRegisters:")
	for reg := uint16(0); reg < regFile.Count(); reg++ {
		value := regFile.Value(reg)
		if value == 0 {
			continue
		}
		fmt.Printf("  %-4s = %d\n", insts.RegName(reg), value)
	}
}
