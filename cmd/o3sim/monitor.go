package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/timing/core"
)

// runMonitor drives the timing CPU from an interactive prompt. The
// monitor single-steps cycles, so pipeline state can be inspected while
// instructions are in flight.
func runMonitor(config *core.Config, program *insts.Program) {
	cpu := core.NewCPU(config)
	cpu.Init(program)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("o3sim monitor; 'help' lists commands")
	for {
		input, err := line.Prompt("o3sim> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := command(cpu, input); quit {
			return
		}
	}
}

func command(cpu *core.CPU, input string) (quit bool) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "s", "step":
		n := argOrDefault(fields, 1, 1)
		for k := int64(0); k < n && !cpu.Exited(); k++ {
			cpu.Tick()
		}
		fmt.Printf("cycle %d\n", cpu.Stats().Cycles)
		if cpu.Exited() {
			fmt.Println("program exited")
		}

	case "r", "run":
		for !cpu.Exited() {
			cpu.Tick()
		}
		fmt.Printf("program exited after %d cycles\n", cpu.Stats().Cycles)

	case "regs":
		for reg := uint16(0); reg < cpu.RegFile().Count(); reg++ {
			value := cpu.RegFile().Value(reg)
			if value == 0 {
				continue
			}
			fmt.Printf("  %-4s = %d\n", insts.RegName(reg), value)
		}

	case "m", "mem":
		if len(fields) < 2 {
			fmt.Println("usage: mem <addr> [count]")
			break
		}
		addr, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Printf("bad address %q\n", fields[1])
			break
		}
		count := argOrDefault(fields, 2, 1)
		for k := int64(0); k < count; k++ {
			fmt.Printf("  [%d] = %d\n", addr+k, cpu.Memory().Read(addr+k))
		}

	case "stats":
		stats := cpu.Stats()
		fmt.Printf("cycles=%d decoded=%d issued=%d dispatched=%d executed=%d retired=%d ipc=%.2f\n",
			stats.Cycles, stats.Decoded, stats.Issued, stats.Dispatched,
			stats.Executed, stats.Retired, stats.IPC())

	case "h", "help":
		fmt.Println("  step [n]       advance n cycles (default 1)")
		fmt.Println("  run            advance until the program exits")
		fmt.Println("  regs           print non-zero architectural registers")
		fmt.Println("  mem <a> [n]    print n memory words from address a")
		fmt.Println("  stats          print performance counters")
		fmt.Println("  quit           leave the monitor")

	case "q", "quit", "exit":
		return true

	default:
		fmt.Printf("unknown command %q; 'help' lists commands\n", fields[0])
	}
	return false
}

func argOrDefault(fields []string, index int, fallback int64) int64 {
	if len(fields) <= index {
		return fallback
	}
	n, err := strconv.ParseInt(fields[index], 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
