// Package loader parses assembly-text programs into validated Programs.
//
// The accepted dialect has a .data section of named .dword items, a .text
// section of instructions and labels, and an optional .global directive
// naming the entry point:
//
//	.data
//	    var_a: .dword 5
//	.text
//	    MOV r0, =var_a
//	    LDR r0, r0
//	    EXIT
//
// Labels resolve to instruction indices; the program counter of the
// simulated machine is an instruction index, not a byte offset. Data
// items are assigned consecutive word offsets from address 0 in
// declaration order.
package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/o3sim/insts"
	"github.com/sarchlab/o3sim/timing/latency"
)

// Option is a functional option for configuring the loader.
type Option func(*loader)

// WithLatencyTable sets the latency table used to stamp instruction
// execution cycles. The default table is used otherwise.
func WithLatencyTable(table *latency.Table) Option {
	return func(l *loader) {
		l.latencies = table
	}
}

// Load reads and parses an assembly file.
func Load(path string, opts ...Option) (*insts.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program %q: %w", path, err)
	}
	program, err := LoadString(string(src), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", path, err)
	}
	return program, nil
}

// LoadString parses assembly source into a Program.
func LoadString(src string, opts ...Option) (*insts.Program, error) {
	l := &loader{
		latencies: latency.NewTable(),
		labels:    map[string]int64{},
		dataItems: map[string]*insts.Data{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l.load(src)
}

type section uint8

const (
	sectionNone section = iota
	sectionData
	sectionText
)

// pendingInstr is a .text line whose operands are resolved in the second
// pass, once every label and data item is known.
type pendingInstr struct {
	mnemonic string
	operands []string
	loc      insts.SourceLocation
}

type loader struct {
	latencies *latency.Table

	labels     map[string]int64
	dataItems  map[string]*insts.Data
	pending    []pendingInstr
	entryLabel string
	nextOffset int64
}

func (l *loader) load(src string) (*insts.Program, error) {
	if err := l.scan(src); err != nil {
		return nil, err
	}

	code := make([]*insts.Instr, 0, len(l.pending))
	for _, p := range l.pending {
		instr, err := l.assemble(p)
		if err != nil {
			return nil, err
		}
		code = append(code, instr)
	}

	entryPoint := int64(0)
	if l.entryLabel != "" {
		pos, ok := l.labels[l.entryLabel]
		if !ok {
			return nil, fmt.Errorf("entry point label %q is not defined", l.entryLabel)
		}
		entryPoint = pos
	}

	return &insts.Program{
		Code:       code,
		DataItems:  l.dataItems,
		EntryPoint: entryPoint,
	}, nil
}

// scan is the first pass: it records sections, labels, data items, and
// the raw instruction lines.
func (l *loader) scan(src string) error {
	current := sectionNone

	for lineNo, raw := range strings.Split(src, "\n") {
		line := raw
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		loc := insts.SourceLocation{
			Line:   lineNo + 1,
			Column: strings.Index(raw, trimmed) + 1,
		}

		switch {
		case trimmed == ".data":
			current = sectionData
		case trimmed == ".text":
			current = sectionText
		case strings.HasPrefix(trimmed, ".global"):
			l.entryLabel = strings.TrimSpace(strings.TrimPrefix(trimmed, ".global"))
			if l.entryLabel == "" {
				return fmt.Errorf("%s: .global expects a label", loc)
			}
		default:
			var err error
			switch current {
			case sectionData:
				err = l.scanDataLine(trimmed, loc)
			case sectionText:
				err = l.scanTextLine(trimmed, loc)
			default:
				err = fmt.Errorf("%s: statement outside of a section: %q", loc, trimmed)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *loader) scanDataLine(line string, loc insts.SourceLocation) error {
	name, rest, found := strings.Cut(line, ":")
	if !found {
		return fmt.Errorf("%s: malformed data item: %q", loc, line)
	}
	name = strings.TrimSpace(name)

	fields := strings.Fields(rest)
	if len(fields) != 2 || fields[0] != ".dword" {
		return fmt.Errorf("%s: data item %q expects '.dword <value>'", loc, name)
	}
	value, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%s: bad data value %q: %w", loc, fields[1], err)
	}

	if _, exists := l.dataItems[name]; exists {
		return fmt.Errorf("%s: duplicate data item %q", loc, name)
	}
	l.dataItems[name] = &insts.Data{Value: value, Offset: l.nextOffset}
	l.nextOffset++
	return nil
}

func (l *loader) scanTextLine(line string, loc insts.SourceLocation) error {
	// A line may carry a label, an instruction, or both.
	if name, rest, found := strings.Cut(line, ":"); found && !strings.Contains(name, " ") {
		name = strings.TrimSpace(name)
		if _, exists := l.labels[name]; exists {
			return fmt.Errorf("%s: duplicate label %q", loc, name)
		}
		l.labels[name] = int64(len(l.pending))

		line = strings.TrimSpace(rest)
		if line == "" {
			return nil
		}
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	p := pendingInstr{
		mnemonic: strings.ToUpper(mnemonic),
		loc:      loc,
	}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, op := range strings.Split(rest, ",") {
			p.operands = append(p.operands, strings.TrimSpace(op))
		}
	}
	l.pending = append(l.pending, p)
	return nil
}

// assemble is the second pass: operand resolution and instruction
// construction.
func (l *loader) assemble(p pendingInstr) (*insts.Instr, error) {
	opcode, ok := insts.OpcodeByMnemonic(p.mnemonic)
	if !ok {
		return nil, fmt.Errorf("%s: unknown mnemonic %q", p.loc, p.mnemonic)
	}

	operands := make([]insts.Operand, 0, len(p.operands))
	for _, token := range p.operands {
		operand, err := l.parseOperand(token, p.loc)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}

	loc := p.loc
	instr, err := insts.New(opcode, operands, &loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.loc, err)
	}
	instr.Cycles = l.latencies.Cycles(opcode)
	return instr, nil
}

func (l *loader) parseOperand(token string, loc insts.SourceLocation) (insts.Operand, error) {
	switch {
	case token == "":
		return insts.Unused, fmt.Errorf("%s: empty operand", loc)

	case token[0] == '#':
		value, err := strconv.ParseInt(token[1:], 10, 64)
		if err != nil {
			return insts.Unused, fmt.Errorf("%s: bad immediate %q: %w", loc, token, err)
		}
		return insts.NewImmediate(value), nil

	case token[0] == '=':
		data, ok := l.dataItems[token[1:]]
		if !ok {
			return insts.Unused, fmt.Errorf("%s: unknown data item %q", loc, token[1:])
		}
		return insts.NewImmediate(data.Offset), nil
	}

	if reg, ok := parseRegister(token); ok {
		return insts.NewRegister(reg), nil
	}
	if pos, ok := l.labels[token]; ok {
		return insts.NewCode(pos), nil
	}
	if data, ok := l.dataItems[token]; ok {
		return insts.NewMemory(data.Offset), nil
	}
	return insts.Unused, fmt.Errorf("%s: unknown operand %q", loc, token)
}

func parseRegister(token string) (uint16, bool) {
	switch strings.ToUpper(token) {
	case "SP":
		return insts.SP, true
	case "LR":
		return insts.LR, true
	case "PC":
		return insts.PC, true
	case "FP":
		return insts.FP, true
	case "CPSR":
		return insts.CPSR, true
	}

	if len(token) < 2 || (token[0] != 'r' && token[0] != 'R') {
		return 0, false
	}
	n, err := strconv.ParseUint(token[1:], 10, 16)
	if err != nil || uint16(n) >= insts.GeneralRegCount {
		return 0, false
	}
	return uint16(n), true
}
