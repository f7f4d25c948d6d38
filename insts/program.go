package insts

// Data is a named data item with a preassigned word offset in memory.
type Data struct {
	Value  int64
	Offset int64
}

// Program is a fully loaded and validated program: the code vector, the
// named data items, and the entry point (an instruction index). Programs
// are immutable after load.
type Program struct {
	Code       []*Instr
	DataItems  map[string]*Data
	EntryPoint int64
}

// Instr returns the instruction at the given code index.
func (p *Program) Instr(pos int64) *Instr {
	return p.Code[pos]
}
