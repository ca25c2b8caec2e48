package bytecode

import (
	"github.com/dekarrin/rezi"
)

// wireProgram is the debug/dump encoding of a Program: the instruction
// stream and immediates round-trip exactly, but the variable table does
// not — provider addresses are only meaningful within the process that
// registered them, so a decoded Program carries no bound providers and is
// meant for disassembly/inspection, not re-execution. Grounded on
// server/dao/sqlite's use of rezi.EncBinary/DecBinary for persisting
// structured blobs (sqlite.go:153, sessions.go:71).
type wireProgram struct {
	Instructions []Instr
	Immediates   []float64
}

// MarshalBinary encodes the program's instruction stream and immediates
// for debugging/dumping (see wireProgram's doc comment). The variable
// table is deliberately omitted: its entries are live provider addresses
// that have no meaning outside this process.
func (p *Program) MarshalBinary() ([]byte, error) {
	w := wireProgram{Instructions: p.instructions, Immediates: p.immediates}
	return rezi.EncBinary(w), nil
}

// UnmarshalBinary decodes a dump produced by MarshalBinary. The result has
// no bound providers and no pre-computed peak depth, so it supports
// Disassemble but not Run — see wireProgram's doc comment.
func (p *Program) UnmarshalBinary(data []byte) error {
	var w wireProgram
	if _, err := rezi.DecBinary(data, &w); err != nil {
		return err
	}
	p.instructions = w.Instructions
	p.immediates = w.Immediates
	p.variables = nil
	p.peakDepth = 0
	return nil
}
