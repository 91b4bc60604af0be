// Package debuginfo declares the narrow interface through which the
// final pass schedules DWARF line-table and stabs emission
// (specification §4.7). The core only decides *when* to call into a
// collector; the byte-level encoding of debug sections is an external
// collaborator's job, same as the CPU and output-writer back-ends in
// internal/backend and internal/objfmt.
package debuginfo

import "github.com/xyproto/vasm/internal/atom"

// Collector receives debug-info events from the final pass. A nil
// Collector is valid and means "debug info disabled": internal/assemble
// substitutes NopCollector for it, so DWARF/stabs support costs nothing
// when not requested.
type Collector interface {
	// Line records an INSTRUCTION atom's source position at the address
	// it was assembled to. internal/assemble passes the atom's own line,
	// with no #line-style adjustment.
	Line(srcIndex int, line int, sec *atom.Section, pc int64)

	// EndSequence closes the line-table run for one section.
	EndSequence(sec *atom.Section, pc int64)

	// NList emits a stabs record, resolved against its base symbol's
	// final section/PC.
	NList(rec any, sym *atom.Symbol)

	// Finish finalises the debug-info unit at the end of assembly.
	Finish() error
}

// NopCollector discards every event. It is the zero-cost default when
// -dwarf is not requested.
type NopCollector struct{}

func (NopCollector) Line(int, int, *atom.Section, int64) {}
func (NopCollector) EndSequence(*atom.Section, int64)    {}
func (NopCollector) NList(any, *atom.Symbol)             {}
func (NopCollector) Finish() error                       { return nil }
