// Package backend declares the narrow interface through which the
// core hands off CPU-specific work: measuring and encoding
// INSTRUCTION/DATADEF atoms, and applying CPU options mid-section
// (specification §1, "CPU back-end ... invoked through narrow
// interfaces"; §4.2 "Size oracle"; §4.4 "Final Assembler").
//
// Grounded on the split between CodeGenerator (backend.go) and the
// per-architecture implementations (arm64_backend.go, riscv64_backend.go)
// in the teacher: one interface, one constructor per architecture. The
// core ships a single concrete CPU (stubcpu) sufficient to exercise the
// resolver and final assembler; real encoders are an external
// collaborator's job.
package backend

import (
	"fmt"

	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/target"
)

// CPU is the interface a CPU back-end must implement. All methods are
// pure with respect to section/symbol state: Size/Encode may read
// sec.Flags (in particular ResolveWarn, which hints that the atom has
// oscillated and a conservative/maximal encoding should be chosen to
// break the cycle) but must never mutate the section or any symbol.
type CPU interface {
	Name() string

	// InstructionSize estimates the size in bytes of an INSTRUCTION
	// atom's opaque record at the given candidate PC.
	InstructionSize(rec any, sec *atom.Section, pc int64) (int, error)

	// EncodeInstruction produces the authoritative DATA payload for an
	// INSTRUCTION atom during the final pass. The returned size MUST
	// equal the most recently measured InstructionSize for this record
	// at this pc, or the resolver's fixed point was unsound.
	EncodeInstruction(rec any, sec *atom.Section, pc int64) (*atom.DataPayload, error)

	// Options applies CPU-specific options, either from the command
	// line at startup or from a mid-section OPTS atom.
	Options(args []string) error
}

// DataEvaluator sizes and encodes DATADEF atoms (the data-definition
// counterpart to CPU instructions: dc.b/dc.w-style directives whose
// element size is known but operand count may depend on an expression).
// Kept distinct from CPU per specification §4.4.6 ("the data
// evaluator"), though a backend is free to implement both.
type DataEvaluator interface {
	DataDefSize(rec any, sec *atom.Section, pc int64) (int, error)
	EncodeDataDef(rec any, sec *atom.Section, pc int64) (*atom.DataPayload, error)
}

// Constructor builds a CPU backend for a target architecture.
type Constructor func() (CPU, error)

var registry = map[target.Arch]Constructor{}

// Register adds a CPU backend constructor to the registry. Real
// back-ends (x86_64, ARM64, RISC-V, ...) call this from an init() in
// their own package; the core only ever depends on the CPU interface.
func Register(a target.Arch, ctor Constructor) { registry[a] = ctor }

// New builds the CPU backend registered for the given architecture.
func New(a target.Arch) (CPU, error) {
	ctor, ok := registry[a]
	if !ok {
		return nil, fmt.Errorf("no CPU backend registered for %s", a)
	}
	return ctor()
}

func init() {
	Register(target.ArchUnknown, func() (CPU, error) { return NewStubCPU(), nil })
}
