package resolve

import (
	"testing"

	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/backend"
	"github.com/xyproto/vasm/internal/diag"
)

func newReg() *atom.Registry {
	r := atom.NewRegistry()
	r.DefaultSectionName = "text"
	r.DefaultSectionAttr = "acrx"
	return r
}

// TestForwardBranchShrink is specification §8 scenario 1: a forward
// branch to a nearby label must converge to the short encoding.
func TestForwardBranchShrink(t *testing.T) {
	reg := newReg()
	sec := reg.DefaultSection()
	reg.SetSection(sec)

	start := reg.NewSymbol("start", atom.LABSYM)
	start.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: start}, "t", 1))

	end := reg.NewSymbol("end", atom.LABSYM)
	braTarget := end
	sec.AddAtom(atom.NewAtom(atom.INSTRUCTION, atom.InstructionPayload{Record: &backend.Insn{Mnemonic: "bra", Target: braTarget}}, "t", 2))
	for i := 0; i < 3; i++ {
		sec.AddAtom(atom.NewAtom(atom.INSTRUCTION, atom.InstructionPayload{Record: &backend.Insn{Mnemonic: "nop"}}, "t", 3+i))
	}
	end.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: end}, "t", 6))

	d := diag.New(nil)
	r := &Resolver{Oracle: &Oracle{CPU: backend.NewStubCPU()}, Diag: d}
	r.ResolveSection(sec)

	if d.Errors != 0 {
		t.Fatalf("unexpected resolver errors: %d", d.Errors)
	}
	if start.PC != 0 {
		t.Fatalf("start.PC = %d, want 0", start.PC)
	}
	// bra (short form, 2 bytes) + 3 nops (1 byte each) = 5.
	if end.PC != 5 {
		t.Fatalf("end.PC = %d, want 5 (short branch should have converged)", end.PC)
	}
	bra := sec.First.Next()
	if bra.LastSize != 2 {
		t.Fatalf("bra.LastSize = %d, want 2 (short form)", bra.LastSize)
	}

	// Re-running one more pass must be a no-op (property 2: convergence).
	beforePC := end.PC
	beforeSize := bra.LastSize
	r.ResolveSection(sec)
	if end.PC != beforePC || bra.LastSize != beforeSize {
		t.Fatalf("resolver did not stay at fixed point on rerun")
	}
}

// TestManyForwardBranchesConverge: a run of branches that all target
// one label after them must converge within MaxPasses without a
// too-many-passes error.
func TestManyForwardBranchesConverge(t *testing.T) {
	reg := newReg()
	sec := reg.DefaultSection()
	reg.SetSection(sec)

	far := reg.NewSymbol("far", atom.LABSYM)
	// Every branch's size depends on where "far" lands, which in turn
	// depends on the sizes of all the branches before it. With 40
	// branches every displacement stays within the short range.
	for i := 0; i < 40; i++ {
		sec.AddAtom(atom.NewAtom(atom.INSTRUCTION, atom.InstructionPayload{Record: &backend.Insn{Mnemonic: "bra", Target: far}}, "t", i))
	}
	far.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: far}, "t", 41))

	d := diag.New(nil)
	r := &Resolver{Oracle: &Oracle{CPU: backend.NewStubCPU()}, Diag: d}
	r.ResolveSection(sec)

	if d.Errors != 0 {
		t.Fatalf("resolver should converge without a too-many-passes error, got %d errors", d.Errors)
	}
}

// TestRorgRoundTrip is specification §8 scenario 3.
func TestRorgRoundTrip(t *testing.T) {
	reg := newReg()
	sec := reg.NewOrg(0x1000)
	reg.SetSection(sec)

	a := reg.NewSymbol("a", atom.LABSYM)
	a.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: a}, "t", 1))
	sec.AddAtom(atom.NewAtom(atom.DATA, atom.DataPayload{Bytes: []byte{0}}, "t", 2))

	if err := reg.StartRorg(0x8000); err != nil {
		t.Fatalf("StartRorg: %v", err)
	}
	b := reg.NewSymbol("b", atom.LABSYM)
	b.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: b}, "t", 3))
	sec.AddAtom(atom.NewAtom(atom.DATA, atom.DataPayload{Bytes: []byte{0}}, "t", 4))
	if err := reg.EndRorg(); err != nil {
		t.Fatalf("EndRorg: %v", err)
	}

	c := reg.NewSymbol("c", atom.LABSYM)
	c.Section = sec
	sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: c}, "t", 5))
	sec.AddAtom(atom.NewAtom(atom.DATA, atom.DataPayload{Bytes: []byte{0}}, "t", 6))

	d := diag.New(nil)
	r := &Resolver{Oracle: &Oracle{CPU: backend.NewStubCPU()}, Diag: d}
	r.ResolveSection(sec)

	if a.PC != 0x1000 {
		t.Errorf("a.PC = %#x, want 0x1000", a.PC)
	}
	if b.PC != 0x8000 {
		t.Errorf("b.PC = %#x, want 0x8000", b.PC)
	}
	if c.PC != 0x1002 {
		t.Errorf("c.PC = %#x, want 0x1002", c.PC)
	}
	if sec.PC != 0x1003 {
		t.Errorf("sec.PC = %#x, want 0x1003", sec.PC)
	}
}

func TestPCAlign(t *testing.T) {
	a := &atom.Atom{Align: 4}
	if got := PCAlign(a, 1); got != 4 {
		t.Fatalf("PCAlign(1, align 4) = %d, want 4", got)
	}
	if got := PCAlign(a, 8); got != 8 {
		t.Fatalf("PCAlign(8, align 4) = %d, want 8 (already aligned)", got)
	}
	none := &atom.Atom{Align: 0}
	if got := PCAlign(none, 3); got != 3 {
		t.Fatalf("PCAlign with no alignment requirement should be a no-op, got %d", got)
	}
}
