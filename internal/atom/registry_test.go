package atom

import "testing"

func TestNewSectionDedupByName(t *testing.T) {
	r := NewRegistry()
	a := r.NewSection("text", "acrx", 1)
	b := r.NewSection("text", "acrx", 1)
	if a != b {
		t.Fatalf("NewSection should return the existing section for a repeated name")
	}
	if len(r.Sections()) != 1 {
		t.Fatalf("expected 1 section, got %d", len(r.Sections()))
	}
}

func TestNewSectionDedupByNameAttr(t *testing.T) {
	r := NewRegistry()
	r.SecNameAttr = true
	a := r.NewSection("data", "arw", 1)
	b := r.NewSection("data", "u", 1)
	if a == b {
		t.Fatalf("distinct attrs under SecNameAttr mode should yield distinct sections")
	}
	if len(r.Sections()) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(r.Sections()))
	}
}

func TestUnnamedSectionsCollapsesNames(t *testing.T) {
	r := NewRegistry()
	r.UnnamedSections = true
	a := r.NewSection("text", "acrx", 1)
	b := r.NewSection("data", "acrw", 1)
	if a != b {
		t.Fatalf("UnnamedSections should collapse every name to the same section")
	}
}

func TestDefaultSectionLazyMaterialises(t *testing.T) {
	r := NewRegistry()
	if r.DefaultSection() != nil {
		t.Fatalf("DefaultSection with no name configured should stay nil")
	}
	r.DefaultSectionName = "text"
	r.DefaultSectionAttr = "acrx"
	s := r.DefaultSection()
	if s == nil || s.Name != "text" {
		t.Fatalf("DefaultSection should lazily create the declared default section")
	}
	if r.DefaultSection() != s {
		t.Fatalf("DefaultSection should return the same section once switched to")
	}
}

func TestNewOrgMintsAbsoluteSection(t *testing.T) {
	r := NewRegistry()
	s := r.NewOrg(0x1000)
	if s.Org != 0x1000 || s.PC != 0x1000 {
		t.Fatalf("NewOrg should set Org and PC to the requested address")
	}
	if !s.Flags.Has(Absolute) {
		t.Fatalf("NewOrg should mark the section absolute")
	}
}

func TestSwitchOffsetSectionUniqueNames(t *testing.T) {
	r := NewRegistry()
	a := r.SwitchOffsetSection("", 0, true)
	b := r.SwitchOffsetSection("", 0, true)
	if a.Name == b.Name {
		t.Fatalf("anonymous offset sections should get unique names: both named %q", a.Name)
	}
	if !a.Flags.Has(Unallocated) || !b.Flags.Has(Unallocated) {
		t.Fatalf("offset sections must carry the Unallocated flag")
	}
}

func TestRorgUnmatchedEndErrorsAndPrevAbsRestore(t *testing.T) {
	r := NewRegistry()
	r.DefaultSectionName = "text"
	r.DefaultSectionAttr = "acrx"
	s := r.DefaultSection()
	r.SetSection(s)

	if err := r.StartRorg(0x8000); err != nil {
		t.Fatalf("StartRorg: %v", err)
	}
	if !s.Flags.Has(Absolute) {
		t.Fatalf("section should be absolute inside a RORG block")
	}
	if err := r.EndRorg(); err != nil {
		t.Fatalf("EndRorg: %v", err)
	}
	if s.Flags.Has(Absolute) {
		t.Fatalf("section should not stay absolute after EndRorg when it was not before RORG")
	}
	if s.Flags.Has(InRorg) {
		t.Fatalf("InRorg should be cleared after EndRorg")
	}
	if err := r.EndRorg(); err == nil {
		t.Fatalf("EndRorg without a matching RORG should error")
	}
}

func TestTryEndRorgIdempotent(t *testing.T) {
	r := NewRegistry()
	r.DefaultSectionName = "text"
	s := r.DefaultSection()
	r.SetSection(s)
	r.TryEndRorg() // no active RORG: must be a silent no-op
	if s.Flags.Has(InRorg) {
		t.Fatalf("TryEndRorg should not set InRorg")
	}
}

func TestRemoveUnallocatedSections(t *testing.T) {
	r := NewRegistry()
	keep := r.NewSection("text", "acrx", 1)
	drop := r.SwitchOffsetSection("scratch", 0, true)
	r.SetSection(drop)

	r.RemoveUnallocatedSections()

	secs := r.Sections()
	if len(secs) != 1 || secs[0] != keep {
		t.Fatalf("RemoveUnallocatedSections should leave only the allocated section")
	}
	if r.CurrentSection() != nil {
		t.Fatalf("current section pointer should be cleared when it was the removed one")
	}
}

func TestSymbolTableInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.NewSymbol("b", LABSYM)
	r.NewSymbol("a", LABSYM)
	r.NewSymbol("b", IMPORT) // repeated name returns the existing symbol

	syms := r.Symbols()
	if len(syms) != 2 {
		t.Fatalf("expected 2 distinct symbols, got %d", len(syms))
	}
	if syms[0].Name != "b" || syms[1].Name != "a" {
		t.Fatalf("Symbols() should preserve creation order, got %v, %v", syms[0].Name, syms[1].Name)
	}
	if syms[0].Kind != LABSYM {
		t.Fatalf("repeated NewSymbol call must not overwrite the existing symbol's kind")
	}
}
