package frontend

import (
	"strings"
	"testing"

	"github.com/xyproto/vasm/internal/assemble"
	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/diag"
)

func TestParseLabelsSectionsAndData(t *testing.T) {
	src := `
; a comment line
section data
x: dc.b 1,2,3
y: ds.w 2
`
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader(src), "t.s", reg); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	x := reg.FindSymbol("x")
	y := reg.FindSymbol("y")
	if x == nil || y == nil {
		t.Fatalf("labels x/y were not registered")
	}
	sec := reg.FindSection("data", "")
	if sec == nil {
		t.Fatalf("section data was not created")
	}

	var tags []atom.Tag
	for a := sec.First; a != nil; a = a.Next() {
		tags = append(tags, a.Tag)
	}
	want := []atom.Tag{atom.LABEL, atom.DATADEF, atom.LABEL, atom.SPACE}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags[%d] = %v, want %v", i, tags[i], want[i])
		}
	}
}

func TestParseEquateBindsExpression(t *testing.T) {
	src := "sym: equ 0x10\n"
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader(src), "t.s", reg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sym := reg.FindSymbol("sym")
	if sym == nil || sym.Kind != atom.EXPRESSION {
		t.Fatalf("sym should be an EXPRESSION symbol, got %+v", sym)
	}
	v, ok := sym.Expr.Eval(nil, 0)
	if !ok || v != 0x10 {
		t.Fatalf("sym value = %d,%v want 16,true", v, ok)
	}
}

// TestParseEquateByBase is specification §8 scenario 6, expressed as
// source text: `sym equ other+3` where other is a LABSYM.
func TestParseEquateByBase(t *testing.T) {
	src := "other: dc.b 0\nsym: equ other+3\n"
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader(src), "t.s", reg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sym := reg.FindSymbol("sym")
	if sym == nil || sym.Kind != atom.EXPRESSION {
		t.Fatalf("sym should be an EXPRESSION symbol, got %+v", sym)
	}
	base, offset, ok := sym.Expr.Base()
	if !ok || base == nil || base.Name != "other" || offset != 3 {
		t.Fatalf("sym.Expr.Base() = %v,%d,%v want other,3,true", base, offset, ok)
	}
}

// TestParseEquateByBaseFixLabels is the full specification §8 scenario 6:
// `other` is a LABSYM bound to a relocatable section, so
// `sym equ other+3` must survive FixLabels as a LABSYM of its own,
// offset from other's section, rather than being mistaken for an
// already-constant expression.
func TestParseEquateByBaseFixLabels(t *testing.T) {
	src := "other: dc.b 0\nsym: equ other+3\n"
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader(src), "t.s", reg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	other := reg.FindSymbol("other")
	if other == nil {
		t.Fatalf("other was not registered")
	}
	other.PC = 0x100

	d := diag.New(nil)
	assemble.FixLabels(reg, d)

	sym := reg.FindSymbol("sym")
	if sym == nil {
		t.Fatalf("sym was not registered")
	}
	if sym.Kind != atom.LABSYM {
		t.Fatalf("sym.Kind = %v, want LABSYM", sym.Kind)
	}
	if sym.Section != other.Section {
		t.Fatalf("sym.Section = %v, want other's section", sym.Section)
	}
	if sym.PC != 0x103 {
		t.Fatalf("sym.PC = %#x, want 0x103", sym.PC)
	}
}

func TestParseRorgRoundTrip(t *testing.T) {
	src := `
org 0x1000
a: dc.b 0
rorg 0x8000
b: dc.b 0
rorgend
`
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader(src), "t.s", reg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sec := reg.CurrentSection()
	if sec == nil {
		t.Fatalf("org should switch to a current section")
	}
	var sawRorg, sawRorgEnd bool
	for a := sec.First; a != nil; a = a.Next() {
		switch a.Tag {
		case atom.RORG:
			sawRorg = true
		case atom.RORGEND:
			sawRorgEnd = true
		}
	}
	if !sawRorg || !sawRorgEnd {
		t.Fatalf("expected both a RORG and a RORGEND atom in the section")
	}
}

func TestParseUnrecognisedDirectiveErrors(t *testing.T) {
	reg := atom.NewRegistry()
	if err := Parse(strings.NewReader("bogus_directive 1\n"), "t.s", reg); err == nil {
		t.Fatalf("an unrecognised directive should error")
	}
}
