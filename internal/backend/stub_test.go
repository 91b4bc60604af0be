package backend

import (
	"testing"

	"github.com/xyproto/vasm/internal/atom"
)

func TestNopSizeAndEncode(t *testing.T) {
	s := NewStubCPU()
	sec := &atom.Section{}
	in := &Insn{Mnemonic: "nop"}

	n, err := s.InstructionSize(in, sec, 0)
	if err != nil || n != 1 {
		t.Fatalf("InstructionSize(nop) = %d,%v want 1,nil", n, err)
	}
	data, err := s.EncodeInstruction(in, sec, 0)
	if err != nil || len(data.Bytes) != 1 {
		t.Fatalf("EncodeInstruction(nop) = %v,%v", data, err)
	}
}

func TestBraShortVsLong(t *testing.T) {
	s := NewStubCPU()
	sec := &atom.Section{}
	target := &atom.Symbol{PC: 10}
	in := &Insn{Mnemonic: "bra", Target: target}

	n, err := s.InstructionSize(in, sec, 0)
	if err != nil || n != braShortSize {
		t.Fatalf("nearby branch should pick the short form, got %d,%v", n, err)
	}

	target.PC = 10000
	n, err = s.InstructionSize(in, sec, 0)
	if err != nil || n != braLongSize {
		t.Fatalf("distant branch should pick the long form, got %d,%v", n, err)
	}
}

func TestResolveWarnForcesLongForm(t *testing.T) {
	s := NewStubCPU()
	sec := &atom.Section{}
	sec.Flags |= atom.ResolveWarn
	target := &atom.Symbol{PC: 1} // well within short range
	in := &Insn{Mnemonic: "bra", Target: target}

	n, err := s.InstructionSize(in, sec, 0)
	if err != nil || n != braLongSize {
		t.Fatalf("ResolveWarn should force the conservative long form, got %d,%v", n, err)
	}
}

func TestUnknownMnemonicErrors(t *testing.T) {
	s := NewStubCPU()
	sec := &atom.Section{}
	if _, err := s.InstructionSize(&Insn{Mnemonic: "xyz"}, sec, 0); err == nil {
		t.Fatalf("unknown mnemonic should error")
	}
}

func TestDataDefSizeAndEncode(t *testing.T) {
	s := NewStubCPU()
	sec := &atom.Section{}
	rec := &DefRecord{Values: []int64{1, 2, 3}, Width: 2}

	n, err := s.DataDefSize(rec, sec, 0)
	if err != nil || n != 6 {
		t.Fatalf("DataDefSize = %d,%v want 6,nil", n, err)
	}
	data, err := s.EncodeDataDef(rec, sec, 0)
	if err != nil || len(data.Bytes) != 6 {
		t.Fatalf("EncodeDataDef produced %d bytes, want 6", len(data.Bytes))
	}
}

func TestOptionsAccumulate(t *testing.T) {
	s := NewStubCPU()
	_ = s.Options([]string{"-foo"})
	_ = s.Options([]string{"-bar"})
	if len(s.opts) != 2 {
		t.Fatalf("Options should accumulate across calls, got %v", s.opts)
	}
}
