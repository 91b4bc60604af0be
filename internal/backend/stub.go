package backend

import (
	"fmt"

	"github.com/xyproto/vasm/internal/atom"
)

// Insn is the opaque instruction record carried by an
// atom.InstructionPayload when the stub CPU is in use. A real front-end
// would produce a mnemonic-specific record; the stub supports just
// enough to exercise size convergence: a fixed-size "nop" and a
// variable-size "bra" with short/long forms exactly as specification
// §8 scenario 1 ("Forward branch shrink") requires.
type Insn struct {
	Mnemonic string
	Target   *atom.Symbol
}

const (
	braShortSize = 2 // opcode + signed 8-bit displacement
	braLongSize  = 5 // opcode + signed 32-bit displacement
	braShortMin  = -128
	braShortMax  = 127
)

// StubCPU is a minimal CPU backend good enough to drive the resolver
// and final assembler in tests without depending on any real
// instruction set. It is not a substitute for a real back-end: per
// specification §1, the CPU back-end is explicitly out of scope beyond
// its interface.
type StubCPU struct {
	opts []string
}

func NewStubCPU() *StubCPU { return &StubCPU{} }

func (s *StubCPU) Name() string { return "stub" }

func (s *StubCPU) Options(args []string) error {
	s.opts = append(s.opts, args...)
	return nil
}

func (s *StubCPU) insn(rec any) (*Insn, error) {
	in, ok := rec.(*Insn)
	if !ok {
		return nil, fmt.Errorf("stub CPU: unsupported instruction record %T", rec)
	}
	return in, nil
}

func (s *StubCPU) InstructionSize(rec any, sec *atom.Section, pc int64) (int, error) {
	in, err := s.insn(rec)
	if err != nil {
		return 0, err
	}
	switch in.Mnemonic {
	case "nop":
		return 1, nil
	case "bra":
		if sec.Flags.Has(atom.ResolveWarn) {
			// Oscillating: always pick the conservative (long) form to
			// break the cycle, as the resolve-warning hint intends.
			return braLongSize, nil
		}
		if in.Target == nil {
			return braLongSize, nil
		}
		disp := in.Target.PC - (pc + braShortSize)
		if disp >= braShortMin && disp <= braShortMax {
			return braShortSize, nil
		}
		return braLongSize, nil
	default:
		return 0, fmt.Errorf("stub CPU: unknown mnemonic %q", in.Mnemonic)
	}
}

func (s *StubCPU) EncodeInstruction(rec any, sec *atom.Section, pc int64) (*atom.DataPayload, error) {
	in, err := s.insn(rec)
	if err != nil {
		return nil, err
	}
	size, err := s.InstructionSize(rec, sec, pc)
	if err != nil {
		return nil, err
	}
	switch in.Mnemonic {
	case "nop":
		return &atom.DataPayload{Bytes: []byte{0x00}}, nil
	case "bra":
		buf := make([]byte, size)
		buf[0] = 0x60 // arbitrary "branch" opcode byte
		if in.Target != nil {
			disp := in.Target.PC - (pc + int64(size))
			if size == braShortSize {
				buf[1] = byte(int8(disp))
			} else {
				for i := 0; i < 4; i++ {
					buf[1+i] = byte(disp >> (8 * (3 - i)))
				}
			}
		}
		return &atom.DataPayload{Bytes: buf}, nil
	default:
		return nil, fmt.Errorf("stub CPU: unknown mnemonic %q", in.Mnemonic)
	}
}

// DefRecord is the opaque record for DATADEF atoms the stub data
// evaluator understands: a fixed list of bytes/words already reduced to
// constants by the front-end, plus an element width in bytes.
type DefRecord struct {
	Values []int64
	Width  int // 1, 2, 4, or 8
}

func (s *StubCPU) DataDefSize(rec any, sec *atom.Section, pc int64) (int, error) {
	d, ok := rec.(*DefRecord)
	if !ok {
		return 0, fmt.Errorf("stub CPU: unsupported data record %T", rec)
	}
	return len(d.Values) * d.Width, nil
}

func (s *StubCPU) EncodeDataDef(rec any, sec *atom.Section, pc int64) (*atom.DataPayload, error) {
	d, ok := rec.(*DefRecord)
	if !ok {
		return nil, fmt.Errorf("stub CPU: unsupported data record %T", rec)
	}
	buf := make([]byte, 0, len(d.Values)*d.Width)
	for _, v := range d.Values {
		for i := 0; i < d.Width; i++ {
			buf = append(buf, byte(v>>(8*i)))
		}
	}
	return &atom.DataPayload{Bytes: buf}, nil
}
