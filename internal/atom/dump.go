package atom

import (
	"fmt"
	"io"
)

// Dump writes a human-readable per-atom listing of the section to w,
// in the style of the original's print_section(): one "<pc>: <atom>"
// line per atom, using the caller-supplied size/align function so this
// works identically before and after resolution.
//
// sizeOf and alignTo are supplied by the resolver package (pcalign /
// atom_size close over CPU backend state the atom package itself must
// not depend on).
func (s *Section) Dump(w io.Writer, alignTo func(a *Atom, pc int64) int64, sizeOf func(a *Atom, sec *Section, pc int64) int64) {
	fmt.Fprintf(w, "section %s (attr=<%s> align=%d):\n", s.Name, s.Attr, s.Align)
	pc := s.Org
	for a := s.First; a != nil; a = a.Next() {
		pc = alignTo(a, pc)
		fmt.Fprintf(w, "%8x: %s\n", pc, describeAtom(a))
		pc += sizeOf(a, s, pc)
	}
}

func describeAtom(a *Atom) string {
	switch p := a.Payload.(type) {
	case LabelPayload:
		name := "?"
		if p.Symbol != nil {
			name = p.Symbol.Name
		}
		return fmt.Sprintf("LABEL %s", name)
	case DataPayload:
		return fmt.Sprintf("DATA %d byte(s)", len(p.Bytes))
	case SpacePayload:
		return fmt.Sprintf("SPACE %d byte(s) fill=0x%02x", p.Size, p.Fill)
	case RorgPayload:
		return fmt.Sprintf("RORG 0x%x", p.Target)
	case RorgEndPayload:
		return "RORGEND"
	case PrintTextPayload:
		return fmt.Sprintf("PRINTTEXT %q", p.Text)
	case AssertPayload:
		return fmt.Sprintf("ASSERT %q", p.MsgStr)
	default:
		return a.Tag.String()
	}
}
