package atom

// Flag holds boolean section state. Bits mirror the specification's
// {ABSOLUTE, UNALLOCATED, IN_RORG, PREVABS, RESOLVE_WARN} set exactly.
type Flag uint32

const (
	Absolute Flag = 1 << iota
	Unallocated
	InRorg
	PrevAbs
	ResolveWarn
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// MaxPadBytes bounds the length of a section's pad-byte pattern (the
// bytes repeated when an atom is aligned and the gap must be filled).
const MaxPadBytes = 8

// Section is an ordered sequence of Atoms with address and alignment
// metadata (specification §3 "Section").
type Section struct {
	Name  string
	Attr  string // short tag string; 'u' marks BSS-style uninitialised
	Align int    // power of two, minimum alignment for the section head

	Org int64 // starting address
	PC  int64 // running address, scratch during passes

	Flags   Flag
	MemAttr int

	Pad      [MaxPadBytes]byte
	PadBytes int // number of valid bytes in Pad; 1 means "repeat Pad[0]"

	Index int // sequential index, assigned at listing time

	First, Last *Atom
	next        *Section // section-list link, registry-private
}

// IsBSS reports whether this section's attr marks it as uninitialised
// storage (the 'u' tag), used by the "no initialised data in BSS" rule.
func (s *Section) IsBSS() bool {
	for i := 0; i < len(s.Attr); i++ {
		if s.Attr[i] == 'u' {
			return true
		}
	}
	return false
}

// key expresses the section identity rule for deduplication: name
// alone, or (name, attr) when attrMode is set. FindSection (and so
// NewSection) applies the same rule by comparing Name/Attr directly.
type key struct {
	name, attr string
}

func (s *Section) key(attrMode bool) key {
	if attrMode {
		return key{s.Name, s.Attr}
	}
	return key{s.Name, ""}
}

// AddAtom appends an atom to the end of the section's list, maintaining
// First/Last in O(1), mirroring the original's forward singly-linked
// list append in new_section()/callers of add_atom().
func (s *Section) AddAtom(a *Atom) {
	if s.Last != nil {
		s.Last.next = a
	} else {
		s.First = a
	}
	s.Last = a
}

// Atoms returns the section's atoms in list order. It is provided for
// callers that want a slice (tests, listings); the resolver and final
// assembler walk the linked list directly for allocation-free passes.
func (s *Section) Atoms() []*Atom {
	var out []*Atom
	for a := s.First; a != nil; a = a.Next() {
		out = append(out, a)
	}
	return out
}
