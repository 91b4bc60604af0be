package atom

import (
	"fmt"
	"sort"
)

// Registry owns the process-wide section list, the current-section
// pointer, and the flat symbol table (specification §9, "process-wide
// state ... package them into one explicit context object"). It is the
// home of §4.1's section/atom registry operations.
type Registry struct {
	firstSection, lastSection *Section
	current                   *Section

	// UnnamedSections, when true, collapses every section's Name to ""
	// before lookup/creation (-unnamed-sections).
	UnnamedSections bool
	// SecNameAttr, when true, makes (name, attr) the dedup identity
	// instead of name alone.
	SecNameAttr bool

	// DefaultSectionName/Attr are supplied by the syntax front-end; they
	// let DefaultSection() lazily materialise a section the first time
	// code is emitted with nothing switched to yet.
	DefaultSectionName string
	DefaultSectionAttr string

	symbols    map[string]*Symbol
	symOrder   []string // insertion order, for deterministic iteration
	offsetSeq  uint64   // counter for anonymous OFFSET sections
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{symbols: make(map[string]*Symbol)}
}

// Sections returns the section list in declaration order.
func (r *Registry) Sections() []*Section {
	var out []*Section
	for s := r.firstSection; s != nil; s = s.next {
		out = append(out, s)
	}
	return out
}

// CurrentSection returns the section most recently switched to, or nil.
func (r *Registry) CurrentSection() *Section { return r.current }

func (r *Registry) normalizeName(name string) string {
	if r.UnnamedSections {
		return ""
	}
	return name
}

// FindSection looks up a section by its dedup identity (name, or
// (name,attr) under SecNameAttr mode).
func (r *Registry) FindSection(name, attr string) *Section {
	name = r.normalizeName(name)
	for s := r.firstSection; s != nil; s = s.next {
		if r.SecNameAttr {
			if s.Name == name && s.Attr == attr {
				return s
			}
		} else if s.Name == name {
			return s
		}
	}
	return nil
}

func (r *Registry) appendSection(s *Section) {
	if r.lastSection != nil {
		r.lastSection.next = s
	} else {
		r.firstSection = s
	}
	r.lastSection = s
}

// NewSection returns the existing section matching (name, attr) under
// the active dedup mode, or appends and returns a freshly created one.
func (r *Registry) NewSection(name, attr string, align int) *Section {
	name = r.normalizeName(name)
	if s := r.FindSection(name, attr); s != nil {
		return s
	}
	s := &Section{Name: name, Attr: attr, Align: align, PadBytes: 1}
	r.appendSection(s)
	return s
}

// SetSection makes s the current section (set_section in the original).
func (r *Registry) SetSection(s *Section) { r.current = s }

// SwitchSection switches the current section to the one matching
// (name, attr), returning an error if it does not exist.
func (r *Registry) SwitchSection(name, attr string) error {
	s := r.FindSection(name, attr)
	if s == nil {
		return fmt.Errorf("unknown section %q", name)
	}
	r.SetSection(s)
	return nil
}

// DefaultSection returns the current section, or lazily creates and
// switches to the front-end-declared default section when none is
// active yet.
func (r *Registry) DefaultSection() *Section {
	if r.current != nil {
		return r.current
	}
	if r.DefaultSectionName == "" {
		return nil
	}
	s := r.NewSection(r.DefaultSectionName, r.DefaultSectionAttr, 1)
	r.SetSection(s)
	return s
}

// NewOrg mints a synthetic absolute section named from the address's
// hex representation (e.g. "seg1000") and switches the running PC to
// addr, mirroring new_org()'s "dummy code section for each ORG
// directive".
func (r *Registry) NewOrg(addr int64) *Section {
	name := fmt.Sprintf("seg%x", uint64(addr))
	s := r.NewSection(name, "acrwx", 1)
	s.Org, s.PC = addr, addr
	s.Flags |= Absolute
	return s
}

// SwitchOffsetSection allocates (or reuses) an UNALLOCATED section for
// OFFSET-style directives. When name is empty, the anonymous name
// OFFSET<n> is used; n advances only when hasOffs is true, so a call
// without an offset continues the most recent anonymous offset section.
// When hasOffs is true, the section's origin is (re)set to offs.
func (r *Registry) SwitchOffsetSection(name string, offs int64, hasOffs bool) *Section {
	if name == "" {
		if hasOffs {
			r.offsetSeq++
		}
		name = fmt.Sprintf("OFFSET%06d", r.offsetSeq)
	}
	s := r.NewSection(name, "u", 1)
	s.Flags |= Unallocated
	if hasOffs {
		s.Org, s.PC = offs, offs
	}
	r.SetSection(s)
	return s
}

// StartRorg begins a relocated-origin region on the current (or
// default) section: appends a RORG atom, marks IN_RORG, and flips the
// section absolute, remembering prior absoluteness in PREVABS so
// EndRorg can restore it.
func (r *Registry) StartRorg(addr int64) error {
	s := r.DefaultSection()
	if s == nil {
		return fmt.Errorf("no current section for rorg")
	}
	if s.Flags.Has(InRorg) {
		if err := r.EndRorg(); err != nil {
			return err
		}
	}
	s.AddAtom(NewAtom(RORG, RorgPayload{Target: addr}, "", 0))
	s.Flags |= InRorg
	if s.Flags.Has(Absolute) {
		s.Flags |= PrevAbs
	} else {
		s.Flags &^= PrevAbs
		s.Flags |= Absolute
	}
	return nil
}

// EndRorg closes an active relocated-origin region.
func (r *Registry) EndRorg() error {
	s := r.DefaultSection()
	if s == nil {
		return fmt.Errorf("no current section for rorgend")
	}
	if !s.Flags.Has(InRorg) {
		return fmt.Errorf("rorgend without matching rorg")
	}
	s.AddAtom(NewAtom(RORGEND, RorgEndPayload{}, "", 0))
	if s.Flags.Has(PrevAbs) {
		s.Flags |= Absolute
	} else {
		s.Flags &^= Absolute
	}
	s.Flags &^= InRorg
	return nil
}

// TryEndRorg ends an active relocated-origin region if one is open; it
// is a silent no-op otherwise (idempotent).
func (r *Registry) TryEndRorg() {
	if s := r.current; s != nil && s.Flags.Has(InRorg) {
		_ = r.EndRorg()
	}
}

// --- Symbol table ------------------------------------------------------

// NewSymbol creates and registers a new symbol, or returns the existing
// one if name is already known.
func (r *Registry) NewSymbol(name string, kind Kind) *Symbol {
	if s, ok := r.symbols[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Kind: kind}
	r.symbols[name] = s
	r.symOrder = append(r.symOrder, name)
	return s
}

// FindSymbol looks up a symbol by name, returning nil if unknown.
func (r *Registry) FindSymbol(name string) *Symbol { return r.symbols[name] }

// Symbols returns every known symbol in creation order.
func (r *Registry) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(r.symOrder))
	for _, n := range r.symOrder {
		out = append(out, r.symbols[n])
	}
	return out
}

// SortedSymbolNames returns symbol names in lexical order, for
// deterministic listing/debug-dump output.
func (r *Registry) SortedSymbolNames() []string {
	names := make([]string, len(r.symOrder))
	copy(names, r.symOrder)
	sort.Strings(names)
	return names
}

// RemoveUnallocatedSections unlinks every UNALLOCATED section from the
// list (specification §4.6, run after the final pass completes).
func (r *Registry) RemoveUnallocatedSections() {
	var newFirst, newLast *Section
	for s := r.firstSection; s != nil; {
		next := s.next
		s.next = nil
		if !s.Flags.Has(Unallocated) {
			if newLast != nil {
				newLast.next = s
			} else {
				newFirst = s
			}
			newLast = s
		}
		s = next
	}
	r.firstSection, r.lastSection = newFirst, newLast
	if r.current != nil && r.current.Flags.Has(Unallocated) {
		r.current = nil
	}
}
