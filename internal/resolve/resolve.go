package resolve

import (
	"fmt"
	"io"

	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/diag"
)

// MaxPasses bounds how many times the resolver will re-walk a single
// section before giving up (diagnostic 7).
const MaxPasses = 1000

// FastOptPhase is the number of early passes during which every
// INSTRUCTION atom is re-measured freely. Passes beyond it enter "safe
// mode": at most one INSTRUCTION atom may change size per pass.
const FastOptPhase = 200

// Resolver is the fixed-point engine described in specification §4.3.
// It converges each section's label PCs and atom sizes independently,
// in declaration order, exactly mirroring resolve()/resolve_section()
// in the original.
type Resolver struct {
	Oracle *Oracle
	Diag   *diag.Diagnostics

	// Trace, when non-nil, receives the pass-by-pass debug lines from
	// §6 ("moving label ...", "modify size of atom ...",
	// "setting resolve-warning flag ...", "resolve_section(...) pass N").
	Trace io.Writer
}

func (r *Resolver) tracef(format string, args ...any) {
	if r.Trace != nil {
		fmt.Fprintf(r.Trace, format, args...)
	}
}

// Resolve runs ResolveSection over every section in declaration order,
// unconditionally — even a section that hit MaxPasses does not stop the
// run from attempting the rest, matching the original's resolve().
func (r *Resolver) Resolve(sections []*atom.Section) {
	for _, sec := range sections {
		r.ResolveSection(sec)
	}
}

// ResolveSection iterates one section to a fixed point (or MaxPasses).
func (r *Resolver) ResolveSection(sec *atom.Section) {
	fastphase := FastOptPhase
	pass := 0

	for {
		done := true
		rorg := false
		var rorgPC, orgPC int64

		pass++
		if pass >= MaxPasses {
			r.Diag.General(7, sec.Name)
			break
		}
		extrapass := pass <= fastphase
		if pass <= fastphase {
			r.tracef("resolve_section(%s) pass %d (fast)\n", sec.Name, pass)
		} else {
			r.tracef("resolve_section(%s) pass %d\n", sec.Name, pass)
		}

		sec.PC = sec.Org
		for a := sec.First; a != nil; a = a.Next() {
			sec.PC = PCAlign(a, sec.PC)

			switch a.Tag {
			case atom.OPTS:
				if op, ok := a.Payload.(atom.OptsPayload); ok && r.Oracle.CPU != nil {
					_ = r.Oracle.CPU.Options(op.Args)
				}
			case atom.RORG:
				if rorg {
					r.Diag.General(43)
				}
				// Matches the original's recovery: even a nested RORG
				// (diagnostic 43 above) still re-bases rorgPC/orgPC/PC
				// on the new target, rather than leaving the first
				// RORG's state in effect.
				p, _ := a.Payload.(atom.RorgPayload)
				rorgPC = p.Target
				orgPC = sec.PC
				sec.PC = rorgPC
				sec.Flags |= atom.Absolute
				rorg = true
			case atom.RORGEND:
				if rorg {
					sec.PC = orgPC + (sec.PC - rorgPC)
					sec.Flags &^= atom.Absolute
					rorg = false
				}
			case atom.LABEL:
				lp, _ := a.Payload.(atom.LabelPayload)
				if lp.Symbol != nil && lp.Symbol.PC != sec.PC {
					r.tracef("moving label %s from %d to %d\n", lp.Symbol.Name, lp.Symbol.PC, sec.PC)
					lp.Symbol.PC = sec.PC
					done = false
				}
			}

			if pass > fastphase && !done && a.Tag == atom.INSTRUCTION {
				// Entered safe mode: optimize only one instruction per pass.
				sec.PC += int64(a.LastSize)
				continue
			}

			var size int64
			var err error
			if a.Changes > MaxSizeChanges {
				r.tracef("setting resolve-warning flag for atom type %s at %d\n", a.Tag, sec.PC)
				sec.Flags |= atom.ResolveWarn
				size, err = r.Oracle.Size(a, sec, sec.PC)
				sec.Flags &^= atom.ResolveWarn
			} else {
				size, err = r.Oracle.Size(a, sec, sec.PC)
			}
			if err != nil {
				r.Diag.General(7, sec.Name) // surfaced as a section-local failure
				break
			}
			if size != int64(a.LastSize) {
				r.tracef("modify size of atom type %s at %d from %d to %d\n",
					a.Tag, sec.PC, a.LastSize, size)
				done = false
				if pass > fastphase {
					a.Changes++
				} else if size > int64(a.LastSize) {
					extrapass = false
				}
				a.LastSize = int(size)
			}
			sec.PC += size
		}

		if rorg {
			// Workaround for a missing RORGEND at section end.
			sec.PC = orgPC + (sec.PC - rorgPC)
			sec.Flags &^= atom.Absolute
		}
		if extrapass {
			fastphase++
		}
		if done || r.Diag.Errors > 0 {
			break
		}
	}
}
