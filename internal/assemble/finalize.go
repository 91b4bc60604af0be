package assemble

import (
	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/diag"
)

// ConvertOffsetLabels performs specification §4.6's pre-final-pass step:
// every LABSYM bound to an UNALLOCATED section becomes an EXPRESSION
// holding its former PC as a constant, unbound from the section. Run
// before the final pass starts; RemoveUnallocatedSections runs after it
// completes.
func ConvertOffsetLabels(reg *atom.Registry) {
	for _, sym := range reg.Symbols() {
		if sym.Kind == atom.LABSYM && sym.Section != nil && sym.Section.Flags.Has(atom.Unallocated) {
			sym.Expr = atom.NewConstExpr(sym.PC)
			sym.Kind = atom.EXPRESSION
			sym.Section = nil
		}
	}
}

// FixLabels implements fix_labels (§4.5): resolves ABSLABEL-flagged
// labels to absolute expressions, and resolves non-constant EXPRESSION
// symbols to a base label when possible.
func FixLabels(reg *atom.Registry, d *diag.Diagnostics) {
	for _, sym := range reg.Symbols() {
		switch {
		case sym.Kind == atom.LABSYM && sym.Flags.Has(atom.AbsLabel):
			sym.Expr = atom.NewConstExpr(sym.PC)
			sym.Kind = atom.EXPRESSION
			sym.Section = nil

		case sym.Kind == atom.EXPRESSION && sym.Expr != nil:
			if _, ok := sym.Expr.Eval(nil, 0); ok {
				continue // already constant; nothing to resolve
			}
			base, offset, ok := sym.Expr.Base()
			if !ok || base == nil {
				d.General(53, sym.Name)
				continue
			}
			sym.Kind = base.Kind
			sym.Section = base.Section
			sym.PC = base.PC + offset
		}
	}
}

// UndefSyms implements undef_syms (§4.5): every IMPORT symbol is
// checked for being genuinely undefined (unless auto-import is enabled
// or it carries EXPORT/COMMON/WEAK) and for being unreferenced.
func UndefSyms(reg *atom.Registry, d *diag.Diagnostics, autoImport bool) {
	const importable = atom.Export | atom.Common | atom.Weak
	for _, sym := range reg.Symbols() {
		if sym.Kind != atom.IMPORT {
			continue
		}
		if !autoImport && !sym.Flags.Has(importable) {
			d.General(22, sym.Name)
		} else if !sym.Flags.Has(atom.Referenced) {
			d.General(61, sym.Name)
		}
	}
}
