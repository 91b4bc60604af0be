package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xyproto/vasm/internal/atom"
)

// baseExpr is `symbol [+|- constant]`, the one shape fix_labels (§4.5)
// and ROFFS/ASSERT targets in the demo syntax need: a reference to
// another symbol, optionally offset by a literal.
type baseExpr struct {
	reg    *atom.Registry
	name   string
	offset int64
}

func (e *baseExpr) Eval(sec *atom.Section, pc int64) (int64, bool) {
	sym := e.reg.FindSymbol(e.name)
	if sym == nil {
		return 0, false
	}
	switch sym.Kind {
	case atom.LABSYM:
		// A label bound to a relocatable section is not a constant —
		// only a label in an absolute section (ORG-style) already
		// carries its final numeric address. Returning false here for
		// the relocatable case is what lets FixLabels fall through to
		// Base() and reclassify the equate as a LABSYM offset from the
		// base, instead of wrongly treating it as already resolved.
		if sym.Section != nil && sym.Section.Flags.Has(atom.Absolute) {
			return sym.PC + e.offset, true
		}
		return 0, false
	case atom.EXPRESSION:
		if sym.Expr == nil {
			return 0, false
		}
		v, ok := sym.Expr.Eval(sec, pc)
		if !ok {
			return 0, false
		}
		return v + e.offset, true
	default:
		return 0, false
	}
}

func (e *baseExpr) Base() (*atom.Symbol, int64, bool) {
	sym := e.reg.FindSymbol(e.name)
	if sym == nil {
		return nil, 0, false
	}
	return sym, e.offset, true
}

// parseExpr parses the small expression grammar the demo syntax
// front-end accepts: a signed integer literal (decimal or 0x-prefixed
// hex), a bare symbol name, or `symbol+N` / `symbol-N`.
func parseExpr(s string, reg *atom.Registry) (atom.Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if v, err := parseInt(s); err == nil {
		return atom.NewConstExpr(v), nil
	}
	for _, sep := range []string{"+", "-"} {
		if idx := strings.Index(s, sep); idx > 0 {
			name := strings.TrimSpace(s[:idx])
			rest := strings.TrimSpace(s[idx+1:])
			off, err := parseInt(rest)
			if err != nil {
				continue
			}
			if sep == "-" {
				off = -off
			}
			if isIdent(name) {
				return &baseExpr{reg: reg, name: name, offset: off}, nil
			}
		}
	}
	if isIdent(s) {
		return &baseExpr{reg: reg, name: s, offset: 0}, nil
	}
	return nil, fmt.Errorf("cannot parse expression %q", s)
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
