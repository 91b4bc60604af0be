package atom

// Expr is the narrow interface the parse front-end's expression trees
// must satisfy. The core never builds, simplifies, or prints
// expressions — it only evaluates them against a candidate section and
// PC to size atoms, to compute ROFFS/ASSERT values, and to resolve
// equates to a base label during symbol finalisation.
type Expr interface {
	// Eval attempts to evaluate the expression at the given section and
	// PC. ok is false when the expression is not (yet) constant, e.g. it
	// references a symbol whose PC has not stabilized, or depends on the
	// section being assembled.
	Eval(sec *Section, pc int64) (value int64, ok bool)

	// Base reports the symbol this expression is offset from, when it
	// has the shape `base + constant`. It lets `fix_labels`-style equate
	// resolution turn `sym equ other+3` into a LABSYM offset from
	// `other` without the core understanding expression trees at all.
	Base() (sym *Symbol, offset int64, ok bool)
}

// ConstExpr is a trivial Expr wrapping an already-known constant,
// mirroring number_expr(pc) in the original — used whenever the core
// itself needs to hand a front-end-shaped value back into the symbol
// table (absolute labels, offset-section conversion).
type ConstExpr struct{ Value int64 }

func NewConstExpr(v int64) *ConstExpr { return &ConstExpr{Value: v} }

func (c *ConstExpr) Eval(_ *Section, _ int64) (int64, bool) { return c.Value, true }

func (c *ConstExpr) Base() (*Symbol, int64, bool) { return nil, 0, false }
