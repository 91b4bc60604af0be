// Package diag implements the assembler's numbered-diagnostic reporter.
// Diagnostics are identified by a stable integer code (matching the
// taxonomy in the specification) and are handed to an external Reporter
// for rendering; this package only classifies, counts and gates them.
//
// Fatal-counting is process-global by design: a single Diagnostics
// value is threaded through every package that can raise an error, the
// same way compiler_state.go threads one CompilationPipeline through a
// compile run.
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reported event.
type Diagnostic struct {
	Code     int
	Severity Severity
	Message  string
	Source   string // file, when known; "" if unavailable
	Line     int
}

// Reporter renders diagnostics. Rendering (colors, source snippets,
// sorting) is explicitly out of scope for the core; it only needs
// something that can receive a Diagnostic.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a plain function to a Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// table maps a diagnostic code to its severity and a fmt-style message
// template, taken verbatim from the specification's taxonomy (§7).
var table = map[int]struct {
	sev Severity
	msg string
}{
	7:  {Error, "resolver did not converge after too many passes in section %s"},
	10: {Error, "initialization of %s failed"},
	11: {Error, "only one input file allowed"},
	12: {Error, "cannot open %s"},
	13: {Error, "cannot read %s"},
	14: {Error, "unknown option %s"},
	15: {Error, "no input file specified"},
	16: {Error, "unknown output format %q"},
	19: {Error, "%s"},
	20: {Error, "rorg lower than current pc"},
	22: {Error, "undefined symbol %s"},
	23: {Error, "trailing garbage after -%c option"},
	28: {Error, "only one %s option allowed"},
	29: {Error, "read error on %s"},
	30: {Error, "expression must be constant"},
	31: {Error, "initialized data in bss section %s"},
	38: {Error, "illegal relocation"},
	43: {Error, "reloc org already set"},
	44: {Error, "rorgend without matching rorg"},
	45: {Error, "address space overflow in section %s"},
	47: {Error, "assertion failed: %s%s"},
	50: {Warning, "instruction has been auto-aligned"},
	53: {Error, "non-relocatable expression in equate %s"},
	54: {Warning, "initialized data in offset section %s"},
	57: {Warning, "data has been auto-aligned"},
	61: {Warning, "unreferenced import %s"},
}

// Diagnostics counts and gates errors/warnings for one assembly run.
type Diagnostics struct {
	Reporter      Reporter
	MaxErrors     int  // 0 disables the limit
	NoWarn        bool // -w: suppress all warnings
	FailOnWarning bool // -wfail: warnings count toward nonzero exit
	disabled      map[int]bool

	Errors   int
	Warnings int
}

// New creates a Diagnostics bound to the given reporter.
func New(r Reporter) *Diagnostics {
	return &Diagnostics{Reporter: r, disabled: make(map[int]bool)}
}

// Disable suppresses a specific warning code (-nowarn=<n>).
func (d *Diagnostics) Disable(code int) {
	if d.disabled == nil {
		d.disabled = make(map[int]bool)
	}
	d.disabled[code] = true
}

// ErrTooManyErrors is returned by General once MaxErrors is reached, so
// callers (the resolver, the final pass) can abort the current section
// or run rather than spinning forever on a broken input.
type ErrTooManyErrors struct{ Count int }

func (e *ErrTooManyErrors) Error() string {
	return fmt.Sprintf("too many errors (%d), aborting", e.Count)
}

// General reports diagnostic `code`, formatting Message with args exactly
// like general_error(id, ...) in the original. It returns ErrTooManyErrors
// for every error from the one that brings the count to the configured
// MaxErrors onwards (MaxErrors == 0 means unlimited).
func (d *Diagnostics) General(code int, args ...any) error {
	ent, ok := table[code]
	if !ok {
		panic(fmt.Sprintf("diag: unknown diagnostic code %d", code))
	}
	sev := ent.sev
	if sev == Warning {
		if d.NoWarn || d.disabled[code] {
			return nil
		}
		d.Warnings++
	} else {
		d.Errors++
	}
	if d.Reporter != nil {
		d.Reporter.Report(Diagnostic{
			Code:     code,
			Severity: sev,
			Message:  fmt.Sprintf(ent.msg, args...),
		})
	}
	if sev == Error && d.MaxErrors > 0 && d.Errors >= d.MaxErrors {
		return &ErrTooManyErrors{Count: d.Errors}
	}
	return nil
}

// Failed reports whether the run should exit non-zero: any error, or
// any warning when FailOnWarning is set.
func (d *Diagnostics) Failed() bool {
	return d.Errors > 0 || (d.Warnings > 0 && d.FailOnWarning)
}
