// Package asmcontext threads the process-wide state of one assembly
// run — the section/symbol registry, the diagnostics sink, CLI-derived
// options, include-path and dependency tracking, and end-of-run
// reporting — through a single explicit object, per specification §9
// ("Process-wide state ... package them into one explicit context
// object that is threaded through every call; avoid globals").
//
// Grounded on the shape of the teacher's CompilerState
// (compiler_state.go): one struct holding configuration, the active
// registry/pipeline, and the current phase, constructed once per run
// and passed by reference rather than read from package-level globals.
package asmcontext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/diag"
)

// Options carries the CLI-derived configuration contractual per
// specification §6. Field names mirror the flags; cmd/vasm is the only
// package that parses argv into this struct.
type Options struct {
	OutputPath string
	Format     string

	ListingPath    string
	ListingEnabled bool
	ListNoFF       bool
	ListNoSym      bool
	ListLinesPage  int

	UnnamedSections bool
	IgnoreMultInc   bool
	NoCase          bool
	NoSym           bool
	PIC             bool
	UnsShift        bool
	ChkLabels       bool
	NoIAlign        bool
	Esc             bool
	AutoImport      bool // automatic import of undefined symbols; -x turns it off

	NoWarn        map[int]bool
	FailOnWarning bool
	Quiet         bool
	Debug         bool
	MaxErrors     int
	MaxMacroRecurs int

	DWARF        bool
	DWARFVersion int

	DependMode string // "", "list", "make"
	DependAll  bool
	DepFile    string

	Defines map[string]string // -D<name>[=<expr>]
}

// Phase tracks where in the pipeline a run currently is, mirroring the
// teacher's CompilationPhase — useful for diagnostics and for guarding
// calls that only make sense in one phase (e.g. PrintStatistics after
// assembly).
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseResolving
	PhaseAssembling
	PhaseDone
)

// Context is the assembly run's process-wide state.
type Context struct {
	Options Options
	Reg     *atom.Registry
	Diag    *diag.Diagnostics
	Phase   Phase

	includePaths []string
	deps         []string
	depSeen      map[string]bool

	outputOpened bool
	defaultFmt   string
}

// New creates a Context bound to a fresh registry and the given
// diagnostics sink.
func New(d *diag.Diagnostics) *Context {
	return &Context{
		Reg:        atom.NewRegistry(),
		Diag:       d,
		depSeen:    make(map[string]bool),
		defaultFmt: "bin",
	}
}

// SetDefaultFormat records a default output format name, returned by
// DefaultFormat (vasm.c's set_default_output_format seam). cmd/vasm
// neither calls it nor consults DefaultFormat: without -F it uses
// VASM_FORMAT, or "bin" when that is unset.
func (c *Context) SetDefaultFormat(name string) { c.defaultFmt = name }

// DefaultFormat returns the active default output format name.
func (c *Context) DefaultFormat() string { return c.defaultFmt }

// AddIncludePath appends path to the include search list, de-duplicated
// by cleaned path exactly as new_include_path compares ipath->path.
func (c *Context) AddIncludePath(path string) {
	clean := filepath.Clean(path)
	for _, p := range c.includePaths {
		if p == clean {
			return
		}
	}
	c.includePaths = append(c.includePaths, clean)
}

// IncludePaths returns the include search list in append order.
func (c *Context) IncludePaths() []string {
	out := make([]string, len(c.includePaths))
	copy(out, c.includePaths)
	return out
}

// RecordDependency notes that path contributed to the assembly (a
// front-end calls this once per file it reads), de-duplicated.
func (c *Context) RecordDependency(path string) {
	if c.depSeen[path] {
		return
	}
	c.depSeen[path] = true
	c.deps = append(c.deps, path)
}

// WriteDependencies renders the dependency list in the -depend=list|make
// format (§6). outName is the make-rule target (the output path).
func (c *Context) WriteDependencies(w io.Writer, outName string) error {
	switch c.Options.DependMode {
	case "list":
		for _, p := range c.deps {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
	case "make":
		fmt.Fprintf(w, "%s:", outName)
		for _, p := range c.deps {
			fmt.Fprintf(w, " %s", quoteIfNeeded(p))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// quoteIfNeeded double-quotes a dependency path containing
// non-graphical characters, per §6's "make" format rule.
func quoteIfNeeded(p string) string {
	for _, r := range p {
		if r <= ' ' || r == 0x7f {
			return `"` + p + `"`
		}
	}
	return p
}

// PrintStatistics prints an end-of-run per-section byte-count summary
// (vasm.c's statistics(); cmd/vasm prints it after a successful run
// unless -quiet is given, and again in the -debug dump): "name(attr<N>):
// <size> bytes" for each section still in the registry.
func (c *Context) PrintStatistics(w io.Writer) {
	for _, sec := range c.Reg.Sections() {
		size := sec.PC - sec.Org
		fmt.Fprintf(w, "%s(%s<%d>): %d bytes\n", sec.Name, sec.Attr, sec.Align, size)
	}
}

// MarkOutputOpened records that the output file at path now exists, so
// Abort knows to remove it.
func (c *Context) MarkOutputOpened() { c.outputOpened = true }

// Abort implements the leave()-style cleanup (§7: "On non-zero exit,
// the output file is removed if it was opened"). Safe to call
// unconditionally from a deferred cleanup; it is a no-op when no
// output was opened or the run did not fail.
func (c *Context) Abort() error {
	if !c.outputOpened || !c.Diag.Failed() {
		return nil
	}
	if c.Options.OutputPath == "" {
		return nil
	}
	if err := os.Remove(c.Options.OutputPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DumpSymbols writes a human-readable symbol table listing, sorted by
// name, used by -debug.
func (c *Context) DumpSymbols(w io.Writer) {
	names := c.Reg.SortedSymbolNames()
	sort.Strings(names)
	for _, n := range names {
		sym := c.Reg.FindSymbol(n)
		sec := "-"
		if sym.Section != nil {
			sec = sym.Section.Name
		}
		fmt.Fprintf(w, "%-32s %-10s sec=%-12s pc=%#x flags=%#x\n",
			sym.Name, sym.Kind, sec, sym.PC, uint32(sym.Flags))
	}
}

// ExitCode maps the diagnostics outcome to a process exit status.
func (c *Context) ExitCode() int {
	if c.Diag.Failed() {
		return 1
	}
	return 0
}

// NormalizeDefine fills in the -D<name>[=<expr>] argument's value half,
// defaulting to "1" as the CLI table in §6 specifies.
func NormalizeDefine(expr string) string {
	if strings.TrimSpace(expr) == "" {
		return "1"
	}
	return expr
}
