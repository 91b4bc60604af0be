// Command vasm is the CLI front-end for the assembler core: it scans
// os.Args the way the original vasm.c main() does (a first pass that
// strips -F<fmt>/-quiet/-debug, then a second pass dispatching every
// remaining flag), wires the parsed internal/frontend source into the
// resolver and final assembler, and writes the result through the
// internal/objfmt registry.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/xyproto/vasm/internal/asmcontext"
	"github.com/xyproto/vasm/internal/assemble"
	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/backend"
	"github.com/xyproto/vasm/internal/diag"
	"github.com/xyproto/vasm/internal/frontend"
	"github.com/xyproto/vasm/internal/objfmt"
	"github.com/xyproto/vasm/internal/resolve"
	"github.com/xyproto/vasm/internal/target"
	"github.com/xyproto/vasm/internal/watch"
)

const copyright = "vasm retargetable assembler core"

// verbose gates the startup banner and the section statistics printed
// after a successful run (-quiet clears it, -debug sets it), mirroring
// the teacher's package-level VerboseMode switch. The -debug trace and
// dumps are gated by Options.Debug instead.
var verbose = true

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	outputFormat := ""
	debugMode := false

	// First pass: -F<fmt>, -quiet and -debug are consumed before
	// anything else runs, exactly like the original's opening loop.
	rest := make([]string, 0, len(args))
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-F") && len(a) > 2:
			outputFormat = a[2:]
		case a == "-quiet":
			verbose = false
		case a == "-debug":
			debugMode = true
			verbose = true
		default:
			rest = append(rest, a)
		}
	}

	if outputFormat == "" {
		outputFormat = env.Str("VASM_FORMAT", "bin")
	}

	reporter := &stderrReporter{w: stderr, prog: "vasm"}
	d := diag.New(reporter)
	d.MaxErrors = env.Int("VASM_MAXERRORS", 0)

	ctx := asmcontext.New(d)
	ctx.Options.Debug = debugMode
	ctx.Options.AutoImport = true // vasm.c: auto_import defaults to 1
	ctx.Options.Defines = make(map[string]string)
	ctx.Options.MaxErrors = d.MaxErrors
	if nowarn := env.Int("VASM_NOWARN", -1); nowarn >= 0 {
		d.Disable(nowarn)
	}

	if verbose {
		fmt.Fprintln(stdout, copyright)
	}

	var (
		inname, outname, listname, depfile string
		watchMode                          bool
		dependAll                          bool
	)

	i := 0
	for i < len(rest) {
		a := rest[i]
		next := func() (string, bool) {
			if i+1 < len(rest) {
				i++
				return rest[i], true
			}
			return "", false
		}

		switch {
		case a == "":
			// an empty argument is ignored

		case !strings.HasPrefix(a, "-"):
			if inname != "" {
				d.General(11)
			} else {
				inname = a
			}

		case a == "-o":
			if v, ok := next(); ok {
				if outname != "" {
					d.General(28, "-o")
				}
				outname = v
			}

		case a == "-L":
			if v, ok := next(); ok {
				if listname != "" {
					d.General(28, "-L")
				}
				listname = v
				ctx.Options.ListingEnabled = true
			}

		case a == "-Lnf":
			ctx.Options.ListNoFF = true

		case a == "-Lns":
			ctx.Options.ListNoSym = true

		case strings.HasPrefix(a, "-Ll"):
			n, _ := strconv.Atoi(a[3:])
			ctx.Options.ListLinesPage = n

		case strings.HasPrefix(a, "-D"):
			def := a[2:]
			if def == "" {
				if v, ok := next(); ok {
					def = v
				}
			}
			name, val := splitDefine(def)
			if name != "" {
				ctx.Options.Defines[name] = val
			}

		case strings.HasPrefix(a, "-I"):
			path := a[2:]
			if path == "" {
				if v, ok := next(); ok {
					path = v
				}
			}
			if path != "" {
				ctx.AddIncludePath(path)
			}

		case strings.HasPrefix(a, "-dependall="):
			dependAll = true
			setDependMode(ctx, a[len("-dependall="):])
		case strings.HasPrefix(a, "-depend="):
			setDependMode(ctx, a[len("-depend="):])

		case a == "-depfile":
			if v, ok := next(); ok {
				if depfile != "" {
					d.General(28, "-depfile")
				}
				depfile = v
			}

		case a == "-unnamed-sections":
			ctx.Options.UnnamedSections = true
		case a == "-ignore-mult-inc":
			ctx.Options.IgnoreMultInc = true
		case a == "-nocase":
			ctx.Options.NoCase = true
		case a == "-nosym":
			ctx.Options.NoSym = true

		case strings.HasPrefix(a, "-nowarn="):
			n, _ := strconv.Atoi(a[len("-nowarn="):])
			d.Disable(n)
		case a == "-w":
			d.NoWarn = true
		case a == "-wfail":
			d.FailOnWarning = true

		case strings.HasPrefix(a, "-maxerrors="):
			n, _ := strconv.Atoi(a[len("-maxerrors="):])
			d.MaxErrors = n
			ctx.Options.MaxErrors = n
		case a == "-pic":
			ctx.Options.PIC = true
		case strings.HasPrefix(a, "-maxmacrecurs="):
			n, _ := strconv.Atoi(a[len("-maxmacrecurs="):])
			ctx.Options.MaxMacroRecurs = n
		case a == "-unsshift":
			ctx.Options.UnsShift = true
		case a == "-chklabels":
			ctx.Options.ChkLabels = true
		case a == "-noialign":
			ctx.Options.NoIAlign = true

		case strings.HasPrefix(a, "-dwarf"):
			ctx.Options.DWARF = true
			if strings.HasPrefix(a, "-dwarf=") {
				v, _ := strconv.Atoi(a[len("-dwarf="):])
				ctx.Options.DWARFVersion = v
			} else {
				ctx.Options.DWARFVersion = 3
			}

		case a == "-esc":
			ctx.Options.Esc = true
		case a == "-noesc":
			ctx.Options.Esc = false
		case strings.HasPrefix(a, "-x"):
			ctx.Options.AutoImport = false

		case a == "-rebuild-on-change":
			watchMode = true

		default:
			d.General(14, a)
		}
		i++
	}
	_ = dependAll

	ctx.Options.OutputPath = outname
	ctx.Options.Format = outputFormat
	ctx.Options.ListingPath = listname
	ctx.Options.DepFile = depfile

	if inname == "" {
		d.General(15)
		return exitCode(d)
	}

	assembleOnce := func() int {
		return assembleFile(ctx, d, reporter, inname, stdout)
	}

	if watchMode {
		runWatch(ctx, inname, assembleOnce, stdout)
		return 0
	}
	return assembleOnce()
}

// assembleFile runs one complete parse/resolve/assemble/emit cycle for
// inname, mirroring the tail of vasm.c's main(): parse() unconditionally,
// resolve()/assemble() gated on errors==0||produce_listing, then the
// listing whenever one was requested, and dependency/object emission
// gated on errors==0.
func assembleFile(ctx *asmcontext.Context, d *diag.Diagnostics, reporter *stderrReporter, inname string, stdout io.Writer) int {
	f, err := os.Open(inname)
	if err != nil {
		d.General(12, inname)
		return exitCode(d)
	}
	defer f.Close()

	reporter.src = inname
	ctx.RecordDependency(inname)

	if err := frontend.Parse(f, inname, ctx.Reg); err != nil {
		d.General(19, err.Error())
	}

	cpu, err := backend.New(target.ArchUnknown)
	if err != nil {
		d.General(10, "cpu")
		return exitCode(d)
	}
	dataEval, _ := cpu.(backend.DataEvaluator)
	oracle := &resolve.Oracle{CPU: cpu, Data: dataEval}

	produceListing := ctx.Options.ListingEnabled
	if d.Errors == 0 || produceListing {
		var trace io.Writer
		if ctx.Options.Debug {
			trace = stdout
		}
		r := &resolve.Resolver{Oracle: oracle, Diag: d, Trace: trace}
		r.Resolve(ctx.Reg.Sections())
	}

	if d.Errors == 0 || produceListing {
		as := &assemble.Assembler{
			Oracle:     oracle,
			Diag:       d,
			Out:        stdout,
			AutoImport: ctx.Options.AutoImport,
		}
		if ctx.Options.PIC {
			if pc, ok := cpu.(assemble.PICChecker); ok {
				as.PIC = pc
			}
		}
		arch := target.ArchUnknown
		mx, mn := arch.Bounds()
		as.Bounds = &assemble.AddrBounds{Max: mx, Min: mn}
		if err := as.Assemble(ctx.Reg); err != nil {
			d.General(19, err.Error())
		}
	}

	if produceListing {
		path := listNameOr(ctx.Options.ListingPath)
		if err := writeListing(ctx, path); err != nil {
			d.General(13, path)
		}
	}

	if d.Errors == 0 {
		emitOutput(ctx, d, stdout, inname)
	}

	if ctx.Options.Debug {
		sizeOf := func(a *atom.Atom, sec *atom.Section, pc int64) int64 {
			n, _ := oracle.Size(a, sec, pc)
			return n
		}
		for _, sec := range ctx.Reg.Sections() {
			sec.Dump(stdout, resolve.PCAlign, sizeOf)
		}
		ctx.PrintStatistics(stdout)
		ctx.DumpSymbols(stdout)
	}

	if err := ctx.Abort(); err != nil {
		fmt.Fprintf(os.Stderr, "vasm: %v\n", err)
	}

	return exitCode(d)
}

func emitOutput(ctx *asmcontext.Context, d *diag.Diagnostics, stdout io.Writer, inname string) {
	if ctx.Options.DependMode != "" && ctx.Options.DepFile == "" {
		ctx.WriteDependencies(stdout, ctx.Options.OutputPath)
		return
	}

	if verbose {
		ctx.PrintStatistics(stdout)
	}

	if ctx.Options.DependMode != "" && ctx.Options.DepFile != "" {
		df, err := os.Create(ctx.Options.DepFile)
		if err != nil {
			d.General(13, ctx.Options.DepFile)
		} else {
			outName := ctx.Options.OutputPath
			if outName == "" {
				outName = "a.out"
			}
			ctx.WriteDependencies(df, outName)
			df.Close()
		}
	}

	outname := ctx.Options.OutputPath
	if outname == "" {
		outname = "a.out"
	}
	w, err := objfmt.New(ctx.Options.Format)
	if err != nil {
		d.General(16, ctx.Options.Format)
		return
	}
	of, err := os.Create(outname)
	if err != nil {
		d.General(13, outname)
		return
	}
	defer of.Close()
	ctx.Options.OutputPath = outname
	ctx.MarkOutputOpened()
	if err := w.Write(of, ctx.Reg); err != nil {
		d.General(13, outname)
	}
}

func listNameOr(name string) string {
	if name == "" {
		return "a.lst"
	}
	return name
}

// writeListing renders the short fixed-column listing described in
// specification §4.8: one row per section/atom with pc and source line.
func writeListing(ctx *asmcontext.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, sec := range ctx.Reg.Sections() {
		fmt.Fprintf(f, "section %s\n", sec.Name)
		pc := sec.Org
		for a := sec.First; a != nil; a = a.Next() {
			fmt.Fprintf(f, "%06x %4d %s:%d\n", pc, a.Line, a.Src, a.Line)
			pc += int64(a.LastSize)
		}
	}
	if !ctx.Options.ListNoSym {
		fmt.Fprintln(f, "\nsymbol table:")
		ctx.DumpSymbols(f)
	}
	return nil
}

func setDependMode(ctx *asmcontext.Context, mode string) {
	switch mode {
	case "list":
		ctx.Options.DependMode = "list"
	case "make":
		ctx.Options.DependMode = "make"
	}
}

func splitDefine(def string) (name, val string) {
	def = strings.TrimSpace(def)
	if def == "" {
		return "", ""
	}
	if idx := strings.IndexByte(def, '='); idx >= 0 {
		return def[:idx], asmcontext.NormalizeDefine(def[idx+1:])
	}
	return def, asmcontext.NormalizeDefine("")
}

func exitCode(d *diag.Diagnostics) int {
	if d.Failed() {
		return 1
	}
	return 0
}

// runWatch implements the -rebuild-on-change developer convenience: the
// input file and every include path are watched, and assembleOnce fires
// on each change, debounced by internal/watch.
func runWatch(ctx *asmcontext.Context, inname string, assembleOnce func() int, stdout io.Writer) {
	w, err := watch.New(func(path string) {
		fmt.Fprintf(stdout, "rebuilding: %s changed\n", filepath.Base(path))
		assembleOnce()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "vasm: watch: %v\n", err)
		return
	}
	defer w.Close()
	if err := w.AddFile(inname); err != nil {
		fmt.Fprintf(os.Stderr, "vasm: watch: %v\n", err)
		return
	}
	for _, p := range ctx.IncludePaths() {
		_ = w.AddFile(p)
	}
	assembleOnce()
	w.Watch()
}

// stderrReporter renders diagnostics as "<prog>: <src>: <severity>:
// <message>", matching the original's fprintf(stderr,...) style in
// general_error().
type stderrReporter struct {
	w    io.Writer
	prog string
	src  string
}

func (r *stderrReporter) Report(dg diag.Diagnostic) {
	if r.src != "" {
		fmt.Fprintf(r.w, "%s: %s: %s: %s\n", r.prog, r.src, dg.Severity, dg.Message)
	} else {
		fmt.Fprintf(r.w, "%s: %s: %s\n", r.prog, dg.Severity, dg.Message)
	}
}
