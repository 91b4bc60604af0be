// Package objfmt implements specification §4's output-format
// collaborator boundary and Design Note 9's dynamic dispatch on output
// format: a string-keyed registry of constructors, each yielding a
// Writer. Grounded on the teacher's per-format writer files
// (codegen_elf_writer.go, codegen_pe_writer.go, codegen_macho_writer.go,
// elf.go) generalised from "one compiler, many target executables" to
// "one resolved section list, many object-file encodings" — the shape
// -F<fmt> selects in specification §6.
package objfmt

import (
	"fmt"
	"io"

	"github.com/xyproto/vasm/internal/atom"
)

// Writer emits a fully assembled Registry (every section already
// walked by the final pass: no INSTRUCTION/DATADEF atoms remain) to w
// in one object-file format.
type Writer interface {
	Write(w io.Writer, reg *atom.Registry) error
}

// ArgHandler lets a format consume its own CLI options. cmd/vasm does
// not forward any arguments to it (nor to the CPU back-end): every flag
// it does not recognise itself is reported as diagnostic 14.
type ArgHandler interface {
	Options(args []string) error
}

// Constructor builds a fresh Writer instance for one assembly run.
type Constructor func() (Writer, error)

type entry struct {
	copyright string
	new       Constructor
}

var registry = map[string]entry{}

// Register adds a named output format to the registry. Real formats
// call this from an init() in their own file, same pattern as
// backend.Register.
func Register(name, copyright string, ctor Constructor) {
	registry[name] = entry{copyright: copyright, new: ctor}
}

// New builds the writer registered under name, or an error carrying
// diagnostic 16's text ("unknown output format") if none matches.
func New(name string) (Writer, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", name)
	}
	return e.new()
}

// Copyright returns the banner string a format registers itself with,
// or "" if the format is unknown.
func Copyright(name string) string {
	return registry[name].copyright
}

// Names returns every registered format name, for -F<fmt> usage text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
