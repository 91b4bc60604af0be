package objfmt

import (
	"fmt"
	"io"

	"github.com/xyproto/vasm/internal/atom"
)

// stubWriter registers a recognised -F<fmt> name so option parsing and
// format selection behave identically to a real writer, without
// encoding the format's actual byte layout — the object-format
// specifics (S-record checksums, a.out headers, Amiga Hunk blocks,
// VOBJ's relocatable container, Atari TOS headers) are external-writer
// concerns per specification §1 that this core only dispatches to.
type stubWriter struct{ name string }

func (s *stubWriter) Options([]string) error { return nil }

func (s *stubWriter) Write(io.Writer, *atom.Registry) error {
	return fmt.Errorf("objfmt: output format %q is registered but not implemented by this core", s.name)
}

func newStub(name string) Constructor {
	return func() (Writer, error) { return &stubWriter{name: name}, nil }
}

func init() {
	Register("srec", "vasm Motorola S-record output", newStub("srec"))
	Register("aout", "vasm a.out output", newStub("aout"))
	Register("hunk", "vasm Amiga Hunk output", newStub("hunk"))
	Register("hunkexe", "vasm Amiga Hunk executable output", newStub("hunkexe"))
	Register("vobj", "vasm VOBJ relocatable output", newStub("vobj"))
	Register("tos", "vasm Atari TOS output", newStub("tos"))
	Register("xfile", "vasm Atari XFile output", newStub("xfile"))
	Register("atari_com", "vasm Atari .com output", newStub("atari_com"))
	Register("test", "vasm test output", newStub("test"))
}
