package objfmt

import (
	"io"

	"github.com/xyproto/vasm/internal/atom"
)

// BinWriter emits the raw concatenated bytes of every section, in
// declaration order, with no header at all — the "bin" format from
// specification §6.
type BinWriter struct{ opts []string }

func NewBinWriter() (Writer, error) { return &BinWriter{}, nil }

func (b *BinWriter) Options(args []string) error {
	b.opts = append(b.opts, args...)
	return nil
}

func (b *BinWriter) Write(w io.Writer, reg *atom.Registry) error {
	for _, sec := range reg.Sections() {
		if err := writeSectionBytes(w, sec); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("bin", "vasm binary output", NewBinWriter)
}
