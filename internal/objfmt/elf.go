package objfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xyproto/vasm/internal/atom"
)

// ELF64 header/program-header layout constants, grounded on
// WriteELFHeader in the teacher's elf.go: a minimal one-segment,
// no-section-header executable image (PT_LOAD covering the whole
// file). A real linker-grade writer would emit section headers, a
// symbol table, and relocations; this core treats that as the output
// writer's business beyond exercising the registry (specification §1:
// "Output format writers ... only their interfaces are specified").
const (
	elfHeaderSize  = 64
	progHeaderSize = 56
	headerSize     = elfHeaderSize + progHeaderSize
	elfBaseAddr    = 0x400000
	elfPageSize    = 0x1000
)

// ELFMachine maps a backend.CPU name to an ELF e_machine value. Nothing
// in this package consults it: NewELFWriter leaves Machine at EM_NONE
// (0), which is what e_machine holds unless a caller sets Machine.
var ELFMachine = map[string]uint16{
	"x86_64":  0x3e,
	"arm64":   0xb7,
	"riscv64": 0xf3,
}

// ELFWriter emits a single PT_LOAD ELF64 executable holding every
// section's bytes concatenated in declaration order.
type ELFWriter struct {
	Machine uint16
	opts    []string
}

func NewELFWriter() (Writer, error) { return &ELFWriter{}, nil }

func (e *ELFWriter) Options(args []string) error {
	e.opts = append(e.opts, args...)
	return nil
}

func (e *ELFWriter) Write(w io.Writer, reg *atom.Registry) error {
	var body bytes.Buffer
	for _, sec := range reg.Sections() {
		if err := writeSectionBytes(&body, sec); err != nil {
			return err
		}
	}

	entry := uint64(elfBaseAddr + headerSize)
	fileSize := uint64(headerSize + body.Len())

	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	buf.Write(make([]byte, 8)) // e_ident padding
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // ET_EXEC
	binary.Write(&buf, binary.LittleEndian, e.Machine)  // e_machine
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // e_version
	binary.Write(&buf, binary.LittleEndian, entry)      // e_entry
	binary.Write(&buf, binary.LittleEndian, uint64(elfHeaderSize)) // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint64(0))  // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(elfHeaderSize))
	binary.Write(&buf, binary.LittleEndian, uint16(progHeaderSize))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shstrndx

	// Single PT_LOAD program header covering the whole file.
	binary.Write(&buf, binary.LittleEndian, uint32(1))      // PT_LOAD
	binary.Write(&buf, binary.LittleEndian, uint32(7))      // PF_R|PF_W|PF_X
	binary.Write(&buf, binary.LittleEndian, uint64(0))      // p_offset
	binary.Write(&buf, binary.LittleEndian, uint64(elfBaseAddr)) // p_vaddr
	binary.Write(&buf, binary.LittleEndian, uint64(elfBaseAddr)) // p_paddr
	binary.Write(&buf, binary.LittleEndian, fileSize)       // p_filesz
	binary.Write(&buf, binary.LittleEndian, fileSize)       // p_memsz
	binary.Write(&buf, binary.LittleEndian, uint64(elfPageSize)) // p_align

	if buf.Len() != headerSize {
		return fmt.Errorf("objfmt: internal ELF header size mismatch: %d != %d", buf.Len(), headerSize)
	}
	buf.Write(body.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}

// writeSectionBytes appends every DATA/SPACE atom's bytes in a
// section, in atom order. BSS sections still contribute their
// reserved length as zero bytes: this writer has no section headers
// to mark them NOBITS, so the simplification keeps the file layout
// contiguous and addressable.
func writeSectionBytes(w io.Writer, sec *atom.Section) error {
	for a := sec.First; a != nil; a = a.Next() {
		switch p := a.Payload.(type) {
		case atom.DataPayload:
			if _, err := w.Write(p.Bytes); err != nil {
				return err
			}
		case atom.SpacePayload:
			fill := make([]byte, p.Size)
			if p.Fill != 0 {
				for i := range fill {
					fill[i] = p.Fill
				}
			}
			if _, err := w.Write(fill); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	Register("elf", "vasm ELF output", NewELFWriter)
}
