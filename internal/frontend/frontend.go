// Package frontend is a minimal line-oriented syntax front-end used to
// drive the core end to end. Specification §1 explicitly keeps the
// tokenizer/expression parser/syntax front-end out of the core's
// scope; this package is the smallest possible stand-in so cmd/vasm
// has something real to assemble and the scenarios in specification §8
// can be expressed as literal input text rather than hand-built atom
// graphs. It understands exactly the directive set the stub CPU
// (internal/backend.StubCPU) and the core's atom model need:
// sections, labels, org/rorg/rorgend, offset, dc.b/w/l, ds.b/w/l, the
// two stub mnemonics (nop/bra), equ, roffs, print, and assert.
package frontend

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/xyproto/vasm/internal/atom"
	"github.com/xyproto/vasm/internal/backend"
)

// Parse reads line-oriented source from r and emits atoms/symbols into
// reg. src is the name recorded on every atom (for listings and the
// no-BSS-data diagnostic's (src,line) dedup key).
func Parse(r io.Reader, src string, reg *atom.Registry) error {
	reg.DefaultSectionName = "text"
	reg.DefaultSectionAttr = "acrx"

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if err := parseLine(scanner.Text(), src, line, reg); err != nil {
			return fmt.Errorf("%s:%d: %w", src, line, err)
		}
	}
	return scanner.Err()
}

func parseLine(raw, src string, line int, reg *atom.Registry) error {
	text := raw
	if idx := strings.IndexByte(text, ';'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var labelName string
	if idx := strings.IndexByte(text, ':'); idx > 0 && isLabelStart(text[:idx]) {
		labelName = strings.TrimSpace(text[:idx])
		text = strings.TrimSpace(text[idx+1:])
	}

	// "name: equ expr" binds an EXPRESSION symbol instead of a LABSYM
	// bound to the current PC; handle it before the generic label path.
	if labelName != "" && strings.HasPrefix(strings.ToLower(text), "equ") {
		exprSrc := strings.TrimSpace(text[3:])
		expr, err := parseExpr(exprSrc, reg)
		if err != nil {
			return err
		}
		sym := reg.NewSymbol(labelName, atom.EXPRESSION)
		sym.Kind = atom.EXPRESSION
		sym.Expr = expr
		return nil
	}

	if labelName != "" {
		sym := reg.NewSymbol(labelName, atom.LABSYM)
		sym.Kind = atom.LABSYM
		sec := reg.DefaultSection()
		sym.Section = sec
		sec.AddAtom(atom.NewAtom(atom.LABEL, atom.LabelPayload{Symbol: sym}, src, line))
	}
	if text == "" {
		return nil
	}

	fields := strings.Fields(text)
	op := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch {
	case op == "section":
		parts := strings.Fields(rest)
		name := parts[0]
		attr := "acrwx"
		if len(parts) > 1 {
			attr = parts[1]
		}
		sec := reg.NewSection(name, attr, 1)
		reg.SetSection(sec)
		return nil

	case op == "org":
		v, err := parseInt(rest)
		if err != nil {
			return err
		}
		sec := reg.NewOrg(v)
		reg.SetSection(sec)
		return nil

	case op == "offset":
		if rest == "" {
			reg.SwitchOffsetSection("", 0, false)
			return nil
		}
		v, err := parseInt(rest)
		if err != nil {
			return err
		}
		reg.SwitchOffsetSection("", v, true)
		return nil

	case op == "rorg":
		v, err := parseInt(rest)
		if err != nil {
			return err
		}
		return reg.StartRorg(v)

	case op == "rorgend":
		return reg.EndRorg()

	case op == "nop", op == "bra":
		sec := reg.DefaultSection()
		in := &backend.Insn{Mnemonic: op}
		if op == "bra" {
			target := strings.TrimSpace(rest)
			in.Target = reg.NewSymbol(target, atom.LABSYM)
		}
		sec.AddAtom(atom.NewAtom(atom.INSTRUCTION, atom.InstructionPayload{Record: in}, src, line))
		return nil

	case strings.HasPrefix(op, "dc."):
		width, err := widthOf(op[3:])
		if err != nil {
			return err
		}
		values, err := parseIntList(rest)
		if err != nil {
			return err
		}
		sec := reg.DefaultSection()
		rec := &backend.DefRecord{Values: values, Width: width}
		sec.AddAtom(atom.NewAtom(atom.DATADEF, atom.DataDefPayload{Record: rec}, src, line))
		return nil

	case strings.HasPrefix(op, "ds."):
		width, err := widthOf(op[3:])
		if err != nil {
			return err
		}
		parts := strings.Split(rest, ",")
		count, err := parseInt(strings.TrimSpace(parts[0]))
		if err != nil {
			return err
		}
		var fill byte
		if len(parts) > 1 {
			f, err := parseInt(strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}
			fill = byte(f)
		}
		sec := reg.DefaultSection()
		sec.AddAtom(atom.NewAtom(atom.SPACE, atom.SpacePayload{Size: count * int64(width), Fill: fill}, src, line))
		return nil

	case op == "roffs":
		expr, err := parseExpr(rest, reg)
		if err != nil {
			return err
		}
		sec := reg.DefaultSection()
		sec.AddAtom(atom.NewAtom(atom.ROFFS, atom.ROffsPayload{Target: expr}, src, line))
		return nil

	case op == "print":
		sec := reg.DefaultSection()
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, `"`) {
			txt := strings.Trim(rest, `"`)
			sec.AddAtom(atom.NewAtom(atom.PRINTTEXT, atom.PrintTextPayload{Text: txt}, src, line))
			return nil
		}
		expr, err := parseExpr(rest, reg)
		if err != nil {
			return err
		}
		sec.AddAtom(atom.NewAtom(atom.PRINTEXPR, atom.PrintExprPayload{Expr: expr}, src, line))
		return nil

	case op == "assert":
		parts := strings.SplitN(rest, ",", 2)
		expr, err := parseExpr(strings.TrimSpace(parts[0]), reg)
		if err != nil {
			return err
		}
		msg := ""
		if len(parts) > 1 {
			msg = strings.Trim(strings.TrimSpace(parts[1]), `"`)
		}
		sec := reg.DefaultSection()
		sec.AddAtom(atom.NewAtom(atom.ASSERT, atom.AssertPayload{Expr: expr, ExprStr: parts[0], MsgStr: msg}, src, line))
		return nil

	default:
		return fmt.Errorf("unrecognised directive %q", fields[0])
	}
}

func isLabelStart(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	r := s[0]
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func widthOf(suffix string) (int, error) {
	switch strings.ToLower(suffix) {
	case "b":
		return 1, nil
	case "w":
		return 2, nil
	case "l":
		return 4, nil
	default:
		return 0, fmt.Errorf("unknown data width %q", suffix)
	}
}

func parseIntList(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parseInt(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
