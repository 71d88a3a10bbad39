// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"os"

	"github.com/pkg/errors"

	"github.com/retrocc/m6502asm/mos6502"
)

// segment is a named output region with its own PC and growable byte
// buffer, per spec.md §3. Grounded in go6502's asm.segment, generalized
// from go6502's single fixed "code/data" split to an arbitrary named set
// switched by !segment.
type segment struct {
	Name    string
	Origin  int
	pcSet   bool
	PC      int
	Bytes   []byte
}

func newSegment(name string) *segment {
	return &segment{Name: name}
}

func (s *segment) setPC(pc int) {
	if !s.pcSet {
		s.Origin = pc
		s.pcSet = true
	}
	s.PC = pc
}

func (s *segment) write(b ...byte) {
	s.Bytes = append(s.Bytes, b...)
	s.PC += len(b)
}

// narrowMode maps a wide addressing mode to its ZeroPage-indexed
// counterpart, for the narrowing rule in spec.md §4.7.
func narrowMode(m mos6502.Mode) (mos6502.Mode, bool) {
	switch m {
	case mos6502.ABS:
		return mos6502.ZPG, true
	case mos6502.ABX:
		return mos6502.ZPX, true
	case mos6502.ABY:
		return mos6502.ZPY, true
	default:
		return 0, false
	}
}

func findMode(insts []*mos6502.Instruction, m mos6502.Mode) *mos6502.Instruction {
	for _, inst := range insts {
		if inst.Mode == m {
			return inst
		}
	}
	return nil
}

// selectInstruction implements the addressing-mode narrowing rule of
// spec.md §4.7 and §4.2's operand-shape table: given the mnemonic's legal
// (opcode, mode) variants and the operand's syntactic shape guess, pick
// the narrowest encoding that both fits the guess and (when the value is
// known) holds the current value estimate. An unresolved operand gets
// the widest legal encoding as a placeholder, per spec.md §4.6, so that
// later narrowing (never widening) is the only way a pass can change an
// instruction's length -- which is exactly the signal the driver's
// convergence test watches for.
func selectInstruction(insts []*mos6502.Instruction, guess mos6502.Mode, value int64, resolved bool) (*mos6502.Instruction, bool) {
	if narrow, ok := narrowMode(guess); ok {
		wide := findMode(insts, guess)
		zp := findMode(insts, narrow)
		if resolved && zp != nil && value >= 0 && value <= 255 {
			return zp, true
		}
		if wide != nil {
			return wide, true
		}
		if zp != nil {
			return zp, true
		}
	} else if exact := findMode(insts, guess); exact != nil {
		return exact, true
	}

	// Branch mnemonics are parsed with a bare-expression (ABS-shaped)
	// operand guess, since the grammar has no dedicated relative-operand
	// syntax; a mnemonic whose only legal encoding is Relative accepts
	// that guess unconditionally.
	if guess == mos6502.ABS && len(insts) == 1 && insts[0].Mode == mos6502.REL {
		return insts[0], true
	}

	return nil, false
}

// branchOffset computes the signed 8-bit PC-relative offset for a branch
// whose opcode sits at branchPC, per spec.md §9's "compute in signed
// 64-bit and verify range before truncating to 8 bits" design note.
func branchOffset(branchPC int, target int64) (offset byte, inRange bool) {
	diff := target - int64(branchPC+2)
	if diff < -128 || diff > 127 {
		return 0, false
	}
	return byte(int8(diff)), true
}

// encodeOperandBytes returns the little-endian operand bytes for inst
// given the (possibly placeholder) resolved value.
func encodeOperandBytes(inst *mos6502.Instruction, value int64) []byte {
	switch inst.Mode {
	case mos6502.IMP, mos6502.ACC:
		return nil
	case mos6502.ABS, mos6502.ABX, mos6502.ABY, mos6502.IND:
		v := uint16(value)
		return []byte{byte(v), byte(v >> 8)}
	default:
		return []byte{byte(value)}
	}
}

// evalByteExpr evaluates one !byte-directive expression, range-checking
// and truncating per spec.md §4.7. On an unresolved value it returns a
// zero placeholder byte without an error (the byte count never depends
// on the value, so this never threatens convergence); range errors are
// only reported on the final pass, matching the unresolved-identifier
// policy in spec.md §4.6.
func evalByteExpr(c *evalContext, e *Expr, final bool) byte {
	v, ok := c.eval(e)
	if !ok {
		return 0
	}
	n := v.Int()
	if n < -128 || n > 255 {
		if final {
			c.diags = append(c.diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindRange,
				Message:  errors.Errorf("Range error: byte value %d outside [-128, 255]", n).Error(),
				Location: e.Loc,
			})
		}
	}
	return byte(n)
}

// evalWordExpr is !byte's twin for the 16-bit !word directive.
func evalWordExpr(c *evalContext, e *Expr, final bool) (lo, hi byte) {
	v, ok := c.eval(e)
	if !ok {
		return 0, 0
	}
	n := v.Int()
	if n < -32768 || n > 65535 {
		if final {
			c.diags = append(c.diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindRange,
				Message:  errors.Errorf("Range error: word value %d outside [-32768, 65535]", n).Error(),
				Location: e.Loc,
			})
		}
	}
	u := uint16(n)
	return byte(u), byte(u >> 8)
}

// evalFill implements !fill count, value? per spec.md §4.7: count
// repetitions of value (default 0); a negative count is a range error.
func evalFill(c *evalContext, st *Stmt, final bool) []byte {
	countVal, ok := c.eval(st.Count)
	if !ok {
		return nil
	}
	count := countVal.Int()
	if count < 0 {
		if final {
			c.diags = append(c.diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindRange,
				Message:  errors.Errorf("Range error: fill count %d is negative", count).Error(),
				Location: st.Loc,
			})
		}
		return nil
	}

	var fillByte byte
	if st.Fill != nil {
		v, ok := c.eval(st.Fill)
		if ok {
			fillByte = byte(v.Int())
		}
	}

	out := make([]byte, count)
	for i := range out {
		out[i] = fillByte
	}
	return out
}

// evalText implements !text per spec.md §4.7: evaluate the string
// expression and convert it to PETSCII.
func evalText(c *evalContext, st *Stmt) []byte {
	v, ok := c.eval(st.Text)
	if !ok {
		return nil
	}
	return asciiToPetscii(v.Bytes())
}

// readFileFunc is the injectable file-read callback spec.md §4.2/§5 calls
// for, so !include and !binary can be redirected to in-memory contents in
// tests.
type readFileFunc func(path string) ([]byte, error)

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// evalBinary implements !binary "path"[, size?[, offset?]] per spec.md
// §4.7: reads the external file through readFile and slices out
// [offset, offset+size).
func evalBinary(c *evalContext, st *Stmt, readFile readFileFunc) []byte {
	data, err := readFile(st.Path)
	if err != nil {
		c.diags = append(c.diags, Diagnostic{
			Severity: SeverityError,
			Kind:     KindResource,
			Message:  errors.Wrapf(err, "Resource error: cannot read binary file '%s'", st.Path).Error(),
			Location: st.Loc,
		})
		return nil
	}

	offset := 0
	if st.Offset != nil {
		v, ok := c.eval(st.Offset)
		if ok {
			offset = int(v.Int())
		}
	}
	size := len(data) - offset
	if st.Size != nil {
		v, ok := c.eval(st.Size)
		if ok {
			size = int(v.Int())
		}
	}

	if offset < 0 || size < 0 || offset+size > len(data) {
		c.diags = append(c.diags, Diagnostic{
			Severity: SeverityError,
			Kind:     KindResource,
			Message:  errors.Errorf("Resource error: binary-include range [%d, %d) exceeds file '%s' (%d bytes)", offset, offset+size, st.Path, len(data)).Error(),
			Location: st.Loc,
		})
		return nil
	}
	return data[offset : offset+size]
}
