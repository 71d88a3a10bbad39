// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"io"
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// byteRole classifies one emitted byte, per spec.md §4.8.
type byteRole byte

const (
	roleInstructionStart byteRole = iota
	roleInstructionContinuation
	roleData
)

// byteEntry maps one emitted byte back to the source location that
// produced it.
type byteEntry struct {
	Address   int
	FileIndex int
	Line      int
	Role      byteRole
}

// SymbolInfo describes one label's final placement, for debug-info
// consumers (spec.md §6).
type SymbolInfo struct {
	Name    string
	Address int
	Size    int
	Segment string
	Source  string
	Line    int
}

// ConstantInfo describes one compile-time constant, for debug-info
// consumers.
type ConstantInfo struct {
	Name   string
	Value  string
	Source string
	Line   int
}

// DebugInfo is the immutable snapshot returned alongside the program
// image, per spec.md §3 DebugInfoRecord/§4.8/§6. Grounded in go6502's
// asm/sourcemap.go varint delta encoding, extended with a byteRole per
// entry (go6502's SourceMap has no notion of instruction-start vs.
// continuation vs. data -- it only maps address to file/line) and with
// flat Symbols/Constants lists (go6502 only exported label addresses,
// via its separate Export type, with no constants at all).
type DebugInfo struct {
	Origin    int
	Size      int
	Files     []string
	Entries   []byteEntry
	Symbols   []SymbolInfo
	Constants []ConstantInfo
}

func newDebugInfo(files []string) *DebugInfo {
	return &DebugInfo{Files: append([]string{}, files...)}
}

func (d *DebugInfo) record(addr, fileIndex, line int, role byteRole) {
	d.Entries = append(d.Entries, byteEntry{Address: addr, FileIndex: fileIndex, Line: line, Role: role})
}

// IsInstructionStart implements the is-instruction(offset) predicate
// view spec.md §6 calls for, consumed directly by the disassembler.
func (d *DebugInfo) IsInstructionStart(addr int) bool {
	i := sort.Search(len(d.Entries), func(i int) bool { return d.Entries[i].Address >= addr })
	return i < len(d.Entries) && d.Entries[i].Address == addr && d.Entries[i].Role == roleInstructionStart
}

// Find returns the source file and line that produced the byte at addr.
func (d *DebugInfo) Find(addr int) (file string, line int, err error) {
	i := sort.Search(len(d.Entries), func(i int) bool { return d.Entries[i].Address >= addr })
	if i < len(d.Entries) && d.Entries[i].Address == addr {
		e := d.Entries[i]
		return d.Files[e.FileIndex], e.Line, nil
	}
	return "", 0, errors.Errorf("address $%04X has no debug-info entry", addr)
}

// ClearRange discards entries/symbols that fall within [origin, origin+size),
// in preparation for replacing that range with a freshly assembled
// segment. Adapted from go6502's SourceMap.ClearRange. The assembler's
// own driver never calls ClearRange or Merge; they are plain DebugInfo
// methods, not an incremental-assembly entry point.
func (d *DebugInfo) ClearRange(origin, size int) {
	min, max := origin, origin+size

	entries := make([]byteEntry, 0, len(d.Entries))
	for _, e := range d.Entries {
		if e.Address < min || e.Address >= max {
			entries = append(entries, e)
		}
	}
	d.Entries = entries

	symbols := make([]SymbolInfo, 0, len(d.Symbols))
	for _, s := range d.Symbols {
		if s.Address < min || s.Address >= max {
			symbols = append(symbols, s)
		}
	}
	d.Symbols = symbols
}

// Merge folds d2's entries into d, clearing the overlapping range first.
// Adapted from go6502's SourceMap.Merge for the same reason as ClearRange.
func (d *DebugInfo) Merge(d2 *DebugInfo) {
	d.ClearRange(d2.Origin, d2.Size)

	fileIndex := make(map[string]int, len(d.Files))
	for i, f := range d.Files {
		fileIndex[f] = i
	}
	remap := func(f string) int {
		if i, ok := fileIndex[f]; ok {
			return i
		}
		i := len(d.Files)
		d.Files = append(d.Files, f)
		fileIndex[f] = i
		return i
	}

	for _, e := range d2.Entries {
		e.FileIndex = remap(d2.Files[e.FileIndex])
		d.Entries = append(d.Entries, e)
	}
	d.Entries = sortEntries(d.Entries)
	d.Symbols = append(d.Symbols, d2.Symbols...)
	d.Constants = append(d.Constants, d2.Constants...)
}

func sortEntries(e []byteEntry) []byteEntry {
	slices.SortFunc(e, func(a, b byteEntry) int { return cmp.Compare(a.Address, b.Address) })
	return e
}

// Varint encoding flags, reused unmodified from go6502's sourcemap.go.
const (
	continued byte = 1 << 7
	negative  byte = 1 << 6
	roleBits  byte = 1 << 5
)

// WriteTo serializes the debug info as delta-encoded varints, one entry
// per emitted byte, followed by a flat symbol table (each name
// NUL-terminated, then its 16-bit address). The Constants list is not
// written. Grounded directly in go6502's SourceMap.WriteTo encoding
// scheme.
func (d *DebugInfo) WriteTo(w io.Writer) (n int64, err error) {
	ww := bufio.NewWriter(w)

	var hdr [16]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(d.Origin))
	binary.LittleEndian.PutUint32(hdr[2:6], uint32(d.Size))
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(d.Files)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(d.Entries)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(d.Symbols)))
	nn, err := ww.Write(hdr[:])
	n += int64(nn)
	if err != nil {
		return n, err
	}

	for _, f := range d.Files {
		nn, err = ww.WriteString(f)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		if err = ww.WriteByte(0); err != nil {
			return n, err
		}
		n++
	}

	var prev byteEntry
	for _, e := range d.Entries {
		nn, err = encodeByteEntry(ww, prev, e)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		prev = e
	}

	for _, s := range d.Symbols {
		nn, err = ww.WriteString(s.Name)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		ww.WriteByte(0)
		n++
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(s.Address))
		nn, err = ww.Write(b[:])
		n += int64(nn)
		if err != nil {
			return n, err
		}
	}

	return n, ww.Flush()
}

func encodeByteEntry(w *bufio.Writer, prev, e byteEntry) (n int, err error) {
	da := e.Address - prev.Address
	df := e.FileIndex - prev.FileIndex
	dl := e.Line - prev.Line

	nn, err := encode67(w, da)
	n += nn
	if err != nil {
		return n, err
	}

	var roleByte byte
	if df != 0 {
		roleByte |= roleBits
	}
	nn, err = encode57(w, dl, roleByte, byte(e.Role))
	n += nn
	if err != nil {
		return n, err
	}

	if df != 0 {
		nn, err = encode67(w, df)
		n += nn
	}
	return n, err
}

func encode7(w *bufio.Writer, v int) (n int, err error) {
	for {
		var b byte
		if v >= 0x80 || v < 0 {
			b |= continued
		}
		b |= byte(v) & 0x7f
		if err = w.WriteByte(b); err != nil {
			return n, err
		}
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	return n, nil
}

func encode67(w *bufio.Writer, v int) (n int, err error) {
	var b byte
	if v < 0 {
		b |= negative
		v = -v
	}
	if v >= 0x40 {
		b |= continued
	}
	b |= byte(v) & 0x3f
	if err = w.WriteByte(b); err != nil {
		return n, err
	}
	n++
	v >>= 6
	if v == 0 {
		return n, nil
	}
	nn, err := encode7(w, v)
	n += nn
	return n, err
}

// encode57 packs a sign bit, the low 3 bits of a delta's magnitude and a
// 2-bit role tag into one byte, continuing into encode7 when the
// magnitude needs more than 3 bits.
// flagBits carries any extra per-entry flags (here, "file index
// changed") ORed in alongside the role.
func encode57(w *bufio.Writer, v int, flagBits byte, role byte) (n int, err error) {
	var b byte
	b |= flagBits
	b |= (role & 0x3) << 0
	neg := v < 0
	if neg {
		v = -v
		b |= negative
	}
	if v >= 0x8 {
		b |= continued
	}
	b |= (byte(v) & 0x7) << 2
	if err = w.WriteByte(b); err != nil {
		return n, err
	}
	n++
	v >>= 3
	if v == 0 {
		return n, nil
	}
	nn, err := encode7(w, v)
	n += nn
	return n, err
}
