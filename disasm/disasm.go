// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction-set disassembler, sharing
// the opcode table with the assembler (mos6502.Lookup) rather than
// carrying its own copy. Grounded in go6502's disasm/disasm.go, widened
// from its single-instruction in-memory-CPU interface to the byte-image
// and is-instruction-predicate contract spec.md §4.9 describes, since
// this disassembler has no CPU or live memory to read from -- only the
// static program image and (optionally) the debug info produced
// alongside it.
package disasm

import (
	"fmt"
	"strings"

	"github.com/retrocc/m6502asm/mos6502"
)

// IsInstruction reports whether the byte at addr begins a decodable
// instruction, typically backed by a DebugInfo snapshot's
// IsInstructionStart. A nil predicate decodes every recognized opcode as
// an instruction.
type IsInstruction func(addr int) bool

// LabelAt resolves an absolute address to a symbolic name, for
// Options.ShowLabels.
type LabelAt func(addr int) (string, bool)

// Options controls output formatting, per spec.md §4.9.
type Options struct {
	ShowLabels bool
	ShowCycles bool
	Labels     LabelAt
}

// Disassemble walks image sequentially, starting at address origin, and
// returns one text line per decoded item: either a decoded instruction
// or (when the opcode is unknown, or isInstr says the offset isn't one)
// a single data byte rendered as a !byte line. The disassembler carries
// no state across lines other than the current offset.
func Disassemble(image []byte, origin int, isInstr IsInstruction, opts Options) []string {
	var lines []string
	i := 0
	for i < len(image) {
		addr := origin + i
		opcode := image[i]
		inst, known := mos6502.Lookup(opcode)
		decodable := known && (isInstr == nil || isInstr(addr))

		if !decodable {
			lines = append(lines, formatDataByte(addr, image[i]))
			i++
			continue
		}

		length := int(inst.Length)
		if i+length > len(image) {
			lines = append(lines, formatDataByte(addr, image[i]))
			i++
			continue
		}

		operand := image[i+1 : i+length]
		lines = append(lines, formatInstruction(addr, image[i:i+length], inst, operand, opts))
		i += length
	}
	return lines
}

func formatDataByte(addr int, b byte) string {
	return fmt.Sprintf("%04X: %-8s     !byte $%02X", addr, hexBytes([]byte{b}), b)
}

func formatInstruction(addr int, raw []byte, inst *mos6502.Instruction, operand []byte, opts Options) string {
	line := fmt.Sprintf("%04X: %-8s     %s", addr, hexBytes(raw), inst.Name)
	if operandStr := formatOperand(addr, inst, operand, opts); operandStr != "" {
		line += " " + operandStr
	}
	if opts.ShowCycles {
		line += fmt.Sprintf(" ; %d", inst.Cycles)
	}
	return line
}

func formatOperand(addr int, inst *mos6502.Instruction, operand []byte, opts Options) string {
	switch inst.Mode {
	case mos6502.IMP:
		return ""
	case mos6502.ACC:
		return "a"
	case mos6502.IMM:
		return fmt.Sprintf("#$%02X", operand[0])
	case mos6502.ZPG:
		return addrString(int(operand[0]), opts)
	case mos6502.ZPX:
		return fmt.Sprintf("%s,X", addrString(int(operand[0]), opts))
	case mos6502.ZPY:
		return fmt.Sprintf("%s,Y", addrString(int(operand[0]), opts))
	case mos6502.IDX:
		return fmt.Sprintf("(%s,X)", addrString(int(operand[0]), opts))
	case mos6502.IDY:
		return fmt.Sprintf("(%s),Y", addrString(int(operand[0]), opts))
	case mos6502.REL:
		off := int8(operand[0])
		target := addr + 2 + int(off)
		return addrString(target, opts)
	case mos6502.ABS:
		return addrString(word(operand), opts)
	case mos6502.ABX:
		return fmt.Sprintf("%s,X", addrString(word(operand), opts))
	case mos6502.ABY:
		return fmt.Sprintf("%s,Y", addrString(word(operand), opts))
	case mos6502.IND:
		return fmt.Sprintf("(%s)", addrString(word(operand), opts))
	default:
		return ""
	}
}

func word(b []byte) int {
	return int(b[0]) | int(b[1])<<8
}

// addrString renders an operand address as a label name (when
// Options.ShowLabels resolves one) or as a "$"-prefixed hex literal
// otherwise.
func addrString(addr int, opts Options) string {
	if opts.ShowLabels && opts.Labels != nil {
		if name, ok := opts.Labels(addr); ok {
			return name
		}
	}
	if addr > 0xff {
		return fmt.Sprintf("$%04X", addr)
	}
	return fmt.Sprintf("$%02X", addr)
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02X", x)
	}
	return strings.Join(parts, " ")
}
