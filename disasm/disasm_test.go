// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocc/m6502asm/disasm"
)

func TestDisassembleSimpleSequence(t *testing.T) {
	image := []byte{0xa9, 0x41, 0x8d, 0x20, 0xd0, 0x60}
	lines := disasm.Disassemble(image, 0x0801, nil, disasm.Options{})
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "0801:")
	assert.Contains(t, lines[0], "LDA #$41")
	assert.Contains(t, lines[1], "0803:")
	assert.Contains(t, lines[1], "STA $D020")
	assert.Contains(t, lines[2], "0806:")
	assert.Contains(t, lines[2], "RTS")
}

func TestDisassembleShowCycles(t *testing.T) {
	image := []byte{0xa9, 0x41}
	lines := disasm.Disassemble(image, 0x0801, nil, disasm.Options{ShowCycles: true})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "; 2")
}

func TestDisassembleUnknownOpcodeEmitsDataLine(t *testing.T) {
	image := []byte{0xff}
	lines := disasm.Disassemble(image, 0x0801, nil, disasm.Options{})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "!byte $FF")
}

func TestDisassembleIsInstructionPredicateForcesDataLine(t *testing.T) {
	image := []byte{0xea, 0xea}
	always := func(addr int) bool { return false }
	lines := disasm.Disassemble(image, 0x0801, always, disasm.Options{})
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "!byte $EA")
	assert.Contains(t, lines[1], "!byte $EA")
}

func TestDisassembleBranchOperandShowsTargetAddress(t *testing.T) {
	// BNE -3: the offset is relative to the following instruction
	// ($0803), so the target is $0800, one byte before the branch.
	image := []byte{0xd0, 0xfd}
	lines := disasm.Disassemble(image, 0x0801, nil, disasm.Options{})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "BNE $0800")
}

func TestDisassembleShowLabels(t *testing.T) {
	image := []byte{0x4c, 0x00, 0x08} // JMP $0800
	labels := func(addr int) (string, bool) {
		if addr == 0x0800 {
			return "start", true
		}
		return "", false
	}
	lines := disasm.Disassemble(image, 0x0801, nil, disasm.Options{ShowLabels: true, Labels: labels})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "JMP start")
}
