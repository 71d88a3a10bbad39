// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mos6502_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocc/m6502asm/mos6502"
)

func TestLookupKnownOpcode(t *testing.T) {
	inst, ok := mos6502.Lookup(0xa9)
	require.True(t, ok)
	assert.Equal(t, "LDA", inst.Name)
	assert.Equal(t, mos6502.IMM, inst.Mode)
	assert.Equal(t, byte(2), inst.Length)
}

func TestLookupUnassignedOpcode(t *testing.T) {
	_, ok := mos6502.Lookup(0xff)
	assert.False(t, ok)
}

func TestByMnemonicReturnsEveryMode(t *testing.T) {
	insts := mos6502.ByMnemonic("LDA")
	require.NotEmpty(t, insts)
	modes := make(map[mos6502.Mode]bool)
	for _, inst := range insts {
		modes[inst.Mode] = true
	}
	assert.True(t, modes[mos6502.IMM])
	assert.True(t, modes[mos6502.ZPG])
	assert.True(t, modes[mos6502.ABS])
}

func TestByMnemonicUnknown(t *testing.T) {
	assert.Nil(t, mos6502.ByMnemonic("XYZ"))
}

func TestOpcodeTableIsConsistent(t *testing.T) {
	for opcode := 0; opcode < 256; opcode++ {
		inst, ok := mos6502.Lookup(byte(opcode))
		if !ok {
			continue
		}
		assert.Equal(t, byte(opcode), inst.Opcode)
		assert.Greater(t, inst.Length, byte(0))
		found := false
		for _, candidate := range mos6502.ByMnemonic(inst.Name) {
			if candidate.Opcode == inst.Opcode {
				found = true
			}
		}
		assert.True(t, found, "ByMnemonic(%q) must include opcode $%02X", inst.Name, opcode)
	}
}
