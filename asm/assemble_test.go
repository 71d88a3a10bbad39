// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocc/m6502asm/asm"
)

func sourceReader(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		if s, ok := files[path]; ok {
			return []byte(s), nil
		}
		return nil, fmt.Errorf("no such file %q", path)
	}
}

func assembleSource(t *testing.T, src string) *asm.AssembleResult {
	t.Helper()
	res, err := asm.Assemble("main.asm", asm.Options{ReadFile: sourceReader(map[string]string{"main.asm": src})})
	require.NoError(t, err)
	return res
}

func codeBytes(res *asm.AssembleResult) []byte {
	if len(res.ProgramBytes) < 2 {
		return nil
	}
	return res.ProgramBytes[2:]
}

func errorDiags(diags []asm.Diagnostic) []asm.Diagnostic {
	var out []asm.Diagnostic
	for _, d := range diags {
		if d.Severity == asm.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func TestAssembleHello(t *testing.T) {
	res := assembleSource(t, "* = $0801\nlda #$41\nsta $d020\nrts\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0x01, 0x08}, res.ProgramBytes[:2])
	assert.Equal(t, []byte{0xa9, 0x41, 0x8d, 0x20, 0xd0, 0x60}, codeBytes(res))
}

func TestAssembleBranchBackward(t *testing.T) {
	res := assembleSource(t, "* = $0801\nloop: dex\nbne loop\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0xca, 0xd0, 0xfd}, codeBytes(res))
}

func TestAssembleZeroPageNarrowing(t *testing.T) {
	res := assembleSource(t, "* = $0801\nzp = $10\nlda zp\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0xa5, 0x10}, codeBytes(res))
}

func TestAssembleAbsoluteWhenOutOfZeroPageRange(t *testing.T) {
	res := assembleSource(t, "* = $0801\naddr = $0200\nlda addr\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0xad, 0x00, 0x02}, codeBytes(res))
}

func TestAssembleOutOfRangeBranch(t *testing.T) {
	res := assembleSource(t, "* = $0801\nbne target\n!fill 200\ntarget:\n")
	errs := errorDiags(res.Diagnostics)
	require.NotEmpty(t, errs)
	found := false
	for _, d := range errs {
		if d.Kind == asm.KindRange {
			found = true
		}
	}
	assert.True(t, found, "expected a range-error diagnostic, got %+v", errs)
}

func TestAssembleMacroHygiene(t *testing.T) {
	src := "* = $0801\n" +
		"!macro foo() {\n" +
		"  lbl: nop\n" +
		"}\n" +
		"+foo()\n" +
		"+foo()\n"
	res := assembleSource(t, src)
	require.Empty(t, errorDiags(res.Diagnostics))

	var names []string
	for _, s := range res.DebugInfo.Symbols {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	assert.Contains(t, names, "foo#1::lbl")
	assert.Contains(t, names, "foo#2::lbl")
	assert.NotEqual(t, names[0], names[1])
}

func TestAssembleBinaryInclude(t *testing.T) {
	blob := string([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	files := map[string]string{
		"main.asm": "* = $0801\n!binary \"blob.bin\", 4, 2\n",
		"blob.bin": blob,
	}
	res, err := asm.Assemble("main.asm", asm.Options{ReadFile: sourceReader(files)})
	require.NoError(t, err)
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{2, 3, 4, 5}, codeBytes(res))
}

func TestAssembleImplicitOriginInsertsBasicStub(t *testing.T) {
	res := assembleSource(t, "lda #$00\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	code := codeBytes(res)
	require.Len(t, code, 12+2)
	assert.Equal(t, byte(0x9e), code[4], "SYS token must appear where the BASIC stub places it")
	assert.Equal(t, []byte{0xa9, 0x00}, code[len(code)-2:])
}

func TestAssembleUndefinedIdentifierIsSemanticError(t *testing.T) {
	res := assembleSource(t, "* = $0801\nlda undefined_thing\n")
	errs := errorDiags(res.Diagnostics)
	require.NotEmpty(t, errs)
	found := false
	for _, d := range errs {
		if d.Kind == asm.KindSemantic {
			found = true
		}
	}
	assert.True(t, found, "expected a semantic-error diagnostic, got %+v", errs)
}

func TestAssembleConditionalAssembly(t *testing.T) {
	res := assembleSource(t, "* = $0801\nflag = 1\n!if flag {\n  lda #$01\n} else {\n  lda #$02\n}\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0xa9, 0x01}, codeBytes(res))
}

func TestAssembleForLoopUnrolling(t *testing.T) {
	res := assembleSource(t, "* = $0801\n!for i in 3 {\n  nop\n}\n")
	require.Empty(t, errorDiags(res.Diagnostics))
	assert.Equal(t, []byte{0xea, 0xea, 0xea}, codeBytes(res))
}
