// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/retrocc/m6502asm/mos6502"

// ExprKind tags the variant of an expression AST node.
type ExprKind byte

const (
	ExNumber ExprKind = iota
	ExString
	ExIdent
	ExHere // '*', the current program counter
	ExUnary
	ExBinary
	ExCall
	ExIndex
	ExMember
	ExArray
)

// An Expr is one node of an expression tree. Nodes are immutable once
// parsed; evaluation (see eval.go) never mutates them, unlike go6502's
// expr type which memoizes its resolved value in place -- this assembler
// instead keeps the memo table in an evalContext (see eval.go) that is
// created fresh for each statement, so that a stale resolution from an
// earlier pass, or an earlier macro/loop iteration, can never leak into
// a later one.
type Expr struct {
	Kind  ExprKind
	Loc   SourceLocation
	Int   int64    // ExNumber
	Str   []byte   // ExString
	Parts []string // ExIdent: ["name"] or ["outer", "inner"] for outer::inner
	Op    string   // ExUnary / ExBinary operator symbol
	X, Y  *Expr    // ExUnary: X is the operand. ExBinary: X op Y.
	Fn    *Expr    // ExCall: callee (normally an ExIdent)
	Args  []*Expr  // ExCall args, ExArray elements
	Obj   *Expr    // ExIndex/ExMember: base expression
	Index *Expr    // ExIndex: subscript expression
	Field string   // ExMember: field name
}

// An Operand describes the parsed shape of an instruction's operand,
// before the addressing mode has been narrowed by the emitter. Grounded
// in go6502's operand type (asm.go), minus the `/`-prefix and forced
// low/high-byte flags that were specific to go6502's dialect -- this
// grammar instead exposes low/high-byte extraction as the unary `<`/`>`
// operators on the expression itself (spec.md §4.5).
type Operand struct {
	ModeGuess mos6502.Mode // caller's best guess from the operand's shape
	Expr      *Expr        // nil for Implied/Accumulator
}

// StmtKind tags the variant of a statement AST node.
type StmtKind byte

const (
	StLabel StmtKind = iota
	StInstruction
	StByte
	StWord
	StFill
	StText
	StBinary
	StIf
	StFor
	StMacroDef
	StMacroCall
	StScope
	StLet
	StInclude
	StSegment
	StSetPC
	StAlign
)

// A Stmt is one statement-level AST node. Only the fields relevant to
// Kind are populated; this mirrors the tagged-union style of go6502's
// segment types (instruction/data/bytedata/alignment/export) but unifies
// them into one AST node type, since (unlike go6502) statements here must
// be re-walked across passes and re-instantiated per macro invocation.
type Stmt struct {
	Kind StmtKind
	Loc  SourceLocation

	// StLabel
	Label string
	Local bool // true for an "@name" scope-local label

	// StInstruction
	Mnemonic string
	Operand  *Operand

	// StByte / StWord / StFill / StText
	Exprs []*Expr // StByte/StWord: one expr per emitted unit
	Count *Expr   // StFill: repeat count
	Fill  *Expr   // StFill: fill value (nil means 0)
	Text  *Expr   // StText: string-valued expression

	// StBinary
	Path   string
	Size   *Expr // nil means "rest of file"
	Offset *Expr // nil means 0

	// StIf
	Cond *Expr
	Then []*Stmt
	Else []*Stmt

	// StFor
	LoopVar  string
	LoopExpr *Expr
	Body     []*Stmt

	// StMacroDef
	MacroName string
	Params    []string
	MacroBody []*Stmt

	// StMacroCall (reuses MacroName for the called macro's name)
	CallArgs []*Expr

	// StScope: name may be empty for an anonymous scope.
	ScopeName string
	ScopeBody []*Stmt

	// StSegment
	SegmentName string

	// StLet: constant name and its value expression.
	LetName string
	LetExpr *Expr

	// StSetPC / StAlign: target / alignment expression.
	PCExpr    *Expr
	AlignExpr *Expr
}
