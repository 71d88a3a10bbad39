// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/retrocc/m6502asm/mos6502"
)

// parser is a recursive-descent statement parser running over an
// already-lexed token stream. Grounded in the overall shape of go6502's
// asm.go line-parsing functions (parseLine et al.), but restructured
// around a token cursor rather than an fstring cursor, since brace-
// delimited blocks (macro/if/for/scope bodies) must be parsed as
// self-contained statement lists rather than one line at a time.
type parser struct {
	toks  []lexToken
	pos   int
	diags []Diagnostic
}

// parseProgram parses a whole token stream (as produced by lex) into a
// flat statement list. Block bodies nest as []*Stmt within their
// owning Stmt node.
func parseProgram(toks []lexToken) ([]*Stmt, []Diagnostic) {
	p := &parser{toks: toks}
	var stmts []*Stmt
	for {
		p.skipNewlines()
		if p.peek().kind == tkEOF {
			break
		}
		if p.peek().kind == tkRBrace {
			break
		}
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.peek().kind == tkColon {
			p.next()
		}
	}
	return stmts, p.diags
}

func (p *parser) peek() lexToken {
	if p.pos >= len(p.toks) {
		return lexToken{kind: tkEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) lexToken {
	i := p.pos + offset
	if i >= len(p.toks) {
		return lexToken{kind: tkEOF}
	}
	return p.toks[i]
}

func (p *parser) next() lexToken {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tkNewline {
		p.next()
	}
}

// skipToNewline discards tokens up to (not including) the next newline,
// EOF, or closing brace -- used to resynchronize after a syntax error,
// per spec.md §4.2 ("resume at the next newline").
func (p *parser) skipToNewline() {
	for {
		switch p.peek().kind {
		case tkNewline, tkEOF, tkRBrace:
			return
		default:
			p.next()
		}
	}
}

func (p *parser) addErr(t lexToken, format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{
		Severity: SeverityError,
		Kind:     KindSyntax,
		Message:  "Syntax error: " + fmt.Sprintf(format, args...),
		Location: t.loc(),
	})
}

func (p *parser) expect(kind tokenKind, what string) (lexToken, bool) {
	t := p.peek()
	if t.kind != kind {
		p.addErr(t, "expected %s", what)
		return t, false
	}
	return p.next(), true
}

// parseExprUntil parses an expression and returns it. It relies on
// exprParser's atExprEnd to stop at the caller's expected delimiter
// (newline, comma, ')', ']', '{', etc).
func (p *parser) parseExprUntil() *Expr {
	ep := &exprParser{toks: p.toks, pos: p.pos}
	e := ep.parseExpr(0)
	p.pos = ep.pos
	p.diags = append(p.diags, ep.diags...)
	return e
}

func (p *parser) parseExprList(close tokenKind) []*Expr {
	ep := &exprParser{toks: p.toks, pos: p.pos}
	args := ep.parseArgList(close)
	p.pos = ep.pos
	p.diags = append(p.diags, ep.diags...)
	return args
}

// parseStatement parses one statement. It does not consume a trailing
// newline or ':' separator; the caller (parseProgram or parseBlock)
// handles those.
func (p *parser) parseStatement() *Stmt {
	t := p.peek()

	switch t.kind {
	case tkDirective:
		return p.parseDirective()

	case tkOp:
		if t.text.str == "+" {
			return p.parseMacroCall()
		}

	case tkAt:
		return p.parseLocalLabel()

	case tkIdent:
		if p.peekAt(1).kind == tkColon {
			return p.parseLabel()
		}
		if p.peekAt(1).kind == tkEquals {
			return p.parseLet()
		}
		return p.parseInstruction()
	}

	// '*' is lexed as tkOp (see lexer.go); disambiguate the PC-assignment
	// form "* = expr" from multiplication, which can never start a
	// statement.
	if t.kind == tkOp && t.text.str == "*" {
		return p.parseSetPC()
	}

	p.addErr(t, "unexpected token")
	p.skipToNewline()
	return nil
}

func (p *parser) parseLabel() *Stmt {
	nameTok := p.next() // identifier
	p.next()            // ':'
	return &Stmt{Kind: StLabel, Loc: locFromFstring(nameTok.text), Label: nameTok.text.str}
}

func (p *parser) parseLocalLabel() *Stmt {
	atTok := p.next() // '@'
	nameTok, ok := p.expect(tkIdent, "identifier after '@'")
	if !ok {
		p.skipToNewline()
		return nil
	}
	if p.peek().kind == tkColon {
		p.next()
	}
	return &Stmt{Kind: StLabel, Loc: locFromFstring(atTok.text), Label: "@" + nameTok.text.str, Local: true}
}

func (p *parser) parseLet() *Stmt {
	nameTok := p.next() // identifier
	p.next()            // '='
	e := p.parseExprUntil()
	return &Stmt{Kind: StLet, Loc: locFromFstring(nameTok.text), LetName: nameTok.text.str, LetExpr: e}
}

func (p *parser) parseSetPC() *Stmt {
	starTok := p.next() // '*'
	if eqTok, ok := p.expect(tkEquals, "'=' after '*'"); !ok {
		_ = eqTok
		p.skipToNewline()
		return nil
	}
	e := p.parseExprUntil()
	return &Stmt{Kind: StSetPC, Loc: locFromFstring(starTok.text), PCExpr: e}
}

func (p *parser) parseMacroCall() *Stmt {
	plusTok := p.next() // '+'
	nameTok, ok := p.expect(tkIdent, "macro name after '+'")
	if !ok {
		p.skipToNewline()
		return nil
	}
	var args []*Expr
	if p.peek().kind == tkLParen {
		p.next()
		args = p.parseExprList(tkRParen)
	}
	return &Stmt{Kind: StMacroCall, Loc: locFromFstring(plusTok.text), MacroName: nameTok.text.str, CallArgs: args}
}

func (p *parser) parseInstruction() *Stmt {
	mnemonicTok := p.next()
	stmt := &Stmt{
		Kind:     StInstruction,
		Loc:      locFromFstring(mnemonicTok.text),
		Mnemonic: strings.ToLower(mnemonicTok.text.str),
	}

	switch p.peek().kind {
	case tkNewline, tkEOF, tkColon, tkRBrace:
		stmt.Operand = &Operand{ModeGuess: mos6502.IMP}
		return stmt

	case tkHash:
		p.next()
		e := p.parseExprUntil()
		stmt.Operand = &Operand{ModeGuess: mos6502.IMM, Expr: e}
		return stmt

	case tkLParen:
		p.next()
		e := p.parseExprUntil()
		switch p.peek().kind {
		case tkComma:
			p.next()
			p.expectIndexReg("X")
			p.expect(tkRParen, "')'")
			stmt.Operand = &Operand{ModeGuess: mos6502.IDX, Expr: e}
		case tkRParen:
			p.next()
			if p.peek().kind == tkComma {
				p.next()
				p.expectIndexReg("Y")
				stmt.Operand = &Operand{ModeGuess: mos6502.IDY, Expr: e}
			} else {
				stmt.Operand = &Operand{ModeGuess: mos6502.IND, Expr: e}
			}
		default:
			p.addErr(p.peek(), "expected ',' or ')'")
		}
		return stmt

	case tkIdent:
		// A bare "a" operand selects Accumulator mode explicitly.
		if strings.EqualFold(p.peek().text.str, "a") && isLineEnd(p.peekAt(1).kind) {
			p.next()
			stmt.Operand = &Operand{ModeGuess: mos6502.ACC}
			return stmt
		}
	}

	e := p.parseExprUntil()
	mode := mos6502.ABS
	if p.peek().kind == tkComma {
		p.next()
		idx := p.peek()
		switch {
		case idx.kind == tkIdent && strings.EqualFold(idx.text.str, "x"):
			p.next()
			mode = mos6502.ABX
		case idx.kind == tkIdent && strings.EqualFold(idx.text.str, "y"):
			p.next()
			mode = mos6502.ABY
		default:
			p.addErr(idx, "expected 'X' or 'Y' after ','")
		}
	}
	stmt.Operand = &Operand{ModeGuess: mode, Expr: e}
	return stmt
}

func isLineEnd(k tokenKind) bool {
	switch k {
	case tkNewline, tkEOF, tkColon, tkRBrace:
		return true
	default:
		return false
	}
}

func (p *parser) expectIndexReg(letter string) {
	t := p.peek()
	if t.kind == tkIdent && strings.EqualFold(t.text.str, letter) {
		p.next()
		return
	}
	p.addErr(t, "expected '%s'", letter)
}

func (p *parser) parseBlock() []*Stmt {
	if _, ok := p.expect(tkLBrace, "'{'"); !ok {
		p.skipToNewline()
		return nil
	}
	var stmts []*Stmt
	for {
		p.skipNewlines()
		if p.peek().kind == tkRBrace || p.peek().kind == tkEOF {
			break
		}
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.peek().kind == tkColon {
			p.next()
		}
	}
	p.expect(tkRBrace, "'}'")
	return stmts
}

func (p *parser) parseDirective() *Stmt {
	dirTok := p.next()
	name := strings.ToLower(dirTok.text.str)
	loc := locFromFstring(dirTok.text)

	switch name {
	case "byte", "db":
		return &Stmt{Kind: StByte, Loc: loc, Exprs: p.parseExprCommaList()}

	case "word", "dw":
		return &Stmt{Kind: StWord, Loc: loc, Exprs: p.parseExprCommaList()}

	case "fill":
		count := p.parseExprUntil()
		var fill *Expr
		if p.peek().kind == tkComma {
			p.next()
			fill = p.parseExprUntil()
		}
		return &Stmt{Kind: StFill, Loc: loc, Count: count, Fill: fill}

	case "text":
		return &Stmt{Kind: StText, Loc: loc, Text: p.parseExprUntil()}

	case "binary":
		pathTok, ok := p.expect(tkString, "string literal (file path)")
		if !ok {
			p.skipToNewline()
			return nil
		}
		stmt := &Stmt{Kind: StBinary, Loc: loc, Path: pathTok.text.str}
		if p.peek().kind == tkComma {
			p.next()
			stmt.Size = p.parseExprUntil()
			if p.peek().kind == tkComma {
				p.next()
				stmt.Offset = p.parseExprUntil()
			}
		}
		return stmt

	case "include":
		pathTok, ok := p.expect(tkString, "string literal (file path)")
		if !ok {
			p.skipToNewline()
			return nil
		}
		return &Stmt{Kind: StInclude, Loc: loc, Path: pathTok.text.str}

	case "segment":
		nameTok, ok := p.expect(tkIdent, "segment name")
		if !ok {
			p.skipToNewline()
			return nil
		}
		return &Stmt{Kind: StSegment, Loc: loc, SegmentName: nameTok.text.str}

	case "align":
		return &Stmt{Kind: StAlign, Loc: loc, AlignExpr: p.parseExprUntil()}

	case "let":
		nameTok, ok := p.expect(tkIdent, "constant name")
		if !ok {
			p.skipToNewline()
			return nil
		}
		if _, ok := p.expect(tkEquals, "'='"); !ok {
			p.skipToNewline()
			return nil
		}
		return &Stmt{Kind: StLet, Loc: loc, LetName: nameTok.text.str, LetExpr: p.parseExprUntil()}

	case "if":
		return p.parseIf(loc)

	case "for":
		return p.parseFor(loc)

	case "macro":
		return p.parseMacroDef(loc)

	case "scope":
		return p.parseScope(loc)

	default:
		p.addErr(dirTok, "unknown directive '!%s'", name)
		p.skipToNewline()
		return nil
	}
}

func (p *parser) parseExprCommaList() []*Expr {
	var exprs []*Expr
	for {
		e := p.parseExprUntil()
		if e != nil {
			exprs = append(exprs, e)
		}
		if p.peek().kind == tkComma {
			p.next()
			continue
		}
		break
	}
	return exprs
}

func (p *parser) parseIf(loc SourceLocation) *Stmt {
	cond := p.parseExprUntil()
	then := p.parseBlock()
	stmt := &Stmt{Kind: StIf, Loc: loc, Cond: cond, Then: then}

	save := p.pos
	p.skipNewlines()
	if p.peek().kind == tkIdent && strings.EqualFold(p.peek().text.str, "else") {
		p.next()
		p.skipNewlines()
		if p.peek().kind == tkDirective && strings.EqualFold(p.peek().text.str, "if") {
			elseLoc := locFromFstring(p.peek().text)
			p.next()
			stmt.Else = []*Stmt{p.parseIf(elseLoc)}
		} else {
			stmt.Else = p.parseBlock()
		}
	} else {
		p.pos = save
	}
	return stmt
}

func (p *parser) parseFor(loc SourceLocation) *Stmt {
	varTok, ok := p.expect(tkIdent, "loop variable")
	if !ok {
		p.skipToNewline()
		return nil
	}
	inTok := p.peek()
	if inTok.kind != tkIdent || !strings.EqualFold(inTok.text.str, "in") {
		p.addErr(inTok, "expected 'in'")
	} else {
		p.next()
	}
	loopExpr := p.parseExprUntil()
	body := p.parseBlock()
	return &Stmt{Kind: StFor, Loc: loc, LoopVar: varTok.text.str, LoopExpr: loopExpr, Body: body}
}

func (p *parser) parseMacroDef(loc SourceLocation) *Stmt {
	nameTok, ok := p.expect(tkIdent, "macro name")
	if !ok {
		p.skipToNewline()
		return nil
	}
	var params []string
	if _, ok := p.expect(tkLParen, "'('"); ok {
		if p.peek().kind != tkRParen {
			for {
				pt, ok := p.expect(tkIdent, "parameter name")
				if !ok {
					break
				}
				params = append(params, pt.text.str)
				if p.peek().kind == tkComma {
					p.next()
					continue
				}
				break
			}
		}
		p.expect(tkRParen, "')'")
	}
	body := p.parseBlock()
	return &Stmt{Kind: StMacroDef, Loc: loc, MacroName: nameTok.text.str, Params: params, MacroBody: body}
}

func (p *parser) parseScope(loc SourceLocation) *Stmt {
	name := ""
	if p.peek().kind == tkIdent {
		name = p.next().text.str
	}
	body := p.parseBlock()
	return &Stmt{Kind: StScope, Loc: loc, ScopeName: name, ScopeBody: body}
}
