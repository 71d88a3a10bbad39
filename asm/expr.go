// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// binaryPrec gives the precedence of each binary operator, lowest to
// highest, per spec.md §4.5. Grounded in go6502's asm/expr.go ops table,
// extended with the comparison and logical operators go6502 never
// needed (it only ever evaluated addresses and byte values, never
// conditions).
var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

// unaryOps is the set of operators that may appear in prefix position,
// per spec.md §4.5.
var unaryOps = map[string]bool{
	"-": true, "~": true, "!": true, "<": true, ">": true,
}

// exprParser turns a flat token stream into an *Expr tree. Unlike
// go6502's exprParser, which runs Dijkstra's shunting-yard algorithm
// directly over a single line of unlexed text and produces a
// self-mutating expr node, this parser consumes already-lexed tokens
// (so it composes with the brace-delimited block structure used by
// macros/!if/!for) and does precedence climbing over a recursive
// descent for primaries, postfixes (call/subscript/member) and unary
// prefixes -- go6502 never needed those because its dialect has no
// function calls, arrays, or member access.
type exprParser struct {
	toks  []lexToken
	pos   int
	diags []Diagnostic
}

func (p *exprParser) peek() lexToken {
	if p.pos >= len(p.toks) {
		return lexToken{kind: tkEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() lexToken {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *exprParser) atExprEnd() bool {
	switch p.peek().kind {
	case tkEOF, tkNewline, tkComma, tkRParen, tkRBracket, tkRBrace, tkColon, tkLBrace:
		return true
	default:
		return false
	}
}

// parseExpr implements precedence climbing: minPrec is the lowest
// operator precedence this call is willing to consume.
func (p *exprParser) parseExpr(minPrec int) *Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for !p.atExprEnd() {
		opTok := p.peek()
		sym, ok := binaryOpSymbol(opTok)
		if !ok {
			break
		}
		prec, ok := binaryPrec[sym]
		if !ok || prec < minPrec {
			break
		}
		p.next()
		right := p.parseExpr(prec + 1) // left-associative: require strictly higher precedence on the right
		if right == nil {
			p.addError(opTok, "expected expression after '%s'", sym)
			break
		}
		left = &Expr{Kind: ExBinary, Loc: left.Loc, Op: sym, X: left, Y: right}
	}
	return left
}

// binaryOpSymbol reports whether tok can be read as an infix operator.
// It is only ever called once a complete left operand has already been
// parsed, so '*' unambiguously means multiplication here -- the
// "current PC" reading is only available in parsePrimary, where no left
// operand exists yet.
func binaryOpSymbol(tok lexToken) (string, bool) {
	if tok.kind != tkOp {
		return "", false
	}
	sym := tok.text.str
	if _, ok := binaryPrec[sym]; ok {
		return sym, true
	}
	return "", false
}

func (p *exprParser) parseUnary() *Expr {
	t := p.peek()
	if t.kind == tkOp && unaryOps[t.text.str] {
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			p.addError(t, "expected expression after unary '%s'", t.text.str)
			return nil
		}
		return &Expr{Kind: ExUnary, Loc: locFromFstring(t.text), Op: t.text.str, X: operand}
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() *Expr {
	e := p.parsePrimary()
	if e == nil {
		return nil
	}
	for {
		switch p.peek().kind {
		case tkLParen:
			p.next()
			args := p.parseArgList(tkRParen)
			e = &Expr{Kind: ExCall, Loc: e.Loc, Fn: e, Args: args}

		case tkLBracket:
			p.next()
			idx := p.parseExpr(0)
			if p.peek().kind == tkRBracket {
				p.next()
			} else {
				p.addError(p.peek(), "expected ']'")
			}
			e = &Expr{Kind: ExIndex, Loc: e.Loc, Obj: e, Index: idx}

		case tkDot:
			p.next()
			field := p.peek()
			if field.kind != tkIdent {
				p.addError(field, "expected field name after '.'")
				return e
			}
			p.next()
			e = &Expr{Kind: ExMember, Loc: e.Loc, Obj: e, Field: field.text.str}

		default:
			return e
		}
	}
}

func (p *exprParser) parseArgList(close tokenKind) []*Expr {
	var args []*Expr
	if p.peek().kind == close {
		p.next()
		return args
	}
	for {
		e := p.parseExpr(0)
		if e != nil {
			args = append(args, e)
		}
		if p.peek().kind == tkComma {
			p.next()
			continue
		}
		break
	}
	if p.peek().kind == close {
		p.next()
	} else {
		p.addError(p.peek(), "expected closing delimiter")
	}
	return args
}

func (p *exprParser) parsePrimary() *Expr {
	t := p.peek()
	switch t.kind {
	case tkNumber, tkChar:
		p.next()
		val, err := parseNumberToken(t)
		if err != nil {
			p.addError(t, "invalid numeric literal '%s'", t.text.str)
			val = 0
		}
		return &Expr{Kind: ExNumber, Loc: locFromFstring(t.text), Int: val}

	case tkString:
		p.next()
		return &Expr{Kind: ExString, Loc: locFromFstring(t.text), Str: unescapeString(t.text.str)}

	case tkIdent:
		p.next()
		parts := []string{t.text.str}
		for p.peek().kind == tkDoubleColon {
			p.next()
			nt := p.peek()
			if nt.kind != tkIdent {
				p.addError(nt, "expected identifier after '::'")
				break
			}
			p.next()
			parts = append(parts, nt.text.str)
		}
		return &Expr{Kind: ExIdent, Loc: locFromFstring(t.text), Parts: parts}

	case tkAt:
		p.next()
		nt := p.peek()
		if nt.kind != tkIdent {
			p.addError(nt, "expected identifier after '@'")
			return nil
		}
		p.next()
		return &Expr{Kind: ExIdent, Loc: locFromFstring(t.text), Parts: []string{"@" + nt.text.str}}

	case tkOp:
		if t.text.str == "*" {
			p.next()
			return &Expr{Kind: ExHere, Loc: locFromFstring(t.text)}
		}

	case tkLParen:
		p.next()
		e := p.parseExpr(0)
		if p.peek().kind == tkRParen {
			p.next()
		} else {
			p.addError(p.peek(), "expected ')'")
		}
		return e

	case tkLBracket:
		p.next()
		args := p.parseArgList(tkRBracket)
		return &Expr{Kind: ExArray, Loc: locFromFstring(t.text), Args: args}
	}

	p.addError(t, "expected expression")
	return nil
}

func (p *exprParser) addError(t lexToken, format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{
		Severity: SeverityError,
		Kind:     KindSyntax,
		Message:  "Syntax error: " + fmt.Sprintf(format, args...),
		Location: t.loc(),
	})
}

// parseNumberToken interprets a tkNumber/tkChar token's text. Grounded in
// go6502's asm/expr.go parseNumber, simplified because the lexer has
// already delimited the token's extent -- this function only needs to
// strip the base prefix and hand the digits to strconv.
func parseNumberToken(t lexToken) (int64, error) {
	if t.kind == tkChar {
		if t.text.len() == 0 {
			return 0, fmt.Errorf("empty character literal")
		}
		return int64(t.text.str[0]), nil
	}

	s := t.text.str
	base := 10
	switch {
	case strings.HasPrefix(s, "$"):
		base, s = 16, s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "%"):
		base, s = 2, s[1:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	}
	return strconv.ParseInt(s, base, 64)
}

// unescapeString interprets the backslash escapes allowed inside a
// string literal's contents (the lexer has already stripped the
// surrounding quotes).
func unescapeString(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '0':
				out = append(out, 0)
			case '\\', '"', '\'':
				out = append(out, s[i])
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return out
}
