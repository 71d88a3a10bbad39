// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// tokenKind classifies a lexical token.
type tokenKind byte

const (
	tkEOF tokenKind = iota
	tkNewline
	tkIdent
	tkNumber
	tkString
	tkChar
	tkOp
	tkLParen
	tkRParen
	tkLBracket
	tkRBracket
	tkLBrace
	tkRBrace
	tkComma
	tkColon
	tkDoubleColon
	tkDot
	tkEquals
	tkHash
	tkStar
	tkAt
	tkDirective // a !name token, e.g. !macro, !if, !byte
)

// A lexToken is one lexical unit of the source, with its originating
// fstring span for diagnostics.
type lexToken struct {
	kind tokenKind
	text fstring // raw text of the token (numeric/string literal text
	// for tkNumber/tkString is the *contents*, not including quotes)
}

func (t lexToken) loc() SourceLocation {
	return locFromFstring(t.text)
}

// lex converts the entire source text of one file into a flat token
// stream; each !include target is lexed separately, and inclusion is
// expanded afterwards on the parsed statements. Unlike go6502's asm.go, which
// tokenizes and parses one line at a time, this lexer runs over the whole
// file up front and emits an explicit tkNewline between lines, because
// macro/scope/if/for bodies are brace-delimited blocks that may span many
// lines and must be re-walked during macro/loop expansion.
func lex(fileIndex int, source string) ([]lexToken, []Diagnostic) {
	var toks []lexToken
	var diags []Diagnostic

	addErr := func(l fstring, format string, args ...interface{}) {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Kind:     KindSyntax,
			Message:  "Syntax error: " + fmt.Sprintf(format, args...),
			Location: locFromFstring(l),
		})
	}

	lines := splitLines(source)
	inBlockComment := false

	for row, raw := range lines {
		line := newFstring(fileIndex, row+1, raw)

		if inBlockComment {
			if i := strings.Index(line.str, "*/"); i >= 0 {
				line = line.consume(i + 2)
				inBlockComment = false
			} else {
				continue
			}
		}

		for !line.isEmpty() {
			line = line.consumeWhitespace()
			if line.isEmpty() {
				break
			}

			switch {
			case line.startsWithString("/*"):
				if i := strings.Index(line.str[2:], "*/"); i >= 0 {
					line = line.consume(2 + i + 2)
				} else {
					inBlockComment = true
					line = fstring{}
				}

			case line.startsWithChar(';'):
				line = fstring{}

			case line.startsWithChar('!'):
				word, remain := line.consume(1).consumeWhile(identifierChar)
				toks = append(toks, lexToken{kind: tkDirective, text: word})
				line = remain

			case line.startsWith(identifierStartChar):
				word, remain := line.consumeWhile(identifierChar)
				toks = append(toks, lexToken{kind: tkIdent, text: word})
				line = remain

			case line.startsWith(decimal):
				num, remain := line.consumeWhile(numberChar)
				toks = append(toks, lexToken{kind: tkNumber, text: num})
				line = remain

			case line.startsWithChar('$') && line.len() > 1 && hexadecimal(line.str[1]):
				_, remain := line.consume(1).consumeWhile(hexadecimal)
				num := line.trunc(line.len() - remain.len())
				toks = append(toks, lexToken{kind: tkNumber, text: num})
				line = remain

			case line.startsWithChar('%') && line.len() > 1 && binarynum(line.str[1]):
				_, remain := line.consume(1).consumeWhile(binarynum)
				num := line.trunc(line.len() - remain.len())
				toks = append(toks, lexToken{kind: tkNumber, text: num})
				line = remain

			case line.startsWithChar('\''):
				lit, remain, err := consumeCharLiteral(line)
				if err != nil {
					addErr(line, "unterminated character literal")
					line = fstring{}
					break
				}
				toks = append(toks, lexToken{kind: tkChar, text: lit})
				line = remain

			case line.startsWithChar('"'):
				lit, remain, err := consumeStringLiteral(line)
				if err != nil {
					addErr(line, "unterminated string literal")
					line = fstring{}
					break
				}
				toks = append(toks, lexToken{kind: tkString, text: lit})
				line = remain

			case line.startsWithString("::"):
				toks = append(toks, lexToken{kind: tkDoubleColon, text: line.trunc(2)})
				line = line.consume(2)

			case line.startsWithString("<<") || line.startsWithString(">>") ||
				line.startsWithString("&&") || line.startsWithString("||") ||
				line.startsWithString("==") || line.startsWithString("!=") ||
				line.startsWithString("<=") || line.startsWithString(">="):
				toks = append(toks, lexToken{kind: tkOp, text: line.trunc(2)})
				line = line.consume(2)

			case strings.IndexByte("+-*/%&|^~<>!", line.str[0]) >= 0:
				toks = append(toks, lexToken{kind: tkOp, text: line.trunc(1)})
				line = line.consume(1)

			case line.startsWithChar('('):
				toks = append(toks, lexToken{kind: tkLParen, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar(')'):
				toks = append(toks, lexToken{kind: tkRParen, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('['):
				toks = append(toks, lexToken{kind: tkLBracket, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar(']'):
				toks = append(toks, lexToken{kind: tkRBracket, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('{'):
				toks = append(toks, lexToken{kind: tkLBrace, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('}'):
				toks = append(toks, lexToken{kind: tkRBrace, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar(','):
				toks = append(toks, lexToken{kind: tkComma, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar(':'):
				toks = append(toks, lexToken{kind: tkColon, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('.'):
				toks = append(toks, lexToken{kind: tkDot, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('='):
				toks = append(toks, lexToken{kind: tkEquals, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('#'):
				toks = append(toks, lexToken{kind: tkHash, text: line.trunc(1)})
				line = line.consume(1)
			case line.startsWithChar('@'):
				toks = append(toks, lexToken{kind: tkAt, text: line.trunc(1)})
				line = line.consume(1)

			default:
				addErr(line, "invalid token '%c'", line.str[0])
				line = line.consume(1)
			}
		}

		toks = append(toks, lexToken{kind: tkNewline, text: newFstring(fileIndex, row+1, "")})
	}

	toks = append(toks, lexToken{kind: tkEOF, text: newFstring(fileIndex, len(lines)+1, "")})
	return toks, diags
}

// splitLines splits source text on \n, \r\n, or \r, per spec.md §6
// ("line-terminator agnostic").
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

func (l fstring) len() int { return len(l.str) }

func numberChar(c byte) bool {
	return hexadecimal(c) || c == 'x' || c == 'b' || c == 'X' || c == 'B'
}

func consumeCharLiteral(l fstring) (lit fstring, remain fstring, err error) {
	if l.len() < 3 || l.str[2] != '\'' {
		return fstring{}, l, errors.New("invalid char literal")
	}
	return l.consume(1).trunc(1), l.consume(3), nil
}

func consumeStringLiteral(l fstring) (lit fstring, remain fstring, err error) {
	body := l.consume(1)
	i := 0
	for i < body.len() {
		if body.str[i] == '\\' && i+1 < body.len() {
			i += 2
			continue
		}
		if body.str[i] == '"' {
			break
		}
		i++
	}
	if i >= body.len() {
		return fstring{}, l, errors.New("unterminated string")
	}
	return body.trunc(i), body.consume(i + 1), nil
}
