// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"path/filepath"
)

// A SourceLocation identifies a span of source text: which file it came
// from (by index into the assembler's file table) and its 1-based
// line/column extent.
type SourceLocation struct {
	FileIndex int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func locFromFstring(l fstring) SourceLocation {
	endCol := l.column + len(l.str)
	return SourceLocation{
		FileIndex: l.fileIndex,
		StartLine: l.row,
		StartCol:  l.column + 1,
		EndLine:   l.row,
		EndCol:    endCol + 1,
	}
}

// Severity classifies a Diagnostic.
type Severity byte

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ErrorKind further classifies error-severity diagnostics, per spec.md §7.
type ErrorKind byte

const (
	KindSyntax ErrorKind = iota
	KindSemantic
	KindRange
	KindResource
	KindConvergence
	KindNone // used for warnings
)

// A Diagnostic reports one problem found during assembly.
type Diagnostic struct {
	Severity Severity
	Kind     ErrorKind
	Message  string
	Location SourceLocation
	file     string // set by Assemble from the file table before it returns
}

// Format renders the diagnostic as
// "<file>:<line>:<col> - <severity>: <message>", matching spec.md §6. Path
// separators are normalized to forward slashes. Syntax errors are
// prefixed with "Syntax error: " in Message already (see lex, parser.addErr
// and exprParser.addError),
// so that the first line of the formatted text begins with that phrase.
func (d Diagnostic) Format() string {
	file := filepath.ToSlash(d.file)
	return fmt.Sprintf("%s:%d:%d - %s: %s", file, d.Location.StartLine, d.Location.StartCol, d.Severity, d.Message)
}
