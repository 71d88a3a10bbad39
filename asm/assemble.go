// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/retrocc/m6502asm/mos6502"
)

// maxPasses bounds the fixpoint loop described in spec.md §4.6.
const maxPasses = 16

// defaultOrigin is the C64 BASIC-program load address used when the
// source never assigns the PC before its first emission, per spec.md §6.
const defaultOrigin = 0x0801

const defaultSegment = ""

// Options configures one Assemble invocation. Grounded in go6502's
// assembler host options, narrowed to the two knobs this assembler's
// driver actually needs: an injectable file reader (spec.md §5) and a
// logger for per-pass tracing.
type Options struct {
	ReadFile readFileFunc
	Logger   *logrus.Logger
}

// AssembleResult is the external-interface contract of spec.md §3/§6.
type AssembleResult struct {
	ProgramBytes []byte
	Diagnostics  []Diagnostic
	DebugInfo    *DebugInfo
}

// Assemble runs the lex -> parse -> include-expand -> multi-pass-resolve
// -> emit pipeline over the source rooted at path.
func Assemble(path string, opts Options) (*AssembleResult, error) {
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = defaultReadFile
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}

	files := newFileTable()

	stmts, parseDiags, err := parseFile(path, files, readFile)
	if err != nil {
		return nil, errors.Wrapf(err, "assemble %s", path)
	}
	program, incDiags := expandIncludes(stmts, files, readFile)
	diags := append(parseDiags, incDiags...)

	d := newDriver(program, readFile, log, files)
	diags = append(diags, d.run()...)

	for i := range diags {
		diags[i].file = files.name(diags[i].Location.FileIndex)
	}
	sortDiagnostics(diags)

	return &AssembleResult{
		ProgramBytes: d.programBytes(),
		Diagnostics:  diags,
		DebugInfo:    d.debug,
	}, nil
}

func sortDiagnostics(diags []Diagnostic) {
	slices.SortFunc(diags, func(a, b Diagnostic) int {
		if c := cmp.Compare(a.file, b.file); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Location.StartLine, b.Location.StartLine); c != 0 {
			return c
		}
		return cmp.Compare(a.Location.StartCol, b.Location.StartCol)
	})
}

// fileTable assigns stable indices to source file paths, shared by the
// lexer, the parser, and the debug-info snapshot.
type fileTable struct {
	names []string
	index map[string]int
}

func newFileTable() *fileTable {
	return &fileTable{index: make(map[string]int)}
}

func (f *fileTable) indexFor(path string) int {
	if i, ok := f.index[path]; ok {
		return i
	}
	i := len(f.names)
	f.names = append(f.names, path)
	f.index[path] = i
	return i
}

func (f *fileTable) name(i int) string {
	if i < 0 || i >= len(f.names) {
		return ""
	}
	return f.names[i]
}

func parseFile(path string, files *fileTable, readFile readFileFunc) ([]*Stmt, []Diagnostic, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read source '%s'", path)
	}
	idx := files.indexFor(path)
	toks, lexDiags := lex(idx, string(data))
	stmts, parseDiags := parseProgram(toks)
	return stmts, append(lexDiags, parseDiags...), nil
}

// expandIncludes replaces every !include statement, at any nesting
// depth, with the parsed (and recursively expanded) statement list of
// the referenced file. This runs once, before any resolution pass, so
// that every pass afterward walks one fixed, already-flattened AST --
// matching spec.md §9's "do not mutate AST in place" note by treating
// inclusion as part of parsing rather than as a per-pass operation.
func expandIncludes(stmts []*Stmt, files *fileTable, readFile readFileFunc) ([]*Stmt, []Diagnostic) {
	var diags []Diagnostic
	out := make([]*Stmt, 0, len(stmts))
	for _, st := range stmts {
		switch st.Kind {
		case StInclude:
			sub, subDiags, err := parseFile(st.Path, files, readFile)
			if err != nil {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Kind:     KindResource,
					Message:  errors.Wrapf(err, "Resource error: cannot include '%s'", st.Path).Error(),
					Location: st.Loc,
				})
				continue
			}
			diags = append(diags, subDiags...)
			expanded, subIncDiags := expandIncludes(sub, files, readFile)
			diags = append(diags, subIncDiags...)
			out = append(out, expanded...)

		case StIf:
			st.Then, diags = expandAndCollect(st.Then, files, readFile, diags)
			st.Else, diags = expandAndCollect(st.Else, files, readFile, diags)
			out = append(out, st)

		case StFor:
			st.Body, diags = expandAndCollect(st.Body, files, readFile, diags)
			out = append(out, st)

		case StMacroDef:
			st.MacroBody, diags = expandAndCollect(st.MacroBody, files, readFile, diags)
			out = append(out, st)

		case StScope:
			st.ScopeBody, diags = expandAndCollect(st.ScopeBody, files, readFile, diags)
			out = append(out, st)

		default:
			out = append(out, st)
		}
	}
	return out, diags
}

func expandAndCollect(stmts []*Stmt, files *fileTable, readFile readFileFunc, diags []Diagnostic) ([]*Stmt, []Diagnostic) {
	exp, d := expandIncludes(stmts, files, readFile)
	return exp, append(diags, d...)
}

// driver holds the state that persists across resolution passes: the
// segment set, and the stability trackers keyed so that the same label
// or instruction occupies the same key on every pass (spec.md §9).
type driver struct {
	program  []*Stmt
	readFile readFileFunc
	log      *logrus.Logger
	files    *fileTable

	segments map[string]*segment
	segOrder []string

	prevLabelValue map[string]int64
	prevMode       map[int]mos6502.Mode

	debug *DebugInfo
}

func newDriver(program []*Stmt, readFile readFileFunc, log *logrus.Logger, files *fileTable) *driver {
	return &driver{
		program:        program,
		readFile:       readFile,
		log:            log,
		files:          files,
		prevLabelValue: make(map[string]int64),
		prevMode:       make(map[int]mos6502.Mode),
	}
}

func (d *driver) resetSegments() {
	d.segments = map[string]*segment{defaultSegment: newSegment(defaultSegment)}
	d.segOrder = []string{defaultSegment}
}

func (d *driver) getSegment(pc *pctx, name string) *segment {
	if s, ok := d.segments[name]; ok {
		return s
	}
	s := newSegment(name)
	d.segments[name] = s
	d.segOrder = append(d.segOrder, name)
	return s
}

// run executes resolution passes until stable (or the pass cap is hit),
// then one final pass that turns any remaining unresolved reference into
// a hard error, per spec.md §4.6.
func (d *driver) run() []Diagnostic {
	stable := false
	for pass := 1; pass <= maxPasses; pass++ {
		changed := d.walk(false)
		d.log.WithFields(logrus.Fields{"pass": pass, "changed": changed}).Debug("resolution pass complete")
		if !changed {
			stable = true
			break
		}
	}

	var diags []Diagnostic
	if !stable {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Kind:     KindConvergence,
			Message:  errors.Errorf("Convergence error: assembly did not converge after %d passes", maxPasses).Error(),
		})
	}

	d.debug = newDebugInfo(d.files.names)
	diags = append(diags, d.walkFinal()...)

	def := d.segments[defaultSegment]
	d.debug.Origin = defaultOrigin
	if def.pcSet {
		d.debug.Origin = def.Origin
	}
	for _, name := range d.segOrder {
		d.debug.Size += len(d.segments[name].Bytes)
	}

	return diags
}

func (d *driver) programBytes() []byte {
	if d.segments == nil {
		return nil
	}
	def := d.segments[defaultSegment]
	origin := defaultOrigin
	if def.pcSet {
		origin = def.Origin
	}
	out := make([]byte, 2, 2+len(def.Bytes))
	out[0] = byte(origin)
	out[1] = byte(origin >> 8)
	for _, name := range d.segOrder {
		out = append(out, d.segments[name].Bytes...)
	}
	return out
}

// pctx carries the mutable state threaded through one resolution or
// final pass's AST walk: the currently active segment, the instability
// signals the driver's convergence test watches, and (final pass only)
// the debug-info sink.
type pctx struct {
	final       bool
	curSeg      *segment
	occurrence  int
	invocations map[string]int
	changed     bool
	diags       []Diagnostic
	debug       *DebugInfo
}

func (d *driver) walk(final bool) bool {
	d.resetSegments()
	pc := &pctx{final: final, invocations: make(map[string]int)}
	pc.curSeg = d.segments[defaultSegment]
	d.walkStmts(d.program, NewRootScope(), nil, pc)
	return pc.changed
}

func (d *driver) walkFinal() []Diagnostic {
	d.resetSegments()
	pc := &pctx{final: true, invocations: make(map[string]int), debug: d.debug}
	pc.curSeg = d.segments[defaultSegment]
	root := NewRootScope()
	d.walkStmts(d.program, root, nil, pc)
	return pc.diags
}

func (d *driver) addDiag(pc *pctx, sev Severity, kind ErrorKind, loc SourceLocation, format string, args ...interface{}) {
	if !pc.final {
		return
	}
	pc.diags = append(pc.diags, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// ensureStarted lazily applies the default-segment bootstrap: the first
// time anything is written to the unnamed default segment without the
// source having already set its PC via "* = expr", prepend the BASIC
// stub per spec.md §6.
func (s *segment) ensureStarted(isDefault bool) {
	if s.pcSet {
		return
	}
	if !isDefault {
		s.pcSet = true
		return
	}
	stub, codeStart := buildBasicStub(defaultOrigin)
	s.Origin = defaultOrigin
	s.pcSet = true
	s.PC = defaultOrigin
	s.Bytes = append(s.Bytes, stub...)
	s.PC = codeStart
}

// buildBasicStub returns the tokenized one-line BASIC program
// "<line> SYS <target>" loaded at origin, where target is the address
// immediately following the stub. Because the stub's own length depends
// on the decimal digit-count of target, which depends on the stub's
// length, this resolves the small fixpoint in at most two iterations
// (digit count changes only at a power-of-ten boundary).
func buildBasicStub(origin int) (stub []byte, codeStart int) {
	digits := 4
	for i := 0; i < 2; i++ {
		length := 8 + digits
		target := origin + length
		s := strconv.Itoa(target)
		if len(s) == digits {
			link := origin + length - 2
			b := make([]byte, 0, length)
			b = append(b, byte(link), byte(link>>8))
			b = append(b, 0x0a, 0x00) // line number 10
			b = append(b, 0x9e)       // SYS token
			b = append(b, s...)
			b = append(b, 0x00)       // end of statement
			b = append(b, 0x00, 0x00) // end of program
			return b, target
		}
		digits = len(s)
	}
	// Unreachable for any address in the 16-bit range, but fall back to
	// a plain zero-stub rather than panicking.
	return []byte{0, 0, 0, 0}, origin + 4
}

// walkStmts executes one statement list against scope (for ordinary
// lexical lookup) and labelScope (the nearest enclosing non-anonymous
// scope, which is where "@name" locals attach per spec.md §4.2).
func (d *driver) walkStmts(stmts []*Stmt, scope, labelScope *Scope, pc *pctx) {
	if labelScope == nil {
		labelScope = scope
	}
	for _, st := range stmts {
		d.walkStmt(st, scope, labelScope, pc)
	}
}

func (d *driver) walkStmt(st *Stmt, scope, labelScope *Scope, pc *pctx) {
	switch st.Kind {
	case StLabel:
		d.declareLabel(st, scope, labelScope, pc)

	case StLet:
		d.declareLet(st, scope, pc)

	case StInstruction:
		d.emitInstruction(st, scope, pc)

	case StByte:
		d.emitByte(st, scope, pc)

	case StWord:
		d.emitWord(st, scope, pc)

	case StFill:
		d.emitFill(st, scope, pc)

	case StText:
		d.emitText(st, scope, pc)

	case StBinary:
		d.emitBinary(st, scope, pc)

	case StAlign:
		d.emitAlign(st, scope, pc)

	case StSetPC:
		ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
		v, ok := ec.eval(st.PCExpr)
		pc.diags = append(pc.diags, ec.diags...)
		if ok {
			pc.curSeg.setPC(int(v.Int()))
		}

	case StSegment:
		pc.curSeg = d.getSegment(pc, st.SegmentName)

	case StScope:
		child := scope.NewChild(st.ScopeName)
		d.walkStmts(st.ScopeBody, child, child, pc)

	case StIf:
		d.walkIf(st, scope, labelScope, pc)

	case StFor:
		d.walkFor(st, scope, labelScope, pc)

	case StMacroDef:
		scope.Declare(&Symbol{
			Kind:      symMacro,
			Name:      st.MacroName,
			DefinedAt: st.Loc,
			ScopePath: scope.Path(),
			Params:    st.Params,
			Body:      st.MacroBody,
			Captured:  scope,
		})

	case StMacroCall:
		d.walkMacroCall(st, scope, pc)

	case StInclude:
		// Resolved entirely during expandIncludes; nothing left to do.
	}
}

func (d *driver) declareLabel(st *Stmt, scope, labelScope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)

	target := scope
	if st.Local {
		target = labelScope
	}
	addr := pc.curSeg.PC
	sym := &Symbol{
		Kind:      symLabel,
		Name:      st.Label,
		DefinedAt: st.Loc,
		ScopePath: target.Path(),
		Address:   addr,
		State:     labelTentative,
	}
	if pc.final {
		sym.State = labelFinal
	}
	if !target.Declare(sym) {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: '%s' is already defined in this scope", st.Label)
		return
	}

	key := strings.Join(target.Path(), "/") + "::" + st.Label
	if prev, ok := d.prevLabelValue[key]; !ok || prev != int64(addr) {
		pc.changed = true
	}
	d.prevLabelValue[key] = int64(addr)

	if pc.final && pc.debug != nil {
		pc.debug.Symbols = append(pc.debug.Symbols, SymbolInfo{
			Name:    qualifiedName(target, st.Label),
			Address: addr,
			Segment: pc.curSeg.Name,
			Source:  d.files.name(st.Loc.FileIndex),
			Line:    st.Loc.StartLine,
		})
	}
}

func qualifiedName(scope *Scope, name string) string {
	path := scope.Path()
	if len(path) == 0 {
		return name
	}
	return strings.Join(path, "::") + "::" + name
}

func (d *driver) declareLet(st *Stmt, scope *Scope, pc *pctx) {
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	v, ok := ec.eval(st.LetExpr)
	pc.diags = append(pc.diags, ec.diags...)

	sym := &Symbol{
		Kind:          symConstant,
		Name:          st.LetName,
		DefinedAt:     st.Loc,
		ScopePath:     scope.Path(),
		Value:         v,
		ValueResolved: ok,
	}
	if !scope.Declare(sym) {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: '%s' is already defined in this scope", st.LetName)
		return
	}
	if !ok {
		pc.changed = true
	}
	if pc.final && pc.debug != nil {
		pc.debug.Constants = append(pc.debug.Constants, ConstantInfo{
			Name:   qualifiedName(scope, st.LetName),
			Value:  v.String(),
			Source: d.files.name(st.Loc.FileIndex),
			Line:   st.Loc.StartLine,
		})
	}
}

func (d *driver) emitInstruction(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)

	op := st.Operand
	guess := mos6502.ABS
	var exprVal int64
	resolved := true
	if op != nil {
		guess = op.ModeGuess
		if op.Expr != nil {
			ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
			v, ok := ec.eval(op.Expr)
			pc.diags = append(pc.diags, ec.diags...)
			exprVal, resolved = v.Int(), ok
		}
	}

	insts := mos6502.ByMnemonic(strings.ToUpper(st.Mnemonic))
	if len(insts) == 0 {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: unknown mnemonic '%s'", st.Mnemonic)
		return
	}

	occ := pc.occurrence
	pc.occurrence++

	chosen, ok := selectInstruction(insts, guess, exprVal, resolved)
	if !ok {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: illegal addressing mode for '%s'", st.Mnemonic)
		return
	}
	if prev, seen := d.prevMode[occ]; !seen || prev != chosen.Mode {
		pc.changed = true
	}
	d.prevMode[occ] = chosen.Mode

	addr := pc.curSeg.PC

	var out []byte
	if chosen.Mode == mos6502.REL {
		var offset byte
		if resolved {
			off, inRange := branchOffset(addr, exprVal)
			if !inRange {
				d.addDiag(pc, SeverityError, KindRange, st.Loc, "Range error: branch target out of signed 8-bit range")
			} else {
				offset = off
			}
		} else {
			pc.changed = true
		}
		out = []byte{chosen.Opcode, offset}
	} else {
		out = append([]byte{chosen.Opcode}, encodeOperandBytes(chosen, exprVal)...)
		if op != nil && op.Expr != nil && !resolved {
			pc.changed = true
		}
	}

	pc.curSeg.write(out...)
	d.recordBytes(pc, addr, len(out), st.Loc, true)
}

func (d *driver) recordBytes(pc *pctx, addr, n int, loc SourceLocation, isInstruction bool) {
	if !pc.final || pc.debug == nil {
		return
	}
	for i := 0; i < n; i++ {
		role := roleData
		if isInstruction {
			role = roleInstructionContinuation
			if i == 0 {
				role = roleInstructionStart
			}
		}
		pc.debug.record(addr+i, loc.FileIndex, loc.StartLine, role)
	}
}

func (d *driver) emitByte(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	for _, e := range st.Exprs {
		ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
		addr := pc.curSeg.PC
		b := evalByteExpr(ec, e, pc.final)
		pc.diags = append(pc.diags, ec.diags...)
		pc.curSeg.write(b)
		d.recordBytes(pc, addr, 1, e.Loc, false)
	}
}

func (d *driver) emitWord(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	for _, e := range st.Exprs {
		ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
		addr := pc.curSeg.PC
		lo, hi := evalWordExpr(ec, e, pc.final)
		pc.diags = append(pc.diags, ec.diags...)
		pc.curSeg.write(lo, hi)
		d.recordBytes(pc, addr, 2, e.Loc, false)
	}
}

func (d *driver) emitFill(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	addr := pc.curSeg.PC
	bytes := evalFill(ec, st, pc.final)
	pc.diags = append(pc.diags, ec.diags...)
	if bytes == nil {
		return
	}
	pc.curSeg.write(bytes...)
	d.recordBytes(pc, addr, len(bytes), st.Loc, false)
}

func (d *driver) emitText(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	addr := pc.curSeg.PC
	bytes := evalText(ec, st)
	pc.diags = append(pc.diags, ec.diags...)
	pc.curSeg.write(bytes...)
	d.recordBytes(pc, addr, len(bytes), st.Loc, false)
}

func (d *driver) emitBinary(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	addr := pc.curSeg.PC
	bytes := evalBinary(ec, st, d.readFile)
	pc.diags = append(pc.diags, ec.diags...)
	pc.curSeg.write(bytes...)
	d.recordBytes(pc, addr, len(bytes), st.Loc, false)
}

func (d *driver) emitAlign(st *Stmt, scope *Scope, pc *pctx) {
	pc.curSeg.ensureStarted(pc.curSeg.Name == defaultSegment)
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	v, ok := ec.eval(st.AlignExpr)
	pc.diags = append(pc.diags, ec.diags...)
	if !ok {
		pc.changed = true
		return
	}
	align := int(v.Int())
	if align <= 0 {
		return
	}
	addr := pc.curSeg.PC
	pad := (align - (addr % align)) % align
	if pad == 0 {
		return
	}
	bytes := make([]byte, pad)
	pc.curSeg.write(bytes...)
	d.recordBytes(pc, addr, pad, st.Loc, false)
}

func (d *driver) walkIf(st *Stmt, scope, labelScope *Scope, pc *pctx) {
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	cond, ok := ec.eval(st.Cond)
	pc.diags = append(pc.diags, ec.diags...)

	if !ok {
		// spec.md §9's open-question resolution: an unresolved condition
		// is treated as not-taken for this pass, but flags instability
		// so a later pass can reconsider it.
		pc.changed = true
		if pc.final {
			d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: unresolved !if condition")
		}
		return
	}

	child := scope.NewChild("")
	if cond.Truthy() {
		d.walkStmts(st.Then, child, labelScope, pc)
	} else {
		d.walkStmts(st.Else, child, labelScope, pc)
	}
}

func (d *driver) walkFor(st *Stmt, scope, labelScope *Scope, pc *pctx) {
	ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
	v, ok := ec.eval(st.LoopExpr)
	pc.diags = append(pc.diags, ec.diags...)
	if !ok {
		pc.changed = true
		if pc.final {
			d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: unresolved !for range")
		}
		return
	}

	var items []Value
	switch {
	case v.IsArray():
		items = v.Array()
	case v.IsInteger():
		n := v.Int()
		items = make([]Value, 0, n)
		for i := int64(0); i < n; i++ {
			items = append(items, IntValue(i))
		}
	default:
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: !for requires an array or integer range")
		return
	}

	for _, item := range items {
		child := scope.NewChild("")
		child.Declare(&Symbol{Kind: symConstant, Name: st.LoopVar, Value: item, ValueResolved: true, DefinedAt: st.Loc, ScopePath: child.Path()})
		d.walkStmts(st.Body, child, labelScope, pc)
	}
}

func (d *driver) walkMacroCall(st *Stmt, scope *Scope, pc *pctx) {
	sym, ok := scope.Lookup(st.MacroName)
	if !ok || sym.Kind != symMacro {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: undefined macro '%s'", st.MacroName)
		return
	}
	if len(st.CallArgs) != len(sym.Params) {
		d.addDiag(pc, SeverityError, KindSemantic, st.Loc, "Semantic error: macro '%s' expects %d argument(s), got %d", st.MacroName, len(sym.Params), len(st.CallArgs))
		return
	}

	pc.invocations[st.MacroName]++
	idx := pc.invocations[st.MacroName]
	invScope := sym.Captured.NewChild(fmt.Sprintf("%s#%d", st.MacroName, idx))

	for i, p := range sym.Params {
		ec := newEvalContext(scope, pc.curSeg.PC, pc.final)
		v, ok := ec.eval(st.CallArgs[i])
		pc.diags = append(pc.diags, ec.diags...)
		invScope.Declare(&Symbol{Kind: symConstant, Name: p, Value: v, ValueResolved: ok, DefinedAt: st.Loc, ScopePath: invScope.Path()})
	}

	d.walkStmts(sym.Body, invScope, invScope, pc)
}
