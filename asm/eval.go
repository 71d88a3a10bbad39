// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// evalContext carries the state needed to evaluate one *Expr tree: the
// scope it resolves identifiers against, the current PC (for '*'), and a
// memo table scoped to a single statement's evaluation. Grounded in
// go6502's expr.eval, which memoizes resolution *in the expr node
// itself*; this assembler instead keys the memo off the node pointer in
// a map owned by an evalContext that the driver creates fresh for each
// statement, per the note in ast.go -- a value resolved against pass N's
// symbol table must never be mistaken for pass N+1's answer.
type evalContext struct {
	scope *Scope
	pc    int // -1 if the PC is not currently known
	cache map[*Expr]cachedEval
	diags []Diagnostic

	// final marks the assembler driver's last pass (spec.md §4.6): only
	// then are evaluation errors (undefined identifier, division by
	// zero, and so on) actually recorded. Earlier passes may fail to
	// resolve an expression for entirely ordinary reasons -- a forward
	// reference the symbol table hasn't caught up with yet -- and
	// recording a diagnostic for that would only be discarded again once
	// the next pass resolves it.
	final bool
}

type cachedEval struct {
	val      Value
	resolved bool
}

func newEvalContext(scope *Scope, pc int, final bool) *evalContext {
	return &evalContext{scope: scope, pc: pc, cache: make(map[*Expr]cachedEval), final: final}
}

// eval returns the expression's value and whether it was fully
// resolved. An unresolved result is not necessarily an error -- it may
// simply depend on a label whose address this pass hasn't pinned down
// yet (spec.md §4.6) -- except where eval has appended a Diagnostic
// to ctx.diags, which marks a defect no later pass can fix.
func (c *evalContext) eval(e *Expr) (Value, bool) {
	if e == nil {
		return Value{}, false
	}
	if r, ok := c.cache[e]; ok {
		return r.val, r.resolved
	}
	val, resolved := c.evalUncached(e)
	c.cache[e] = cachedEval{val, resolved}
	return val, resolved
}

func (c *evalContext) evalUncached(e *Expr) (Value, bool) {
	switch e.Kind {
	case ExNumber:
		return IntValue(e.Int), true

	case ExString:
		return StringValue(e.Str), true

	case ExHere:
		if c.pc < 0 {
			return Value{}, false
		}
		return IntValue(int64(c.pc)), true

	case ExIdent:
		return c.evalIdent(e)

	case ExUnary:
		return c.evalUnary(e)

	case ExBinary:
		return c.evalBinary(e)

	case ExCall:
		return c.evalCall(e)

	case ExIndex:
		return c.evalIndex(e)

	case ExMember:
		return c.evalMember(e)

	case ExArray:
		vals := make([]Value, 0, len(e.Args))
		for _, a := range e.Args {
			v, ok := c.eval(a)
			if !ok {
				return Value{}, false
			}
			vals = append(vals, v)
		}
		return ArrayValue(vals), true

	default:
		return Value{}, false
	}
}

func (c *evalContext) evalIdent(e *Expr) (Value, bool) {
	var sym *Symbol
	var ok bool
	if len(e.Parts) > 1 {
		sym, ok = c.scope.LookupQualified(e.Parts)
	} else {
		sym, ok = c.scope.Lookup(e.Parts[0])
	}
	if ok {
		switch sym.Kind {
		case symConstant:
			return sym.Value, sym.ValueResolved
		case symLabel:
			if sym.State == labelUndefined {
				return Value{}, false
			}
			return IntValue(int64(sym.Address)), true
		default:
			c.addErr(e, "'%s' is a macro, not a value", sym.Name)
			return Value{}, false
		}
	}
	if len(e.Parts) == 1 {
		if v, ok := lookupBuiltin(e.Parts[0]); ok {
			return v, true
		}
		c.addErr(e, "undefined identifier '%s'", e.Parts[0])
		return Value{}, false
	}
	c.addErr(e, "undefined scope or symbol '%s'", joinParts(e.Parts))
	return Value{}, false
}

func (c *evalContext) evalUnary(e *Expr) (Value, bool) {
	x, ok := c.eval(e.X)
	if !ok {
		return Value{}, false
	}
	switch e.Op {
	case "-":
		return IntValue(-x.Int()), true
	case "~":
		return IntValue(^x.Int()), true
	case "!":
		if x.Truthy() {
			return IntValue(0), true
		}
		return IntValue(1), true
	case "<":
		return IntValue(x.Int() & 0xff), true
	case ">":
		return IntValue((x.Int() >> 8) & 0xff), true
	default:
		return Value{}, false
	}
}

func (c *evalContext) evalBinary(e *Expr) (Value, bool) {
	switch e.Op {
	case "&&":
		x, ok := c.eval(e.X)
		if !ok {
			return Value{}, false
		}
		if !x.Truthy() {
			return IntValue(0), true
		}
		y, ok := c.eval(e.Y)
		if !ok {
			return Value{}, false
		}
		return boolValue(y.Truthy()), true

	case "||":
		x, ok := c.eval(e.X)
		if !ok {
			return Value{}, false
		}
		if x.Truthy() {
			return IntValue(1), true
		}
		y, ok := c.eval(e.Y)
		if !ok {
			return Value{}, false
		}
		return boolValue(y.Truthy()), true
	}

	x, xok := c.eval(e.X)
	y, yok := c.eval(e.Y)
	if !xok || !yok {
		return Value{}, false
	}

	if e.Op == "+" && x.IsString() && y.IsString() {
		buf := make([]byte, 0, len(x.Bytes())+len(y.Bytes()))
		buf = append(buf, x.Bytes()...)
		buf = append(buf, y.Bytes()...)
		return StringValue(buf), true
	}

	a, b := x.Int(), y.Int()
	switch e.Op {
	case "|":
		return IntValue(a | b), true
	case "^":
		return IntValue(a ^ b), true
	case "&":
		return IntValue(a & b), true
	case "==":
		return boolValue(a == b), true
	case "!=":
		return boolValue(a != b), true
	case "<":
		return boolValue(a < b), true
	case "<=":
		return boolValue(a <= b), true
	case ">":
		return boolValue(a > b), true
	case ">=":
		return boolValue(a >= b), true
	case "<<":
		if b < 0 || b > 63 {
			c.addErr(e, "shift count %d outside [0, 63]", b)
			return Value{}, false
		}
		return IntValue(a << uint(b)), true
	case ">>":
		if b < 0 || b > 63 {
			c.addErr(e, "shift count %d outside [0, 63]", b)
			return Value{}, false
		}
		return IntValue(a >> uint(b)), true
	case "+":
		return IntValue(a + b), true
	case "-":
		return IntValue(a - b), true
	case "*":
		return IntValue(a * b), true
	case "/":
		if b == 0 {
			c.addErr(e, "division by zero")
			return Value{}, false
		}
		return IntValue(a / b), true
	case "%":
		if b == 0 {
			c.addErr(e, "division by zero")
			return Value{}, false
		}
		return IntValue(a % b), true
	default:
		return Value{}, false
	}
}

func (c *evalContext) evalCall(e *Expr) (Value, bool) {
	if e.Fn.Kind != ExIdent || len(e.Fn.Parts) != 1 {
		c.addErr(e, "expression is not callable")
		return Value{}, false
	}
	name := e.Fn.Parts[0]
	id, ok := builtinsByName[name]
	if !ok {
		c.addErr(e, "unknown built-in '%s'", name)
		return Value{}, false
	}

	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, ok := c.eval(a)
		if !ok {
			return Value{}, false
		}
		args = append(args, v)
	}

	v, err := callBuiltin(id, args)
	if err != nil {
		c.addErr(e, "%s: %s", name, err.Error())
		return Value{}, false
	}
	return v, true
}

func (c *evalContext) evalIndex(e *Expr) (Value, bool) {
	obj, ok := c.eval(e.Obj)
	if !ok {
		return Value{}, false
	}
	idx, ok := c.eval(e.Index)
	if !ok {
		return Value{}, false
	}
	i := int(idx.Int())
	switch {
	case obj.IsArray():
		if i < 0 || i >= len(obj.Array()) {
			c.addErr(e, "array index out of range")
			return Value{}, false
		}
		return obj.Array()[i], true
	case obj.IsString():
		if i < 0 || i >= len(obj.Bytes()) {
			c.addErr(e, "string index out of range")
			return Value{}, false
		}
		return IntValue(int64(obj.Bytes()[i])), true
	default:
		c.addErr(e, "value is not indexable")
		return Value{}, false
	}
}

func (c *evalContext) evalMember(e *Expr) (Value, bool) {
	obj, ok := c.eval(e.Obj)
	if !ok {
		return Value{}, false
	}
	if !obj.IsObject() {
		c.addErr(e, "value has no field '%s'", e.Field)
		return Value{}, false
	}
	v, ok := obj.obj[e.Field]
	if !ok {
		c.addErr(e, "object has no field '%s'", e.Field)
		return Value{}, false
	}
	return v, true
}

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

func joinParts(parts []string) string {
	s := parts[0]
	for _, p := range parts[1:] {
		s += "::" + p
	}
	return s
}

func (c *evalContext) addErr(e *Expr, format string, args ...interface{}) {
	if !c.final {
		return
	}
	c.diags = append(c.diags, Diagnostic{
		Severity: SeverityError,
		Kind:     KindSemantic,
		Message:  "Semantic error: " + fmt.Sprintf(format, args...),
		Location: e.Loc,
	})
}
