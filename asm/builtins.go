// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// builtinID identifies one of the fixed set of built-in callables
// available to expressions, per spec.md §4.5. There is no user-defined
// function syntax -- go6502 has no callable expressions at all, so this
// whole table is new, grounded in the *names* spec.md enumerates rather
// than in any go6502 code.
type builtinID byte

const (
	builtinLo builtinID = iota
	builtinHi
	builtinLen
	builtinSizeof
	builtinMin
	builtinMax
	builtinAbs
	builtinStr
	builtinChars
	builtinPetscii
)

var builtinsByName = map[string]builtinID{
	"lo":      builtinLo,
	"hi":      builtinHi,
	"len":     builtinLen,
	"sizeof":  builtinSizeof,
	"min":     builtinMin,
	"max":     builtinMax,
	"abs":     builtinAbs,
	"str":     builtinStr,
	"chars":   builtinChars,
	"petscii": builtinPetscii,
}

var builtinArity = map[builtinID]int{
	builtinLo:      1,
	builtinHi:      1,
	builtinLen:     1,
	builtinSizeof:  1,
	builtinMin:     2,
	builtinMax:     2,
	builtinAbs:     1,
	builtinStr:     1,
	builtinChars:   1,
	builtinPetscii: 1,
}

// lookupBuiltin resolves a bare identifier to a callable Value. evalIdent
// uses it as the fallback for a single-part name that matches no symbol;
// calls such as "lo(addr)" are resolved by evalCall through
// builtinsByName directly.
func lookupBuiltin(name string) (Value, bool) {
	id, ok := builtinsByName[name]
	if !ok {
		return Value{}, false
	}
	return callableValue(id), true
}

// callBuiltin evaluates a fully-resolved call to a built-in. It returns
// an error only for a misuse that can never become valid on a later
// pass (wrong argument count). Argument kinds are not checked: an
// integer built-in given a string or array reads it through Value.Int,
// and a byte-oriented one reads Value.Bytes. An operand that simply isn't
// resolved yet is the caller's responsibility to detect before calling
// this function.
func callBuiltin(id builtinID, args []Value) (Value, error) {
	if want := builtinArity[id]; len(args) != want {
		return Value{}, fmt.Errorf("expects %d argument(s), got %d", want, len(args))
	}

	switch id {
	case builtinLo:
		return IntValue(args[0].Int() & 0xff), nil

	case builtinHi:
		return IntValue((args[0].Int() >> 8) & 0xff), nil

	case builtinLen:
		return IntValue(int64(args[0].Len())), nil

	case builtinSizeof:
		v := args[0].Int()
		if v < 0 {
			v = -v
		}
		if v > 0xff {
			return IntValue(2), nil
		}
		return IntValue(1), nil

	case builtinMin:
		a, b := args[0].Int(), args[1].Int()
		if a < b {
			return IntValue(a), nil
		}
		return IntValue(b), nil

	case builtinMax:
		a, b := args[0].Int(), args[1].Int()
		if a > b {
			return IntValue(a), nil
		}
		return IntValue(b), nil

	case builtinAbs:
		v := args[0].Int()
		if v < 0 {
			v = -v
		}
		return IntValue(v), nil

	case builtinStr:
		if args[0].IsString() {
			return args[0], nil
		}
		if args[0].IsArray() {
			b := make([]byte, 0, len(args[0].Array()))
			for _, e := range args[0].Array() {
				b = append(b, byte(e.Int()))
			}
			return StringValue(b), nil
		}
		return StringValue([]byte(fmt.Sprintf("%d", args[0].Int()))), nil

	case builtinChars:
		var elems []Value
		for _, b := range args[0].Bytes() {
			elems = append(elems, IntValue(int64(b)))
		}
		return ArrayValue(elems), nil

	case builtinPetscii:
		return StringValue(asciiToPetscii(args[0].Bytes())), nil

	default:
		return Value{}, fmt.Errorf("unknown built-in")
	}
}
