// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// asciiToPetscii converts an ASCII-encoded source string into the
// byte encoding the Commodore 64's screen/KERNAL text routines expect,
// per spec.md §4.7 ("a PETSCII-conversion function used by !text").
// Only letters are changed: lower-case ASCII ($61-$7A) maps to $01-$1A
// and upper-case ASCII ($41-$5A) maps to $C1-$DA. Digits, punctuation,
// control codes and every other byte pass through unchanged.
func asciiToPetscii(ascii []byte) []byte {
	out := make([]byte, len(ascii))
	for i, c := range ascii {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 1
		case c >= 'A' && c <= 'Z':
			out[i] = c - 'A' + 0xc1
		default:
			out[i] = c
		}
	}
	return out
}
