// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idl

import "fmt"

// ParseError reports a syntax error in Varlink interface description
// text, carrying the byte offset (and derived line/column) of the
// failure.
type ParseError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("idl: parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

func lineCol(src []byte, offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
