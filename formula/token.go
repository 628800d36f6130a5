// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

// tokenKind enumerates the lexical token kinds of §4.4.
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokMul
	tokDiv
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
}
