// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

// ErrorKind classifies an EvalError, following §7's error kinds.
type ErrorKind int

// Error kinds (§7).
const (
	LexError ErrorKind = iota
	ParseError
	UnknownFunction
	ArityError
	ArgumentError
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case UnknownFunction:
		return "unknown function"
	case ArityError:
		return "arity error"
	case ArgumentError:
		return "argument error"
	default:
		return "eval error"
	}
}

// EvalError is the single error variant raised by lexing, parsing and
// evaluation (§7): every failure kind carries a human-readable message.
// Evaluation errors do not partially publish a value.
type EvalError struct {
	Kind    ErrorKind
	Message string
}

func (e *EvalError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func errf(kind ErrorKind, msg string) error {
	return &EvalError{Kind: kind, Message: msg}
}
