// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"strconv"
	"strings"
)

// lex tokenizes s per §4.4's lexical grammar: whitespace is skipped;
// NUMBER is digits with at most one dot; IDENT is letters, digits and
// underscore with a leading letter or underscore; the single-character
// tokens are PLUS, MINUS, MUL, DIV, LPAREN, RPAREN, COMMA, COLON. Any
// other character is a LexError.
func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	n := len(s)

	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			toks = append(toks, token{kind: tokPlus})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokMinus})
			i++
		case c == '*':
			toks = append(toks, token{kind: tokMul})
			i++
		case c == '/':
			toks = append(toks, token{kind: tokDiv})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon})
			i++
		case isDigit(c) || c == '.':
			j := i
			sawDot := false
			for j < n && (isDigit(s[j]) || s[j] == '.') {
				if s[j] == '.' {
					if sawDot {
						break
					}
					sawDot = true
				}
				j++
			}
			text := s[i:j]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &EvalError{Kind: LexError, Message: "invalid number literal: " + text}
			}
			toks = append(toks, token{kind: tokNumber, num: v, text: text})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		default:
			return nil, &EvalError{Kind: LexError, Message: "unknown character " + strconv.QuoteRune(rune(c))}
		}
	}

	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// upper is used throughout for case-insensitive function-name matching.
func upper(s string) string { return strings.ToUpper(s) }
