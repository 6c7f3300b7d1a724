// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the lexer for the Nano language: a single-pass
// scanner producing a token stream with line numbers from one source file
// (spec.md 4.1, component C2).
package scanner

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/nano/lang/token"
)

// Error and ErrorList are re-exported here so callers throughout the
// compiler pipeline can write scanner.ErrorList without also importing the
// token package; see token.Error for the shape, modeled on go/scanner.Error.
type (
	Error     = token.Error
	ErrorList = token.ErrorList
)

// PrintError is a utility function that prints a list of errors to w, one
// error per line, if the err parameter is an ErrorList. Otherwise it
// prints the err string.
func PrintError(w io.Writer, err error) {
	if list, ok := err.(ErrorList); ok {
		for _, e := range list {
			fmt.Fprintf(w, "%s\n", e)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "%s\n", err)
	}
}

// TokenAndValue combines the token type with the token value type in the
// same struct.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// Scanner tokenizes a source file for the parser to consume. It is
// restartable: calling Init again resets all mutable scanning state
// (spec.md 4.1).
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	cur         rune // current character
	off         int  // byte offset of cur
	roff        int  // reading offset (byte offset after cur)
	invalidByte byte
}

// Init initializes (or re-initializes) the scanner to tokenize src, which
// must have the same length as file.Size().
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// advance reads the next Unicode char into s.cur; s.cur < 0 means EOF.
func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file, filling *tokVal with its
// payload.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipSpaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.identifier()
		tok = token.LookupIdent(strings.ToLower(lit))
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || (cur == '.' && isDigit(rune(s.peek()))):
		tok, *tokVal = s.number(pos, start)

	default:
		switch cur {
		case '\n':
			s.advance()
			tok = token.EOL
			*tokVal = token.Value{Raw: "\n", Pos: pos}

		case '"':
			lit, val, ok := s.shortString()
			if !ok {
				s.error(start, "string_quote_mismatch: unterminated string literal")
				tok = token.ILLEGAL
			} else {
				tok = token.STRING
			}
			*tokVal = token.Value{Raw: lit, Pos: pos, String: val}

		case '(':
			s.advance()
			tok = token.LPAREN
		case ')':
			s.advance()
			tok = token.RPAREN
		case '[':
			s.advance()
			tok = token.LBRACK
		case ']':
			s.advance()
			tok = token.RBRACK
		case ',':
			s.advance()
			tok = token.COMMA

		case '=':
			s.advance()
			tok = token.EQ
			if s.advanceIf('=') {
				tok = token.EQEQ
			}

		case '<':
			s.advance()
			tok = token.LT
			if s.advanceIf('=') {
				tok = token.LE
			}

		case '>':
			s.advance()
			tok = token.GT
			if s.advanceIf('=') {
				tok = token.GE
			}

		case '+':
			s.advance()
			tok = token.PLUS
			if s.advanceIf('=') {
				tok = token.PLUS_EQ
			}

		case '-':
			s.advance()
			tok = token.MINUS
			if s.advanceIf('=') {
				tok = token.MINUS_EQ
			}

		case '*':
			s.advance()
			tok = token.STAR
			if s.advanceIf('=') {
				tok = token.STAR_EQ
			}

		case '/':
			s.advance()
			tok = token.SLASH
			if s.advanceIf('=') {
				tok = token.SLASH_EQ
			}

		case '%':
			s.advance()
			tok = token.PERCENT

		case -1:
			tok = token.EOF

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(start, "illegal character %#U", cur)
			s.advance()
			tok = token.ILLEGAL
		}

		if tok != token.EOL && cur != '"' {
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos}
		}
	}
	return tok
}

// skipSpaceAndComments skips spaces, carriage returns, tabs, and "#...\n"
// comments, but stops at the newline itself so the caller can emit an EOL
// token (spec.md 4.1: EOL is emitted for every newline).
func (s *Scanner) skipSpaceAndComments() {
	for {
		switch s.cur {
		case ' ', '\t', '\r':
			s.advance()
		case '#':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) number(pos token.Pos, start int) (token.Token, token.Value) {
	isFloat := false
	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' {
		isFloat = true
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	lit := string(s.src[start:s.off])

	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.error(start, "malformed float literal: "+lit)
		}
		return token.FLOAT, token.Value{Raw: lit, Pos: pos, Float: f}
	}

	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		s.error(start, "malformed int literal: "+lit)
	}
	return token.INT, token.Value{Raw: lit, Pos: pos, Int: i}
}

// shortString scans a "..." string literal, which spec.md 4.1 requires to
// stay on a single line.
func (s *Scanner) shortString() (raw, val string, ok bool) {
	start := s.off
	s.advance() // consume opening quote
	var sb strings.Builder
	for {
		if s.cur == '\n' || s.cur == -1 {
			return string(s.src[start:s.off]), sb.String(), false
		}
		if s.cur == '"' {
			s.advance()
			break
		}
		if s.cur == '\\' {
			s.advance()
			switch s.cur {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteRune(s.cur)
			}
			s.advance()
			continue
		}
		sb.WriteRune(s.cur)
		s.advance()
	}
	return string(s.src[start:s.off]), sb.String(), true
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// ScanAll tokenizes an entire file, returning every TokenAndValue up to and
// including EOF. Mainly used by the tokenize CLI command and by tests.
func ScanAll(file *token.File, src []byte) ([]TokenAndValue, error) {
	var (
		s    Scanner
		val  token.Value
		errs ErrorList
	)
	s.Init(file, src, errs.Add)

	var out []TokenAndValue
	for {
		tok := s.Scan(&val)
		out = append(out, TokenAndValue{Token: tok, Value: val})
		if tok == token.EOF {
			break
		}
	}
	errs.Sort()
	var err error
	if len(errs) > 0 {
		err = errs
	}
	return out, err
}
