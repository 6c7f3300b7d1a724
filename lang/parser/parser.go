// Package parser implements the recursive-descent, Pratt-expression parser
// that turns a token stream into an *ast.Program.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/scanner"
	"github.com/mna/nano/lang/token"
)

// ParseFile is a helper that reads and parses a single source file, adding
// it to fset under its own name. If the file cannot be read, the error is
// the one returned by os.ReadFile; otherwise a non-nil error is a
// scanner.ErrorList.
func ParseFile(fset *token.FileSet, filename string) (*ast.Program, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseSource(fset, filename, src)
}

// ParseSource parses a single source buffer and returns its Program. The
// error, if non-nil, is guaranteed to be a scanner.ErrorList.
func ParseSource(fset *token.FileSet, filename string, src []byte) (*ast.Program, error) {
	var p parser
	p.init(fset, filename, src)
	prog := p.parseProgram()
	prog.Name = filename
	p.errors.Sort()
	return prog, p.errors.Err()
}

// parser holds the state for parsing a single file.
type parser struct {
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok token.Token
	val token.Value
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan(&p.val)
}

// errPanicMode is used to unwind out of a broken production once an error
// has been recorded, back to the nearest statement boundary.
var errPanicMode = errors.New("panic mode")

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

// errorKind records a compile error tagged with one of the stable error
// kind strings surfaced by the parser (spec.md 4.3).
func (p *parser) errorKind(pos token.Pos, kind, msg string) {
	p.error(pos, fmt.Sprintf("%s: %s", kind, msg))
}

func (p *parser) errorExpected(pos token.Pos, want string) {
	msg := "expected " + want
	if pos == p.val.Pos {
		if lit := p.tok.Literal(); lit != "" {
			msg += ", found " + lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.errorKind(pos, "unexpected_token", msg)
}

// expect consumes the current token if it matches tok, otherwise it records
// an error and panics with errPanicMode, recovered at the statement level.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.val.Pos
	if p.tok != tok {
		p.errorExpected(pos, tok.GoString())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

// found consumes the current token and returns true if it matches tok,
// otherwise it leaves the stream untouched and returns false.
func (p *parser) found(tok token.Token) bool {
	if p.tok != tok {
		return false
	}
	p.advance()
	return true
}

// skipEOLs consumes any run of EOL tokens (blank lines between
// declarations/statements are insignificant, spec.md 4.3's Program
// production lists EOL as one of the top-level alternatives).
func (p *parser) skipEOLs() {
	for p.tok == token.EOL {
		p.advance()
	}
}

func tokenIn(tok token.Token, set ...token.Token) bool {
	for _, t := range set {
		if tok == t {
			return true
		}
	}
	return false
}

func identList(args []*ast.VarDecl) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
