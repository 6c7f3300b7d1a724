// Package ast defines the tagged node tree produced by the parser and
// consumed by the semantic passes, optimizer, pre-codegen and code
// generator (spec.md 3, component C4). Nodes are plain pointers rather than
// an index-addressed arena: Nano programs are small enough (spec.md's
// implementation budget is a few thousand lines of source, not millions of
// nodes) that a bump arena buys nothing a garbage-collected host language
// doesn't already give for free; see DESIGN.md's Open Question notes.
package ast

import (
	"fmt"
	"strings"

	"github.com/mna/nano/lang/token"
)

// Node is implemented by every AST node.
type Node interface {
	fmt.Stringer

	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk enters each child node inside itself to implement the Visitor
	// pattern (see the package-level Walk function).
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is implemented by top-level declarations (spec.md 3: Func, Var).
type Decl interface {
	Node
	declNode()
}

// Scope identifies where a Var declaration lives (spec.md 3, Var.scope).
type Scope int

const (
	Local Scope = iota
	Arg
	Global
)

func (s Scope) String() string {
	switch s {
	case Local:
		return "local"
	case Arg:
		return "arg"
	case Global:
		return "global"
	default:
		return "unknown-scope"
	}
}

// Program is the root node: an ordered sequence of top-level declarations
// (spec.md 3, Program).
type Program struct {
	Name  string // source filename, may be empty
	Decls []Decl
}

func (p *Program) String() string { return "program " + p.Name }
func (p *Program) Span() (start, end token.Pos) {
	if len(p.Decls) == 0 {
		return token.NoPos, token.NoPos
	}
	start, _ = p.Decls[0].Span()
	_, end = p.Decls[len(p.Decls)-1].Span()
	return start, end
}
func (p *Program) Walk(v Visitor) {
	for _, d := range p.Decls {
		Walk(v, d)
	}
}

// Block represents a sequence of statements (an if/while/for/function body).
type Block struct {
	Start, End token.Pos
	Stmts      []Stmt
}

func (b *Block) String() string { return fmt.Sprintf("block {%d stmts}", len(b.Stmts)) }
func (b *Block) Span() (start, end token.Pos) { return b.Start, b.End }
func (b *Block) Walk(v Visitor) {
	for _, s := range b.Stmts {
		Walk(v, s)
	}
}

// joinExprs is a small helper used by node String methods.
func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
