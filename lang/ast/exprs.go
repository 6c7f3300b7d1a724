package ast

import (
	"fmt"

	"github.com/mna/nano/lang/token"
)

type (
	// IdentExpr represents an identifier used as an expression (spec.md 3).
	// Decl is nil until the decl-annotation semantic pass runs.
	IdentExpr struct {
		NamePos token.Pos
		Name    string
		Decl    *VarDecl
	}

	// LitIntExpr represents an integer literal.
	LitIntExpr struct {
		ValPos token.Pos
		Value  int64
	}

	// LitFloatExpr represents a floating point literal.
	LitFloatExpr struct {
		ValPos token.Pos
		Value  float64
	}

	// LitStrExpr represents a string literal.
	LitStrExpr struct {
		ValPos token.Pos
		Value  string
	}

	// NoneExpr represents the `none` literal.
	NoneExpr struct {
		NonePos token.Pos
	}

	// BinOpExpr represents a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// UnaryOpExpr represents a unary expression, e.g. -x or not x.
	UnaryOpExpr struct {
		Op     token.Token
		OpPos  token.Pos
		Right  Expr
	}

	// CallExpr represents a function (or syscall) call, e.g. f(x, y).
	CallExpr struct {
		Callee Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos

		// Decl is the resolved FuncDecl when Callee is a directly-named
		// function or syscall; nil for indirect calls through an arbitrary
		// expression.
		Decl *FuncDecl
	}

	// ArrayInitExpr represents an array literal used to initialize an array
	// declaration, e.g. `= 1, 2, 3`.
	ArrayInitExpr struct {
		Items []Expr
	}

	// DerefExpr represents an array index expression, e.g. a[i].
	DerefExpr struct {
		Left   Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos

		// Decl is the resolved array VarDecl when Left is a bare identifier.
		Decl *VarDecl
	}

	// MemberExpr represents a dotted member access, e.g. x.y. The Nano
	// grammar in spec.md 4.3 never produces this node (no production
	// mentions `.`), but it is kept as a first-class AST node because
	// spec.md 3 lists it among the Data Model's expression nodes.
	MemberExpr struct {
		Left   Expr
		Dot    token.Pos
		Member string
	}
)

func (e *IdentExpr) exprNode()      {}
func (e *LitIntExpr) exprNode()     {}
func (e *LitFloatExpr) exprNode()   {}
func (e *LitStrExpr) exprNode()     {}
func (e *NoneExpr) exprNode()       {}
func (e *BinOpExpr) exprNode()      {}
func (e *UnaryOpExpr) exprNode()    {}
func (e *CallExpr) exprNode()       {}
func (e *ArrayInitExpr) exprNode()  {}
func (e *DerefExpr) exprNode()      {}
func (e *MemberExpr) exprNode()     {}

func (e *IdentExpr) String() string    { return e.Name }
func (e *LitIntExpr) String() string   { return fmt.Sprintf("%d", e.Value) }
func (e *LitFloatExpr) String() string { return fmt.Sprintf("%g", e.Value) }
func (e *LitStrExpr) String() string   { return fmt.Sprintf("%q", e.Value) }
func (e *NoneExpr) String() string     { return "none" }
func (e *BinOpExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}
func (e *UnaryOpExpr) String() string { return fmt.Sprintf("(%s%s)", e.Op, e.Right) }
func (e *CallExpr) String() string    { return fmt.Sprintf("%s(%s)", e.Callee, joinExprs(e.Args)) }
func (e *ArrayInitExpr) String() string { return joinExprs(e.Items) }
func (e *DerefExpr) String() string     { return fmt.Sprintf("%s[%s]", e.Left, e.Index) }
func (e *MemberExpr) String() string    { return fmt.Sprintf("%s.%s", e.Left, e.Member) }

func (e *IdentExpr) Span() (start, end token.Pos) {
	return e.NamePos, e.NamePos + token.Pos(len(e.Name))
}
func (e *LitIntExpr) Span() (start, end token.Pos)   { return e.ValPos, e.ValPos }
func (e *LitFloatExpr) Span() (start, end token.Pos) { return e.ValPos, e.ValPos }
func (e *LitStrExpr) Span() (start, end token.Pos)   { return e.ValPos, e.ValPos }
func (e *NoneExpr) Span() (start, end token.Pos)     { return e.NonePos, e.NonePos }
func (e *BinOpExpr) Span() (start, end token.Pos) {
	start, _ = e.Left.Span()
	_, end = e.Right.Span()
	return start, end
}
func (e *UnaryOpExpr) Span() (start, end token.Pos) {
	_, end = e.Right.Span()
	return e.OpPos, end
}
func (e *CallExpr) Span() (start, end token.Pos) {
	start, _ = e.Callee.Span()
	return start, e.Rparen
}
func (e *ArrayInitExpr) Span() (start, end token.Pos) {
	if len(e.Items) == 0 {
		return token.NoPos, token.NoPos
	}
	start, _ = e.Items[0].Span()
	_, end = e.Items[len(e.Items)-1].Span()
	return start, end
}
func (e *DerefExpr) Span() (start, end token.Pos) {
	start, _ = e.Left.Span()
	return start, e.Rbrack
}
func (e *MemberExpr) Span() (start, end token.Pos) {
	start, _ = e.Left.Span()
	return start, e.Dot + token.Pos(len(e.Member)+1)
}

func (e *IdentExpr) Walk(_ Visitor)    {}
func (e *LitIntExpr) Walk(_ Visitor)   {}
func (e *LitFloatExpr) Walk(_ Visitor) {}
func (e *LitStrExpr) Walk(_ Visitor)   {}
func (e *NoneExpr) Walk(_ Visitor)     {}
func (e *BinOpExpr) Walk(v Visitor) {
	Walk(v, e.Left)
	Walk(v, e.Right)
}
func (e *UnaryOpExpr) Walk(v Visitor) { Walk(v, e.Right) }
func (e *CallExpr) Walk(v Visitor) {
	Walk(v, e.Callee)
	for _, a := range e.Args {
		Walk(v, a)
	}
}
func (e *ArrayInitExpr) Walk(v Visitor) {
	for _, it := range e.Items {
		Walk(v, it)
	}
}
func (e *DerefExpr) Walk(v Visitor) {
	Walk(v, e.Left)
	Walk(v, e.Index)
}
func (e *MemberExpr) Walk(v Visitor) { Walk(v, e.Left) }
