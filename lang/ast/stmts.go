package ast

import (
	"fmt"

	"github.com/mna/nano/lang/token"
)

type (
	// IfStmt represents `if (cond) then [else else] end`.
	IfStmt struct {
		IfPos token.Pos
		Cond  Expr
		Then  *Block
		Else  *Block // nil if no else clause
		EndPos token.Pos
	}

	// WhileStmt represents `while (cond) body end`.
	WhileStmt struct {
		WhilePos token.Pos
		Cond     Expr
		Body     *Block
		EndPos   token.Pos
	}

	// ForStmt represents `for (name = start to end) body end`. LoopVar is the
	// synthesized local VarDecl for the loop variable (spec.md 3: For carries
	// a loopVarDecl).
	ForStmt struct {
		ForPos  token.Pos
		Name    string
		Start   Expr
		End     Expr
		Body    *Block
		LoopVar *VarDecl
		EndPos  token.Pos
	}

	// ReturnStmt represents `return [expr]`.
	ReturnStmt struct {
		ReturnPos token.Pos
		Expr      Expr // nil for a bare `return`
	}

	// AssignVarStmt represents `name = expr` or a compound assignment
	// desugared to it (spec.md 4.3: `x <op>= e` -> `x = x <op> e`).
	AssignVarStmt struct {
		NamePos token.Pos
		Name    string
		Expr    Expr
		Decl    *VarDecl
	}

	// AssignArrayStmt represents `name[index] = expr`.
	AssignArrayStmt struct {
		NamePos token.Pos
		Name    string
		Index   Expr
		Expr    Expr
		Decl    *VarDecl
	}

	// AssignMemberStmt represents `name.member = expr`. Like MemberExpr, the
	// grammar in spec.md 4.3 never produces this (reserved for fidelity with
	// spec.md 3's Data Model, which lists it).
	AssignMemberStmt struct {
		NamePos token.Pos
		Name    string
		Member  string
		Expr    Expr
		Decl    *VarDecl
	}

	// ExprStmt represents an expression used as a statement; in Nano this is
	// only ever a call, per spec.md 4.3's Stmt grammar (IDENT `(` Args `)`).
	ExprStmt struct {
		Call *CallExpr
	}

	// VarDeclStmt wraps a local `var` declaration used as a statement.
	VarDeclStmt struct {
		VarPos token.Pos
		Decl   *VarDecl
	}
)

func (s *IfStmt) stmtNode()           {}
func (s *WhileStmt) stmtNode()        {}
func (s *ForStmt) stmtNode()          {}
func (s *ReturnStmt) stmtNode()       {}
func (s *AssignVarStmt) stmtNode()    {}
func (s *AssignArrayStmt) stmtNode()  {}
func (s *AssignMemberStmt) stmtNode() {}
func (s *ExprStmt) stmtNode()         {}
func (s *VarDeclStmt) stmtNode()      {}

func (s *IfStmt) String() string    { return fmt.Sprintf("if %s", s.Cond) }
func (s *WhileStmt) String() string { return fmt.Sprintf("while %s", s.Cond) }
func (s *ForStmt) String() string {
	return fmt.Sprintf("for %s = %s to %s", s.Name, s.Start, s.End)
}
func (s *ReturnStmt) String() string {
	if s.Expr == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Expr)
}
func (s *AssignVarStmt) String() string    { return fmt.Sprintf("%s = %s", s.Name, s.Expr) }
func (s *AssignArrayStmt) String() string {
	return fmt.Sprintf("%s[%s] = %s", s.Name, s.Index, s.Expr)
}
func (s *AssignMemberStmt) String() string {
	return fmt.Sprintf("%s.%s = %s", s.Name, s.Member, s.Expr)
}
func (s *ExprStmt) String() string    { return s.Call.String() }
func (s *VarDeclStmt) String() string { return s.Decl.String() }

func (s *IfStmt) Span() (start, end token.Pos)    { return s.IfPos, s.EndPos }
func (s *WhileStmt) Span() (start, end token.Pos) { return s.WhilePos, s.EndPos }
func (s *ForStmt) Span() (start, end token.Pos)   { return s.ForPos, s.EndPos }
func (s *ReturnStmt) Span() (start, end token.Pos) {
	if s.Expr == nil {
		return s.ReturnPos, s.ReturnPos
	}
	_, end = s.Expr.Span()
	return s.ReturnPos, end
}
func (s *AssignVarStmt) Span() (start, end token.Pos) {
	_, end = s.Expr.Span()
	return s.NamePos, end
}
func (s *AssignArrayStmt) Span() (start, end token.Pos) {
	_, end = s.Expr.Span()
	return s.NamePos, end
}
func (s *AssignMemberStmt) Span() (start, end token.Pos) {
	_, end = s.Expr.Span()
	return s.NamePos, end
}
func (s *ExprStmt) Span() (start, end token.Pos) { return s.Call.Span() }
func (s *VarDeclStmt) Span() (start, end token.Pos) {
	_, end = s.Decl.Span()
	return s.VarPos, end
}

func (s *IfStmt) Walk(v Visitor) {
	Walk(v, s.Cond)
	Walk(v, s.Then)
	if s.Else != nil {
		Walk(v, s.Else)
	}
}
func (s *WhileStmt) Walk(v Visitor) {
	Walk(v, s.Cond)
	Walk(v, s.Body)
}
func (s *ForStmt) Walk(v Visitor) {
	Walk(v, s.Start)
	Walk(v, s.End)
	Walk(v, s.Body)
}
func (s *ReturnStmt) Walk(v Visitor) {
	if s.Expr != nil {
		Walk(v, s.Expr)
	}
}
func (s *AssignVarStmt) Walk(v Visitor)   { Walk(v, s.Expr) }
func (s *AssignArrayStmt) Walk(v Visitor) {
	Walk(v, s.Index)
	Walk(v, s.Expr)
}
func (s *AssignMemberStmt) Walk(v Visitor) { Walk(v, s.Expr) }
func (s *ExprStmt) Walk(v Visitor)         { Walk(v, s.Call) }
func (s *VarDeclStmt) Walk(v Visitor)      { Walk(v, s.Decl) }
