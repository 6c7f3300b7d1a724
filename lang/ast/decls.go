package ast

import (
	"fmt"

	"github.com/mna/nano/lang/token"
)

// FuncDecl represents a function declaration (spec.md 3: Func). Syscalls are
// declared the same way but with IsSyscall set and no Body (they are bound
// to a host callback at link time, spec.md 4.8).
type FuncDecl struct {
	FuncPos    token.Pos
	Name       string
	Args       []*VarDecl
	Body       *Block // nil for syscalls
	IsSyscall  bool
	IsVarargs  bool
	StackSize  int // max live local offset, assigned by pre-codegen (spec.md 4.6)
	EndPos     token.Pos

	// CodeStart/CodeEnd are filled in by codegen once the function's bytecode
	// range is known (spec.md 3, Program.functions).
	CodeStart, CodeEnd int
}

func (d *FuncDecl) declNode() {}
func (d *FuncDecl) String() string {
	names := make([]string, len(d.Args))
	for i, a := range d.Args {
		names[i] = a.Name
	}
	return fmt.Sprintf("function %s(%v)", d.Name, names)
}
func (d *FuncDecl) Span() (start, end token.Pos) { return d.FuncPos, d.EndPos }
func (d *FuncDecl) Walk(v Visitor) {
	for _, a := range d.Args {
		Walk(v, a)
	}
	if d.Body != nil {
		Walk(v, d.Body)
	}
}

// VarDecl represents a variable declaration: a global, a local, an array, a
// function argument, or a const (spec.md 3: Var).
type VarDecl struct {
	VarPos token.Pos
	Name   string
	Scope  Scope
	Expr   Expr // scalar initializer; nil if none or if Size != nil
	Size   Expr // non-nil for array decls: the constant-evaluable size expression
	IsConst bool

	// Offset is assigned by pre-codegen: the local/arg frame offset (spec.md
	// 4.6 and 4.8) or the global slot index. Meaningless until that pass runs.
	Offset int

	// ArrayInit holds the literal array initializer, e.g. `var a[3] = 1,2,3`.
	ArrayInit *ArrayInitExpr
}

func (d *VarDecl) declNode() {}
func (d *VarDecl) IsArray() bool { return d.Size != nil }
func (d *VarDecl) String() string {
	kind := "var"
	if d.IsConst {
		kind = "const"
	}
	if d.IsArray() {
		return fmt.Sprintf("%s %s[%s]", kind, d.Name, d.Size)
	}
	return fmt.Sprintf("%s %s", kind, d.Name)
}
func (d *VarDecl) Span() (start, end token.Pos) {
	end = d.VarPos + token.Pos(len(d.Name))
	if d.Expr != nil {
		_, end = d.Expr.Span()
	}
	return d.VarPos, end
}
// ImportDecl represents a top-level `import "path"` declaration (spec.md
// 4.3). The source manager follows it to load the imported file; the node
// itself stays in Program.Decls, where the later passes skip it, and it
// never produces code in a linked Program.
type ImportDecl struct {
	ImportPos token.Pos
	Path      string
	PathPos   token.Pos
}

func (d *ImportDecl) declNode()                     {}
func (d *ImportDecl) String() string                { return fmt.Sprintf("import %q", d.Path) }
func (d *ImportDecl) Span() (start, end token.Pos)  { return d.ImportPos, d.PathPos + token.Pos(len(d.Path)+2) }
func (d *ImportDecl) Walk(_ Visitor)                {}

func (d *VarDecl) Walk(v Visitor) {
	if d.Expr != nil {
		Walk(v, d.Expr)
	}
	if d.Size != nil {
		Walk(v, d.Size)
	}
	if d.ArrayInit != nil {
		Walk(v, d.ArrayInit)
	}
}
