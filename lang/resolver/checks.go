package resolver

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
)

// checkArity implements spec.md 4.4 pass 5: for a direct call (Decl set by
// resolveCall), the argument count must match the declared parameter count
// unless the callee is varargs.
func (r *resolver) checkArity(progs []*ast.Program) {
	for _, prog := range progs {
		for _, decl := range prog.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			r.checkArityInBlock(fn.Body)
		}
	}
}

func (r *resolver) checkArityInBlock(b *ast.Block) {
	for _, stmt := range b.Stmts {
		ast.Walk(arityVisitor{r}, stmt)
	}
}

// arityVisitor walks every expression reachable from a statement, checking
// each CallExpr it finds.
type arityVisitor struct{ r *resolver }

func (v arityVisitor) Visit(n ast.Node, dir ast.VisitDirection) ast.Visitor {
	if dir != ast.VisitEnter {
		return v
	}
	if call, ok := n.(*ast.CallExpr); ok {
		v.r.checkCallArity(call)
	}
	return v
}

func (r *resolver) checkCallArity(call *ast.CallExpr) {
	if call.Decl == nil || call.Decl.IsVarargs {
		return
	}
	want := len(call.Decl.Args)
	got := len(call.Args)
	pos := call.Lparen
	if got > want {
		r.errorKind(pos, "too_many_args", fmt.Sprintf("%s: expected %d argument(s), got %d", call.Decl.Name, want, got))
	} else if got < want {
		r.errorKind(pos, "not_enought_args", fmt.Sprintf("%s: expected %d argument(s), got %d", call.Decl.Name, want, got))
	}
}

// checkArraySizes implements the remainder of spec.md 4.4 pass 7: a folded
// array Size must be a non-negative integer literal >= 2, and an ArrayInit
// must not supply more items than Size. Both global and function-local
// array declarations are checked.
func (r *resolver) checkArraySizes(progs []*ast.Program) {
	for name, d := range r.globals.names {
		if d.IsArray() {
			r.checkArraySize(name, d)
		}
	}
	for _, prog := range progs {
		for _, decl := range prog.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			r.checkLocalArraySizes(fn.Body)
		}
	}
}

func (r *resolver) checkLocalArraySizes(b *ast.Block) {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.VarDeclStmt:
			if s.Decl.IsArray() {
				r.checkArraySize(s.Decl.Name, s.Decl)
			}
		case *ast.IfStmt:
			r.checkLocalArraySizes(s.Then)
			if s.Else != nil {
				r.checkLocalArraySizes(s.Else)
			}
		case *ast.WhileStmt:
			r.checkLocalArraySizes(s.Body)
		case *ast.ForStmt:
			r.checkLocalArraySizes(s.Body)
		}
	}
}

func (r *resolver) checkArraySize(name string, d *ast.VarDecl) {
	if folded, ok := r.evalConst(d.Size); ok {
		d.Size = folded
	}
	lit, ok := d.Size.(*ast.LitIntExpr)
	if !ok || lit.Value < 2 {
		r.errorKind(d.VarPos, "array_size_must_be_greater_than", fmt.Sprintf("array %q must have a constant size >= 2", name))
		return
	}
	if d.ArrayInit != nil && int64(len(d.ArrayInit.Items)) > lit.Value {
		r.errorKind(d.VarPos, "too_many_array_inits", fmt.Sprintf("array %q declared with size %d but %d initializers", name, lit.Value, len(d.ArrayInit.Items)))
	}
}
