package resolver

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
)

// resolveExprIn attaches Decl pointers to every Ident, Deref and Call node
// reachable from e (spec.md 4.4 pass 1). e may be nil (an absent optional
// expression such as a scalar VarDecl with no initializer).
func (r *resolver) resolveExprIn(sc *scope, e ast.Expr) {
	if e == nil {
		return
	}

	switch ex := e.(type) {
	case *ast.IdentExpr:
		d := sc.lookup(ex.Name)
		if d == nil {
			if _, ok := r.funcs[ex.Name]; ok {
				// A bare reference to a function name with no call syntax: Nano has
				// no function-value expressions, so this is simply unresolved.
				r.errorKind(ex.NamePos, "unknown_identifier", fmt.Sprintf("%q is a function, not a value", ex.Name))
				return
			}
			r.errorKind(ex.NamePos, "unknown_identifier", fmt.Sprintf("unknown identifier %q", ex.Name))
			return
		}
		if d.IsArray() {
			r.errorKind(ex.NamePos, "ident_is_array_not_var", fmt.Sprintf("%q is an array, cannot be used as a scalar", ex.Name))
		}
		ex.Decl = d

	case *ast.LitIntExpr, *ast.LitFloatExpr, *ast.LitStrExpr, *ast.NoneExpr:
		// leaves

	case *ast.BinOpExpr:
		r.resolveExprIn(sc, ex.Left)
		r.resolveExprIn(sc, ex.Right)

	case *ast.UnaryOpExpr:
		r.resolveExprIn(sc, ex.Right)

	case *ast.ArrayInitExpr:
		for _, it := range ex.Items {
			r.resolveExprIn(sc, it)
		}

	case *ast.DerefExpr:
		if ident, ok := ex.Left.(*ast.IdentExpr); ok {
			d := sc.lookup(ident.Name)
			if d == nil {
				r.errorKind(ident.NamePos, "unknown_array", fmt.Sprintf("unknown array %q", ident.Name))
			} else {
				ident.Decl = d
				ex.Decl = d
			}
		} else {
			r.resolveExprIn(sc, ex.Left)
		}
		r.resolveExprIn(sc, ex.Index)

	case *ast.MemberExpr:
		r.resolveExprIn(sc, ex.Left)

	case *ast.CallExpr:
		r.resolveCall(sc, ex)
	}
}

func (r *resolver) resolveCall(sc *scope, call *ast.CallExpr) {
	for _, a := range call.Args {
		r.resolveExprIn(sc, a)
	}

	ident, ok := call.Callee.(*ast.IdentExpr)
	if !ok {
		r.resolveExprIn(sc, call.Callee)
		return
	}

	if fn, ok := r.funcs[ident.Name]; ok {
		call.Decl = fn
		return
	}
	if d := sc.lookup(ident.Name); d != nil {
		r.errorKind(ident.NamePos, "expected_func_call", fmt.Sprintf("%q is a variable, not a function", ident.Name))
		return
	}
	if syn, ok := r.syscallDecl(ident.Name); ok {
		call.Decl = syn
		return
	}
	r.errorKind(ident.NamePos, "unknown_identifier", fmt.Sprintf("unknown function %q", ident.Name))
}

// syscallDecl returns a synthesized FuncDecl standing in for a host syscall,
// memoized so repeated calls to the same syscall share one Decl pointer
// (spec.md 4.8: syscalls are added to the program's syscall table by name).
func (r *resolver) syscallDecl(name string) (*ast.FuncDecl, bool) {
	if d, ok := r.syscallDef[name]; ok {
		return d, true
	}
	argc, isVarargs, ok := r.isSyscall(name)
	if !ok {
		return nil, false
	}
	d := &ast.FuncDecl{Name: name, IsSyscall: true, IsVarargs: isVarargs}
	for i := 0; i < argc; i++ {
		d.Args = append(d.Args, &ast.VarDecl{Name: fmt.Sprintf("arg%d", i), Scope: ast.Arg})
	}
	r.syscallDef[name] = d
	return d, true
}
