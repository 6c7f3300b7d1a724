package resolver

import (
	"fmt"

	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// evalConst recursively folds e to a literal node (spec.md 4.4 pass 2/7's
// "constant evaluation is recursive over BinOp, UnaryOp, LitInt, and
// consts' initializers"). It reports constant_divide_by_zero itself since
// that can only be detected during folding; any other failure to fold is
// reported by the caller, which knows which pass (and which error kind)
// is asking.
func (r *resolver) evalConst(e ast.Expr) (ast.Expr, bool) {
	switch ex := e.(type) {
	case *ast.LitIntExpr, *ast.LitFloatExpr, *ast.LitStrExpr, *ast.NoneExpr:
		return ex, true

	case *ast.IdentExpr:
		if ex.Decl == nil || !ex.Decl.IsConst || ex.Decl.Expr == nil {
			return nil, false
		}
		return r.evalConst(ex.Decl.Expr)

	case *ast.UnaryOpExpr:
		right, ok := r.evalConst(ex.Right)
		if !ok {
			return nil, false
		}
		return r.foldUnary(ex.OpPos, ex.Op, right)

	case *ast.BinOpExpr:
		left, ok := r.evalConst(ex.Left)
		if !ok {
			return nil, false
		}
		right, ok := r.evalConst(ex.Right)
		if !ok {
			return nil, false
		}
		return r.foldBinary(ex.OpPos, ex.Op, left, right)

	default:
		return nil, false
	}
}

func asNumber(e ast.Expr) (i int64, f float64, isFloat, ok bool) {
	switch n := e.(type) {
	case *ast.LitIntExpr:
		return n.Value, 0, false, true
	case *ast.LitFloatExpr:
		return 0, n.Value, true, true
	}
	return 0, 0, false, false
}

func (r *resolver) foldUnary(pos token.Pos, op token.Token, right ast.Expr) (ast.Expr, bool) {
	i, f, isFloat, ok := asNumber(right)
	if !ok {
		return nil, false
	}
	switch op {
	case token.MINUS:
		if isFloat {
			return &ast.LitFloatExpr{ValPos: pos, Value: -f}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: -i}, true
	case token.NOT:
		v := i
		if isFloat {
			if f != 0 {
				v = 1
			}
		}
		if v == 0 {
			return &ast.LitIntExpr{ValPos: pos, Value: 1}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: 0}, true
	}
	return nil, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (r *resolver) foldBinary(pos token.Pos, op token.Token, left, right ast.Expr) (ast.Expr, bool) {
	li, lf, lIsFloat, lok := asNumber(left)
	ri, rf, rIsFloat, rok := asNumber(right)
	if !lok || !rok {
		return nil, false
	}

	useFloat := lIsFloat || rIsFloat
	if useFloat {
		if !lIsFloat {
			lf = float64(li)
		}
		if !rIsFloat {
			rf = float64(ri)
		}
	}

	switch op {
	case token.PLUS:
		if useFloat {
			return &ast.LitFloatExpr{ValPos: pos, Value: lf + rf}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: li + ri}, true
	case token.MINUS:
		if useFloat {
			return &ast.LitFloatExpr{ValPos: pos, Value: lf - rf}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: li - ri}, true
	case token.STAR:
		if useFloat {
			return &ast.LitFloatExpr{ValPos: pos, Value: lf * rf}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: li * ri}, true
	case token.SLASH:
		if useFloat {
			if rf == 0 {
				r.errorKind(pos, "constant_divide_by_zero", "division by zero in constant expression")
				return nil, false
			}
			return &ast.LitFloatExpr{ValPos: pos, Value: lf / rf}, true
		}
		if ri == 0 {
			r.errorKind(pos, "constant_divide_by_zero", "division by zero in constant expression")
			return nil, false
		}
		return &ast.LitIntExpr{ValPos: pos, Value: li / ri}, true
	case token.PERCENT:
		if useFloat {
			return nil, false
		}
		if ri == 0 {
			r.errorKind(pos, "constant_divide_by_zero", "modulo by zero in constant expression")
			return nil, false
		}
		return &ast.LitIntExpr{ValPos: pos, Value: li % ri}, true
	case token.AND:
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(nonZero(li, lf, useFloat) && nonZero(ri, rf, useFloat))}, true
	case token.OR:
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(nonZero(li, lf, useFloat) || nonZero(ri, rf, useFloat))}, true
	case token.LT:
		if useFloat {
			return &ast.LitIntExpr{ValPos: pos, Value: boolInt(lf < rf)}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(li < ri)}, true
	case token.GT:
		if useFloat {
			return &ast.LitIntExpr{ValPos: pos, Value: boolInt(lf > rf)}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(li > ri)}, true
	case token.LE:
		if useFloat {
			return &ast.LitIntExpr{ValPos: pos, Value: boolInt(lf <= rf)}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(li <= ri)}, true
	case token.GE:
		if useFloat {
			return &ast.LitIntExpr{ValPos: pos, Value: boolInt(lf >= rf)}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(li >= ri)}, true
	case token.EQEQ:
		if useFloat {
			return &ast.LitIntExpr{ValPos: pos, Value: boolInt(lf == rf)}, true
		}
		return &ast.LitIntExpr{ValPos: pos, Value: boolInt(li == ri)}, true
	}
	return nil, false
}

func nonZero(i int64, f float64, isFloat bool) bool {
	if isFloat {
		return f != 0
	}
	return i != 0
}

// foldGlobalInitializers implements spec.md 4.4 pass 2: every non-const
// global's scalar initializer and every array's size expression must fold
// to a literal; a remaining non-literal initializer is
// global_var_const_expr. Consts are folded separately by propagateConsts,
// which also validates them (pass 3).
func (r *resolver) foldGlobalInitializers() {
	for name, d := range r.globals.names {
		if d.IsConst {
			continue
		}
		if d.Expr != nil {
			if lit, ok := r.evalConst(d.Expr); ok {
				d.Expr = lit
			} else {
				r.errorKind(d.VarPos, "global_var_const_expr", fmt.Sprintf("initializer of %q is not a constant expression", name))
			}
		}
		if d.Size != nil {
			if lit, ok := r.evalConst(d.Size); ok {
				d.Size = lit
			} else {
				r.errorKind(d.VarPos, "global_var_const_expr", fmt.Sprintf("size of %q is not a constant expression", name))
			}
		}
	}
}

// propagateConsts implements spec.md 4.4 pass 3: validate every const
// declaration, then replace every expression-tree use of a const Ident
// with its literal value.
func (r *resolver) propagateConsts(progs []*ast.Program) {
	for name, d := range r.globals.names {
		if !d.IsConst {
			continue
		}
		if d.IsArray() {
			r.errorKind(d.VarPos, "const_array_unsupported", fmt.Sprintf("const array %q is not supported", name))
			continue
		}
		if d.Expr == nil {
			r.errorKind(d.VarPos, "const_needs_init", fmt.Sprintf("const %q requires an initializer", name))
			continue
		}
		if lit, ok := r.evalConst(d.Expr); ok {
			d.Expr = lit
		} else {
			r.errorKind(d.VarPos, "global_var_const_expr", fmt.Sprintf("initializer of const %q is not a constant expression", name))
		}
	}

	for _, prog := range progs {
		for _, decl := range prog.Decls {
			switch d := decl.(type) {
			case *ast.VarDecl:
				d.Expr = r.inlineConsts(d.Expr)
				d.Size = r.inlineConsts(d.Size)
			case *ast.FuncDecl:
				if d.Body != nil {
					r.inlineConstsInBlock(d.Body)
				}
			}
		}
	}
}

// inlineConsts rewrites e, replacing any IdentExpr bound to a const
// declaration with that const's folded literal node (the same node at
// every use, not a copy), and recursing
// into subexpressions. It returns e unchanged if e is nil or carries no
// const reference.
func (r *resolver) inlineConsts(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch ex := e.(type) {
	case *ast.IdentExpr:
		if ex.Decl != nil && ex.Decl.IsConst {
			if lit, ok := r.evalConst(ex.Decl.Expr); ok {
				return lit
			}
		}
		return ex
	case *ast.BinOpExpr:
		ex.Left = r.inlineConsts(ex.Left)
		ex.Right = r.inlineConsts(ex.Right)
		return ex
	case *ast.UnaryOpExpr:
		ex.Right = r.inlineConsts(ex.Right)
		return ex
	case *ast.CallExpr:
		for i, a := range ex.Args {
			ex.Args[i] = r.inlineConsts(a)
		}
		return ex
	case *ast.ArrayInitExpr:
		for i, it := range ex.Items {
			ex.Items[i] = r.inlineConsts(it)
		}
		return ex
	case *ast.DerefExpr:
		ex.Index = r.inlineConsts(ex.Index)
		return ex
	case *ast.MemberExpr:
		return ex
	default:
		return e
	}
}

func (r *resolver) inlineConstsInBlock(b *ast.Block) {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.VarDeclStmt:
			s.Decl.Expr = r.inlineConsts(s.Decl.Expr)
			s.Decl.Size = r.inlineConsts(s.Decl.Size)
		case *ast.IfStmt:
			s.Cond = r.inlineConsts(s.Cond)
			r.inlineConstsInBlock(s.Then)
			if s.Else != nil {
				r.inlineConstsInBlock(s.Else)
			}
		case *ast.WhileStmt:
			s.Cond = r.inlineConsts(s.Cond)
			r.inlineConstsInBlock(s.Body)
		case *ast.ForStmt:
			s.Start = r.inlineConsts(s.Start)
			s.End = r.inlineConsts(s.End)
			r.inlineConstsInBlock(s.Body)
		case *ast.ReturnStmt:
			s.Expr = r.inlineConsts(s.Expr)
		case *ast.AssignVarStmt:
			s.Expr = r.inlineConsts(s.Expr)
		case *ast.AssignArrayStmt:
			s.Index = r.inlineConsts(s.Index)
			s.Expr = r.inlineConsts(s.Expr)
		case *ast.AssignMemberStmt:
			s.Expr = r.inlineConsts(s.Expr)
		case *ast.ExprStmt:
			if ce, ok := r.inlineConsts(s.Call).(*ast.CallExpr); ok {
				s.Call = ce
			}
		}
	}
}
