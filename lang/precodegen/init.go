package precodegen

import "github.com/mna/nano/lang/ast"

// InitFuncName is the synthesized function holding global initialization
// code (spec.md 4.6), grounded on original_source/source/lib/pre_codegen.cpp's
// pregen_init_t ("@init"). It is not a legal Nano identifier (function names
// come from IDENT, which never contains `@`), so it can never collide with
// a user-declared function.
const InitFuncName = "@init"

// synthesizeInit builds the @init function: for each non-const global with
// a scalar initializer, an AssignVar; for a global array with an ArrayInit,
// one AssignArray per item, indexed by item order. Globals with no
// initializer at all (scalar with neither Expr nor ArrayInit, or an array
// with no ArrayInit) need no runtime initialization — the VM's global
// slots start zeroed.
func synthesizeInit(globals []*ast.VarDecl) *ast.FuncDecl {
	body := &ast.Block{}
	for _, d := range globals {
		if d.IsConst {
			continue
		}
		if d.IsArray() {
			if d.ArrayInit == nil {
				continue
			}
			for i, item := range d.ArrayInit.Items {
				body.Stmts = append(body.Stmts, &ast.AssignArrayStmt{
					NamePos: d.VarPos,
					Name:    d.Name,
					Index:   &ast.LitIntExpr{ValPos: d.VarPos, Value: int64(i)},
					Expr:    item,
					Decl:    d,
				})
			}
			continue
		}
		if d.Expr == nil {
			continue
		}
		body.Stmts = append(body.Stmts, &ast.AssignVarStmt{
			NamePos: d.VarPos,
			Name:    d.Name,
			Expr:    d.Expr,
			Decl:    d,
		})
	}
	return &ast.FuncDecl{Name: InitFuncName, Body: body}
}
