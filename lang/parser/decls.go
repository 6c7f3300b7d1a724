package parser

import (
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// parseProgram implements the Program production of spec.md 4.3:
//
//	Program -> (`var` VarDecl | `const` VarDecl | `function` FuncDecl | `import` STRING | EOL)*
func (p *parser) parseProgram() *ast.Program {
	var prog ast.Program

	for p.tok != token.EOF {
		if p.tok == token.EOL {
			p.advance()
			continue
		}
		if d := p.parseTopDecl(); d != nil {
			prog.Decls = append(prog.Decls, d)
		}
	}
	return &prog
}

// parseTopDecl parses a single top-level declaration, recovering to the next
// EOL on error so a single bad declaration doesn't abort the whole file.
func (p *parser) parseTopDecl() (decl ast.Decl) {
	defer func() {
		if err := recover(); err != nil {
			if err != errPanicMode {
				panic(err)
			}
			p.syncToEOL()
			decl = nil
		}
	}()

	switch p.tok {
	case token.VAR:
		p.advance()
		return p.parseVarDecl(ast.Global, false)
	case token.CONST:
		p.advance()
		return p.parseVarDecl(ast.Global, true)
	case token.FUNCTION:
		p.advance()
		return p.parseFuncDecl()
	case token.IMPORT:
		return p.parseImportDecl()
	default:
		p.errorKind(p.val.Pos, "statement_expected", "expected var, const, function or import")
		panic(errPanicMode)
	}
}

// syncToEOL advances past tokens until it reaches an EOL or EOF, used to
// recover from a parse error at top level or statement level.
func (p *parser) syncToEOL() {
	for !tokenIn(p.tok, token.EOL, token.EOF) {
		p.advance()
	}
	if p.tok == token.EOL {
		p.advance()
	}
}

func (p *parser) parseImportDecl() *ast.ImportDecl {
	var decl ast.ImportDecl
	decl.ImportPos = p.expect(token.IMPORT)
	if p.tok != token.STRING {
		p.errorKind(p.val.Pos, "bad_import", "expected a string path after import")
		panic(errPanicMode)
	}
	decl.PathPos = p.val.Pos
	decl.Path = p.val.String
	p.advance()
	return &decl
}

// parseVarDecl implements:
//
//	VarDecl -> IDENT ( `[` Expr `]` (`=` ArrayInit)? | `=` Expr )?
func (p *parser) parseVarDecl(scope ast.Scope, isConst bool) *ast.VarDecl {
	var decl ast.VarDecl
	decl.Scope = scope
	decl.IsConst = isConst

	if p.tok != token.IDENT {
		p.errorKind(p.val.Pos, "expecting_lit_or_ident", "expected an identifier")
		panic(errPanicMode)
	}
	decl.VarPos = p.val.Pos
	decl.Name = p.val.Raw
	p.advance()

	switch {
	case p.found(token.LBRACK):
		decl.Size = p.parseExpr()
		p.expect(token.RBRACK)
		if p.found(token.EQ) {
			decl.ArrayInit = p.parseArrayInit()
		}
	case p.found(token.EQ):
		decl.Expr = p.parseExpr()
	}
	return &decl
}

// parseArrayInit implements:
//
//	ArrayInit -> literal (`,` literal)*
//
// Newlines are allowed between items (spec.md 4.3), so EOLs are skipped
// around each comma.
func (p *parser) parseArrayInit() *ast.ArrayInitExpr {
	var init ast.ArrayInitExpr
	init.Items = append(init.Items, p.parseArrayInitItem())
	p.skipEOLs()
	for p.tok == token.COMMA {
		p.advance()
		p.skipEOLs()
		init.Items = append(init.Items, p.parseArrayInitItem())
		p.skipEOLs()
	}
	return &init
}

func (p *parser) parseArrayInitItem() ast.Expr {
	switch p.tok {
	case token.INT:
		e := &ast.LitIntExpr{ValPos: p.val.Pos, Value: p.val.Int}
		p.advance()
		return e
	case token.FLOAT:
		e := &ast.LitFloatExpr{ValPos: p.val.Pos, Value: p.val.Float}
		p.advance()
		return e
	case token.STRING:
		e := &ast.LitStrExpr{ValPos: p.val.Pos, Value: p.val.String}
		p.advance()
		return e
	case token.NONE:
		e := &ast.NoneExpr{NonePos: p.val.Pos}
		p.advance()
		return e
	default:
		p.errorKind(p.val.Pos, "bad_array_init_value", "expected an int, float, string or none literal")
		panic(errPanicMode)
	}
}

// parseFuncDecl implements:
//
//	FuncDecl -> IDENT `(` (IDENT (`,` IDENT)*)? `)` EOL Stmt* `end`
func (p *parser) parseFuncDecl() *ast.FuncDecl {
	var decl ast.FuncDecl

	if p.tok != token.IDENT {
		p.errorKind(p.val.Pos, "expecting_lit_or_ident", "expected a function name")
		panic(errPanicMode)
	}
	decl.FuncPos = p.val.Pos
	decl.Name = p.val.Raw
	p.advance()

	p.expect(token.LPAREN)
	if p.tok == token.IDENT {
		decl.Args = append(decl.Args, p.parseArgDecl())
		for p.found(token.COMMA) {
			decl.Args = append(decl.Args, p.parseArgDecl())
		}
	}
	p.expect(token.RPAREN)

	decl.Body = p.parseBlock(token.END)
	decl.EndPos = p.expect(token.END)
	return &decl
}

func (p *parser) parseArgDecl() *ast.VarDecl {
	var decl ast.VarDecl
	decl.Scope = ast.Arg
	decl.VarPos = p.val.Pos
	decl.Name = p.val.Raw
	p.advance()
	return &decl
}
