package parser

import (
	"github.com/mna/nano/lang/ast"
	"github.com/mna/nano/lang/token"
)

// parseBlock parses a sequence of statements up to (but not consuming) one
// of the given end tokens or EOF.
func (p *parser) parseBlock(end ...token.Token) *ast.Block {
	var block ast.Block
	block.Start = p.val.Pos

	ends := append(append([]token.Token{}, end...), token.EOF)
	p.skipEOLs()
	for !tokenIn(p.tok, ends...) {
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		p.skipEOLs()
	}
	block.End = p.val.Pos
	return &block
}

// parseStmt parses a single statement of:
//
//	Stmt -> (IDENT `=` Expr
//	       | IDENT `[` Expr `]` `=` Expr
//	       | IDENT `(` Args `)`
//	       | IDENT (`+`|`-`|`*`|`/`) `=` Expr
//	       | `if` `(` Expr `)` EOL Stmt* (`else` EOL Stmt*)? `end`
//	       | `while` `(` Expr `)` EOL Stmt* `end`
//	       | `for` `(` IDENT `=` Expr `to` Expr `)` EOL Stmt* `end`
//	       | `var` VarDecl
//	       | `return` Expr?) EOL
//
// and recovers to the next EOL on error so one bad statement doesn't take
// down the rest of the function body.
func (p *parser) parseStmt() (stmt ast.Stmt) {
	defer func() {
		if err := recover(); err != nil {
			if err != errPanicMode {
				panic(err)
			}
			p.syncToEOL()
			stmt = nil
		}
	}()

	switch p.tok {
	case token.VAR:
		p.advance()
		decl := p.parseVarDecl(ast.Local, false)
		return &ast.VarDeclStmt{VarPos: decl.VarPos, Decl: decl}
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.IDENT:
		return p.parseIdentLeadStmt()
	default:
		p.errorKind(p.val.Pos, "statement_expected", "expected a statement")
		panic(errPanicMode)
	}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.IfPos = p.expect(token.IF)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Then = p.parseBlock(token.ELSE, token.END)
	if p.found(token.ELSE) {
		stmt.Else = p.parseBlock(token.END)
	}
	stmt.EndPos = p.expect(token.END)
	return &stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.WhilePos = p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock(token.END)
	stmt.EndPos = p.expect(token.END)
	return &stmt
}

func (p *parser) parseForStmt() *ast.ForStmt {
	var stmt ast.ForStmt
	stmt.ForPos = p.expect(token.FOR)
	p.expect(token.LPAREN)

	if p.tok != token.IDENT {
		p.errorKind(p.val.Pos, "expecting_lit_or_ident", "expected the loop variable name")
		panic(errPanicMode)
	}
	varPos := p.val.Pos
	stmt.Name = p.val.Raw
	p.advance()

	p.expect(token.EQ)
	stmt.Start = p.parseExpr()
	p.expect(token.TO)
	stmt.End = p.parseExpr()
	p.expect(token.RPAREN)

	stmt.LoopVar = &ast.VarDecl{VarPos: varPos, Name: stmt.Name, Scope: ast.Local}
	stmt.Body = p.parseBlock(token.END)
	stmt.EndPos = p.expect(token.END)
	return &stmt
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	var stmt ast.ReturnStmt
	stmt.ReturnPos = p.expect(token.RETURN)
	if !tokenIn(p.tok, token.EOL, token.EOF, token.END, token.ELSE) {
		stmt.Expr = p.parseExpr()
	}
	return &stmt
}

// parseIdentLeadStmt disambiguates the four IDENT-led statement forms by
// looking at the token following the identifier.
func (p *parser) parseIdentLeadStmt() ast.Stmt {
	namePos := p.val.Pos
	name := p.val.Raw
	p.advance()

	switch {
	case p.tok == token.LBRACK:
		p.advance()
		index := p.parseExpr()
		p.expect(token.RBRACK)
		p.expect(token.EQ)
		expr := p.parseExpr()
		return &ast.AssignArrayStmt{NamePos: namePos, Name: name, Index: index, Expr: expr}

	case p.tok == token.LPAREN:
		lparen := p.val.Pos
		p.advance()
		var args []ast.Expr
		if p.tok != token.RPAREN {
			args = p.parseArgList()
		}
		rparen := p.expect(token.RPAREN)
		callee := &ast.IdentExpr{NamePos: namePos, Name: name}
		call := &ast.CallExpr{Callee: callee, Lparen: lparen, Args: args, Rparen: rparen}
		return &ast.ExprStmt{Call: call}

	case p.tok == token.EQ:
		p.advance()
		expr := p.parseExpr()
		return &ast.AssignVarStmt{NamePos: namePos, Name: name, Expr: expr}

	default:
		if base, ok := token.CompoundBase(p.tok); ok {
			p.advance()
			rhs := p.parseExpr()
			ident := &ast.IdentExpr{NamePos: namePos, Name: name}
			expr := ast.Expr(&ast.BinOpExpr{Left: ident, Op: base, OpPos: namePos, Right: rhs})
			return &ast.AssignVarStmt{NamePos: namePos, Name: name, Expr: expr}
		}
		p.errorKind(p.val.Pos, "assign_or_call_expected_after", "expected '=', '(', '[' or a compound assignment operator after "+name)
		panic(errPanicMode)
	}
}
