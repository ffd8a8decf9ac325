package parser

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/token"
)

func (p *Parser) statement() ast.Stmt {
	switch p.cur().Kind {
	case token.LBRACE:
		return p.block()
	case token.VAR, token.VAL, token.REF, token.CLONE:
		// `clone` also doubles as a unary expression keyword; it is a
		// declaration only when followed by an identifier then `=` or `,`.
		if p.cur().Kind == token.CLONE && !p.looksLikeDecl() {
			break
		}
		return p.varDecl()
	case token.FUNC:
		return p.funcDecl()
	case token.STRUCT:
		return p.structDecl()
	case token.ENUM:
		return p.enumDecl()
	case token.IF:
		return p.ifStmt()
	case token.WHILE:
		return p.whileStmt()
	case token.DO:
		return p.doWhileStmt()
	case token.FOR:
		return p.forStmt()
	case token.SWITCH:
		return p.switchStmt()
	case token.BREAK:
		line := p.advance().Line
		return ast.NewBreakStmt(line)
	case token.CONTINUE:
		line := p.advance().Line
		return ast.NewContinueStmt(line)
	case token.RETURN:
		return p.returnStmt()
	case token.GOTO:
		line := p.advance().Line
		name := p.expect(token.IDENT).Lexeme
		return ast.NewGotoStmt(line, name)
	case token.IDENT:
		if p.peek(1).Kind == token.COLON {
			line := p.cur().Line
			name := p.advance().Lexeme
			p.advance() // ':'
			return ast.NewLabelStmt(line, name)
		}
	}
	line := p.cur().Line
	x := p.expression()
	return ast.NewExprStmt(line, x)
}

// looksLikeDecl disambiguates `clone x = ...` (declaration) from `clone
// expr;` (expression statement using the clone unary keyword).
func (p *Parser) looksLikeDecl() bool {
	return p.peek(1).Kind == token.IDENT &&
		(p.peek(2).Kind == token.ASSIGN || p.peek(2).Kind == token.COMMA || p.peek(2).Kind == token.SEMI)
}

func (p *Parser) block() *ast.Block {
	line := p.expect(token.LBRACE).Line
	var stmts []ast.Stmt
	p.skipSemis()
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		stmts = append(stmts, p.statement())
		p.skipSemis()
	}
	p.expect(token.RBRACE)
	return ast.NewBlock(line, stmts)
}

func (p *Parser) varDecl() *ast.VarDeclStmt {
	kindTok := p.advance()
	var names []string
	var inits []ast.Expr
	for {
		names = append(names, p.expect(token.IDENT).Lexeme)
		var init ast.Expr
		if p.match(token.ASSIGN) {
			init = p.expression()
		}
		inits = append(inits, init)
		if !p.match(token.COMMA) {
			break
		}
	}
	return ast.NewVarDeclStmt(kindTok.Line, kindTok.Kind, names, inits)
}

// paramQualifier recognizes the NORMAL/REF/SLOT/VAL/CLONE parameter
// qualifier prefixes (spec.md §4.3.3).
func (p *Parser) paramQualifier() token.Kind {
	switch p.cur().Kind {
	case token.REF, token.SLOT, token.VAL, token.CLONE:
		return p.advance().Kind
	default:
		return token.ILLEGAL
	}
}

func (p *Parser) params() []ast.Param {
	p.expect(token.LPAREN)
	var params []ast.Param
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		q := p.paramQualifier()
		name := p.expect(token.IDENT).Lexeme
		params = append(params, ast.Param{Name: name, Qualifier: q})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) funcDecl() *ast.FuncDeclStmt {
	line := p.expect(token.FUNC).Line
	name := p.expect(token.IDENT).Lexeme
	params := p.params()
	body := p.block()
	return ast.NewFuncDeclStmt(line, ast.NewFuncExpr(line, name, params, body))
}

func (p *Parser) structDecl() *ast.StructDeclStmt {
	line := p.expect(token.STRUCT).Line
	name := p.expect(token.IDENT).Lexeme
	p.expect(token.LBRACE)
	var fields []string
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		fields = append(fields, p.expect(token.IDENT).Lexeme)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return ast.NewStructDeclStmt(line, name, fields)
}

func (p *Parser) enumDecl() *ast.EnumDeclStmt {
	line := p.expect(token.ENUM).Line
	name := p.expect(token.IDENT).Lexeme
	p.expect(token.LBRACE)
	var variants []string
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		variants = append(variants, p.expect(token.IDENT).Lexeme)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return ast.NewEnumDeclStmt(line, name, variants)
}

func (p *Parser) ifStmt() *ast.IfStmt {
	line := p.expect(token.IF).Line
	p.expect(token.LPAREN)
	cond := p.expression()
	p.expect(token.RPAREN)
	then := p.block()
	var els ast.Stmt
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			els = p.ifStmt()
		} else {
			els = p.block()
		}
	}
	return ast.NewIfStmt(line, cond, then, els)
}

func (p *Parser) whileStmt() *ast.WhileStmt {
	line := p.expect(token.WHILE).Line
	p.expect(token.LPAREN)
	cond := p.expression()
	p.expect(token.RPAREN)
	body := p.block()
	return ast.NewWhileStmt(line, cond, body)
}

func (p *Parser) doWhileStmt() *ast.DoWhileStmt {
	line := p.expect(token.DO).Line
	body := p.block()
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.expression()
	p.expect(token.RPAREN)
	return ast.NewDoWhileStmt(line, body, cond)
}

func (p *Parser) forStmt() *ast.ForStmt {
	line := p.expect(token.FOR).Line
	p.expect(token.LPAREN)
	var init ast.Stmt
	if !p.check(token.SEMI) {
		init = p.statement()
	}
	p.match(token.SEMI)
	var cond ast.Expr
	if !p.check(token.SEMI) {
		cond = p.expression()
	}
	p.expect(token.SEMI)
	var post ast.Stmt
	if !p.check(token.RPAREN) {
		line := p.cur().Line
		post = ast.NewExprStmt(line, p.expression())
	}
	p.expect(token.RPAREN)
	body := p.block()
	return ast.NewForStmt(line, init, cond, post, body)
}

func (p *Parser) switchStmt() *ast.SwitchStmt {
	line := p.expect(token.SWITCH).Line
	p.expect(token.LPAREN)
	disc := p.expression()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	var cases []ast.SwitchCase
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		var c ast.SwitchCase
		if p.match(token.CASE) {
			c.Values = append(c.Values, p.expression())
			for p.match(token.COMMA) {
				c.Values = append(c.Values, p.expression())
			}
		} else {
			p.expect(token.DEFAULT)
		}
		p.expect(token.COLON)
		for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) && !p.check(token.EOF) {
			c.Body = append(c.Body, p.statement())
			p.skipSemis()
		}
		cases = append(cases, c)
	}
	p.expect(token.RBRACE)
	return ast.NewSwitchStmt(line, disc, cases)
}

func (p *Parser) returnStmt() *ast.ReturnStmt {
	line := p.expect(token.RETURN).Line
	var x ast.Expr
	if !p.check(token.SEMI) && !p.check(token.RBRACE) && !p.check(token.EOF) {
		x = p.expression()
	}
	return ast.NewReturnStmt(line, x)
}
