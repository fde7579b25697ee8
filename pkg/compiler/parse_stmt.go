package compiler

// statement parses one statement. It yields the empty result when cur
// cannot start a statement (for example the "}" closing a block).
func (p *Parser) statement() result {
	tok := p.cur
	switch tok.Kind {
	case OPERATOR:
		switch tok.Op {
		case LBRACE:
			return success(p.compound())
		case SEMICOLON:
			p.next()
			return success(&ExprStmt{Position: tok.Pos})
		}
	case KEYWORD:
		switch tok.Keyword {
		case KW_IF:
			return success(p.ifStmt())
		case KW_SWITCH:
			return success(p.switchStmt())
		case KW_WHILE:
			return success(p.whileStmt())
		case KW_DO:
			return success(p.doWhileStmt())
		case KW_FOR:
			return success(p.forStmt())
		case KW_BREAK, KW_CONTINUE:
			p.next()
			p.expect(SEMICOLON)
			return success(&JumpStmt{Position: tok.Pos, Keyword: tok.Keyword})
		case KW_RETURN:
			return success(p.returnStmt())
		case KW_GOTO:
			p.fail(tok, "goto statements are not supported")
		case KW_CASE, KW_DEFAULT:
			p.fail(tok, "labeled statements are not supported")
		}
	}

	r := p.attempt(p.expression)
	if !r.ok || r.isEmpty() {
		return r
	}
	p.expect(SEMICOLON)
	return success(&ExprStmt{Position: tok.Pos, X: r.node.(Expr)})
}

func (p *Parser) requireStmt() Stmt {
	return p.require(p.statement(), "statement").(Stmt)
}

// compound = "{" declaration* statement* "}"
func (p *Parser) compound() *CompoundStmt {
	lb := p.expect(LBRACE)
	block := &CompoundStmt{Position: lb.Pos}

	decls, r := p.repeat(p.declaration)
	if !r.ok {
		p.require(r, "declaration")
	}
	for _, d := range decls {
		block.Decls = append(block.Decls, d.(*Declaration))
	}

	stmts, r := p.repeat(p.statement)
	if !r.ok {
		p.require(r, "statement")
	}
	for _, s := range stmts {
		block.Stmts = append(block.Stmts, s.(Stmt))
	}

	if p.startsDeclaration() {
		p.fail(p.cur, "declaration after statement")
	}
	p.expect(RBRACE)
	return block
}

// condition parses "(" expression ")".
func (p *Parser) condition() Expr {
	p.expect(LPAREN)
	x := p.requireExpr(p.expression())
	p.expect(RPAREN)
	return x
}

// if = "if" "(" expression ")" statement ("else" statement)?
func (p *Parser) ifStmt() *IfStmt {
	kw := p.expectKeyword(KW_IF)
	s := &IfStmt{Position: kw.Pos, Cond: p.condition()}
	s.Then = p.requireStmt()
	if _, ok := p.acceptKeyword(KW_ELSE); ok {
		s.Else = p.requireStmt()
	}
	return s
}

// switch = "switch" "(" expression ")" statement
func (p *Parser) switchStmt() *SwitchStmt {
	kw := p.expectKeyword(KW_SWITCH)
	s := &SwitchStmt{Position: kw.Pos, Tag: p.condition()}
	s.Body = p.requireStmt()
	return s
}

// while = "while" "(" expression ")" statement
func (p *Parser) whileStmt() *WhileStmt {
	kw := p.expectKeyword(KW_WHILE)
	s := &WhileStmt{Position: kw.Pos, Cond: p.condition()}
	s.Body = p.requireStmt()
	return s
}

// do = "do" statement "while" "(" expression ")" ";"
func (p *Parser) doWhileStmt() *WhileStmt {
	kw := p.expectKeyword(KW_DO)
	s := &WhileStmt{Position: kw.Pos, DoWhile: true}
	s.Body = p.requireStmt()
	p.expectKeyword(KW_WHILE)
	s.Cond = p.condition()
	p.expect(SEMICOLON)
	return s
}

// for = "for" "(" expression? ";" expression? ";" expression? ")" statement
func (p *Parser) forStmt() *ForStmt {
	kw := p.expectKeyword(KW_FOR)
	s := &ForStmt{Position: kw.Pos}
	p.expect(LPAREN)
	if p.startsDeclaration() {
		p.fail(p.cur, "declarations are not allowed in a for header")
	}
	if _, ok := p.accept(SEMICOLON); !ok {
		s.Init = p.requireExpr(p.expression())
		p.expect(SEMICOLON)
	}
	if _, ok := p.accept(SEMICOLON); !ok {
		s.Cond = p.requireExpr(p.expression())
		p.expect(SEMICOLON)
	}
	if _, ok := p.accept(RPAREN); !ok {
		s.Post = p.requireExpr(p.expression())
		p.expect(RPAREN)
	}
	s.Body = p.requireStmt()
	return s
}

// return = "return" expression? ";"
func (p *Parser) returnStmt() *ReturnStmt {
	kw := p.expectKeyword(KW_RETURN)
	s := &ReturnStmt{Position: kw.Pos}
	if _, ok := p.accept(SEMICOLON); ok {
		return s
	}
	s.X = p.requireExpr(p.expression())
	p.expect(SEMICOLON)
	return s
}
