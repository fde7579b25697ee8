package compiler

var assignOps = []Operator{
	ASSIGN, STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN,
	SHL_ASSIGN, SHR_ASSIGN, AMP_ASSIGN, CARET_ASSIGN, PIPE_ASSIGN,
}

// expression = assignment ("," assignment)*
func (p *Parser) expression() result { return p.binary(p.assignment, COMMA) }

// assignment = conditional (assignOp assignment)?
//
// The left side is parsed as a conditional; whether it designates storage
// is for the analyzer to decide.
func (p *Parser) assignment() result {
	r := p.conditional()
	if !r.ok || r.isEmpty() {
		return r
	}
	tok, ok := p.accept(assignOps...)
	if !ok {
		return r
	}
	x := r.node.(Expr)
	y := p.requireExpr(p.assignment())
	return success(&AssignExpr{Position: x.Pos(), Op: tok.Op, X: x, Y: y})
}

// conditional = logicalOr ("?" expression ":" conditional)?
func (p *Parser) conditional() result {
	r := p.logicalOr()
	if !r.ok || r.isEmpty() {
		return r
	}
	if _, ok := p.accept(QUESTION); !ok {
		return r
	}
	cond := r.node.(Expr)
	then := p.requireExpr(p.expression())
	p.expect(COLON)
	els := p.requireExpr(p.conditional())
	return success(&CondExpr{Position: cond.Pos(), Cond: cond, Then: then, Else: els})
}

func (p *Parser) logicalOr() result  { return p.binary(p.logicalAnd, OR_OR) }
func (p *Parser) logicalAnd() result { return p.binary(p.bitwiseOr, AND_AND) }
func (p *Parser) bitwiseOr() result  { return p.binary(p.bitwiseXor, PIPE) }
func (p *Parser) bitwiseXor() result { return p.binary(p.bitwiseAnd, CARET) }
func (p *Parser) bitwiseAnd() result { return p.binary(p.equality, AMP) }
func (p *Parser) equality() result   { return p.binary(p.relational, EQUALS, NOT_EQ) }
func (p *Parser) relational() result {
	return p.binary(p.shift, LESS, GREATER, LESS_EQ, GREATER_EQ)
}
func (p *Parser) shift() result          { return p.binary(p.additive, SHL, SHR) }
func (p *Parser) additive() result       { return p.binary(p.multiplicative, PLUS, MINUS) }
func (p *Parser) multiplicative() result { return p.binary(p.cast, STAR, SLASH, PERCENT) }

// cast = "(" typeName ")" cast | unary
//
// After "(" the type name alternative is tried first: a type keyword can
// only start a type name. Otherwise the parenthesised expression is parsed
// and may be followed by postfix operators.
func (p *Parser) cast() result {
	lp, ok := p.accept(LPAREN)
	if !ok {
		return p.unary()
	}
	if tn := p.typeName(); tn.ok && !tn.isEmpty() {
		p.expect(RPAREN)
		x := p.requireExpr(p.cast())
		return success(&CastExpr{Position: lp.Pos, Type: tn.node.(*TypeName), X: x})
	}
	inner := p.requireExpr(p.expression())
	p.expect(RPAREN)
	return success(p.postfixTail(inner))
}

// unary = ("++"|"--") unary | ("&"|"*"|"+"|"-"|"~"|"!") cast | postfix
func (p *Parser) unary() result {
	if tok, ok := p.accept(INC, DEC); ok {
		x := p.requireExpr(p.unary())
		return success(&UnaryExpr{Position: tok.Pos, Op: tok.Op, X: x})
	}
	if tok, ok := p.accept(AMP, STAR, PLUS, MINUS, TILDE, BANG); ok {
		x := p.requireExpr(p.cast())
		return success(&UnaryExpr{Position: tok.Pos, Op: tok.Op, X: x})
	}
	if tok, ok := p.acceptKeyword(KW_SIZEOF); ok {
		p.fail(tok, "sizeof is not supported")
	}
	return p.postfix()
}

// postfix = primary postfixTail
func (p *Parser) postfix() result {
	r := p.primary()
	if !r.ok || r.isEmpty() {
		return r
	}
	return success(p.postfixTail(r.node.(Expr)))
}

// postfixTail applies "[e]", "(args)", ".id", "->id", "++" and "--" to x
// for as long as they follow.
func (p *Parser) postfixTail(x Expr) Expr {
	for {
		tok, ok := p.accept(LBRACKET, LPAREN, DOT, ARROW, INC, DEC)
		if !ok {
			return x
		}
		switch tok.Op {
		case LBRACKET:
			idx := p.requireExpr(p.expression())
			p.expect(RBRACKET)
			x = &IndexExpr{Position: x.Pos(), X: x, Index: idx}
		case LPAREN:
			x = &CallExpr{Position: x.Pos(), Fn: x, Args: p.arguments(tok)}
		case DOT, ARROW:
			name := p.expectIdentifier()
			x = &MemberExpr{Position: x.Pos(), X: x, Name: name.Lexeme, Arrow: tok.Op == ARROW}
		case INC, DEC:
			x = &PostfixExpr{Position: x.Pos(), Op: tok.Op, X: x}
		}
	}
}

// arguments parses the rest of a call after "(".
func (p *Parser) arguments(lp Token) Node {
	if _, ok := p.accept(RPAREN); ok {
		return &EmptyList{Position: lp.Pos}
	}
	items, r := p.list(p.assignment, COMMA, "argument")
	p.require(r, "argument")
	p.expect(RPAREN)
	args := &ExprList{Position: items[0].Pos()}
	for _, it := range items {
		args.Items = append(args.Items, it.(Expr))
	}
	return args
}

// primary = ID | constant | STRING+ | "(" expression ")"
func (p *Parser) primary() result {
	tok := p.cur
	switch tok.Kind {
	case IDENTIFIER:
		p.next()
		return success(&Ident{Position: tok.Pos, Name: tok.Lexeme})
	case INTEGER, FLOAT, CHAR:
		p.next()
		return success(&Const{Position: tok.Pos, Tok: tok})
	case STRING:
		p.next()
		s := &StringLit{Position: tok.Pos, Value: tok.Value.(string)}
		// adjacent literals are concatenated
		for p.cur.Kind == STRING {
			s.Value += p.cur.Value.(string)
			p.next()
		}
		return success(s)
	case OPERATOR:
		if tok.Op == LPAREN {
			p.next()
			x := p.requireExpr(p.expression())
			p.expect(RPAREN)
			return success(x)
		}
	}
	return failure("expected expression, got "+tok.describe(), tok.Pos)
}
