package compiler

func isStorageKeyword(kw Keyword) bool {
	switch kw {
	case KW_AUTO, KW_REGISTER, KW_STATIC, KW_EXTERN, KW_TYPEDEF:
		return true
	}
	return false
}

func isTypeKeyword(kw Keyword) bool {
	switch kw {
	case KW_VOID, KW_CHAR, KW_SHORT, KW_INT, KW_LONG, KW_FLOAT, KW_DOUBLE, KW_SIGNED, KW_UNSIGNED:
		return true
	}
	return false
}

func isQualifierKeyword(kw Keyword) bool {
	switch kw {
	case KW_CONST, KW_VOLATILE, KW_RESTRICT, KW_INLINE:
		return true
	}
	return false
}

// startsTypeName reports whether cur can open a type name.
func (p *Parser) startsTypeName() bool {
	if p.cur.Kind != KEYWORD {
		return false
	}
	kw := p.cur.Keyword
	return isTypeKeyword(kw) || isQualifierKeyword(kw) || kw == KW_STRUCT
}

// startsDeclaration reports whether cur can open a declaration.
func (p *Parser) startsDeclaration() bool {
	return p.startsTypeName() || (p.cur.Kind == KEYWORD && isStorageKeyword(p.cur.Keyword))
}

// specifiers = (storage | type | qualifier | structSpec)+
func (p *Parser) specifiers() result {
	if !p.startsDeclaration() {
		return empty()
	}
	specs := &DeclSpecs{Position: p.cur.Pos}
	for p.startsDeclaration() {
		tok := p.cur
		kw := tok.Keyword
		switch {
		case kw == KW_STRUCT:
			specs.Items = append(specs.Items, p.structSpec())
			continue
		case isStorageKeyword(kw):
			specs.Items = append(specs.Items, &StorageSpec{Position: tok.Pos, Tok: tok})
		case isTypeKeyword(kw):
			specs.Items = append(specs.Items, &TypeSpec{Position: tok.Pos, Tok: tok})
		default:
			specs.Items = append(specs.Items, &Qualifier{Position: tok.Pos, Tok: tok})
		}
		p.next()
	}
	if p.cur.Kind == KEYWORD && (p.cur.Keyword == KW_ENUM || p.cur.Keyword == KW_UNION) {
		p.fail(p.cur, "%s is not supported", p.cur.Keyword)
	}
	return success(specs)
}

// structSpec = "struct" ID? ("{" memberDecl* "}")?
func (p *Parser) structSpec() *StructSpec {
	kw := p.expectKeyword(KW_STRUCT)
	s := &StructSpec{Position: kw.Pos}
	if tag, ok := p.acceptKind(IDENTIFIER); ok {
		s.Tag = tag.Lexeme
	}
	if _, ok := p.accept(LBRACE); !ok {
		if s.Tag == "" {
			p.fail(p.cur, "expected struct tag or '{', got %s", p.cur.describe())
		}
		return s
	}
	s.HasBody = true
	members, r := p.repeat(p.memberDeclaration)
	if !r.ok {
		p.require(r, "member declaration")
	}
	for _, m := range members {
		s.Members = append(s.Members, m.(*Declaration))
	}
	p.expect(RBRACE)
	return s
}

// memberDeclaration = specifiers declarator ("," declarator)* ";"
func (p *Parser) memberDeclaration() result {
	r := p.specifiers()
	if !r.ok || r.isEmpty() {
		return r
	}
	d := &Declaration{Position: r.node.Pos(), Specs: r.node.(*DeclSpecs)}
	decls, lr := p.list(p.concreteDeclarator, COMMA, "declarator")
	p.require(lr, "declarator")
	for _, n := range decls {
		decl := n.(*Declarator)
		d.Inits = append(d.Inits, &InitDeclarator{Position: decl.Pos(), Decl: decl})
	}
	p.expect(SEMICOLON)
	return success(d)
}

// pointer = "*" qualifier* pointer?
func (p *Parser) pointer() *Pointer {
	star, ok := p.accept(STAR)
	if !ok {
		return nil
	}
	ptr := &Pointer{Position: star.Pos}
	for p.cur.Kind == KEYWORD && isQualifierKeyword(p.cur.Keyword) {
		ptr.Quals = append(ptr.Quals, &Qualifier{Position: p.cur.Pos, Tok: p.cur})
		p.next()
	}
	ptr.Next = p.pointer()
	return ptr
}

func (p *Parser) concreteDeclarator() result { return p.declarator(false) }

// declarator = pointer? direct. With abstract set the identifier may be
// missing; a declarator with neither pointer nor direct part is empty.
func (p *Parser) declarator(abstract bool) result {
	start := p.cur.Pos
	ptr := p.pointer()
	direct := p.direct(abstract)
	if ptr == nil && direct == nil {
		if abstract {
			return empty()
		}
		return failure("expected identifier or '(', got "+p.cur.describe(), p.cur.Pos)
	}
	return success(&Declarator{Position: start, Pointer: ptr, Direct: direct})
}

// direct = (ID | "(" declarator ")") ("[" conditional? "]" | "(" params ")")*
func (p *Parser) direct(abstract bool) DirectDecl {
	var left DirectDecl
	switch {
	case p.cur.Kind == IDENTIFIER:
		left = &NameDecl{Position: p.cur.Pos, Name: p.cur.Lexeme}
		p.next()
	case p.cur.Is(LPAREN):
		lp := p.cur
		p.next()
		if abstract && !p.cur.Is(STAR) && !p.cur.Is(LPAREN) && !p.cur.Is(LBRACKET) {
			// "(int)" after an abstract declarator is a parameter list
			left = &FuncDecl{Position: lp.Pos, Params: p.parameters(lp)}
			break
		}
		inner := p.require(p.declarator(abstract), "declarator").(*Declarator)
		p.expect(RPAREN)
		left = &ParenDecl{Position: lp.Pos, Inner: inner}
	case abstract && p.cur.Is(LBRACKET):
	default:
		if !abstract {
			p.fail(p.cur, "expected identifier or '(', got %s", p.cur.describe())
		}
		return nil
	}

	for {
		tok, ok := p.accept(LBRACKET, LPAREN)
		if !ok {
			return left
		}
		pos := tok.Pos
		if left != nil {
			pos = left.Pos()
		}
		if tok.Op == LBRACKET {
			arr := &ArrayDecl{Position: pos, Left: left}
			if _, closed := p.accept(RBRACKET); !closed {
				arr.Size = p.requireExpr(p.conditional())
				p.expect(RBRACKET)
			}
			left = arr
			continue
		}
		left = &FuncDecl{Position: pos, Left: left, Params: p.parameters(tok)}
	}
}

// parameters parses the rest of a parameter list after "(".
func (p *Parser) parameters(lp Token) Node {
	if _, ok := p.accept(RPAREN); ok {
		return &EmptyList{Position: lp.Pos}
	}
	items, r := p.list(p.parameter, COMMA, "parameter declaration")
	p.require(r, "parameter declaration")
	p.expect(RPAREN)
	params := &ParamList{Position: items[0].Pos()}
	for _, it := range items {
		params.Items = append(params.Items, it.(*ParamDecl))
	}
	return params
}

// parameter = specifiers declarator?  (named or abstract)
func (p *Parser) parameter() result {
	r := p.specifiers()
	if !r.ok {
		return r
	}
	if r.isEmpty() {
		return failure("expected parameter declaration, got "+p.cur.describe(), p.cur.Pos)
	}
	param := &ParamDecl{Position: r.node.Pos(), Specs: r.node.(*DeclSpecs)}
	if d := p.declarator(true); !d.isEmpty() {
		param.Decl = d.node.(*Declarator)
	}
	return success(param)
}

// typeName = specifiers abstractDeclarator?
func (p *Parser) typeName() result {
	if !p.startsTypeName() {
		return empty()
	}
	r := p.specifiers()
	tn := &TypeName{Position: r.node.Pos(), Specs: r.node.(*DeclSpecs)}
	if d := p.declarator(true); !d.isEmpty() {
		tn.Decl = d.node.(*Declarator)
	}
	return success(tn)
}

// initializer = assignment | "{" initializer ("," initializer)* ","? "}"
func (p *Parser) initializer() result {
	lb, ok := p.accept(LBRACE)
	if !ok {
		r := p.assignment()
		if !r.ok || r.isEmpty() {
			return r
		}
		return success(&ExprInit{Position: r.node.Pos(), X: r.node.(Expr)})
	}
	list := &InitList{Position: lb.Pos}
	for !p.cur.Is(RBRACE) {
		list.Items = append(list.Items, p.require(p.initializer(), "initializer").(Initializer))
		if _, more := p.accept(COMMA); !more {
			break
		}
	}
	p.expect(RBRACE)
	return success(list)
}

// initDeclarator = declarator ("=" initializer)?
func (p *Parser) initDeclarator() result {
	r := p.declarator(false)
	if !r.ok {
		return r
	}
	return success(p.finishInitDeclarator(r.node.(*Declarator)))
}

func (p *Parser) finishInitDeclarator(d *Declarator) *InitDeclarator {
	init := &InitDeclarator{Position: d.Pos(), Decl: d}
	if _, ok := p.accept(ASSIGN); ok {
		init.Init = p.require(p.initializer(), "initializer").(Initializer)
	}
	return init
}

// declaration = specifiers (initDeclarator ("," initDeclarator)*)? ";"
func (p *Parser) declaration() result {
	r := p.specifiers()
	if !r.ok || r.isEmpty() {
		return r
	}
	specs := r.node.(*DeclSpecs)
	d := &Declaration{Position: specs.Pos(), Specs: specs}
	if _, ok := p.accept(SEMICOLON); ok {
		return success(d)
	}
	inits, lr := p.list(p.initDeclarator, COMMA, "declarator")
	p.require(lr, "declarator")
	for _, n := range inits {
		d.Inits = append(d.Inits, n.(*InitDeclarator))
	}
	p.expect(SEMICOLON)
	return success(d)
}

// externalDecl = specifiers declarator compound
//
//	| specifiers (initDeclarator ("," initDeclarator)*)? ";"
func (p *Parser) externalDecl() result {
	r := p.specifiers()
	if !r.ok || r.isEmpty() {
		return r
	}
	specs := r.node.(*DeclSpecs)
	if _, ok := p.accept(SEMICOLON); ok {
		return success(&Declaration{Position: specs.Pos(), Specs: specs})
	}
	d := p.require(p.declarator(false), "declarator").(*Declarator)
	if p.cur.Is(LBRACE) {
		if _, ok := d.Direct.(*FuncDecl); !ok {
			p.fail(p.cur, "expected ';', got %s", p.cur.describe())
		}
		body := p.compound()
		return success(&FunctionDef{Position: specs.Pos(), Specs: specs, Decl: d, Body: body})
	}
	decl := &Declaration{Position: specs.Pos(), Specs: specs}
	decl.Inits = append(decl.Inits, p.finishInitDeclarator(d))
	for {
		if _, ok := p.accept(COMMA); !ok {
			break
		}
		decl.Inits = append(decl.Inits, p.require(p.initDeclarator(), "declarator").(*InitDeclarator))
	}
	p.expect(SEMICOLON)
	return success(decl)
}

// translationUnit = externalDecl* EOF
func (p *Parser) translationUnit() result {
	unit := &TranslationUnit{Position: p.cur.Pos}
	for p.cur.Kind != EOF {
		r := p.externalDecl()
		if r.isEmpty() {
			p.fail(p.cur, "expected declaration or function definition, got %s", p.cur.describe())
		}
		unit.Decls = append(unit.Decls, p.require(r, "declaration").(ExternalDecl))
	}
	return success(unit)
}
