package compiler

import (
	"fmt"
)

// TokenSource yields tokens one at a time; *Lexer is the usual one.
type TokenSource interface {
	Next() (Token, error)
}

// Parser is a recursive-descent parser over a TokenSource with one token of
// lookahead.
//
// Two disciplines coexist. Tentative steps return a result and never raise:
// a failure (or the empty result) tells the caller to try something else.
// Committed steps (expect*, require) raise a *SyntaxError by panicking; the
// exported entry points recover it and return it as an ordinary error.
// Lexical errors travel the same way and come out unchanged.
//
// Grammar (C89 subset):
//
//	unit        = (functionDef | declaration)* EOF
//	declaration = specifiers (initDecl ("," initDecl)*)? ";"
//	statement   = compound | if | switch | while | do | for | break | continue | return | expr? ";"
//	compound    = "{" declaration* statement* "}"
//	expression  = assignment ("," assignment)*
//	assignment  = conditional (assignOp assignment)?
//	conditional = logicalOr ("?" expression ":" conditional)?
//	logicalOr   = logicalAnd ("||" logicalAnd)*   ... down to multiplicative
//	cast        = "(" typeName ")" cast | unary
//	unary       = ("++"|"--") unary | ("&"|"*"|"+"|"-"|"~"|"!") cast | postfix
//	postfix     = primary ("[" expression "]" | "(" args? ")" | "." ID | "->" ID | "++" | "--")*
//	primary     = ID | constant | STRING+ | "(" expression ")"
type Parser struct {
	src    TokenSource
	cur    Token
	primed bool
	count  int // tokens consumed so far
}

func NewParser(src TokenSource) *Parser {
	return &Parser{src: src}
}

// result is the outcome of a tentative parse step: a node, the empty
// success ("nothing of this kind here"), or a failure with a position.
type result struct {
	node Node
	ok   bool
	msg  string
	pos  Position
}

func success(n Node) result { return result{node: n, ok: true} }
func empty() result         { return result{ok: true} }

func failure(msg string, pos Position) result {
	return result{msg: msg, pos: pos}
}

func (r result) isEmpty() bool { return r.ok && r.node == nil }

//  Token handling

// next pulls the following token into cur.
func (p *Parser) next() {
	tok, err := p.src.Next()
	if err != nil {
		panic(err)
	}
	p.cur = tok
	p.count++
}

func (p *Parser) prime() {
	if !p.primed {
		p.primed = true
		p.next()
		p.count = 0
	}
}

// accept consumes cur if it is one of ops.
func (p *Parser) accept(ops ...Operator) (Token, bool) {
	if p.cur.Kind != OPERATOR {
		return p.cur, false
	}
	for _, op := range ops {
		if p.cur.Op == op {
			tok := p.cur
			p.next()
			return tok, true
		}
	}
	return p.cur, false
}

// acceptKeyword consumes cur if it is one of kws.
func (p *Parser) acceptKeyword(kws ...Keyword) (Token, bool) {
	if p.cur.Kind != KEYWORD {
		return p.cur, false
	}
	for _, kw := range kws {
		if p.cur.Keyword == kw {
			tok := p.cur
			p.next()
			return tok, true
		}
	}
	return p.cur, false
}

// acceptKind consumes cur if it has the given kind.
func (p *Parser) acceptKind(kind TokenKind) (Token, bool) {
	if p.cur.Kind != kind {
		return p.cur, false
	}
	tok := p.cur
	p.next()
	return tok, true
}

func (p *Parser) expect(op Operator) Token {
	tok, ok := p.accept(op)
	if !ok {
		p.fail(p.cur, "expected '%s', got %s", op, p.cur.describe())
	}
	return tok
}

func (p *Parser) expectKeyword(kw Keyword) Token {
	tok, ok := p.acceptKeyword(kw)
	if !ok {
		p.fail(p.cur, "expected '%s', got %s", kw, p.cur.describe())
	}
	return tok
}

func (p *Parser) expectIdentifier() Token {
	tok, ok := p.acceptKind(IDENTIFIER)
	if !ok {
		p.fail(p.cur, "expected identifier, got %s", p.cur.describe())
	}
	return tok
}

// fail raises a syntax error at tok.
func (p *Parser) fail(tok Token, format string, args ...any) {
	panic(&SyntaxError{
		Pos:   tok.Pos,
		Msg:   fmt.Sprintf(format, args...),
		AtEOF: tok.Kind == EOF,
	})
}

// require commits to r: a failure or an empty result becomes a syntax error.
func (p *Parser) require(r result, what string) Node {
	if !r.ok {
		panic(&SyntaxError{Pos: r.pos, Msg: r.msg, AtEOF: p.cur.Kind == EOF && r.pos == p.cur.Pos})
	}
	if r.node == nil {
		p.fail(p.cur, "expected %s, got %s", what, p.cur.describe())
	}
	return r.node
}

func (p *Parser) requireExpr(r result) Expr {
	return p.require(r, "expression").(Expr)
}

// attempt runs a tentative step and turns a failure that consumed nothing
// into the empty result.
func (p *Parser) attempt(step func() result) result {
	before := p.count
	r := step()
	if !r.ok && p.count == before {
		return empty()
	}
	return r
}

//  Combinators

// binary parses next (op next)* and folds it left-associatively.
func (p *Parser) binary(next func() result, ops ...Operator) result {
	r := next()
	if !r.ok || r.isEmpty() {
		return r
	}
	x := r.node.(Expr)
	for {
		tok, ok := p.accept(ops...)
		if !ok {
			return success(x)
		}
		y := p.requireExpr(next())
		x = &BinaryExpr{Position: x.Pos(), Op: tok.Op, X: x, Y: y}
	}
}

// list parses item (sep item)*: at least one item with a separator between.
// An empty first item yields the empty result.
func (p *Parser) list(item func() result, sep Operator, what string) ([]Node, result) {
	first := item()
	if !first.ok || first.isEmpty() {
		return nil, first
	}
	items := []Node{first.node}
	for {
		if _, ok := p.accept(sep); !ok {
			return items, success(first.node)
		}
		items = append(items, p.require(item(), what))
	}
}

// repeat parses item* until item yields the empty result.
func (p *Parser) repeat(item func() result) ([]Node, result) {
	var items []Node
	for {
		r := item()
		if !r.ok {
			return nil, r
		}
		if r.isEmpty() {
			return items, empty()
		}
		items = append(items, r.node)
	}
}

//  Entry points

// run primes the lookahead, runs step, insists on end of input and turns
// panics raised by committed steps back into errors.
func (p *Parser) run(step func() result, what string) (n Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch e := rec.(type) {
			case *SyntaxError:
				n, err = nil, e
			case *LexError:
				n, err = nil, e
			default:
				panic(rec)
			}
		}
	}()

	p.prime()
	n = p.require(step(), what)
	if p.cur.Kind != EOF {
		p.fail(p.cur, "unexpected %s after %s", p.cur.describe(), what)
	}
	return n, nil
}

// Expression parses a whole input as one expression.
func (p *Parser) Expression() (Expr, error) {
	n, err := p.run(p.expression, "expression")
	if err != nil {
		return nil, err
	}
	return n.(Expr), nil
}

// Statement parses a whole input as one statement.
func (p *Parser) Statement() (Stmt, error) {
	n, err := p.run(p.statement, "statement")
	if err != nil {
		return nil, err
	}
	return n.(Stmt), nil
}

// TranslationUnit parses a whole source file.
func (p *Parser) TranslationUnit() (*TranslationUnit, error) {
	n, err := p.run(p.translationUnit, "translation unit")
	if err != nil {
		return nil, err
	}
	return n.(*TranslationUnit), nil
}

func ParseExpression(src string) (Expr, error) {
	return NewParser(NewLexer(src)).Expression()
}

func ParseStatement(src string) (Stmt, error) {
	return NewParser(NewLexer(src)).Statement()
}

func ParseTranslationUnit(src string) (*TranslationUnit, error) {
	return NewParser(NewLexer(src)).TranslationUnit()
}
