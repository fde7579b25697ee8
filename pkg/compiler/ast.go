package compiler

import (
	"fmt"
	"strings"
)

// Node is implemented by every syntax tree node. Every node embeds the
// Position of its first token.
type Node interface {
	Pos() Position
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Ident is a reference to a named variable or function.
//
//	return x;
//	       ^  Ident{Name: "x"}
type Ident struct {
	Position
	Name string
}

// Const is an integer, floating or character constant.
//
//	x = 'a';
//	    ^^^  Const{Tok: Token{Kind: CHAR, Value: int64(97)}}
type Const struct {
	Position
	Tok Token
}

// StringLit is a string literal; Value is already unescaped.
type StringLit struct {
	Position
	Value string
}

// IndexExpr is X[Index].
type IndexExpr struct {
	Position
	X     Expr
	Index Expr
}

// CallExpr is Fn(args). Args is *ExprList, or *EmptyList for "()".
type CallExpr struct {
	Position
	Fn   Expr
	Args Node
}

// Arguments returns the argument expressions, nil for an empty list.
func (c *CallExpr) Arguments() []Expr {
	if l, ok := c.Args.(*ExprList); ok {
		return l.Items
	}
	return nil
}

// MemberExpr is X.Name or, with Arrow set, X->Name.
type MemberExpr struct {
	Position
	X     Expr
	Name  string
	Arrow bool
}

// PostfixExpr is X++ or X--.
type PostfixExpr struct {
	Position
	Op Operator
	X  Expr
}

// UnaryExpr is a prefix operator applied to X: & * + - ~ ! ++ --.
type UnaryExpr struct {
	Position
	Op Operator
	X  Expr
}

// CastExpr is (Type) X.
type CastExpr struct {
	Position
	Type *TypeName
	X    Expr
}

// BinaryExpr represents X Op Y for every binary precedence level, including
// the logical && || (evaluated with short circuit) and the comma operator.
//
//	a + b * c
//	^ ^ ^^^^^
//	| | |
//	| | Y: BinaryExpr{Op: STAR}
//	| Op: PLUS
//	X
type BinaryExpr struct {
	Position
	Op Operator
	X  Expr
	Y  Expr
}

// CondExpr is Cond ? Then : Else.
type CondExpr struct {
	Position
	Cond Expr
	Then Expr
	Else Expr
}

// AssignExpr is X Op Y where Op is = or a compound assignment.
type AssignExpr struct {
	Position
	Op Operator
	X  Expr
	Y  Expr
}

func (*Ident) exprNode()       {}
func (*Const) exprNode()       {}
func (*StringLit) exprNode()   {}
func (*IndexExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}
func (*MemberExpr) exprNode()  {}
func (*PostfixExpr) exprNode() {}
func (*UnaryExpr) exprNode()   {}
func (*CastExpr) exprNode()    {}
func (*BinaryExpr) exprNode()  {}
func (*CondExpr) exprNode()    {}
func (*AssignExpr) exprNode()  {}

func (e *Ident) String() string     { return e.Name }
func (e *Const) String() string     { return e.Tok.Lexeme }
func (e *StringLit) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.X, e.Index) }
func (e *CallExpr) String() string  { return fmt.Sprintf("%s(%s)", e.Fn, e.Args) }
func (e *MemberExpr) String() string {
	if e.Arrow {
		return fmt.Sprintf("%s->%s", e.X, e.Name)
	}
	return fmt.Sprintf("%s.%s", e.X, e.Name)
}
func (e *PostfixExpr) String() string { return fmt.Sprintf("(%s%s)", e.X, e.Op) }
func (e *UnaryExpr) String() string   { return fmt.Sprintf("(%s%s)", e.Op, e.X) }
func (e *CastExpr) String() string    { return fmt.Sprintf("((%s) %s)", e.Type, e.X) }
func (e *BinaryExpr) String() string  { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }
func (e *CondExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Cond, e.Then, e.Else)
}
func (e *AssignExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }

// ExprList is a non-empty, comma separated argument list.
type ExprList struct {
	Position
	Items []Expr
}

func (l *ExprList) String() string { return joinNodes(l.Items, ", ") }

// EmptyList stands for "()" in a call or a function declarator, so that
// "no arguments" is told apart from a list that failed to parse.
type EmptyList struct {
	Position
}

func (*EmptyList) String() string { return "" }

//  Declaration specifiers

// Spec is one item of a declaration specifier list.
type Spec interface {
	Node
	specNode()
}

// StorageSpec is auto, register, static, extern or typedef.
type StorageSpec struct {
	Position
	Tok Token
}

// TypeSpec is a basic type keyword: void char short int long float double
// signed unsigned.
type TypeSpec struct {
	Position
	Tok Token
}

// Qualifier is const, volatile or restrict.
type Qualifier struct {
	Position
	Tok Token
}

// StructSpec either defines a struct (HasBody) or refers to one by Tag.
//
//	struct point { int x; int y; } p;
//	^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^  StructSpec{Tag: "point", HasBody: true, Members: [...]}
type StructSpec struct {
	Position
	Tag     string
	Members []*Declaration
	HasBody bool
}

func (*StorageSpec) specNode() {}
func (*TypeSpec) specNode()    {}
func (*Qualifier) specNode()   {}
func (*StructSpec) specNode()  {}

func (s *StorageSpec) String() string { return s.Tok.Lexeme }
func (s *TypeSpec) String() string    { return s.Tok.Lexeme }
func (s *Qualifier) String() string   { return s.Tok.Lexeme }
func (s *StructSpec) String() string {
	if !s.HasBody {
		return "struct " + s.Tag
	}
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s { ", s.Tag)
	for _, m := range s.Members {
		b.WriteString(m.String())
		b.WriteString(" ")
	}
	b.WriteString("}")
	return b.String()
}

// DeclSpecs is the specifier list that opens a declaration.
type DeclSpecs struct {
	Position
	Items []Spec
}

func (d *DeclSpecs) String() string { return joinNodes(d.Items, " ") }

//  Declarators

// Pointer is one "*" with its qualifiers; Next holds the following "*".
//
//	int * const * p;
//	    ^^^^^^^^^  Pointer{Quals: [const], Next: &Pointer{}}
type Pointer struct {
	Position
	Quals []*Qualifier
	Next  *Pointer
}

func (p *Pointer) String() string {
	s := "*"
	for _, q := range p.Quals {
		s += q.Tok.Lexeme + " "
	}
	if p.Next != nil {
		s += p.Next.String()
	}
	return s
}

// Declarator is an optional pointer chain followed by a direct declarator.
// Direct is nil for an abstract declarator such as the "*" in "(int *)".
type Declarator struct {
	Position
	Pointer *Pointer
	Direct  DirectDecl
}

func (d *Declarator) String() string {
	s := ""
	if d.Pointer != nil {
		s = d.Pointer.String()
	}
	if d.Direct != nil {
		s += d.Direct.String()
	}
	return s
}

// Name returns the declared identifier, or "" for an abstract declarator.
func (d *Declarator) Name() string {
	if d == nil {
		return ""
	}
	return directName(d.Direct)
}

func directName(d DirectDecl) string {
	switch n := d.(type) {
	case *NameDecl:
		return n.Name
	case *ParenDecl:
		return n.Inner.Name()
	case *ArrayDecl:
		return directName(n.Left)
	case *FuncDecl:
		return directName(n.Left)
	}
	return ""
}

// DirectDecl is the part of a declarator after the pointers.
type DirectDecl interface {
	Node
	directNode()
}

// NameDecl is the identifier being declared.
type NameDecl struct {
	Position
	Name string
}

// ParenDecl is "( declarator )".
type ParenDecl struct {
	Position
	Inner *Declarator
}

// ArrayDecl is Left[Size]; Size is nil for "[]". Left is nil when abstract.
type ArrayDecl struct {
	Position
	Left DirectDecl
	Size Expr
}

// FuncDecl is Left(params). Params is *ParamList, or *EmptyList for "()".
type FuncDecl struct {
	Position
	Left   DirectDecl
	Params Node
}

// ParamList is a non-empty parameter list.
type ParamList struct {
	Position
	Items []*ParamDecl
}

// ParamDecl is one parameter; Decl may be nil or abstract in a prototype.
type ParamDecl struct {
	Position
	Specs *DeclSpecs
	Decl  *Declarator
}

func (*NameDecl) directNode()  {}
func (*ParenDecl) directNode() {}
func (*ArrayDecl) directNode() {}
func (*FuncDecl) directNode()  {}

func (d *NameDecl) String() string  { return d.Name }
func (d *ParenDecl) String() string { return "(" + d.Inner.String() + ")" }
func (d *ArrayDecl) String() string {
	left := ""
	if d.Left != nil {
		left = d.Left.String()
	}
	if d.Size == nil {
		return left + "[]"
	}
	return fmt.Sprintf("%s[%s]", left, d.Size)
}
func (d *FuncDecl) String() string {
	left := ""
	if d.Left != nil {
		left = d.Left.String()
	}
	return fmt.Sprintf("%s(%s)", left, d.Params)
}
func (l *ParamList) String() string { return joinNodes(l.Items, ", ") }
func (p *ParamDecl) String() string {
	if p.Decl == nil {
		return p.Specs.String()
	}
	return p.Specs.String() + " " + p.Decl.String()
}

// TypeName is a specifier list with an optional abstract declarator, as
// used by casts.
type TypeName struct {
	Position
	Specs *DeclSpecs
	Decl  *Declarator
}

func (t *TypeName) String() string {
	if t.Decl == nil {
		return t.Specs.String()
	}
	return t.Specs.String() + " " + t.Decl.String()
}

//  Initializers and declarations

// Initializer is an expression or a brace enclosed list.
type Initializer interface {
	Node
	initNode()
}

// ExprInit is "= expression".
type ExprInit struct {
	Position
	X Expr
}

// InitList is "= { a, b, ... }".
type InitList struct {
	Position
	Items []Initializer
}

func (*ExprInit) initNode() {}
func (*InitList) initNode() {}

func (i *ExprInit) String() string { return i.X.String() }
func (i *InitList) String() string { return "{" + joinNodes(i.Items, ", ") + "}" }

// InitDeclarator is one declarator of a declaration with its initializer.
type InitDeclarator struct {
	Position
	Decl *Declarator
	Init Initializer
}

func (d *InitDeclarator) String() string {
	if d.Init == nil {
		return d.Decl.String()
	}
	return d.Decl.String() + " = " + d.Init.String()
}

// ExternalDecl is a top level item of a translation unit.
type ExternalDecl interface {
	Node
	externalNode()
}

// Declaration is "specifiers init-declarators ;".
//
//	int a = 1, *b;
//	^^^ ^^^^^  ^^
//	|   |      Inits[1]
//	|   Inits[0]
//	Specs
type Declaration struct {
	Position
	Specs *DeclSpecs
	Inits []*InitDeclarator
}

// FunctionDef is a function with its body.
type FunctionDef struct {
	Position
	Specs *DeclSpecs
	Decl  *Declarator
	Body  *CompoundStmt
}

func (*Declaration) externalNode() {}
func (*FunctionDef) externalNode() {}

func (d *Declaration) String() string {
	if len(d.Inits) == 0 {
		return d.Specs.String() + ";"
	}
	return d.Specs.String() + " " + joinNodes(d.Inits, ", ") + ";"
}
func (f *FunctionDef) String() string {
	return f.Specs.String() + " " + f.Decl.String() + " " + f.Body.String()
}

// TranslationUnit is the root of a parsed source file.
type TranslationUnit struct {
	Position
	Decls []ExternalDecl
}

func (u *TranslationUnit) String() string { return joinNodes(u.Decls, "\n") }

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ExprStmt is "expression ;". X is nil for the empty statement.
type ExprStmt struct {
	Position
	X Expr
}

// CompoundStmt is "{ declarations statements }".
type CompoundStmt struct {
	Position
	Decls []*Declaration
	Stmts []Stmt
}

// IfStmt is if (Cond) Then [else Else].
type IfStmt struct {
	Position
	Cond Expr
	Then Stmt
	Else Stmt
}

// SwitchStmt is switch (Tag) Body.
type SwitchStmt struct {
	Position
	Tag  Expr
	Body Stmt
}

// WhileStmt is a while loop, or a do-while loop when DoWhile is set.
type WhileStmt struct {
	Position
	Cond    Expr
	Body    Stmt
	DoWhile bool
}

// ForStmt is for (Init; Cond; Post) Body; any header part may be nil.
type ForStmt struct {
	Position
	Init Expr
	Cond Expr
	Post Expr
	Body Stmt
}

// JumpStmt is break or continue.
type JumpStmt struct {
	Position
	Keyword Keyword
}

// ReturnStmt is return [X].
type ReturnStmt struct {
	Position
	X Expr
}

func (*ExprStmt) stmtNode()     {}
func (*CompoundStmt) stmtNode() {}
func (*IfStmt) stmtNode()       {}
func (*SwitchStmt) stmtNode()   {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*JumpStmt) stmtNode()     {}
func (*ReturnStmt) stmtNode()   {}

func (s *ExprStmt) String() string {
	if s.X == nil {
		return ";"
	}
	return s.X.String() + ";"
}
func (s *CompoundStmt) String() string {
	var parts []string
	for _, d := range s.Decls {
		parts = append(parts, d.String())
	}
	for _, st := range s.Stmts {
		parts = append(parts, st.String())
	}
	return "{ " + strings.Join(parts, " ") + " }"
}
func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if (%s) %s", s.Cond, s.Then)
	}
	return fmt.Sprintf("if (%s) %s else %s", s.Cond, s.Then, s.Else)
}
func (s *SwitchStmt) String() string { return fmt.Sprintf("switch (%s) %s", s.Tag, s.Body) }
func (s *WhileStmt) String() string {
	if s.DoWhile {
		return fmt.Sprintf("do %s while (%s);", s.Body, s.Cond)
	}
	return fmt.Sprintf("while (%s) %s", s.Cond, s.Body)
}
func (s *ForStmt) String() string {
	return fmt.Sprintf("for (%s; %s; %s) %s", optString(s.Init), optString(s.Cond), optString(s.Post), s.Body)
}
func (s *JumpStmt) String() string { return s.Keyword.String() + ";" }
func (s *ReturnStmt) String() string {
	if s.X == nil {
		return "return;"
	}
	return "return " + s.X.String() + ";"
}

func optString(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func joinNodes[T Node](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
