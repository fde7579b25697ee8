package compiler

import (
	"fmt"
	"strconv"
)

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	NONE TokenKind = iota // whitespace and comments, never handed to the parser

	EOF        // sentinel: end of input
	INTEGER    // 10, 017, 0x1F, 10ul
	FLOAT      // 1.5, .5, 1e3, 2.f
	CHAR       // 'a', L'\n'
	STRING     // "text", L"text"
	IDENTIFIER // variable / function / struct tag name
	KEYWORD    // reserved word, see Keyword
	OPERATOR   // punctuator, see Operator
)

var kindNames = [...]string{
	NONE:       "NONE",
	EOF:        "EOF",
	INTEGER:    "INTEGER",
	FLOAT:      "FLOAT",
	CHAR:       "CHAR",
	STRING:     "STRING",
	IDENTIFIER: "IDENTIFIER",
	KEYWORD:    "KEYWORD",
	OPERATOR:   "OPERATOR",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Keyword is the reserved word carried by a KEYWORD token.
type Keyword int

const (
	KW_NONE Keyword = iota
	KW_AUTO
	KW_BREAK
	KW_CASE
	KW_CHAR
	KW_CONST
	KW_CONTINUE
	KW_DEFAULT
	KW_DO
	KW_DOUBLE
	KW_ELSE
	KW_ENUM
	KW_EXTERN
	KW_FLOAT
	KW_FOR
	KW_GOTO
	KW_IF
	KW_INLINE
	KW_INT
	KW_LONG
	KW_REGISTER
	KW_RESTRICT
	KW_RETURN
	KW_SHORT
	KW_SIGNED
	KW_SIZEOF
	KW_STATIC
	KW_STRUCT
	KW_SWITCH
	KW_TYPEDEF
	KW_UNION
	KW_UNSIGNED
	KW_VOID
	KW_VOLATILE
	KW_WHILE
)

// keywords maps source text to its Keyword.
var keywords = map[string]Keyword{
	"auto":     KW_AUTO,
	"break":    KW_BREAK,
	"case":     KW_CASE,
	"char":     KW_CHAR,
	"const":    KW_CONST,
	"continue": KW_CONTINUE,
	"default":  KW_DEFAULT,
	"do":       KW_DO,
	"double":   KW_DOUBLE,
	"else":     KW_ELSE,
	"enum":     KW_ENUM,
	"extern":   KW_EXTERN,
	"float":    KW_FLOAT,
	"for":      KW_FOR,
	"goto":     KW_GOTO,
	"if":       KW_IF,
	"inline":   KW_INLINE,
	"int":      KW_INT,
	"long":     KW_LONG,
	"register": KW_REGISTER,
	"restrict": KW_RESTRICT,
	"return":   KW_RETURN,
	"short":    KW_SHORT,
	"signed":   KW_SIGNED,
	"sizeof":   KW_SIZEOF,
	"static":   KW_STATIC,
	"struct":   KW_STRUCT,
	"switch":   KW_SWITCH,
	"typedef":  KW_TYPEDEF,
	"union":    KW_UNION,
	"unsigned": KW_UNSIGNED,
	"void":     KW_VOID,
	"volatile": KW_VOLATILE,
	"while":    KW_WHILE,
}

var keywordNames = func() map[Keyword]string {
	m := make(map[Keyword]string, len(keywords))
	for text, kw := range keywords {
		m[kw] = text
	}
	return m
}()

func (k Keyword) String() string {
	if s, ok := keywordNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Keyword(%d)", int(k))
}

// Operator is the punctuator carried by an OPERATOR token.
type Operator int

const (
	OP_NONE Operator = iota

	// Paired delimiters
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }

	// Punctuation
	DOT       // .
	ARROW     // ->
	COMMA     // ,
	QUESTION  // ?
	COLON     // :
	SEMICOLON // ;

	// Arithmetic and bitwise
	PLUS    // +
	MINUS   // -
	STAR    // * (multiply, or unary dereference)
	SLASH   // /
	PERCENT // %
	AMP     // & (bitwise AND, or unary address-of)
	PIPE    // |
	CARET   // ^
	TILDE   // ~
	SHL     // <<
	SHR     // >>
	INC     // ++
	DEC     // --

	// Logical and comparison
	AND_AND    // &&
	OR_OR      // ||
	BANG       // !
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	LESS_EQ    // <=
	GREATER    // >
	GREATER_EQ // >=

	// Assignment
	ASSIGN         // =
	PLUS_ASSIGN    // +=
	MINUS_ASSIGN   // -=
	STAR_ASSIGN    // *=
	SLASH_ASSIGN   // /=
	PERCENT_ASSIGN // %=
	AMP_ASSIGN     // &=
	PIPE_ASSIGN    // |=
	CARET_ASSIGN   // ^=
	SHL_ASSIGN     // <<=
	SHR_ASSIGN     // >>=
)

// operators maps every punctuator spelling to its Operator.
var operators = map[string]Operator{
	"[":   LBRACKET,
	"]":   RBRACKET,
	"(":   LPAREN,
	")":   RPAREN,
	"{":   LBRACE,
	"}":   RBRACE,
	".":   DOT,
	"->":  ARROW,
	",":   COMMA,
	"?":   QUESTION,
	":":   COLON,
	";":   SEMICOLON,
	"+":   PLUS,
	"-":   MINUS,
	"*":   STAR,
	"/":   SLASH,
	"%":   PERCENT,
	"&":   AMP,
	"|":   PIPE,
	"^":   CARET,
	"~":   TILDE,
	"<<":  SHL,
	">>":  SHR,
	"++":  INC,
	"--":  DEC,
	"&&":  AND_AND,
	"||":  OR_OR,
	"!":   BANG,
	"==":  EQUALS,
	"!=":  NOT_EQ,
	"<":   LESS,
	"<=":  LESS_EQ,
	">":   GREATER,
	">=":  GREATER_EQ,
	"=":   ASSIGN,
	"+=":  PLUS_ASSIGN,
	"-=":  MINUS_ASSIGN,
	"*=":  STAR_ASSIGN,
	"/=":  SLASH_ASSIGN,
	"%=":  PERCENT_ASSIGN,
	"&=":  AMP_ASSIGN,
	"|=":  PIPE_ASSIGN,
	"^=":  CARET_ASSIGN,
	"<<=": SHL_ASSIGN,
	">>=": SHR_ASSIGN,
}

var operatorNames = func() map[Operator]string {
	m := make(map[Operator]string, len(operators))
	for text, op := range operators {
		m[op] = text
	}
	return m
}()

// operatorPrefixes holds every proper prefix of an operator spelling so the
// operator machine can tell whether one more character still leads somewhere.
var operatorPrefixes = func() map[string]bool {
	m := make(map[string]bool)
	for text := range operators {
		for i := 1; i < len(text); i++ {
			m[text[:i]] = true
		}
	}
	return m
}()

func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// IntSuffix records the u/l suffix of an integer literal.
type IntSuffix int

const (
	IntPlain IntSuffix = iota
	IntLong
	IntUnsigned
	IntUnsignedLong
)

func (s IntSuffix) String() string {
	switch s {
	case IntLong:
		return "LONG"
	case IntUnsigned:
		return "UINT"
	case IntUnsignedLong:
		return "ULONG"
	}
	return "INT"
}

// FloatSuffix records the f/l suffix of a floating literal.
type FloatSuffix int

const (
	FloatDouble FloatSuffix = iota
	FloatSingle
	FloatLong
)

func (s FloatSuffix) String() string {
	switch s {
	case FloatSingle:
		return "FLOAT"
	case FloatLong:
		return "LONG"
	}
	return "DOUBLE"
}

// Position is a 1-based line and column in the source text.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string { return fmt.Sprintf("(%d:%d)", p.Line, p.Col) }

// Pos returns the position itself; AST nodes embed Position to satisfy Node.
func (p Position) Pos() Position { return p }

// Token is a single lexical unit produced by the Lexer.
//
//	int x = 10u;
//	        ^^^  Token{Kind: INTEGER, Lexeme: "10u", Value: int64(10), IntSuffix: IntUnsigned}
type Token struct {
	Pos    Position
	Kind   TokenKind
	Lexeme string // the exact source text that was matched
	Value  any    // int64, float64 or string depending on Kind

	Keyword     Keyword  // KEYWORD only
	Op          Operator // OPERATOR only
	IntSuffix   IntSuffix
	FloatSuffix FloatSuffix
}

// Is reports whether the token is the operator op.
func (t Token) Is(op Operator) bool { return t.Kind == OPERATOR && t.Op == op }

// IsKeyword reports whether the token is the keyword kw.
func (t Token) IsKeyword(kw Keyword) bool { return t.Kind == KEYWORD && t.Keyword == kw }

// String renders the dump line used by the token printer: pos, kind, lexeme, value.
func (t Token) String() string {
	var value string
	switch v := t.Value.(type) {
	case nil:
	case string:
		if t.Kind == STRING {
			value = strconv.Quote(v)
		} else {
			value = v
		}
	case float64:
		value = strconv.FormatFloat(v, 'g', -1, 64)
	default:
		value = fmt.Sprint(v)
	}
	s := fmt.Sprintf("%s\t%s\t%s\t%s", t.Pos, t.Kind, t.Lexeme, value)
	switch t.Kind {
	case INTEGER:
		s += "\t" + t.IntSuffix.String()
	case FLOAT:
		s += "\t" + t.FloatSuffix.String()
	}
	return s
}

// describe names the token the way syntax errors quote it.
func (t Token) describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case STRING, CHAR:
		return t.Lexeme
	}
	return fmt.Sprintf("'%s'", t.Lexeme)
}
