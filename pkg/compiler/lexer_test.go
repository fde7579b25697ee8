package compiler

import (
	"errors"
	"strings"
	"testing"
)

// tk is a compact expectation: kind, lexeme and decoded value.
type tk struct {
	kind   TokenKind
	lexeme string
	value  any
}

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	return tokens
}

func checkTokens(t *testing.T, got []Token, want []tk) {
	t.Helper()
	if len(got) != len(want) {
		var kinds []string
		for _, g := range got {
			kinds = append(kinds, g.Kind.String()+" "+g.Lexeme)
		}
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), kinds)
	}
	for i, w := range want {
		g := got[i]
		if g.Kind != w.kind || g.Lexeme != w.lexeme {
			t.Errorf("token %d: expected %s %q, got %s %q", i, w.kind, w.lexeme, g.Kind, g.Lexeme)
			continue
		}
		if w.value != nil && g.Value != w.value {
			t.Errorf("token %d (%q): expected value %#v, got %#v", i, g.Lexeme, w.value, g.Value)
		}
	}
}

func TestLex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tk
	}{
		{
			name:  "Empty",
			input: "",
			want:  []tk{{EOF, "", nil}},
		},
		{
			name:  "Maximal munch declaration",
			input: "int x=10;",
			want: []tk{
				{KEYWORD, "int", "int"},
				{IDENTIFIER, "x", "x"},
				{OPERATOR, "=", nil},
				{INTEGER, "10", int64(10)},
				{OPERATOR, ";", nil},
				{EOF, "", nil},
			},
		},
		{
			name:  "Operators",
			input: "a->b <<= c >>= d != e && f || g ++ -- ...",
			want: []tk{
				{IDENTIFIER, "a", nil}, {OPERATOR, "->", nil}, {IDENTIFIER, "b", nil},
				{OPERATOR, "<<=", nil}, {IDENTIFIER, "c", nil},
				{OPERATOR, ">>=", nil}, {IDENTIFIER, "d", nil},
				{OPERATOR, "!=", nil}, {IDENTIFIER, "e", nil},
				{OPERATOR, "&&", nil}, {IDENTIFIER, "f", nil},
				{OPERATOR, "||", nil}, {IDENTIFIER, "g", nil},
				{OPERATOR, "++", nil}, {OPERATOR, "--", nil},
				{OPERATOR, ".", nil}, {OPERATOR, ".", nil}, {OPERATOR, ".", nil},
				{EOF, "", nil},
			},
		},
		{
			name:  "Integers",
			input: "0 017 0x1F 42u 7L 9ul 3lu",
			want: []tk{
				{INTEGER, "0", int64(0)},
				{INTEGER, "017", int64(15)},
				{INTEGER, "0x1F", int64(31)},
				{INTEGER, "42u", int64(42)},
				{INTEGER, "7L", int64(7)},
				{INTEGER, "9ul", int64(9)},
				{INTEGER, "3lu", int64(3)},
				{EOF, "", nil},
			},
		},
		{
			name:  "Floats",
			input: "1.5 .5 2. 1e3 2.5e-2 3.0f 4.0L",
			want: []tk{
				{FLOAT, "1.5", 1.5},
				{FLOAT, ".5", 0.5},
				{FLOAT, "2.", 2.0},
				{FLOAT, "1e3", 1000.0},
				{FLOAT, "2.5e-2", 0.025},
				{FLOAT, "3.0f", 3.0},
				{FLOAT, "4.0L", 4.0},
				{EOF, "", nil},
			},
		},
		{
			name:  "Chars",
			input: `'a' '\n' '\x41' '\101' L'z' '\''`,
			want: []tk{
				{CHAR, "'a'", int64('a')},
				{CHAR, `'\n'`, int64('\n')},
				{CHAR, `'\x41'`, int64('A')},
				{CHAR, `'\101'`, int64('A')},
				{CHAR, "L'z'", int64('z')},
				{CHAR, `'\''`, int64('\'')},
				{EOF, "", nil},
			},
		},
		{
			name:  "Strings",
			input: `"hello" "a\tb" L"wide" "\x41\0" ""`,
			want: []tk{
				{STRING, `"hello"`, "hello"},
				{STRING, `"a\tb"`, "a\tb"},
				{STRING, `L"wide"`, "wide"},
				{STRING, `"\x41\0"`, "A\x00"},
				{STRING, `""`, ""},
				{EOF, "", nil},
			},
		},
		{
			name:  "Comments and whitespace",
			input: "a // line\n/* block ** */ b /**/c",
			want: []tk{
				{IDENTIFIER, "a", nil},
				{IDENTIFIER, "b", nil},
				{IDENTIFIER, "c", nil},
				{EOF, "", nil},
			},
		},
		{
			name:  "Division is not a comment",
			input: "a/b",
			want: []tk{
				{IDENTIFIER, "a", nil},
				{OPERATOR, "/", nil},
				{IDENTIFIER, "b", nil},
				{EOF, "", nil},
			},
		},
		{
			name:  "Member access and float",
			input: "s.x .5",
			want: []tk{
				{IDENTIFIER, "s", nil},
				{OPERATOR, ".", nil},
				{IDENTIFIER, "x", nil},
				{FLOAT, ".5", 0.5},
				{EOF, "", nil},
			},
		},
		{
			name:  "Keywords and identifiers",
			input: "struct structure L Lx _x1 while",
			want: []tk{
				{KEYWORD, "struct", nil},
				{IDENTIFIER, "structure", nil},
				{IDENTIFIER, "L", nil},
				{IDENTIFIER, "Lx", nil},
				{IDENTIFIER, "_x1", nil},
				{KEYWORD, "while", nil},
				{EOF, "", nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, lexAll(t, tt.input), tt.want)
		})
	}
}

func TestLexKeywordAndOperatorCodes(t *testing.T) {
	tokens := lexAll(t, "while (x <<= 2)")
	if !tokens[0].IsKeyword(KW_WHILE) {
		t.Errorf("expected KW_WHILE, got %v", tokens[0].Keyword)
	}
	if !tokens[1].Is(LPAREN) || !tokens[3].Is(SHL_ASSIGN) || !tokens[5].Is(RPAREN) {
		t.Errorf("unexpected operator codes: %v %v %v", tokens[1].Op, tokens[3].Op, tokens[5].Op)
	}
}

func TestLexSuffixes(t *testing.T) {
	tokens := lexAll(t, "1u 2l 3ul 1.0f 2.0 3.0l")
	wantInt := []IntSuffix{IntUnsigned, IntLong, IntUnsignedLong}
	for i, w := range wantInt {
		if tokens[i].IntSuffix != w {
			t.Errorf("token %q: expected %v, got %v", tokens[i].Lexeme, w, tokens[i].IntSuffix)
		}
	}
	wantFloat := []FloatSuffix{FloatSingle, FloatDouble, FloatLong}
	for i, w := range wantFloat {
		if tokens[i+3].FloatSuffix != w {
			t.Errorf("token %q: expected %v, got %v", tokens[i+3].Lexeme, w, tokens[i+3].FloatSuffix)
		}
	}
}

func TestLexPositions(t *testing.T) {
	tokens := lexAll(t, "int x;\n  x = 1;")
	want := []Position{{1, 1}, {1, 5}, {1, 6}, {2, 3}, {2, 5}, {2, 7}, {2, 8}, {2, 9}}
	for i, w := range want {
		if tokens[i].Pos != w {
			t.Errorf("token %d (%q): expected %s, got %s", i, tokens[i].Lexeme, w, tokens[i].Pos)
		}
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		msg     string
		pos     Position
		atEOF   bool
		hasNote string
	}{
		{"Octal with 9", "x = 09;", "invalid int", Position{1, 5}, false, ""},
		{"Bad hex", "0xg", "invalid int", Position{1, 1}, false, ""},
		{"Too large", "99999999999999999999;", "literal too large", Position{1, 1}, false, ""},
		{"Unknown character", "a @ b", "unexpected character '@'", Position{1, 3}, false, "operator symbol not found"},
		{"Empty char", "''", "char is empty or contain invalid symbol", Position{1, 1}, false, ""},
		{"Two chars", "'ab'", "closing quote is not found", Position{1, 1}, false, ""},
		{"Bad escape", `"\q"`, "invalid escape sequences", Position{1, 1}, false, ""},
		{"Bad hex escape", `'\xz'`, "after \\x must be hexadecimal number", Position{1, 1}, false, ""},
		{"String across lines", "\"abc\ndef\"", "closing quote is not found", Position{1, 1}, false, ""},
		{"Unterminated string", `"abc`, "closing quote is not found", Position{1, 1}, true, ""},
		{"Unterminated comment", "x /* never closed", "unterminated comment", Position{1, 3}, true, ""},
		{"Exponent sign without digits", "1e+;", "after sign must be a number", Position{1, 1}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			if err == nil {
				t.Fatalf("expected an error for %q", tt.input)
			}
			var le *LexError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LexError, got %T: %v", err, err)
			}
			if le.Msg != tt.msg {
				t.Errorf("expected message %q, got %q (notes %v)", tt.msg, le.Msg, le.Notes)
			}
			if le.Pos != tt.pos {
				t.Errorf("expected position %s, got %s", tt.pos, le.Pos)
			}
			if le.AtEOF != tt.atEOF {
				t.Errorf("expected AtEOF=%v", tt.atEOF)
			}
			if tt.hasNote != "" && !strings.Contains(le.Detail(), tt.hasNote) {
				t.Errorf("expected notes to mention %q, got %s", tt.hasNote, le.Detail())
			}
			if !strings.HasPrefix(err.Error(), tt.pos.String()+": lexical error: ") {
				t.Errorf("unexpected rendering: %s", err)
			}
		})
	}
}

func TestLexEOFIsIdempotent(t *testing.T) {
	l := NewLexer("x")
	if tok, err := l.Next(); err != nil || tok.Kind != IDENTIFIER {
		t.Fatalf("expected identifier, got %v %v", tok, err)
	}
	first, err := l.Next()
	if err != nil || first.Kind != EOF {
		t.Fatalf("expected EOF, got %v %v", first, err)
	}
	for i := 0; i < 3; i++ {
		again, err := l.Next()
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Errorf("call %d: expected %v, got %v", i, first, again)
		}
	}
}

// TestLexRoundTrip re-lexes the space-joined lexemes and expects the same
// kinds and values.
func TestLexRoundTrip(t *testing.T) {
	src := `int main() { float f = 1.5e2f; char c = '\t'; s->x[3] <<= 0x10; return f > .5 ? "yes\n" : "no"; }`
	first := lexAll(t, src)
	var parts []string
	for _, tok := range first {
		parts = append(parts, tok.Lexeme)
	}
	second := lexAll(t, strings.Join(parts, " "))
	if len(first) != len(second) {
		t.Fatalf("token count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Value != second[i].Value {
			t.Errorf("token %d: %v became %v", i, first[i], second[i])
		}
	}
}

func TestTokenString(t *testing.T) {
	tokens := lexAll(t, `x 10u "a\n"`)
	want := []string{
		"(1:1)\tIDENTIFIER\tx\tx",
		"(1:3)\tINTEGER\t10u\t10\tUINT",
		"(1:7)\tSTRING\t\"a\\n\"\t\"a\\n\"",
	}
	for i, w := range want {
		if got := tokens[i].String(); got != w {
			t.Errorf("token %d: expected %q, got %q", i, w, got)
		}
	}
}
