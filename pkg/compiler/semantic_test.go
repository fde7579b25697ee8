package compiler

import (
	"errors"
	"strings"
	"testing"
)

func analyzeSource(t *testing.T, src string) (*TranslationUnit, *Environment, error) {
	t.Helper()
	unit, err := ParseTranslationUnit(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	env := NewEnvironment()
	return unit, env, Analyze(unit, env)
}

func TestAnalyzeAccepts(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Arithmetic", "int main() { int a = 2 + 3 * 4; return a; }"},
		{"Float arithmetic", "float half(float x) { return x / 2.0; }"},
		{"Char is int", "int main() { char c = 'a'; int i = c + 1; return i; }"},
		{"Prototype then definition", "int add(int, int); int add(int a, int b) { return a + b; } int main() { return add(1, 2); }"},
		{"Recursion", "int fib(int n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }"},
		{"Void parameter list", "int f(void) { return 1; } int main() { return f(); }"},
		{"Builtins", `void main() { print_string("hi"); print_int(3); }`},
		{"Shadowing a builtin", "void print_int(int a) { } int main() { print_int(1); }"},
		{"Array parameter", "void fill(int a[10], int n) { a[0] = n; } int main() { int v[10]; fill(v, 3); }"},
		{"Struct copy", "struct a { int b; }; void show(struct a x) { print_int(x.b); } int main() { struct a b; struct a *p = &b; struct a c; p->b = 1; c = *p; show(c); }"},
		{"Self referential struct", "struct node { int v; struct node *next; }; int main() { struct node n; n.next = &n; return n.next->v; }"},
		{"Loops and jumps", "int main() { int i; for (i = 0; i < 10; ++i) { if (i == 3) continue; if (i == 5) break; } while (i) i--; do { i++; } while (i < 3); return i; }"},
		{"Switch allows break", "int main() { int x = 1; switch (x) { break; } return x; }"},
		{"Compound assignment", "int main() { int x = 1; x += 2; x <<= 1; x %= 3; return x; }"},
		{"Bitwise", "int main() { int a[3]; a[2] = ~3; return a[2] & 1 | 4 ^ 2; }"},
		{"Casts", "int main() { float f = (float) 3; int *p; float *q = (float *) p; return (int) f; }"},
		{"Ternary", "int main() { int a = 1; return a ? 2 : 3; }"},
		{"Init lists", "struct p { int x; int y; }; int main() { int a[] = {1, 2, 3}; struct p q = {1, 2}; int m[2][2] = {{1, 2}, {3, 4}}; return a[2] + q.y + m[1][1]; }"},
		{"Const initialised", "int main() { const int k = 4; return k; }"},
		{"Global variables", "int counter = 1; float ratio; int main() { counter = counter + 1; return counter; }"},
		{"Pointer conditions", "int main() { int x; int *p = &x; if (p) return 1; return 0; }"},
		{"Pointer truth values", "int main() { int x; int *p = &x; int *q; return (p ? 1 : 2) + !q + (p && x) + (q || p); }"},
		{"Logical", "int main() { int a = 1; float b = 2.0; return a && b || !a; }"},
		{"Function pointer variable", "int (*handler)(int); int main() { return 0; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := analyzeSource(t, tt.src); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnalyzeRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		pos  Position
	}{
		{"String to int", `int main() { int a = "x"; }`, "cannot assign string to int", Position{1, 22}},
		{"Undefined symbol", "int main() { return y; }", "symbol 'y' is not defined", Position{1, 21}},
		{"Two storage classes", "static extern int x;", "multiple storage classes in declaration specifiers", Position{1, 8}},
		{"Two data types", "int float x;", "two or more data types in declaration specifiers", Position{1, 5}},
		{"Unsupported type", "long x;", "this data type is not supported", Position{1, 1}},
		{"Unknown struct", "struct q x;", "storage size of 'q' isn't known", Position{1, 1}},
		{"Nested declaration", "int main() { { int x; } }", "declaring variables in a nested block is prohibited", Position{1, 16}},
		{"Redeclaration", "int main() { int x; float x; }", "redeclaration of 'x'", Position{1, 27}},
		{"Struct redeclaration", "struct s { int a; }; struct s { int b; };", "redeclaration of 'struct s'", Position{1, 22}},
		{"Mixed arithmetic", "int main() { int a; float b; a + b; }", "invalid operands to binary + (have int and float)", Position{1, 30}},
		{"Modulo on float", "float f(float a) { return a % a; }", "invalid operands to binary % (have float and float)", Position{1, 27}},
		{"Assign to rvalue", "int main() { 1 = 2; }", "lvalue required as left operand of assignment", Position{1, 14}},
		{"Assign to const", "int main() { const int k = 1; k = 2; }", "assignment of read-only location 'k'", Position{1, 31}},
		{"Assign to array", "int main() { int a[2]; int b[2]; a = b; }", "assignment to expression with array type", Position{1, 34}},
		{"Too few arguments", "int f(int a) { return a; } int main() { return f(); }", "too few arguments to function 'f'", Position{1, 48}},
		{"Too many arguments", "int f(int a) { return a; } int main() { return f(1, 2); }", "too many arguments to function 'f'", Position{1, 48}},
		{"Argument type", "int f(int a) { return a; } int main() { return f(1.5); }", "incompatible type for argument 1 of 'f': expected int, got float", Position{1, 50}},
		{"Call a variable", "int main() { int x; return x(); }", "called object 'x' is not a function", Position{1, 28}},
		{"Function as value", "int f() { return 0; } int main() { int x = f; }", "function 'f' used as a value", Position{1, 44}},
		{"Missing member", "struct p { int x; }; int main() { struct p v; return v.y; }", "struct p has no member named 'y'", Position{1, 54}},
		{"Dot on pointer", "struct p { int x; }; int main() { struct p v; struct p *q = &v; return q.x; }", "request for member 'x' in something not a structure", Position{1, 72}},
		{"Arrow on value", "struct p { int x; }; int main() { struct p v; return v->x; }", "invalid type argument of '->' (have struct p)", Position{1, 54}},
		{"Deref non pointer", "int main() { int x; return *x; }", "invalid type argument of unary '*' (have int)", Position{1, 28}},
		{"Address of rvalue", "int main() { int *p = &1; }", "lvalue required as unary '&' operand", Position{1, 23}},
		{"Index non array", "int main() { int x; return x[0]; }", "subscripted value is neither array nor pointer", Position{1, 28}},
		{"Float index", "int main() { int a[2]; return a[1.0]; }", "array subscript is not an integer", Position{1, 33}},
		{"Ternary mismatch", "int main() { int a; return a ? 1 : 2.0; }", "type mismatch in conditional expression (int and float)", Position{1, 28}},
		{"Break outside loop", "int main() { break; }", "break statement not within loop or switch", Position{1, 14}},
		{"Continue in switch", "int main() { switch (1) { continue; } }", "continue statement not within a loop", Position{1, 27}},
		{"Return value from void", "void f() { return 1; }", "'return' with a value, in function returning void", Position{1, 19}},
		{"Bare return from int", "int f() { return; }", "'return' with no value, in function returning non-void", Position{1, 11}},
		{"Return type mismatch", "int f() { return 1.0; }", "incompatible types when returning type float but int was expected", Position{1, 18}},
		{"Conflicting prototype", "int f(int a); float f(int a) { return 1.0; }", "conflicting types for 'f'", Position{1, 21}},
		{"Redefinition", "int f() { return 0; } int f() { return 1; }", "redefinition of 'f'", Position{1, 27}},
		{"Void variable", "void v;", "variable 'v' declared void", Position{1, 6}},
		{"Non-constant bound", "int n; int a[n];", "size of array is not an integer constant", Position{1, 14}},
		{"Missing array size", "int main() { int a[]; }", "array size missing in 'a'", Position{1, 18}},
		{"Excess initializers", "int a[2] = {1, 2, 3};", "excess elements in array initializer", Position{1, 12}},
		{"Switch on float", "int main() { switch (1.0) ; }", "switch quantity not an integer", Position{1, 22}},
		{"Struct condition", "struct p { int x; }; int main() { struct p v; if (v) return 1; }", "used struct p where scalar is required", Position{1, 51}},
		{"Struct conditional operand", "struct p { int x; }; int main() { struct p v; return v ? 1 : 2; }", "used struct p where scalar is required", Position{1, 54}},
		{"Struct negation", "struct p { int x; }; int main() { struct p v; return !v; }", "wrong type argument to unary exclamation mark (have struct p)", Position{1, 54}},
		{"Struct logical operand", "struct p { int x; }; int main() { struct p v; return 1 && v; }", "invalid operands to binary && (have int and struct p)", Position{1, 54}},
		{"Bad cast", "struct p { int x; }; int main() { struct p v; return (int) v; }", "cannot cast struct p to int", Position{1, 54}},
		{"Typedef", "typedef int myint;", "typedef is not supported", Position{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := analyzeSource(t, tt.src)
			var se *SemanticError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SemanticError, got %T: %v", err, err)
			}
			if se.Msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, se.Msg)
			}
			if se.Pos != tt.pos {
				t.Errorf("expected position %s, got %s", tt.pos, se.Pos)
			}
			if !strings.Contains(err.Error(), "semantic error: ") {
				t.Errorf("unexpected rendering %q", err)
			}
		})
	}
}

func TestAnalyzeArithmeticType(t *testing.T) {
	_, env, err := analyzeSource(t, "int main(){ int a = 2 + 3 * 4; return a; }")
	if err != nil {
		t.Fatal(err)
	}
	main, ok := env.Lookup("main")
	if !ok || !main.Defined {
		t.Fatal("main not defined")
	}
	a, ok := main.Frame.Symbol("a")
	if !ok {
		t.Fatal("local a missing from the frame")
	}
	if !a.Type.Equal(IntType()) || a.Storage != StorageLocal {
		t.Errorf("expected local int, got %s", a)
	}
}

func TestScopeDepthIsBalanced(t *testing.T) {
	sources := []string{
		"int main() { int x; { x = 1; { x = 2; } } return x; }",
		"int f(int a, int b) { while (a) { if (b) { a--; } } return a; }",
		"int main() { undefined = 1; }",
		"int main() { { { break; } } }",
	}
	for _, src := range sources {
		unit, err := ParseTranslationUnit(src)
		if err != nil {
			t.Fatal(err)
		}
		env := NewEnvironment()
		before := env.Depth()
		Analyze(unit, env)
		if env.Depth() != before {
			t.Errorf("%q: depth %d before, %d after", src, before, env.Depth())
		}
		if env.InLoop() || env.InBreakable() || env.ReturnType() != nil {
			t.Errorf("%q: analyzer counters not reset", src)
		}
	}
}

func TestScopePopBelowBasePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	NewEnvironment().Pop()
}

func TestParameterShadowsGlobal(t *testing.T) {
	unit, env, err := analyzeSource(t, "float x; int f(int x) { return x + 1; }")
	if err != nil {
		t.Fatal(err)
	}

	f, _ := env.Lookup("f")
	env.Push(f.Frame)
	sym, _ := env.Lookup("x")
	if sym.Storage != StorageParam || !sym.Type.IsInt() {
		t.Errorf("inside f, expected the int parameter, got %s", sym)
	}
	ret := f.Body.Stmts[0].(*ReturnStmt)
	if typ, err := TypeOf(ret.X, env); err != nil || !typ.IsInt() {
		t.Errorf("expected x + 1 to be int, got %v, %v", typ, err)
	}
	env.Pop()

	sym, _ = env.Lookup("x")
	if sym.Storage != StorageGlobal || sym.Type.Kind != KindFloat {
		t.Errorf("after f, expected the float global, got %s", sym)
	}
	if len(unit.Decls) != 2 {
		t.Fatal("unexpected unit")
	}
}

func TestTypeEquality(t *testing.T) {
	point := StructType("point")
	point.Members = []*Symbol{{Name: "x", Type: IntType()}, {Name: "y", Type: IntType()}}
	other := StructType("point")
	other.Members = []*Symbol{{Name: "x", Type: IntType()}, {Name: "y", Type: IntType()}}
	node := StructType("node")
	node.Members = []*Symbol{{Name: "next", Type: PointerTo(node)}}
	node2 := StructType("node")
	node2.Members = []*Symbol{{Name: "next", Type: PointerTo(node2)}}

	params := NewSnapshot()
	params.add(&Symbol{Name: "a", Type: IntType()})
	renamed := NewSnapshot()
	renamed.add(&Symbol{Name: "b", Type: IntType().Qualified(true, false)})

	tests := []struct {
		name  string
		a, b  *Type
		equal bool
	}{
		{"Same scalar", IntType(), IntType(), true},
		{"Different scalar", IntType(), FloatType(), false},
		{"Qualifiers ignored", IntType().Qualified(true, true), IntType(), true},
		{"Array lengths ignored", ArrayOf(IntType(), 3), ArrayOf(IntType(), 10), true},
		{"Array vs pointer", ArrayOf(IntType(), 3), PointerTo(IntType()), false},
		{"Pointer chains", PointerTo(PointerTo(IntType())), PointerTo(PointerTo(IntType())), true},
		{"Structs by tag and members", point, other, true},
		{"Different structs", point, node, false},
		{"Recursive structs", node, node2, true},
		{"Functions ignore parameter names", FuncType(IntType(), params), FuncType(IntType(), renamed), true},
		{"Function return types", FuncType(IntType(), params), FuncType(FloatType(), params), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("%s == %s: expected %v, got %v", tt.a, tt.b, tt.equal, got)
			}
			if got := tt.b.Equal(tt.a); got != tt.equal {
				t.Errorf("equality is not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}

	// transitivity over qualified and sized variants
	a, b, c := ArrayOf(IntType(), 1), ArrayOf(IntType().Qualified(true, false), 2), ArrayOf(IntType(), -1)
	if a.Equal(b) && b.Equal(c) && !a.Equal(c) {
		t.Error("equality is not transitive")
	}
}

func TestTypeString(t *testing.T) {
	params := NewSnapshot()
	params.add(&Symbol{Name: "a", Type: IntType()})
	params.add(&Symbol{Name: "b", Type: FloatType()})
	tests := []struct {
		typ      *Type
		expected string
	}{
		{IntType().Qualified(true, false), "const int"},
		{PointerTo(StructType("node")), "struct node *"},
		{ArrayOf(FloatType(), 4), "float [4]"},
		{ArrayOf(IntType(), -1), "int []"},
		{FuncType(VoidType(), params), "void (int, float)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestDeclaratorTypes(t *testing.T) {
	tests := []struct {
		src      string
		name     string
		expected string
	}{
		{"int *p;", "p", "int *"},
		{"int m[3][4];", "m", "int [4] [3]"},
		{"int (*handler)(int);", "handler", "int (int) *"},
		{"int * const q;", "q", "const int *"},
		{"int a[] = {1, 2, 3};", "a", "int [3]"},
		{"int f(float, int *);", "f", "int (float, int *)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, env, err := analyzeSource(t, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			sym, ok := env.Lookup(tt.name)
			if !ok {
				t.Fatalf("%s not declared", tt.name)
			}
			if got := sym.Type.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestUnnamedPrototypeParameters(t *testing.T) {
	_, env, err := analyzeSource(t, "int f(int, float);")
	if err != nil {
		t.Fatal(err)
	}
	f, _ := env.Lookup("f")
	syms := f.Type.Params.Symbols()
	if len(syms) != 2 || syms[0].Name != ".arg0" || syms[1].Name != ".arg1" {
		t.Errorf("unexpected parameter names: %v", syms)
	}

	_, _, err = analyzeSource(t, "int g(int) { return 0; }")
	if err == nil || !strings.Contains(err.Error(), "parameter name omitted") {
		t.Errorf("expected omitted parameter name error, got %v", err)
	}
}

func TestLValues(t *testing.T) {
	_, env, err := analyzeSource(t, "struct s { int v; }; int x; int a[2]; struct s r; struct s *p; int f() { return 0; }")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		expr   string
		lvalue bool
	}{
		{"x", true},
		{"a[1]", true},
		{"r.v", true},
		{"p->v", true},
		{"*p", true},
		{"&x", false},
		{"x + 1", false},
		{"f", false},
		{"1", false},
	}
	for _, tt := range tests {
		expr, err := ParseExpression(tt.expr)
		if err != nil {
			t.Fatal(err)
		}
		if got := IsLValue(expr, env); got != tt.lvalue {
			t.Errorf("IsLValue(%s): expected %v, got %v", tt.expr, tt.lvalue, got)
		}
	}
}

func TestGlobalScopeDump(t *testing.T) {
	_, env, err := analyzeSource(t, "struct pt { int x; int y; }; int count; int main() { return count; }")
	if err != nil {
		t.Fatal(err)
	}
	dump := env.Globals().String()
	for _, want := range []string{"struct pt { int x; int y; }", "global   count", "global   main", "int ()"} {
		if !strings.Contains(dump, want) {
			t.Errorf("expected dump to contain %q, got\n%s", want, dump)
		}
	}
}
