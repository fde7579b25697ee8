package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"stackcc/pkg/vm"
)

// runCode compiles source, runs it to completion and returns what it
// printed together with the finished machine.
func runCode(t *testing.T, source string) (string, *vm.VM) {
	t.Helper()
	out, err := Compile(source, Options{Prune: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	var buf bytes.Buffer
	m := vm.New(out.Image)
	m.Output = &buf
	m.MaxSteps = 1_000_000
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v\nListing:\n%s", err, out.Listing)
	}
	return buf.String(), m
}

func TestRun_Programs(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"recursion",
			`
int fib(int n) {
	if (n < 2) return n;
	return fib(n - 1) + fib(n - 2);
}
int main() { print_int(fib(10)); return 0; }`,
			"55\n",
		},
		{
			"globals initialised in order before main",
			`
int base = 40;
int twice(int x) { return x * 2; }
int g = twice(base);
int main() { print_int(g); return 0; }`,
			"80\n",
		},
		{
			"struct assignment copies",
			`
struct pt { int x; int y; };
int main() {
	struct pt a;
	struct pt b;
	a.x = 1;
	b = a;
	b.x = 2;
	print_int(a.x);
	print_int(b.x);
	return 0;
}`,
			"1\n2\n",
		},
		{
			"struct arguments are passed by value",
			`
struct pt { int x; int y; };
void bump(struct pt p) { p.x = 9; }
int main() {
	struct pt a;
	a.x = 1;
	bump(a);
	print_int(a.x);
	return 0;
}`,
			"1\n",
		},
		{
			"pointer out parameter",
			`
void set(int *p, int v) { *p = v; }
int main() {
	int n;
	set(&n, 7);
	print_int(n);
	return 0;
}`,
			"7\n",
		},
		{
			"array parameters are shared",
			`
void fill(int a[], int n) {
	int i;
	for (i = 0; i < n; i++) a[i] = i * i;
}
int main() {
	int a[4];
	int i;
	fill(a, 4);
	for (i = 0; i < 4; i++) print_int(a[i]);
	return 0;
}`,
			"0\n1\n4\n9\n",
		},
		{
			"short circuit skips the right operand",
			`
int calls;
int side() { calls++; return 1; }
int main() {
	if (0 && side()) print_int(99);
	if (1 || side()) print_int(calls);
	return 0;
}`,
			"0\n",
		},
		{
			"break and continue",
			`
int main() {
	int i;
	int sum = 0;
	for (i = 0; i < 10; i++) {
		if (i % 2) continue;
		if (i > 6) break;
		sum += i;
	}
	print_int(sum);
	return 0;
}`,
			"12\n",
		},
		{
			"do while runs the body first",
			`
int main() {
	int n = 3;
	do {
		print_int(n);
		n--;
	} while (n);
	return 0;
}`,
			"3\n2\n1\n",
		},
		{
			"floats and casts",
			`
int main() {
	float f = 1.5;
	print_int((int)(f * 4.0));
	print_int((int)((float)7 / 2.0 * 10.0));
	return 0;
}`,
			"6\n35\n",
		},
		{
			"strings and conditionals",
			`
int main() {
	print_string("hello");
	print_int(5 > 3 ? 10 : 20);
	return 0;
}`,
			"hello\n10\n",
		},
		{
			"linked structs through pointers",
			`
struct node { int v; struct node *next; };
int main() {
	struct node a;
	struct node b;
	a.v = 1;
	b.v = 2;
	a.next = &b;
	a.next->v = 5;
	print_int(b.v);
	return 0;
}`,
			"5\n",
		},
		{
			"initializer lists",
			`
struct pt { int x; int y; };
int main() {
	int a[3] = {4, 5, 6};
	struct pt p = {7, 8};
	print_int(a[0] + a[2]);
	print_int(p.y);
	return 0;
}`,
			"10\n8\n",
		},
		{
			"array member of a struct value",
			`
struct S { int a[3]; };
int main() {
	struct S s;
	s.a[1] = 5;
	s.a[2]++;
	print_int(s.a[1]);
	print_int(s.a[2]);
	return 0;
}`,
			"5\n1\n",
		},
		{
			"compound assignment into struct arrays",
			`
struct S { int a[3]; };
struct S g;
int main() {
	struct S s[2];
	struct S *p = &s[1];
	int i;
	for (i = 0; i < 3; i++) s[1].a[i] += i + 1;
	p->a[0] *= 10;
	g.a[2] -= 4;
	--g.a[2];
	print_int(s[1].a[0]);
	print_int(s[1].a[2]);
	print_int(g.a[2]);
	return 0;
}`,
			"10\n3\n-5\n",
		},
		{
			"struct copies keep their own arrays",
			`
struct S { int a[2]; };
int main() {
	struct S x;
	struct S y;
	x.a[0] = 1;
	y = x;
	y.a[0] = 2;
	print_int(x.a[0]);
	print_int(y.a[0]);
	return 0;
}`,
			"1\n2\n",
		},
		{
			"pointers as truth values",
			`
struct node { int v; struct node *next; };
int main() {
	struct node a;
	int n = 3;
	int *p = &n;
	print_int(p ? 1 : 2);
	print_int(a.next ? 1 : 2);
	print_int(!a.next);
	print_int(p && !a.next);
	print_int(a.next || 0);
	return 0;
}`,
			"1\n2\n1\n1\n0\n",
		},
		{
			"empty function body",
			`
void nop() { }
int main() { nop(); print_int(1); return 0; }`,
			"1\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, m := runCode(t, tc.source)
			if got != tc.want {
				t.Errorf("output = %q, want %q", got, tc.want)
			}
			if !m.Halted {
				t.Errorf("machine did not halt")
			}
		})
	}
}

func TestRun_EntryResult(t *testing.T) {
	_, m := runCode(t, "int main() { return 6 * 7; }")
	if m.Result.Kind != vm.KindInt || m.Result.I != 42 {
		t.Errorf("result = %s, want 42", m.Result)
	}
}

func TestRun_RuntimeError(t *testing.T) {
	out, err := Compile("int main() { int z; return 10 / z; }", Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	err = vm.New(out.Image).Run(context.Background())
	var re *vm.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("error = %q", err)
	}
}

func TestCompile_Diagnostics(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		category string
	}{
		{"lexical", "int main() { return 1 @ 2; }", "lexical"},
		{"syntax", "int main( { }", "syntax"},
		{"semantic", `int a = "x";`, "semantic"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.source, Options{})
			var d Diagnostic
			if !errors.As(err, &d) {
				t.Fatalf("expected a Diagnostic, got %v", err)
			}
			if d.Category() != tc.category {
				t.Errorf("category = %s, want %s", d.Category(), tc.category)
			}
		})
	}
}
