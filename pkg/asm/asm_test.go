package asm

import (
	"encoding/binary"
	"reflect"
	"strings"
	"testing"

	"stackcc/pkg/vm"
)

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"abc1", true},
		{"L12", true},
		{"tag.2", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	if got := stripComments("LDLOC 0\t; x"); got != "LDLOC 0\t" {
		t.Errorf("stripComments = %q", got)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			"\tPUSHI 5",
			parsedLine{lineNo: 1, mnemonic: "PUSHI", operands: []string{"5"}},
			false,
		},
		{
			"  ldloc 0  ; counter",
			parsedLine{lineNo: 1, mnemonic: "LDLOC", operands: []string{"0"}},
			false,
		},
		{
			"L3:",
			parsedLine{lineNo: 1, label: "L3"},
			false,
		},
		{
			".func main int",
			parsedLine{lineNo: 1, mnemonic: ".func", operands: []string{"main", "int"}},
			false,
		},
		{
			`.string 0 "a; b\n"`,
			parsedLine{lineNo: 1, mnemonic: ".string", operands: []string{"0", "a; b\n"}},
			false,
		},
		{
			"; only a comment",
			parsedLine{lineNo: 1},
			false,
		},
		// Invalid cases
		{
			"1L:",
			parsedLine{lineNo: 1},
			true,
		},
		{
			`.string 0 "unterminated`,
			parsedLine{lineNo: 1},
			true,
		},
		{
			".string 0 missing_quote",
			parsedLine{lineNo: 1},
			true,
		},
		{
			`.string 0 "x" trailing`,
			parsedLine{lineNo: 1},
			true,
		},
	}

	for _, tc := range tests {
		got, err := parseLine(tc.line, 1)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLine(%q) error = %v, wantErr %v", tc.line, err, tc.wantErr)
			continue
		}
		if !tc.wantErr {
			if got.label != tc.want.label {
				t.Errorf("parseLine(%q) label = %q, want %q", tc.line, got.label, tc.want.label)
			}
			if got.mnemonic != tc.want.mnemonic {
				t.Errorf("parseLine(%q) mnemonic = %q, want %q", tc.line, got.mnemonic, tc.want.mnemonic)
			}
			if !reflect.DeepEqual(got.operands, tc.want.operands) && !(len(got.operands) == 0 && len(tc.want.operands) == 0) {
				t.Errorf("parseLine(%q) operands = %v, want %v", tc.line, got.operands, tc.want.operands)
			}
		}
	}
}

// encode builds the expected bytes of one instruction.
func encode(op byte, arg ...int64) []byte {
	out := []byte{op}
	if len(arg) > 0 {
		out = binary.LittleEndian.AppendUint64(out, uint64(arg[0]))
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []byte
	}{
		{
			"Basic Instructions",
			`
.func main int
	PUSHI 2
	PUSHI 3
	ADD
	RET
.end
.entry main
`,
			concat(
				encode(vm.OpPUSHI, 2),
				encode(vm.OpPUSHI, 3),
				encode(vm.OpADD),
				encode(vm.OpRET),
			),
		},
		{
			"Labels and Branches",
			// PUSHI 1     -> 9 bytes (0-8)
			// L0:         -> 9
			// BRFALSE L1  -> 9 bytes (9-17)
			// BR L0       -> 9 bytes (18-26)
			// L1:         -> 27
			// PUSHV, RET
			`
.func main void
	PUSHI 1
L0:
	BRFALSE L1
	BR L0
L1:
	PUSHV
	RET
.end
.entry main
`,
			concat(
				encode(vm.OpPUSHI, 1),
				encode(vm.OpBRFALSE, 27),
				encode(vm.OpBR, 9),
				encode(vm.OpPUSHV),
				encode(vm.OpRET),
			),
		},
		{
			"Globals and Calls",
			`
.global n int
.func main void
	LDGLOB n
	CALL print_int
	POP
	CALL helper
	RET
.end
.func helper void
	PUSHV
	RET
.end
.entry main
`,
			concat(
				encode(vm.OpLDGLOB, 0),
				encode(vm.OpCALL, 2), // print_int is appended after main and helper
				encode(vm.OpPOP),
				encode(vm.OpCALL, 1),
				encode(vm.OpRET),
				encode(vm.OpPUSHV),
				encode(vm.OpRET),
			),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := Assemble(tc.code)
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}
			if !reflect.DeepEqual(img.Code, tc.want) {
				t.Errorf("code = % x\nwant   % x", img.Code, tc.want)
			}
		})
	}
}

func TestAssembleDirectives(t *testing.T) {
	code := `
; stackcc listing
.struct point
.field x int
.field y float
.end

.string 0 "hello"
.string 1 "world"
.global origin struct:point

.func __init void
	PUSHV
	RET
.end

.func main int
.param argc int
.local p *struct:point
	PUSHI 0
	RET
.end

.init __init
.entry main
`
	img, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	st, ok := img.Struct("point")
	if !ok || len(st.Fields) != 2 || st.Fields[1] != (vm.Field{Name: "y", Type: "float"}) {
		t.Errorf("struct point = %+v", st)
	}
	if !reflect.DeepEqual(img.Strings, []string{"hello", "world"}) {
		t.Errorf("strings = %q", img.Strings)
	}
	if len(img.Globals) != 1 || img.Globals[0].Type != "struct:point" {
		t.Errorf("globals = %+v", img.Globals)
	}
	if img.Funcs[img.Entry].Name != "main" || img.Funcs[img.Init].Name != "__init" {
		t.Errorf("entry = %d, init = %d", img.Entry, img.Init)
	}
	main := img.Funcs[img.Entry]
	if main.Addr != 2 {
		t.Errorf("main starts at %d, want 2", main.Addr)
	}
	if len(main.Params) != 1 || len(main.Locals) != 1 || main.Locals[0].Type != "*struct:point" {
		t.Errorf("main frame = %+v / %+v", main.Params, main.Locals)
	}
}

func TestLabelsAreLocalToFunctions(t *testing.T) {
	code := `
.func a void
L0:
	BR L0
.end
.func main void
L0:
	PUSHV
	RET
.end
.entry main
`
	img, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if img.Funcs[1].Addr != 9 {
		t.Errorf("main starts at %d, want 9", img.Funcs[1].Addr)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown instruction", ".func main void\n\tJMP 4\n.end\n.entry main", "unknown instruction on line 2: JMP"},
		{"undefined label", ".func main void\n\tBR L9\n.end\n.entry main", "undefined label 'L9' on line 2"},
		{"label from another function", ".func f void\nL1:\n\tRET\n.end\n.func main void\n\tBR L1\n.end\n.entry main", "undefined label 'L1' on line 6"},
		{"duplicate label", ".func main void\nL1:\nL1:\n.end\n.entry main", "duplicate label 'L1' on line 3"},
		{"undefined function", ".func main void\n\tCALL nope\n.end\n.entry main", "undefined function 'nope' on line 2"},
		{"undefined global", ".func main void\n\tLDGLOB g\n.end\n.entry main", "undefined global 'g' on line 2"},
		{"undefined string", ".func main void\n\tPUSHS 0\n.end\n.entry main", "undefined string 0 on line 2"},
		{"missing operand", ".func main void\n\tPUSHI\n.end\n.entry main", "PUSHI expects 1 operand on line 2"},
		{"extra operand", ".func main void\n\tADD 1\n.end\n.entry main", "ADD expects 0 operands on line 2"},
		{"bad float", ".func main void\n\tPUSHF x\n.end\n.entry main", "invalid float 'x' on line 2"},
		{"instruction outside function", "\tRET\n.entry main", "instruction outside a function on line 1"},
		{"missing end", ".func main void\n\tRET", "missing .end"},
		{"missing entry", ".func main void\n\tRET\n.end", "missing .entry directive"},
		{"undefined entry", ".func f void\n\tRET\n.end\n.entry main", "entry function 'main' is not defined"},
		{"string out of sequence", `.string 1 "x"`, "string index 1 out of sequence on line 1"},
		{"unknown struct type", ".global g struct:nope\n.func main void\n\tRET\n.end\n.entry main", "unknown struct nope"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.code)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}
