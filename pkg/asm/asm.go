// Package asm assembles the textual listing produced by the compiler into a
// vm.Image.
//
//	.struct point          .func main int
//	.field x int           .local p struct:point
//	.end                   	LDLOCA 0
//	                       	LDFLDA 1	; y
//	.string 0 "hi"         L0:
//	.global n int          	RET
//	                       .end
//	.init __init           .entry main
package asm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"stackcc/pkg/vm"
)

// operand classes, by how pass 2 resolves them
const (
	argNone = iota
	argInt
	argFloat
	argString
	argSlot
	argGlobal
	argLabel
	argFunc
)

var operandKinds = map[byte]int{
	vm.OpPUSHI:   argInt,
	vm.OpPUSHF:   argFloat,
	vm.OpPUSHS:   argString,
	vm.OpLDLOC:   argSlot,
	vm.OpSTLOC:   argSlot,
	vm.OpLDLOCA:  argSlot,
	vm.OpLDARG:   argSlot,
	vm.OpSTARG:   argSlot,
	vm.OpLDARGA:  argSlot,
	vm.OpLDFLD:   argSlot,
	vm.OpLDFLDA:  argSlot,
	vm.OpLDGLOB:  argGlobal,
	vm.OpSTGLOB:  argGlobal,
	vm.OpLDGLOBA: argGlobal,
	vm.OpBR:      argLabel,
	vm.OpBRTRUE:  argLabel,
	vm.OpBRFALSE: argLabel,
	vm.OpCALL:    argFunc,
}

type Assembler struct {
	img     *vm.Image
	funcs   map[string]int
	globals map[string]int
	labels  map[string]map[string]int // function -> label -> code offset
	entry   string
	init    string
}

type parsedLine struct {
	lineNo   int
	label    string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		img:     &vm.Image{Init: -1, SourceMap: make(map[int]int)},
		funcs:   make(map[string]int),
		globals: make(map[string]int),
		labels:  make(map[string]map[string]int),
	}
}

func Assemble(code string) (*vm.Image, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*vm.Image, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	if err := a.pass2(lines); err != nil {
		return nil, err
	}
	if err := a.img.Validate(); err != nil {
		return nil, err
	}
	return a.img, nil
}

// pass1 collects declarations and assigns code offsets to functions and
// labels.
func (a *Assembler) pass1(lines []string) error {
	var address int
	var fn *vm.FuncDef
	var st *vm.StructDef

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		if p.label != "" {
			if fn == nil {
				return fmt.Errorf("label '%s' outside a function on line %d", p.label, lineNo)
			}
			labels := a.labels[fn.Name]
			if _, exists := labels[p.label]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", p.label, lineNo)
			}
			labels[p.label] = address
			continue
		}
		if p.mnemonic == "" {
			continue
		}

		switch p.mnemonic {
		case ".struct":
			if err := expect(p, 1); err != nil {
				return err
			}
			if fn != nil || st != nil {
				return fmt.Errorf(".struct inside a block on line %d", lineNo)
			}
			if _, ok := a.img.Struct(p.operands[0]); ok {
				return fmt.Errorf("duplicate struct '%s' on line %d", p.operands[0], lineNo)
			}
			a.img.Structs = append(a.img.Structs, vm.StructDef{Name: p.operands[0]})
			st = &a.img.Structs[len(a.img.Structs)-1]

		case ".field":
			if err := expect(p, 2); err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf(".field outside a struct on line %d", lineNo)
			}
			st.Fields = append(st.Fields, vm.Field{Name: p.operands[0], Type: p.operands[1]})

		case ".string":
			if err := expect(p, 2); err != nil {
				return err
			}
			idx, err := strconv.Atoi(p.operands[0])
			if err != nil || idx != len(a.img.Strings) {
				return fmt.Errorf("string index %s out of sequence on line %d", p.operands[0], lineNo)
			}
			a.img.Strings = append(a.img.Strings, p.operands[1])

		case ".global":
			if err := expect(p, 2); err != nil {
				return err
			}
			if _, exists := a.globals[p.operands[0]]; exists {
				return fmt.Errorf("duplicate global '%s' on line %d", p.operands[0], lineNo)
			}
			a.globals[p.operands[0]] = len(a.img.Globals)
			a.img.Globals = append(a.img.Globals, vm.Field{Name: p.operands[0], Type: p.operands[1]})

		case ".func":
			if err := expect(p, 2); err != nil {
				return err
			}
			if fn != nil || st != nil {
				return fmt.Errorf(".func inside a block on line %d", lineNo)
			}
			name := p.operands[0]
			if _, exists := a.funcs[name]; exists {
				return fmt.Errorf("duplicate function '%s' on line %d", name, lineNo)
			}
			a.funcs[name] = len(a.img.Funcs)
			a.labels[name] = make(map[string]int)
			a.img.Funcs = append(a.img.Funcs, vm.FuncDef{Name: name, Returns: p.operands[1], Addr: address})
			fn = &a.img.Funcs[len(a.img.Funcs)-1]

		case ".param", ".local":
			if err := expect(p, 2); err != nil {
				return err
			}
			if fn == nil {
				return fmt.Errorf("%s outside a function on line %d", p.mnemonic, lineNo)
			}
			f := vm.Field{Name: p.operands[0], Type: p.operands[1]}
			if p.mnemonic == ".param" {
				fn.Params = append(fn.Params, f)
			} else {
				fn.Locals = append(fn.Locals, f)
			}

		case ".end":
			if fn == nil && st == nil {
				return fmt.Errorf(".end without a block on line %d", lineNo)
			}
			fn, st = nil, nil

		case ".entry", ".init":
			if err := expect(p, 1); err != nil {
				return err
			}
			if p.mnemonic == ".entry" {
				a.entry = p.operands[0]
			} else {
				a.init = p.operands[0]
			}

		default:
			op, ok := vm.Lookup(p.mnemonic)
			if !ok {
				return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
			}
			if fn == nil {
				return fmt.Errorf("instruction outside a function on line %d", lineNo)
			}
			address += vm.InstrLen(op)
		}
	}

	if fn != nil || st != nil {
		return fmt.Errorf("missing .end at end of input")
	}
	if a.entry == "" {
		return fmt.Errorf("missing .entry directive")
	}
	return nil
}

// pass2 encodes instructions and resolves their operands.
func (a *Assembler) pass2(lines []string) error {
	program := make([]byte, 0)
	var fn string

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		if p.mnemonic == "" {
			continue
		}

		switch p.mnemonic {
		case ".func":
			fn = p.operands[0]
			continue
		case ".end":
			fn = ""
			continue
		}
		if strings.HasPrefix(p.mnemonic, ".") {
			continue
		}

		op, _ := vm.Lookup(p.mnemonic)
		a.img.SourceMap[len(program)] = lineNo
		program = append(program, op)

		kind := operandKinds[op]
		if kind == argNone {
			if len(p.operands) != 0 {
				return fmt.Errorf("%s expects 0 operands on line %d", p.mnemonic, lineNo)
			}
			continue
		}
		if len(p.operands) != 1 {
			return fmt.Errorf("%s expects 1 operand on line %d", p.mnemonic, lineNo)
		}
		val, err := a.resolve(kind, fn, p.operands[0], lineNo)
		if err != nil {
			return err
		}
		program = binary.LittleEndian.AppendUint64(program, uint64(val))
	}

	a.img.Code = program

	entry, ok := a.funcs[a.entry]
	if !ok {
		return fmt.Errorf("entry function '%s' is not defined", a.entry)
	}
	a.img.Entry = entry
	if a.init != "" {
		initFn, ok := a.funcs[a.init]
		if !ok {
			return fmt.Errorf("init function '%s' is not defined", a.init)
		}
		a.img.Init = initFn
	}
	return nil
}

func (a *Assembler) resolve(kind int, fn, token string, lineNo int) (int64, error) {
	switch kind {
	case argInt, argSlot, argString:
		v, err := strconv.ParseInt(token, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer '%s' on line %d", token, lineNo)
		}
		if kind == argString && (v < 0 || int(v) >= len(a.img.Strings)) {
			return 0, fmt.Errorf("undefined string %d on line %d", v, lineNo)
		}
		if kind == argSlot && v < 0 {
			return 0, fmt.Errorf("negative slot on line %d", lineNo)
		}
		return v, nil

	case argFloat:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float '%s' on line %d", token, lineNo)
		}
		return int64(math.Float64bits(f)), nil

	case argGlobal:
		idx, ok := a.globals[token]
		if !ok {
			return 0, fmt.Errorf("undefined global '%s' on line %d", token, lineNo)
		}
		return int64(idx), nil

	case argLabel:
		addr, ok := a.labels[fn][token]
		if !ok {
			return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
		}
		return int64(addr), nil

	case argFunc:
		if idx, ok := a.funcs[token]; ok {
			return int64(idx), nil
		}
		def, ok := vm.BuiltinDef(token)
		if !ok {
			return 0, fmt.Errorf("undefined function '%s' on line %d", token, lineNo)
		}
		a.funcs[token] = len(a.img.Funcs)
		a.img.Funcs = append(a.img.Funcs, def)
		return int64(a.funcs[token]), nil
	}
	return 0, fmt.Errorf("invalid operand '%s' on line %d", token, lineNo)
}

func expect(p parsedLine, n int) error {
	if len(p.operands) != n {
		return fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, n, p.lineNo)
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" || line[0] == ';' {
		return p, nil
	}

	// .string keeps its quoted text intact, comment characters included
	if strings.HasPrefix(line, ".string") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return p, fmt.Errorf(".string expects 2 operands on line %d", lineNo)
		}
		rest := strings.TrimSpace(line[len(".string"):])
		rest = strings.TrimSpace(rest[len(fields[1]):])
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return p, fmt.Errorf("invalid string literal on line %d", lineNo)
		}
		text, _ := strconv.Unquote(quoted)
		if tail := strings.TrimSpace(stripComments(rest[len(quoted):])); tail != "" {
			return p, fmt.Errorf("unexpected '%s' after string on line %d", tail, lineNo)
		}
		p.mnemonic = ".string"
		p.operands = []string{fields[1], text}
		return p, nil
	}

	line = strings.TrimSpace(stripComments(line))
	if line == "" {
		return p, nil
	}

	if strings.HasSuffix(line, ":") {
		label := strings.TrimSuffix(line, ":")
		if !isIdentifier(label) {
			return p, fmt.Errorf("invalid label '%s' on line %d", label, lineNo)
		}
		p.label = label
		return p, nil
	}

	fields := strings.Fields(line)
	p.mnemonic = fields[0]
	if !strings.HasPrefix(p.mnemonic, ".") {
		p.mnemonic = strings.ToUpper(p.mnemonic)
	}
	p.operands = fields[1:]
	return p, nil
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
