package vm

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field is a named, typed cell of a struct, a frame or the global area.
// Type uses the listing type codes: int, float, string, void, func, *T,
// [N]T, []T and struct:name.
type Field struct {
	Name string
	Type string
}

type StructDef struct {
	Name   string
	Fields []Field
}

// FuncDef describes a function of the image. Builtins have no code and are
// dispatched to the intrinsic of the same name.
type FuncDef struct {
	Name    string
	Returns string
	Params  []Field
	Locals  []Field
	Addr    int
	Builtin bool
}

// Image is an assembled program.
type Image struct {
	Code      []byte
	Strings   []string
	Structs   []StructDef
	Globals   []Field
	Funcs     []FuncDef
	Entry     int
	Init      int         // function run before Entry, -1 for none
	SourceMap map[int]int // code offset -> listing line
}

// Func returns the index of the function called name, or -1.
func (img *Image) Func(name string) int {
	for i, f := range img.Funcs {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Struct returns the layout called name.
func (img *Image) Struct(name string) (*StructDef, bool) {
	for i := range img.Structs {
		if img.Structs[i].Name == name {
			return &img.Structs[i], true
		}
	}
	return nil, false
}

// Line returns the listing line of the instruction at pc, or 0.
func (img *Image) Line(pc int) int {
	return img.SourceMap[pc]
}

var imageMagic = []byte("SCCX\x01")

// imageWire has the fields of Image without its marshaling methods.
type imageWire Image

func (img *Image) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(imageMagic)
	if err := gob.NewEncoder(&buf).Encode((*imageWire)(img)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (img *Image) UnmarshalBinary(data []byte) error {
	if !bytes.HasPrefix(data, imageMagic) {
		return errors.New("not a program image")
	}
	var w imageWire
	if err := gob.NewDecoder(bytes.NewReader(data[len(imageMagic):])).Decode(&w); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	*img = Image(w)
	return img.Validate()
}

// Validate checks the references an image makes to itself.
func (img *Image) Validate() error {
	if img.Entry < 0 || img.Entry >= len(img.Funcs) {
		return fmt.Errorf("entry function %d out of range", img.Entry)
	}
	if img.Init >= len(img.Funcs) {
		return fmt.Errorf("init function %d out of range", img.Init)
	}
	for _, f := range img.Funcs {
		if !f.Builtin && (f.Addr < 0 || f.Addr > len(img.Code)) {
			return fmt.Errorf("function %s starts outside the code", f.Name)
		}
		if f.Builtin && intrinsics[f.Name] == nil {
			return fmt.Errorf("unknown builtin %s", f.Name)
		}
		for _, s := range append(append([]Field{}, f.Params...), f.Locals...) {
			if err := checkType(img, s.Type); err != nil {
				return fmt.Errorf("function %s: %w", f.Name, err)
			}
		}
	}
	for _, g := range img.Globals {
		if err := checkType(img, g.Type); err != nil {
			return fmt.Errorf("global %s: %w", g.Name, err)
		}
	}
	return nil
}

func checkType(img *Image, code string) error {
	switch {
	case code == "int", code == "float", code == "string", code == "void", code == "func":
		return nil
	case strings.HasPrefix(code, "*"):
		return checkType(img, code[1:])
	case strings.HasPrefix(code, "["):
		_, elem, err := splitArray(code)
		if err != nil {
			return err
		}
		return checkType(img, elem)
	case strings.HasPrefix(code, "struct:"):
		if _, ok := img.Struct(code[len("struct:"):]); !ok {
			return fmt.Errorf("unknown struct %s", code[len("struct:"):])
		}
		return nil
	}
	return fmt.Errorf("bad type code %q", code)
}

// splitArray splits "[N]T" into N and T. "[]T" has length -1.
func splitArray(code string) (int, string, error) {
	end := strings.IndexByte(code, ']')
	if end < 0 {
		return 0, "", fmt.Errorf("bad type code %q", code)
	}
	if end == 1 {
		return -1, code[2:], nil
	}
	n, err := strconv.Atoi(code[1:end])
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("bad array length in %q", code)
	}
	return n, code[end+1:], nil
}

// Zero returns the initial value of a cell of type code.
func (img *Image) Zero(code string) Value {
	switch {
	case code == "int":
		return Int(0)
	case code == "float":
		return Float(0)
	case code == "string":
		return String("")
	case strings.HasPrefix(code, "*"):
		return RefTo(Ref{})
	case strings.HasPrefix(code, "["):
		n, elem, err := splitArray(code)
		if err != nil || n < 0 {
			return ArrayOf(&Array{})
		}
		a := &Array{Elems: make([]Value, n)}
		for i := range a.Elems {
			a.Elems[i] = img.Zero(elem)
		}
		return ArrayOf(a)
	case strings.HasPrefix(code, "struct:"):
		def, ok := img.Struct(code[len("struct:"):])
		if !ok {
			return Void()
		}
		r := &Record{Layout: def, Fields: make([]Value, len(def.Fields))}
		for i, f := range def.Fields {
			r.Fields[i] = img.Zero(f.Type)
		}
		return Value{Kind: KindRecord, R: r}
	}
	return Void()
}
