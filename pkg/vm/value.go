package vm

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindString
	KindRef
	KindArray
	KindRecord
)

var kindNames = [...]string{"void", "int", "float", "string", "ref", "array", "record"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a single VM value. Arrays are shared between copies of a value,
// records are not: Clone gives a record value C copy semantics.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	Ref  Ref
	A    *Array
	R    *Record
}

// Ref points at a storage cell. Base and Index are set when the cell is an
// array element so the reference can be indexed further.
type Ref struct {
	Cell  *Value
	Base  *Array
	Index int
}

type Array struct {
	Elems []Value
}

type Record struct {
	Layout *StructDef
	Fields []Value
}

func Void() Value            { return Value{} }
func Int(i int64) Value      { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value  { return Value{Kind: KindFloat, F: f} }
func String(s string) Value  { return Value{Kind: KindString, S: s} }
func RefTo(r Ref) Value      { return Value{Kind: KindRef, Ref: r} }
func ArrayOf(a *Array) Value { return Value{Kind: KindArray, A: a} }

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Clone copies records, including arrays embedded in them. Every other
// value is returned as is.
func (v Value) Clone() Value {
	if v.Kind != KindRecord || v.R == nil {
		return v
	}
	r := &Record{Layout: v.R.Layout, Fields: make([]Value, len(v.R.Fields))}
	for i, f := range v.R.Fields {
		r.Fields[i] = f.cloneNested()
	}
	v.R = r
	return v
}

func (v Value) cloneNested() Value {
	if v.Kind == KindArray && v.A != nil {
		a := &Array{Elems: make([]Value, len(v.A.Elems))}
		for i, e := range v.A.Elems {
			a.Elems[i] = e.cloneNested()
		}
		v.A = a
		return v
	}
	return v.Clone()
}

// Truthy is the branch condition: a nonzero number or a non-nil reference.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindRef:
		return v.Ref.Cell != nil
	case KindString, KindArray, KindRecord:
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.S)
	case KindRef:
		if v.Ref.Cell == nil {
			return "nil"
		}
		return "&" + v.Ref.Cell.Kind.String()
	case KindArray:
		parts := make([]string, len(v.A.Elems))
		for i, e := range v.A.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindRecord:
		parts := make([]string, len(v.R.Fields))
		for i, f := range v.R.Fields {
			name := strconv.Itoa(i)
			if v.R.Layout != nil && i < len(v.R.Layout.Fields) {
				name = v.R.Layout.Fields[i].Name
			}
			parts[i] = name + ":" + f.String()
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return "?"
}
