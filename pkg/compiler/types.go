package compiler

import (
	"fmt"
	"strings"
)

type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindFloat
	KindString
	KindPointer
	KindArray
	KindStruct
	KindFunction
)

var kindText = [...]string{
	KindVoid:     "void",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindPointer:  "pointer",
	KindArray:    "array",
	KindStruct:   "struct",
	KindFunction: "function",
}

func (k TypeKind) String() string {
	if int(k) < len(kindText) {
		return kindText[k]
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Type describes the type of a value, variable or function.
//
// The payload fields that matter depend on Kind:
//
//	Pointer   Elem
//	Array     Elem, Len (-1 when the bound was omitted)
//	Struct    Name, Members (in declaration order)
//	Function  Returns, Params
//
// Types are never mutated once a declaration has been resolved; qualified
// variants are copies.
type Type struct {
	Kind     TypeKind
	Const    bool
	Volatile bool
	Elem     *Type
	Len      int
	Name     string
	Members  []*Symbol
	Returns  *Type
	Params   *Snapshot

	incomplete bool // struct whose member list is still being resolved
}

func VoidType() *Type   { return &Type{Kind: KindVoid} }
func IntType() *Type    { return &Type{Kind: KindInt} }
func FloatType() *Type  { return &Type{Kind: KindFloat} }
func StringType() *Type { return &Type{Kind: KindString} }

func PointerTo(elem *Type) *Type { return &Type{Kind: KindPointer, Elem: elem} }

func ArrayOf(elem *Type, n int) *Type { return &Type{Kind: KindArray, Elem: elem, Len: n} }

func FuncType(returns *Type, params *Snapshot) *Type {
	return &Type{Kind: KindFunction, Returns: returns, Params: params}
}

// StructType returns a named struct type that has no members yet.
func StructType(name string) *Type {
	return &Type{Kind: KindStruct, Name: name, incomplete: true}
}

func (t *Type) IsVoid() bool    { return t.Kind == KindVoid }
func (t *Type) IsInt() bool     { return t.Kind == KindInt }
func (t *Type) IsScalar() bool  { return t.Kind == KindInt || t.Kind == KindFloat }
func (t *Type) IsPointer() bool { return t.Kind == KindPointer }
func (t *Type) IsStruct() bool  { return t.Kind == KindStruct }

// Testable reports whether t may be used as a truth value.
func (t *Type) Testable() bool { return t.IsScalar() || t.IsPointer() }

// Complete reports whether a value of t has a known layout.
func (t *Type) Complete() bool {
	switch t.Kind {
	case KindStruct:
		return !t.incomplete
	case KindArray:
		return t.Elem.Complete()
	case KindVoid, KindFunction:
		return false
	}
	return true
}

// Qualified returns a copy of t carrying the given qualifiers in addition
// to its own.
func (t *Type) Qualified(isConst, isVolatile bool) *Type {
	if (!isConst || t.Const) && (!isVolatile || t.Volatile) {
		return t
	}
	c := *t
	c.Const = c.Const || isConst
	c.Volatile = c.Volatile || isVolatile
	return &c
}

// Member returns the struct member called name and its field index.
func (t *Type) Member(name string) (*Symbol, int) {
	for i, m := range t.Members {
		if m.Name == name {
			return m, i
		}
	}
	return nil, -1
}

// ParamTypes lists the parameter types of a function type in order.
func (t *Type) ParamTypes() []*Type {
	if t.Params == nil {
		return nil
	}
	syms := t.Params.Symbols()
	out := make([]*Type, len(syms))
	for i, s := range syms {
		out[i] = s.Type
	}
	return out
}

// Equal reports whether t and o are the same type. Qualifiers and array
// lengths are ignored; structs compare by tag and member list, functions by
// return type and ordered parameter types.
func (t *Type) Equal(o *Type) bool {
	return typesEqual(t, o, map[[2]*Type]bool{})
}

func typesEqual(a, b *Type, seen map[[2]*Type]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	key := [2]*Type{a, b}
	if seen[key] {
		// a struct reached again through its own member pointers
		return true
	}
	seen[key] = true

	switch a.Kind {
	case KindPointer, KindArray:
		return typesEqual(a.Elem, b.Elem, seen)
	case KindStruct:
		if a.Name != b.Name || len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			if a.Members[i].Name != b.Members[i].Name ||
				!typesEqual(a.Members[i].Type, b.Members[i].Type, seen) {
				return false
			}
		}
		return true
	case KindFunction:
		if !typesEqual(a.Returns, b.Returns, seen) {
			return false
		}
		pa, pb := a.ParamTypes(), b.ParamTypes()
		if len(pa) != len(pb) {
			return false
		}
		for i := range pa {
			if !typesEqual(pa[i], pb[i], seen) {
				return false
			}
		}
		return true
	}
	return true
}

// String renders t in C-like notation, e.g. "const int", "struct point *",
// "int [10]" or "int (int, float)".
func (t *Type) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Volatile {
		b.WriteString("volatile ")
	}
	switch t.Kind {
	case KindPointer:
		b.WriteString(t.Elem.String())
		b.WriteString(" *")
	case KindArray:
		b.WriteString(t.Elem.String())
		if t.Len < 0 {
			b.WriteString(" []")
		} else {
			fmt.Fprintf(&b, " [%d]", t.Len)
		}
	case KindStruct:
		if t.Name == "" {
			b.WriteString("struct <anonymous>")
		} else {
			b.WriteString("struct " + t.Name)
		}
	case KindFunction:
		b.WriteString(t.Returns.String())
		params := t.ParamTypes()
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = p.String()
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	default:
		b.WriteString(t.Kind.String())
	}
	return b.String()
}
