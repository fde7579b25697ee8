package compiler

import (
	"fmt"
	"strings"
)

type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
)

type StorageClass int

const (
	StorageGlobal StorageClass = iota
	StorageLocal
	StorageParam
	StorageMember
)

func (s StorageClass) String() string {
	switch s {
	case StorageGlobal:
		return "global"
	case StorageLocal:
		return "local"
	case StorageParam:
		return "param"
	case StorageMember:
		return "member"
	}
	return fmt.Sprintf("StorageClass(%d)", int(s))
}

// Symbol is a named variable, parameter, struct member or function.
type Symbol struct {
	Name    string
	Type    *Type
	Pos     Position
	Kind    SymbolKind
	Storage StorageClass

	// Slot is the local, parameter, or field index. The code generator
	// assigns it for locals and parameters when it replays a frame.
	Slot int

	Init Initializer

	// Functions only.
	Defined bool
	Body    *CompoundStmt
	Frame   *Snapshot // parameters and locals, attached after analysis
	Builtin bool
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s: %s", s.Storage, s.Name, s.Type)
}

// table is a name-keyed table that remembers insertion order.
type table[V any] struct {
	order []string
	index map[string]V
}

func (t *table[V]) put(name string, v V) {
	if t.index == nil {
		t.index = make(map[string]V)
	}
	if _, ok := t.index[name]; !ok {
		t.order = append(t.order, name)
	}
	t.index[name] = v
}

func (t *table[V]) get(name string) (V, bool) {
	v, ok := t.index[name]
	return v, ok
}

func (t *table[V]) values() []V {
	out := make([]V, len(t.order))
	for i, name := range t.order {
		out[i] = t.index[name]
	}
	return out
}

// Snapshot is one scope: the symbols and struct tags declared in it, in
// declaration order.
type Snapshot struct {
	symbols table[*Symbol]
	structs table[*Type]
}

func NewSnapshot() *Snapshot { return &Snapshot{} }

// Symbol looks name up in this scope only.
func (s *Snapshot) Symbol(name string) (*Symbol, bool) { return s.symbols.get(name) }

// Struct looks a struct tag up in this scope only.
func (s *Snapshot) Struct(tag string) (*Type, bool) { return s.structs.get(tag) }

func (s *Snapshot) Symbols() []*Symbol { return s.symbols.values() }
func (s *Snapshot) Structs() []*Type   { return s.structs.values() }

// Len returns the number of symbols in the scope.
func (s *Snapshot) Len() int { return len(s.symbols.order) }

func (s *Snapshot) add(sym *Symbol) { s.symbols.put(sym.Name, sym) }

// replace swaps the symbol stored under sym.Name without changing its
// position in the declaration order.
func (s *Snapshot) replace(sym *Symbol) { s.symbols.put(sym.Name, sym) }

func (s *Snapshot) addStruct(t *Type) { s.structs.put(t.Name, t) }

// String dumps the scope, struct tags first.
func (s *Snapshot) String() string {
	var sb strings.Builder
	for _, t := range s.Structs() {
		fmt.Fprintf(&sb, "%s {", t)
		for _, m := range t.Members {
			fmt.Fprintf(&sb, " %s %s;", m.Type, m.Name)
		}
		sb.WriteString(" }\n")
	}
	for _, sym := range s.Symbols() {
		fmt.Fprintf(&sb, "%-8s %-16s %s", sym.Storage, sym.Name, sym.Type)
		if sym.Kind == SymFunction {
			switch {
			case sym.Builtin:
				sb.WriteString(" (builtin)")
			case !sym.Defined:
				sb.WriteString(" (declared)")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
