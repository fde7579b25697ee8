package compiler

import "fmt"

// Environment is the state of one compilation: the scope stack with the
// struct tags visible in each scope, and the counters the analyzer keeps
// while it walks a function body.
//
// The bottom two scopes are permanent: the builtins, then the globals of the
// translation unit. Popping below them is a compiler defect and panics.
type Environment struct {
	scopes []*Snapshot
	base   int

	loops      int     // enclosing loops
	breakables int     // enclosing loops and switches
	returns    []*Type // return types of the functions being checked
}

// Builtin function names, provided by the runtime.
const (
	BuiltinPrintString = "print_string"
	BuiltinPrintInt    = "print_int"
)

func NewEnvironment() *Environment {
	env := &Environment{}
	builtins := NewSnapshot()
	builtins.add(builtin(BuiltinPrintString, StringType()))
	builtins.add(builtin(BuiltinPrintInt, IntType()))
	env.scopes = []*Snapshot{builtins, NewSnapshot()}
	env.base = len(env.scopes)
	return env
}

func builtin(name string, param *Type) *Symbol {
	params := NewSnapshot()
	params.add(&Symbol{Name: "value", Type: param, Storage: StorageParam})
	return &Symbol{
		Name:    name,
		Type:    FuncType(VoidType(), params),
		Kind:    SymFunction,
		Storage: StorageGlobal,
		Defined: true,
		Builtin: true,
	}
}

// Depth returns the number of scopes on the stack.
func (e *Environment) Depth() int { return len(e.scopes) }

// Current returns the innermost scope.
func (e *Environment) Current() *Snapshot { return e.scopes[len(e.scopes)-1] }

// Globals returns the file scope.
func (e *Environment) Globals() *Snapshot { return e.scopes[e.base-1] }

// Builtins returns the scope holding the runtime provided functions.
func (e *Environment) Builtins() *Snapshot { return e.scopes[0] }

// AtFileScope reports whether no function or block scope is open.
func (e *Environment) AtFileScope() bool { return len(e.scopes) == e.base }

// Push makes s the innermost scope.
func (e *Environment) Push(s *Snapshot) { e.scopes = append(e.scopes, s) }

// PushScope opens a fresh innermost scope and returns it.
func (e *Environment) PushScope() *Snapshot {
	s := NewSnapshot()
	e.Push(s)
	return s
}

// Pop closes the innermost scope and returns it.
func (e *Environment) Pop() *Snapshot {
	if len(e.scopes) <= e.base {
		panic(fmt.Sprintf("scope stack underflow: depth %d, base %d", len(e.scopes), e.base))
	}
	s := e.Current()
	e.scopes = e.scopes[:len(e.scopes)-1]
	return s
}

// within runs fn with s pushed and pops it again however fn exits. The
// depth check catches a body that left extra scopes behind.
func (e *Environment) within(s *Snapshot, fn func() error) error {
	depth := len(e.scopes)
	e.Push(s)
	defer func() {
		if len(e.scopes) != depth+1 {
			panic(fmt.Sprintf("unbalanced scopes: expected depth %d, got %d", depth+1, len(e.scopes)))
		}
		e.Pop()
	}()
	return fn()
}

// Declare adds sym to the innermost scope.
func (e *Environment) Declare(sym *Symbol) error {
	if _, ok := e.Current().Symbol(sym.Name); ok {
		return semanticErr(sym.Pos, "redeclaration of '%s'", sym.Name)
	}
	e.Current().add(sym)
	return nil
}

// DeclareStruct adds a struct tag to the innermost scope.
func (e *Environment) DeclareStruct(t *Type, pos Position) error {
	if _, ok := e.Current().Struct(t.Name); ok {
		return semanticErr(pos, "redeclaration of 'struct %s'", t.Name)
	}
	e.Current().addStruct(t)
	return nil
}

// Lookup finds the innermost visible symbol called name.
func (e *Environment) Lookup(name string) (*Symbol, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if sym, ok := e.scopes[i].Symbol(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupStruct finds the innermost visible struct with the given tag.
func (e *Environment) LookupStruct(tag string) (*Type, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i].Struct(tag); ok {
			return t, true
		}
	}
	return nil, false
}

//  Analyzer counters

func (e *Environment) InLoop() bool      { return e.loops > 0 }
func (e *Environment) InBreakable() bool { return e.breakables > 0 }

func (e *Environment) enterLoop()   { e.loops++; e.breakables++ }
func (e *Environment) leaveLoop()   { e.loops--; e.breakables-- }
func (e *Environment) enterSwitch() { e.breakables++ }
func (e *Environment) leaveSwitch() { e.breakables-- }

func (e *Environment) pushReturn(t *Type) { e.returns = append(e.returns, t) }
func (e *Environment) popReturn()         { e.returns = e.returns[:len(e.returns)-1] }

// ReturnType is the declared return type of the function being checked, or
// nil outside a function.
func (e *Environment) ReturnType() *Type {
	if len(e.returns) == 0 {
		return nil
	}
	return e.returns[len(e.returns)-1]
}
