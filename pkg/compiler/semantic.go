package compiler

import (
	"fmt"
	"strings"
)

// Analyze checks a translation unit, declaring its globals, struct tags and
// functions in the file scope of env. It stops at the first error.
func Analyze(unit *TranslationUnit, env *Environment) error {
	a := &analyzer{env: env}
	for _, d := range unit.Decls {
		if err := a.external(d); err != nil {
			return err
		}
	}
	return nil
}

// AnalyzeDecl checks one more top level declaration or function definition
// against an environment that has already seen the ones before it.
func AnalyzeDecl(d ExternalDecl, env *Environment) error {
	return (&analyzer{env: env}).external(d)
}

// CheckStatement checks s in the current scope of env as if it appeared in
// the body of a function returning returns.
func CheckStatement(s Stmt, returns *Type, env *Environment) error {
	env.pushReturn(returns)
	defer env.popReturn()
	return (&analyzer{env: env}).statement(s)
}

type analyzer struct {
	env *Environment
}

func (a *analyzer) external(d ExternalDecl) error {
	switch n := d.(type) {
	case *Declaration:
		return a.declaration(n, StorageGlobal)
	case *FunctionDef:
		return a.functionDef(n)
	}
	return internalErr("unexpected external declaration %T", d)
}

//  Specifiers

// specifiers resolves a specifier list to its base type. A missing type
// specifier means int.
func (a *analyzer) specifiers(specs *DeclSpecs) (*Type, error) {
	var (
		base                *Type
		storage             *StorageSpec
		isConst, isVolatile bool
	)
	for _, item := range specs.Items {
		switch s := item.(type) {
		case *StorageSpec:
			if storage != nil {
				return nil, semanticErr(s.Pos(), "multiple storage classes in declaration specifiers")
			}
			if s.Tok.Keyword == KW_TYPEDEF {
				return nil, semanticErr(s.Pos(), "typedef is not supported")
			}
			storage = s
		case *TypeSpec:
			if base != nil {
				return nil, semanticErr(s.Pos(), "two or more data types in declaration specifiers")
			}
			switch s.Tok.Keyword {
			case KW_INT, KW_CHAR:
				base = IntType()
			case KW_FLOAT:
				base = FloatType()
			case KW_VOID:
				base = VoidType()
			default:
				return nil, semanticErr(s.Pos(), "this data type is not supported")
			}
		case *StructSpec:
			if base != nil {
				return nil, semanticErr(s.Pos(), "two or more data types in declaration specifiers")
			}
			t, err := a.structSpec(s)
			if err != nil {
				return nil, err
			}
			base = t
		case *Qualifier:
			switch s.Tok.Keyword {
			case KW_CONST:
				isConst = true
			case KW_VOLATILE:
				isVolatile = true
			}
		}
	}
	if base == nil {
		base = IntType()
	}
	return base.Qualified(isConst, isVolatile), nil
}

// structSpec defines a struct in the current scope, or finds the one a bare
// "struct tag" refers to.
func (a *analyzer) structSpec(s *StructSpec) (*Type, error) {
	if !s.HasBody {
		t, ok := a.env.LookupStruct(s.Tag)
		if !ok {
			return nil, semanticErr(s.Pos(), "storage size of '%s' isn't known", s.Tag)
		}
		return t, nil
	}

	t := StructType(s.Tag)
	if s.Tag != "" {
		// declared before the members so they can point back at it
		if err := a.env.DeclareStruct(t, s.Pos()); err != nil {
			return nil, err
		}
	}
	for _, d := range s.Members {
		base, err := a.specifiers(d.Specs)
		if err != nil {
			return nil, err
		}
		for _, init := range d.Inits {
			name, mt, err := a.declarator(init.Decl, base)
			if err != nil {
				return nil, err
			}
			if !mt.Complete() {
				return nil, semanticErr(init.Pos(), "field '%s' has incomplete type", name)
			}
			if m, _ := t.Member(name); m != nil {
				return nil, semanticErr(init.Pos(), "duplicate member '%s'", name)
			}
			t.Members = append(t.Members, &Symbol{
				Name:    name,
				Type:    mt,
				Pos:     init.Pos(),
				Storage: StorageMember,
				Slot:    len(t.Members),
			})
		}
	}
	t.incomplete = false
	return t, nil
}

//  Declarators

// declarator resolves d against base: pointers first, then the direct
// declarator from the outside in. It returns the declared name ("" for an
// abstract declarator) and its type.
func (a *analyzer) declarator(d *Declarator, base *Type) (string, *Type, error) {
	if d == nil {
		return "", base, nil
	}
	t := base
	for p := d.Pointer; p != nil; p = p.Next {
		var isConst, isVolatile bool
		for _, q := range p.Quals {
			isConst = isConst || q.Tok.IsKeyword(KW_CONST)
			isVolatile = isVolatile || q.Tok.IsKeyword(KW_VOLATILE)
		}
		t = PointerTo(t).Qualified(isConst, isVolatile)
	}
	return a.direct(d.Direct, t)
}

func (a *analyzer) direct(dd DirectDecl, t *Type) (string, *Type, error) {
	switch n := dd.(type) {
	case nil:
		return "", t, nil
	case *NameDecl:
		return n.Name, t, nil
	case *ParenDecl:
		return a.declarator(n.Inner, t)
	case *ArrayDecl:
		if t.Kind == KindFunction {
			return "", nil, semanticErr(n.Pos(), "declaration of array of functions")
		}
		if !t.Complete() || (t.Kind == KindArray && t.Len < 0) {
			return "", nil, semanticErr(n.Pos(), "array type has incomplete element type")
		}
		size := -1
		if n.Size != nil {
			v, ok := constInt(n.Size)
			if !ok {
				return "", nil, semanticErr(n.Size.Pos(), "size of array is not an integer constant")
			}
			if v <= 0 {
				return "", nil, semanticErr(n.Size.Pos(), "size of array is not positive")
			}
			size = int(v)
		}
		return a.direct(n.Left, ArrayOf(t, size))
	case *FuncDecl:
		switch t.Kind {
		case KindFunction:
			return "", nil, semanticErr(n.Pos(), "function returns a function")
		case KindArray:
			return "", nil, semanticErr(n.Pos(), "function returns an array")
		}
		params, err := a.params(n.Params)
		if err != nil {
			return "", nil, err
		}
		return a.direct(n.Left, FuncType(t, params))
	}
	return "", nil, internalErr("unexpected direct declarator %T", dd)
}

// params resolves a parameter list into a fresh scope. "()" and "(void)"
// both declare no parameters; unnamed parameters get placeholder names.
func (a *analyzer) params(list Node) (*Snapshot, error) {
	scope := NewSnapshot()
	pl, ok := list.(*ParamList)
	if !ok {
		return scope, nil
	}
	err := a.env.within(scope, func() error {
		for i, p := range pl.Items {
			base, err := a.specifiers(p.Specs)
			if err != nil {
				return err
			}
			name, t, err := a.declarator(p.Decl, base)
			if err != nil {
				return err
			}
			if t.IsVoid() {
				if len(pl.Items) == 1 && name == "" {
					return nil
				}
				return semanticErr(p.Pos(), "parameter %d has void type", i+1)
			}
			if t.Kind == KindFunction {
				t = PointerTo(t)
			}
			if t.Kind == KindStruct && !t.Complete() {
				return semanticErr(p.Pos(), "parameter %d has incomplete type", i+1)
			}
			if name == "" {
				name = fmt.Sprintf(".arg%d", i)
			}
			sym := &Symbol{Name: name, Type: t, Pos: p.Pos(), Storage: StorageParam, Slot: i}
			if err := a.env.Declare(sym); err != nil {
				return err
			}
		}
		return nil
	})
	return scope, err
}

func (a *analyzer) resolveTypeName(tn *TypeName) (*Type, error) {
	base, err := a.specifiers(tn.Specs)
	if err != nil {
		return nil, err
	}
	_, t, err := a.declarator(tn.Decl, base)
	return t, err
}

func resolveTypeName(tn *TypeName, env *Environment) (*Type, error) {
	return (&analyzer{env: env}).resolveTypeName(tn)
}

// constInt folds an integer constant expression.
func constInt(e Expr) (int64, bool) {
	switch n := e.(type) {
	case *Const:
		if v, ok := n.Tok.Value.(int64); ok {
			return v, true
		}
	case *UnaryExpr:
		x, ok := constInt(n.X)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case PLUS:
			return x, true
		case MINUS:
			return -x, true
		case TILDE:
			return ^x, true
		}
	case *BinaryExpr:
		x, ok := constInt(n.X)
		if !ok {
			return 0, false
		}
		y, ok := constInt(n.Y)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case PLUS:
			return x + y, true
		case MINUS:
			return x - y, true
		case STAR:
			return x * y, true
		case SLASH:
			if y != 0 {
				return x / y, true
			}
		case PERCENT:
			if y != 0 {
				return x % y, true
			}
		case SHL:
			return x << uint64(y&63), true
		case SHR:
			return x >> uint64(y&63), true
		case AMP:
			return x & y, true
		case PIPE:
			return x | y, true
		case CARET:
			return x ^ y, true
		}
	}
	return 0, false
}

//  Declarations

func (a *analyzer) declaration(d *Declaration, storage StorageClass) error {
	base, err := a.specifiers(d.Specs)
	if err != nil {
		return err
	}
	for _, init := range d.Inits {
		name, t, err := a.declarator(init.Decl, base)
		if err != nil {
			return err
		}
		pos := init.Decl.Pos()

		if t.Kind == KindFunction {
			if init.Init != nil {
				return semanticErr(pos, "function '%s' is initialized like a variable", name)
			}
			if storage != StorageGlobal {
				return semanticErr(pos, "function declarations are only allowed at file scope")
			}
			if _, err := a.declareFunction(name, t, pos); err != nil {
				return err
			}
			continue
		}

		if t.IsVoid() {
			return semanticErr(pos, "variable '%s' declared void", name)
		}
		if init.Init != nil {
			if t, err = a.initializer(t, init.Init); err != nil {
				return err
			}
		}
		if !t.Complete() {
			return semanticErr(pos, "storage size of '%s' isn't known", name)
		}
		if t.Kind == KindArray && t.Len < 0 {
			return semanticErr(pos, "array size missing in '%s'", name)
		}
		sym := &Symbol{Name: name, Type: t, Pos: pos, Storage: storage, Init: init.Init}
		if err := a.env.Declare(sym); err != nil {
			return err
		}
	}
	return nil
}

// initializer checks init against the declared type t and returns the
// final type: an array declared with "[]" takes its length from the list.
func (a *analyzer) initializer(t *Type, init Initializer) (*Type, error) {
	switch n := init.(type) {
	case *ExprInit:
		if t.Kind == KindArray {
			return nil, semanticErr(n.Pos(), "array must be initialized with a brace-enclosed initializer")
		}
		x, err := TypeOf(n.X, a.env)
		if err != nil {
			return nil, err
		}
		if !t.Equal(x) {
			return nil, semanticErr(n.X.Pos(), "cannot assign %s to %s", x, t.Qualified(false, false))
		}
		return t, nil

	case *InitList:
		switch t.Kind {
		case KindArray:
			if t.Len >= 0 && len(n.Items) > t.Len {
				return nil, semanticErr(n.Pos(), "excess elements in array initializer")
			}
			for _, item := range n.Items {
				if _, err := a.initializer(t.Elem, item); err != nil {
					return nil, err
				}
			}
			if t.Len < 0 {
				sized := *t
				sized.Len = len(n.Items)
				return &sized, nil
			}
			return t, nil
		case KindStruct:
			if len(n.Items) > len(t.Members) {
				return nil, semanticErr(n.Pos(), "excess elements in struct initializer")
			}
			for i, item := range n.Items {
				if _, err := a.initializer(t.Members[i].Type, item); err != nil {
					return nil, err
				}
			}
			return t, nil
		}
		if len(n.Items) != 1 {
			return nil, semanticErr(n.Pos(), "scalar initializer must hold exactly one element")
		}
		return a.initializer(t, n.Items[0])
	}
	return nil, internalErr("unexpected initializer %T", init)
}

// declareFunction records a prototype or the head of a definition. A second
// declaration must agree with the first.
func (a *analyzer) declareFunction(name string, t *Type, pos Position) (*Symbol, error) {
	if prev, ok := a.env.Current().Symbol(name); ok {
		if prev.Kind != SymFunction {
			return nil, semanticErr(pos, "'%s' redeclared as different kind of symbol", name)
		}
		if !prev.Type.Equal(t) {
			return nil, semanticErr(pos, "conflicting types for '%s'", name)
		}
		return prev, nil
	}
	sym := &Symbol{Name: name, Type: t, Pos: pos, Kind: SymFunction, Storage: StorageGlobal}
	if err := a.env.Declare(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

func (a *analyzer) functionDef(f *FunctionDef) error {
	base, err := a.specifiers(f.Specs)
	if err != nil {
		return err
	}
	name, t, err := a.declarator(f.Decl, base)
	if err != nil {
		return err
	}
	pos := f.Decl.Pos()
	if t.Kind != KindFunction {
		return semanticErr(pos, "'%s' is not a function", name)
	}
	if t.Returns.Kind == KindStruct && !t.Returns.Complete() {
		return semanticErr(pos, "return type is an incomplete type")
	}
	for _, p := range t.Params.Symbols() {
		if strings.HasPrefix(p.Name, ".") {
			return semanticErr(p.Pos, "parameter name omitted")
		}
	}

	sym, err := a.declareFunction(name, t, pos)
	if err != nil {
		return err
	}
	if sym.Defined {
		return semanticErr(pos, "redefinition of '%s'", name)
	}
	sym.Type = t
	sym.Pos = pos
	sym.Defined = true
	sym.Body = f.Body

	frame := NewSnapshot()
	for _, p := range t.Params.Symbols() {
		frame.add(p)
	}

	a.env.pushReturn(t.Returns)
	defer a.env.popReturn()
	err = a.env.within(frame, func() error {
		for _, d := range f.Body.Decls {
			if err := a.declaration(d, StorageLocal); err != nil {
				return err
			}
		}
		for _, s := range f.Body.Stmts {
			if err := a.statement(s); err != nil {
				return err
			}
		}
		return nil
	})
	sym.Frame = frame
	return err
}

//  Statements

func (a *analyzer) statement(s Stmt) error {
	switch n := s.(type) {
	case *ExprStmt:
		if n.X == nil {
			return nil
		}
		_, err := TypeOf(n.X, a.env)
		return err

	case *CompoundStmt:
		if len(n.Decls) > 0 {
			return semanticErr(n.Decls[0].Pos(), "declaring variables in a nested block is prohibited")
		}
		return a.env.within(NewSnapshot(), func() error {
			for _, st := range n.Stmts {
				if err := a.statement(st); err != nil {
					return err
				}
			}
			return nil
		})

	case *IfStmt:
		if err := a.condition(n.Cond); err != nil {
			return err
		}
		if err := a.statement(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			return a.statement(n.Else)
		}
		return nil

	case *SwitchStmt:
		t, err := TypeOf(n.Tag, a.env)
		if err != nil {
			return err
		}
		if !t.IsInt() {
			return semanticErr(n.Tag.Pos(), "switch quantity not an integer")
		}
		a.env.enterSwitch()
		defer a.env.leaveSwitch()
		return a.statement(n.Body)

	case *WhileStmt:
		if err := a.condition(n.Cond); err != nil {
			return err
		}
		return a.loopBody(n.Body)

	case *ForStmt:
		for _, x := range []Expr{n.Init, n.Post} {
			if x == nil {
				continue
			}
			if _, err := TypeOf(x, a.env); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			if err := a.condition(n.Cond); err != nil {
				return err
			}
		}
		return a.loopBody(n.Body)

	case *JumpStmt:
		if n.Keyword == KW_BREAK && !a.env.InBreakable() {
			return semanticErr(n.Pos(), "break statement not within loop or switch")
		}
		if n.Keyword == KW_CONTINUE && !a.env.InLoop() {
			return semanticErr(n.Pos(), "continue statement not within a loop")
		}
		return nil

	case *ReturnStmt:
		return a.returnStmt(n)
	}
	return internalErr("unexpected statement %T", s)
}

func (a *analyzer) loopBody(body Stmt) error {
	a.env.enterLoop()
	defer a.env.leaveLoop()
	return a.statement(body)
}

// condition checks the controlling expression of if, while, do and for.
func (a *analyzer) condition(x Expr) error {
	t, err := TypeOf(x, a.env)
	if err != nil {
		return err
	}
	if !t.Testable() {
		return semanticErr(x.Pos(), "used %s where scalar is required", t)
	}
	return nil
}

func (a *analyzer) returnStmt(n *ReturnStmt) error {
	want := a.env.ReturnType()
	if want == nil {
		return semanticErr(n.Pos(), "return statement outside a function")
	}
	if n.X == nil {
		if !want.IsVoid() {
			return semanticErr(n.Pos(), "'return' with no value, in function returning non-void")
		}
		return nil
	}
	got, err := TypeOf(n.X, a.env)
	if err != nil {
		return err
	}
	if want.IsVoid() {
		return semanticErr(n.X.Pos(), "'return' with a value, in function returning void")
	}
	if !want.Equal(got) {
		return semanticErr(n.X.Pos(), "incompatible types when returning type %s but %s was expected", got, want)
	}
	return nil
}
