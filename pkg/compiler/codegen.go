package compiler

import (
	"fmt"
	"strconv"
)

// Options control code generation.
type Options struct {
	Entry string // entry point name, "main" when empty
	Prune bool   // drop functions the entry point cannot reach
}

// InitFunction is the name of the synthesized function that stores the
// initial values of globals.
const InitFunction = "__init"

// CodeGen lowers an analyzed translation unit to a Program. It replays each
// function's frame from the environment the analyzer filled in.
type CodeGen struct {
	env       *Environment
	prog      *Program
	fn        *Function
	nextLabel int
	strings   map[string]int
	structs   map[*Type]string
	loopStack []LoopLabel
}

// LoopLabel holds the jump targets of an enclosing loop or switch. A switch
// has no Continue target of its own.
type LoopLabel struct {
	Continue string
	Break    string
}

func newCodeGen(env *Environment) *CodeGen {
	return &CodeGen{
		env:     env,
		prog:    &Program{},
		strings: make(map[string]int),
		structs: make(map[*Type]string),
	}
}

// Generate lowers unit, which must already have passed Analyze against env.
// A construct that analysis should have rejected is reported as an
// *InternalError.
func Generate(unit *TranslationUnit, env *Environment, opts Options) (prog *Program, err error) {
	if opts.Entry == "" {
		opts.Entry = "main"
	}
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			prog, err = nil, ie
		}
	}()

	entry, err := findEntry(unit, env, opts.Entry)
	if err != nil {
		return nil, err
	}

	var reachable map[string]bool
	if opts.Prune {
		reachable = eliminateDeadFunctions(unit, env, opts.Entry)
	}

	g := newCodeGen(env)
	g.prog.Entry = entry.Name
	g.globals()
	for _, d := range unit.Decls {
		f, ok := d.(*FunctionDef)
		if !ok {
			continue
		}
		sym, _ := env.Globals().Symbol(f.Decl.Name())
		if sym == nil || sym.Body != f.Body {
			panic(internalErr("function %s was not analyzed", f.Decl.Name()))
		}
		if reachable != nil && !reachable[sym.Name] {
			continue
		}
		g.function(sym)
	}
	return g.prog, nil
}

// findEntry checks that the entry point is a defined function without
// parameters returning void or int.
func findEntry(unit *TranslationUnit, env *Environment, name string) (*Symbol, error) {
	sym, ok := env.Globals().Symbol(name)
	if !ok || sym.Kind != SymFunction || !sym.Defined {
		return nil, semanticErr(unit.Pos(), "entry point '%s' is not defined", name)
	}
	if len(sym.Type.ParamTypes()) != 0 {
		return nil, semanticErr(sym.Pos, "entry point '%s' must not take arguments", name)
	}
	if r := sym.Type.Returns; !r.IsVoid() && !r.IsInt() {
		return nil, semanticErr(sym.Pos, "entry point '%s' must return void or int", name)
	}
	return sym, nil
}

//  Emission helpers

func (g *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", g.nextLabel)
	g.nextLabel++
	return l
}

func (g *CodeGen) emit(op string, args ...any) {
	in := Instr{Op: op}
	if len(args) > 0 {
		in.Arg = fmt.Sprint(args[0])
	}
	g.fn.Code = append(g.fn.Code, in)
}

// comment attaches a note to the last emitted instruction.
func (g *CodeGen) comment(format string, args ...any) {
	g.fn.Code[len(g.fn.Code)-1].Comment = fmt.Sprintf(format, args...)
}

func (g *CodeGen) label(l string) {
	g.fn.Code = append(g.fn.Code, Instr{Label: l})
}

func (g *CodeGen) internString(s string) int {
	if idx, ok := g.strings[s]; ok {
		return idx
	}
	idx := len(g.prog.Strings)
	g.prog.Strings = append(g.prog.Strings, s)
	g.strings[s] = idx
	return idx
}

func (g *CodeGen) typeOf(e Expr) *Type {
	t, err := TypeOf(e, g.env)
	if err != nil {
		panic(internalErr("%s: type of %s: %v", e.Pos(), e, err))
	}
	return t
}

func (g *CodeGen) lookup(id *Ident) *Symbol {
	sym, ok := g.env.Lookup(id.Name)
	if !ok {
		panic(internalErr("%s: unresolved symbol %s", id.Pos(), id.Name))
	}
	return sym
}

// typeCode is the textual form of a type in the listing:
//
//	int  float  string  void  func  *T  [N]T  []T  struct:name
func (g *CodeGen) typeCode(t *Type) string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindFunction:
		return "func"
	case KindPointer:
		return "*" + g.typeCode(t.Elem)
	case KindArray:
		if t.Len < 0 {
			return "[]" + g.typeCode(t.Elem)
		}
		return fmt.Sprintf("[%d]%s", t.Len, g.typeCode(t.Elem))
	case KindStruct:
		return "struct:" + g.structName(t)
	}
	panic(internalErr("no type code for %s", t))
}

// structName registers the layout of t on first use. Distinct struct types
// sharing a tag (declared in different scopes) get numbered names.
func (g *CodeGen) structName(t *Type) string {
	if name, ok := g.structs[t]; ok {
		return name
	}
	base := t.Name
	if base == "" {
		base = "anon"
	}
	name := base
	for n := 2; g.structTaken(name); n++ {
		name = fmt.Sprintf("%s.%d", base, n)
	}
	g.structs[t] = name

	layout := &StructLayout{Name: name}
	g.prog.Structs = append(g.prog.Structs, layout)
	for _, m := range t.Members {
		layout.Fields = append(layout.Fields, Slot{Name: m.Name, Type: g.typeCode(m.Type)})
	}
	return name
}

func (g *CodeGen) structTaken(name string) bool {
	for _, n := range g.structs {
		if n == name {
			return true
		}
	}
	return false
}

//  Globals and functions

// globals declares every global variable and, when any has an initializer,
// synthesizes InitFunction to store the initial values in order.
func (g *CodeGen) globals() {
	var inits []*Symbol
	for _, sym := range g.env.Globals().Symbols() {
		if sym.Kind != SymVariable {
			continue
		}
		g.prog.Globals = append(g.prog.Globals, Slot{Name: sym.Name, Type: g.typeCode(sym.Type)})
		if sym.Init != nil {
			inits = append(inits, sym)
		}
	}
	if len(inits) == 0 {
		return
	}

	g.fn = &Function{Name: InitFunction, Returns: "void"}
	for _, sym := range inits {
		g.initialize(sym)
	}
	g.emit("PUSHV")
	g.emit("RET")
	g.prog.Functions = append(g.prog.Functions, g.fn)
	g.prog.Init = InitFunction
}

func (g *CodeGen) function(sym *Symbol) {
	g.fn = &Function{Name: sym.Name, Returns: g.typeCode(sym.Type.Returns)}
	g.env.Push(sym.Frame)
	defer g.env.Pop()

	var locals []*Symbol
	for _, s := range sym.Frame.Symbols() {
		slot := Slot{Name: s.Name, Type: g.typeCode(s.Type)}
		switch s.Storage {
		case StorageParam:
			s.Slot = len(g.fn.Params)
			g.fn.Params = append(g.fn.Params, slot)
		case StorageLocal:
			s.Slot = len(g.fn.Locals)
			g.fn.Locals = append(g.fn.Locals, slot)
			locals = append(locals, s)
		}
	}
	for _, s := range locals {
		if s.Init != nil {
			g.initialize(s)
		}
	}

	for _, s := range sym.Body.Stmts {
		g.stmt(s)
	}
	if n := len(g.fn.Code); n == 0 || g.fn.Code[n-1].Op != "RET" {
		g.zero(sym.Type.Returns)
		g.emit("RET")
	}
	g.pruneLabels()
	g.prog.Functions = append(g.prog.Functions, g.fn)
}

// zero pushes the value a function returns when control falls off its end.
func (g *CodeGen) zero(t *Type) {
	switch t.Kind {
	case KindInt:
		g.emit("PUSHI", 0)
	case KindFloat:
		g.emit("PUSHF", 0)
	default:
		g.emit("PUSHV")
	}
}

// pruneLabels drops label definitions no branch refers to.
func (g *CodeGen) pruneLabels() {
	used := make(map[string]bool)
	for _, in := range g.fn.Code {
		switch in.Op {
		case "BR", "BRTRUE", "BRFALSE":
			used[in.Arg] = true
		}
	}
	code := g.fn.Code[:0]
	for _, in := range g.fn.Code {
		if in.Label != "" && !used[in.Label] {
			continue
		}
		code = append(code, in)
	}
	g.fn.Code = code
}

//  Storage

func (g *CodeGen) load(sym *Symbol) {
	switch sym.Storage {
	case StorageLocal:
		g.emit("LDLOC", sym.Slot)
	case StorageParam:
		g.emit("LDARG", sym.Slot)
	case StorageGlobal:
		g.emit("LDGLOB", sym.Name)
		return
	default:
		panic(internalErr("cannot load %s", sym))
	}
	g.comment("%s", sym.Name)
}

func (g *CodeGen) store(sym *Symbol) {
	switch sym.Storage {
	case StorageLocal:
		g.emit("STLOC", sym.Slot)
	case StorageParam:
		g.emit("STARG", sym.Slot)
	case StorageGlobal:
		g.emit("STGLOB", sym.Name)
		return
	default:
		panic(internalErr("cannot store %s", sym))
	}
	g.comment("%s", sym.Name)
}

func (g *CodeGen) addrOf(sym *Symbol) {
	switch sym.Storage {
	case StorageLocal:
		g.emit("LDLOCA", sym.Slot)
	case StorageParam:
		g.emit("LDARGA", sym.Slot)
	case StorageGlobal:
		g.emit("LDGLOBA", sym.Name)
		return
	default:
		panic(internalErr("cannot take the address of %s", sym))
	}
	g.comment("&%s", sym.Name)
}

// loadIndirect replaces the reference on top of the stack with the value
// it points to.
func (g *CodeGen) loadIndirect(t *Type) {
	if t.IsStruct() {
		g.emit("LDOBJ")
		return
	}
	g.emit("LDIND")
}

// initialize stores the initializer of a variable into it.
func (g *CodeGen) initialize(sym *Symbol) {
	if init, ok := sym.Init.(*ExprInit); ok {
		g.expr(init.X)
		g.store(sym)
		return
	}
	g.initInto(func() { g.addrOf(sym) }, sym.Type, sym.Init)
}

// initInto stores init into the object of type t whose address addr pushes.
func (g *CodeGen) initInto(addr func(), t *Type, init Initializer) {
	switch n := init.(type) {
	case *ExprInit:
		addr()
		g.expr(n.X)
		g.emit("STIND")
	case *InitList:
		switch t.Kind {
		case KindArray:
			for i, item := range n.Items {
				g.initInto(func() {
					addr()
					g.emit("LDIND")
					g.emit("PUSHI", i)
					g.emit("LDELEMA")
				}, t.Elem, item)
			}
		case KindStruct:
			for i, item := range n.Items {
				g.initInto(func() {
					addr()
					g.emit("LDFLDA", i)
					g.comment("%s", t.Members[i].Name)
				}, t.Members[i].Type, item)
			}
		default:
			g.initInto(addr, t, n.Items[0])
		}
	default:
		panic(internalErr("unexpected initializer %T", init))
	}
}

//  Statements

func (g *CodeGen) stmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		if n.X != nil {
			g.expr(n.X)
			g.emit("POP")
		}

	case *CompoundStmt:
		for _, st := range n.Stmts {
			g.stmt(st)
		}

	case *IfStmt:
		elseLabel, endLabel := g.newLabel(), g.newLabel()
		g.expr(n.Cond)
		g.emit("BRFALSE", elseLabel)
		g.stmt(n.Then)
		g.emit("BR", endLabel)
		g.label(elseLabel)
		if n.Else != nil {
			g.stmt(n.Else)
		}
		g.label(endLabel)

	case *SwitchStmt:
		endLabel := g.newLabel()
		g.expr(n.Tag)
		g.emit("POP")
		g.loopStack = append(g.loopStack, LoopLabel{Break: endLabel})
		g.stmt(n.Body)
		g.loopStack = g.loopStack[:len(g.loopStack)-1]
		g.label(endLabel)

	case *WhileStmt:
		g.loop(n.Cond, n.Body, !n.DoWhile)

	case *ForStmt:
		g.forStmt(n)

	case *JumpStmt:
		g.jump(n)

	case *ReturnStmt:
		if n.X != nil {
			g.expr(n.X)
		} else {
			g.emit("PUSHV")
		}
		g.emit("RET")

	default:
		panic(internalErr("unexpected statement %T", s))
	}
}

// loop emits while (condFirst) and do-while loops:
//
//	start:                      start:
//	    cond                        body
//	    BRFALSE end             cont:
//	    body                        cond
//	    BR start                    BRFALSE end
//	end:                            BR start
//	                            end:
func (g *CodeGen) loop(cond Expr, body Stmt, condFirst bool) {
	start, end := g.newLabel(), g.newLabel()
	cont := start
	if !condFirst {
		cont = g.newLabel()
	}
	g.loopStack = append(g.loopStack, LoopLabel{Continue: cont, Break: end})
	defer func() { g.loopStack = g.loopStack[:len(g.loopStack)-1] }()

	g.label(start)
	if condFirst {
		g.expr(cond)
		g.emit("BRFALSE", end)
	}
	g.stmt(body)
	if !condFirst {
		g.label(cont)
		g.expr(cond)
		g.emit("BRFALSE", end)
	}
	g.emit("BR", start)
	g.label(end)
}

// forStmt emits
//
//	    init; POP
//	    BR check
//	start:
//	    body
//	cont:
//	    post; POP
//	check:
//	    cond; BRTRUE start       (BR start without a condition)
//	end:
func (g *CodeGen) forStmt(n *ForStmt) {
	start, cont, check, end := g.newLabel(), g.newLabel(), g.newLabel(), g.newLabel()
	g.loopStack = append(g.loopStack, LoopLabel{Continue: cont, Break: end})
	defer func() { g.loopStack = g.loopStack[:len(g.loopStack)-1] }()

	if n.Init != nil {
		g.expr(n.Init)
		g.emit("POP")
	}
	g.emit("BR", check)
	g.label(start)
	g.stmt(n.Body)
	g.label(cont)
	if n.Post != nil {
		g.expr(n.Post)
		g.emit("POP")
	}
	g.label(check)
	if n.Cond != nil {
		g.expr(n.Cond)
		g.emit("BRTRUE", start)
	} else {
		g.emit("BR", start)
	}
	g.label(end)
}

func (g *CodeGen) jump(n *JumpStmt) {
	for i := len(g.loopStack) - 1; i >= 0; i-- {
		l := g.loopStack[i]
		if n.Keyword == KW_BREAK {
			g.emit("BR", l.Break)
			return
		}
		if l.Continue != "" {
			g.emit("BR", l.Continue)
			return
		}
	}
	panic(internalErr("%s: %s outside a loop", n.Pos(), n.Keyword))
}

//  Expressions

var binaryOps = map[Operator]string{
	PLUS:       "ADD",
	MINUS:      "SUB",
	STAR:       "MUL",
	SLASH:      "DIV",
	PERCENT:    "MOD",
	AMP:        "AND",
	PIPE:       "OR",
	CARET:      "XOR",
	SHL:        "SHL",
	SHR:        "SHR",
	EQUALS:     "CEQ",
	NOT_EQ:     "CNE",
	LESS:       "CLT",
	LESS_EQ:    "CLE",
	GREATER:    "CGT",
	GREATER_EQ: "CGE",
}

// expr pushes the value of e.
func (g *CodeGen) expr(e Expr) {
	switch n := e.(type) {
	case *Const:
		switch v := n.Tok.Value.(type) {
		case float64:
			g.emit("PUSHF", strconv.FormatFloat(v, 'g', -1, 64))
		case int64:
			g.emit("PUSHI", v)
		default:
			panic(internalErr("unexpected constant %v", n.Tok))
		}

	case *StringLit:
		g.emit("PUSHS", g.internString(n.Value))

	case *Ident:
		g.load(g.lookup(n))

	case *IndexExpr:
		g.arrayBase(n.X)
		g.expr(n.Index)
		g.emit("LDELEM")

	case *CallExpr:
		for _, arg := range n.Arguments() {
			g.expr(arg)
		}
		g.emit("CALL", n.Fn.(*Ident).Name)

	case *MemberExpr:
		m, idx, err := resolveMember(n, g.env)
		if err != nil {
			panic(internalErr("%s: %v", n.Pos(), err))
		}
		g.expr(n.X)
		if n.Arrow {
			g.emit("LDFLDA", idx)
			g.comment("%s", m.Name)
			g.loadIndirect(m.Type)
			return
		}
		g.emit("LDFLD", idx)
		g.comment("%s", m.Name)

	case *PostfixExpr:
		g.incDec(n.X, n.Op, false)

	case *UnaryExpr:
		g.unary(n)

	case *CastExpr:
		from, to := g.typeOf(n.X), g.typeOf(n)
		g.expr(n.X)
		switch {
		case to.IsVoid():
			g.emit("POP")
			g.emit("PUSHV")
		case to.IsInt() && from.Kind == KindFloat:
			g.emit("CONVI")
		case to.Kind == KindFloat && from.IsInt():
			g.emit("CONVF")
		}

	case *BinaryExpr:
		g.binary(n)

	case *CondExpr:
		elseLabel, endLabel := g.newLabel(), g.newLabel()
		g.expr(n.Cond)
		g.emit("BRFALSE", elseLabel)
		g.expr(n.Then)
		g.emit("BR", endLabel)
		g.label(elseLabel)
		g.expr(n.Else)
		g.label(endLabel)

	case *AssignExpr:
		g.assign(n)

	default:
		panic(internalErr("unexpected expression %T", e))
	}
}

func (g *CodeGen) unary(n *UnaryExpr) {
	switch n.Op {
	case INC, DEC:
		g.incDec(n.X, n.Op, true)
	case AMP:
		g.addr(n.X)
	case STAR:
		g.expr(n.X)
		g.loadIndirect(g.typeOf(n))
	case PLUS:
		g.expr(n.X)
	case MINUS:
		g.expr(n.X)
		g.emit("NEG")
	case TILDE:
		g.expr(n.X)
		g.emit("NOT")
	case BANG:
		g.expr(n.X)
		g.emit("LNOT")
	default:
		panic(internalErr("unexpected unary operator %s", n.Op))
	}
}

func (g *CodeGen) binary(n *BinaryExpr) {
	switch n.Op {
	case COMMA:
		g.expr(n.X)
		g.emit("POP")
		g.expr(n.Y)
		return
	case AND_AND, OR_OR:
		// short circuit: the first operand that decides jumps to short
		short, end := g.newLabel(), g.newLabel()
		branch, decided := "BRFALSE", 0
		if n.Op == OR_OR {
			branch, decided = "BRTRUE", 1
		}
		g.expr(n.X)
		g.emit(branch, short)
		g.expr(n.Y)
		g.emit(branch, short)
		g.emit("PUSHI", 1-decided)
		g.emit("BR", end)
		g.label(short)
		g.emit("PUSHI", decided)
		g.label(end)
		return
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		panic(internalErr("unexpected binary operator %s", n.Op))
	}
	g.expr(n.X)
	g.expr(n.Y)
	g.emit(op)
}

// arrayBase pushes the array x designates. Arrays held inside struct
// values are reached through their address so element writes land in the
// struct itself rather than in a loaded copy.
func (g *CodeGen) arrayBase(x Expr) {
	if _, ok := x.(*Ident); !ok && g.typeOf(x).Kind == KindArray && IsLValue(x, g.env) {
		g.addr(x)
		g.emit("LDIND")
		return
	}
	g.expr(x)
}

// addr pushes a reference to the storage e designates.
func (g *CodeGen) addr(e Expr) {
	switch n := e.(type) {
	case *Ident:
		g.addrOf(g.lookup(n))
	case *IndexExpr:
		g.arrayBase(n.X)
		g.expr(n.Index)
		g.emit("LDELEMA")
	case *MemberExpr:
		m, idx, err := resolveMember(n, g.env)
		if err != nil {
			panic(internalErr("%s: %v", n.Pos(), err))
		}
		if n.Arrow {
			g.expr(n.X)
		} else {
			g.addr(n.X)
		}
		g.emit("LDFLDA", idx)
		g.comment("%s", m.Name)
	case *UnaryExpr:
		if n.Op != STAR {
			panic(internalErr("%s: %s is not addressable", n.Pos(), n))
		}
		g.expr(n.X)
	default:
		panic(internalErr("%s: %s is not addressable", e.Pos(), e))
	}
}

// assign stores the right side and leaves the stored value on the stack.
// Plain variables use the slot instructions, anything else goes through a
// reference.
func (g *CodeGen) assign(n *AssignExpr) {
	op, compound := compoundOps[n.Op]
	if id, ok := n.X.(*Ident); ok {
		sym := g.lookup(id)
		if compound {
			g.load(sym)
			g.expr(n.Y)
			g.emit(binaryOps[op])
		} else {
			g.expr(n.Y)
		}
		g.emit("DUP")
		g.store(sym)
		return
	}

	g.addr(n.X)
	if compound {
		g.emit("DUP")
		g.emit("LDIND")
		g.expr(n.Y)
		g.emit(binaryOps[op])
	} else {
		g.expr(n.Y)
	}
	g.emit("DUPX1")
	g.emit("STIND")
}

// incDec emits ++ and --. A prefix form leaves the new value, a postfix
// form the old one.
func (g *CodeGen) incDec(x Expr, op Operator, prefix bool) {
	arith := "ADD"
	if op == DEC {
		arith = "SUB"
	}
	one := func() {
		if g.typeOf(x).Kind == KindFloat {
			g.emit("PUSHF", 1)
		} else {
			g.emit("PUSHI", 1)
		}
	}

	if id, ok := x.(*Ident); ok {
		sym := g.lookup(id)
		g.load(sym)
		if !prefix {
			g.emit("DUP")
		}
		one()
		g.emit(arith)
		if prefix {
			g.emit("DUP")
		}
		g.store(sym)
		return
	}

	g.addr(x)
	g.emit("DUP")
	g.emit("LDIND")
	if !prefix {
		g.emit("DUPX1")
	}
	one()
	g.emit(arith)
	if prefix {
		g.emit("DUPX1")
	}
	g.emit("STIND")
}
