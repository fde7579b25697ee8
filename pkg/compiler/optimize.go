package compiler

// eliminateDeadFunctions returns the names of the functions reachable from
// entry or from a global initializer. Generate skips every other definition.
func eliminateDeadFunctions(unit *TranslationUnit, env *Environment, entry string) map[string]bool {
	funcs := make(map[string]*FunctionDef)
	for _, d := range unit.Decls {
		if f, ok := d.(*FunctionDef); ok {
			funcs[f.Decl.Name()] = f
		}
	}

	reachable := make(map[string]bool)
	var worklist []string
	addReachable := func(name string) {
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}
	addReachable(entry)

	// int x = init_x(); runs before the entry point
	for _, sym := range env.Globals().Symbols() {
		if sym.Kind == SymVariable && sym.Init != nil {
			for call := range findCallsInit(sym.Init, map[string]bool{}) {
				addReachable(call)
			}
		}
	}

	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]

		f, ok := funcs[curr]
		if !ok {
			// builtin
			continue
		}
		calls := make(map[string]bool)
		for _, d := range f.Body.Decls {
			for _, id := range d.Inits {
				findCallsInit(id.Init, calls)
			}
		}
		findCallsStmt(f.Body, calls)
		for call := range calls {
			addReachable(call)
		}
	}
	return reachable
}

func findCallsInit(init Initializer, calls map[string]bool) map[string]bool {
	switch n := init.(type) {
	case *ExprInit:
		findCallsExpr(n.X, calls)
	case *InitList:
		for _, item := range n.Items {
			findCallsInit(item, calls)
		}
	}
	return calls
}

// findCallsExpr records the name of every function called within e.
func findCallsExpr(e Expr, calls map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *CallExpr:
		if id, ok := n.Fn.(*Ident); ok {
			calls[id.Name] = true
		}
		for _, arg := range n.Arguments() {
			findCallsExpr(arg, calls)
		}
	case *BinaryExpr:
		findCallsExpr(n.X, calls)
		findCallsExpr(n.Y, calls)
	case *AssignExpr:
		findCallsExpr(n.X, calls)
		findCallsExpr(n.Y, calls)
	case *CondExpr:
		findCallsExpr(n.Cond, calls)
		findCallsExpr(n.Then, calls)
		findCallsExpr(n.Else, calls)
	case *UnaryExpr:
		findCallsExpr(n.X, calls)
	case *PostfixExpr:
		findCallsExpr(n.X, calls)
	case *CastExpr:
		findCallsExpr(n.X, calls)
	case *IndexExpr:
		findCallsExpr(n.X, calls)
		findCallsExpr(n.Index, calls)
	case *MemberExpr:
		findCallsExpr(n.X, calls)
	case *Ident, *Const, *StringLit:
	}
}

// findCallsStmt records the name of every function called within s.
func findCallsStmt(s Stmt, calls map[string]bool) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ExprStmt:
		findCallsExpr(n.X, calls)
	case *ReturnStmt:
		findCallsExpr(n.X, calls)
	case *CompoundStmt:
		for _, child := range n.Stmts {
			findCallsStmt(child, calls)
		}
	case *IfStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Then, calls)
		findCallsStmt(n.Else, calls)
	case *SwitchStmt:
		findCallsExpr(n.Tag, calls)
		findCallsStmt(n.Body, calls)
	case *WhileStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Body, calls)
	case *ForStmt:
		findCallsExpr(n.Init, calls)
		findCallsExpr(n.Cond, calls)
		findCallsExpr(n.Post, calls)
		findCallsStmt(n.Body, calls)
	case *JumpStmt:
	}
}
