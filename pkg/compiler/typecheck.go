package compiler

// TypeOf computes the type of e, validating every operand on the way. It
// never changes env. Functions may only appear as the callee of a call.
func TypeOf(e Expr, env *Environment) (*Type, error) {
	switch n := e.(type) {
	case *Ident:
		sym, err := lookupVar(n, env)
		if err != nil {
			return nil, err
		}
		return sym.Type, nil

	case *Const:
		if n.Tok.Kind == FLOAT {
			return FloatType(), nil
		}
		return IntType(), nil

	case *StringLit:
		return StringType(), nil

	case *IndexExpr:
		x, err := TypeOf(n.X, env)
		if err != nil {
			return nil, err
		}
		if x.Kind != KindArray && x.Kind != KindPointer {
			return nil, semanticErr(n.Pos(), "subscripted value is neither array nor pointer")
		}
		idx, err := TypeOf(n.Index, env)
		if err != nil {
			return nil, err
		}
		if !idx.IsInt() {
			return nil, semanticErr(n.Index.Pos(), "array subscript is not an integer")
		}
		return x.Elem, nil

	case *CallExpr:
		return typeOfCall(n, env)

	case *MemberExpr:
		m, _, err := resolveMember(n, env)
		if err != nil {
			return nil, err
		}
		return m.Type, nil

	case *PostfixExpr:
		return typeOfIncDec(n.Pos(), n.Op, n.X, env)

	case *UnaryExpr:
		return typeOfUnary(n, env)

	case *CastExpr:
		return typeOfCast(n, env)

	case *BinaryExpr:
		return typeOfBinary(n, env)

	case *CondExpr:
		cond, err := TypeOf(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if !cond.Testable() {
			return nil, semanticErr(n.Cond.Pos(), "used %s where scalar is required", cond)
		}
		then, err := TypeOf(n.Then, env)
		if err != nil {
			return nil, err
		}
		els, err := TypeOf(n.Else, env)
		if err != nil {
			return nil, err
		}
		if !then.Equal(els) {
			return nil, semanticErr(n.Pos(), "type mismatch in conditional expression (%s and %s)", then, els)
		}
		return then, nil

	case *AssignExpr:
		return typeOfAssign(n, env)
	}
	return nil, internalErr("TypeOf: unexpected expression %T", e)
}

// IsLValue reports whether e designates storage: a variable, an array
// element, a member of an lvalue or of a struct pointer, or a dereference
// of an lvalue.
func IsLValue(e Expr, env *Environment) bool {
	switch n := e.(type) {
	case *Ident:
		sym, ok := env.Lookup(n.Name)
		return ok && sym.Kind == SymVariable
	case *IndexExpr:
		return true
	case *MemberExpr:
		return n.Arrow || IsLValue(n.X, env)
	case *UnaryExpr:
		return n.Op == STAR && IsLValue(n.X, env)
	}
	return false
}

func lookupVar(n *Ident, env *Environment) (*Symbol, error) {
	sym, ok := env.Lookup(n.Name)
	if !ok {
		return nil, semanticErr(n.Pos(), "symbol '%s' is not defined", n.Name)
	}
	if sym.Kind == SymFunction {
		return nil, semanticErr(n.Pos(), "function '%s' used as a value", n.Name)
	}
	return sym, nil
}

// callee resolves the function named by a call.
func callee(n *CallExpr, env *Environment) (*Symbol, error) {
	id, ok := n.Fn.(*Ident)
	if !ok {
		return nil, semanticErr(n.Fn.Pos(), "called object is not a function")
	}
	sym, ok := env.Lookup(id.Name)
	if !ok {
		return nil, semanticErr(id.Pos(), "symbol '%s' is not defined", id.Name)
	}
	if sym.Kind != SymFunction {
		return nil, semanticErr(id.Pos(), "called object '%s' is not a function", id.Name)
	}
	return sym, nil
}

func typeOfCall(n *CallExpr, env *Environment) (*Type, error) {
	fn, err := callee(n, env)
	if err != nil {
		return nil, err
	}
	params := fn.Type.ParamTypes()
	args := n.Arguments()
	if len(args) < len(params) {
		return nil, semanticErr(n.Pos(), "too few arguments to function '%s'", fn.Name)
	}
	if len(args) > len(params) {
		return nil, semanticErr(n.Pos(), "too many arguments to function '%s'", fn.Name)
	}
	for i, arg := range args {
		t, err := TypeOf(arg, env)
		if err != nil {
			return nil, err
		}
		if !t.Equal(params[i]) {
			return nil, semanticErr(arg.Pos(), "incompatible type for argument %d of '%s': expected %s, got %s",
				i+1, fn.Name, params[i], t)
		}
	}
	return fn.Type.Returns, nil
}

// resolveMember finds the member selected by n and the struct it belongs to.
func resolveMember(n *MemberExpr, env *Environment) (*Symbol, int, error) {
	x, err := TypeOf(n.X, env)
	if err != nil {
		return nil, 0, err
	}
	st := x
	if n.Arrow {
		if !x.IsPointer() || !x.Elem.IsStruct() {
			return nil, 0, semanticErr(n.Pos(), "invalid type argument of '->' (have %s)", x)
		}
		st = x.Elem
	} else if !x.IsStruct() {
		return nil, 0, semanticErr(n.Pos(), "request for member '%s' in something not a structure", n.Name)
	}
	m, idx := st.Member(n.Name)
	if m == nil {
		return nil, 0, semanticErr(n.Pos(), "%s has no member named '%s'", st, n.Name)
	}
	return m, idx, nil
}

// checkModifiable reports an error unless x is an lvalue that may be
// written to.
func checkModifiable(x Expr, t *Type, env *Environment, what string) error {
	if !IsLValue(x, env) {
		return semanticErr(x.Pos(), "lvalue required as %s", what)
	}
	if t.Kind == KindArray {
		return semanticErr(x.Pos(), "assignment to expression with array type")
	}
	if t.Const {
		return semanticErr(x.Pos(), "assignment of read-only location '%s'", x)
	}
	return nil
}

func typeOfIncDec(pos Position, op Operator, x Expr, env *Environment) (*Type, error) {
	t, err := TypeOf(x, env)
	if err != nil {
		return nil, err
	}
	what := "increment operand"
	if op == DEC {
		what = "decrement operand"
	}
	if err := checkModifiable(x, t, env, what); err != nil {
		return nil, err
	}
	if !t.IsScalar() {
		return nil, semanticErr(pos, "wrong type argument to %s (have %s)", what, t)
	}
	return t, nil
}

func typeOfUnary(n *UnaryExpr, env *Environment) (*Type, error) {
	if n.Op == INC || n.Op == DEC {
		return typeOfIncDec(n.Pos(), n.Op, n.X, env)
	}
	x, err := TypeOf(n.X, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case AMP:
		if !IsLValue(n.X, env) {
			return nil, semanticErr(n.Pos(), "lvalue required as unary '&' operand")
		}
		return PointerTo(x), nil
	case STAR:
		if !x.IsPointer() {
			return nil, semanticErr(n.Pos(), "invalid type argument of unary '*' (have %s)", x)
		}
		return x.Elem, nil
	case PLUS, MINUS:
		if !x.IsScalar() {
			return nil, semanticErr(n.Pos(), "wrong type argument to unary %s (have %s)", unaryName(n.Op), x)
		}
		return x, nil
	case TILDE:
		if !x.IsInt() {
			return nil, semanticErr(n.Pos(), "wrong type argument to bit-complement (have %s)", x)
		}
		return x, nil
	case BANG:
		if !x.Testable() {
			return nil, semanticErr(n.Pos(), "wrong type argument to unary exclamation mark (have %s)", x)
		}
		return IntType(), nil
	}
	return nil, internalErr("unexpected unary operator %s", n.Op)
}

func unaryName(op Operator) string {
	if op == MINUS {
		return "minus"
	}
	return "plus"
}

func typeOfCast(n *CastExpr, env *Environment) (*Type, error) {
	to, err := resolveTypeName(n.Type, env)
	if err != nil {
		return nil, err
	}
	from, err := TypeOf(n.X, env)
	if err != nil {
		return nil, err
	}
	switch {
	case to.IsVoid(),
		to.Equal(from),
		to.IsScalar() && from.IsScalar(),
		to.IsPointer() && from.IsPointer():
		return to, nil
	}
	return nil, semanticErr(n.Pos(), "cannot cast %s to %s", from, to)
}

// binaryResult applies the operand rule of a binary operator (or of the
// operator behind a compound assignment) to already typed operands.
func binaryResult(op Operator, pos Position, x, y *Type) (*Type, error) {
	invalid := func() (*Type, error) {
		return nil, semanticErr(pos, "invalid operands to binary %s (have %s and %s)", op, x, y)
	}
	switch op {
	case PLUS, MINUS, STAR, SLASH:
		if !x.IsScalar() || !x.Equal(y) {
			return invalid()
		}
		return x, nil
	case PERCENT, AMP, PIPE, CARET, SHL, SHR:
		if !x.IsInt() || !y.IsInt() {
			return invalid()
		}
		return x, nil
	case LESS, LESS_EQ, GREATER, GREATER_EQ, EQUALS, NOT_EQ:
		if !x.IsScalar() || !x.Equal(y) {
			return invalid()
		}
		return IntType(), nil
	case AND_AND, OR_OR:
		if !x.Testable() || !y.Testable() {
			return invalid()
		}
		return IntType(), nil
	}
	return nil, internalErr("unexpected binary operator %s", op)
}

func typeOfBinary(n *BinaryExpr, env *Environment) (*Type, error) {
	x, err := TypeOf(n.X, env)
	if err != nil {
		return nil, err
	}
	y, err := TypeOf(n.Y, env)
	if err != nil {
		return nil, err
	}
	if n.Op == COMMA {
		return y, nil
	}
	return binaryResult(n.Op, n.Pos(), x, y)
}

// compoundOps maps a compound assignment to its arithmetic operator.
var compoundOps = map[Operator]Operator{
	PLUS_ASSIGN:    PLUS,
	MINUS_ASSIGN:   MINUS,
	STAR_ASSIGN:    STAR,
	SLASH_ASSIGN:   SLASH,
	PERCENT_ASSIGN: PERCENT,
	AMP_ASSIGN:     AMP,
	PIPE_ASSIGN:    PIPE,
	CARET_ASSIGN:   CARET,
	SHL_ASSIGN:     SHL,
	SHR_ASSIGN:     SHR,
}

func typeOfAssign(n *AssignExpr, env *Environment) (*Type, error) {
	x, err := TypeOf(n.X, env)
	if err != nil {
		return nil, err
	}
	if err := checkModifiable(n.X, x, env, "left operand of assignment"); err != nil {
		return nil, err
	}
	y, err := TypeOf(n.Y, env)
	if err != nil {
		return nil, err
	}
	if op, ok := compoundOps[n.Op]; ok {
		if _, err := binaryResult(op, n.Pos(), x, y); err != nil {
			return nil, err
		}
	}
	if !x.Equal(y) {
		return nil, semanticErr(n.Y.Pos(), "cannot assign %s to %s", y, x)
	}
	return x, nil
}
