package compiler

import (
	"fmt"
	"reflect"
	"strings"
)

// Render draws the syntax tree rooted at n, one node per line:
//
//	\-BinaryExpr +
//	  |-Const 2
//	  \-BinaryExpr *
//	    |-Const 3
//	    \-Const 4
func Render(n Node) string {
	var b strings.Builder
	renderNode(&b, n, "", true)
	return b.String()
}

func renderNode(b *strings.Builder, n Node, indent string, last bool) {
	b.WriteString(indent)
	if last {
		b.WriteString("\\-")
		indent += "  "
	} else {
		b.WriteString("|-")
		indent += "| "
	}
	label, kids := describeNode(n)
	b.WriteString(label)
	b.WriteByte('\n')
	for i, k := range kids {
		renderNode(b, k, indent, i == len(kids)-1)
	}
}

// describeNode returns the one-line label of n and its non-nil children.
func describeNode(n Node) (string, []Node) {
	var kids []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if !isNilNode(c) {
				kids = append(kids, c)
			}
		}
	}

	switch v := n.(type) {
	case *Ident:
		return "Ident " + v.Name, nil
	case *Const:
		return fmt.Sprintf("Const %s %s", v.Tok.Kind, v.Tok.Lexeme), nil
	case *StringLit:
		return fmt.Sprintf("String %q", v.Value), nil
	case *IndexExpr:
		add(v.X, v.Index)
		return "Index", kids
	case *CallExpr:
		add(v.Fn, v.Args)
		return "Call", kids
	case *MemberExpr:
		add(v.X)
		if v.Arrow {
			return "Member ->" + v.Name, kids
		}
		return "Member ." + v.Name, kids
	case *PostfixExpr:
		add(v.X)
		return "Postfix " + v.Op.String(), kids
	case *UnaryExpr:
		add(v.X)
		return "Unary " + v.Op.String(), kids
	case *CastExpr:
		add(v.Type, v.X)
		return "Cast", kids
	case *BinaryExpr:
		add(v.X, v.Y)
		return "BinaryExpr " + v.Op.String(), kids
	case *CondExpr:
		add(v.Cond, v.Then, v.Else)
		return "Conditional", kids
	case *AssignExpr:
		add(v.X, v.Y)
		return "Assign " + v.Op.String(), kids
	case *ExprList:
		for _, e := range v.Items {
			add(e)
		}
		return "Args", kids
	case *EmptyList:
		return "Empty", nil

	case *DeclSpecs:
		for _, s := range v.Items {
			add(s)
		}
		return "Specifiers", kids
	case *StorageSpec:
		return "Storage " + v.Tok.Lexeme, nil
	case *TypeSpec:
		return "Type " + v.Tok.Lexeme, nil
	case *Qualifier:
		return "Qualifier " + v.Tok.Lexeme, nil
	case *StructSpec:
		for _, m := range v.Members {
			add(m)
		}
		return "Struct " + v.Tag, kids
	case *Pointer:
		for _, q := range v.Quals {
			add(q)
		}
		if v.Next != nil {
			add(v.Next)
		}
		return "Pointer", kids
	case *Declarator:
		if v.Pointer != nil {
			add(v.Pointer)
		}
		add(v.Direct)
		return "Declarator", kids
	case *NameDecl:
		return "Name " + v.Name, nil
	case *ParenDecl:
		add(v.Inner)
		return "Paren", kids
	case *ArrayDecl:
		add(v.Left, v.Size)
		return "Array", kids
	case *FuncDecl:
		add(v.Left, v.Params)
		return "Function", kids
	case *ParamList:
		for _, p := range v.Items {
			add(p)
		}
		return "Params", kids
	case *ParamDecl:
		add(v.Specs)
		if v.Decl != nil {
			add(v.Decl)
		}
		return "Param", kids
	case *TypeName:
		add(v.Specs)
		if v.Decl != nil {
			add(v.Decl)
		}
		return "TypeName", kids

	case *ExprInit:
		add(v.X)
		return "Init", kids
	case *InitList:
		for _, i := range v.Items {
			add(i)
		}
		return "InitList", kids
	case *InitDeclarator:
		add(v.Decl, v.Init)
		return "InitDeclarator", kids
	case *Declaration:
		add(v.Specs)
		for _, d := range v.Inits {
			add(d)
		}
		return "Declaration", kids
	case *FunctionDef:
		add(v.Specs, v.Decl, v.Body)
		return "FunctionDef " + v.Decl.Name(), kids
	case *TranslationUnit:
		for _, d := range v.Decls {
			add(d)
		}
		return "TranslationUnit", kids

	case *ExprStmt:
		add(v.X)
		return "ExprStmt", kids
	case *CompoundStmt:
		for _, d := range v.Decls {
			add(d)
		}
		for _, s := range v.Stmts {
			add(s)
		}
		return "Compound", kids
	case *IfStmt:
		add(v.Cond, v.Then, v.Else)
		return "If", kids
	case *SwitchStmt:
		add(v.Tag, v.Body)
		return "Switch", kids
	case *WhileStmt:
		add(v.Cond, v.Body)
		if v.DoWhile {
			return "DoWhile", kids
		}
		return "While", kids
	case *ForStmt:
		add(v.Init, v.Cond, v.Post, v.Body)
		return "For", kids
	case *JumpStmt:
		return strings.ToUpper(v.Keyword.String()), nil
	case *ReturnStmt:
		add(v.X)
		return "Return", kids
	}
	return fmt.Sprintf("%T", n), nil
}

// isNilNode reports whether n is nil or a typed nil pointer held in the
// interface, which happens for optional children such as FunctionDef.Body.
func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
