package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Instr is one line of a function body: an instruction with an optional
// operand, or a label definition when Label is set.
type Instr struct {
	Op      string
	Arg     string
	Label   string
	Comment string
}

func (in Instr) String() string {
	if in.Label != "" {
		return in.Label + ":"
	}
	s := "\t" + in.Op
	if in.Arg != "" {
		s += " " + in.Arg
	}
	if in.Comment != "" {
		s += "\t; " + in.Comment
	}
	return s
}

// Slot is a named storage cell and its type code (see typeCode).
type Slot struct {
	Name string
	Type string
}

type Function struct {
	Name    string
	Returns string
	Params  []Slot
	Locals  []Slot
	Code    []Instr
}

type StructLayout struct {
	Name   string
	Fields []Slot
}

// Program is the output of code generation: the struct layouts, the string
// pool, the globals and one instruction stream per function. String renders
// it as the listing that package asm reads.
type Program struct {
	Structs   []*StructLayout
	Strings   []string
	Globals   []Slot
	Functions []*Function
	Init      string // runs before Entry when set
	Entry     string
}

// Function returns the function called name, or nil.
func (p *Program) Function(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (p *Program) String() string {
	var b strings.Builder
	b.WriteString("; stackcc listing\n\n")

	for _, s := range p.Structs {
		fmt.Fprintf(&b, ".struct %s\n", s.Name)
		for _, f := range s.Fields {
			fmt.Fprintf(&b, ".field %s %s\n", f.Name, f.Type)
		}
		b.WriteString(".end\n\n")
	}

	for i, s := range p.Strings {
		fmt.Fprintf(&b, ".string %d %s\n", i, strconv.Quote(s))
	}
	for _, g := range p.Globals {
		fmt.Fprintf(&b, ".global %s %s\n", g.Name, g.Type)
	}
	if len(p.Strings)+len(p.Globals) > 0 {
		b.WriteString("\n")
	}

	for _, f := range p.Functions {
		fmt.Fprintf(&b, ".func %s %s\n", f.Name, f.Returns)
		for _, s := range f.Params {
			fmt.Fprintf(&b, ".param %s %s\n", s.Name, s.Type)
		}
		for _, s := range f.Locals {
			fmt.Fprintf(&b, ".local %s %s\n", s.Name, s.Type)
		}
		for _, in := range f.Code {
			b.WriteString(in.String())
			b.WriteString("\n")
		}
		b.WriteString(".end\n\n")
	}

	if p.Init != "" {
		fmt.Fprintf(&b, ".init %s\n", p.Init)
	}
	fmt.Fprintf(&b, ".entry %s\n", p.Entry)
	return b.String()
}
