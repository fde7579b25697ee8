package compiler

import (
	"fmt"

	"stackcc/pkg/asm"
	"stackcc/pkg/vm"
)

// Output holds every stage result of one compilation.
type Output struct {
	Unit    *TranslationUnit
	Env     *Environment
	Program *Program
	Listing string
	Image   *vm.Image
}

// Compile runs the whole pipeline over src: parse, analyze, generate and
// assemble. Diagnostics are returned unwrapped so callers can errors.As them
// into a Diagnostic.
func Compile(src string, opts Options) (*Output, error) {
	unit, err := ParseTranslationUnit(src)
	if err != nil {
		return nil, err
	}

	env := NewEnvironment()
	if err := Analyze(unit, env); err != nil {
		return nil, err
	}

	prog, err := Generate(unit, env, opts)
	if err != nil {
		return nil, err
	}

	out := &Output{Unit: unit, Env: env, Program: prog, Listing: prog.String()}
	out.Image, err = asm.Assemble(out.Listing)
	if err != nil {
		return out, fmt.Errorf("assembly error: %w", err)
	}
	return out, nil
}
