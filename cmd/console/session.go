package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"stackcc/pkg/compiler"
	"stackcc/pkg/config"
	"stackcc/pkg/vm"
)

// session accumulates the external declarations typed so far and keeps an
// analyzed environment of them for :type and :decl.
type session struct {
	cfg    *config.Config
	out    io.Writer
	source strings.Builder
	env    *compiler.Environment
}

func newSession(cfg *config.Config, out io.Writer) *session {
	return &session{cfg: cfg, out: out, env: compiler.NewEnvironment()}
}

// incomplete reports whether src could still grow into a valid unit.
func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	_, err := compiler.ParseTranslationUnit(src)
	return err != nil && compiler.IsIncomplete(err)
}

// eval handles one complete input. It returns quit=true for :quit.
func (s *session) eval(input string) (quit bool, err error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return false, nil
	}
	if !strings.HasPrefix(text, ":") {
		return false, s.declare(input)
	}

	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true, nil
	case ":tokens":
		tokens, err := compiler.Lex(arg)
		for _, tok := range tokens {
			fmt.Fprintln(s.out, tok)
		}
		return false, err
	case ":tree":
		node, err := parseAny(arg)
		if err != nil {
			return false, err
		}
		fmt.Fprint(s.out, compiler.Render(node))
		return false, nil
	case ":type":
		e, err := compiler.ParseExpression(arg)
		if err != nil {
			return false, err
		}
		t, err := compiler.TypeOf(e, s.env)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, t)
		return false, nil
	case ":decl":
		fmt.Fprint(s.out, s.env.Globals())
		return false, nil
	case ":run":
		return false, s.run()
	case ":reset":
		s.source.Reset()
		s.env = compiler.NewEnvironment()
		return false, nil
	case ":help":
		fmt.Fprintln(s.out, "declarations are added to the session; commands:")
		fmt.Fprintln(s.out, "  :tokens <text>  :tree <text>  :type <expr>  :decl  :run  :reset  :quit")
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s, type :help", cmd)
}

// parseAny tries the input as an expression, a statement and a unit, in
// that order, and returns the first tree that parses.
func parseAny(src string) (compiler.Node, error) {
	if e, err := compiler.ParseExpression(src); err == nil {
		return e, nil
	}
	if st, err := compiler.ParseStatement(src); err == nil {
		return st, nil
	}
	return compiler.ParseTranslationUnit(src)
}

// declare analyzes src as more external declarations. Nothing is kept when
// any of them fails.
func (s *session) declare(src string) error {
	unit, err := compiler.ParseTranslationUnit(src)
	if err != nil {
		return err
	}
	for _, d := range unit.Decls {
		if err := compiler.AnalyzeDecl(d, s.env); err != nil {
			s.rebuild()
			return err
		}
	}
	s.source.WriteString(src)
	s.source.WriteString("\n")
	return nil
}

// rebuild replays the accepted source into a fresh environment, undoing a
// partially analyzed input.
func (s *session) rebuild() {
	s.env = compiler.NewEnvironment()
	unit, err := compiler.ParseTranslationUnit(s.source.String())
	if err != nil {
		return
	}
	_ = compiler.Analyze(unit, s.env)
}

func (s *session) run() error {
	out, err := compiler.Compile(s.source.String(), compiler.Options{
		Entry: s.cfg.Compiler.Entry,
		Prune: s.cfg.Compiler.Prune,
	})
	if err != nil {
		return err
	}
	m := vm.New(out.Image)
	m.Output = s.out
	m.MaxSteps = s.cfg.VM.MaxSteps
	m.StackLimit = s.cfg.VM.StackLimit
	if err := m.Run(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "=> %s\n", m.Result)
	return nil
}
