package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is a user-facing compile error tagged with a source position.
// LexError, SyntaxError and SemanticError implement it.
type Diagnostic interface {
	error
	At() Position
	Category() string
}

// LexError reports a malformed token. Notes carries the message of every
// recognizer that gave up on the input.
type LexError struct {
	Pos   Position
	Msg   string
	Notes []string
	AtEOF bool // the literal or comment ran into the end of input
}

func (e *LexError) Error() string    { return render(e) }
func (e *LexError) At() Position     { return e.Pos }
func (e *LexError) Category() string { return "lexical" }

// Detail joins every recognizer note under the main message.
func (e *LexError) Detail() string {
	if len(e.Notes) == 0 {
		return e.Error()
	}
	return e.Error() + "\n\t" + strings.Join(e.Notes, "\n\t")
}

// SyntaxError reports a committed grammar production that did not see the
// token it required.
type SyntaxError struct {
	Pos   Position
	Msg   string
	AtEOF bool // the offending token was the end of input
}

func (e *SyntaxError) Error() string    { return render(e) }
func (e *SyntaxError) At() Position     { return e.Pos }
func (e *SyntaxError) Category() string { return "syntax" }

// SemanticError reports a type, scope or declaration violation.
type SemanticError struct {
	Pos Position
	Msg string
}

func (e *SemanticError) Error() string    { return render(e) }
func (e *SemanticError) At() Position     { return e.Pos }
func (e *SemanticError) Category() string { return "semantic" }

// InternalError marks a code generator defect: input that passed analysis
// but that generation does not know how to lower.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

func render(d Diagnostic) string {
	var msg string
	switch e := d.(type) {
	case *LexError:
		msg = e.Msg
	case *SyntaxError:
		msg = e.Msg
	case *SemanticError:
		msg = e.Msg
	}
	return fmt.Sprintf("%s: %s error: %s", d.At(), d.Category(), msg)
}

func semanticErr(pos Position, format string, args ...any) *SemanticError {
	return &SemanticError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func internalErr(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// IsIncomplete reports whether err was caused by the input ending too early,
// meaning more text could still turn it into a valid parse.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.AtEOF
	}
	var le *LexError
	if errors.As(err, &le) {
		return le.AtEOF
	}
	return false
}
