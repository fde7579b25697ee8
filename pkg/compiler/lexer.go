package compiler

import "fmt"

// Lexer turns source text into tokens on demand. Every call to Next runs the
// recognizer battery in lock-step over the input until no machine is still
// running, then keeps the first machine (in priority order) that matched.
//
// The lexer cannot be rewound; once EOF is produced it is returned forever.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to feed
	line int
	col  int

	machines []machine // priority order
	live     []machine
	eof      *Token
}

func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  []rune(src),
		line: 1,
		col:  1,
		machines: []machine{
			&operatorMachine{},
			&floatMachine{},
			&stringMachine{},
			&charMachine{},
			&intMachine{},
			&identMachine{},
			&eofMachine{},
			&spaceMachine{},
			&commentMachine{},
		},
	}
}

// peek returns the rune at the current position, or NUL past the end.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

// Next returns the next significant token. Whitespace and comments are
// skipped; a malformed token yields a *LexError.
func (l *Lexer) Next() (Token, error) {
	if l.eof != nil {
		return *l.eof, nil
	}
	for {
		tok, err := l.scan()
		if err != nil {
			return Token{}, err
		}
		switch tok.Kind {
		case NONE:
			continue
		case EOF:
			l.eof = &tok
		}
		return tok, nil
	}
}

// scan recognizes exactly one lexeme, significant or not.
func (l *Lexer) scan() (Token, error) {
	start := Position{Line: l.line, Col: l.col}
	startIdx := l.pos
	for _, m := range l.machines {
		m.reset()
	}
	live := append(l.live[:0], l.machines...)

	for {
		r := l.peek()
		anyRunning := false
		for _, m := range live {
			m.feed(r)
			if m.state() == running {
				anyRunning = true
			}
		}

		if !anyRunning {
			// r is the lookahead that ended the lexeme; it is read again
			// for the next token.
			for _, m := range live {
				if m.state() == matched {
					tok := m.token()
					tok.Pos = start
					l.live = live
					return tok, nil
				}
			}
			l.live = live
			return Token{}, l.failure(start, startIdx)
		}

		// A machine that matched while another still runs saw a shorter
		// lexeme than the one being built.
		kept := live[:0]
		for _, m := range live {
			if m.state() == running {
				kept = append(kept, m)
			}
		}
		live = kept
		l.advance()
	}
}

func (l *Lexer) failure(start Position, startIdx int) *LexError {
	e := &LexError{Pos: start, AtEOF: l.pos >= len(l.src)}
	var best machine
	for _, m := range l.machines {
		if m.err() == "" {
			continue
		}
		e.Notes = append(e.Notes, m.err())
		if best == nil || m.consumed() > best.consumed() {
			best = m
		}
	}
	if best == nil || best.consumed() <= 1 {
		c := rune(0)
		if startIdx < len(l.src) {
			c = l.src[startIdx]
		}
		e.Msg = fmt.Sprintf("unexpected character %q", c)
		return e
	}
	e.Msg = best.err()
	return e
}

// Lex drains a fresh Lexer over src. The returned slice ends with the EOF token.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}
