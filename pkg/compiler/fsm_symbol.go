package compiler

// identMachine recognizes identifiers and turns reserved words into keywords.
type identMachine struct {
	fsm
}

func (m *identMachine) reset() { m.clear() }

func (m *identMachine) feed(r rune) {
	m.n++
	switch {
	case m.st == notStarted && isLetter(r):
		m.take(r)
	case m.st == notStarted:
		m.fail("the identifier must start with a letter or '_'")
	case isLetter(r) || isDigit(r):
		m.take(r)
	default:
		m.finish()
	}
}

func (m *identMachine) token() Token {
	text := m.lexeme()
	if kw, ok := keywords[text]; ok {
		return Token{Kind: KEYWORD, Lexeme: text, Value: text, Keyword: kw}
	}
	return Token{Kind: IDENTIFIER, Lexeme: text, Value: text}
}

// operatorMachine recognizes the longest punctuator spelling.
type operatorMachine struct {
	fsm
}

func (m *operatorMachine) reset() { m.clear() }

func (m *operatorMachine) feed(r rune) {
	m.n++
	next := string(m.text) + string(r)
	if _, ok := operators[next]; ok || operatorPrefixes[next] {
		m.take(r)
		return
	}
	if m.st == notStarted {
		m.fail("operator symbol not found")
		return
	}
	m.finish()
}

func (m *operatorMachine) token() Token {
	text := m.lexeme()
	return Token{Kind: OPERATOR, Lexeme: text, Value: text, Op: operators[text]}
}

// spaceMachine swallows runs of whitespace.
type spaceMachine struct {
	fsm
}

func (m *spaceMachine) reset() { m.clear() }

func (m *spaceMachine) feed(r rune) {
	m.n++
	switch {
	case isSpace(r):
		m.take(r)
	case m.st == notStarted:
		m.fail("space symbol not found")
	default:
		m.finish()
	}
}

func (m *spaceMachine) token() Token { return Token{Kind: NONE, Lexeme: m.lexeme()} }

type commentStage int

const (
	commentStart commentStage = iota
	commentSlash
	commentLine
	commentBlock
	commentStar
	commentClosed
)

// commentMachine swallows // line and /* block */ comments.
type commentMachine struct {
	fsm
	stage commentStage
}

func (m *commentMachine) reset() {
	m.clear()
	m.stage = commentStart
}

func (m *commentMachine) feed(r rune) {
	m.n++
	switch m.stage {
	case commentStart:
		if r != '/' {
			m.fail("comment must start with a '//' or '/*'")
			return
		}
		m.take(r)
		m.stage = commentSlash

	case commentSlash:
		switch r {
		case '/':
			m.take(r)
			m.stage = commentLine
		case '*':
			m.take(r)
			m.stage = commentBlock
		default:
			m.fail("after '/' must be a '/' or '*'")
		}

	case commentLine:
		if r == '\n' || r == 0 {
			m.finish()
			return
		}
		m.take(r)

	case commentBlock, commentStar:
		switch {
		case r == 0:
			m.fail("unterminated comment")
		case r == '/' && m.stage == commentStar:
			m.take(r)
			m.stage = commentClosed
		case r == '*':
			m.take(r)
			m.stage = commentStar
		default:
			m.take(r)
			m.stage = commentBlock
		}

	case commentClosed:
		m.finish()
	}
}

func (m *commentMachine) token() Token { return Token{Kind: NONE, Lexeme: m.lexeme()} }

// eofMachine matches the NUL the lexer feeds once the source is exhausted.
type eofMachine struct {
	fsm
}

func (m *eofMachine) reset() { m.clear() }

func (m *eofMachine) feed(r rune) {
	m.n++
	if r == 0 {
		m.finish()
		return
	}
	m.fail("EOF is not found")
}

func (m *eofMachine) token() Token { return Token{Kind: EOF} }
