package compiler

import "strconv"

type intStage int

const (
	intStart intStage = iota
	intZero
	intOctal
	intDecimal
	intHexStart
	intHex
	intL
	intU
	intUL
)

// intMachine recognizes decimal, octal and hex integers with u/l suffixes.
// The digits are re-parsed after every character so an overflow fails at
// the digit that caused it.
type intMachine struct {
	fsm
	stage  intStage
	base   int
	digits []rune
	suffix IntSuffix
	value  int64
}

func (m *intMachine) reset() {
	m.clear()
	m.stage = intStart
	m.base = 10
	m.digits = m.digits[:0]
	m.suffix = IntPlain
	m.value = 0
}

func (m *intMachine) digit(r rune, base int, next intStage) {
	m.take(r)
	m.base = base
	m.stage = next
	m.digits = append(m.digits, r)
	v, err := strconv.ParseInt(string(m.digits), base, 64)
	if err != nil {
		m.fail("literal too large")
		return
	}
	m.value = v
}

// suffixOrEnd handles the character following a complete run of digits.
func (m *intMachine) suffixOrEnd(r rune) {
	switch r {
	case 'l', 'L':
		m.take(r)
		m.stage = intL
		m.suffix = IntLong
	case 'u', 'U':
		m.take(r)
		m.stage = intU
		m.suffix = IntUnsigned
	default:
		m.finish()
	}
}

func (m *intMachine) feed(r rune) {
	m.n++
	switch m.stage {
	case intStart:
		switch {
		case r == '0':
			m.take(r)
			m.stage = intZero
		case isDigit(r):
			m.digit(r, 10, intDecimal)
		default:
			m.fail("int must start with a number")
		}

	case intZero:
		switch {
		case r == 'x' || r == 'X':
			m.take(r)
			m.stage = intHexStart
		case isOctal(r):
			m.digit(r, 8, intOctal)
		case r == '8' || r == '9':
			m.fail("invalid int")
		default:
			m.suffixOrEnd(r)
		}

	case intOctal:
		switch {
		case isOctal(r):
			m.digit(r, 8, intOctal)
		case r == '8' || r == '9':
			m.fail("invalid int")
		default:
			m.suffixOrEnd(r)
		}

	case intDecimal:
		if isDigit(r) {
			m.digit(r, 10, intDecimal)
			return
		}
		m.suffixOrEnd(r)

	case intHexStart:
		if isHex(r) {
			m.digit(r, 16, intHex)
			return
		}
		m.fail("invalid int")

	case intHex:
		if isHex(r) {
			m.digit(r, 16, intHex)
			return
		}
		m.suffixOrEnd(r)

	case intL:
		if r == 'u' || r == 'U' {
			m.take(r)
			m.stage = intUL
			m.suffix = IntUnsignedLong
			return
		}
		m.finish()

	case intU:
		if r == 'l' || r == 'L' {
			m.take(r)
			m.stage = intUL
			m.suffix = IntUnsignedLong
			return
		}
		m.finish()

	case intUL:
		m.finish()
	}
}

func (m *intMachine) token() Token {
	return Token{Kind: INTEGER, Lexeme: m.lexeme(), Value: m.value, IntSuffix: m.suffix}
}

type floatStage int

const (
	floatStart floatStage = iota
	floatDigits
	floatLeadingDot
	floatDigitsDot
	floatFraction
	floatExp
	floatExpSign
	floatExpDigits
	floatSuffixed
)

// floatMachine recognizes d., d.d, .d and exponent forms with f/l suffixes.
type floatMachine struct {
	fsm
	stage  floatStage
	suffix FloatSuffix
	value  float64
}

func (m *floatMachine) reset() {
	m.clear()
	m.stage = floatStart
	m.suffix = FloatDouble
	m.value = 0
}

func (m *floatMachine) suffixOrEnd(r rune) {
	switch r {
	case 'f', 'F':
		m.take(r)
		m.stage = floatSuffixed
		m.suffix = FloatSingle
	case 'l', 'L':
		m.take(r)
		m.stage = floatSuffixed
		m.suffix = FloatLong
	default:
		m.end()
	}
}

func (m *floatMachine) end() {
	num := m.text
	if m.suffix != FloatDouble {
		num = num[:len(num)-1]
	}
	v, err := strconv.ParseFloat(string(num), 64)
	if err != nil {
		m.fail("float literal out of range")
		return
	}
	m.value = v
	m.finish()
}

func (m *floatMachine) feed(r rune) {
	m.n++
	switch m.stage {
	case floatStart:
		switch {
		case isDigit(r):
			m.take(r)
			m.stage = floatDigits
		case r == '.':
			m.take(r)
			m.stage = floatLeadingDot
		default:
			m.fail("float must start with a number or '.'")
		}

	case floatDigits:
		switch {
		case isDigit(r):
			m.take(r)
		case r == '.':
			m.take(r)
			m.stage = floatDigitsDot
		case r == 'e' || r == 'E':
			m.take(r)
			m.stage = floatExp
		default:
			// a plain integer; the int machine reports it
			m.fail("")
		}

	case floatLeadingDot:
		if isDigit(r) {
			m.take(r)
			m.stage = floatFraction
			return
		}
		m.fail("after . must be a number")

	case floatDigitsDot, floatFraction:
		switch {
		case isDigit(r):
			m.take(r)
			m.stage = floatFraction
		case r == 'e' || r == 'E':
			m.take(r)
			m.stage = floatExp
		default:
			m.suffixOrEnd(r)
		}

	case floatExp:
		switch {
		case r == '+' || r == '-':
			m.take(r)
			m.stage = floatExpSign
		case isDigit(r):
			m.take(r)
			m.stage = floatExpDigits
		default:
			m.fail("after 'e' must be a number or sign")
		}

	case floatExpSign:
		if isDigit(r) {
			m.take(r)
			m.stage = floatExpDigits
			return
		}
		m.fail("after sign must be a number")

	case floatExpDigits:
		if isDigit(r) {
			m.take(r)
			return
		}
		m.suffixOrEnd(r)

	case floatSuffixed:
		m.end()
	}
}

func (m *floatMachine) token() Token {
	return Token{Kind: FLOAT, Lexeme: m.lexeme(), Value: m.value, FloatSuffix: m.suffix}
}

type quoteStage int

const (
	quoteStart quoteStage = iota
	quoteWide
	quoteBody
	quoteClosed
)

// charMachine recognizes 'c' and L'c' with the usual escapes.
type charMachine struct {
	fsm
	stage quoteStage
	dec   escapeDecoder
}

func (m *charMachine) reset() {
	m.clear()
	m.stage = quoteStart
	m.dec.reset()
}

func (m *charMachine) feed(r rune) {
	m.n++
	switch m.stage {
	case quoteStart:
		switch r {
		case 'L':
			m.take(r)
			m.stage = quoteWide
		case '\'':
			m.take(r)
			m.stage = quoteBody
		default:
			m.fail("opening quote is not found")
		}

	case quoteWide:
		if r == '\'' {
			m.take(r)
			m.stage = quoteBody
			return
		}
		m.fail("after L, opening quote is not found")

	case quoteBody:
		if !m.dec.pending() && len(m.dec.out) == 1 {
			m.close(r)
			return
		}
		taken, msg := m.dec.feed(r)
		if msg != "" {
			m.fail(msg)
			return
		}
		if taken {
			m.take(r)
			return
		}
		if len(m.dec.out) == 1 {
			m.close(r)
			return
		}
		if r == '\'' || r == '\n' || r == 0 {
			m.fail("char is empty or contain invalid symbol")
			return
		}
		m.dec.out = append(m.dec.out, r)
		m.take(r)

	case quoteClosed:
		m.finish()
	}
}

func (m *charMachine) close(r rune) {
	if r != '\'' {
		m.fail("closing quote is not found")
		return
	}
	m.take(r)
	m.stage = quoteClosed
}

func (m *charMachine) token() Token {
	var v int64
	if len(m.dec.out) > 0 {
		v = int64(m.dec.out[0])
	}
	return Token{Kind: CHAR, Lexeme: m.lexeme(), Value: v}
}

// stringMachine recognizes "text" and L"text" with the usual escapes.
type stringMachine struct {
	fsm
	stage quoteStage
	dec   escapeDecoder
}

func (m *stringMachine) reset() {
	m.clear()
	m.stage = quoteStart
	m.dec.reset()
}

func (m *stringMachine) feed(r rune) {
	m.n++
	switch m.stage {
	case quoteStart:
		switch r {
		case 'L':
			m.take(r)
			m.stage = quoteWide
		case '"':
			m.take(r)
			m.stage = quoteBody
		default:
			m.fail("opening quote is not found")
		}

	case quoteWide:
		if r == '"' {
			m.take(r)
			m.stage = quoteBody
			return
		}
		m.fail("after L, opening quote is not found")

	case quoteBody:
		taken, msg := m.dec.feed(r)
		if msg != "" {
			m.fail(msg)
			return
		}
		if taken {
			m.take(r)
			return
		}
		switch r {
		case '"':
			m.take(r)
			m.stage = quoteClosed
		case '\n', 0:
			m.fail("closing quote is not found")
		default:
			m.dec.out = append(m.dec.out, r)
			m.take(r)
		}

	case quoteClosed:
		m.finish()
	}
}

func (m *stringMachine) token() Token {
	return Token{Kind: STRING, Lexeme: m.lexeme(), Value: string(m.dec.out)}
}
