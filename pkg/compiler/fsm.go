package compiler

// machineState is the coarse state every recognizer reports to the lexer.
type machineState int

const (
	notStarted machineState = iota
	running
	matched // recognized a lexeme; the last character fed is not part of it
	failed
)

// machine recognizes one lexeme family. The lexer feeds every live machine
// the same character and decides with maximal munch which one wins.
type machine interface {
	feed(r rune)
	state() machineState
	token() Token
	err() string
	consumed() int
	reset()
}

// fsm holds the bookkeeping shared by all recognizers.
type fsm struct {
	st   machineState
	text []rune // characters accepted into the lexeme so far
	msg  string
	n    int // characters fed, including the one that ended the machine
}

func (f *fsm) state() machineState { return f.st }
func (f *fsm) err() string         { return f.msg }
func (f *fsm) consumed() int       { return f.n }
func (f *fsm) lexeme() string      { return string(f.text) }

func (f *fsm) clear() {
	f.st = notStarted
	f.text = f.text[:0]
	f.msg = ""
	f.n = 0
}

func (f *fsm) take(r rune) {
	f.text = append(f.text, r)
	f.st = running
}

func (f *fsm) fail(msg string) { f.st = failed; f.msg = msg }
func (f *fsm) finish()         { f.st = matched }

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isOctal(r rune) bool  { return r >= '0' && r <= '7' }
func isLetter(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func digitValue(r rune) rune {
	switch {
	case r >= '0' && r <= '9':
		return r - '0'
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10
	}
	return 0
}

var simpleEscapes = map[rune]rune{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\'': '\'',
	'"':  '"',
	'\\': '\\',
	'?':  '?',
}

type escapeMode int

const (
	escNone escapeMode = iota
	escStart
	escOctal
	escHexStart
	escHex
)

// escapeDecoder decodes the body of a char or string literal one character
// at a time. Octal escapes take up to three digits and hex escapes up to two.
type escapeDecoder struct {
	mode escapeMode
	val  rune
	n    int
	out  []rune
}

func (d *escapeDecoder) reset() {
	d.mode = escNone
	d.val = 0
	d.n = 0
	d.out = d.out[:0]
}

func (d *escapeDecoder) pending() bool { return d.mode != escNone }

func (d *escapeDecoder) flush() {
	d.out = append(d.out, d.val)
	d.mode = escNone
	d.val = 0
	d.n = 0
}

// feed reports whether r belonged to an escape sequence. When it returns
// false the caller handles r itself; a numeric escape that r terminated has
// already been appended to out.
func (d *escapeDecoder) feed(r rune) (bool, string) {
	switch d.mode {
	case escNone:
		if r == '\\' {
			d.mode = escStart
			return true, ""
		}
		return false, ""

	case escStart:
		if c, ok := simpleEscapes[r]; ok {
			d.out = append(d.out, c)
			d.mode = escNone
			return true, ""
		}
		if isOctal(r) {
			d.mode = escOctal
			d.val = r - '0'
			d.n = 1
			return true, ""
		}
		if r == 'x' || r == 'X' {
			d.mode = escHexStart
			return true, ""
		}
		return false, "invalid escape sequences"

	case escOctal:
		if isOctal(r) {
			d.val = d.val*8 + (r - '0')
			d.n++
			if d.n == 3 {
				d.flush()
			}
			return true, ""
		}
		d.flush()
		return false, ""

	case escHexStart:
		if isHex(r) {
			d.mode = escHex
			d.val = digitValue(r)
			d.n = 1
			return true, ""
		}
		return false, "after \\x must be hexadecimal number"

	case escHex:
		if isHex(r) {
			d.val = d.val*16 + digitValue(r)
			d.flush()
			return true, ""
		}
		d.flush()
		return false, ""
	}
	return false, ""
}
