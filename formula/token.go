package formula

import (
	"strings"
	"unicode"
)

// tokenKind classifies lexed tokens.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokIllegal
)

// token is one lexed unit of a formula.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer scans a formula into tokens. It is deliberately forgiving:
// anything it cannot classify becomes tokIllegal and the parser turns
// that into a recoverable parse error.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() token {
	l.skipSpace()

	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case ch == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}
	case ch == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}
	case ch == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}
	case ch == '"' || ch == '\'':
		return l.scanString(ch)
	case isDigit(ch):
		return l.scanNumber()
	case isIdentStart(ch):
		return l.scanIdent()
	default:
		return l.scanOperator()
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// scanString scans a quoted string literal. An unterminated string is
// reported as illegal.
func (l *lexer) scanString(quote byte) token {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			sb.WriteByte(l.input[l.pos])
			l.pos++
			continue
		}
		if ch == quote {
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{kind: tokIllegal, text: l.input[start:], pos: start}
}

func (l *lexer) scanNumber() token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) {
			l.pos++
			continue
		}
		if ch == '.' && !seenDot && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokNumber, text: l.input[start:l.pos], pos: start}
}

// scanIdent scans an identifier, absorbing dotted relationship paths
// such as Account.Owner.Name into a single token.
func (l *lexer) scanIdent() token {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isIdentPart(ch) {
			l.pos++
			continue
		}
		if ch == '.' && l.pos+1 < len(l.input) && isIdentStart(l.input[l.pos+1]) {
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}
}

func (l *lexer) scanOperator() token {
	start := l.pos
	two := ""
	if l.pos+2 <= len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}

	switch two {
	case "==", "<>", "!=", "<=", ">=", "&&", "||":
		l.pos += 2
		return token{kind: tokOp, text: two, pos: start}
	}

	switch l.input[l.pos] {
	case '=', '<', '>', '+', '-', '*', '/', '&', '!':
		l.pos++
		return token{kind: tokOp, text: l.input[start:l.pos], pos: start}
	}

	l.pos++
	return token{kind: tokIllegal, text: l.input[start:l.pos], pos: start}
}

// tokenize scans the whole input. Used for support scanning, where a
// parse failure must not prevent function-name extraction.
func tokenize(input string) []token {
	l := newLexer(input)
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(rune(ch))
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
