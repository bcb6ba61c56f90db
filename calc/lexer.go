package calc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	input string
	pos   int
	units UnitSet
	prev  TokenType
}

var (
	// Commands whose brace argument is taken verbatim as a unit.
	textCommands = map[string]bool{
		"text":   true,
		"textrm": true,
		"mathrm": true,
		"mbox":   true,
		"unit":   true,
		"si":     true,
	}

	// Spacing and sizing commands that carry no meaning for evaluation.
	// `\\` is the line-continuation marker of display blocks.
	spacingCommands = map[string]bool{
		" ":            true,
		",":            true,
		";":            true,
		":":            true,
		"!":            true,
		"\\":           true,
		"quad":         true,
		"qquad":        true,
		"left":         true,
		"right":        true,
		"displaystyle": true,
		"textstyle":    true,
		"big":          true,
		"Big":          true,
		"bigl":         true,
		"bigr":         true,
		"Bigl":         true,
		"Bigr":         true,
	}
)

func newLexer(input string, units UnitSet) *lexer {
	return &lexer{input: input, units: units, prev: tokenEOF}
}

// Lex splits one expression into tokens. The slice always ends with an EOF
// token; characters the lexer does not understand become ILLEGAL tokens so
// the parser can report them with their offset.
func Lex(input string, units UnitSet) []Token {
	l := newLexer(input, units)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens
		}
	}
}

func (l *lexer) NextToken() Token {
	l.skipSpacing()

	start := l.pos
	if l.pos >= len(l.input) {
		return l.emit(Token{Type: tokenEOF, Start: start, End: start})
	}

	r, w := l.peekRune()
	switch {
	case r == '\\':
		return l.emit(l.readCommand())
	case isDigit(r) || (r == '.' && isDigit(runeAt(l.input, l.pos+1))):
		return l.emit(l.readNumber())
	case isWordRune(r):
		return l.emit(l.readWord())
	case isCurrencySymbol(r):
		l.pos += w
		return l.emit(l.makeToken(tokenUnit, string(r), start))
	}

	l.pos += w
	var tt TokenType
	switch r {
	case '+':
		tt = tokenPlus
	case '-', '−':
		tt = tokenMinus
	case '*', '·', '×':
		tt = tokenAsterisk
	case '/':
		tt = tokenSlash
	case '^':
		tt = tokenCaret
	case ',':
		tt = tokenComma
	case '(':
		tt = tokenLParen
	case ')':
		tt = tokenRParen
	case '{':
		tt = tokenLBrace
	case '}':
		tt = tokenRBrace
	case '[':
		tt = tokenLBracket
	case ']':
		tt = tokenRBracket
	default:
		tt = tokenIllegal
	}
	return l.emit(l.makeToken(tt, string(r), start))
}

func (l *lexer) emit(tok Token) Token {
	l.prev = tok.Type
	return tok
}

func (l *lexer) makeToken(tt TokenType, literal string, start int) Token {
	return Token{Type: tt, Literal: literal, Start: start, End: l.pos}
}

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

func (l *lexer) isUnit(name string) bool {
	return l.units != nil && l.units.IsUnit(name)
}

func (l *lexer) skipSpacing() {
	for l.pos < len(l.input) {
		r, w := l.peekRune()
		if unicode.IsSpace(r) || r == '~' {
			l.pos += w
			continue
		}
		if r != '\\' {
			return
		}
		name, next := commandAt(l.input, l.pos)
		if !spacingCommands[name] {
			return
		}
		l.pos = next
	}
}

func (l *lexer) readCommand() Token {
	start := l.pos
	name, next := commandAt(l.input, l.pos)
	l.pos = next

	switch {
	case name == "%":
		return l.makeToken(tokenUnit, "%", start)
	case textCommands[name]:
		content, ok := l.readGroup()
		if !ok {
			return l.makeToken(tokenIllegal, l.input[start:l.pos], start)
		}
		return l.makeToken(tokenUnit, strings.TrimSpace(content), start)
	case name == "operatorname":
		content, ok := l.readGroup()
		if !ok {
			return l.makeToken(tokenIllegal, l.input[start:l.pos], start)
		}
		return l.makeToken(tokenFunc, strings.TrimSpace(content), start)
	case name == "frac" || name == "dfrac" || name == "tfrac":
		return l.makeToken(tokenFrac, name, start)
	case name == "sqrt":
		return l.makeToken(tokenSqrt, name, start)
	case name == "cdot" || name == "times" || name == "ast":
		return l.makeToken(tokenAsterisk, "*", start)
	case name == "div":
		return l.makeToken(tokenSlash, "/", start)
	case isBuiltinFunc(name):
		return l.makeToken(tokenFunc, name, start)
	}

	if _, ok := greekLetters[name]; ok {
		suffixed := l.readNameSuffix()
		tok := l.makeToken(tokenVariable, l.input[start:l.pos], start)
		tok.Single = !suffixed
		return tok
	}
	return l.makeToken(tokenIllegal, l.input[start:l.pos], start)
}

// readGroup consumes a brace group and returns its inner text.
func (l *lexer) readGroup() (string, bool) {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}
	if l.pos >= len(l.input) || l.input[l.pos] != '{' {
		return "", false
	}
	end, ok := matchBrace(l.input, l.pos)
	if !ok {
		l.pos = len(l.input)
		return "", false
	}
	content := l.input[l.pos+1 : end]
	l.pos = end + 1
	return content, true
}

func (l *lexer) readNumber() Token {
	start := l.pos
	for l.pos < len(l.input) && isDigit(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && isDigit(runeAt(l.input, l.pos+1)) {
		l.pos++
		for l.pos < len(l.input) && isDigit(rune(l.input[l.pos])) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		j := l.pos + 1
		if j < len(l.input) && (l.input[j] == '+' || l.input[j] == '-') {
			j++
		}
		if isDigit(runeAt(l.input, j)) {
			l.pos = j
			for l.pos < len(l.input) && isDigit(rune(l.input[l.pos])) {
				l.pos++
			}
		}
	}
	return l.makeToken(tokenNumber, l.input[start:l.pos], start)
}

func (l *lexer) readWord() Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, w := l.peekRune()
		if !isWordRune(r) {
			break
		}
		l.pos += w
	}
	word := l.input[start:l.pos]

	if l.readNameSuffix() {
		return l.makeToken(tokenVariable, l.input[start:l.pos], start)
	}
	if l.prev == tokenNumber && l.isUnit(word) {
		if tok, ok := l.readCompoundUnit(start); ok {
			return tok
		}
	}
	if utf8.RuneCountInString(word) == 1 {
		tok := l.makeToken(tokenVariable, word, start)
		tok.Single = true
		return tok
	}
	if l.isUnit(word) {
		return l.makeToken(tokenUnit, word, start)
	}
	return l.makeToken(tokenVariable, word, start)
}

// readCompoundUnit extends a unit that directly follows a number over
// `/unit` parts, so `9.81 m/s^2` yields a single `m/s^2` unit token.
func (l *lexer) readCompoundUnit(start int) (Token, bool) {
	save := l.pos
	matched := false
	for l.pos < len(l.input) && l.input[l.pos] == '/' {
		j := l.pos + 1
		k := j
		for k < len(l.input) {
			r, w := utf8.DecodeRuneInString(l.input[k:])
			if !isWordRune(r) {
				break
			}
			k += w
		}
		if k == j || !l.isUnit(l.input[j:k]) {
			break
		}
		l.pos = k
		matched = true
		l.readUnitExponent()
	}
	if !matched {
		l.pos = save
		return Token{}, false
	}
	return l.makeToken(tokenUnit, l.input[start:l.pos], start), true
}

func (l *lexer) readUnitExponent() {
	if l.pos >= len(l.input) || l.input[l.pos] != '^' {
		return
	}
	j := l.pos + 1
	braced := j < len(l.input) && l.input[j] == '{'
	if braced {
		j++
	}
	if j < len(l.input) && l.input[j] == '-' {
		j++
	}
	digits := j
	for j < len(l.input) && isDigit(rune(l.input[j])) {
		j++
	}
	if j == digits {
		return
	}
	if braced {
		if j >= len(l.input) || l.input[j] != '}' {
			return
		}
		j++
	}
	l.pos = j
}

// readNameSuffix consumes a subscript and prime-style superscript attached
// to a name (`v_{max}`, `F_{1,2}`, `x'`, `x^{*}`). It reports whether
// anything was consumed.
func (l *lexer) readNameSuffix() bool {
	start := l.pos
	if l.pos < len(l.input) && l.input[l.pos] == '_' {
		j := l.pos + 1
		switch {
		case j >= len(l.input):
		case l.input[j] == '{':
			if end, ok := matchBrace(l.input, j); ok {
				l.pos = end + 1
			}
		case l.input[j] == '\\':
			name, next := commandAt(l.input, j)
			if textCommands[name] && next < len(l.input) && l.input[next] == '{' {
				if end, ok := matchBrace(l.input, next); ok {
					l.pos = end + 1
				}
			} else if _, ok := greekLetters[name]; ok {
				l.pos = next
			}
		default:
			r, w := utf8.DecodeRuneInString(l.input[j:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				l.pos = j + w
			}
		}
	}
	for l.pos < len(l.input) && l.input[l.pos] == '\'' {
		l.pos++
	}
	for _, sup := range []string{`^{*}`, `^*`, `^{\prime}`, `^\prime`, `^{\ast}`} {
		if strings.HasPrefix(l.input[l.pos:], sup) {
			l.pos += len(sup)
			break
		}
	}
	return l.pos > start
}

// commandAt reads the control sequence that starts at s[i] == '\\'. It
// returns the command name without the backslash and the offset just past
// it. Non-letter commands (`\,`, `\\`) have a one-symbol name.
func commandAt(s string, i int) (string, int) {
	j := i + 1
	if j >= len(s) {
		return "", j
	}
	if isASCIILetter(s[j]) {
		k := j
		for k < len(s) && isASCIILetter(s[k]) {
			k++
		}
		return s[j:k], k
	}
	_, w := utf8.DecodeRuneInString(s[j:])
	return s[j : j+w], j + w
}

// matchBrace returns the offset of the brace closing s[open]. Escaped
// braces (`\{`, `\}`) do not count.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func runeAt(s string, i int) rune {
	if i < 0 || i >= len(s) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || r == '°'
}

func isCurrencySymbol(r rune) bool {
	switch r {
	case '€', '£', '¥':
		return true
	}
	return false
}
