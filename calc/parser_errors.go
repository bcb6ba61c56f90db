package calc

import (
	"fmt"
	"strings"
)

// ParseError reports where an expression stopped making sense. Offset is a
// byte offset into Source.
type ParseError struct {
	Offset int
	Msg    string
	Source string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at offset %d: %s", e.Offset, e.Msg)
	if frame := CodeFrame(e.Source, e.Offset); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func (p *parser) errorExpected(tok Token, expected string) {
	p.addError(tok.Start, fmt.Sprintf("expected %s, got %s", expected, tokenLabel(tok)))
}

func (p *parser) errorUnexpected(tok Token) {
	switch tok.Type {
	case tokenEOF:
		p.addError(tok.Start, "expected operand, got end of expression")
	case tokenIllegal:
		p.addError(tok.Start, fmt.Sprintf("unexpected character %q", tok.Literal))
	default:
		p.addError(tok.Start, fmt.Sprintf("expected operand, got %s", tokenLabel(tok)))
	}
}

func (p *parser) errorMissingOperator(left Expr, next Token) {
	p.addError(next.Start, fmt.Sprintf("missing operator between %q and %s", p.text(left, next), tokenLabel(next)))
}

// addError keeps the first error; later ones are usually fallout.
func (p *parser) addError(offset int, msg string) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{Offset: offset, Msg: msg, Source: p.source}
}

// text returns the source between the start of an expression and the token
// that follows it.
func (p *parser) text(left Expr, next Token) string {
	start := 0
	if left != nil {
		start = left.Pos()
	}
	if start < 0 || start > next.Start || next.Start > len(p.source) {
		return ""
	}
	return strings.TrimSpace(p.source[start:next.Start])
}

func tokenLabel(tok Token) string {
	switch tok.Type {
	case tokenIllegal:
		return fmt.Sprintf("invalid token %q", tok.Literal)
	case tokenEOF:
		return "end of expression"
	case tokenNumber:
		return fmt.Sprintf("number %s", tok.Literal)
	case tokenVariable:
		return fmt.Sprintf("name %q", tok.Literal)
	case tokenUnit:
		return fmt.Sprintf("unit %q", tok.Literal)
	case tokenFunc:
		return fmt.Sprintf("function \\%s", tok.Literal)
	case tokenFrac:
		return "\\frac"
	case tokenSqrt:
		return "\\sqrt"
	default:
		return fmt.Sprintf("'%s'", tok.Type)
	}
}
