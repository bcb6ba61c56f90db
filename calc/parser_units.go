package calc

import (
	"fmt"
	"strings"
)

// attachUnit binds a unit written directly after a value. Single letters
// count as units only here, and only when the registry knows them. The unit
// may continue over `/` and `*` into a compound unit and take integer
// exponents: `3 kg*m^2`, `(a + b)\,\text{km}/\text{h}`, `2 m/s^{-1}`.
func (p *parser) attachUnit(value Expr) Expr {
	if value == nil || p.err != nil || !p.isUnitCandidate(p.peekToken) {
		return value
	}
	p.nextToken()
	specPos := p.curToken.Start
	var spec strings.Builder
	spec.WriteString(p.unitPart(p.curToken))
	p.readUnitExponent(&spec)

	for {
		op := p.peekToken
		if op.Type != tokenSlash && op.Type != tokenAsterisk {
			break
		}
		next := p.peekAt(2)
		if !p.continuesUnit(op, next) {
			break
		}
		p.nextToken()
		p.nextToken()
		if op.Type == tokenSlash {
			spec.WriteByte('/')
		} else {
			spec.WriteByte('*')
		}
		spec.WriteString(p.unitPart(next))
		p.readUnitExponent(&spec)
	}
	return &UnitExpr{Value: value, Spec: spec.String(), Position: value.Pos(), SpecPos: specPos}
}

func (p *parser) isUnitCandidate(tok Token) bool {
	switch tok.Type {
	case tokenUnit:
		return true
	case tokenVariable:
		return tok.Single && p.scope != nil && p.scope.IsUnit(normalizeName(tok.Literal))
	default:
		return false
	}
}

// continuesUnit decides whether `op next` extends the unit being attached.
// Multi-letter unit tokens always do. A single letter only does when it is
// written flush against the operator (`m/s`), so `100 m / t` divides by the
// variable t.
func (p *parser) continuesUnit(op, next Token) bool {
	if next.Type == tokenUnit {
		return true
	}
	if !p.isUnitCandidate(next) {
		return false
	}
	return op.Start == p.curToken.End && next.Start == op.End
}

// unitPart returns the spec text of one unit token. Compound text such as
// `\text{m/s}` is parenthesized so it composes safely.
func (p *parser) unitPart(tok Token) string {
	if tok.Type == tokenVariable {
		return normalizeName(tok.Literal)
	}
	lit := tok.Literal
	if strings.ContainsAny(lit, "/* ") {
		return "(" + lit + ")"
	}
	return lit
}

// readUnitExponent consumes `^2`, `^-1` or `^{-2}` after a unit.
func (p *parser) readUnitExponent(spec *strings.Builder) {
	if p.peekToken.Type != tokenCaret {
		return
	}
	i := 2
	braced := p.peekAt(i).Type == tokenLBrace
	if braced {
		i++
	}
	sign := ""
	if p.peekAt(i).Type == tokenMinus {
		sign = "-"
		i++
	}
	num := p.peekAt(i)
	if num.Type != tokenNumber || !isInteger(num.Literal) {
		return
	}
	i++
	if braced {
		if p.peekAt(i).Type != tokenRBrace {
			return
		}
		i++
	}
	for n := 1; n < i; n++ {
		p.nextToken()
	}
	fmt.Fprintf(spec, "^%s%s", sign, num.Literal)
}

func isInteger(lit string) bool {
	if lit == "" {
		return false
	}
	for i := 0; i < len(lit); i++ {
		if !isDigit(rune(lit[i])) {
			return false
		}
	}
	return true
}

// definitionTarget is the left-hand side of a calculation: a name and, for
// function definitions, its parameters.
type definitionTarget struct {
	Name     string
	Display  string
	Params   []string
	UnitName bool // the name lexes as a multi-letter unit
	Offset   int
}

// parseDefinitionTarget reads `name` or `name(p1, p2)`.
func parseDefinitionTarget(source string, units UnitSet) (definitionTarget, error) {
	tokens := Lex(source, units)
	fail := func(tok Token, msg string) (definitionTarget, error) {
		return definitionTarget{}, &ParseError{Offset: tok.Start, Msg: msg, Source: source}
	}

	first := tokens[0]
	if first.Type != tokenVariable && first.Type != tokenUnit {
		if first.Type == tokenEOF {
			return fail(first, "missing name before the operator")
		}
		return fail(first, fmt.Sprintf("expected a name, got %s", tokenLabel(first)))
	}
	target := definitionTarget{
		Name:     normalizeName(first.Literal),
		Display:  strings.TrimSpace(source),
		UnitName: first.Type == tokenUnit,
		Offset:   first.Start,
	}

	i := 1
	if tokens[i].Type == tokenLParen {
		target.Params = []string{}
		i++
		for tokens[i].Type != tokenRParen {
			tok := tokens[i]
			if tok.Type != tokenVariable {
				if tok.Type == tokenEOF {
					return fail(tok, "unterminated parameter list")
				}
				return fail(tok, fmt.Sprintf("expected a parameter name, got %s", tokenLabel(tok)))
			}
			target.Params = append(target.Params, normalizeName(tok.Literal))
			i++
			switch tokens[i].Type {
			case tokenComma:
				i++
			case tokenRParen:
			default:
				return fail(tokens[i], fmt.Sprintf("expected ',' or ')', got %s", tokenLabel(tokens[i])))
			}
		}
		i++
		if len(target.Params) == 0 {
			return fail(tokens[i-1], "a function needs at least one parameter")
		}
	}
	if tokens[i].Type != tokenEOF {
		return fail(tokens[i], fmt.Sprintf("unexpected %s after the name", tokenLabel(tokens[i])))
	}
	return target, nil
}

// parseUnitName reads the left-hand side of `===`: `\text{widget}`,
// `widget` or a single symbol.
func parseUnitName(source string) (string, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "", &ParseError{Offset: 0, Msg: "missing unit name before ===", Source: source}
	}
	name := cleanUnitSpec(trimmed)
	if name == "" || strings.ContainsAny(name, " */^()[]") || isDigit(rune(name[0])) {
		return "", &ParseError{Offset: 0, Msg: fmt.Sprintf("%q is not a valid unit name", trimmed), Source: source}
	}
	return name, nil
}
