package calc

import (
	"fmt"
	"strconv"
)

// Scope answers the two questions the parser cannot settle from the text
// alone: whether a name is a unit and whether it is a defined function.
type Scope interface {
	UnitSet
	IsFunction(name string) bool
}

type (
	prefixParseFn func() Expr
	infixParseFn  func(Expr) Expr
)

type parser struct {
	source string
	scope  Scope
	tokens []Token
	idx    int

	curToken  Token
	peekToken Token

	err *ParseError

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn
}

func newParser(source string, scope Scope) *parser {
	p := &parser{source: source, scope: scope, tokens: Lex(source, scope), idx: -2}

	p.prefixFns = map[TokenType]prefixParseFn{
		tokenNumber:   p.parseNumberLiteral,
		tokenVariable: p.parseVariable,
		tokenUnit:     p.parseVariable,
		tokenLParen:   p.parseGroupedExpression,
		tokenLBrace:   p.parseBraceGroup,
		tokenLBracket: p.parseArrayLiteral,
		tokenMinus:    p.parsePrefixExpression,
		tokenPlus:     p.parsePrefixExpression,
		tokenFrac:     p.parseFrac,
		tokenSqrt:     p.parseSqrt,
		tokenFunc:     p.parseBuiltinCall,
	}
	p.infixFns = map[TokenType]infixParseFn{
		tokenPlus:     p.parseInfixExpression,
		tokenMinus:    p.parseInfixExpression,
		tokenAsterisk: p.parseInfixExpression,
		tokenSlash:    p.parseInfixExpression,
		tokenCaret:    p.parsePowerExpression,
		tokenLParen:   p.parseCallExpression,
		tokenLBracket: p.parseIndexExpression,
	}

	p.nextToken()
	p.nextToken()
	return p
}

// ParseExpr parses one calculation expression. Names are resolved against
// scope to tell units from variables and calls from grouping.
func ParseExpr(source string, scope Scope) (Expr, error) {
	p := newParser(source, scope)
	expr := p.parseExpression(lowestPrec)
	if p.err == nil && p.peekToken.Type != tokenEOF {
		p.reportTrailing(expr)
	}
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

func (p *parser) nextToken() {
	p.curToken = p.peekToken
	p.idx++
	p.peekToken = p.tokenAt(p.idx + 1)
}

func (p *parser) tokenAt(i int) Token {
	if i < 0 {
		return Token{Type: tokenEOF}
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// peekAt looks n tokens past the current one; peekAt(1) is peekToken.
func (p *parser) peekAt(n int) Token {
	return p.tokenAt(p.idx + n)
}

func (p *parser) expectPeek(tt TokenType, what string) bool {
	if p.peekToken.Type == tt {
		p.nextToken()
		return true
	}
	if p.peekToken.Type == tokenEOF {
		p.addError(p.peekToken.Start, "unterminated "+what)
		return false
	}
	p.errorExpected(p.peekToken, fmt.Sprintf("'%s'", tt))
	return false
}

func (p *parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return lowestPrec
}

func (p *parser) parseExpression(precedence int) Expr {
	if p.err != nil {
		return nil
	}
	prefix := p.prefixFns[p.curToken.Type]
	if prefix == nil {
		p.errorUnexpected(p.curToken)
		return nil
	}
	left := prefix()

	for p.err == nil && p.peekToken.Type != tokenEOF && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	if p.err == nil && isOperandStart(p.peekToken.Type) {
		p.errorMissingOperator(left, p.peekToken)
	}
	return left
}

func (p *parser) reportTrailing(left Expr) {
	switch p.peekToken.Type {
	case tokenRParen, tokenRBrace, tokenRBracket:
		p.addError(p.peekToken.Start, fmt.Sprintf("unmatched '%s'", p.peekToken.Type))
	case tokenIllegal:
		p.errorUnexpected(p.peekToken)
	default:
		p.errorMissingOperator(left, p.peekToken)
	}
}

func (p *parser) parseNumberLiteral() Expr {
	tok := p.curToken
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.addError(tok.Start, fmt.Sprintf("invalid number %q", tok.Literal))
		return nil
	}
	return p.attachUnit(&NumberLit{Value: value, Literal: tok.Literal, Position: tok.Start})
}

func (p *parser) parseVariable() Expr {
	tok := p.curToken
	return &VarRef{Name: normalizeName(tok.Literal), Raw: tok.Literal, Position: tok.Start}
}

func (p *parser) parseGroupedExpression() Expr {
	p.nextToken()
	expr := p.parseExpression(lowestPrec)
	if !p.expectPeek(tokenRParen, "parenthesis") {
		return nil
	}
	return p.attachUnit(expr)
}

func (p *parser) parseBraceGroup() Expr {
	p.nextToken()
	expr := p.parseExpression(lowestPrec)
	if !p.expectPeek(tokenRBrace, "brace group") {
		return nil
	}
	return p.attachUnit(expr)
}

func (p *parser) parseArrayLiteral() Expr {
	pos := p.curToken.Start
	elems := p.parseExpressionList(tokenRBracket, "bracket")
	if p.err != nil {
		return nil
	}
	return &ArrayLit{Elements: elems, Position: pos}
}

// parseExpressionList reads comma-separated expressions up to the closing
// token. The current token is the opening delimiter.
func (p *parser) parseExpressionList(end TokenType, what string) []Expr {
	list := []Expr{}
	if p.peekToken.Type == end {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(lowestPrec))
	for p.err == nil && p.peekToken.Type == tokenComma {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(lowestPrec))
	}
	if !p.expectPeek(end, what) {
		return nil
	}
	return list
}

func (p *parser) parsePrefixExpression() Expr {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(precPrefix)
	if right == nil {
		return nil
	}
	return &UnaryExpr{Operator: tok.Type, Right: right, Position: tok.Start}
}

func (p *parser) parseInfixExpression(left Expr) Expr {
	tok := p.curToken
	precedence := precedences[tok.Type]
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Left: left, Operator: tok.Type, Right: right, Position: tok.Start}
}

// parsePowerExpression binds to the right: a^b^c is a^(b^c). A braced
// exponent is a plain group and never takes a unit.
func (p *parser) parsePowerExpression(left Expr) Expr {
	tok := p.curToken
	p.nextToken()
	var right Expr
	if p.curToken.Type == tokenLBrace {
		p.nextToken()
		right = p.parseExpression(lowestPrec)
		if !p.expectPeek(tokenRBrace, "exponent") {
			return nil
		}
	} else {
		right = p.parseExpression(precPower - 1)
	}
	if right == nil {
		return nil
	}
	return &BinaryExpr{Left: left, Operator: tokenCaret, Right: right, Position: tok.Start}
}

func (p *parser) parseFrac() Expr {
	pos := p.curToken.Start
	num := p.parseRequiredGroup("numerator")
	den := p.parseRequiredGroup("denominator")
	if p.err != nil {
		return nil
	}
	return p.attachUnit(&FracExpr{Num: num, Den: den, Position: pos})
}

// parseRequiredGroup reads the `{…}` argument of a LaTeX command.
func (p *parser) parseRequiredGroup(what string) Expr {
	if p.err != nil {
		return nil
	}
	if !p.expectPeek(tokenLBrace, what) {
		return nil
	}
	p.nextToken()
	expr := p.parseExpression(lowestPrec)
	if !p.expectPeek(tokenRBrace, what) {
		return nil
	}
	return expr
}

func (p *parser) parseSqrt() Expr {
	pos := p.curToken.Start
	var index Expr
	if p.peekToken.Type == tokenLBracket {
		p.nextToken()
		p.nextToken()
		index = p.parseExpression(lowestPrec)
		if !p.expectPeek(tokenRBracket, "root index") {
			return nil
		}
	}
	radicand := p.parseRequiredGroup("radicand")
	if p.err != nil {
		return nil
	}
	return p.attachUnit(&SqrtExpr{Index: index, Radicand: radicand, Position: pos})
}

// parseBuiltinCall handles `\sin(x)`, `\sin{x}`, `\sin x` and
// `\operatorname{f}(x)`. A bare argument binds tighter than `*` and looser
// than `^`, so `\sin x^2` is sin(x^2).
func (p *parser) parseBuiltinCall() Expr {
	tok := p.curToken
	call := &CallExpr{Name: tok.Literal, Builtin: isBuiltinFunc(tok.Literal), Position: tok.Start}
	if !call.Builtin {
		call.Name = normalizeName(tok.Literal)
		if p.scope == nil || !p.scope.IsFunction(call.Name) {
			p.addError(tok.Start, fmt.Sprintf("unknown function %q", tok.Literal))
			return nil
		}
	}

	switch p.peekToken.Type {
	case tokenLParen:
		p.nextToken()
		call.Args = p.parseExpressionList(tokenRParen, "argument list")
	case tokenLBrace:
		call.Args = []Expr{p.parseRequiredGroup("argument")}
	case tokenEOF:
		p.addError(p.peekToken.Start, fmt.Sprintf("\\%s needs an argument", tok.Literal))
	default:
		p.nextToken()
		call.Args = []Expr{p.parseExpression(precProduct)}
	}
	if p.err != nil {
		return nil
	}
	return call
}

func (p *parser) parseCallExpression(left Expr) Expr {
	ref, ok := left.(*VarRef)
	if !ok {
		p.errorMissingOperator(left, p.curToken)
		return nil
	}
	if p.scope == nil || !p.scope.IsFunction(ref.Name) {
		p.addError(p.curToken.Start, fmt.Sprintf("%q is not a function; write an explicit operator", ref.Raw))
		return nil
	}
	args := p.parseExpressionList(tokenRParen, "argument list")
	if p.err != nil {
		return nil
	}
	return &CallExpr{Name: ref.Name, Args: args, Position: ref.Position}
}

func (p *parser) parseIndexExpression(left Expr) Expr {
	pos := p.curToken.Start
	p.nextToken()
	index := p.parseExpression(lowestPrec)
	if !p.expectPeek(tokenRBracket, "index bracket") {
		return nil
	}
	return &IndexExpr{Array: left, Index: index, Position: pos}
}
