package calc

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenNumber   TokenType = "NUMBER"
	tokenVariable TokenType = "VARIABLE"
	tokenUnit     TokenType = "UNIT"

	tokenPlus     TokenType = "+"
	tokenMinus    TokenType = "-"
	tokenAsterisk TokenType = "*"
	tokenSlash    TokenType = "/"
	tokenCaret    TokenType = "^"

	tokenComma    TokenType = ","
	tokenLParen   TokenType = "("
	tokenRParen   TokenType = ")"
	tokenLBrace   TokenType = "{"
	tokenRBrace   TokenType = "}"
	tokenLBracket TokenType = "["
	tokenRBracket TokenType = "]"

	tokenFrac TokenType = "FRAC"
	tokenSqrt TokenType = "SQRT"
	tokenFunc TokenType = "FUNC"
)

// Token captures lexical information for the parser. Start and End are
// byte offsets into the expression source.
type Token struct {
	Type    TokenType
	Literal string
	Start   int
	End     int

	// Single marks a one-symbol variable token (`m`, `\Omega`). Such a
	// token may still turn out to be a unit; the parser decides when it
	// sees where the token sits.
	Single bool
}

// UnitSet reports whether a name is a recognised unit symbol.
type UnitSet interface {
	IsUnit(name string) bool
}
