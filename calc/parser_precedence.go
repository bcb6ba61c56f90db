package calc

const (
	lowestPrec = iota
	precSum
	precProduct
	precPrefix
	precPower
	precCall
)

var precedences = map[TokenType]int{
	tokenPlus:     precSum,
	tokenMinus:    precSum,
	tokenAsterisk: precProduct,
	tokenSlash:    precProduct,
	tokenCaret:    precPower,
	tokenLParen:   precCall,
	tokenLBracket: precCall,
}

// isOperandStart reports whether a token can begin an operand. Two operands
// in a row mean a missing operator; no multiplication is implied.
func isOperandStart(tt TokenType) bool {
	switch tt {
	case tokenNumber, tokenVariable, tokenUnit, tokenFunc, tokenFrac, tokenSqrt, tokenLBrace:
		return true
	default:
		return false
	}
}
