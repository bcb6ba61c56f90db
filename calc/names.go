package calc

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var greekLetters = map[string]string{
	"alpha":      "α",
	"beta":       "β",
	"gamma":      "γ",
	"delta":      "δ",
	"epsilon":    "ϵ",
	"varepsilon": "ε",
	"zeta":       "ζ",
	"eta":        "η",
	"theta":      "θ",
	"vartheta":   "ϑ",
	"iota":       "ι",
	"kappa":      "κ",
	"lambda":     "λ",
	"mu":         "μ",
	"nu":         "ν",
	"xi":         "ξ",
	"pi":         "π",
	"rho":        "ρ",
	"sigma":      "σ",
	"tau":        "τ",
	"upsilon":    "υ",
	"phi":        "ϕ",
	"varphi":     "φ",
	"chi":        "χ",
	"psi":        "ψ",
	"omega":      "ω",
	"Gamma":      "Γ",
	"Delta":      "Δ",
	"Theta":      "Θ",
	"Lambda":     "Λ",
	"Xi":         "Ξ",
	"Pi":         "Π",
	"Sigma":      "Σ",
	"Upsilon":    "Υ",
	"Phi":        "Φ",
	"Psi":        "Ψ",
	"Omega":      "Ω",
	"hbar":       "ħ",
	"ell":        "ℓ",
}

// normalizeName maps the spelling of a name in the document to the key the
// symbol table uses: Greek escapes become letters, formatting commands and
// grouping braces disappear, and the result is NFC-normalized.
//
//	v_{max}        -> v_max
//	F_{1,2}        -> F_1,2
//	\alpha_{0}     -> α_0
//	x^{\prime}     -> x'
//	\text{kWh}     -> kWh
func normalizeName(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); {
		c := raw[i]
		switch c {
		case '{', '}', ' ', '\t', '\n':
			i++
			continue
		case '\\':
			name, next := commandAt(raw, i)
			switch {
			case greekLetters[name] != "":
				b.WriteString(greekLetters[name])
			case textCommands[name], name == "mathit", name == "mathbf", name == " ", name == ",":
			case name == "prime":
				b.WriteByte('\'')
			case name == "ast":
				b.WriteByte('*')
			default:
				b.WriteString(raw[i:next])
			}
			i = next
			continue
		}
		r, w := utf8.DecodeRuneInString(raw[i:])
		b.WriteRune(r)
		i += w
	}
	out := strings.ReplaceAll(b.String(), "^'", "'")
	return norm.NFC.String(out)
}

// isSingleSymbol reports whether a normalized name is one character long.
func isSingleSymbol(name string) bool {
	return utf8.RuneCountInString(name) == 1
}
