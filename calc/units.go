package calc

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Unit maps a symbol onto a dimension and the factor that converts one of
// it into coherent SI magnitude.
type Unit struct {
	Name    string    `json:"name"`
	Dim     Dimension `json:"-"`
	Scale   float64   `json:"scale"`
	Builtin bool      `json:"builtin"`
}

// UnitRegistry holds the units known to one run: the built-in table plus
// whatever the document declares with `===`. Registries are never shared
// between runs.
type UnitRegistry struct {
	units map[string]*Unit
}

// NewUnitRegistry returns a registry preloaded with the built-in units.
func NewUnitRegistry() *UnitRegistry {
	r := &UnitRegistry{units: make(map[string]*Unit, len(builtinUnits)*4)}
	for _, def := range builtinUnits {
		r.addBuiltin(def.name, def.dim, def.scale)
		for _, p := range def.prefixes {
			for _, spelling := range prefixSpellings[p] {
				r.addBuiltin(spelling+def.name, def.dim, def.scale*prefixScales[p])
			}
		}
	}
	return r
}

func (r *UnitRegistry) addBuiltin(name string, dim Dimension, scale float64) {
	if _, exists := r.units[name]; exists {
		return
	}
	r.units[name] = &Unit{Name: name, Dim: dim, Scale: scale, Builtin: true}
}

func (r *UnitRegistry) IsUnit(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.units[name]
	return ok
}

// Lookup finds a single unit symbol.
func (r *UnitRegistry) Lookup(name string) (Unit, bool) {
	u, ok := r.units[name]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// IsBuiltin reports whether name is one of the built-in unit symbols.
func (r *UnitRegistry) IsBuiltin(name string) bool {
	u, ok := r.units[name]
	return ok && u.Builtin
}

// Register adds a document-declared unit. Built-in symbols cannot be
// replaced; a custom unit may be redeclared.
func (r *UnitRegistry) Register(u Unit) error {
	if u.Name == "" {
		return newDiagnostic(KindParseError, -1, "unit definition needs a name")
	}
	if existing, ok := r.units[u.Name]; ok && existing.Builtin {
		return newDiagnostic(KindRedefinitionOfBuiltinUnit, -1, "%q is a built-in unit and cannot be redefined", u.Name)
	}
	if u.Scale == 0 {
		return newDiagnostic(KindDomainError, -1, "unit %q would have a zero scale", u.Name)
	}
	u.Builtin = false
	r.units[u.Name] = &u
	return nil
}

// Units lists every registered unit ordered by name.
func (r *UnitRegistry) Units() []Unit {
	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse resolves a unit specification such as "km/h", "kg*m^2/s^2",
// "J/(kg K)" or "\text{kWh}" into a single unit with combined dimension
// and scale. The returned unit carries the specification as its name.
func (r *UnitRegistry) Parse(spec string) (Unit, error) {
	clean := cleanUnitSpec(spec)
	if clean == "" {
		return Unit{}, newDiagnostic(KindUnknownUnit, -1, "empty unit")
	}
	p := &unitSpecParser{src: clean, reg: r}
	u, err := p.parseProduct()
	if err != nil {
		return Unit{}, err
	}
	if p.pos < len(p.src) {
		return Unit{}, newDiagnostic(KindUnknownUnit, -1, "cannot read unit %q", spec)
	}
	u.Name = clean
	return u, nil
}

// cleanUnitSpec drops LaTeX wrappers so `\text{km}/\text{h}` and `km/h`
// read the same.
func cleanUnitSpec(spec string) string {
	var b strings.Builder
	for i := 0; i < len(spec); {
		c := spec[i]
		switch {
		case c == '\\':
			name, next := commandAt(spec, i)
			switch {
			case textCommands[name]:
				if next < len(spec) && spec[next] == '{' {
					if end, ok := matchBrace(spec, next); ok {
						b.WriteString(strings.TrimSpace(spec[next+1 : end]))
						i = end + 1
						continue
					}
				}
			case name == "cdot" || name == "times":
				b.WriteByte('*')
			case name == "%":
				b.WriteByte('%')
			case name == "Omega":
				b.WriteString("Ω")
			case name == "mu":
				b.WriteString("µ")
			case spacingCommands[name]:
				b.WriteByte(' ')
			default:
				b.WriteString(spec[i:next])
			}
			i = next
		case c == '{' || c == '}':
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type unitSpecParser struct {
	src string
	pos int
	reg *UnitRegistry
}

func (p *unitSpecParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

// parseProduct reads factors joined by `*`, `·`, whitespace or `/`. A
// division applies to the single factor that follows it, so group
// denominators with parentheses: `J/(kg*K)`.
func (p *unitSpecParser) parseProduct() (Unit, error) {
	acc, err := p.parsePower()
	if err != nil {
		return Unit{}, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] == ')' {
			return acc, nil
		}
		divide := false
		switch {
		case p.src[p.pos] == '*':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "·"):
			p.pos += len("·")
		case p.src[p.pos] == '/':
			divide = true
			p.pos++
		}
		p.skipSpace()
		next, err := p.parsePower()
		if err != nil {
			return Unit{}, err
		}
		if divide {
			acc = Unit{Dim: acc.Dim.Div(next.Dim), Scale: acc.Scale / next.Scale}
		} else {
			acc = Unit{Dim: acc.Dim.Mul(next.Dim), Scale: acc.Scale * next.Scale}
		}
	}
}

func (p *unitSpecParser) parsePower() (Unit, error) {
	base, err := p.parseFactor()
	if err != nil {
		return Unit{}, err
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '^' {
		return base, nil
	}
	p.pos++
	start := p.pos
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		p.pos++
	}
	for p.pos < len(p.src) && (isDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.') {
		p.pos++
	}
	exp, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return Unit{}, newDiagnostic(KindUnknownUnit, -1, "bad unit exponent %q", p.src[start:p.pos])
	}
	return Unit{Dim: base.Dim.Pow(exp), Scale: powScale(base.Scale, exp)}, nil
}

func (p *unitSpecParser) parseFactor() (Unit, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Unit{}, newDiagnostic(KindUnknownUnit, -1, "unit %q ends early", p.src)
	}
	if p.src[p.pos] == '(' {
		p.pos++
		inner, err := p.parseProduct()
		if err != nil {
			return Unit{}, err
		}
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return Unit{}, newDiagnostic(KindUnknownUnit, -1, "unbalanced parenthesis in unit %q", p.src)
		}
		p.pos++
		return inner, nil
	}
	if p.src[p.pos] == '1' {
		p.pos++
		return Unit{Scale: 1}, nil
	}
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune(" */^()", rune(p.src[p.pos])) && !strings.HasPrefix(p.src[p.pos:], "·") {
		p.pos++
	}
	name := p.src[start:p.pos]
	u, ok := p.reg.Lookup(name)
	if !ok {
		if name == "" {
			return Unit{}, newDiagnostic(KindUnknownUnit, -1, "cannot read unit %q", p.src)
		}
		return Unit{}, newDiagnostic(KindUnknownUnit, -1, "unknown unit %q", name)
	}
	return u, nil
}

// maxExactPower bounds the integer powers multiplied out exactly.
const maxExactPower = 64

func powScale(scale, exp float64) float64 {
	if exp == math.Trunc(exp) && math.Abs(exp) <= maxExactPower {
		out := 1.0
		n := int(exp)
		neg := n < 0
		if neg {
			n = -n
		}
		for i := 0; i < n; i++ {
			out *= scale
		}
		if neg {
			return 1 / out
		}
		return out
	}
	return math.Pow(scale, exp)
}

// unitLabel renders a cleaned unit specification for display:
// `km/h` becomes `\text{km}/\text{h}` and `m^2` becomes `\text{m}^{2}`.
func unitLabel(spec string) string {
	var b strings.Builder
	name := func(n string) {
		if n != "" {
			b.WriteString(`\text{` + escapeText(n) + `}`)
		}
	}
	start := 0
	for i := 0; i < len(spec); i++ {
		switch c := spec[i]; c {
		case '*', ' ', '/', '(', ')':
			name(spec[start:i])
			switch c {
			case '*', ' ':
				b.WriteString(` \cdot `)
			default:
				b.WriteByte(c)
			}
			start = i + 1
		case '^':
			name(spec[start:i])
			j := i + 1
			for j < len(spec) && (spec[j] == '-' || spec[j] == '+' || spec[j] == '.' || isDigit(rune(spec[j]))) {
				j++
			}
			b.WriteString("^{" + spec[i+1:j] + "}")
			i = j - 1
			start = j
		}
	}
	name(spec[start:])
	return b.String()
}

func (u Unit) String() string {
	return fmt.Sprintf("%s (%s, x%g)", u.Name, u.Dim, u.Scale)
}
