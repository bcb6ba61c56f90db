package calc

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type baseDim int

const (
	dimMass baseDim = iota
	dimLength
	dimTime
	dimCurrent
	dimTemperature
	dimSubstance
	dimLuminous
	dimCurrency
	numBaseDims
)

// SI symbol of the coherent unit for each base dimension, in the order
// used when composing a display string.
var baseDimSymbols = [numBaseDims]string{"kg", "m", "s", "A", "K", "mol", "cd", "EUR"}

var baseDimNames = [numBaseDims]string{"mass", "length", "time", "current", "temperature", "substance", "luminous", "currency"}

const exponentEpsilon = 1e-9

type customExp struct {
	name string
	exp  float64
}

// Dimension is an immutable vector of exponents over the base dimensions.
// Exponents are float64 so roots of squared quantities stay exact.
type Dimension struct {
	base   [numBaseDims]float64
	custom []customExp // sorted by name, zero exponents dropped
}

// Dimensionless is the zero dimension.
var Dimensionless = Dimension{}

func baseDimension(d baseDim, exp float64) Dimension {
	var out Dimension
	out.base[d] = exp
	return out
}

// CustomDimension returns the dimension of a user-declared base unit.
func CustomDimension(name string) Dimension {
	return Dimension{custom: []customExp{{name: name, exp: 1}}}
}

// dims builds a dimension from the seven SI exponents in base order.
func dims(mass, length, time, current, temperature, substance, luminous float64) Dimension {
	var out Dimension
	out.base = [numBaseDims]float64{mass, length, time, current, temperature, substance, luminous, 0}
	return out
}

func (d Dimension) IsDimensionless() bool {
	for _, e := range d.base {
		if !isZeroExp(e) {
			return false
		}
	}
	return len(d.custom) == 0
}

func (d Dimension) Equal(o Dimension) bool {
	for i := range d.base {
		if !isZeroExp(d.base[i] - o.base[i]) {
			return false
		}
	}
	if len(d.custom) != len(o.custom) {
		return false
	}
	for i := range d.custom {
		if d.custom[i].name != o.custom[i].name || !isZeroExp(d.custom[i].exp-o.custom[i].exp) {
			return false
		}
	}
	return true
}

func (d Dimension) Mul(o Dimension) Dimension {
	return d.combine(o, 1)
}

func (d Dimension) Div(o Dimension) Dimension {
	return d.combine(o, -1)
}

// Pow scales every exponent by p.
func (d Dimension) Pow(p float64) Dimension {
	var out Dimension
	for i, e := range d.base {
		out.base[i] = cleanExp(e * p)
	}
	for _, c := range d.custom {
		if e := cleanExp(c.exp * p); !isZeroExp(e) {
			out.custom = append(out.custom, customExp{name: c.name, exp: e})
		}
	}
	return out
}

func (d Dimension) combine(o Dimension, sign float64) Dimension {
	var out Dimension
	for i := range d.base {
		out.base[i] = cleanExp(d.base[i] + sign*o.base[i])
	}
	merged := make(map[string]float64, len(d.custom)+len(o.custom))
	for _, c := range d.custom {
		merged[c.name] += c.exp
	}
	for _, c := range o.custom {
		merged[c.name] += sign * c.exp
	}
	for name, exp := range merged {
		if e := cleanExp(exp); !isZeroExp(e) {
			out.custom = append(out.custom, customExp{name: name, exp: e})
		}
	}
	sort.Slice(out.custom, func(i, j int) bool { return out.custom[i].name < out.custom[j].name })
	return out
}

// factors lists the non-zero exponents with the symbol of their coherent
// unit, SI bases first and custom bases after in name order.
func (d Dimension) factors() []customExp {
	var out []customExp
	for i, e := range d.base {
		if !isZeroExp(e) {
			out = append(out, customExp{name: baseDimSymbols[i], exp: e})
		}
	}
	return append(out, d.custom...)
}

// String renders the dimension with coherent unit symbols, for example
// "kg m^2 s^-2". The dimensionless vector renders as "1".
func (d Dimension) String() string {
	fs := d.factors()
	if len(fs) == 0 {
		return "1"
	}
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.exp == 1 {
			parts = append(parts, f.name)
			continue
		}
		parts = append(parts, f.name+"^"+formatExponent(f.exp))
	}
	return strings.Join(parts, " ")
}

// Describe names the base dimensions involved, for example
// "mass length^2 time^-2". Used in diagnostics.
func (d Dimension) Describe() string {
	var parts []string
	for i, e := range d.base {
		if isZeroExp(e) {
			continue
		}
		if e == 1 {
			parts = append(parts, baseDimNames[i])
		} else {
			parts = append(parts, baseDimNames[i]+"^"+formatExponent(e))
		}
	}
	for _, c := range d.custom {
		if c.exp == 1 {
			parts = append(parts, c.name)
		} else {
			parts = append(parts, c.name+"^"+formatExponent(c.exp))
		}
	}
	if len(parts) == 0 {
		return "dimensionless"
	}
	return strings.Join(parts, " ")
}

func formatExponent(e float64) string {
	return strconv.FormatFloat(e, 'g', 6, 64)
}

func isZeroExp(e float64) bool {
	return math.Abs(e) < exponentEpsilon
}

// cleanExp snaps exponents that drifted from an integer or half through
// repeated float arithmetic.
func cleanExp(e float64) float64 {
	if r := math.Round(e * 2); math.Abs(e*2-r) < exponentEpsilon {
		return r / 2
	}
	return e
}
