package calc

import (
	"math"
	"strings"
)

type unitPrefix int

const (
	prefixPico unitPrefix = iota
	prefixNano
	prefixMicro
	prefixMilli
	prefixCenti
	prefixHecto
	prefixKilo
	prefixMega
	prefixGiga
	prefixTera
)

var prefixScales = map[unitPrefix]float64{
	prefixPico:  1e-12,
	prefixNano:  1e-9,
	prefixMicro: 1e-6,
	prefixMilli: 1e-3,
	prefixCenti: 1e-2,
	prefixHecto: 1e2,
	prefixKilo:  1e3,
	prefixMega:  1e6,
	prefixGiga:  1e9,
	prefixTera:  1e12,
}

// Micro has three spellings: the micro sign, the Greek mu and a plain u.
var prefixSpellings = map[unitPrefix][]string{
	prefixPico:  {"p"},
	prefixNano:  {"n"},
	prefixMicro: {"µ", "μ", "u"},
	prefixMilli: {"m"},
	prefixCenti: {"c"},
	prefixHecto: {"h"},
	prefixKilo:  {"k"},
	prefixMega:  {"M"},
	prefixGiga:  {"G"},
	prefixTera:  {"T"},
}

type builtinUnit struct {
	name     string
	dim      Dimension
	scale    float64
	prefixes []unitPrefix
}

var (
	dimForce       = dims(1, 1, -2, 0, 0, 0, 0)
	dimEnergy      = dims(1, 2, -2, 0, 0, 0, 0)
	dimPower       = dims(1, 2, -3, 0, 0, 0, 0)
	dimPressure    = dims(1, -1, -2, 0, 0, 0, 0)
	dimCharge      = dims(0, 0, 1, 1, 0, 0, 0)
	dimVoltage     = dims(1, 2, -3, -1, 0, 0, 0)
	dimResistance  = dims(1, 2, -3, -2, 0, 0, 0)
	dimCapacitance = dims(-1, -2, 4, 2, 0, 0, 0)
	dimFluxDensity = dims(1, 0, -2, -1, 0, 0, 0)
	dimInductance  = dims(1, 2, -2, -2, 0, 0, 0)
	dimFlux        = dims(1, 2, -2, -1, 0, 0, 0)
	dimConductance = dims(-1, -2, 3, 2, 0, 0, 0)
	dimFrequency   = dims(0, 0, -1, 0, 0, 0, 0)
	dimVolume      = dims(0, 3, 0, 0, 0, 0, 0)
	dimArea        = dims(0, 2, 0, 0, 0, 0, 0)
	dimVelocity    = dims(0, 1, -1, 0, 0, 0, 0)
)

var (
	metric     = []unitPrefix{prefixNano, prefixMicro, prefixMilli, prefixKilo, prefixMega, prefixGiga}
	metricWide = []unitPrefix{prefixPico, prefixNano, prefixMicro, prefixMilli, prefixKilo, prefixMega, prefixGiga, prefixTera}
)

// The table order decides which spelling wins when a prefixed name
// collides with another unit: earlier entries are kept.
var builtinUnits = []builtinUnit{
	{name: "m", dim: baseDimension(dimLength, 1), scale: 1, prefixes: []unitPrefix{prefixNano, prefixMicro, prefixMilli, prefixCenti, prefixKilo}},
	{name: "g", dim: baseDimension(dimMass, 1), scale: 1e-3, prefixes: []unitPrefix{prefixMicro, prefixMilli, prefixKilo}},
	{name: "s", dim: baseDimension(dimTime, 1), scale: 1, prefixes: []unitPrefix{prefixPico, prefixNano, prefixMicro, prefixMilli}},
	{name: "A", dim: baseDimension(dimCurrent, 1), scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli, prefixKilo}},
	{name: "K", dim: baseDimension(dimTemperature, 1), scale: 1, prefixes: []unitPrefix{prefixMilli}},
	{name: "mol", dim: baseDimension(dimSubstance, 1), scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli, prefixKilo}},
	{name: "cd", dim: baseDimension(dimLuminous, 1), scale: 1},
	{name: "EUR", dim: baseDimension(dimCurrency, 1), scale: 1},
	{name: "€", dim: baseDimension(dimCurrency, 1), scale: 1},

	// Other currencies have no fixed rate to the euro, so each one is its
	// own base dimension.
	{name: "USD", dim: CustomDimension("USD"), scale: 1},
	{name: "GBP", dim: CustomDimension("GBP"), scale: 1},
	{name: "£", dim: CustomDimension("GBP"), scale: 1},
	{name: "JPY", dim: CustomDimension("JPY"), scale: 1},
	{name: "¥", dim: CustomDimension("JPY"), scale: 1},

	{name: "N", dim: dimForce, scale: 1, prefixes: metric},
	{name: "J", dim: dimEnergy, scale: 1, prefixes: metric},
	{name: "W", dim: dimPower, scale: 1, prefixes: metricWide},
	{name: "Pa", dim: dimPressure, scale: 1, prefixes: []unitPrefix{prefixHecto, prefixKilo, prefixMega, prefixGiga}},
	{name: "Hz", dim: dimFrequency, scale: 1, prefixes: []unitPrefix{prefixKilo, prefixMega, prefixGiga, prefixTera}},
	{name: "C", dim: dimCharge, scale: 1, prefixes: []unitPrefix{prefixNano, prefixMicro, prefixMilli}},
	{name: "V", dim: dimVoltage, scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli, prefixKilo, prefixMega}},
	{name: "Ω", dim: dimResistance, scale: 1, prefixes: []unitPrefix{prefixMilli, prefixKilo, prefixMega}},
	{name: "ohm", dim: dimResistance, scale: 1, prefixes: []unitPrefix{prefixMilli, prefixKilo, prefixMega}},
	{name: "F", dim: dimCapacitance, scale: 1, prefixes: []unitPrefix{prefixPico, prefixNano, prefixMicro, prefixMilli}},
	{name: "T", dim: dimFluxDensity, scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli}},
	{name: "H", dim: dimInductance, scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli}},
	{name: "Wb", dim: dimFlux, scale: 1},
	{name: "S", dim: dimConductance, scale: 1, prefixes: []unitPrefix{prefixMicro, prefixMilli}},

	{name: "L", dim: dimVolume, scale: 1e-3, prefixes: []unitPrefix{prefixMilli, prefixCenti}},
	{name: "l", dim: dimVolume, scale: 1e-3, prefixes: []unitPrefix{prefixMilli, prefixCenti}},
	{name: "Wh", dim: dimEnergy, scale: 3600, prefixes: []unitPrefix{prefixKilo, prefixMega, prefixGiga, prefixTera}},
	{name: "eV", dim: dimEnergy, scale: 1.602176634e-19, prefixes: []unitPrefix{prefixKilo, prefixMega, prefixGiga}},
	{name: "Ah", dim: dimCharge, scale: 3600, prefixes: []unitPrefix{prefixMilli}},
	{name: "bar", dim: dimPressure, scale: 1e5, prefixes: []unitPrefix{prefixMilli}},
	{name: "cal", dim: dimEnergy, scale: 4.184, prefixes: []unitPrefix{prefixKilo}},
	{name: "atm", dim: dimPressure, scale: 101325},
	{name: "t", dim: baseDimension(dimMass, 1), scale: 1e3},
	{name: "tonne", dim: baseDimension(dimMass, 1), scale: 1e3},
	{name: "ha", dim: dimArea, scale: 1e4},

	{name: "min", dim: baseDimension(dimTime, 1), scale: 60},
	{name: "h", dim: baseDimension(dimTime, 1), scale: 3600},
	{name: "day", dim: baseDimension(dimTime, 1), scale: 86400},
	{name: "week", dim: baseDimension(dimTime, 1), scale: 7 * 86400},
	{name: "yr", dim: baseDimension(dimTime, 1), scale: 365.25 * 86400},

	{name: "in", dim: baseDimension(dimLength, 1), scale: 0.0254},
	{name: "ft", dim: baseDimension(dimLength, 1), scale: 0.3048},
	{name: "yd", dim: baseDimension(dimLength, 1), scale: 0.9144},
	{name: "mi", dim: baseDimension(dimLength, 1), scale: 1609.344},
	{name: "lb", dim: baseDimension(dimMass, 1), scale: 0.45359237},
	{name: "oz", dim: baseDimension(dimMass, 1), scale: 0.028349523125},
	{name: "lbf", dim: dimForce, scale: 4.4482216152605},
	{name: "psi", dim: dimPressure, scale: 6894.757293168361},
	{name: "mph", dim: dimVelocity, scale: 0.44704},
	{name: "gal", dim: dimVolume, scale: 3.785411784e-3},

	{name: "rad", dim: Dimensionless, scale: 1},
	{name: "deg", dim: Dimensionless, scale: math.Pi / 180},
	{name: "°", dim: Dimensionless, scale: math.Pi / 180},
	{name: "%", dim: Dimensionless, scale: 0.01},
	{name: "ppm", dim: Dimensionless, scale: 1e-6},
}

// Named units tried, in order, when a result has no requested unit. A
// result whose dimension matches none of them is shown in SI base units.
var naturalUnits = []string{"N", "J", "W", "Pa", "C", "V", "Ω", "F", "T", "H", "Wb", "S"}

// naturalUnitLabel returns the display form of a dimension in coherent SI
// units: a named derived unit when one matches, otherwise the base units
// composed into a fraction, `\text{m}/\text{s}^{2}`. The empty string
// stands for a dimensionless value.
func (r *UnitRegistry) naturalUnitLabel(d Dimension) string {
	if d.IsDimensionless() {
		return ""
	}
	for _, name := range naturalUnits {
		if u, ok := r.Lookup(name); ok && u.Dim.Equal(d) {
			return unitLabel(name)
		}
	}
	return composeUnitLabel(d)
}

func composeUnitLabel(d Dimension) string {
	var num, den []string
	for _, f := range d.factors() {
		switch {
		case f.exp > 0:
			num = append(num, unitPower(f.name, f.exp))
		default:
			den = append(den, unitPower(f.name, -f.exp))
		}
	}
	if len(num) == 0 {
		neg := make([]string, 0, len(den))
		for _, f := range d.factors() {
			neg = append(neg, unitPower(f.name, f.exp))
		}
		return joinUnits(neg)
	}
	out := joinUnits(num)
	switch len(den) {
	case 0:
	case 1:
		out += "/" + den[0]
	default:
		out += "/(" + joinUnits(den) + ")"
	}
	return out
}

func unitPower(name string, exp float64) string {
	label := unitLabel(name)
	if exp == 1 {
		return label
	}
	return label + "^{" + formatExponent(exp) + "}"
}

func joinUnits(parts []string) string {
	return strings.Join(parts, ` \cdot `)
}
