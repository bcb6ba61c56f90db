package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Notation selects how numbers are written.
type Notation string

const (
	NotationAuto  Notation = "auto"
	NotationFixed Notation = "fixed"
	NotationSci   Notation = "sci"
	NotationEng   Notation = "eng"
)

const (
	DefaultDigits = 4
	MaxDigits     = 15
)

func ParseNotation(s string) (Notation, error) {
	switch n := Notation(strings.ToLower(strings.TrimSpace(s))); n {
	case NotationAuto, NotationFixed, NotationSci, NotationEng:
		return n, nil
	case "":
		return NotationAuto, nil
	default:
		return "", fmt.Errorf("unknown notation %q (want auto, fixed, sci or eng)", s)
	}
}

// FormatOptions controls number rendering. Digits counts significant
// digits.
type FormatOptions struct {
	Digits   int      `json:"digits"`
	Notation Notation `json:"notation"`
}

func (o FormatOptions) normalized() FormatOptions {
	if o.Digits <= 0 {
		o.Digits = DefaultDigits
	}
	if o.Digits > MaxDigits {
		o.Digits = MaxDigits
	}
	if o.Notation == "" {
		o.Notation = NotationAuto
	}
	return o
}

// FormatQuantity renders a quantity as LaTeX, `49.05\ \text{N}` or
// `[2, 4, 6]`. With a display unit the value is converted into it; when
// the unit is unknown or does not fit the dimension the value is shown in
// SI form and a warning explains why.
func FormatQuantity(q Quantity, unit string, units *UnitRegistry, opts FormatOptions) (string, *Diagnostic) {
	opts = opts.normalized()
	values := q.Values
	label := units.naturalUnitLabel(q.Dim)
	var warn *Diagnostic

	if unit != "" {
		u, err := units.Parse(unit)
		switch {
		case err != nil:
			warn = newWarning(KindUnknownUnit, -1, "unknown display unit %q; showing SI units", unit)
		case !u.Dim.Equal(q.Dim):
			warn = newWarning(KindIncompatibleDimensions, -1, "cannot show %s as %s; showing SI units", q.Dim.Describe(), u.Name)
		default:
			values = make([]float64, len(q.Values))
			for i, v := range q.Values {
				values[i] = v / u.Scale
			}
			label = unitLabel(u.Name)
		}
	}

	var b strings.Builder
	if q.Array {
		b.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatNumber(v, opts))
		}
		b.WriteByte(']')
	} else if len(values) > 0 {
		b.WriteString(FormatNumber(values[0], opts))
	}
	if label != "" {
		b.WriteString(`\ `)
		b.WriteString(label)
	}
	return b.String(), warn
}

// FormatNumber writes v with the requested significant digits. Auto
// notation switches to scientific form outside [1e-3, 1e6).
func FormatNumber(v float64, opts FormatOptions) string {
	opts = opts.normalized()
	if v == 0 {
		return "0"
	}
	switch opts.Notation {
	case NotationFixed:
		return formatFixed(v, opts.Digits)
	case NotationSci:
		return formatScientific(v, opts.Digits)
	case NotationEng:
		return formatEngineering(v, opts.Digits)
	}
	if abs := math.Abs(v); abs >= 1e6 || abs < 1e-3 {
		return formatScientific(v, opts.Digits)
	}
	return formatFixed(v, opts.Digits)
}

func roundSignificant(v float64, digits int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'e', digits-1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func formatFixed(v float64, digits int) string {
	s := strconv.FormatFloat(roundSignificant(v, digits), 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

// splitScientific returns the trimmed mantissa and the decimal exponent.
func splitScientific(v float64, digits int) (string, int) {
	s := strconv.FormatFloat(v, 'e', digits-1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	e, _ := strconv.Atoi(exp)
	return trimZeros(mant), e
}

func formatScientific(v float64, digits int) string {
	mant, exp := splitScientific(v, digits)
	if exp == 0 {
		return mant
	}
	return fmt.Sprintf(`%s \cdot 10^{%d}`, mant, exp)
}

func formatEngineering(v float64, digits int) string {
	_, exp := splitScientific(v, digits)
	exp3 := int(math.Floor(float64(exp)/3)) * 3
	mant := formatFixed(v/math.Pow(10, float64(exp3)), digits)
	if exp3 == 0 {
		return mant
	}
	return fmt.Sprintf(`%s \cdot 10^{%d}`, mant, exp3)
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
