package calc

import "math"

func (exec *execution) evalBinary(n *BinaryExpr) (Quantity, error) {
	left, err := exec.eval(n.Left)
	if err != nil {
		return Quantity{}, err
	}
	right, err := exec.eval(n.Right)
	if err != nil {
		return Quantity{}, err
	}

	switch n.Operator {
	case tokenPlus, tokenMinus:
		if !left.Dim.Equal(right.Dim) {
			verb := "add"
			if n.Operator == tokenMinus {
				verb = "subtract"
			}
			return Quantity{}, newDiagnostic(KindIncompatibleDimensions, n.Position,
				"cannot %s %s and %s", verb, left.Dim.Describe(), right.Dim.Describe())
		}
		op := func(a, b float64) float64 { return a + b }
		if n.Operator == tokenMinus {
			op = func(a, b float64) float64 { return a - b }
		}
		return broadcast(left, right, left.Dim, n.Position, op)
	case tokenAsterisk:
		return broadcast(left, right, left.Dim.Mul(right.Dim), n.Position, func(a, b float64) float64 { return a * b })
	case tokenSlash:
		return divideQuantities(left, right, n.Position)
	case tokenCaret:
		return powerQuantity(left, right, n.Right.Pos())
	default:
		return Quantity{}, newDiagnostic(KindUnsupported, n.Position, "unknown operator %s", n.Operator)
	}
}

// broadcast combines two quantities element by element. A scalar pairs
// with every element of an array; two arrays must have the same length.
func broadcast(left, right Quantity, dim Dimension, pos int, op func(a, b float64) float64) (Quantity, error) {
	switch {
	case !left.Array && !right.Array:
		return scalarQuantity(op(left.Values[0], right.Values[0]), dim), nil
	case left.Array && right.Array && left.Len() != right.Len():
		return Quantity{}, newDiagnostic(KindArrayLengthMismatch, pos,
			"arrays have different lengths: %d and %d", left.Len(), right.Len())
	}

	n := right.Len()
	if left.Array {
		n = left.Len()
	}
	out := make([]float64, n)
	for i := range out {
		a := left.Values[0]
		if left.Array {
			a = left.Values[i]
		}
		b := right.Values[0]
		if right.Array {
			b = right.Values[i]
		}
		out[i] = op(a, b)
	}
	return arrayQuantity(out, dim), nil
}

func divideQuantities(left, right Quantity, pos int) (Quantity, error) {
	for _, v := range right.Values {
		if v == 0 {
			return Quantity{}, newDiagnostic(KindDivisionByZero, pos, "division by zero")
		}
	}
	return broadcast(left, right, left.Dim.Div(right.Dim), pos, func(a, b float64) float64 { return a / b })
}

// powerQuantity raises base to a dimensionless scalar exponent; the
// exponents of the base dimension scale along with it.
func powerQuantity(base, exp Quantity, pos int) (Quantity, error) {
	p, ok := exp.Scalar()
	if !ok {
		return Quantity{}, newDiagnostic(KindUnsupported, pos, "exponent must be a single number, not an array")
	}
	if !exp.Dim.IsDimensionless() {
		return Quantity{}, newDiagnostic(KindIncompatibleDimensions, pos, "exponent must be dimensionless, got %s", exp.Dim.Describe())
	}
	out := mapValues(base, func(v float64) float64 { return math.Pow(v, p) })
	out.Dim = base.Dim.Pow(p)
	for _, v := range out.Values {
		if math.IsNaN(v) {
			return Quantity{}, newDiagnostic(KindDomainError, pos, "negative base with a fractional exponent")
		}
		if math.IsInf(v, 0) && p < 0 {
			return Quantity{}, newDiagnostic(KindDivisionByZero, pos, "zero raised to a negative power")
		}
		if math.IsInf(v, 0) {
			return Quantity{}, newDiagnostic(KindDomainError, pos, "result overflows")
		}
	}
	return out, nil
}

func (exec *execution) evalSqrt(n *SqrtExpr) (Quantity, error) {
	radicand, err := exec.eval(n.Radicand)
	if err != nil {
		return Quantity{}, err
	}
	degree := 2.0
	if n.Index != nil {
		idx, err := exec.eval(n.Index)
		if err != nil {
			return Quantity{}, err
		}
		d, ok := idx.Scalar()
		if !ok || !idx.Dim.IsDimensionless() || d == 0 {
			return Quantity{}, newDiagnostic(KindDomainError, n.Index.Pos(), "root index must be a non-zero dimensionless number")
		}
		degree = d
	}

	odd := degree == math.Trunc(degree) && math.Mod(math.Abs(degree), 2) == 1
	out := make([]float64, len(radicand.Values))
	for i, v := range radicand.Values {
		switch {
		case v >= 0:
			out[i] = math.Pow(v, 1/degree)
		case odd:
			out[i] = -math.Pow(-v, 1/degree)
		default:
			return Quantity{}, newDiagnostic(KindDomainError, n.Position, "square root of a negative number")
		}
	}
	q := radicand.withValues(out)
	q.Dim = radicand.Dim.Pow(1 / degree)
	return q, nil
}
