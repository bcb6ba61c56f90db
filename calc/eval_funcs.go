package calc

import (
	"math"
	"sort"
)

type monadic func(float64) float64

// Functions of one dimensionless argument.
var dimensionlessFuncs = map[string]monadic{
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"arcsin": math.Asin,
	"arccos": math.Acos,
	"arctan": math.Atan,
	"sinh":   math.Sinh,
	"cosh":   math.Cosh,
	"tanh":   math.Tanh,
	"ln":     math.Log,
	"log":    math.Log10,
	"exp":    math.Exp,
}

func isBuiltinFunc(name string) bool {
	if _, ok := dimensionlessFuncs[name]; ok {
		return true
	}
	switch name {
	case "abs", "min", "max":
		return true
	}
	return false
}

// BuiltinFunctions lists the names callable as `\name`.
func BuiltinFunctions() []string {
	names := []string{"abs", "min", "max"}
	for name := range dimensionlessFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (exec *execution) callBuiltin(n *CallExpr) (Quantity, error) {
	args := make([]Quantity, 0, len(n.Args))
	for _, arg := range n.Args {
		q, err := exec.eval(arg)
		if err != nil {
			return Quantity{}, err
		}
		args = append(args, q)
	}

	switch n.Name {
	case "abs":
		if len(args) != 1 {
			return Quantity{}, newDiagnostic(KindParseError, n.Position, `\abs takes one argument, got %d`, len(args))
		}
		return mapValues(args[0], math.Abs), nil
	case "min", "max":
		return reduceExtreme(n, args)
	}

	fn := dimensionlessFuncs[n.Name]
	if len(args) != 1 {
		return Quantity{}, newDiagnostic(KindParseError, n.Position, `\%s takes one argument, got %d`, n.Name, len(args))
	}
	arg := args[0]
	if !arg.Dim.IsDimensionless() {
		return Quantity{}, newDiagnostic(KindIncompatibleDimensions, n.Args[0].Pos(),
			`\%s needs a dimensionless argument, got %s`, n.Name, arg.Dim.Describe())
	}
	out := mapValues(arg, fn)
	if err := checkFinite(out, n.Position); err != nil {
		diag := err.(*Diagnostic)
		diag.Message = `\` + n.Name + ": argument outside the function's domain"
		return Quantity{}, diag
	}
	return out, nil
}

// reduceExtreme implements \min and \max over an argument list, a single
// array, or a mix: every element of every argument takes part.
func reduceExtreme(n *CallExpr, args []Quantity) (Quantity, error) {
	if len(args) == 0 {
		return Quantity{}, newDiagnostic(KindParseError, n.Position, `\%s needs at least one argument`, n.Name)
	}
	dim := args[0].Dim
	best := math.NaN()
	for i, q := range args {
		if !q.Dim.Equal(dim) {
			return Quantity{}, newDiagnostic(KindIncompatibleDimensions, n.Args[i].Pos(),
				`\%s arguments must share one dimension: %s vs %s`, n.Name, dim.Describe(), q.Dim.Describe())
		}
		for _, v := range q.Values {
			switch {
			case math.IsNaN(best):
				best = v
			case n.Name == "min" && v < best:
				best = v
			case n.Name == "max" && v > best:
				best = v
			}
		}
	}
	if math.IsNaN(best) {
		return Quantity{}, newDiagnostic(KindDomainError, n.Position, `\%s of an empty array`, n.Name)
	}
	return scalarQuantity(best, dim), nil
}
