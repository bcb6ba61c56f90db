package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	errStepQuotaExceeded = errors.New("step quota exceeded")
	errRecursionLimit    = errors.New("recursion depth exceeded")
)

func isLimitError(err error) bool {
	return errors.Is(err, errStepQuotaExceeded) ||
		errors.Is(err, errRecursionLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// execution evaluates the expressions of one calculation. It reads the
// run's units and symbols but never writes them; definitions are stored by
// the caller once evaluation succeeds.
type execution struct {
	ctx          context.Context
	units        *UnitRegistry
	symbols      *SymbolTable
	quota        int
	recursionCap int
	steps        int
	callStack    []string
	locals       []map[string]Quantity
}

func (exec *execution) step() error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		return fmt.Errorf("%w (%d)", errStepQuotaExceeded, exec.quota)
	}
	if exec.ctx != nil {
		select {
		case <-exec.ctx.Done():
			return exec.ctx.Err()
		default:
		}
	}
	return nil
}

func (exec *execution) pushFrame(function string, args map[string]Quantity) error {
	if exec.recursionCap > 0 && len(exec.callStack) >= exec.recursionCap {
		return fmt.Errorf("%w in %s (limit %d)", errRecursionLimit, function, exec.recursionCap)
	}
	exec.callStack = append(exec.callStack, function)
	exec.locals = append(exec.locals, args)
	return nil
}

func (exec *execution) popFrame() {
	if len(exec.callStack) == 0 {
		return
	}
	exec.callStack = exec.callStack[:len(exec.callStack)-1]
	exec.locals = exec.locals[:len(exec.locals)-1]
}

// timeoutDiagnostic turns a limit error into the diagnostic reported for
// the calculation.
func timeoutDiagnostic(err error, pos int) *Diagnostic {
	switch {
	case errors.Is(err, errRecursionLimit):
		return newDiagnostic(KindEvaluationTimeout, pos, "%s; is the function defined in terms of itself?", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newDiagnostic(KindEvaluationTimeout, pos, "evaluation took too long")
	default:
		return newDiagnostic(KindEvaluationTimeout, pos, "%s", err.Error())
	}
}

func (exec *execution) eval(node Expr) (Quantity, error) {
	if err := exec.step(); err != nil {
		return Quantity{}, err
	}

	switch n := node.(type) {
	case *NumberLit:
		return scalarQuantity(n.Value, Dimensionless), nil
	case *VarRef:
		return exec.evalVariable(n)
	case *UnaryExpr:
		right, err := exec.eval(n.Right)
		if err != nil {
			return Quantity{}, err
		}
		if n.Operator == tokenMinus {
			return mapValues(right, func(v float64) float64 { return -v }), nil
		}
		return right, nil
	case *BinaryExpr:
		return exec.evalBinary(n)
	case *FracExpr:
		num, err := exec.eval(n.Num)
		if err != nil {
			return Quantity{}, err
		}
		den, err := exec.eval(n.Den)
		if err != nil {
			return Quantity{}, err
		}
		return divideQuantities(num, den, n.Den.Pos())
	case *SqrtExpr:
		return exec.evalSqrt(n)
	case *CallExpr:
		if n.Builtin {
			return exec.callBuiltin(n)
		}
		return exec.callFunction(n)
	case *ArrayLit:
		return exec.evalArray(n)
	case *IndexExpr:
		return exec.evalIndex(n)
	case *UnitExpr:
		return exec.evalUnit(n)
	default:
		return Quantity{}, newDiagnostic(KindUnsupported, node.Pos(), "unsupported expression %T", node)
	}
}

func (exec *execution) evalVariable(ref *VarRef) (Quantity, error) {
	if len(exec.locals) > 0 {
		if v, ok := exec.locals[len(exec.locals)-1][ref.Name]; ok {
			return v, nil
		}
	}
	sym, ok := exec.symbols.lookup(ref.Name)
	if !ok {
		return Quantity{}, exec.undefined(ref)
	}
	if sym.Kind == SymbolFunction {
		return Quantity{}, newDiagnostic(KindParseError, ref.Position, "%q is a function; call it with arguments, %s(…)", ref.Raw, ref.Raw)
	}
	return sym.Value, nil
}

// undefined builds the UndefinedVariable diagnostic with whatever hint
// applies: a name that spells several defined symbols, a unit of the same
// name, or a close spelling of a defined name.
func (exec *execution) undefined(ref *VarRef) *Diagnostic {
	diag := newDiagnostic(KindUndefinedVariable, ref.Position, "undefined variable %q", ref.Raw)
	var hints []string

	if parts := exec.splitIntoSymbols(ref.Name); len(parts) > 1 {
		hints = append(hints, fmt.Sprintf("did you mean %s? write the multiplication explicitly", strings.Join(parts, "*")))
	}
	if exec.units.IsUnit(ref.Name) {
		hints = append(hints, fmt.Sprintf("%q is a unit; write units directly after a number", ref.Name))
	}
	if len(hints) == 0 {
		if match := closestName(ref.Name, exec.symbols.names()); match != "" {
			hints = append(hints, fmt.Sprintf("did you mean %q?", match))
		}
	}
	diag.Hint = strings.Join(hints, "; ")
	return diag
}

// splitIntoSymbols splits a name into runes when each rune is a defined
// value, so `ma` with m and a defined yields [m a].
func (exec *execution) splitIntoSymbols(name string) []string {
	runes := []rune(name)
	if len(runes) < 2 {
		return nil
	}
	parts := make([]string, 0, len(runes))
	for _, r := range runes {
		sym, ok := exec.symbols.lookup(string(r))
		if !ok || sym.Kind == SymbolFunction {
			return nil
		}
		parts = append(parts, string(r))
	}
	return parts
}

func closestName(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func (exec *execution) evalArray(n *ArrayLit) (Quantity, error) {
	values := make([]float64, 0, len(n.Elements))
	var dim Dimension
	for i, el := range n.Elements {
		q, err := exec.eval(el)
		if err != nil {
			return Quantity{}, err
		}
		if q.Array {
			return Quantity{}, newDiagnostic(KindUnsupported, el.Pos(), "arrays cannot be nested")
		}
		if i == 0 {
			dim = q.Dim
		} else if !dim.Equal(q.Dim) {
			return Quantity{}, newDiagnostic(KindIncompatibleDimensions, el.Pos(),
				"array elements must share one dimension: %s vs %s", dim.Describe(), q.Dim.Describe())
		}
		values = append(values, q.Values...)
	}
	return arrayQuantity(values, dim), nil
}

func (exec *execution) evalIndex(n *IndexExpr) (Quantity, error) {
	arr, err := exec.eval(n.Array)
	if err != nil {
		return Quantity{}, err
	}
	idx, err := exec.eval(n.Index)
	if err != nil {
		return Quantity{}, err
	}
	if !arr.Array {
		return Quantity{}, newDiagnostic(KindUnsupported, n.Position, "only arrays can be indexed")
	}
	raw, ok := idx.Scalar()
	if !ok || !idx.Dim.IsDimensionless() {
		return Quantity{}, newDiagnostic(KindIndexOutOfRange, n.Index.Pos(), "index must be a dimensionless number")
	}
	if raw != math.Trunc(raw) {
		return Quantity{}, newDiagnostic(KindIndexOutOfRange, n.Index.Pos(), "index %g is not an integer", raw)
	}
	i, convErr := safecast.Convert[int](raw)
	if convErr != nil || i < 0 || i >= arr.Len() {
		return Quantity{}, newDiagnostic(KindIndexOutOfRange, n.Index.Pos(), "index %g is out of range for an array of %d elements", raw, arr.Len())
	}
	return scalarQuantity(arr.Values[i], arr.Dim), nil
}

func (exec *execution) evalUnit(n *UnitExpr) (Quantity, error) {
	value, err := exec.eval(n.Value)
	if err != nil {
		return Quantity{}, err
	}
	unit, err := exec.units.Parse(n.Spec)
	if err != nil {
		diag := *asDiagnostic(err)
		diag.Pos = n.SpecPos
		return Quantity{}, &diag
	}
	out := mapValues(value, func(v float64) float64 { return v * unit.Scale })
	out.Dim = value.Dim.Mul(unit.Dim)
	return out, nil
}

// callFunction evaluates a document-defined function. Arguments are bound in
// a frame of their own; the body sees that frame and the run's symbols.
func (exec *execution) callFunction(n *CallExpr) (Quantity, error) {
	sym, ok := exec.symbols.lookup(n.Name)
	if !ok || sym.Kind != SymbolFunction {
		return Quantity{}, newDiagnostic(KindUndefinedVariable, n.Position, "undefined function %q", n.Name)
	}
	if len(n.Args) != len(sym.Params) {
		return Quantity{}, newDiagnostic(KindParseError, n.Position, "%s expects %d argument(s), got %d", n.Name, len(sym.Params), len(n.Args))
	}
	args := make(map[string]Quantity, len(sym.Params))
	for i, param := range sym.Params {
		v, err := exec.eval(n.Args[i])
		if err != nil {
			return Quantity{}, err
		}
		args[param] = v
	}
	if err := exec.pushFrame(n.Name, args); err != nil {
		return Quantity{}, err
	}
	defer exec.popFrame()
	return exec.eval(sym.Body)
}

func mapValues(q Quantity, fn func(float64) float64) Quantity {
	out := make([]float64, len(q.Values))
	for i, v := range q.Values {
		out[i] = fn(v)
	}
	return q.withValues(out)
}

// checkFinite rejects NaN and infinite results so they never reach the
// document.
func checkFinite(q Quantity, pos int) error {
	for _, v := range q.Values {
		if math.IsNaN(v) {
			return newDiagnostic(KindDomainError, pos, "result is not a number")
		}
		if math.IsInf(v, 0) {
			return newDiagnostic(KindDomainError, pos, "result overflows")
		}
	}
	return nil
}
