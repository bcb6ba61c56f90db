package calc

import "strings"

// outcome is what one calculation produced: the replacement for its result
// region plus the diagnostics behind it.
type outcome struct {
	text    string
	display string
	name    string
	value   *Quantity
	diags   []*Diagnostic
}

func (o *outcome) fail(d *Diagnostic) {
	o.diags = append(o.diags, d)
	o.text = " " + renderDiagnostic(d)
}

// calculate runs one calculation against the symbols defined so far and
// records any definition it makes. src is the text the calculation's spans
// point into.
func (r *run) calculate(src string, c *Calculation) outcome {
	var out outcome
	switch c.Kind {
	case CalcSymbolic:
		out.fail(newDiagnostic(KindUnsupported, c.Op.Start, "symbolic derivation (=>) is not supported"))
	case CalcUnitDefine:
		r.defineUnit(src, c, &out)
	case CalcDefine, CalcDefineAndEvaluate:
		r.define(src, c, &out)
	case CalcEvaluate:
		q, diag := r.evaluate(c.Expr.text(src))
		if diag != nil {
			out.fail(diag.shift(c.Expr.Start))
			break
		}
		r.stats.Evaluations++
		r.render(c, q, &out)
	}
	for _, d := range out.diags {
		if d.Pos >= 0 && d.Pos <= len(src) {
			d.Line, d.Column = lineColumn(src, d.Pos)
		}
	}
	r.stats.count(out.diags)
	return out
}

func (r *run) define(src string, c *Calculation, out *outcome) {
	target, err := parseDefinitionTarget(c.Target.text(src), r.units)
	if err != nil {
		out.fail(asDiagnostic(err).shift(c.Target.Start))
		return
	}
	out.name = target.Name
	if target.UnitName {
		out.fail(newDiagnostic(KindUnitNameConflict, c.Target.Start+target.Offset,
			"%q is a unit name; choose another name for the variable", target.Name))
		return
	}
	if r.units.IsUnit(target.Name) && !r.units.IsBuiltin(target.Name) && !isSingleSymbol(target.Name) {
		out.fail(newDiagnostic(KindUnitNameConflict, c.Target.Start+target.Offset,
			"%q is a unit defined in this document", target.Name))
		return
	}

	if target.Params != nil {
		if c.Kind == CalcDefineAndEvaluate {
			out.fail(newDiagnostic(KindUnsupported, c.Op.Start, "a function definition has no value to show; call the function instead"))
			return
		}
		body, err := ParseExpr(c.Expr.text(src), r.scope(target.Name))
		if err != nil {
			out.fail(asDiagnostic(err).shift(c.Expr.Start))
			return
		}
		r.symbols.define(Symbol{
			Name:    target.Name,
			Display: target.Display,
			Kind:    SymbolFunction,
			Params:  target.Params,
			Body:    body,
			Source:  c.Expr.text(src),
		})
		r.stats.Definitions++
		return
	}

	q, diag := r.evaluate(c.Expr.text(src))
	if diag != nil {
		out.fail(diag.shift(c.Expr.Start))
		return
	}
	kind := SymbolScalar
	if q.Array {
		kind = SymbolArray
	}
	r.symbols.define(Symbol{Name: target.Name, Display: target.Display, Kind: kind, Value: q, Source: c.Expr.text(src)})
	r.stats.Definitions++

	if c.Kind == CalcDefineAndEvaluate {
		r.stats.Evaluations++
		r.render(c, q, out)
		return
	}
	out.value = &q
	out.display, _ = FormatQuantity(q, "", r.units, r.formatOptions(c))
}

// defineUnit handles `name === expr`. An empty right side, or one naming
// the unit itself, declares a new base dimension.
func (r *run) defineUnit(src string, c *Calculation, out *outcome) {
	name, err := parseUnitName(c.Target.text(src))
	if err != nil {
		out.fail(asDiagnostic(err).shift(c.Target.Start))
		return
	}
	out.name = name

	rhs := strings.TrimSpace(c.Expr.text(src))
	unit := Unit{Name: name, Dim: CustomDimension(name), Scale: 1}
	if rhs != "" && cleanUnitSpec(rhs) != name {
		q, diag := r.evaluate(rhs)
		if diag != nil {
			out.fail(diag.shift(c.Expr.Start))
			return
		}
		scale, ok := q.Scalar()
		if !ok {
			out.fail(newDiagnostic(KindUnsupported, c.Expr.Start, "a unit must be defined by a single value, not an array"))
			return
		}
		unit.Dim, unit.Scale = q.Dim, scale
	}
	if err := r.units.Register(unit); err != nil {
		diag := asDiagnostic(err)
		diag.Pos = c.Target.Start
		out.fail(diag)
		return
	}
	r.stats.Units++
}

// render formats an evaluated value into the result region, converting to
// the display unit when there is one.
func (r *run) render(c *Calculation, q Quantity, out *outcome) {
	// Brackets after a block are only a hint when they hold a unit.
	if c.HintSource == HintTrailing {
		if _, err := r.units.Parse(c.Hint); err != nil {
			c.Hint, c.HintSource, c.HintSpan = "", HintNone, Span{}
		}
	}
	text, warn := FormatQuantity(q, c.Hint, r.units, r.formatOptions(c))
	out.value = &q
	out.display = text
	out.text = " " + text
	if warn != nil {
		warn.Pos = c.Op.Start
		switch c.HintSource {
		case HintInline, HintTrailing:
			warn.Pos = c.HintSpan.Start
		case HintComment:
			warn.Pos = c.Comment.Start
		}
		out.diags = append(out.diags, warn)
		out.text += ` ` + renderDiagnostic(warn)
	}
}
