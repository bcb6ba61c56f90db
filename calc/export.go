package calc

import (
	"context"
	"regexp"
	"sort"
)

var referencePattern = regexp.MustCompile(`\{\{\s*([A-Za-z\\][A-Za-z0-9_\\']*)\s*(?:\|\s*([^{}|]+?)\s*)?\}\}`)

// Export processes src and then substitutes `{{name}}` and `{{name | unit}}`
// references in the prose with the inline math value of that symbol. The
// run-metadata comment is left out. References inside math blocks, code and
// comments are not touched; unknown names stay as written and produce a
// warning.
func (e *Engine) Export(ctx context.Context, src string) (*Result, error) {
	res, r, err := e.process(ctx, src)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(res.Text)
	if err != nil {
		return nil, err
	}
	skip := make([]Span, 0, len(doc.Blocks)+len(doc.Opaque))
	for _, b := range doc.Blocks {
		skip = append(skip, b.Outer)
	}
	skip = append(skip, doc.Opaque...)
	sort.Slice(skip, func(i, j int) bool { return skip[i].Start < skip[j].Start })

	var edits []TextEdit
	for _, m := range referencePattern.FindAllStringSubmatchIndex(res.Text, -1) {
		at := Span{Start: m[0], End: m[1]}
		if insideAny(skip, at.Start) {
			continue
		}
		raw := res.Text[m[2]:m[3]]
		unit := ""
		if m[4] >= 0 {
			unit = res.Text[m[4]:m[5]]
		}
		text, diags := r.reference(raw, unit, at.Start)
		for _, d := range diags {
			d.Line, d.Column = lineColumn(res.Text, d.Pos)
		}
		r.stats.count(diags)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if text == "" {
			continue
		}
		edits = append(edits, TextEdit{Span: at, NewText: "$" + text + "$", OldText: at.text(res.Text)})
	}

	text, applied, err := applyEdits(res.Text, edits)
	if err != nil {
		return nil, err
	}
	res.Text = text
	res.Edits += applied
	res.Stats.Errors, res.Stats.Warnings = r.stats.Errors, r.stats.Warnings
	return res, nil
}

// reference formats one symbol for export. An empty text means the reference
// stays as written.
func (r *run) reference(raw, unit string, pos int) (string, []*Diagnostic) {
	name := normalizeName(raw)
	sym, ok := r.symbols.lookup(name)
	if !ok {
		return "", []*Diagnostic{newWarning(KindUnknownReference, pos, "%q is not defined in this document", raw)}
	}
	if sym.Kind == SymbolFunction {
		return "", []*Diagnostic{newWarning(KindUnknownReference, pos, "%q is a function and has no value to show", raw)}
	}
	text, warn := FormatQuantity(sym.Value, unit, r.units, r.engine.config.Format)
	if warn != nil {
		warn.Pos = pos
		return text, []*Diagnostic{warn}
	}
	return text, nil
}

// insideAny reports whether pos falls in one of spans. The spans are
// disjoint and sorted by start.
func insideAny(spans []Span, pos int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].Start > pos })
	return i > 0 && pos < spans[i-1].End
}
