package calc

import (
	"context"
	"time"
)

// CalcReport describes what happened to one calculation during a run.
type CalcReport struct {
	Kind        CalcKind      `json:"kind"`
	Line        int           `json:"line"`
	Source      string        `json:"source"`
	Hint        string        `json:"hint,omitempty"`
	Output      string        `json:"output,omitempty"`
	Diagnostics []*Diagnostic `json:"diagnostics,omitempty"`
}

// Result is the outcome of Process or Export.
type Result struct {
	Text         string        `json:"-"`
	Edits        int           `json:"edits"`
	Diagnostics  []*Diagnostic `json:"diagnostics"`
	Stats        Stats         `json:"stats"`
	Symbols      []Symbol      `json:"symbols"`
	Units        []Unit        `json:"units,omitempty"`
	Calculations []CalcReport  `json:"calculations"`
}

// HasErrors reports whether any calculation failed.
func (r *Result) HasErrors() bool {
	return r.Stats.Errors > 0
}

// Process evaluates every calculation of src in document order and splices
// the results into their regions. Running it on its own output changes
// nothing but the metadata comment. Only a document whose math blocks
// cannot be delimited fails as a whole.
func (e *Engine) Process(ctx context.Context, src string) (*Result, error) {
	res, _, err := e.process(ctx, src)
	if err != nil {
		return nil, err
	}
	if !e.config.OmitMetadata {
		res.Text = appendMetadata(res.Text, res.Stats, e.config.Now())
	}
	return res, nil
}

func (e *Engine) process(ctx context.Context, src string) (*Result, *run, error) {
	start := time.Now()
	body, _ := StripMetadata(src)
	doc, err := ParseDocument(body)
	if err != nil {
		return nil, nil, err
	}

	r := e.newRun(ctx)
	res := &Result{}
	edits := make([]TextEdit, 0, len(doc.Calculations))
	for _, c := range doc.Calculations {
		out := r.calculate(body, c)
		edits = append(edits, TextEdit{Span: c.Result, NewText: out.text, OldText: c.Result.text(body)})

		line, _ := lineColumn(body, c.Line.Start)
		res.Calculations = append(res.Calculations, CalcReport{
			Kind:        c.Kind,
			Line:        line,
			Source:      c.Line.text(body),
			Hint:        c.Hint,
			Output:      out.display,
			Diagnostics: out.diags,
		})
		res.Diagnostics = append(res.Diagnostics, out.diags...)
	}

	text, applied, err := applyEdits(body, edits)
	if err != nil {
		return nil, nil, err
	}
	r.stats.Duration = time.Since(start)

	res.Text = text
	res.Edits = applied
	res.Stats = r.stats
	res.Symbols = r.symbols.Symbols()
	res.Units = r.customUnits()
	return res, r, nil
}

func (r *run) customUnits() []Unit {
	var out []Unit
	for _, u := range r.units.Units() {
		if !u.Builtin {
			out = append(out, u)
		}
	}
	return out
}
