package calc

import (
	"fmt"
	"sort"
	"strings"
)

// Span is a half-open byte range [Start, End) of the document text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) text(src string) string { return src[s.Start:s.End] }

// CalcKind is the operator family of a calculation.
type CalcKind int

const (
	CalcDefine CalcKind = iota
	CalcEvaluate
	CalcDefineAndEvaluate
	CalcUnitDefine
	CalcSymbolic
)

func (k CalcKind) String() string {
	switch k {
	case CalcEvaluate:
		return "evaluate"
	case CalcDefineAndEvaluate:
		return "define-evaluate"
	case CalcUnitDefine:
		return "unit"
	case CalcSymbolic:
		return "symbolic"
	default:
		return "define"
	}
}

func (k CalcKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// HintSource records where a calculation's display unit came from.
type HintSource int

const (
	HintNone HintSource = iota
	HintInline
	HintTrailing
	HintComment
)

// Calculation is one operator-bearing line of a math block. All spans are
// absolute offsets into the text the document was scanned from; they are
// never reused after that text changes.
type Calculation struct {
	Kind    CalcKind `json:"kind"`
	Display bool     `json:"display"`
	Line    Span     `json:"line"`
	Target  Span     `json:"target"` // defined name; empty for plain evaluation
	Op      Span     `json:"op"`
	Expr    Span     `json:"expr"`
	Result  Span     `json:"result"`

	Hint       string        `json:"hint,omitempty"`
	HintSource HintSource    `json:"-"`
	HintSpan   Span          `json:"-"`
	Format     FormatOptions `json:"format"`
	Comment    Span          `json:"-"`
}

// Segment is a piece of the document: literal text, or a calculation line.
type Segment struct {
	Span
	Calc *Calculation
}

// Document is the span view of one text: its math blocks and the
// calculations found in them, with literal text between.
type Document struct {
	Source       string
	Blocks       []MathBlock
	Opaque       []Span // code and comments
	Calculations []*Calculation
	Segments     []Segment
}

// ScanError is returned when the math blocks of a document cannot be
// delimited, which aborts the whole run.
type ScanError struct {
	Offset int
	Line   int
	Msg    string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseDocument scans text into its span model.
func ParseDocument(src string) (*Document, error) {
	blocks, opaque, err := scanMathBlocks(src)
	if err != nil {
		return nil, err
	}
	doc := &Document{Source: src, Blocks: blocks, Opaque: opaque}
	for _, block := range blocks {
		calcs := block.calculations(src)
		applyBlockHints(src, block, calcs)
		doc.Calculations = append(doc.Calculations, calcs...)
	}
	doc.Segments = buildSegments(len(src), doc.Calculations)
	return doc, nil
}

func buildSegments(size int, calcs []*Calculation) []Segment {
	var segs []Segment
	pos := 0
	for _, c := range calcs {
		if c.Line.Start > pos {
			segs = append(segs, Segment{Span: Span{Start: pos, End: c.Line.Start}})
		}
		segs = append(segs, Segment{Span: c.Line, Calc: c})
		pos = c.Line.End
	}
	if pos < size {
		segs = append(segs, Segment{Span: Span{Start: pos, End: size}})
	}
	return segs
}

// TextEdit replaces Span with NewText.
type TextEdit struct {
	Span    Span
	NewText string
	OldText string
}

// spansConflict reports whether two edits overlap. Spans are half-open; two
// insertions at one offset never conflict.
func spansConflict(a, b TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

// applyEdits applies edits from the highest offset down so no edit shifts
// the offsets of one still pending. Edits that leave the text unchanged are
// skipped; overlapping edits are an error.
func applyEdits(src string, edits []TextEdit) (string, int, error) {
	sorted := make([]TextEdit, 0, len(edits))
	for _, e := range edits {
		if e.Span.Start < 0 || e.Span.End > len(src) || e.Span.Start > e.Span.End {
			return "", 0, fmt.Errorf("edit span %d..%d outside document of %d bytes", e.Span.Start, e.Span.End, len(src))
		}
		if e.Span.text(src) == e.NewText {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	for i := 1; i < len(sorted); i++ {
		if spansConflict(sorted[i-1], sorted[i]) {
			return "", 0, fmt.Errorf("overlapping edits at %d and %d", sorted[i].Span.Start, sorted[i-1].Span.Start)
		}
	}

	var b strings.Builder
	out := src
	for _, e := range sorted {
		b.Reset()
		b.Grow(len(out) - e.Span.Len() + len(e.NewText))
		b.WriteString(out[:e.Span.Start])
		b.WriteString(e.NewText)
		b.WriteString(out[e.Span.End:])
		out = b.String()
	}
	return out, len(sorted), nil
}
