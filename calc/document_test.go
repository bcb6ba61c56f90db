package calc

import (
	"errors"
	"strings"
	"testing"
)

func TestScanMathBlocks(t *testing.T) {
	src := "a $x$ b `$y$` <!-- $z$ --> $$w$$ \\$5 and $6\n"
	blocks, opaque, err := scanMathBlocks(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if got := blocks[0].Content.text(src); got != "x" || blocks[0].Display {
		t.Fatalf("unexpected first block %q", got)
	}
	if got := blocks[1].Content.text(src); got != "w" || !blocks[1].Display {
		t.Fatalf("unexpected display block %q", got)
	}
	if len(opaque) != 2 {
		t.Fatalf("expected code span and comment to be opaque, got %+v", opaque)
	}
	if got := opaque[0].text(src); got != "`$y$`" {
		t.Fatalf("unexpected code span %q", got)
	}
}

func TestScanMathBlocksSkipsFences(t *testing.T) {
	src := "```\n$x == 1$\n```\n$y == 2$\n"
	blocks, _, err := scanMathBlocks(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Content.text(src) != "y == 2" {
		t.Fatalf("expected only the block after the fence, got %+v", blocks)
	}
}

func TestScanMathBlocksInlineStaysOnOneLine(t *testing.T) {
	src := "costs $5 and\nthen $x == 1$"
	blocks, _, err := scanMathBlocks(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Content.text(src) != "x == 1" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestScanMathBlocksUnterminatedDisplay(t *testing.T) {
	_, err := ParseDocument("intro\n$$\nx == \n")
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("expected ScanError, got %v", err)
	}
	if scanErr.Line != 2 {
		t.Fatalf("expected error on line 2, got %d", scanErr.Line)
	}
}

func TestParseCalcLineKinds(t *testing.T) {
	tests := []struct {
		line   string
		kind   CalcKind
		target string
		expr   string
	}{
		{`x := 3`, CalcDefine, "x", "3"},
		{`x == `, CalcEvaluate, "", "x"},
		{`F := m \cdot a == 49.05`, CalcDefineAndEvaluate, "F", `m \cdot a`},
		{`\text{widget} ===`, CalcUnitDefine, `\text{widget}`, ""},
		{`\text{kWh} === 3.6\ \text{MJ}`, CalcUnitDefine, `\text{kWh}`, `3.6\ \text{MJ}`},
		{`y => x`, CalcSymbolic, "y", "x"},
		{`f(x) := \frac{x}{2}`, CalcDefine, "f(x)", `\frac{x}{2}`},
	}
	for _, tt := range tests {
		c := parseCalcLine(tt.line, Span{Start: 0, End: len(tt.line)}, false)
		if c == nil {
			t.Fatalf("parseCalcLine(%q) found no calculation", tt.line)
		}
		if c.Kind != tt.kind {
			t.Fatalf("parseCalcLine(%q) kind = %s, want %s", tt.line, c.Kind, tt.kind)
		}
		if got := c.Target.text(tt.line); got != tt.target {
			t.Fatalf("parseCalcLine(%q) target = %q, want %q", tt.line, got, tt.target)
		}
		if got := c.Expr.text(tt.line); got != tt.expr {
			t.Fatalf("parseCalcLine(%q) expr = %q, want %q", tt.line, got, tt.expr)
		}
	}

	if c := parseCalcLine(`x + 1`, Span{Start: 0, End: 5}, false); c != nil {
		t.Fatalf("expected no calculation without an operator, got %+v", c)
	}
}

func TestParseCalcLineResultRegions(t *testing.T) {
	line := `x == 12\ \text{m}`
	c := parseCalcLine(line, Span{Start: 0, End: len(line)}, false)
	if got := c.Result.text(line); got != ` 12\ \text{m}` {
		t.Fatalf("evaluate result region = %q", got)
	}

	line = `x == [kJ] 1\ \text{kJ}`
	c = parseCalcLine(line, Span{Start: 0, End: len(line)}, false)
	if c.Hint != "kJ" || c.HintSource != HintInline {
		t.Fatalf("expected inline hint, got %q", c.Hint)
	}
	if got := c.Result.text(line); got != ` 1\ \text{kJ}` {
		t.Fatalf("hinted result region = %q", got)
	}

	line = `y := x + 1 ` + renderDiagnostic(newDiagnostic(KindUndefinedVariable, 0, `undefined variable "x"`))
	c = parseCalcLine(line, Span{Start: 0, End: len(line)}, false)
	if got := c.Expr.text(line); got != "x + 1" {
		t.Fatalf("expression must stop before the markup, got %q", got)
	}
	if !strings.HasPrefix(c.Result.text(line), " "+errorMarkupPrefix) {
		t.Fatalf("result region must cover the markup, got %q", c.Result.text(line))
	}

	line = `y := 3 \\`
	c = parseCalcLine(line, Span{Start: 0, End: len(line)}, true)
	if got := c.Expr.text(line); got != "3" {
		t.Fatalf("line break must not be part of the expression, got %q", got)
	}
	if !c.Result.Empty() {
		t.Fatalf("expected empty result region, got %q", c.Result.text(line))
	}
}

func TestParseDocumentBlockHints(t *testing.T) {
	src := "$E ==$ [kJ]\n\n$P ==$\n<!-- [kW] digits:2 format:sci -->\n"
	doc, err := ParseDocument(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Calculations) != 2 {
		t.Fatalf("expected 2 calculations, got %d", len(doc.Calculations))
	}
	first, second := doc.Calculations[0], doc.Calculations[1]
	if first.Hint != "kJ" || first.HintSource != HintTrailing {
		t.Fatalf("expected trailing hint, got %q", first.Hint)
	}
	if second.Hint != "kW" || second.HintSource != HintComment {
		t.Fatalf("expected comment hint, got %q", second.Hint)
	}
	if second.Format.Digits != 2 || second.Format.Notation != NotationSci {
		t.Fatalf("unexpected format override %+v", second.Format)
	}
}

func TestParseDocumentDisplayLines(t *testing.T) {
	src := "$$\nx := 3 \\\\\ny := x^2 \\\\\ny ==\n$$\n"
	doc, err := ParseDocument(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Calculations) != 3 {
		t.Fatalf("expected 3 calculations, got %d", len(doc.Calculations))
	}
	kinds := []CalcKind{CalcDefine, CalcDefine, CalcEvaluate}
	for i, c := range doc.Calculations {
		if c.Kind != kinds[i] {
			t.Fatalf("calculation %d kind = %s, want %s", i, c.Kind, kinds[i])
		}
		if !c.Display {
			t.Fatalf("calculation %d should be a display calculation", i)
		}
	}
	var covered int
	for _, seg := range doc.Segments {
		covered += seg.Len()
	}
	if covered != len(src) {
		t.Fatalf("segments cover %d of %d bytes", covered, len(src))
	}
}

func TestApplyEdits(t *testing.T) {
	src := "a == ;b == ;"
	out, n, err := applyEdits(src, []TextEdit{
		{Span: Span{Start: 4, End: 5}, NewText: " 1"},
		{Span: Span{Start: 10, End: 11}, NewText: " 2"},
		{Span: Span{Start: 11, End: 11}, NewText: ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a == 1;b == 2;" {
		t.Fatalf("unexpected output %q", out)
	}
	if n != 2 {
		t.Fatalf("expected 2 applied edits, got %d", n)
	}

	_, _, err = applyEdits(src, []TextEdit{
		{Span: Span{Start: 0, End: 4}, NewText: "x"},
		{Span: Span{Start: 3, End: 6}, NewText: "y"},
	})
	if err == nil {
		t.Fatalf("expected overlapping edits to fail")
	}
}

func TestStripMetadata(t *testing.T) {
	body := "$x == 1$\n"
	withMeta := appendMetadata(body, Stats{Evaluations: 1}, fixedTime())
	stripped, ok := StripMetadata(withMeta)
	if !ok || stripped != body {
		t.Fatalf("expected metadata to be stripped, got %q", stripped)
	}

	inner := withMeta + "more text\n"
	if _, ok := StripMetadata(inner); ok {
		t.Fatalf("metadata that is not trailing must be kept")
	}
	if _, ok := StripMetadata(body + "<!-- a note -->\n"); ok {
		t.Fatalf("ordinary comments must be kept")
	}
}
