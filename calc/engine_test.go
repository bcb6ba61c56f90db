package calc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(Config{OmitMetadata: true})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func processText(t *testing.T, engine *Engine, src string) *Result {
	t.Helper()
	res, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return res
}

func diagnosticKinds(diags []*Diagnostic) []DiagnosticKind {
	kinds := make([]DiagnosticKind, len(diags))
	for i, d := range diags {
		kinds[i] = d.Kind
	}
	return kinds
}

func requireDiagnostic(t *testing.T, res *Result, kind DiagnosticKind) *Diagnostic {
	t.Helper()
	for _, d := range res.Diagnostics {
		if d.Kind == kind {
			return d
		}
	}
	t.Fatalf("expected %s diagnostic, got %v", kind, diagnosticKinds(res.Diagnostics))
	return nil
}

func TestNewEngineDefaults(t *testing.T) {
	engine := MustNewEngine(Config{})
	cfg := engine.Config()
	if cfg.StepQuota != 100000 || cfg.RecursionLimit != 64 || cfg.CalcTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Format.Digits != DefaultDigits || cfg.Format.Notation != NotationAuto {
		t.Fatalf("unexpected default format %+v", cfg.Format)
	}
	if _, err := NewEngine(Config{Format: FormatOptions{Digits: 40}}); err == nil {
		t.Fatalf("expected digits out of range to fail")
	}
	if _, err := NewEngine(Config{Format: FormatOptions{Notation: "roman"}}); err == nil {
		t.Fatalf("expected unknown notation to fail")
	}
}

func TestProcessDefinesAndEvaluates(t *testing.T) {
	engine := newTestEngine(t)
	src := "# Physics\n\n$m := 5\\ kg$\n$a := 9.81\\ m/s^2$\n\n$F := m \\cdot a ==$\n"
	res := processText(t, engine, src)

	want := "# Physics\n\n$m := 5\\ kg$\n$a := 9.81\\ m/s^2$\n\n$F := m \\cdot a == 49.05\\ \\text{N}$\n"
	if res.Text != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", res.Text, want)
	}
	if res.Stats.Definitions != 3 || res.Stats.Evaluations != 1 || res.Stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if len(res.Calculations) != 3 || res.Calculations[2].Line != 6 {
		t.Fatalf("unexpected calculation reports %+v", res.Calculations)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	src := strings.Join([]string{
		"$x := 2\\ m$ and $y := 3\\ s$",
		"$x + y ==$",
		"$v := [1, 2, 3]$",
		"$2 \\cdot v ==$",
		"$z := q + 1$",
		"$E := 1000\\ J$",
		"$E ==$ [kJ]",
		"$E == [furlong]$",
		"$$",
		"r := 2 \\\\",
		"\\pi \\cdot r^2 ==",
		"$$",
		"",
	}, "\n")

	first := processText(t, engine, src)
	second := processText(t, engine, first.Text)
	if first.Text != second.Text {
		t.Fatalf("second run changed the document:\n%s\n---\n%s", first.Text, second.Text)
	}
	if second.Edits != 0 {
		t.Fatalf("expected no edits on the second run, got %d", second.Edits)
	}
}

func TestProcessIdempotentWithMetadata(t *testing.T) {
	engine := MustNewEngine(Config{Now: fixedTime})
	src := "$x := 4$\n$x^2 ==$\n"
	first := processText(t, engine, src)
	if !strings.Contains(first.Text, "<!-- livemath: 2026-01-02T03:04:05Z | definitions=1 evaluations=1") {
		t.Fatalf("expected metadata comment, got:\n%s", first.Text)
	}
	second := processText(t, engine, first.Text)
	a, _ := StripMetadata(first.Text)
	b, _ := StripMetadata(second.Text)
	if a != b {
		t.Fatalf("outputs differ beyond metadata:\n%s\n---\n%s", a, b)
	}
	if strings.Count(second.Text, metaTag) != 1 {
		t.Fatalf("metadata must not accumulate:\n%s", second.Text)
	}
}

func TestClearInvertsProcess(t *testing.T) {
	engine := MustNewEngine(Config{Now: fixedTime})
	src := "$x := 2\\ m$\n$y := 3\\ s$\n$x + y ==$\n$z := w$\n$x \\cdot 2 ==$ [cm]\n$x == [km]$\n"
	res := processText(t, engine, src)
	if res.Text == src {
		t.Fatalf("expected process to change the document")
	}
	cleared, err := engine.Clear(res.Text)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != src {
		t.Fatalf("clear did not restore the source:\n%q\nwant:\n%q", cleared, src)
	}
	again := processText(t, engine, cleared)
	a, _ := StripMetadata(again.Text)
	b, _ := StripMetadata(res.Text)
	if a != b {
		t.Fatalf("processing the cleared text gave a different result")
	}
}

func TestUnitHintSurvivesReprocessing(t *testing.T) {
	engine := newTestEngine(t)
	src := "$E := 1000\\ J$\n\n$E ==$ [kJ]\n"
	res := processText(t, engine, src)
	want := "$E := 1000\\ J$\n\n$E == 1\\ \\text{kJ}$ [kJ]\n"
	if res.Text != want {
		t.Fatalf("unexpected output %q, want %q", res.Text, want)
	}
	res = processText(t, engine, res.Text)
	if res.Text != want {
		t.Fatalf("hint lost on reprocessing: %q", res.Text)
	}

	inline := processText(t, engine, "$E := 1000\\ J$ $E == [kJ]$")
	if !strings.HasSuffix(inline.Text, `$E == [kJ] 1\ \text{kJ}$`) {
		t.Fatalf("unexpected inline hint output %q", inline.Text)
	}

	comment := processText(t, engine, "$P := 1234.5\\ W$\n$P ==$\n<!-- [kW] digits:2 -->\n")
	if !strings.Contains(comment.Text, `$P == 1.2\ \text{kW}$`) {
		t.Fatalf("unexpected comment hint output %q", comment.Text)
	}
}

func TestIncompatibleDimensions(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$a := 2\\ m$\n$b := 3\\ s$\n$a + b ==$\n")
	diag := requireDiagnostic(t, res, KindIncompatibleDimensions)
	if diag.Line != 3 {
		t.Fatalf("expected diagnostic on line 3, got %d", diag.Line)
	}
	if !strings.Contains(res.Text, `$a + b == \color{red}{\text{Error: cannot add length and time}}$`) {
		t.Fatalf("unexpected error markup:\n%s", res.Text)
	}
}

func TestDisplayUnitMismatchWarns(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$E := 1000\\ J$ $E == [kg]$")
	diag := requireDiagnostic(t, res, KindIncompatibleDimensions)
	if diag.Severity != SeverityWarning {
		t.Fatalf("expected a warning, got %s", diag.Severity)
	}
	if !strings.Contains(res.Text, `1000\ \text{J} \color{orange}{\text{Warning: `) {
		t.Fatalf("expected SI value with warning markup:\n%s", res.Text)
	}
	if res.Stats.Warnings != 1 || res.Stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
}

func TestArrayBroadcasting(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$v := [1, 2, 3]$\n$2 \\cdot v ==$\n$v + [10, 20, 30] ==$\n$v[1] ==$\n")
	for _, want := range []string{`$2 \cdot v == [2, 4, 6]$`, `$v + [10, 20, 30] == [11, 22, 33]$`, `$v[1] == 2$`} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("expected %q in output:\n%s", want, res.Text)
		}
	}

	res = processText(t, engine, "$[1, 2] + [1, 2, 3] ==$")
	requireDiagnostic(t, res, KindArrayLengthMismatch)

	for _, index := range []string{"5", "-1", "1e30", "1.5"} {
		res = processText(t, engine, "$v := [1, 2]$ $v["+index+"] ==$")
		requireDiagnostic(t, res, KindIndexOutOfRange)
	}
}

func TestForwardReferenceIsUndefined(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$y := x + 1$\n$x := 2$\n$y ==$\n")
	diag := requireDiagnostic(t, res, KindUndefinedVariable)
	if diag.Line != 1 || diag.Column != 7 {
		t.Fatalf("expected diagnostic at 1:7, got %d:%d", diag.Line, diag.Column)
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("expected the later use of y to fail too, got %v", diagnosticKinds(res.Diagnostics))
	}
}

func TestUndefinedVariableHints(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$m := 2$ $a := 3$ $ma ==$")
	diag := requireDiagnostic(t, res, KindUndefinedVariable)
	if !strings.Contains(diag.Hint, "m*a") {
		t.Fatalf("expected implicit multiplication hint, got %q", diag.Hint)
	}

	res = processText(t, engine, "$velocity := 2$ $velocty ==$")
	diag = requireDiagnostic(t, res, KindUndefinedVariable)
	if !strings.Contains(diag.Hint, `"velocity"`) {
		t.Fatalf("expected spelling hint, got %q", diag.Hint)
	}
}

func TestFunctions(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$f(x) := x^2 + 1$\n$f(3) ==$\n$g(a, b) := a \\cdot b$\n$g(2\\ m, 3\\ m) ==$\n")
	if !strings.Contains(res.Text, `$f(3) == 10$`) {
		t.Fatalf("unexpected function result:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, `$g(2\ m, 3\ m) == 6\ \text{m}^{2}$`) {
		t.Fatalf("unexpected two-argument result:\n%s", res.Text)
	}
}

func TestRecursionLimitIsTimeout(t *testing.T) {
	engine := MustNewEngine(Config{RecursionLimit: 8, OmitMetadata: true})
	res := processText(t, engine, "$f(n) := f(n)$\n$f(1) ==$\n")
	diag := requireDiagnostic(t, res, KindEvaluationTimeout)
	if !strings.Contains(diag.Message, "recursion depth exceeded") {
		t.Fatalf("unexpected message %q", diag.Message)
	}
}

func TestStepQuotaIsTimeout(t *testing.T) {
	engine := MustNewEngine(Config{StepQuota: 5, OmitMetadata: true})
	res := processText(t, engine, "$1 + 2 + 3 + 4 + 5 + 6 ==$")
	requireDiagnostic(t, res, KindEvaluationTimeout)
}

func TestCanceledContextIsTimeout(t *testing.T) {
	engine := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := engine.Process(ctx, "$1 + 1 ==$")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireDiagnostic(t, res, KindEvaluationTimeout)
}

func TestSymbolicDerivationUnsupported(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$y => x^2$")
	requireDiagnostic(t, res, KindUnsupported)
	again := processText(t, engine, res.Text)
	if again.Text != res.Text {
		t.Fatalf("unsupported markup must be stable:\n%s\n%s", res.Text, again.Text)
	}
}

func TestCustomUnits(t *testing.T) {
	engine := newTestEngine(t)
	src := strings.Join([]string{
		"$\\text{widget} ===$",
		"$w := 3\\ \\text{widget}$",
		"$w \\cdot 2 ==$",
		"$\\text{dozen} === 12$",
		"$2\\ \\text{dozen} ==$",
		"",
	}, "\n")
	res := processText(t, engine, src)
	if !strings.Contains(res.Text, `$w \cdot 2 == 6\ \text{widget}$`) {
		t.Fatalf("unexpected custom unit output:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, `$2\ \text{dozen} == 24$`) {
		t.Fatalf("unexpected derived unit output:\n%s", res.Text)
	}
	if res.Stats.Units != 2 || len(res.Units) != 2 {
		t.Fatalf("expected 2 custom units, got %d (%v)", res.Stats.Units, res.Units)
	}
}

func TestUnitDefinitionErrors(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$\\text{m} === 2$")
	requireDiagnostic(t, res, KindRedefinitionOfBuiltinUnit)

	res = processText(t, engine, "$kg := 5$")
	requireDiagnostic(t, res, KindUnitNameConflict)

	res = processText(t, engine, "$\\text{widget} ===$ $widget := 3$")
	requireDiagnostic(t, res, KindUnitNameConflict)
}

func TestArithmeticErrors(t *testing.T) {
	engine := newTestEngine(t)
	tests := []struct {
		src  string
		kind DiagnosticKind
	}{
		{"$1 / 0 ==$", KindDivisionByZero},
		{"$\\sqrt{-4} ==$", KindDomainError},
		{"$\\ln(0 - 1) ==$", KindDomainError},
		{"$\\sin(2\\ m) ==$", KindIncompatibleDimensions},
		{"$2^{3\\ m} ==$", KindIncompatibleDimensions},
		{"$2 x ==$", KindParseError},
		{"$5\\ \\text{furlong} ==$", KindUnknownUnit},
	}
	for _, tt := range tests {
		res := processText(t, engine, tt.src)
		if len(res.Diagnostics) == 0 || res.Diagnostics[0].Kind != tt.kind {
			t.Fatalf("%s: expected %s, got %v", tt.src, tt.kind, diagnosticKinds(res.Diagnostics))
		}
	}
}

func TestBuiltinFunctionsAndConstants(t *testing.T) {
	engine := newTestEngine(t)
	src := "$\\sqrt{16\\ m^2} ==$\n$\\sqrt[3]{27} ==$\n$\\max(2, 7, 3) ==$\n$\\abs(-3\\ s) ==$\n$\\cos(0) ==$\n$\\frac{\\pi}{\\pi} ==$\n"
	res := processText(t, engine, src)
	for _, want := range []string{
		`$\sqrt{16\ m^2} == 4\ \text{m}$`,
		`$\sqrt[3]{27} == 3$`,
		`$\max(2, 7, 3) == 7$`,
		`$\abs(-3\ s) == 3\ \text{s}$`,
		`$\cos(0) == 1$`,
		`$\frac{\pi}{\pi} == 1$`,
	} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("expected %q in output:\n%s", want, res.Text)
		}
	}
}

func TestScanErrorAbortsRun(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Process(context.Background(), "$$\nx == \n")
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("expected ScanError, got %v", err)
	}
	if _, err := engine.Clear("$$\nx == 1\n"); err == nil {
		t.Fatalf("expected clear to fail on an unterminated block")
	}
}

func TestSymbolsKeepIDsAcrossRedefinition(t *testing.T) {
	engine := newTestEngine(t)
	res := processText(t, engine, "$x := 1$ $f(t) := t$ $x := 2$ $y := x$")
	var ids []string
	for _, sym := range res.Symbols {
		ids = append(ids, sym.Name+"="+sym.ID)
	}
	got := strings.Join(ids, " ")
	if got != "π=v0 x=v1 f=f0 y=v2" {
		t.Fatalf("unexpected symbol ids %q", got)
	}
}

func TestUnclosedBraceMarkupIsStable(t *testing.T) {
	engine := newTestEngine(t)
	for _, src := range []string{
		"$x := \\frac{1}{2$\n",
		"$x := {1 + 2 ==$\n",
		"$\\frac{1{2} ==$\n",
	} {
		first := processText(t, engine, src)
		requireDiagnostic(t, first, KindParseError)
		if len(first.Diagnostics) != 1 || strings.Count(first.Text, errorMarkupPrefix) != 1 {
			t.Fatalf("%q: expected one error, got %v in %q", src, diagnosticKinds(first.Diagnostics), first.Text)
		}

		second := processText(t, engine, first.Text)
		if second.Text != first.Text || len(second.Diagnostics) != 1 {
			t.Fatalf("%q: reprocessing changed the document:\n%s\n---\n%s", src, first.Text, second.Text)
		}

		cleared, err := engine.Clear(second.Text)
		if err != nil {
			t.Fatalf("clear: %v", err)
		}
		if cleared != src {
			t.Fatalf("%q: clear left %q", src, cleared)
		}
	}
}

func TestTrailingBracketsNeedAUnit(t *testing.T) {
	engine := newTestEngine(t)
	src := "$a := 2000\\ J$\n$a ==$ [see notes]\n$a ==$ [kJ]\n"
	res := processText(t, engine, src)
	want := "$a := 2000\\ J$\n$a == 2000\\ \\text{J}$ [see notes]\n$a == 2\\ \\text{kJ}$ [kJ]\n"
	if res.Text != want {
		t.Fatalf("unexpected output %q, want %q", res.Text, want)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diagnosticKinds(res.Diagnostics))
	}
	if res.Calculations[1].Hint != "" || res.Calculations[2].Hint != "kJ" {
		t.Fatalf("unexpected hints %+v", res.Calculations)
	}
}

func TestHugeUnitExponentFinishes(t *testing.T) {
	engine := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := engine.Process(ctx, "$x := 5\\ \\text{m^{99999999999}} ==$\n")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, d := range res.Diagnostics {
		if d.Kind == KindEvaluationTimeout {
			t.Fatalf("unit exponent must not exhaust the time budget: %v", d)
		}
	}
}
