package calc

import (
	"context"
	"strings"
)

// Session evaluates calculations one line at a time against a symbol table
// and unit registry that persist between calls. It backs the interactive
// prompt and is not safe for concurrent use.
type Session struct {
	run *run
}

// SessionResult is the outcome of one Session.Eval call.
type SessionResult struct {
	Kind        CalcKind
	Name        string
	Output      string
	Diagnostics []*Diagnostic
}

func (r SessionResult) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (e *Engine) NewSession() *Session {
	return &Session{run: e.newRun(context.Background())}
}

// Eval runs one line written without math delimiters. A line with no
// operator is evaluated as if it ended in `==`.
func (s *Session) Eval(ctx context.Context, line string) SessionResult {
	line = strings.TrimSpace(line)
	c := parseCalcLine(line, Span{Start: 0, End: len(line)}, false)
	if c == nil {
		line += " =="
		c = parseCalcLine(line, Span{Start: 0, End: len(line)}, false)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.run.ctx = ctx
	out := s.run.calculate(line, c)
	return SessionResult{
		Kind:        c.Kind,
		Name:        out.name,
		Output:      out.display,
		Diagnostics: out.diags,
	}
}

// Symbols lists what the session has defined so far.
func (s *Session) Symbols() []Symbol {
	return s.run.symbols.Symbols()
}

// Units lists the units defined in the session.
func (s *Session) Units() []Unit {
	return s.run.customUnits()
}

func (s *Session) Stats() Stats {
	return s.run.stats
}

// Format renders a symbol's value the way results are rendered. Functions
// render as their signature.
func (s *Session) Format(sym Symbol) string {
	if sym.Kind == SymbolFunction {
		return sym.Display + "(" + strings.Join(sym.Params, ", ") + ")"
	}
	text, _ := FormatQuantity(sym.Value, "", s.run.units, s.run.engine.config.Format)
	return text
}

// Reset forgets every symbol and custom unit.
func (s *Session) Reset() {
	s.run = s.run.engine.newRun(context.Background())
}
