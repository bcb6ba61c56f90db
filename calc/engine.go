package calc

import (
	"context"
	"fmt"
	"time"
)

// Config carries the per-calculation limits and the default number format.
type Config struct {
	StepQuota      int
	RecursionLimit int
	CalcTimeout    time.Duration
	Format         FormatOptions

	// OmitMetadata leaves out the trailing run-metadata comment.
	OmitMetadata bool
	// Now stamps the metadata comment; time.Now when nil.
	Now func() time.Time
}

// Engine processes documents. It holds configuration only; every call
// builds its own unit registry and symbol table, so one Engine can serve
// concurrent calls.
type Engine struct {
	config Config
}

// NewEngine constructs an Engine, filling in defaults for unset limits.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.StepQuota <= 0 {
		cfg.StepQuota = 100000
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = 64
	}
	if cfg.CalcTimeout <= 0 {
		cfg.CalcTimeout = time.Second
	}
	if cfg.Format.Digits < 0 || cfg.Format.Digits > MaxDigits {
		return nil, fmt.Errorf("digits must be between 1 and %d, got %d", MaxDigits, cfg.Format.Digits)
	}
	if _, err := ParseNotation(string(cfg.Format.Notation)); err != nil {
		return nil, err
	}
	cfg.Format = cfg.Format.normalized()
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{config: cfg}, nil
}

func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

func (e *Engine) Config() Config {
	return e.config
}

// Stats counts what one run did.
type Stats struct {
	Definitions int           `json:"definitions"`
	Evaluations int           `json:"evaluations"`
	Units       int           `json:"units"`
	Errors      int           `json:"errors"`
	Warnings    int           `json:"warnings"`
	Duration    time.Duration `json:"duration"`
}

func (s *Stats) count(diags []*Diagnostic) {
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			s.Warnings++
		} else {
			s.Errors++
		}
	}
}

// run is the state of one pass over a document: its own unit registry and
// symbol table, filled in document order.
type run struct {
	engine  *Engine
	ctx     context.Context
	units   *UnitRegistry
	symbols *SymbolTable
	stats   Stats
}

func (e *Engine) newRun(ctx context.Context) *run {
	if ctx == nil {
		ctx = context.Background()
	}
	return &run{
		engine:  e,
		ctx:     ctx,
		units:   NewUnitRegistry(),
		symbols: newSymbolTable(),
	}
}

func (r *run) scope(defining string) runScope {
	return runScope{units: r.units, symbols: r.symbols, defining: defining}
}

// evaluate parses and evaluates one expression under the per-calculation
// limits. Diagnostic positions are relative to source.
func (r *run) evaluate(source string) (Quantity, *Diagnostic) {
	expr, err := ParseExpr(source, r.scope(""))
	if err != nil {
		return Quantity{}, asDiagnostic(err)
	}
	return r.evaluateExpr(expr)
}

func (r *run) evaluateExpr(expr Expr) (Quantity, *Diagnostic) {
	cfg := r.engine.config
	ctx, cancel := context.WithTimeout(r.ctx, cfg.CalcTimeout)
	defer cancel()

	exec := &execution{
		ctx:          ctx,
		units:        r.units,
		symbols:      r.symbols,
		quota:        cfg.StepQuota,
		recursionCap: cfg.RecursionLimit,
	}
	q, err := exec.eval(expr)
	if err != nil {
		if isLimitError(err) {
			return Quantity{}, timeoutDiagnostic(err, expr.Pos())
		}
		return Quantity{}, asDiagnostic(err)
	}
	if err := checkFinite(q, expr.Pos()); err != nil {
		return Quantity{}, asDiagnostic(err)
	}
	return q, nil
}

// formatOptions merges a calculation's overrides into the engine default.
func (r *run) formatOptions(c *Calculation) FormatOptions {
	opts := r.engine.config.Format
	if c.Format.Digits > 0 {
		opts.Digits = c.Format.Digits
	}
	if c.Format.Notation != "" {
		opts.Notation = c.Format.Notation
	}
	return opts
}
