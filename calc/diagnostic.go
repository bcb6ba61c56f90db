package calc

import (
	"errors"
	"fmt"
)

// Severity grades a diagnostic. Errors replace the result of a calculation;
// warnings accompany a result.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DiagnosticKind classifies what went wrong in a calculation.
type DiagnosticKind string

const (
	KindParseError                DiagnosticKind = "ParseError"
	KindUndefinedVariable         DiagnosticKind = "UndefinedVariable"
	KindUnitNameConflict          DiagnosticKind = "UnitNameConflict"
	KindIncompatibleDimensions    DiagnosticKind = "IncompatibleDimensions"
	KindArrayLengthMismatch       DiagnosticKind = "ArrayLengthMismatch"
	KindUnknownUnit               DiagnosticKind = "UnknownUnit"
	KindEvaluationTimeout         DiagnosticKind = "EvaluationTimeout"
	KindRedefinitionOfBuiltinUnit DiagnosticKind = "RedefinitionOfBuiltinUnit"
	KindIndexOutOfRange           DiagnosticKind = "IndexOutOfRange"
	KindDivisionByZero            DiagnosticKind = "DivisionByZero"
	KindDomainError               DiagnosticKind = "DomainError"
	KindUnsupported               DiagnosticKind = "Unsupported"
	KindUnknownReference          DiagnosticKind = "UnknownReference"
)

// Diagnostic is the failure (or warning) of one calculation. Pos is a byte
// offset: relative to the expression while evaluating, absolute in the
// document once attached to a Result. It is -1 when no position applies.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Kind     DiagnosticKind `json:"kind"`
	Message  string         `json:"message"`
	Hint     string         `json:"hint,omitempty"`
	Pos      int            `json:"pos"`
	Line     int            `json:"line,omitempty"`
	Column   int            `json:"column,omitempty"`
}

func (d *Diagnostic) Error() string {
	msg := d.Message
	if d.Hint != "" {
		msg += " (" + d.Hint + ")"
	}
	if d.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", d.Kind, msg)
}

func newDiagnostic(kind DiagnosticKind, pos int, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

func newWarning(kind DiagnosticKind, pos int, format string, args ...any) *Diagnostic {
	d := newDiagnostic(kind, pos, format, args...)
	d.Severity = SeverityWarning
	return d
}

// asDiagnostic converts any evaluation error into a diagnostic. Errors that
// are not already diagnostics are reported as parse errors when they come
// from the parser and as evaluation timeouts when they carry one of the
// limit sentinels.
func asDiagnostic(err error) *Diagnostic {
	var diag *Diagnostic
	if errors.As(err, &diag) {
		return diag
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		return &Diagnostic{Severity: SeverityError, Kind: KindParseError, Message: perr.Msg, Pos: perr.Offset}
	}
	if isLimitError(err) {
		return newDiagnostic(KindEvaluationTimeout, -1, "%s", err.Error())
	}
	return newDiagnostic(KindUnsupported, -1, "%s", err.Error())
}

// shift returns a copy of the diagnostic with its position moved by off.
func (d *Diagnostic) shift(off int) *Diagnostic {
	out := *d
	if out.Pos >= 0 {
		out.Pos += off
	}
	return &out
}
