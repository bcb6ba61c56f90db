package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/mgomes/livemath/calc"
)

// reporter writes diagnostics and run summaries to the error stream.
type reporter struct {
	w       io.Writer
	verbose bool

	errColor  *color.Color
	warnColor *color.Color
	pathColor *color.Color
	dimColor  *color.Color
}

func newReporter(w io.Writer, colorMode string, verbose bool) (*reporter, error) {
	var useColor bool
	switch strings.ToLower(colorMode) {
	case "on":
		useColor = true
	case "off":
		useColor = false
	case "auto", "":
		f, ok := w.(*os.File)
		useColor = ok && isTerminal(f)
	default:
		return nil, fmt.Errorf("unsupported color mode %q (must be auto, on or off)", colorMode)
	}

	r := &reporter{
		w:         w,
		verbose:   verbose,
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow, color.Bold),
		pathColor: color.New(color.Bold),
		dimColor:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.errColor, r.warnColor, r.pathColor, r.dimColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// diagnostics prints one line per diagnostic:
// path:line:col: severity: Kind: message (hint).
func (r *reporter) diagnostics(path string, diags []*calc.Diagnostic) {
	for _, d := range diags {
		sev := r.errColor.Sprint("error")
		if d.Severity == calc.SeverityWarning {
			sev = r.warnColor.Sprint("warning")
		}
		loc := path
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", path, d.Line, d.Column)
		}
		msg := d.Message
		if d.Hint != "" {
			msg += " (" + d.Hint + ")"
		}
		fmt.Fprintf(r.w, "%s: %s: %s: %s\n", r.pathColor.Sprint(loc), sev, d.Kind, msg)
	}
}

func (r *reporter) stats(path string, st calc.Stats, note string) {
	if !r.verbose {
		return
	}
	line := fmt.Sprintf("%d definitions, %d evaluations, %d units, %d errors, %d warnings in %s",
		st.Definitions, st.Evaluations, st.Units, st.Errors, st.Warnings, st.Duration.Round(time.Microsecond))
	if note != "" {
		line = note
	}
	fmt.Fprintf(r.w, "%s %s\n", r.pathColor.Sprint(path+":"), r.dimColor.Sprint(line))
}

func (r *reporter) errorf(format string, args ...any) {
	fmt.Fprintf(r.w, "%s: %s\n", r.errColor.Sprint("error"), fmt.Sprintf(format, args...))
}

// writeTable prints rows in columns padded to the widest cell, measured in
// terminal cells.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}
