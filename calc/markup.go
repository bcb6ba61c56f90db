package calc

import "strings"

const (
	errorMarkupPrefix   = `\color{red}{\text{Error: `
	warningMarkupPrefix = `\color{orange}{\text{Warning: `
	markupSuffix        = `}}`
	markupStart         = `\color{`
)

var textEscapes = map[rune]string{
	'\\': `\textbackslash{}`,
	'{':  `\{`,
	'}':  `\}`,
	'$':  `\$`,
	'_':  `\_`,
	'^':  `\textasciicircum{}`,
	'#':  `\#`,
	'%':  `\%`,
	'&':  `\&`,
	'~':  `\textasciitilde{}`,
}

// escapeText makes s safe inside \text{…}. The result never contains an
// unescaped brace or dollar, so markup built from it stays balanced and
// never ends a math block early.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if esc, ok := textEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// renderDiagnostic builds the inline markup for a diagnostic. The whole
// span is one brace-balanced group starting with \color{.
func renderDiagnostic(d *Diagnostic) string {
	prefix := errorMarkupPrefix
	if d.Severity == SeverityWarning {
		prefix = warningMarkupPrefix
	}
	msg := d.Message
	if d.Hint != "" {
		msg += " (" + d.Hint + ")"
	}
	return prefix + escapeText(msg) + markupSuffix
}

// markupEnd returns the offset just past the markup span starting at
// s[start] (which must begin with \color{), or -1 if the span is not
// balanced.
func markupEnd(s string, start int) int {
	if !strings.HasPrefix(s[start:], markupStart) {
		return -1
	}
	open := start + len(markupStart) - 1
	end, ok := matchBrace(s, open)
	if !ok {
		return -1
	}
	i := end + 1
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) || s[i] != '{' {
		return -1
	}
	end, ok = matchBrace(s, i)
	if !ok {
		return -1
	}
	return end + 1
}
