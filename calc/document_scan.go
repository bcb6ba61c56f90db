package calc

import (
	"strconv"
	"strings"
)

// MathBlock is an inline `$…$` or display `$$…$$` block.
type MathBlock struct {
	Outer   Span `json:"outer"`
	Content Span `json:"content"`
	Display bool `json:"display"`
}

// scanMathBlocks finds the math blocks of a Markdown text. Fenced code,
// inline code spans, HTML comments and escaped dollars are skipped. An
// inline block must close on its own line, otherwise its `$` is literal.
// An unclosed `$$` is an error. The skipped code and comment regions are
// returned alongside the blocks.
func scanMathBlocks(src string) ([]MathBlock, []Span, error) {
	var (
		blocks []MathBlock
		opaque []Span
	)
	i := 0
	for i < len(src) {
		if i == 0 || src[i-1] == '\n' {
			if end, ok := fenceEnd(src, i); ok {
				opaque = append(opaque, Span{Start: i, End: end})
				i = end
				continue
			}
		}
		c := src[i]
		switch {
		case strings.HasPrefix(src[i:], "<!--"):
			start := i
			end := strings.Index(src[i+4:], "-->")
			if end < 0 {
				i = len(src)
			} else {
				i += 4 + end + 3
			}
			opaque = append(opaque, Span{Start: start, End: i})
		case c == '`':
			n := runLength(src, i, '`')
			if closeAt := findBacktickRun(src, i+n, n); closeAt >= 0 {
				opaque = append(opaque, Span{Start: i, End: closeAt + n})
				i = closeAt + n
			} else {
				i += n
			}
		case c == '\\':
			i += 2
		case strings.HasPrefix(src[i:], "$$"):
			closeAt := findDollars(src, i+2, "$$", false)
			if closeAt < 0 {
				line, _ := lineColumn(src, i)
				return nil, nil, &ScanError{Offset: i, Line: line, Msg: "unterminated $$ block"}
			}
			blocks = append(blocks, MathBlock{
				Outer:   Span{Start: i, End: closeAt + 2},
				Content: Span{Start: i + 2, End: closeAt},
				Display: true,
			})
			i = closeAt + 2
		case c == '$':
			closeAt := findDollars(src, i+1, "$", true)
			if closeAt < 0 {
				i++
				continue
			}
			blocks = append(blocks, MathBlock{
				Outer:   Span{Start: i, End: closeAt + 1},
				Content: Span{Start: i + 1, End: closeAt},
			})
			i = closeAt + 1
		default:
			i++
		}
	}
	return blocks, opaque, nil
}

// findDollars returns the offset of the next unescaped delim at or after
// from, or -1. With sameLine set the search stops at a newline.
func findDollars(src string, from int, delim string, sameLine bool) int {
	for i := from; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			if sameLine {
				return -1
			}
		case '$':
			if strings.HasPrefix(src[i:], delim) {
				return i
			}
		}
	}
	return -1
}

func runLength(src string, i int, c byte) int {
	n := 0
	for i+n < len(src) && src[i+n] == c {
		n++
	}
	return n
}

func findBacktickRun(src string, from, n int) int {
	for i := from; i < len(src); {
		if src[i] != '`' {
			i++
			continue
		}
		run := runLength(src, i, '`')
		if run == n {
			return i
		}
		i += run
	}
	return -1
}

// fenceEnd reports whether a fenced code block opens at the line starting
// at i, and returns the offset just past its closing fence line (or the end
// of the text when it never closes).
func fenceEnd(src string, i int) (int, bool) {
	indent := 0
	for indent < 3 && i+indent < len(src) && src[i+indent] == ' ' {
		indent++
	}
	j := i + indent
	if j >= len(src) || (src[j] != '`' && src[j] != '~') {
		return 0, false
	}
	fence := src[j]
	n := runLength(src, j, fence)
	if n < 3 {
		return 0, false
	}
	if fence == '`' && strings.ContainsRune(lineAt(src, j+n), '`') {
		return 0, false
	}

	pos := nextLine(src, j)
	for pos < len(src) {
		line := lineAt(src, pos)
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) <= 3 && runLength(trimmed, 0, fence) >= n && strings.TrimSpace(strings.TrimLeft(trimmed, string(fence))) == "" {
			return nextLine(src, pos), true
		}
		pos = nextLine(src, pos)
	}
	return len(src), true
}

func lineAt(src string, i int) string {
	end := strings.IndexByte(src[i:], '\n')
	if end < 0 {
		return src[i:]
	}
	return src[i : i+end]
}

func nextLine(src string, i int) int {
	end := strings.IndexByte(src[i:], '\n')
	if end < 0 {
		return len(src)
	}
	return i + end + 1
}

// calculations splits a block into calculation lines. Display blocks hold
// one calculation per line; lines without an operator are ignored.
func (b MathBlock) calculations(src string) []*Calculation {
	if !b.Display {
		if c := parseCalcLine(src, b.Content, false); c != nil {
			return []*Calculation{c}
		}
		return nil
	}
	var out []*Calculation
	start := b.Content.Start
	for start <= b.Content.End {
		end := strings.IndexByte(src[start:b.Content.End], '\n')
		if end < 0 {
			end = b.Content.End
		} else {
			end += start
		}
		if c := parseCalcLine(src, Span{Start: start, End: end}, true); c != nil {
			out = append(out, c)
		}
		start = end + 1
	}
	return out
}

// parseCalcLine locates the operator, operands and result region of one
// calculation line. Offsets are made absolute before returning.
func parseCalcLine(src string, line Span, display bool) *Calculation {
	text := line.text(src)
	limit := len(text)
	if strings.HasSuffix(text, "\r") {
		limit--
	}
	if trimmed := strings.TrimRight(text[:limit], " \t"); strings.HasSuffix(trimmed, `\\`) {
		limit = len(strings.TrimRight(trimmed[:len(trimmed)-2], " \t"))
	}
	body := text[:limit]

	// Operators are searched before any diagnostic markup. When a brace is
	// left open the whole line is one group, so the search ignores depth
	// and the parser reports the brace instead.
	ops := body
	if m := markupIndex(body, 0); m >= 0 {
		ops = body[:m]
	}
	find := topLevelIndex
	if braceDepth(ops) > 0 {
		find = flatIndex
	}

	c := &Calculation{Display: display, Line: line}
	var opStart, opEnd int
	if i := find(ops, "===", 0); i >= 0 {
		c.Kind, opStart, opEnd = CalcUnitDefine, i, i+3
	} else if i := find(ops, ":=", 0); i >= 0 {
		c.Kind, opStart, opEnd = CalcDefine, i, i+2
		if j := find(ops, "==", opEnd); j >= 0 {
			c.Kind = CalcDefineAndEvaluate
			c.Target = trimSpan(body, 0, opStart)
			c.Expr = trimSpan(body, opEnd, j)
			opStart, opEnd = j, j+2
		}
	} else if i := find(ops, "==", 0); i >= 0 {
		c.Kind, opStart, opEnd = CalcEvaluate, i, i+2
	} else if i := find(ops, "=>", 0); i >= 0 {
		c.Kind, opStart, opEnd = CalcSymbolic, i, i+2
	} else {
		return nil
	}
	c.Op = Span{Start: opStart, End: opEnd}

	switch c.Kind {
	case CalcEvaluate, CalcDefineAndEvaluate:
		if c.Kind == CalcEvaluate {
			c.Expr = trimSpan(body, 0, opStart)
		}
		resultStart := opEnd
		if hint, span, ok := bracketHint(body, opEnd); ok {
			c.Hint, c.HintSource, c.HintSpan = hint, HintInline, span
			resultStart = span.End
		}
		c.Result = Span{Start: resultStart, End: limit}
	default:
		c.Target = trimSpan(body, 0, opStart)
		resultStart := len(strings.TrimRight(body, " \t"))
		if resultStart < opEnd {
			resultStart = opEnd
		}
		if m := markupIndex(body, opEnd); m >= 0 {
			resultStart = m
			for resultStart > opEnd && (body[resultStart-1] == ' ' || body[resultStart-1] == '\t') {
				resultStart--
			}
		}
		c.Expr = trimSpan(body, opEnd, resultStart)
		c.Result = Span{Start: resultStart, End: limit}
	}

	for _, s := range []*Span{&c.Target, &c.Op, &c.Expr, &c.Result, &c.HintSpan} {
		s.Start += line.Start
		s.End += line.Start
	}
	return c
}

// topLevelIndex finds op outside any brace group, starting at from.
func topLevelIndex(s, op string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		if depth == 0 && strings.HasPrefix(s[i:], op) {
			return i
		}
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return -1
}

// flatIndex finds op at or after from, skipping escaped characters but not
// brace groups.
func flatIndex(s, op string, from int) int {
	for i := from; i < len(s); i++ {
		if strings.HasPrefix(s[i:], op) {
			return i
		}
		if s[i] == '\\' {
			i++
		}
	}
	return -1
}

// braceDepth is the number of groups still open at the end of s.
func braceDepth(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

// markupIndex finds the first complete diagnostic markup span at or after
// from. Markup is matched on its own braces, so it is found even inside a
// group the author left open.
func markupIndex(s string, from int) int {
	for i := max(from, 0); i < len(s); {
		j := nextMarkup(s[i:])
		if j < 0 {
			return -1
		}
		j += i
		if markupEnd(s, j) >= 0 {
			return j
		}
		i = j + len(markupStart)
	}
	return -1
}

func nextMarkup(s string) int {
	e := strings.Index(s, errorMarkupPrefix)
	w := strings.Index(s, warningMarkupPrefix)
	switch {
	case e < 0:
		return w
	case w < 0:
		return e
	default:
		return min(e, w)
	}
}

// bracketHint reads `[unit]` after optional blanks at s[from:]. Brackets
// whose content starts like a number are a result array, not a hint.
func bracketHint(s string, from int) (string, Span, bool) {
	i := from
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) || s[i] != '[' {
		return "", Span{}, false
	}
	end := strings.IndexAny(s[i+1:], "]\n")
	if end < 0 || s[i+1+end] != ']' {
		return "", Span{}, false
	}
	content := strings.TrimSpace(s[i+1 : i+1+end])
	if content == "" || strings.ContainsAny(content[:1], "0123456789+-.") {
		return "", Span{}, false
	}
	return content, Span{Start: from, End: i + 1 + end + 1}, true
}

func trimSpan(s string, start, end int) Span {
	for start < end && isBlank(s[start]) {
		start++
	}
	for end > start && isBlank(s[end-1]) {
		end--
	}
	return Span{Start: start, End: end}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// applyBlockHints attaches a `[unit]` written right after the block and a
// following `<!-- [unit] digits:N format:… -->` comment to the last
// calculation of the block. The comment wins over both bracket forms.
func applyBlockHints(src string, block MathBlock, calcs []*Calculation) {
	if len(calcs) == 0 {
		return
	}
	last := calcs[len(calcs)-1]
	pos := block.Outer.End

	if hint, span, ok := bracketHint(src[:nextLineEnd(src, pos)], pos); ok {
		if last.Kind == CalcEvaluate || last.Kind == CalcDefineAndEvaluate {
			last.Hint, last.HintSource, last.HintSpan = hint, HintTrailing, span
		}
		pos = span.End
	}

	j := pos
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	if j < len(src) && src[j] == '\n' {
		j++
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
	}
	if !strings.HasPrefix(src[j:], "<!--") {
		return
	}
	end := strings.Index(src[j+4:], "-->")
	if end < 0 {
		return
	}
	unit, format, ok := parseHintComment(src[j+4 : j+4+end])
	if !ok {
		return
	}
	last.Comment = Span{Start: j, End: j + 4 + end + 3}
	last.Format = format
	if unit != "" {
		last.Hint, last.HintSource = unit, HintComment
	}
}

func nextLineEnd(src string, i int) int {
	end := strings.IndexByte(src[i:], '\n')
	if end < 0 {
		return len(src)
	}
	return i + end
}

// parseHintComment reads `[unit] digits:N format:sci`. It reports false
// when the comment holds none of these, so ordinary comments are ignored.
func parseHintComment(body string) (string, FormatOptions, bool) {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, metaTag) {
		return "", FormatOptions{}, false
	}
	var (
		unit   string
		format FormatOptions
		found  bool
	)
	if open := strings.IndexByte(body, '['); open >= 0 {
		if closeAt := strings.IndexByte(body[open:], ']'); closeAt > 0 {
			unit = strings.TrimSpace(body[open+1 : open+closeAt])
			body = body[:open] + " " + body[open+closeAt+1:]
			found = unit != ""
		}
	}
	for _, field := range strings.Fields(body) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "digits":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= MaxDigits {
				format.Digits = n
				found = true
			}
		case "format", "notation":
			if n, err := ParseNotation(value); err == nil {
				format.Notation = n
				found = true
			}
		case "unit":
			unit = value
			found = true
		}
	}
	return unit, format, found
}
