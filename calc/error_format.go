package calc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CodeFrame renders the line of source holding the byte offset with a caret
// under it. It returns "" when the offset is outside the source.
func CodeFrame(source string, offset int) string {
	if source == "" || offset < 0 || offset > len(source) {
		return ""
	}
	line, column := lineColumn(source, offset)

	lines := strings.Split(source, "\n")
	lineText := lines[line-1]

	lineLabel := strconv.Itoa(line)
	gutterPad := strings.Repeat(" ", len(lineLabel))
	caretPad := strings.Repeat(" ", column-1)

	return fmt.Sprintf(
		"  --> line %d, column %d\n %s | %s\n %s | %s^",
		line,
		column,
		lineLabel,
		lineText,
		gutterPad,
		caretPad,
	)
}

// lineColumn converts a byte offset into a 1-based line and rune column.
func lineColumn(source string, offset int) (int, int) {
	if offset > len(source) {
		offset = len(source)
	}
	before := source[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return line, utf8.RuneCountInString(before[lineStart:]) + 1
}
