package calc

import (
	"fmt"
	"strings"
	"time"
)

const (
	metaTag    = "livemath:"
	metaOpen   = "\n<!-- " + metaTag + " "
	metaClose  = " -->\n"
	metaLayout = time.RFC3339
)

// appendMetadata adds the run-metadata comment at the end of text. It is
// the only part of the output that differs between two runs on the same
// input.
func appendMetadata(text string, stats Stats, now time.Time) string {
	return text + fmt.Sprintf("%s%s | definitions=%d evaluations=%d units=%d errors=%d warnings=%d duration=%s%s",
		metaOpen,
		now.UTC().Format(metaLayout),
		stats.Definitions,
		stats.Evaluations,
		stats.Units,
		stats.Errors,
		stats.Warnings,
		stats.Duration.Round(time.Microsecond),
		metaClose,
	)
}

// StripMetadata removes a trailing run-metadata comment. A comment anywhere
// but the very end of the text is left alone.
func StripMetadata(text string) (string, bool) {
	if !strings.HasSuffix(text, metaClose) {
		return text, false
	}
	idx := strings.LastIndex(text, metaOpen)
	if idx < 0 {
		return text, false
	}
	inner := text[idx+len(metaOpen) : len(text)-len(metaClose)]
	if strings.Contains(inner, "-->") || strings.Contains(inner, "\n") {
		return text, false
	}
	return text[:idx], true
}
