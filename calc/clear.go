package calc

// Clear removes every computed result and diagnostic markup from src,
// along with the metadata comment. Operators, expressions, unit
// definitions, unit hints and format comments stay byte for byte, so
// processing the cleared text again reproduces the same results.
func (e *Engine) Clear(src string) (string, error) {
	body, _ := StripMetadata(src)
	doc, err := ParseDocument(body)
	if err != nil {
		return "", err
	}
	edits := make([]TextEdit, 0, len(doc.Calculations))
	for _, c := range doc.Calculations {
		if c.Result.Empty() {
			continue
		}
		edits = append(edits, TextEdit{Span: c.Result, NewText: "", OldText: c.Result.text(body)})
	}
	text, _, err := applyEdits(body, edits)
	if err != nil {
		return "", err
	}
	return text, nil
}
