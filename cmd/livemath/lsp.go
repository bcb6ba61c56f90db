package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/mgomes/livemath/calc"
)

const (
	lspSeverityError   = 1
	lspSeverityWarning = 2

	lspKindFunction = 3
	lspKindVariable = 6
	lspKindUnit     = 11

	lspMethodNotFound = -32601
	lspInvalidParams  = -32602
)

type lspInboundMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type lspResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lspOutboundMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *json.RawMessage  `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  any               `json:"params,omitempty"`
	Result  any               `json:"result,omitempty"`
	Error   *lspResponseError `json:"error,omitempty"`
}

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspDiagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity"`
	Source   string   `json:"source"`
	Message  string   `json:"message"`
}

type lspPublishParams struct {
	URI         string          `json:"uri"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

type lspCompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type lspCompletionList struct {
	IsIncomplete bool                `json:"isIncomplete"`
	Items        []lspCompletionItem `json:"items"`
}

type lspMarkup struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type lspHover struct {
	Contents lspMarkup `json:"contents"`
}

type lspTextDocument struct {
	URI  string `json:"uri"`
	Text string `json:"text,omitempty"`
}

type lspDocumentParams struct {
	TextDocument   lspTextDocument `json:"textDocument"`
	Position       lspPosition     `json:"position"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

// lspDocument is an open document and the result of its last run.
type lspDocument struct {
	text   string
	result *calc.Result
	err    error
}

// lspServer publishes calculation diagnostics for open Markdown documents
// and answers hover with the value of the name under the cursor.
type lspServer struct {
	ctx    context.Context
	reader *bufio.Reader
	writer *bufio.Writer
	engine *calc.Engine
	docs   map[string]*lspDocument
}

func newLSPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Serve calculation diagnostics over the Language Server Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(a.configPath, ".")
			if err != nil {
				return err
			}
			cfg.Engine.OmitMetadata = true
			engine, err := calc.NewEngine(cfg.Engine)
			if err != nil {
				return err
			}
			server := &lspServer{
				ctx:    cmd.Context(),
				reader: bufio.NewReader(a.stdin),
				writer: bufio.NewWriter(a.stdout),
				engine: engine,
				docs:   make(map[string]*lspDocument),
			}
			return server.serve()
		},
	}
}

func (s *lspServer) serve() error {
	for {
		payload, err := s.readPayload()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var incoming lspInboundMessage
		if json.Unmarshal(payload, &incoming) != nil {
			continue
		}
		for _, msg := range s.handleMessage(incoming) {
			if err := s.writePayload(msg); err != nil {
				return err
			}
		}
		if incoming.Method == "exit" {
			return nil
		}
	}
}

func (s *lspServer) handleMessage(in lspInboundMessage) []lspOutboundMessage {
	var params lspDocumentParams
	if len(in.Params) > 0 && json.Unmarshal(in.Params, &params) != nil {
		return replyError(in.ID, lspInvalidParams, "invalid params for "+in.Method)
	}
	uri := params.TextDocument.URI

	switch in.Method {
	case "initialize":
		return reply(in.ID, map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":   1,
				"hoverProvider":      true,
				"completionProvider": map[string]any{"triggerCharacters": []string{`\`}},
			},
			"serverInfo": map[string]any{"name": "livemath", "version": version},
		})
	case "shutdown":
		return reply(in.ID, nil)
	case "initialized", "exit":
		return nil
	case "textDocument/didOpen":
		return []lspOutboundMessage{s.update(uri, params.TextDocument.Text)}
	case "textDocument/didChange":
		if n := len(params.ContentChanges); n > 0 {
			return []lspOutboundMessage{s.update(uri, params.ContentChanges[n-1].Text)}
		}
		return nil
	case "textDocument/didClose":
		delete(s.docs, uri)
		return nil
	case "textDocument/completion":
		return reply(in.ID, lspCompletionList{Items: completionItems(s.docs[uri])})
	case "textDocument/hover":
		doc := s.docs[uri]
		if doc == nil {
			return reply(in.ID, nil)
		}
		word := wordAtPosition(doc.text, params.Position.Line, params.Position.Character)
		text, ok := hoverText(doc, word, s.engine.Config().Format)
		if !ok {
			return reply(in.ID, nil)
		}
		return reply(in.ID, &lspHover{Contents: lspMarkup{Kind: "markdown", Value: text}})
	default:
		return replyError(in.ID, lspMethodNotFound, "method not found: "+in.Method)
	}
}

// reply answers a request; notifications (no id) get nothing back.
func reply(id *json.RawMessage, result any) []lspOutboundMessage {
	if id == nil {
		return nil
	}
	return []lspOutboundMessage{{JSONRPC: "2.0", ID: id, Result: result}}
}

func replyError(id *json.RawMessage, code int, msg string) []lspOutboundMessage {
	if id == nil {
		return nil
	}
	return []lspOutboundMessage{{JSONRPC: "2.0", ID: id, Error: &lspResponseError{Code: code, Message: msg}}}
}

// update re-runs the document and returns its diagnostics notification.
func (s *lspServer) update(uri, text string) lspOutboundMessage {
	res, err := s.engine.Process(s.ctx, text)
	s.docs[uri] = &lspDocument{text: text, result: res, err: err}
	return lspOutboundMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  lspPublishParams{URI: uri, Diagnostics: diagnosticsForDocument(res, err)},
	}
}

func diagnosticsForDocument(res *calc.Result, err error) []lspDiagnostic {
	if err != nil {
		line := 0
		var scanErr *calc.ScanError
		if errors.As(err, &scanErr) {
			line = max(0, scanErr.Line-1)
		}
		return []lspDiagnostic{newLSPDiagnostic(line, 0, lspSeverityError, err.Error())}
	}

	out := make([]lspDiagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		severity := lspSeverityError
		if d.Severity == calc.SeverityWarning {
			severity = lspSeverityWarning
		}
		msg := fmt.Sprintf("%s: %s", d.Kind, d.Message)
		if d.Hint != "" {
			msg += " (" + d.Hint + ")"
		}
		out = append(out, newLSPDiagnostic(max(0, d.Line-1), max(0, d.Column-1), severity, msg))
	}
	return out
}

func newLSPDiagnostic(line, character, severity int, message string) lspDiagnostic {
	return lspDiagnostic{
		Range: lspRange{
			Start: lspPosition{Line: line, Character: character},
			End:   lspPosition{Line: line, Character: character + 1},
		},
		Severity: severity,
		Source:   "livemath",
		Message:  message,
	}
}

// completionItems offers the built-in functions and, once the document has
// run, the names and units it defines. Items are sorted by label.
func completionItems(doc *lspDocument) []lspCompletionItem {
	var items []lspCompletionItem
	for _, name := range calc.BuiltinFunctions() {
		items = append(items, lspCompletionItem{Label: `\` + name, Kind: lspKindFunction, Detail: "builtin"})
	}
	if doc != nil && doc.result != nil {
		for _, sym := range doc.result.Symbols {
			kind := lspKindVariable
			if sym.Kind == calc.SymbolFunction {
				kind = lspKindFunction
			}
			items = append(items, lspCompletionItem{Label: sym.Display, Kind: kind, Detail: sym.Kind.String()})
		}
		for _, u := range doc.result.Units {
			items = append(items, lspCompletionItem{Label: `\text{` + u.Name + `}`, Kind: lspKindUnit, Detail: u.Dim.Describe()})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

// hoverText describes word when it names a symbol of the document's last
// run.
func hoverText(doc *lspDocument, word string, opts calc.FormatOptions) (string, bool) {
	if word == "" || doc.result == nil {
		return "", false
	}
	for _, sym := range doc.result.Symbols {
		if sym.Display != word && sym.Name != word {
			continue
		}
		if sym.Kind == calc.SymbolFunction {
			return fmt.Sprintf("`%s(%s) := %s`\n\nfunction", sym.Display, strings.Join(sym.Params, ", "), sym.Source), true
		}
		value, _ := calc.FormatQuantity(sym.Value, "", calc.NewUnitRegistry(), opts)
		return fmt.Sprintf("$%s = %s$\n\n%s, %s", sym.Display, value, sym.Kind, sym.Value.Dim.Describe()), true
	}
	return "", false
}

// wordAtPosition returns the name under the cursor. A LaTeX command keeps
// its backslash so `\alpha` matches the symbol's display form.
func wordAtPosition(source string, line, character int) string {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	runes := []rune(lines[line])
	at := min(max(character, 0), len(runes))
	switch {
	case at < len(runes) && isWordRune(runes[at]):
	case at > 0 && isWordRune(runes[at-1]):
		at--
	default:
		return ""
	}

	start, end := at, at+1
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	if start > 0 && runes[start-1] == '\\' {
		start--
	}
	return string(runes[start:end])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// readPayload reads one base-protocol frame: MIME-style headers, a blank
// line, then Content-Length bytes of JSON.
func (s *lspServer) readPayload() ([]byte, error) {
	header, err := textproto.NewReader(s.reader).ReadMIMEHeader()
	if err != nil {
		if len(header) == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	raw := header.Get("Content-Length")
	if raw == "" {
		return nil, errors.New("missing Content-Length header")
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", raw)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *lspServer) writePayload(msg lspOutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}
