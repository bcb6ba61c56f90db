package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/mgomes/livemath/calc"
)

// replStyles groups the lipgloss styles of the interactive prompt.
type replStyles struct {
	prompt, title, muted  lipgloss.Style
	result, failure, warn lipgloss.Style
	key, name, panel      lipgloss.Style
}

func newREPLStyles() replStyles {
	var (
		ink    = lipgloss.Color("#6366F1")
		ok     = lipgloss.Color("#22C55E")
		bad    = lipgloss.Color("#DC2626")
		amber  = lipgloss.Color("#D97706")
		slate  = lipgloss.Color("#64748B")
		accent = lipgloss.Color("#0EA5E9")
	)
	return replStyles{
		prompt:  lipgloss.NewStyle().Foreground(ink).Bold(true),
		title:   lipgloss.NewStyle().Foreground(ink).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(slate),
		result:  lipgloss.NewStyle().Foreground(ok),
		failure: lipgloss.NewStyle().Foreground(bad),
		warn:    lipgloss.NewStyle().Foreground(amber),
		key:     lipgloss.NewStyle().Foreground(accent),
		name:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		panel:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(slate).Padding(0, 1),
	}
}

var styles = newREPLStyles()

type historyEntry struct {
	input    string
	output   string
	isErr    bool
	warnings []string
}

type replModel struct {
	textInput textinput.Model
	session   *calc.Session

	history    []historyEntry
	cmdHistory []string
	historyIdx int

	width, height int
	ready         bool
	quitting      bool

	showHelp  bool
	showVars  bool
	showUnits bool
}

type replKeys struct {
	prev, next, eval, quit, wipe, complete key.Binding
	vars, units, help                      key.Binding
}

var bindings = replKeys{
	prev:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
	next:     key.NewBinding(key.WithKeys("down", "ctrl+n")),
	eval:     key.NewBinding(key.WithKeys("enter")),
	quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d")),
	wipe:     key.NewBinding(key.WithKeys("ctrl+l")),
	complete: key.NewBinding(key.WithKeys("tab")),
	vars:     key.NewBinding(key.WithKeys("ctrl+v")),
	units:    key.NewBinding(key.WithKeys("ctrl+u")),
	help:     key.NewBinding(key.WithKeys("ctrl+k")),
}

// replCommand is a colon command; aliases share one entry.
type replCommand struct {
	names []string
	desc  string
	run   func(m *replModel, input string) tea.Cmd
}

var replCommands = []replCommand{
	{[]string{":help", ":h"}, "toggle this help", func(m *replModel, _ string) tea.Cmd {
		m.showHelp = !m.showHelp
		return nil
	}},
	{[]string{":vars", ":v"}, "toggle the symbol panel", func(m *replModel, _ string) tea.Cmd {
		m.showVars = !m.showVars
		return nil
	}},
	{[]string{":units", ":u"}, "toggle the custom unit panel", func(m *replModel, _ string) tea.Cmd {
		m.showUnits = !m.showUnits
		return nil
	}},
	{[]string{":clear", ":c"}, "clear the screen", func(m *replModel, _ string) tea.Cmd {
		m.history = nil
		return nil
	}},
	{[]string{":reset", ":r"}, "forget every definition", func(m *replModel, input string) tea.Cmd {
		m.session.Reset()
		m.history = append(m.history, historyEntry{input: input, output: "session reset"})
		return nil
	}},
	{[]string{":quit", ":q"}, "leave", func(m *replModel, _ string) tea.Cmd {
		m.quitting = true
		return tea.Quit
	}},
}

func newREPLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate calculations interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := a.setup()
			if err != nil {
				return err
			}
			p := tea.NewProgram(newREPLModel(engine), tea.WithAltScreen(), tea.WithInput(a.stdin), tea.WithOutput(a.stdout))
			_, err = p.Run()
			return err
		},
	}
}

func newREPLModel(engine *calc.Engine) replModel {
	in := textinput.New()
	in.Prompt = "livemath> "
	in.PromptStyle = styles.prompt
	in.Placeholder = `F := m \cdot a == [kN]`
	in.CharLimit = 500
	in.Width = 60
	in.Focus()
	return replModel{textInput: in, session: engine.NewSession(), historyIdx: -1}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height, m.ready = msg.Width, msg.Height, true
		m.textInput.Width = max(10, msg.Width-14)
		return m, nil
	case tea.KeyMsg:
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleKey reacts to the bound keys. Anything else goes to the input.
func (m *replModel) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, bindings.quit):
		m.quitting = true
		return true, tea.Quit
	case key.Matches(msg, bindings.wipe):
		m.history = nil
	case key.Matches(msg, bindings.vars):
		m.showVars = !m.showVars
	case key.Matches(msg, bindings.units):
		m.showUnits = !m.showUnits
	case key.Matches(msg, bindings.help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, bindings.prev):
		m.recall(-1)
	case key.Matches(msg, bindings.next):
		m.recall(+1)
	case key.Matches(msg, bindings.complete):
		m.complete()
	case key.Matches(msg, bindings.eval):
		return true, m.submit()
	default:
		return false, nil
	}
	return true, nil
}

// recall moves through earlier lines. Moving past the newest line empties
// the input.
func (m *replModel) recall(delta int) {
	if len(m.cmdHistory) == 0 {
		return
	}
	switch {
	case m.historyIdx == -1 && delta < 0:
		m.historyIdx = len(m.cmdHistory) - 1
	case m.historyIdx == -1:
		return
	default:
		m.historyIdx += delta
	}
	switch {
	case m.historyIdx < 0:
		m.historyIdx = 0
	case m.historyIdx >= len(m.cmdHistory):
		m.historyIdx = -1
		m.textInput.SetValue("")
		return
	}
	m.textInput.SetValue(m.cmdHistory[m.historyIdx])
	m.textInput.CursorEnd()
}

func (m *replModel) submit() tea.Cmd {
	input := strings.TrimSpace(m.textInput.Value())
	if input == "" {
		return nil
	}
	m.textInput.SetValue("")
	m.historyIdx = -1
	if strings.HasPrefix(input, ":") {
		return m.runCommand(input)
	}
	m.history = append(m.history, m.evaluate(input))
	m.cmdHistory = append(m.cmdHistory, input)
	return nil
}

func (m *replModel) runCommand(input string) tea.Cmd {
	name := strings.Fields(input)[0]
	for _, c := range replCommands {
		for _, n := range c.names {
			if n == name {
				return c.run(m, input)
			}
		}
	}
	m.history = append(m.history, historyEntry{input: input, output: "unknown command " + name + " (try :help)", isErr: true})
	return nil
}

// completionCandidates are the words Tab can complete: built-in functions,
// the defined symbols and the custom units of the session.
func (m replModel) completionCandidates() []string {
	var out []string
	for _, name := range calc.BuiltinFunctions() {
		out = append(out, `\`+name)
	}
	out = append(out, `\cdot`, `\frac`, `\sqrt`, `\text`)
	for _, sym := range m.session.Symbols() {
		out = append(out, sym.Display)
	}
	for _, u := range m.session.Units() {
		out = append(out, `\text{`+u.Name+`}`)
	}
	return out
}

// complete extends the last word of the input when exactly one candidate
// matches and lists the matches otherwise.
func (m *replModel) complete() {
	input := m.textInput.Value()
	i := strings.LastIndexAny(input, " \t") + 1
	prefix := input[i:]
	if prefix == "" {
		return
	}

	seen := make(map[string]bool)
	var matches []string
	for _, c := range m.completionCandidates() {
		if !seen[c] && strings.HasPrefix(c, prefix) {
			seen[c] = true
			matches = append(matches, c)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
	case 1:
		m.textInput.SetValue(input[:i] + matches[0])
		m.textInput.CursorEnd()
	default:
		m.history = append(m.history, historyEntry{output: "Completions: " + strings.Join(matches, ", ")})
	}
}

// evaluate runs one line in the session. A line without an operator is
// evaluated as if it ended in ==.
func (m replModel) evaluate(input string) historyEntry {
	entry := historyEntry{input: input}
	res := m.session.Eval(context.Background(), input)
	for _, d := range res.Diagnostics {
		msg := fmt.Sprintf("%s: %s", d.Kind, d.Message)
		if d.Hint != "" {
			msg += " (" + d.Hint + ")"
		}
		if d.Severity == calc.SeverityError {
			if entry.output == "" {
				entry.output = msg
				entry.isErr = true
			}
			continue
		}
		entry.warnings = append(entry.warnings, msg)
	}
	if entry.isErr {
		return entry
	}

	switch res.Kind {
	case calc.CalcUnitDefine:
		entry.output = fmt.Sprintf("unit %s defined", res.Name)
	case calc.CalcDefine, calc.CalcDefineAndEvaluate:
		if res.Output == "" {
			entry.output = fmt.Sprintf("%s defined", res.Name)
			break
		}
		entry.output = fmt.Sprintf("%s = %s", res.Name, res.Output)
	default:
		entry.output = res.Output
	}
	return entry
}

func (m replModel) View() string {
	switch {
	case m.quitting:
		return styles.muted.Render("bye") + "\n"
	case !m.ready:
		return ""
	}

	var panels []string
	if m.showVars {
		panels = append(panels, m.symbolPanel())
	}
	if m.showUnits {
		panels = append(panels, m.unitPanel())
	}
	if m.showHelp {
		panels = append(panels, helpPanel())
	}
	panelHeight := 0
	for _, p := range panels {
		panelHeight += lipgloss.Height(p)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("livemath") + " " + styles.muted.Render(version) + "\n\n")
	b.WriteString(m.renderHistory(m.height - panelHeight - 6))
	for _, p := range panels {
		b.WriteString(p + "\n")
	}
	b.WriteString(m.textInput.View() + "\n")
	b.WriteString(styles.muted.Render("enter evaluate · tab complete · ctrl+k help · ctrl+c quit"))
	return b.String()
}

// renderHistory shows the newest entries that fit in rows lines.
func (m replModel) renderHistory(rows int) string {
	var lines []string
	for _, e := range m.history {
		if e.input != "" {
			lines = append(lines, styles.muted.Render("» ")+e.input)
		}
		out := styles.result.Render("  " + e.output)
		if e.isErr {
			out = styles.failure.Render("  " + e.output)
		}
		lines = append(lines, out)
		for _, w := range e.warnings {
			lines = append(lines, styles.warn.Render("  "+w))
		}
	}
	if rows < 0 {
		rows = 0
	}
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n\n"
}

func (m replModel) symbolPanel() string {
	symbols := m.session.Symbols()
	if len(symbols) == 0 {
		return styles.panel.Render(styles.muted.Render("nothing defined yet"))
	}
	width := 0
	for _, sym := range symbols {
		width = max(width, runewidth.StringWidth(sym.Display))
	}
	lines := []string{styles.title.Render("Variables")}
	for _, sym := range symbols {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			styles.name.Render(runewidth.FillRight(sym.Display, width)),
			m.session.Format(sym),
			styles.muted.Render(sym.ID)))
	}
	return styles.panel.Render(strings.Join(lines, "\n"))
}

func (m replModel) unitPanel() string {
	units := m.session.Units()
	if len(units) == 0 {
		return styles.panel.Render(styles.muted.Render("no custom units"))
	}
	lines := []string{styles.title.Render("Units")}
	for _, u := range units {
		lines = append(lines, styles.name.Render(u.Name)+"  "+u.Dim.Describe())
	}
	return styles.panel.Render(strings.Join(lines, "\n"))
}

func helpPanel() string {
	rows := [][2]string{
		{"x := …", "define a value or function"},
		{"… == [u]", "evaluate, optionally shown in u"},
		{"u ===", "declare a unit"},
	}
	for _, c := range replCommands {
		rows = append(rows, [2]string{strings.Join(c.names, " "), c.desc})
	}
	rows = append(rows, [2]string{"↑ ↓", "line history"}, [2]string{"ctrl+v ctrl+u", "symbol and unit panels"})

	lines := []string{styles.title.Render("Help")}
	for _, r := range rows {
		lines = append(lines, styles.key.Render(runewidth.FillRight(r[0], 14))+styles.muted.Render(r[1]))
	}
	return styles.panel.Render(strings.Join(lines, "\n"))
}
