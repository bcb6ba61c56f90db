package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/livemath/calc"
)

func newTestREPL() replModel {
	return newREPLModel(calc.MustNewEngine(calc.Config{}))
}

func submit(t *testing.T, m replModel, input string) (replModel, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(input)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return rm, cmd
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	rm, cmd := submit(t, newTestREPL(), ":quit")

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	rm, cmd := submit(t, newTestREPL(), ":help")

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after command")
	}
}

func TestEvaluateKeepsDefinitions(t *testing.T) {
	m := newTestREPL()
	m, _ = submit(t, m, `m := 5\ kg`)
	m, _ = submit(t, m, `a := 9.81\ m/s^2`)
	m, _ = submit(t, m, `m \cdot a == [kN]`)

	if len(m.history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(m.history))
	}
	if got := m.history[0].output; got != `m = 5\ \text{kg}` {
		t.Fatalf("unexpected definition output %q", got)
	}
	last := m.history[2]
	if last.isErr || last.output != `0.04905\ \text{kN}` {
		t.Fatalf("unexpected evaluation %+v", last)
	}
	if len(m.cmdHistory) != 3 {
		t.Fatalf("expected 3 remembered lines, got %d", len(m.cmdHistory))
	}
}

func TestEvaluateReportsErrorsAndWarnings(t *testing.T) {
	m := newTestREPL()
	entry := m.evaluate(`q + 1`)
	if !entry.isErr || !strings.HasPrefix(entry.output, "UndefinedVariable") {
		t.Fatalf("unexpected entry %+v", entry)
	}

	entry = m.evaluate(`2\ m == [kg]`)
	if entry.isErr || len(entry.warnings) != 1 {
		t.Fatalf("expected a result with one warning, got %+v", entry)
	}
	if !strings.HasPrefix(entry.warnings[0], "IncompatibleDimensions") {
		t.Fatalf("unexpected warning %q", entry.warnings[0])
	}
}

func TestEvaluateUnitAndFunctionDefinitions(t *testing.T) {
	m := newTestREPL()
	if got := m.evaluate(`\text{widget} ===`).output; got != "unit widget defined" {
		t.Fatalf("unexpected unit output %q", got)
	}
	if got := m.evaluate(`f(x) := 2 \cdot x`).output; got != "f defined" {
		t.Fatalf("unexpected function output %q", got)
	}
	if got := m.evaluate(`f(4)`).output; got != "8" {
		t.Fatalf("unexpected call output %q", got)
	}
}

func TestResetCommandForgetsDefinitions(t *testing.T) {
	m := newTestREPL()
	m, _ = submit(t, m, `x := 3`)
	m, _ = submit(t, m, ":reset")
	entry := m.evaluate(`x`)
	if !entry.isErr {
		t.Fatalf("expected x to be undefined after reset, got %+v", entry)
	}
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestREPL()
	m, _ = submit(t, m, `1 + 1`)
	m, _ = submit(t, m, `2 + 2`)

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != `2 + 2` {
		t.Fatalf("expected last line, got %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != `1 + 1` {
		t.Fatalf("expected first line, got %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.(replModel).Update(tea.KeyMsg{Type: tea.KeyDown})
	m = model.(replModel)
	if m.textInput.Value() != "" || m.historyIdx != -1 {
		t.Fatalf("expected empty input past the newest line, got %q", m.textInput.Value())
	}
}

func TestAutocomplete(t *testing.T) {
	m := newTestREPL()
	m, _ = submit(t, m, `radius := 2\ m`)

	m.textInput.SetValue(`2 \cdot rad`)
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(replModel)
	if m.textInput.Value() != `2 \cdot radius` {
		t.Fatalf("expected completion to radius, got %q", m.textInput.Value())
	}

	m.textInput.SetValue(`\s`)
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(replModel)
	last := m.history[len(m.history)-1]
	if !strings.HasPrefix(last.output, "Completions: ") || !strings.Contains(last.output, `\sqrt`) || !strings.Contains(last.output, `\sin`) {
		t.Fatalf("expected several completions, got %q", last.output)
	}
}

func TestViewShowsPanels(t *testing.T) {
	m := newTestREPL()
	model, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	m = model.(replModel)
	m, _ = submit(t, m, `v := 9.81\ m/s^2`)
	m, _ = submit(t, m, `\text{widget} ===`)
	m, _ = submit(t, m, ":vars")
	m, _ = submit(t, m, ":units")

	view := m.View()
	for _, want := range []string{"Variables", "Units", "widget", `9.81\ \text{m}/\text{s}^{2}`} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUnknownCommandListsHelp(t *testing.T) {
	m, cmd := submit(t, newTestREPL(), ":frobnicate now")
	if cmd != nil || m.quitting {
		t.Fatalf("unknown command must not quit")
	}
	last := m.history[len(m.history)-1]
	if !last.isErr || !strings.Contains(last.output, ":frobnicate") {
		t.Fatalf("unexpected entry %+v", last)
	}

	m, _ = submit(t, m, ":c")
	if len(m.history) != 0 {
		t.Fatalf("expected :c to clear the history, got %d entries", len(m.history))
	}
}
