package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDoc = "# Sample\n\n$x := 2$ and $x \\cdot 3 ==$\n"

// workspace moves the test into an empty directory with its own cache
// location so no livemath.toml or cache entry leaks in.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, ".cache"))
	return dir
}

func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := runCLI(append([]string{"--color", "off"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunCLIHelp(t *testing.T) {
	out, _, err := run(t, "", "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, name := range []string{"process", "clear", "check", "export", "units", "repl", "lsp", "version"} {
		if !strings.Contains(out, name) {
			t.Fatalf("help output missing %q:\n%s", name, out)
		}
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	_, _, err := run(t, "", "bogus")
	if err == nil {
		t.Fatalf("expected unknown command error")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProcessRequiresPath(t *testing.T) {
	workspace(t)
	if _, _, err := run(t, "", "process"); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestProcessPrintsResults(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "calc.md", sampleDoc)

	out, _, err := run(t, "", "process", path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(out, "$x \\cdot 3 == 6$") {
		t.Fatalf("result missing from output:\n%s", out)
	}
	if !strings.Contains(out, "<!-- livemath: ") {
		t.Fatalf("metadata comment missing:\n%s", out)
	}
	if readDoc(t, path) != sampleDoc {
		t.Fatalf("process without -w must not modify the document")
	}
}

func TestProcessReadsStdin(t *testing.T) {
	workspace(t)
	out, _, err := run(t, "$1\\ km == [m]$\n", "process", "-")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.HasPrefix(out, "$1\\ km == [m] 1000\\ \\text{m}$\n") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, _, err := run(t, "", "process", "-w", "-"); err == nil {
		t.Fatalf("expected error writing back to stdin")
	}
}

func TestProcessWriteSkipsUnchangedDocuments(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "calc.md", sampleDoc)

	if _, _, err := run(t, "", "process", "-w", path); err != nil {
		t.Fatalf("process -w failed: %v", err)
	}
	written := readDoc(t, path)
	if !strings.Contains(written, "== 6$") {
		t.Fatalf("document not updated:\n%s", written)
	}

	_, errOut, err := run(t, "", "-v", "process", "-w", path)
	if err != nil {
		t.Fatalf("second process -w failed: %v", err)
	}
	if !strings.Contains(errOut, "skipped") {
		t.Fatalf("expected the cached document to be skipped, got %q", errOut)
	}
	if readDoc(t, path) != written {
		t.Fatalf("skipped document must stay untouched")
	}

	_, errOut, err = run(t, "", "-v", "process", "-w", "--no-cache", path)
	if err != nil {
		t.Fatalf("process --no-cache failed: %v", err)
	}
	if strings.Contains(errOut, "skipped") {
		t.Fatalf("--no-cache must process the document, got %q", errOut)
	}
	if !strings.Contains(errOut, "1 definitions, 1 evaluations") {
		t.Fatalf("expected verbose stats, got %q", errOut)
	}
}

func TestProcessDirectory(t *testing.T) {
	dir := workspace(t)
	a := writeDoc(t, dir, "docs/a.md", "$a := 1$ $a + 1 ==$\n")
	b := writeDoc(t, dir, "docs/nested/b.markdown", "$b := 2$ $b \\cdot 2 ==$\n")
	other := writeDoc(t, dir, "docs/notes.txt", "$c ==$\n")

	if _, _, err := run(t, "", "process", "-w", "-j", "2", filepath.Join(dir, "docs")); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(readDoc(t, a), "$a + 1 == 2$") {
		t.Fatalf("a.md not processed: %q", readDoc(t, a))
	}
	if !strings.Contains(readDoc(t, b), "$b \\cdot 2 == 4$") {
		t.Fatalf("b.markdown not processed: %q", readDoc(t, b))
	}
	if readDoc(t, other) != "$c ==$\n" {
		t.Fatalf("non-Markdown file must be left alone")
	}
}

func TestProcessReportsScanErrors(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "broken.md", "intro\n$$\nx ==\n")
	_, errOut, err := run(t, "", "process", path)
	if err == nil || !strings.Contains(err.Error(), "1 document(s) failed") {
		t.Fatalf("expected failed document, got %v", err)
	}
	if !strings.Contains(errOut, "broken.md") {
		t.Fatalf("error should name the document: %q", errOut)
	}
}

func TestCheckFailsOnCalculationErrors(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "bad.md", "$y + 1 ==$\n")

	_, errOut, err := run(t, "", "check", path)
	if err == nil {
		t.Fatalf("expected check to fail")
	}
	if !strings.Contains(err.Error(), "1 error(s) in 1 document(s)") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "bad.md:1:2: error: UndefinedVariable") {
		t.Fatalf("unexpected diagnostics %q", errOut)
	}
	if readDoc(t, path) != "$y + 1 ==$\n" {
		t.Fatalf("check must not modify the document")
	}
}

func TestCheckPassesCleanDocument(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "ok.md", sampleDoc)
	out, _, err := run(t, "", "check", path)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "" {
		t.Fatalf("check must not print the document, got %q", out)
	}
}

func TestCheckDump(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "ok.md", sampleDoc)
	out, _, err := run(t, "", "check", "--dump", path)
	if err != nil {
		t.Fatalf("check --dump failed: %v", err)
	}
	var entries []struct {
		Path   string `json:"path"`
		Result struct {
			Stats struct {
				Definitions int `json:"definitions"`
				Evaluations int `json:"evaluations"`
			} `json:"stats"`
			Symbols []struct {
				Name string `json:"name"`
				ID   string `json:"id"`
			} `json:"symbols"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("dump is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Path != "ok.md" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Result.Stats.Definitions != 1 || entries[0].Result.Stats.Evaluations != 1 {
		t.Fatalf("unexpected stats %+v", entries[0].Result.Stats)
	}
}

func TestClearRestoresProcessedDocument(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "calc.md", sampleDoc)
	if _, _, err := run(t, "", "process", "-w", path); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, _, err := run(t, "", "clear", "-w", path); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := readDoc(t, path); got != sampleDoc {
		t.Fatalf("clear did not restore the document:\n%q\nwant:\n%q", got, sampleDoc)
	}
}

func TestExportWritesOutputFile(t *testing.T) {
	dir := workspace(t)
	path := writeDoc(t, dir, "report.md", "$r := 2\\ m$\n\nThe radius is {{r}}.\n")
	target := filepath.Join(dir, "out.md")

	if _, _, err := run(t, "", "export", "-o", target, path); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if got := readDoc(t, target); !strings.Contains(got, "The radius is $2\\ \\text{m}$.") {
		t.Fatalf("unexpected export %q", got)
	}
	if strings.Contains(readDoc(t, path), "$2\\ \\text{m}$") {
		t.Fatalf("export must not modify the source")
	}
}

func TestConfigFileAndFlagsSetDigits(t *testing.T) {
	dir := workspace(t)
	writeDoc(t, dir, configFileName, "[format]\ndigits = 2\n")
	path := writeDoc(t, dir, "third.md", "$x := 1/3$ $x ==$\n")

	out, _, err := run(t, "", "process", path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(out, "$x == 0.33$") {
		t.Fatalf("config digits not applied:\n%s", out)
	}

	out, _, err = run(t, "", "--digits", "3", "process", path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(out, "$x == 0.333$") {
		t.Fatalf("--digits must override the config:\n%s", out)
	}
}

func TestUnitsFilter(t *testing.T) {
	out, _, err := run(t, "", "units", "km")
	if err != nil {
		t.Fatalf("units failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "UNIT") {
		t.Fatalf("missing header: %q", lines[0])
	}
	found := false
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "km" && fields[1] == "length" && fields[2] == "1000" {
			found = true
		}
	}
	if !found {
		t.Fatalf("km row missing:\n%s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, "", "version", "--format", "json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var payload versionPayload
	if err := json.NewDecoder(strings.NewReader(out)).Decode(&payload); err != nil && err != io.EOF {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "livemath" || payload.Version != version {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if _, _, err := run(t, "", "version", "--format", "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
