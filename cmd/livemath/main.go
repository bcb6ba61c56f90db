package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgomes/livemath/calc"
)

// Overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	if err := runCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the global flags and streams shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	colorMode  string
	configPath string
	verbose    bool
	digits     int
	notation   string
	jobs       int
	noCache    bool
	dump       bool
}

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(context.Background())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "livemath",
		Short:         "Evaluate the calculations embedded in Markdown math",
		Long:          "livemath finds $...$ and $$...$$ math in Markdown documents, evaluates\ndefinitions (:=), evaluations (==) and unit declarations (===) with\ndimensional analysis, and writes the results back into the document.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.colorMode, "color", "auto", "colorize diagnostics (auto|on|off)")
	flags.StringVar(&a.configPath, "config", "", "config file (default: nearest livemath.toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "print per-document statistics")
	flags.IntVar(&a.digits, "digits", 0, "significant digits in results (1-15)")
	flags.StringVar(&a.notation, "notation", "", "number notation (auto|fixed|sci|eng)")
	flags.IntVarP(&a.jobs, "jobs", "j", 0, "documents processed in parallel (0 = GOMAXPROCS)")

	root.AddCommand(
		newProcessCmd(a),
		newClearCmd(a),
		newCheckCmd(a),
		newExportCmd(a),
		newUnitsCmd(a),
		newREPLCmd(a),
		newLSPCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup merges livemath.toml with the command line and builds the engine.
func (a *app) setup() (*calc.Engine, settings, error) {
	cfg, err := loadSettings(a.configPath, ".")
	if err != nil {
		return nil, settings{}, err
	}
	if a.digits != 0 {
		cfg.Engine.Format.Digits = a.digits
	}
	if a.notation != "" {
		notation, err := calc.ParseNotation(a.notation)
		if err != nil {
			return nil, settings{}, err
		}
		cfg.Engine.Format.Notation = notation
	}
	if a.jobs != 0 {
		cfg.Jobs = a.jobs
	}
	engine, err := calc.NewEngine(cfg.Engine)
	if err != nil {
		return nil, settings{}, err
	}
	return engine, cfg, nil
}

func (a *app) reporter() (*reporter, error) {
	return newReporter(a.stderr, a.colorMode, a.verbose)
}

// settingsKey identifies the engine settings that change rendered output.
func settingsKey(engine *calc.Engine) string {
	cfg := engine.Config()
	return fmt.Sprintf("digits=%d notation=%s recursion=%d steps=%d timeout=%s",
		cfg.Format.Digits, cfg.Format.Notation, cfg.RecursionLimit, cfg.StepQuota, cfg.CalcTimeout)
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the livemath version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := versionPayload{
				Tool:      "livemath",
				Version:   version,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			switch strings.ToLower(format) {
			case "pretty":
				fmt.Fprintf(a.stdout, "%s %s (%s, %s)\n", payload.Tool, payload.Version, payload.GoVersion, payload.Platform)
				return nil
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}
