package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgomes/livemath/calc"
)

const stdinPath = "-"

func newProcessCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "process [flags] <path>...",
		Short: "Evaluate calculations and splice the results into the documents",
		Long:  "Process evaluates every calculation in document order. Without -w the\nprocessed text is printed; with -w each document is rewritten in place.\nDirectories are searched for Markdown files. Use - to read stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd.Context(), args, write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write results to the documents instead of stdout")
	cmd.Flags().BoolVar(&a.noCache, "no-cache", false, "process documents even when unchanged since the last write")
	cmd.Flags().BoolVar(&a.dump, "dump", false, "print symbols and calculations as JSON instead of the documents")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "clear [flags] <path>...",
		Short: "Remove computed results, error markup and run metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClear(cmd.Context(), args, write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write cleared text to the documents instead of stdout")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <path>...",
		Short: "Evaluate documents without writing and fail on calculation errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&a.dump, "dump", false, "print symbols and calculations as JSON")
	return cmd
}

func (a *app) runProcess(ctx context.Context, args []string, write bool) error {
	engine, cfg, err := a.setup()
	if err != nil {
		return err
	}
	rep, err := a.reporter()
	if err != nil {
		return err
	}

	if isStdin(args) {
		if write {
			return errors.New("livemath process: cannot write back to stdin")
		}
		out := a.stdinOutcome(func(text string) (*calc.Result, string, error) {
			res, err := engine.Process(ctx, text)
			if err != nil {
				return nil, "", err
			}
			return res, res.Text, nil
		})
		return a.finish(rep, []docOutcome{out}, true)
	}

	paths, err := collectDocuments(args, cfg.Extensions, cfg.Exclude)
	if err != nil {
		return err
	}
	var cache *runCache
	if write && !a.noCache {
		if cache, err = openRunCache(); err != nil {
			rep.errorf("run cache disabled: %v", err)
			cache = nil
		}
	}
	key := settingsKey(engine)

	outcomes, err := runBatch(ctx, paths, cfg.Jobs, func(ctx context.Context, path string) docOutcome {
		out := docOutcome{Path: path}
		data, err := os.ReadFile(path)
		if err != nil {
			out.Err = fmt.Errorf("read %s: %w", path, err)
			return out
		}
		if write && cache.unchanged(path, string(data), key) {
			out.Skipped = true
			return out
		}
		res, err := engine.Process(ctx, string(data))
		if err != nil {
			out.Err = fmt.Errorf("%s: %w", displayPath(path), err)
			return out
		}
		out.Result, out.Text = res, res.Text
		if !write {
			return out
		}
		if err := writeDocument(path, res.Text); err != nil {
			out.Err = err
			return out
		}
		out.Written = true
		entry := &runEntry{
			Path:        path,
			OutputHash:  contentHash(res.Text),
			SettingsKey: key,
			Errors:      res.Stats.Errors,
			Warnings:    res.Stats.Warnings,
			WrittenAt:   time.Now().UTC(),
		}
		if err := cache.put(entry); err != nil {
			out.Err = fmt.Errorf("cache %s: %w", displayPath(path), err)
		}
		return out
	})
	if err != nil {
		return err
	}
	return a.finish(rep, outcomes, !write)
}

func (a *app) runClear(ctx context.Context, args []string, write bool) error {
	engine, cfg, err := a.setup()
	if err != nil {
		return err
	}
	rep, err := a.reporter()
	if err != nil {
		return err
	}

	if isStdin(args) {
		if write {
			return errors.New("livemath clear: cannot write back to stdin")
		}
		out := a.stdinOutcome(func(text string) (*calc.Result, string, error) {
			cleared, err := engine.Clear(text)
			return nil, cleared, err
		})
		return a.finish(rep, []docOutcome{out}, true)
	}

	paths, err := collectDocuments(args, cfg.Extensions, cfg.Exclude)
	if err != nil {
		return err
	}
	outcomes, err := runBatch(ctx, paths, cfg.Jobs, func(ctx context.Context, path string) docOutcome {
		out := docOutcome{Path: path}
		data, err := os.ReadFile(path)
		if err != nil {
			out.Err = fmt.Errorf("read %s: %w", path, err)
			return out
		}
		cleared, err := engine.Clear(string(data))
		if err != nil {
			out.Err = fmt.Errorf("%s: %w", displayPath(path), err)
			return out
		}
		out.Text = cleared
		if write && cleared != string(data) {
			if err := writeDocument(path, cleared); err != nil {
				out.Err = err
				return out
			}
			out.Written = true
		}
		return out
	})
	if err != nil {
		return err
	}
	return a.finish(rep, outcomes, !write)
}

func (a *app) runCheck(ctx context.Context, args []string) error {
	engine, cfg, err := a.setup()
	if err != nil {
		return err
	}
	rep, err := a.reporter()
	if err != nil {
		return err
	}

	var outcomes []docOutcome
	check := func(ctx context.Context, text string) (*calc.Result, string, error) {
		res, err := engine.Process(ctx, text)
		if err != nil {
			return nil, "", err
		}
		return res, "", nil
	}
	if isStdin(args) {
		outcomes = []docOutcome{a.stdinOutcome(func(text string) (*calc.Result, string, error) {
			return check(ctx, text)
		})}
	} else {
		paths, err := collectDocuments(args, cfg.Extensions, cfg.Exclude)
		if err != nil {
			return err
		}
		outcomes, err = runBatch(ctx, paths, cfg.Jobs, func(ctx context.Context, path string) docOutcome {
			out := docOutcome{Path: path}
			data, err := os.ReadFile(path)
			if err != nil {
				out.Err = fmt.Errorf("read %s: %w", path, err)
				return out
			}
			if out.Result, _, err = check(ctx, string(data)); err != nil {
				out.Err = fmt.Errorf("%s: %w", displayPath(path), err)
			}
			return out
		})
		if err != nil {
			return err
		}
	}

	if err := a.finish(rep, outcomes, false); err != nil {
		return err
	}
	errs, docs := 0, 0
	for _, out := range outcomes {
		if out.Result != nil && out.Result.HasErrors() {
			errs += out.Result.Stats.Errors
			docs++
		}
	}
	if errs > 0 {
		return fmt.Errorf("livemath check: %d error(s) in %d document(s)", errs, docs)
	}
	return nil
}

func (a *app) stdinOutcome(fn func(text string) (*calc.Result, string, error)) docOutcome {
	out := docOutcome{Path: stdinPath}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		out.Err = fmt.Errorf("read stdin: %w", err)
		return out
	}
	out.Result, out.Text, out.Err = fn(string(data))
	return out
}

// finish reports every outcome in order and prints the resulting text when
// printText is set. Per-document failures are reported and counted rather
// than stopping the batch.
func (a *app) finish(rep *reporter, outcomes []docOutcome, printText bool) error {
	failed := 0
	for _, out := range outcomes {
		name := displayPath(out.Path)
		if out.Err != nil {
			rep.errorf("%v", out.Err)
			failed++
			continue
		}
		if out.Skipped {
			rep.stats(name, calc.Stats{}, "unchanged since the last write, skipped")
			continue
		}
		if out.Result != nil {
			rep.diagnostics(name, out.Result.Diagnostics)
			rep.stats(name, out.Result.Stats, "")
		} else if out.Written {
			rep.stats(name, calc.Stats{}, "cleared")
		}
		if printText && !a.dump {
			fmt.Fprint(a.stdout, out.Text)
		}
	}
	if a.dump {
		if err := dumpOutcomes(a.stdout, outcomes); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}

type dumpEntry struct {
	Path   string       `json:"path"`
	Result *calc.Result `json:"result"`
}

func dumpOutcomes(w io.Writer, outcomes []docOutcome) error {
	entries := make([]dumpEntry, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Result == nil {
			continue
		}
		entries = append(entries, dumpEntry{Path: displayPath(out.Path), Result: out.Result})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeDocument(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isStdin(args []string) bool {
	return len(args) == 1 && args[0] == stdinPath
}

// displayPath shortens absolute paths below the working directory.
func displayPath(path string) string {
	if path == stdinPath {
		return "<stdin>"
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
