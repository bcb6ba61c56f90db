package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mgomes/livemath/calc"
)

const configFileName = "livemath.toml"

var defaultExtensions = []string{".md", ".markdown"}

type fileConfig struct {
	Format formatConfig `toml:"format"`
	Limits limitsConfig `toml:"limits"`
	Files  filesConfig  `toml:"files"`
}

type formatConfig struct {
	Digits   int    `toml:"digits"`
	Notation string `toml:"notation"`
}

type limitsConfig struct {
	Recursion int    `toml:"recursion"`
	Steps     int    `toml:"steps"`
	Timeout   string `toml:"timeout"`
}

type filesConfig struct {
	Extensions []string `toml:"extensions"`
	Exclude    []string `toml:"exclude"`
	Jobs       int      `toml:"jobs"`
}

// settings is the merged view of livemath.toml and the command line.
type settings struct {
	Path       string
	Engine     calc.Config
	Extensions []string
	Exclude    []string
	Jobs       int
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadFileConfig(path string) (settings, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return settings{}, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	out := defaultSettings()
	out.Path = path
	if meta.IsDefined("format", "digits") {
		if cfg.Format.Digits < 1 || cfg.Format.Digits > calc.MaxDigits {
			return settings{}, fmt.Errorf("%s: format.digits must be between 1 and %d", path, calc.MaxDigits)
		}
		out.Engine.Format.Digits = cfg.Format.Digits
	}
	if meta.IsDefined("format", "notation") {
		notation, err := calc.ParseNotation(cfg.Format.Notation)
		if err != nil {
			return settings{}, fmt.Errorf("%s: format.notation: %w", path, err)
		}
		out.Engine.Format.Notation = notation
	}
	if meta.IsDefined("limits", "recursion") {
		if cfg.Limits.Recursion <= 0 {
			return settings{}, fmt.Errorf("%s: limits.recursion must be positive", path)
		}
		out.Engine.RecursionLimit = cfg.Limits.Recursion
	}
	if meta.IsDefined("limits", "steps") {
		if cfg.Limits.Steps <= 0 {
			return settings{}, fmt.Errorf("%s: limits.steps must be positive", path)
		}
		out.Engine.StepQuota = cfg.Limits.Steps
	}
	if meta.IsDefined("limits", "timeout") {
		timeout, err := time.ParseDuration(strings.TrimSpace(cfg.Limits.Timeout))
		if err != nil || timeout <= 0 {
			return settings{}, fmt.Errorf("%s: limits.timeout must be a positive duration such as \"1s\"", path)
		}
		out.Engine.CalcTimeout = timeout
	}
	if meta.IsDefined("files", "extensions") {
		exts := make([]string, 0, len(cfg.Files.Extensions))
		for _, ext := range cfg.Files.Extensions {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, strings.ToLower(ext))
		}
		if len(exts) == 0 {
			return settings{}, fmt.Errorf("%s: files.extensions must not be empty", path)
		}
		out.Extensions = exts
	}
	if meta.IsDefined("files", "exclude") {
		out.Exclude = cfg.Files.Exclude
	}
	if meta.IsDefined("files", "jobs") {
		if cfg.Files.Jobs < 0 {
			return settings{}, fmt.Errorf("%s: files.jobs must not be negative", path)
		}
		out.Jobs = cfg.Files.Jobs
	}
	return out, nil
}

func defaultSettings() settings {
	return settings{Extensions: defaultExtensions}
}

// loadSettings reads the explicit config path, or the nearest livemath.toml
// above startDir, or falls back to the defaults.
func loadSettings(explicit, startDir string) (settings, error) {
	if explicit != "" {
		return loadFileConfig(explicit)
	}
	path, ok, err := findConfigFile(startDir)
	if err != nil {
		return settings{}, err
	}
	if !ok {
		return defaultSettings(), nil
	}
	return loadFileConfig(path)
}
