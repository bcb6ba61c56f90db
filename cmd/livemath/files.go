package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"_build":       {},
	"_site":        {},
}

// collectDocuments expands the targets into the documents to process.
// Files named directly are always taken; directories are walked for files
// with one of the extensions, honoring the directory's .gitignore and the
// exclude patterns.
func collectDocuments(targets, extensions, exclude []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	addFile := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	var excluded *ignore.GitIgnore
	if len(exclude) > 0 {
		excluded = ignore.CompileIgnoreLines(exclude...)
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			addFile(target)
			continue
		}
		gi := loadGitignore(target)
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			name := entry.Name()
			if entry.IsDir() {
				if path == target {
					return nil
				}
				if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if ignoredPath(rel+"/", gi, excluded) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || entry.Type()&os.ModeSymlink != 0 {
				return nil
			}
			if !hasExtension(name, extensions) || ignoredPath(rel, gi, excluded) {
				return nil
			}
			addFile(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func ignoredPath(path string, matchers ...*ignore.GitIgnore) bool {
	for _, gi := range matchers {
		if gi != nil && gi.MatchesPath(path) {
			return true
		}
	}
	return false
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
