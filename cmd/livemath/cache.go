package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when runEntry changes shape; older entries are then ignored.
const runCacheSchemaVersion uint16 = 1

// runCache remembers, per document, the text livemath last wrote. A batch
// run skips a document whose content still hashes to that text under the
// same settings. Safe for concurrent use.
type runCache struct {
	mu  sync.RWMutex
	dir string
}

type runEntry struct {
	Schema      uint16
	Path        string
	OutputHash  string
	SettingsKey string
	Errors      int
	Warnings    int
	WrittenAt   time.Time
}

func openRunCache() (*runCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "livemath", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &runCache{dir: dir}, nil
}

func (c *runCache) pathFor(docPath string) string {
	sum := sha256.Sum256([]byte(docPath))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".mp")
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *runCache) put(entry *runEntry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Schema = runCacheSchemaVersion
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), c.pathFor(entry.Path))
}

func (c *runCache) get(docPath string) (*runEntry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(docPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry runEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry for %s: %w", docPath, err)
	}
	if entry.Schema != runCacheSchemaVersion || entry.Path != docPath {
		return nil, false, nil
	}
	return &entry, true, nil
}

// unchanged reports whether text is exactly what was last written for
// docPath under the same settings.
func (c *runCache) unchanged(docPath, text, settingsKey string) bool {
	entry, ok, err := c.get(docPath)
	if err != nil || !ok {
		return false
	}
	return entry.SettingsKey == settingsKey && entry.OutputHash == contentHash(text)
}
