// Package store implements the on-disk peer-list cache: a best-effort
// JSON snapshot of known addresses, read at startup and rewritten on
// every peer-table change when persistence is enabled. The shape,
// load-if-present, swallow errors, save overwrites whole file, is
// grounded on nflog.Log's Snapshot/loadSnapshot pair.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
)

// FileStore persists a sorted address list to a single JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// PathFor derives the cache file path from a node's bind address by
// replacing every '.' and ':' with '_' and appending ".json".
func PathFor(addr string) string {
	r := strings.NewReplacer(".", "_", ":", "_")
	return r.Replace(addr) + ".json"
}

func New(selfAddr string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: PathFor(selfAddr), logger: logger}
}

// Load reads the cache file, returning a nil slice (not an error) if it
// is absent, unreadable, or malformed. Disk I/O failures here are never
// fatal to node startup.
func (f *FileStore) Load() []string {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil
	}
	var addrs []string
	if err := json.Unmarshal(b, &addrs); err != nil {
		f.logger.Debug("peer cache unreadable, ignoring", "path", f.path, "err", err)
		return nil
	}
	return addrs
}

// Save overwrites the cache file with addrs. Write failures are logged
// and swallowed; persistence is best-effort.
func (f *FileStore) Save(addrs []string) {
	b, err := json.Marshal(addrs)
	if err != nil {
		return
	}
	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		f.logger.Debug("peer cache write failed", "path", f.path, "err", err)
	}
}
