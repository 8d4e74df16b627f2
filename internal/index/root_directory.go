package index

import (
	"fmt"
	"path/filepath"

	"lexisearch/internal/storage"
)

// RootDir is the lexisearch server's top-level data layout: one
// subdirectory per index plus global configuration and lock files. Path
// methods are pure computation.
type RootDir struct {
	Root string
}

// NewRootDir wraps a root path.
func NewRootDir(root string) *RootDir {
	return &RootDir{Root: root}
}

// IndexesDir holds one subdirectory per index.
func (r *RootDir) IndexesDir() string {
	return filepath.Join(r.Root, "indexes")
}

// GlobalDir holds server-wide state.
func (r *RootDir) GlobalDir() string {
	return filepath.Join(r.Root, "global")
}

// ConfigPath is the server configuration file.
func (r *RootDir) ConfigPath() string {
	return filepath.Join(r.Root, "global", "config.json")
}

// LocksDir holds per-index lock files.
func (r *RootDir) LocksDir() string {
	return filepath.Join(r.Root, "global", "locks")
}

// LockPath is one index's lock file.
func (r *RootDir) LockPath(indexName string) string {
	return filepath.Join(r.Root, "global", "locks", indexName+".lock")
}

// IndexDir resolves an index name to its directory layout.
func (r *RootDir) IndexDir(indexName string) *IndexDir {
	return NewIndexDir(filepath.Join(r.Root, "indexes", indexName))
}

// EnsureDirectories creates the top-level layout as needed.
func (r *RootDir) EnsureDirectories() error {
	for _, dir := range []string{r.IndexesDir(), r.GlobalDir(), r.LocksDir()} {
		if err := storage.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// ListIndexes names every index directory on disk.
func (r *RootDir) ListIndexes() ([]string, error) {
	return storage.ListSubdirs(r.IndexesDir())
}
