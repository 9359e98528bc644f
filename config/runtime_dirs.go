package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RuntimeDirs holds the runtime directory paths for the fastpath daemon:
//
//	{base}/       - runtime root
//	{base}/db/    - settings database directory
//
// RuntimeDirs is immutable after construction. Use NewRuntimeDirs to
// create one; fields are unexported to prevent invalid instances.
type RuntimeDirs struct {
	base string
	db   string
}

// DefaultRuntimeDirs returns RuntimeDirs with production defaults.
// Panics if the default path is somehow invalid (should never happen).
func DefaultRuntimeDirs() RuntimeDirs {
	dirs, err := NewRuntimeDirs("/run/fastpath")
	if err != nil {
		panic(fmt.Sprintf("DefaultRuntimeDirs: %v", err))
	}
	return dirs
}

// NewRuntimeDirs creates RuntimeDirs rooted at the given base path.
// Returns an error if base is empty or not an absolute path.
func NewRuntimeDirs(base string) (RuntimeDirs, error) {
	if base == "" {
		return RuntimeDirs{}, fmt.Errorf("base path cannot be empty")
	}
	if !filepath.IsAbs(base) {
		return RuntimeDirs{}, fmt.Errorf("base path must be absolute, got %q", base)
	}

	return RuntimeDirs{
		base: base,
		db:   filepath.Join(base, "db"),
	}, nil
}

// Base returns the runtime root path (e.g., /run/fastpath).
func (d RuntimeDirs) Base() string { return d.base }

// DB returns the database directory path.
func (d RuntimeDirs) DB() string { return d.db }

// DBPath returns the full path to the settings database file.
func (d RuntimeDirs) DBPath() string {
	return filepath.Join(d.db, "settings.db")
}

// EnsureDirectories creates the runtime directories. Call this at
// startup to fail fast on permission problems. MkdirAll is idempotent.
func (d RuntimeDirs) EnsureDirectories() error {
	for _, dir := range []string{d.base, d.db} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
