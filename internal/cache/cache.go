// Package cache locates per-project catalog directories and memoizes decoded
// class declarations in memory.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Cache manages the on-disk cache root.
// Encapsulates the root directory to avoid environment variable pollution in tests.
type Cache struct {
	// root is the directory holding one subdirectory per project.
	// If empty, defaults to ~/.apisummarizer/cache
	root string
}

// NewCache creates a new Cache instance.
func NewCache(root string) *Cache {
	return &Cache{root: root}
}

// Root returns the effective cache root.
func (c *Cache) Root() string {
	if c.root != "" {
		return c.root
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".apisummarizer", "cache")
}

// ProjectDir returns {root}/{projectKey} for the project.
func (c *Cache) ProjectDir(projectPath string) (string, error) {
	key, err := ProjectKey(projectPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute project key: %w", err)
	}
	return filepath.Join(c.Root(), key), nil
}

// CatalogPath returns the default catalog database path for the project and
// creates its directory.
//
// Layout: {root}/{projectKey}/catalog.db
func (c *Cache) CatalogPath(projectPath string) (string, error) {
	dir, err := c.ProjectDir(projectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}
