// Package cache maintains the in-memory mapping from relative file path to
// file content that backs the rendered snapshot document.
package cache

import (
	"errors"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Cache owns the path-to-content mapping. A single mutex guards every
// mutation and every read so a rebuild never observes a half-applied move.
// Absence of a key means the file is not tracked: out of scope, unreadable,
// or deleted.
type Cache struct {
	mu            sync.Mutex
	files         map[string]string
	maxFileSizeKB int
	logger        *zap.Logger
}

// New returns an empty cache. Files larger than maxFileSizeKB kilobytes are
// skipped during reads; a non-positive value applies the default of 1024.
func New(maxFileSizeKB int, logger *zap.Logger) *Cache {
	if maxFileSizeKB <= 0 {
		maxFileSizeKB = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		files:         make(map[string]string),
		maxFileSizeKB: maxFileSizeKB,
		logger:        logger,
	}
}

// Upsert re-reads the file at absolutePath and stores its content under
// relativePath, overwriting any prior entry. If the file no longer exists,
// or cannot be read as text, the entry is removed instead: an unreadable
// file is explicitly absent, never stale.
func (c *Cache) Upsert(absolutePath, relativePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(absolutePath, relativePath)
}

// Remove deletes the entry for relativePath. Removing an absent path is a
// no-op.
func (c *Cache) Remove(relativePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, relativePath)
}

// Move applies a rename as one critical section: the old entry is removed
// and the destination is re-read and stored before any reader can observe
// the intermediate state. Either side may be empty when that side of the
// rename is out of scope.
func (c *Cache) Move(oldRelativePath, newAbsolutePath, newRelativePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if oldRelativePath != "" {
		delete(c.files, oldRelativePath)
	}
	if newRelativePath != "" {
		c.upsertLocked(newAbsolutePath, newRelativePath)
	}
}

// Paths returns every tracked relative path in ascending lexicographic
// order.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.files))
	for relativePath := range c.files {
		paths = append(paths, relativePath)
	}
	sort.Strings(paths)
	return paths
}

// Snapshot returns the sorted paths and a point-in-time copy of the content
// mapping, taken under one lock. A rebuild renders from a snapshot so a
// concurrent move is either fully visible or not visible at all.
func (c *Cache) Snapshot() ([]string, map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.files))
	contents := make(map[string]string, len(c.files))
	for relativePath, content := range c.files {
		paths = append(paths, relativePath)
		contents[relativePath] = content
	}
	sort.Strings(paths)
	return paths, contents
}

// Content returns the stored content for relativePath, or an empty string
// when the path is not tracked.
func (c *Cache) Content(relativePath string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[relativePath]
}

// Len returns the number of tracked files.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// upsertLocked stores the current on-disk content for relativePath. Caller
// must hold c.mu.
func (c *Cache) upsertLocked(absolutePath, relativePath string) {
	content, err := c.readTextFile(absolutePath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			// A vanished file behaves as a removal.
		case errors.Is(err, errBinaryFile) || errors.Is(err, errFileTooLarge):
			c.logger.Debug("Skipping file",
				zap.String("path", absolutePath),
				zap.Error(err))
		default:
			c.logger.Warn("Dropping unreadable file from cache",
				zap.String("path", absolutePath),
				zap.Error(err))
		}
		delete(c.files, relativePath)
		return
	}
	c.files[relativePath] = content
}
