package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"syncrepo/pkg/filter"
)

var (
	errBinaryFile   = errors.New("binary content")
	errFileTooLarge = errors.New("file exceeds size limit")
)

// candidateFile is a file selected by the walk, prior to reading.
type candidateFile struct {
	absolutePath string
	relativePath string
}

// readResult carries the outcome of reading one candidate.
type readResult struct {
	relativePath string
	content      string
	ok           bool
}

// LoadInitial clears the cache and repopulates it from a full walk of
// rootDir. Directories pruned by the filter are skipped at the point of
// descent, so nothing below them is visited. The walk itself is
// deterministic (WalkDir visits entries in lexical order); file contents are
// then read by a small worker pool. Read failures are logged and the file is
// omitted, never fatal. The cache lock is held for the whole
// clear-and-repopulate duration.
func (c *Cache) LoadInitial(rootDir string, pathFilter *filter.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.files = make(map[string]string)

	var candidates []candidateFile
	walkErr := filepath.WalkDir(rootDir, func(currentPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("Error accessing path during scan",
				zap.String("path", currentPath),
				zap.Error(err))
			return nil
		}
		if entry.IsDir() {
			if currentPath != rootDir && pathFilter.PrunesDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		relativePath, relErr := filepath.Rel(rootDir, currentPath)
		if relErr != nil {
			c.logger.Warn("Unable to determine relative path",
				zap.String("path", currentPath),
				zap.Error(relErr))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if pathFilter.Includes(relativePath) {
			candidates = append(candidates, candidateFile{
				absolutePath: currentPath,
				relativePath: relativePath,
			})
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("scan %s: %w", rootDir, walkErr)
	}

	for result := range c.readConcurrently(candidates) {
		if result.ok {
			c.files[result.relativePath] = result.content
		}
	}

	c.logger.Info("Initial scan complete",
		zap.String("root", rootDir),
		zap.Int("trackedFiles", len(c.files)))
	return nil
}

// readConcurrently reads candidate files with a pool of workers and streams
// the results back. Caller must hold c.mu; workers only touch the
// filesystem, never the map.
func (c *Cache) readConcurrently(candidates []candidateFile) <-chan readResult {
	jobs := make(chan candidateFile, len(candidates))
	results := make(chan readResult, len(candidates))

	workerCount := runtime.NumCPU()
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				content, err := c.readTextFile(candidate.absolutePath)
				if err != nil {
					c.logReadFailure(candidate.absolutePath, err)
					results <- readResult{relativePath: candidate.relativePath}
					continue
				}
				results <- readResult{
					relativePath: candidate.relativePath,
					content:      content,
					ok:           true,
				}
			}
		}()
	}

	for _, candidate := range candidates {
		jobs <- candidate
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// readTextFile reads a file for caching, rejecting oversized and binary
// content.
func (c *Cache) readTextFile(absolutePath string) (string, error) {
	info, err := os.Stat(absolutePath)
	if err != nil {
		return "", err
	}
	if info.Size() > int64(c.maxFileSizeKB)*1024 {
		return "", fmt.Errorf("%w: %d bytes", errFileTooLarge, info.Size())
	}

	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return "", err
	}
	if isBinaryContent(data) {
		return "", errBinaryFile
	}
	return string(data), nil
}

func (c *Cache) logReadFailure(absolutePath string, err error) {
	if errors.Is(err, errBinaryFile) || errors.Is(err, errFileTooLarge) {
		c.logger.Debug("Skipping file during scan",
			zap.String("path", absolutePath),
			zap.Error(err))
		return
	}
	c.logger.Warn("Failed to read file during scan",
		zap.String("path", absolutePath),
		zap.Error(err))
}
