package watch

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"syncrepo/pkg/cache"
	"syncrepo/pkg/filter"
)

// Scheduler owes the system a rebuild some time after Trigger is called.
// *debounce.Debouncer satisfies it.
type Scheduler interface {
	Trigger()
}

// Monitor applies filtered file events to the repository cache and signals
// the rebuild scheduler. It is the cache's single logical writer once live
// monitoring starts.
type Monitor struct {
	root       string
	repoCache  *cache.Cache
	pathFilter *filter.Filter
	scheduler  Scheduler
	logger     *zap.Logger
}

// NewMonitor wires a monitor to the watched root and its collaborators.
func NewMonitor(root string, repoCache *cache.Cache, pathFilter *filter.Filter, scheduler Scheduler, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		root:       root,
		repoCache:  repoCache,
		pathFilter: pathFilter,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Handle processes one file event. Out-of-scope events are dropped without
// touching the cache or the scheduler.
func (m *Monitor) Handle(event Event) {
	switch event.Op {
	case Created, Modified:
		relativePath, inScope := m.scopedRelativePath(event.Path)
		if !inScope {
			return
		}
		m.logger.Debug("File changed",
			zap.String("op", event.Op.String()),
			zap.String("path", relativePath))
		m.repoCache.Upsert(event.Path, relativePath)
		m.scheduler.Trigger()

	case Deleted:
		// Filtering is evaluated purely on the name; the file is
		// already gone from disk.
		relativePath, inScope := m.scopedRelativePath(event.Path)
		if !inScope {
			return
		}
		m.logger.Debug("File deleted", zap.String("path", relativePath))
		m.repoCache.Remove(relativePath)
		m.scheduler.Trigger()

	case Moved:
		oldRelativePath, oldInScope := m.scopedRelativePath(event.OldPath)
		newRelativePath, newInScope := m.scopedRelativePath(event.Path)
		if !oldInScope {
			oldRelativePath = ""
		}
		if !newInScope {
			newRelativePath = ""
		}
		if oldRelativePath == "" && newRelativePath == "" {
			return
		}
		m.logger.Debug("File moved",
			zap.String("from", event.OldPath),
			zap.String("to", event.Path))
		m.repoCache.Move(oldRelativePath, event.Path, newRelativePath)
		m.scheduler.Trigger()
	}
}

// scopedRelativePath resolves an absolute path against the watched root and
// runs it through the path filter. The second return value is false when
// the path lies outside the root or fails the filter.
func (m *Monitor) scopedRelativePath(absolutePath string) (string, bool) {
	relativePath, err := filepath.Rel(m.root, absolutePath)
	if err != nil {
		return "", false
	}
	relativePath = filepath.ToSlash(relativePath)
	// Only a leading ".." path component escapes the root; a file whose
	// name merely starts with two dots is inside it.
	if relativePath == ".." || strings.HasPrefix(relativePath, "../") {
		return "", false
	}
	if !m.pathFilter.Includes(relativePath) {
		return "", false
	}
	return relativePath, true
}
