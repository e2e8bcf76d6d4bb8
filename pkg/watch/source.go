package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"syncrepo/pkg/filter"
)

// renamePairWindow is how long a rename waits for its companion create
// event before it decays into a plain deletion. fsnotify reports a rename
// as a Rename on the old path followed, when the destination stays inside
// the watched tree, by a Create on the new path.
const renamePairWindow = 200 * time.Millisecond

// Source subscribes to recursive fsnotify notifications for a root
// directory and dispatches file events to a handler. Directory events only
// maintain the watch list; they are never dispatched.
type Source struct {
	root       string
	watcher    *fsnotify.Watcher
	pathFilter *filter.Filter
	handler    func(Event)
	logger     *zap.Logger

	mu            sync.Mutex
	watchedDirs   map[string]struct{}
	pendingRename string
	renameTimer   *time.Timer
}

// NewSource creates the fsnotify watcher and attaches it to every directory
// under root that the filter does not prune. Failure here is fatal to
// startup: nothing useful can happen without the watcher.
func NewSource(root string, pathFilter *filter.Filter, handler func(Event), logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}

	source := &Source{
		root:        root,
		watcher:     watcher,
		pathFilter:  pathFilter,
		handler:     handler,
		logger:      logger,
		watchedDirs: make(map[string]struct{}),
	}

	walkErr := filepath.WalkDir(root, func(currentPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if currentPath != root && pathFilter.PrunesDir(entry.Name()) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(currentPath); addErr != nil {
			return fmt.Errorf("watch directory %s: %w", currentPath, addErr)
		}
		source.watchedDirs[currentPath] = struct{}{}
		return nil
	})
	if walkErr != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("attach watcher to %s: %w", root, walkErr)
	}

	logger.Info("Watching for changes",
		zap.String("root", root),
		zap.Int("directories", len(source.watchedDirs)))
	return source, nil
}

// Run consumes fsnotify events until the context is cancelled. Watcher
// errors are logged and never stop the loop.
func (s *Source) Run(ctx context.Context) error {
	defer s.close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handleRaw(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

// handleRaw translates one fsnotify event. fsnotify can combine operation
// bits, so the checks are ordered: create, write, remove, rename.
func (s *Source) handleRaw(raw fsnotify.Event) {
	switch {
	case raw.Has(fsnotify.Create):
		s.handleCreate(raw.Name)
	case raw.Has(fsnotify.Write):
		if !s.isWatchedDir(raw.Name) {
			s.dispatch(Event{Op: Modified, Path: raw.Name})
		}
	case raw.Has(fsnotify.Remove):
		if s.forgetDir(raw.Name) {
			return
		}
		s.dispatch(Event{Op: Deleted, Path: raw.Name})
	case raw.Has(fsnotify.Rename):
		if s.forgetDir(raw.Name) {
			return
		}
		s.recordRename(raw.Name)
	}
}

// handleCreate distinguishes new directories (which extend the watch) from
// new files (which either complete a pending rename or stand alone).
func (s *Source) handleCreate(absolutePath string) {
	if info, err := os.Stat(absolutePath); err == nil && info.IsDir() {
		if s.pathFilter.PrunesDir(filepath.Base(absolutePath)) {
			return
		}
		if addErr := s.watcher.Add(absolutePath); addErr != nil {
			s.logger.Warn("Cannot watch new directory",
				zap.String("path", absolutePath),
				zap.Error(addErr))
			return
		}
		s.mu.Lock()
		s.watchedDirs[absolutePath] = struct{}{}
		s.mu.Unlock()
		return
	}

	if oldPath, paired := s.takePendingRename(); paired {
		s.dispatch(Event{Op: Moved, Path: absolutePath, OldPath: oldPath})
		return
	}
	s.dispatch(Event{Op: Created, Path: absolutePath})
}

// recordRename holds the renamed-away path until either a create completes
// the pair or the pairing window expires and the rename becomes a delete.
func (s *Source) recordRename(absolutePath string) {
	s.mu.Lock()

	// A second rename before the first resolves: the first decays to a
	// deletion. It is dispatched synchronously from the event loop so it
	// cannot overtake, or be overtaken by, later events for the same path.
	var stale string
	if s.pendingRename != "" {
		stale = s.pendingRename
		s.renameTimer.Stop()
	}

	s.pendingRename = absolutePath
	s.renameTimer = time.AfterFunc(renamePairWindow, func() {
		if oldPath, pending := s.takePendingRename(); pending {
			s.dispatch(Event{Op: Deleted, Path: oldPath})
		}
	})
	s.mu.Unlock()

	if stale != "" {
		s.dispatch(Event{Op: Deleted, Path: stale})
	}
}

// takePendingRename claims the pending rename, if any, cancelling its decay
// timer.
func (s *Source) takePendingRename() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingRename == "" {
		return "", false
	}
	oldPath := s.pendingRename
	s.pendingRename = ""
	if s.renameTimer != nil {
		s.renameTimer.Stop()
		s.renameTimer = nil
	}
	return oldPath, true
}

func (s *Source) isWatchedDir(absolutePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, watched := s.watchedDirs[absolutePath]
	return watched
}

// forgetDir drops a directory from the watch record. It reports whether the
// path was a watched directory, so callers can suppress the event.
func (s *Source) forgetDir(absolutePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, watched := s.watchedDirs[absolutePath]; watched {
		delete(s.watchedDirs, absolutePath)
		return true
	}
	return false
}

func (s *Source) dispatch(event Event) {
	s.handler(event)
}

func (s *Source) close() {
	s.mu.Lock()
	if s.renameTimer != nil {
		s.renameTimer.Stop()
		s.renameTimer = nil
	}
	s.pendingRename = ""
	s.mu.Unlock()

	if err := s.watcher.Close(); err != nil {
		s.logger.Warn("Error closing watcher", zap.Error(err))
	}
}
