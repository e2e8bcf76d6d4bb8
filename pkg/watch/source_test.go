package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"syncrepo/pkg/filter"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// waitFor polls until the predicate holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, predicate func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return predicate()
}

func startSource(t *testing.T, root string) (*eventRecorder, context.CancelFunc) {
	t.Helper()
	pathFilter, err := filter.New(filter.Config{Extensions: []string{".js"}, ExcludeDirs: []string{"build"}})
	if err != nil {
		t.Fatalf("filter.New failed: %v", err)
	}

	recorder := &eventRecorder{}
	source, err := NewSource(root, pathFilter, recorder.record, nil)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = source.Run(ctx) }()
	// Give the OS watcher a moment to become effective.
	time.Sleep(50 * time.Millisecond)
	return recorder, cancel
}

func TestSourceReportsFileCreation(t *testing.T) {
	root := t.TempDir()
	recorder, cancel := startSource(t, root)
	defer cancel()

	filePath := filepath.Join(root, "app.js")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, event := range recorder.snapshot() {
			if event.Op == Created && event.Path == filePath {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatalf("no Created event for %s; events: %v", filePath, recorder.snapshot())
	}
}

func TestSourceWatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	recorder, cancel := startSource(t, root)
	defer cancel()

	subDir := filepath.Join(root, "nested")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Let the create event for the directory arrive and extend the watch.
	time.Sleep(200 * time.Millisecond)

	filePath := filepath.Join(subDir, "inner.js")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, event := range recorder.snapshot() {
			if event.Op == Created && event.Path == filePath {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatalf("no Created event for file in new subdirectory; events: %v", recorder.snapshot())
	}

	// The directory creation itself must not surface as a file event.
	for _, event := range recorder.snapshot() {
		if event.Path == subDir {
			t.Fatalf("directory event dispatched: %v", event)
		}
	}
}

func TestSupersededRenameFlushesInOrder(t *testing.T) {
	recorder := &eventRecorder{}
	source := &Source{
		handler:     recorder.record,
		logger:      zap.NewNop(),
		watchedDirs: make(map[string]struct{}),
	}

	// A second rename supersedes the first, and a create then pairs with
	// the second. The first rename's deletion must already be on record
	// when the Moved event arrives, not trail in behind it.
	source.recordRename("/repo/a.js")
	source.recordRename("/repo/b.js")
	source.handleCreate(filepath.Join(t.TempDir(), "c.js"))

	events := recorder.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events; want 2: %v", len(events), events)
	}
	if events[0].Op != Deleted || events[0].Path != "/repo/a.js" {
		t.Fatalf("events[0] = %v; want Deleted /repo/a.js", events[0])
	}
	if events[1].Op != Moved || events[1].OldPath != "/repo/b.js" {
		t.Fatalf("events[1] = %v; want Moved from /repo/b.js", events[1])
	}
}

func TestSourceDecaysUnpairedRenameToDelete(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "app.js")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	recorder, cancel := startSource(t, root)
	defer cancel()

	// Rename out of the watched tree: no companion create ever arrives.
	outside := filepath.Join(t.TempDir(), "app.js")
	if err := os.Rename(filePath, outside); err != nil {
		t.Fatalf("rename: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, event := range recorder.snapshot() {
			if event.Op == Deleted && event.Path == filePath {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatalf("unpaired rename did not decay to delete; events: %v", recorder.snapshot())
	}
}
