// Package watch turns raw filesystem notifications into repository cache
// mutations and rebuild triggers.
package watch

// Op identifies the kind of change a filesystem event describes.
type Op int

const (
	// Created indicates a new file appeared.
	Created Op = iota
	// Modified indicates an existing file's content changed.
	Modified
	// Deleted indicates a file was removed.
	Deleted
	// Moved indicates a file was renamed; OldPath holds the source.
	Moved
)

// String returns the lowercase name of the operation.
func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is a single file change. Path is absolute. OldPath is set only for
// Moved events. Directory-level events never reach the monitor; the source
// filters them out.
type Event struct {
	Op      Op
	Path    string
	OldPath string
}
