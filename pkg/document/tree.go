package document

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// CommandTree renders the directory listing with the external tree binary,
// falling back to a native walk when the binary is missing or fails. The
// listing is informational: it deliberately shows the whole tree, including
// files the cache filters out.
type CommandTree struct {
	logger *zap.Logger
}

// NewCommandTree returns a tree renderer.
func NewCommandTree(logger *zap.Logger) *CommandTree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandTree{logger: logger}
}

// Render returns the listing for root.
func (r *CommandTree) Render(root string) (string, error) {
	output, err := exec.Command("tree", root).Output()
	if err == nil && len(output) > 0 {
		return string(output), nil
	}
	if err != nil {
		r.logger.Debug("tree command unavailable, using native renderer", zap.Error(err))
	}
	return renderNativeTree(root)
}

// renderNativeTree walks the directory and draws connector-style lines like
// the tree binary does.
func renderNativeTree(root string) (string, error) {
	var builder strings.Builder
	builder.WriteString(root + "\n")
	if err := writeTreeLevel(&builder, root, ""); err != nil {
		return "", fmt.Errorf("render tree for %s: %w", root, err)
	}
	return builder.String(), nil
}

func writeTreeLevel(builder *strings.Builder, directory, prefix string) error {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for i, entry := range entries {
		connector := "├── "
		extension := "│   "
		if i == len(entries)-1 {
			connector = "└── "
			extension = "    "
		}
		builder.WriteString(prefix + connector + entry.Name() + "\n")
		if entry.IsDir() {
			childPath := directory + string(os.PathSeparator) + entry.Name()
			if err := writeTreeLevel(builder, childPath, prefix+extension); err != nil {
				// An unreadable subdirectory still appears in the
				// listing; its children are simply absent.
				continue
			}
		}
	}
	return nil
}
