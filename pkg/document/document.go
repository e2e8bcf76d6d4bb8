// Package document renders the repository cache into the consolidated
// Markdown document and writes it out.
package document

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"syncrepo/pkg/cache"
	"syncrepo/pkg/clipboard"
	"syncrepo/pkg/tokenizer"
)

// TreePlaceholder substitutes for the directory listing when no renderer
// produces output.
const TreePlaceholder = "Could not generate tree structure."

// TreeRenderer produces a human-readable listing of the tree under root.
type TreeRenderer interface {
	Render(root string) (string, error)
}

// Compose assembles the final document: the tree listing followed by one
// fenced block per file, in the order the paths are given. Fence characters
// inside file content are reproduced verbatim; downstream consumers depend
// on this exact layout.
func Compose(treeOutput string, paths []string, contentOf func(string) string) string {
	var builder strings.Builder
	builder.WriteString("========== TREE OUTPUT ==========\n")
	builder.WriteString(treeOutput)
	builder.WriteString("\n\n========== CODE OUTPUT ==========\n\n")
	for _, relativePath := range paths {
		builder.WriteString(fmt.Sprintf("----- FILE: %s -----\n", relativePath))
		builder.WriteString("```\n")
		builder.WriteString(contentOf(relativePath))
		builder.WriteString("\n```\n\n")
	}
	return builder.String()
}

// Params wires a Generator to its collaborators. Counter and Copier are
// optional; a nil Counter skips the token report and a nil Copier skips the
// clipboard copy.
type Params struct {
	Root       string
	OutputPath string
	Cache      *cache.Cache
	Tree       TreeRenderer
	Counter    tokenizer.Counter
	Copier     clipboard.Copier
	Logger     *zap.Logger
}

// Generator regenerates the consolidated document from the current cache
// state. Rebuild is the debounced callback of the watch pipeline.
type Generator struct {
	root       string
	outputPath string
	repoCache  *cache.Cache
	tree       TreeRenderer
	counter    tokenizer.Counter
	copier     clipboard.Copier
	logger     *zap.Logger
}

// NewGenerator constructs a Generator from Params.
func NewGenerator(params Params) *Generator {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		root:       params.Root,
		outputPath: params.OutputPath,
		repoCache:  params.Cache,
		tree:       params.Tree,
		counter:    params.Counter,
		copier:     params.Copier,
		logger:     logger,
	}
}

// Rebuild renders the cache state as of now and writes the document. Every
// failure is logged and non-fatal: the cache stays valid and the next
// trigger retries the write.
func (g *Generator) Rebuild() {
	treeOutput := g.renderTree()
	paths, contents := g.repoCache.Snapshot()
	combined := Compose(treeOutput, paths, func(relativePath string) string {
		return contents[relativePath]
	})

	if err := os.WriteFile(g.outputPath, []byte(combined), 0o644); err != nil {
		g.logger.Error("Failed to write output document",
			zap.String("path", g.outputPath),
			zap.Error(err))
		return
	}
	g.logger.Info("Updated code base written",
		zap.String("path", g.outputPath),
		zap.Int("files", len(paths)))

	g.reportTokenUsage(combined)

	if g.copier != nil {
		if err := g.copier.Copy(combined); err != nil {
			g.logger.Warn("Failed to copy document to clipboard", zap.Error(err))
		}
	}
}

// renderTree asks the renderer for a listing, substituting the placeholder
// for errors or empty output. Any non-empty output is accepted as-is.
func (g *Generator) renderTree() string {
	if g.tree == nil {
		return TreePlaceholder
	}
	treeOutput, err := g.tree.Render(g.root)
	if err != nil {
		g.logger.Warn("Tree renderer unavailable", zap.Error(err))
		return TreePlaceholder
	}
	if strings.TrimSpace(treeOutput) == "" {
		return TreePlaceholder
	}
	return treeOutput
}

// reportTokenUsage prints the token volume of the document and how much of
// each model's context window it fills.
func (g *Generator) reportTokenUsage(combined string) {
	if g.counter == nil {
		return
	}
	tokenCount, err := g.counter.CountString(combined)
	if err != nil {
		g.logger.Warn("Failed to count tokens", zap.Error(err))
		return
	}

	fmt.Println("-------------------------------")
	fmt.Printf("Token Volume: %d tokens.\n", tokenCount)
	for _, window := range tokenizer.ContextWindows {
		fmt.Printf("%s usage: %.1f%%\n", window.Model, window.Usage(tokenCount))
	}
	fmt.Println("-------------------------------")
	fmt.Println("Last updated at:", time.Now().Format("2006-01-02 15:04:05"))
}
