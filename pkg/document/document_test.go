package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"syncrepo/pkg/cache"
)

type stubTree struct {
	output string
	err    error
}

func (s stubTree) Render(root string) (string, error) { return s.output, s.err }

func TestComposeScenario(t *testing.T) {
	contents := map[string]string{
		"a.js":   "x",
		"b/c.ts": "y",
	}
	got := Compose("mytree\n", []string{"a.js", "b/c.ts"}, func(p string) string {
		return contents[p]
	})

	want := "========== TREE OUTPUT ==========\n" +
		"mytree\n" +
		"\n\n========== CODE OUTPUT ==========\n\n" +
		"----- FILE: a.js -----\n" +
		"```\nx\n```\n\n" +
		"----- FILE: b/c.ts -----\n" +
		"```\ny\n```\n\n"
	if got != want {
		t.Fatalf("Compose output mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestComposeDoesNotEscapeFences(t *testing.T) {
	got := Compose("t", []string{"doc.md.js"}, func(string) string {
		return "```go\ncode\n```"
	})
	if !strings.Contains(got, "```\n```go\ncode\n```\n```\n\n") {
		t.Fatalf("fence characters must be reproduced verbatim, got:\n%q", got)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	paths := []string{"a.js", "b.js"}
	contentOf := func(p string) string { return p + "-content" }
	first := Compose("tree", paths, contentOf)
	second := Compose("tree", paths, contentOf)
	if first != second {
		t.Fatal("rendering the same state twice must be byte-identical")
	}
}

func TestRebuildWritesDocument(t *testing.T) {
	root := t.TempDir()
	sourcePath := filepath.Join(root, "a.js")
	if err := os.WriteFile(sourcePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	repoCache := cache.New(0, nil)
	repoCache.Upsert(sourcePath, "a.js")

	outputPath := filepath.Join(t.TempDir(), "repo.md")
	generator := NewGenerator(Params{
		Root:       root,
		OutputPath: outputPath,
		Cache:      repoCache,
		Tree:       stubTree{output: "stub tree\n"},
	})
	generator.Rebuild()

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "========== TREE OUTPUT ==========\nstub tree\n") {
		t.Fatalf("unexpected document head:\n%q", content)
	}
	if !strings.Contains(content, "----- FILE: a.js -----\n```\nx\n```\n\n") {
		t.Fatalf("missing file block:\n%q", content)
	}
}

func TestRebuildUsesPlaceholderWhenTreeFails(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "repo.md")
	generator := NewGenerator(Params{
		Root:       t.TempDir(),
		OutputPath: outputPath,
		Cache:      cache.New(0, nil),
		Tree:       stubTree{err: errors.New("tree exploded")},
	})
	generator.Rebuild()

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), TreePlaceholder) {
		t.Fatalf("placeholder missing from:\n%q", string(data))
	}
}

func TestRebuildUsesPlaceholderWhenTreeEmpty(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "repo.md")
	generator := NewGenerator(Params{
		Root:       t.TempDir(),
		OutputPath: outputPath,
		Cache:      cache.New(0, nil),
		Tree:       stubTree{output: "   \n"},
	})
	generator.Rebuild()

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), TreePlaceholder) {
		t.Fatalf("placeholder missing from:\n%q", string(data))
	}
}

func TestRebuildSurvivesWriteFailure(t *testing.T) {
	// Point the output at a directory so the write fails.
	outputPath := t.TempDir()
	repoCache := cache.New(0, nil)
	generator := NewGenerator(Params{
		Root:       t.TempDir(),
		OutputPath: outputPath,
		Cache:      repoCache,
		Tree:       stubTree{output: "tree"},
	})

	// Must not panic; the cache stays valid for the next attempt.
	generator.Rebuild()
	if repoCache.Len() != 0 {
		t.Fatal("cache mutated by failed write")
	}
}

func TestNativeTreeRendersNestedEntries(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "file.js"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	listing, err := renderNativeTree(root)
	if err != nil {
		t.Fatalf("renderNativeTree failed: %v", err)
	}
	if !strings.Contains(listing, "sub") || !strings.Contains(listing, "file.js") {
		t.Fatalf("listing incomplete:\n%s", listing)
	}
	if !strings.Contains(listing, "└── ") {
		t.Fatalf("connector lines missing:\n%s", listing)
	}
}
