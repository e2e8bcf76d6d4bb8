package tokenizer

import (
	"math"
	"testing"
)

func TestCounterReportsItsEncodingName(t *testing.T) {
	counter := tiktokenCounter{name: "o200k_base"}
	if got := counter.Name(); got != "o200k_base" {
		t.Fatalf("Name() = %q; want %q", got, "o200k_base")
	}
}

func TestContextWindowUsage(t *testing.T) {
	window := ContextWindow{Model: "gpt-4o", Tokens: 128000}
	if got := window.Usage(64000); math.Abs(got-50.0) > 1e-9 {
		t.Fatalf("Usage(64000) = %f; want 50.0", got)
	}
	if got := window.Usage(0); got != 0 {
		t.Fatalf("Usage(0) = %f; want 0", got)
	}
}

func TestContextWindowsCoverReportedModels(t *testing.T) {
	want := map[string]int{
		"gpt-4o":  128000,
		"gpt-4.5": 128000,
		"o1":      200000,
		"o3-mini": 200000,
	}
	if len(ContextWindows) != len(want) {
		t.Fatalf("ContextWindows has %d entries; want %d", len(ContextWindows), len(want))
	}
	for _, window := range ContextWindows {
		if want[window.Model] != window.Tokens {
			t.Errorf("%s window = %d; want %d", window.Model, window.Tokens, want[window.Model])
		}
	}
}
