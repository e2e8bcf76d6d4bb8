// Package tokenizer estimates token counts for rendered documents.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// DefaultEncodingName is the tiktoken encoding used when no model is
// configured.
const DefaultEncodingName = "o200k_base"

// NewCounter returns a Counter for the requested model or encoding name.
// A model name resolves through tiktoken's model table; anything else is
// tried as an encoding name before falling back to the default encoding.
func NewCounter(model string) (Counter, error) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		name = DefaultEncodingName
	}

	if encoding, err := tiktoken.EncodingForModel(name); err == nil && encoding != nil {
		return tiktokenCounter{encoding: encoding, name: name}, nil
	}
	if encoding, err := tiktoken.GetEncoding(name); err == nil && encoding != nil {
		return tiktokenCounter{encoding: encoding, name: name}, nil
	}

	encoding, err := tiktoken.GetEncoding(DefaultEncodingName)
	if err != nil {
		return nil, fmt.Errorf("initialize default tokenizer: %w", err)
	}
	return tiktokenCounter{encoding: encoding, name: DefaultEncodingName}, nil
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (c tiktokenCounter) Name() string { return c.name }

func (c tiktokenCounter) CountString(input string) (int, error) {
	return len(c.encoding.Encode(input, nil, nil)), nil
}

// ContextWindow describes a model's context size for usage reporting.
type ContextWindow struct {
	Model  string
	Tokens int
}

// ContextWindows lists the models reported after each rebuild.
var ContextWindows = []ContextWindow{
	{Model: "gpt-4o", Tokens: 128000},
	{Model: "gpt-4.5", Tokens: 128000},
	{Model: "o1", Tokens: 200000},
	{Model: "o3-mini", Tokens: 200000},
}

// Usage returns the percentage of the window the given token count fills.
func (w ContextWindow) Usage(tokens int) float64 {
	return float64(tokens) / float64(w.Tokens) * 100
}
