// Package llm talks to the text-generation providers. Every provider is
// normalized to the same candidate envelope so callers parse one shape.
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when no API key is available for the
	// selected provider.
	ErrNotConfigured = errors.New("llm provider is not configured")
	// ErrUnavailable wraps transport and provider failures.
	ErrUnavailable = errors.New("llm provider unavailable")
)

// Response is the provider-neutral candidate envelope.
type Response struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content *Content `json:"content,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// Text returns the first text part of the first candidate, or "" when the
// envelope has none.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[0].Text
}

// TextResponse wraps a single piece of text in the envelope.
func TextResponse(text string) *Response {
	return &Response{Candidates: []Candidate{{Content: &Content{Parts: []Part{{Text: text}}}}}}
}

// Options are the sampling knobs sent with each request.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Presets used by the pipeline.
var (
	ReplyOptions      = Options{Temperature: 0.7, MaxOutputTokens: 8192}
	ExtractionOptions = Options{Temperature: 0.2, MaxOutputTokens: 512}
	ImportOptions     = Options{Temperature: 0.7, MaxOutputTokens: 8192}
	SimulateOptions   = Options{Temperature: 0.8, MaxOutputTokens: 150}
	RegenerateOptions = Options{Temperature: 0.8, MaxOutputTokens: 8192}
)

type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (*Response, error)
}

// unconfigured is handed out when the provider has no key, so startup
// succeeds and every request fails with ErrNotConfigured.
type unconfigured struct{}

func (unconfigured) Generate(context.Context, string, Options) (*Response, error) {
	return nil, ErrNotConfigured
}

func joinParts(parts []string) string {
	return strings.Join(parts, "")
}
