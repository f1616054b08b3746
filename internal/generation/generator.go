// Package generation wraps the generative model providers behind a small
// prompt -> raw response contract. Callers extract text themselves so that a
// malformed or partial response degrades instead of failing.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hive/internal/logging"
)

// Generator turns a prompt into a raw provider response.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
	Name() string
}

// Response is the provider-neutral shape of a completion: a primary text
// field plus the candidate list it was derived from.
type Response struct {
	Text       string
	Candidates []Candidate
}

// Candidate is one alternative completion.
type Candidate struct {
	Parts        []Part
	FinishReason string
}

// Part is one content part of a candidate.
type Part struct {
	Text string
}

// ExtractText returns the primary text, else the first candidate's first
// part, else "". A nil response yields "".
func ExtractText(resp *Response) string {
	if resp == nil {
		return ""
	}
	if resp.Text != "" {
		return resp.Text
	}
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Parts) > 0 {
		return resp.Candidates[0].Parts[0].Text
	}
	return ""
}

// Config holds generator configuration.
type Config struct {
	// Provider: "genai" or "ollama"
	Provider string

	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int

	OllamaEndpoint string
	OllamaModel    string

	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "genai",
		Model:          "gemini-2.5-flash",
		Temperature:    0.7,
		MaxTokens:      1000,
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "gemma3",
		Timeout:        60 * time.Second,
		MaxRetries:     3,
	}
}

// New creates a generator based on configuration.
func New(ctx context.Context, cfg Config) (Generator, error) {
	logging.Generation("Creating generator with provider=%s", cfg.Provider)

	var g Generator
	var err error
	switch cfg.Provider {
	case "genai":
		g, err = NewGenAIGenerator(ctx, cfg)
	case "ollama":
		g, err = NewOllamaGenerator(cfg)
	default:
		err = fmt.Errorf("unsupported generation provider: %s (use 'genai' or 'ollama')", cfg.Provider)
	}
	if err != nil {
		logging.GenerationError("Failed to create generator: %v", err)
		return nil, err
	}
	logging.Generation("Generator created: %s", g.Name())
	return g, nil
}

// TextResponse builds a single-candidate response carrying text in both the
// primary field and the first part.
func TextResponse(text string) *Response {
	return &Response{
		Text:       text,
		Candidates: []Candidate{{Parts: []Part{{Text: text}}}},
	}
}

func truncateForLog(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
