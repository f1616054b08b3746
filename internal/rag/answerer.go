package rag

import (
	"context"
	"strings"

	"hive/internal/generation"
	"hive/internal/logging"
)

// Answerer asks the generator for an answer grounded in retrieved context.
type Answerer struct {
	generator generation.Generator
}

// NewAnswerer creates an answerer backed by g.
func NewAnswerer(g generation.Generator) *Answerer {
	return &Answerer{generator: g}
}

// Answer returns the trimmed completion for query over the evidence. Malformed
// responses degrade to ""; only a generator call failure is an error.
func (a *Answerer) Answer(ctx context.Context, query string, evidence []string) (string, error) {
	resp, err := a.generator.Generate(ctx, buildAnswerPrompt(query, evidence))
	if err != nil {
		return "", &GenerationError{Purpose: "answer", Err: err}
	}
	answer := strings.TrimSpace(generation.ExtractText(resp))
	if answer == "" {
		logging.RAGDebug("Answer: generator returned no text")
	}
	return answer, nil
}
