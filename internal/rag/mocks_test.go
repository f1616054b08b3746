package rag

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"hive/internal/generation"
)

type mockEmbedder struct {
	mu             sync.Mutex
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls          [][]string
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	return keywordEmbed(texts), nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockIndex struct {
	mu         sync.Mutex
	UpsertFunc func(ctx context.Context, ids, documents []string, embeddings [][]float32) error
	QueryFunc  func(ctx context.Context, embedding []float32, topK int) ([]string, error)

	upserts  int
	queries  int
	lastIDs  []string
	lastDocs []string
	lastEmbs [][]float32
	lastTopK int
}

func (m *mockIndex) Upsert(ctx context.Context, ids, documents []string, embeddings [][]float32) error {
	m.mu.Lock()
	m.upserts++
	m.lastIDs, m.lastDocs, m.lastEmbs = ids, documents, embeddings
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, ids, documents, embeddings)
	}
	return nil
}

func (m *mockIndex) Query(ctx context.Context, embedding []float32, topK int) ([]string, error) {
	m.mu.Lock()
	m.queries++
	m.lastTopK = topK
	m.mu.Unlock()
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, embedding, topK)
	}
	return nil, nil
}

type mockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, prompt string) (*generation.Response, error)
	prompts      []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (*generation.Response, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return generation.TextResponse(""), nil
}

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// scriptedGenerator answers the answer prompt and the classify prompt with
// fixed completions.
func scriptedGenerator(answer, verdict string) *mockGenerator {
	return &mockGenerator{
		GenerateFunc: func(_ context.Context, prompt string) (*generation.Response, error) {
			if isClassifyPrompt(prompt) {
				return generation.TextResponse(verdict), nil
			}
			return generation.TextResponse(answer), nil
		},
	}
}

func isClassifyPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "You are a fact verification assistant.")
}

// keywordEmbed is a deterministic bag-of-words embedding: each lowercased
// token bumps one of 32 hashed dimensions. Blank text yields an empty vector.
func keywordEmbed(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = []float32{}
			continue
		}
		v := make([]float32, 32)
		for _, tok := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(tok, ".,!?")))
			v[h.Sum32()%32]++
		}
		out[i] = v
	}
	return out
}

type recordingObserver struct {
	mu        sync.Mutex
	stages    []string
	fallbacks int
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ClassifierFallback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks++
}
