package rag

import (
	"context"
	"fmt"
	"strings"

	"hive/internal/logging"
)

// Dedupe prepends extra (when non-empty) to documents and drops blank and
// exactly repeated strings, keeping first-seen order.
func Dedupe(documents []string, extra string) []string {
	all := documents
	if extra != "" {
		all = make([]string, 0, len(documents)+1)
		all = append(all, extra)
		all = append(all, documents...)
	}

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, d := range all {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// CorpusBuilder embeds evidence documents and upserts them into an index.
type CorpusBuilder struct {
	embedder Embedder
	index    Index
}

// NewCorpusBuilder creates a builder writing into index.
func NewCorpusBuilder(embedder Embedder, index Index) *CorpusBuilder {
	return &CorpusBuilder{embedder: embedder, index: index}
}

// Build deduplicates documents (with extra prepended), assigns positional ids
// doc_0..doc_{n-1}, embeds them in one batch and upserts them. Documents whose
// embedding comes back empty keep their id and are passed through unchanged.
// An empty survivor list is a no-op.
func (b *CorpusBuilder) Build(ctx context.Context, documents []string, extra string) error {
	docs := Dedupe(documents, extra)
	if len(docs) == 0 {
		logging.RAGDebug("Corpus build skipped: no documents after dedupe")
		return nil
	}

	timer := logging.StartTimer(logging.CategoryRAG, "CorpusBuild")
	defer timer.Stop()

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = fmt.Sprintf("doc_%d", i)
	}

	embeddings, err := b.embedder.EmbedBatch(ctx, docs)
	if err != nil {
		return &CorpusBuildError{Stage: "embed", Err: err}
	}
	if len(embeddings) != len(docs) {
		return &CorpusBuildError{
			Stage: "embed",
			Err:   fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs)),
		}
	}

	if err := b.index.Upsert(ctx, ids, docs, embeddings); err != nil {
		return &CorpusBuildError{Stage: "upsert", Err: err}
	}
	logging.RAG("Corpus built: %d documents (from %d inputs)", len(docs), len(documents))
	return nil
}
