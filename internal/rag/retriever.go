package rag

import (
	"context"
	"fmt"

	"hive/internal/logging"
)

// Retriever finds the documents closest to a query.
type Retriever struct {
	embedder Embedder
	index    Index
}

// NewRetriever creates a retriever searching index.
func NewRetriever(embedder Embedder, index Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve embeds query and returns up to max(1,k) document texts, most
// similar first. An unavailable query embedding returns an empty result
// without querying the index.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, &RetrievalError{Stage: "embed", Err: err}
	}
	if len(vectors) != 1 {
		return nil, &RetrievalError{Stage: "embed", Err: fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))}
	}
	if len(vectors[0]) == 0 {
		logging.RAGDebug("Retrieve: query embedding unavailable, returning no context")
		return nil, nil
	}

	if k < 1 {
		k = 1
	}
	docs, err := r.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, &RetrievalError{Stage: "query", Err: err}
	}

	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == "" {
			continue
		}
		out = append(out, d)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
