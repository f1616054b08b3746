// Package rag implements claim verification over a per-request evidence
// corpus: build the corpus, retrieve the closest documents, generate a
// grounded answer and classify the claim into a closed label set.
package rag

import "context"

// Request is one claim to verify together with its raw evidence strings.
type Request struct {
	Claim     string
	Context   []string
	RequestID string
}

// Verdict is the classifier outcome. Confidence is always within [0,1].
type Verdict struct {
	Label      Label
	Confidence float64
	Rationale  string
}

// Metadata accompanies every Response.
type Metadata struct {
	RequestID string `json:"request_id,omitempty"`
	PostID    string `json:"post_id,omitempty"`
	Error     bool   `json:"error,omitempty"`
}

// Response is the externally visible verification result. Successful and
// failed verifications share this shape.
type Response struct {
	Status            Label    `json:"status"`
	Confidence        float64  `json:"confidence"`
	Answer            string   `json:"answer"`
	SupportingContext []string `json:"supporting_context"`
	Rationale         string   `json:"rationale"`
	Metadata          Metadata `json:"metadata"`
}

// Embedder is the batch embedding capability the corpus builder and
// retriever depend on. A blank text maps to an empty vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a nearest-neighbour document index with full-replace upserts.
type Index interface {
	Upsert(ctx context.Context, ids, documents []string, embeddings [][]float32) error
	Query(ctx context.Context, embedding []float32, topK int) ([]string, error)
}

// Scope selects the index a request builds into and retrieves from.
type Scope func(requestID string) Index

// SharedScope routes every request to the same index.
func SharedScope(idx Index) Scope {
	return func(string) Index { return idx }
}
