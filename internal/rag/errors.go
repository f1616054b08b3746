package rag

import "fmt"

// CorpusBuildError reports a failure to embed or store the evidence corpus.
type CorpusBuildError struct {
	Stage string // "embed" or "upsert"
	Err   error
}

func (e *CorpusBuildError) Error() string {
	return fmt.Sprintf("corpus build failed at %s: %v", e.Stage, e.Err)
}

func (e *CorpusBuildError) Unwrap() error { return e.Err }

// RetrievalError reports a failure to embed the query or search the store.
type RetrievalError struct {
	Stage string // "embed" or "query"
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports a transport or provider failure of the generator.
// Malformed output is not a GenerationError.
type GenerationError struct {
	Purpose string // "answer" or "classify"
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Purpose, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
