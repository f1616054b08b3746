package rag

import (
	"context"
	"strings"
	"time"

	"hive/internal/generation"
	"hive/internal/logging"
)

const (
	// DefaultTopK is used when Verify is called with a non-positive topK.
	DefaultTopK = 4

	// NoContentReason is the rationale of the guard response.
	NoContentReason = "No content provided for verification"
)

// Pipeline stage names reported to an Observer.
const (
	StageBuild    = "build"
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
	StageClassify = "classify"
)

// Observer receives per-stage timings and classifier fallbacks.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ClassifierFallback()
}

// Pipeline drives build -> retrieve -> answer -> classify for one claim.
// It is long-lived and safe for concurrent use when its collaborators are.
type Pipeline struct {
	embedder   Embedder
	scope      Scope
	answerer   *Answerer
	classifier *Classifier
	model      string
	observer   Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// NewPipeline wires a pipeline. scope picks the index each request uses.
func NewPipeline(embedder Embedder, generator generation.Generator, scope Scope, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:   embedder,
		scope:      scope,
		answerer:   NewAnswerer(generator),
		classifier: NewClassifier(generator),
		model:      generator.Name(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify runs the pipeline. A nil request or blank claim returns the
// unverified guard response without calling any collaborator. Stage errors
// (*CorpusBuildError, *RetrievalError, *GenerationError) are returned as is.
func (p *Pipeline) Verify(ctx context.Context, req *Request, topK int) (*Response, error) {
	if req == nil || strings.TrimSpace(req.Claim) == "" {
		resp := &Response{
			Status:            LabelUnverified,
			SupportingContext: []string{},
			Rationale:         NoContentReason,
		}
		if req != nil {
			resp.Metadata.RequestID = req.RequestID
		}
		return resp, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	log := logging.WithRequestID(logging.CategoryRAG, req.RequestID)
	audit := logging.Audit(req.RequestID)
	audit.VerifyStart(len(req.Claim), len(req.Context))
	start := time.Now()
	fail := func(stage string, err error) (*Response, error) {
		log.Error("Verify failed at %s: %v", stage, err)
		audit.VerifyError(err, time.Since(start).Milliseconds())
		return nil, err
	}

	index := p.scope(req.RequestID)
	claim := req.Claim

	documents := make([]string, 0, len(req.Context)+1)
	documents = append(documents, req.Context...)
	documents = append(documents, claim)

	if err := p.timed(StageBuild, func() error {
		return NewCorpusBuilder(p.embedder, index).Build(ctx, documents, "")
	}); err != nil {
		return fail(StageBuild, err)
	}

	var retrieved []string
	if err := p.timed(StageRetrieve, func() error {
		var err error
		retrieved, err = NewRetriever(p.embedder, index).Retrieve(ctx, claim, topK)
		return err
	}); err != nil {
		return fail(StageRetrieve, err)
	}
	log.Debug("Retrieved %d/%d context documents", len(retrieved), topK)

	var answer string
	if err := p.timed(StageAnswer, func() error {
		callStart := time.Now()
		var err error
		answer, err = p.answerer.Answer(ctx, claim, retrieved)
		audit.LLMCall(p.model, StageAnswer, time.Since(callStart).Milliseconds(), err)
		return err
	}); err != nil {
		return fail(StageAnswer, err)
	}

	var verdict Verdict
	var fellBack bool
	if err := p.timed(StageClassify, func() error {
		callStart := time.Now()
		var err error
		verdict, fellBack, err = p.classifier.classify(ctx, claim, answer, retrieved)
		audit.LLMCall(p.model, StageClassify, time.Since(callStart).Milliseconds(), err)
		return err
	}); err != nil {
		return fail(StageClassify, err)
	}
	if fellBack {
		audit.ClassifierFallback(len(verdict.Rationale))
		if p.observer != nil {
			p.observer.ClassifierFallback()
		}
	}

	if retrieved == nil {
		retrieved = []string{}
	}
	resp := &Response{
		Status:            verdict.Label,
		Confidence:        verdict.Confidence,
		Answer:            answer,
		SupportingContext: retrieved,
		Rationale:         verdict.Rationale,
		Metadata:          Metadata{RequestID: req.RequestID},
	}

	elapsed := time.Since(start)
	audit.VerifyComplete(string(resp.Status), resp.Confidence, elapsed.Milliseconds())
	log.Info("Verified claim: status=%s confidence=%.2f context=%d in %v", resp.Status, resp.Confidence, len(retrieved), elapsed)
	return resp, nil
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	if p.observer != nil {
		p.observer.ObserveStage(stage, time.Since(start))
	}
	return err
}
