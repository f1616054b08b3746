// Package verification gathers evidence for a post, runs the verification
// pipeline and persists the resulting status. It is the failure boundary of
// the pipeline: any pipeline error becomes an "unverified" status and an
// error response of the usual shape.
package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hive/internal/logging"
	"hive/internal/rag"
	"hive/internal/scraper"
	"hive/internal/search"
)

// FailedAnswer is the answer of every error response.
const FailedAnswer = "Verification failed due to an error"

// Verifier runs the pipeline for one request.
type Verifier interface {
	Verify(ctx context.Context, req *rag.Request, topK int) (*rag.Response, error)
}

// ArticleScraper fetches one article.
type ArticleScraper interface {
	Scrape(ctx context.Context, url string) (*scraper.Article, error)
}

// StatusWriter persists the verification status of a post.
type StatusWriter interface {
	UpdateVerificationStatus(ctx context.Context, postID string, status rag.Label) error
}

// CorpusCleaner removes a request's documents from the vector store.
type CorpusCleaner interface {
	DeleteNamespace(ctx context.Context, namespace string) (int64, error)
}

// Recorder receives the outcome of each verification.
type Recorder interface {
	VerificationFinished(status string, failed bool)
}

// Post is the part of a post the service needs.
type Post struct {
	ID      string
	Content string
}

// Config tunes evidence gathering and the pipeline call.
type Config struct {
	TopK                 int
	MaxResults           int
	MaxConcurrentScrapes int
	MaxContextChars      int
	FallbackContext      string
	Timeout              time.Duration
	RetainCorpus         bool
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		TopK:                 rag.DefaultTopK,
		MaxResults:           search.DefaultMaxResults,
		MaxConcurrentScrapes: 5,
		MaxContextChars:      8000,
		Timeout:              3 * time.Minute,
	}
}

// Service coordinates search, scraping, the pipeline and status persistence.
type Service struct {
	cfg      Config
	pipeline Verifier
	searcher search.Searcher
	scraper  ArticleScraper
	statuses StatusWriter
	cleaner  CorpusCleaner
	recorder Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithSearcher enables evidence search.
func WithSearcher(s search.Searcher) Option { return func(svc *Service) { svc.searcher = s } }

// WithScraper sets the article scraper used for search hits.
func WithScraper(s ArticleScraper) Option { return func(svc *Service) { svc.scraper = s } }

// WithStatusWriter enables status persistence for VerifyPost.
func WithStatusWriter(w StatusWriter) Option { return func(svc *Service) { svc.statuses = w } }

// WithCorpusCleaner drops each request's documents after verification
// unless Config.RetainCorpus is set.
func WithCorpusCleaner(c CorpusCleaner) Option { return func(svc *Service) { svc.cleaner = c } }

// WithRecorder attaches an outcome recorder.
func WithRecorder(r Recorder) Option { return func(svc *Service) { svc.recorder = r } }

// NewService creates a Service around pipeline.
func NewService(pipeline Verifier, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MaxConcurrentScrapes <= 0 {
		cfg.MaxConcurrentScrapes = def.MaxConcurrentScrapes
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}
	if cfg.FallbackContext == "" {
		cfg.FallbackContext = defaultFallbackContext
	}

	s := &Service{cfg: cfg, pipeline: pipeline}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyPost gathers evidence for the post, verifies it and persists the
// status. It never fails: pipeline errors produce an error response and an
// "unverified" status.
func (s *Service) VerifyPost(ctx context.Context, post Post) *rag.Response {
	log := logging.WithRequestID(logging.CategoryVerification, post.ID)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	evidence := s.prepareContext(s.GatherContext(ctx, post.Content))
	resp, err := s.run(ctx, post.ID, post.Content, evidence, s.cfg.TopK)
	if err != nil {
		log.Error("Verification failed: %v", err)
		s.writeStatus(ctx, post.ID, rag.LabelUnverified)
		s.record(rag.LabelUnverified, true)
		return ErrorResponse(post.ID, post.ID, err)
	}

	status := resp.Status
	if !status.IsValid() {
		log.Warn("Pipeline returned unknown status %q, storing unverified", status)
		status = rag.LabelUnverified
	}
	s.writeStatus(ctx, post.ID, status)
	s.record(status, false)

	resp.Metadata.PostID = post.ID
	log.Info("Post verified: status=%s confidence=%.2f", status, resp.Confidence)
	return resp
}

// Claim is a free-standing verification request.
type Claim struct {
	Text    string
	Context []string
	// TopK overrides Config.TopK when positive.
	TopK int
	// Search appends searched evidence to Context.
	Search bool
}

// VerifyClaim verifies a free-standing claim without persisting anything.
func (s *Service) VerifyClaim(ctx context.Context, claim Claim) *rag.Response {
	requestID := uuid.NewString()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items := append([]string(nil), claim.Context...)
	if claim.Search {
		items = append(items, s.GatherContext(ctx, claim.Text)...)
	}
	topK := s.cfg.TopK
	if claim.TopK > 0 {
		topK = claim.TopK
	}

	resp, err := s.run(ctx, requestID, claim.Text, s.prepareContext(items), topK)
	if err != nil {
		logging.VerificationError("Claim verification %s failed: %v", requestID, err)
		s.record(rag.LabelUnverified, true)
		return ErrorResponse(requestID, "", err)
	}
	s.record(resp.Status, false)
	return resp
}

func (s *Service) run(ctx context.Context, requestID, claim string, evidence []string, topK int) (*rag.Response, error) {
	req := &rag.Request{Claim: claim, Context: evidence, RequestID: requestID}
	resp, err := s.pipeline.Verify(ctx, req, topK)

	if s.cleaner != nil && !s.cfg.RetainCorpus && requestID != "" {
		// The request context may already be done; cleanup still has to run.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, derr := s.cleaner.DeleteNamespace(cleanupCtx, requestID); derr != nil {
			logging.VerificationError("Failed to drop corpus for %s: %v", requestID, derr)
		}
	}
	return resp, err
}

// prepareContext applies the character budget and substitutes the general
// knowledge context when nothing usable remains.
func (s *Service) prepareContext(items []string) []string {
	items = TruncateContext(items, s.cfg.MaxContextChars)
	for _, item := range items {
		if !isBlank(item) {
			return items
		}
	}
	return []string{s.cfg.FallbackContext}
}

func (s *Service) writeStatus(ctx context.Context, postID string, status rag.Label) {
	if s.statuses == nil || postID == "" {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := s.statuses.UpdateVerificationStatus(writeCtx, postID, status)
	logging.Audit(postID).StatusWrite(postID, string(status), err)
	if err != nil {
		logging.VerificationError("Failed to update verification status for post %s: %v", postID, err)
	}
}

func (s *Service) record(status rag.Label, failed bool) {
	if s.recorder != nil {
		s.recorder.VerificationFinished(string(status), failed)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// ErrorResponse is the response returned when verification fails. It has
// the same shape as a successful response.
func ErrorResponse(requestID, postID string, err error) *rag.Response {
	return &rag.Response{
		Status:            rag.LabelUnverified,
		Confidence:        0,
		Answer:            FailedAnswer,
		SupportingContext: []string{},
		Rationale:         "Error during verification: " + err.Error(),
		Metadata: rag.Metadata{
			RequestID: requestID,
			PostID:    postID,
			Error:     true,
		},
	}
}
