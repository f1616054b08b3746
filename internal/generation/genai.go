package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"hive/internal/logging"
)

// GenAIGenerator generates completions with Google's Gemini API.
type GenAIGenerator struct {
	client     *genai.Client
	model      string
	config     *genai.GenerateContentConfig
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewGenAIGenerator creates a Gemini generator. The client is created once
// and reused for every call.
func NewGenAIGenerator(ctx context.Context, cfg Config) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(cfg.MaxTokens)
	}

	return &GenAIGenerator{
		client:     client,
		model:      cfg.Model,
		config:     gc,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
	}, nil
}

// Generate sends the prompt as a single user turn. Rate-limit and 5xx
// responses are retried with exponential backoff.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (*Response, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "GenAI.Generate")
	defer timer.Stop()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var lastErr error
	for i := 0; i <= g.maxRetries; i++ {
		if i > 0 {
			wait := g.backoff * time.Duration(1<<uint(i-1))
			logging.GenerationDebug("GenAI retry %d/%d in %v: %v", i, g.maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			logging.GenerationError("GenAI generate failed: %v", err)
			return nil, fmt.Errorf("GenAI generate failed: %w", err)
		}

		out := fromGenAI(resp)
		logging.GenerationDebug("GenAI response (%d candidates): %s", len(out.Candidates), truncateForLog(out.Text, 200))
		return out, nil
	}
	logging.GenerationError("GenAI generate gave up after %d retries: %v", g.maxRetries, lastErr)
	return nil, fmt.Errorf("GenAI generate failed after %d retries: %w", g.maxRetries, lastErr)
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

// fromGenAI converts the SDK response. Thought parts are excluded from the
// primary text by the SDK; candidates keep every text part.
func fromGenAI(resp *genai.GenerateContentResponse) *Response {
	if resp == nil {
		return &Response{}
	}
	out := &Response{Text: resp.Text()}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought {
					continue
				}
				cand.Parts = append(cand.Parts, Part{Text: p.Text})
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out
}

// Name returns the generator name.
func (g *GenAIGenerator) Name() string {
	return "genai:" + g.model
}
