package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hive/internal/logging"
)

// OllamaGenerator generates completions with a local Ollama server.
type OllamaGenerator struct {
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewOllamaGenerator creates an Ollama generator.
func NewOllamaGenerator(cfg Config) (*OllamaGenerator, error) {
	endpoint := cfg.OllamaEndpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	model := cfg.OllamaModel
	if model == "" {
		model = "gemma3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaGenerator{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// Generate calls /api/generate without streaming.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (*Response, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "Ollama.Generate")
	defer timer.Stop()

	reqBody := ollamaGenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: g.temperature,
			NumPredict:  g.maxTokens,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// An undecodable body is a malformed completion, not a transport failure.
		logging.GenerationError("Ollama response decode failed: %v", err)
		return &Response{}, nil
	}

	r := TextResponse(out.Response)
	r.Candidates[0].FinishReason = out.DoneReason
	return r, nil
}

// Name returns the generator name.
func (g *OllamaGenerator) Name() string {
	return "ollama:" + g.model
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response   string `json:"response"`
	DoneReason string `json:"done_reason"`
}
