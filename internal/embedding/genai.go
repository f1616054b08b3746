package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"hive/internal/logging"
)

// =============================================================================
// GOOGLE GENAI EMBEDDING ENGINE
// =============================================================================

// maxGenAIBatch is the per-request limit of the batchEmbedContents endpoint.
const maxGenAIBatch = 100

// GenAIEngine generates embeddings using Google's Gemini API.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEngine creates a new GenAI embedding engine.
func NewGenAIEngine(ctx context.Context, apiKey, model, taskType string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIEngine{
		client:   client,
		model:    model,
		taskType: ParseTaskType(taskType),
	}, nil
}

// Task types accepted by the Gemini embedding endpoint.
const (
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
	TaskClassification     = "CLASSIFICATION"
	TaskClustering         = "CLUSTERING"
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskQuestionAnswering  = "QUESTION_ANSWERING"
	TaskFactVerification   = "FACT_VERIFICATION"
)

// ParseTaskType normalizes a config string to a GenAI task type.
// Unknown values fall back to FACT_VERIFICATION.
func ParseTaskType(taskType string) string {
	switch t := strings.ToUpper(strings.TrimSpace(taskType)); t {
	case TaskSemanticSimilarity, TaskClassification, TaskClustering,
		TaskRetrievalDocument, TaskRetrievalQuery, TaskQuestionAnswering:
		return t
	default:
		return TaskFactVerification
	}
}

// Embed generates an embedding for a single text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting into
// requests of at most maxGenAIBatch contents.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "GenAI.EmbedBatch")
	defer timer.Stop()

	return embedNonBlank(ctx, texts, func(ctx context.Context, send []string) ([][]float32, error) {
		out := make([][]float32, 0, len(send))
		for _, chunk := range chunkStrings(send, maxGenAIBatch) {
			vecs, err := e.embedContents(ctx, chunk)
			if err != nil {
				return nil, err
			}
			out = append(out, vecs...)
		}
		return out, nil
	})
}

func (e *GenAIEngine) embedContents(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: e.taskType,
	})
	if err != nil {
		logging.EmbeddingError("GenAI embed failed for %d texts: %v", len(texts), err)
		return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil {
			continue
		}
		embeddings[i] = emb.Values
	}
	logging.EmbeddingDebug("GenAI embedded %d texts with model %s", len(texts), e.model)
	return embeddings, nil
}

func chunkStrings(in []string, size int) [][]string {
	var chunks [][]string
	for size < len(in) {
		in, chunks = in[size:], append(chunks, in[:size])
	}
	if len(in) > 0 {
		chunks = append(chunks, in)
	}
	return chunks
}

// Dimensions returns the dimensionality of embeddings.
// gemini-embedding-001 defaults to 3072 but is commonly truncated; the store
// does not depend on this value.
func (e *GenAIEngine) Dimensions() int {
	return 3072
}

// Name returns the engine name.
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
