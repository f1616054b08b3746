package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hive/internal/config"
	"hive/internal/embedding"
	"hive/internal/generation"
	"hive/internal/metrics"
	"hive/internal/rag"
	"hive/internal/scraper"
	"hive/internal/search"
	"hive/internal/store"
	"hive/internal/verification"
)

// app holds the long-lived components shared by the commands.
type app struct {
	store    *store.VectorStore
	metrics  *metrics.Metrics
	pipeline *rag.Pipeline
	service  *verification.Service
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func buildApp(ctx context.Context, c *config.Config, extra ...verification.Option) (*app, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	embedder, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:       c.Embedding.Provider,
		OllamaEndpoint: c.Embedding.OllamaEndpoint,
		OllamaModel:    c.Embedding.OllamaModel,
		GenAIAPIKey:    c.Gemini.APIKey,
		GenAIModel:     c.Embedding.GenAIModel,
		TaskType:       c.Embedding.TaskType,
		Timeout:        c.GetEmbeddingTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding engine: %w", err)
	}

	genCfg := generation.DefaultConfig()
	genCfg.Provider = c.Generation.Provider
	genCfg.APIKey = c.Gemini.APIKey
	genCfg.Model = c.Generation.Model
	genCfg.Temperature = c.Generation.Temperature
	genCfg.MaxTokens = c.Generation.MaxTokens
	genCfg.OllamaEndpoint = c.Generation.OllamaEndpoint
	genCfg.OllamaModel = c.Generation.OllamaModel
	genCfg.Timeout = c.GetGenerationTimeout()
	generator, err := generation.New(ctx, genCfg)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	vs, err := store.NewVectorStore(inWorkspace(c.VectorStore.Path), c.VectorStore.Collection)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	m := metrics.New()
	pipeline := rag.NewPipeline(embedder, generator, verification.StoreScope(vs), rag.WithObserver(m))

	opts := []verification.Option{
		verification.WithScraper(scraper.New(scraper.Config{
			AllowedHosts: c.Scraping.AllowedHosts,
			AllowAnySite: c.Scraping.AllowAnySite,
			Delay:        c.GetScrapeDelay(),
			MaxBodyBytes: c.Scraping.MaxBodyBytes,
			UserAgent:    c.Scraping.UserAgent,
			Timeout:      c.GetScrapeTimeout(),
		})),
		verification.WithCorpusCleaner(vs),
		verification.WithRecorder(m),
	}
	if s := buildSearcher(c); s != nil {
		opts = append(opts, verification.WithSearcher(s))
	} else {
		logger.Warn("No web search configured; verification will rely on given context")
	}
	opts = append(opts, extra...)

	svc := verification.NewService(pipeline, verification.Config{
		TopK:                 c.Verification.TopK,
		MaxResults:           c.Search.MaxResults,
		MaxConcurrentScrapes: c.Scraping.MaxConcurrent,
		MaxContextChars:      c.Verification.MaxContextChars,
		FallbackContext:      c.Verification.FallbackContext,
		Timeout:              c.GetVerificationTimeout(),
		RetainCorpus:         c.VectorStore.RetainCorpus,
	}, opts...)

	logger.Debug("Components ready",
		zap.String("embedder", embedder.Name()),
		zap.String("generator", generator.Name()),
		zap.String("vector_store", c.VectorStore.Path))

	return &app{store: vs, metrics: m, pipeline: pipeline, service: svc}, nil
}

// buildSearcher returns Google CSE when credentials are present, with
// DuckDuckGo behind it when enabled. Nil when neither is available.
func buildSearcher(c *config.Config) search.Searcher {
	var searchers []search.Searcher
	if c.Search.GoogleAPIKey != "" && c.Search.GoogleEngineID != "" {
		g, err := search.NewGoogleCSE(c.Search.GoogleAPIKey, c.Search.GoogleEngineID, c.GetSearchTimeout())
		if err != nil {
			logger.Warn("Google search disabled", zap.Error(err))
		} else {
			searchers = append(searchers, g)
		}
	}
	if c.Search.DuckDuckGoFallback {
		searchers = append(searchers, search.NewDuckDuckGo(c.Scraping.UserAgent, c.GetSearchTimeout()))
	}

	switch len(searchers) {
	case 0:
		return nil
	case 1:
		return searchers[0]
	default:
		return search.NewFallback(searchers...)
	}
}
