package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all hive configuration.
type Config struct {
	Name string `yaml:"name"`

	// Shared credentials for Google Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`

	// Evidence gathering
	Search   SearchConfig   `yaml:"search"`
	Scraping ScrapingConfig `yaml:"scraping"`

	Verification VerificationConfig `yaml:"verification"`
	Queue        QueueConfig        `yaml:"queue"`
	Posts        PostsConfig        `yaml:"posts"`
	Server       ServerConfig       `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`
}

// GeminiConfig carries the API key shared by the genai embedder and generator.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "genai" or "ollama"
	Provider string `yaml:"provider"`

	GenAIModel string `yaml:"genai_model"` // Default: "gemini-embedding-001"
	// TaskType for GenAI embeddings, e.g. FACT_VERIFICATION, RETRIEVAL_DOCUMENT
	TaskType string `yaml:"task_type"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	Timeout string `yaml:"timeout"`
}

// GenerationConfig configures the generative model.
type GenerationConfig struct {
	// Provider: "genai" or "ollama"
	Provider string `yaml:"provider"`

	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	Timeout string `yaml:"timeout"`
}

// VectorStoreConfig configures the on-disk vector index.
type VectorStoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	// RetainCorpus keeps per-request documents after a verification finishes.
	RetainCorpus bool `yaml:"retain_corpus"`
}

// SearchConfig configures the web search clients.
type SearchConfig struct {
	GoogleAPIKey   string `yaml:"google_api_key"`
	GoogleEngineID string `yaml:"google_engine_id"`
	MaxResults     int    `yaml:"max_results"`
	// DuckDuckGo is used when Google is not configured or returns nothing.
	DuckDuckGoFallback bool   `yaml:"duckduckgo_fallback"`
	Timeout            string `yaml:"timeout"`
}

// ScrapingConfig configures the article scraper.
type ScrapingConfig struct {
	AllowedHosts  []string `yaml:"allowed_hosts"`
	AllowAnySite  bool     `yaml:"allow_any_site"`
	Delay         string   `yaml:"delay"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes"`
	UserAgent     string   `yaml:"user_agent"`
	Timeout       string   `yaml:"timeout"`
}

// VerificationConfig configures the verification service.
type VerificationConfig struct {
	TopK            int    `yaml:"top_k"`
	MaxContextChars int    `yaml:"max_context_chars"`
	FallbackContext string `yaml:"fallback_context"`
	Timeout         string `yaml:"timeout"`
}

// QueueConfig configures the background verification queue.
type QueueConfig struct {
	Workers  int `yaml:"workers"`
	Capacity int `yaml:"capacity"`
}

// PostsConfig configures the post status database.
type PostsConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

// DefaultFallbackContext is used when no evidence could be gathered.
const DefaultFallbackContext = "This is a general knowledge verification context. " +
	"Consider well-known facts, historical events, scientific principles, " +
	"and commonly accepted information when evaluating the claim."

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "hive",

		Embedding: EmbeddingConfig{
			Provider:       "genai",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "FACT_VERIFICATION",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			Timeout:        "30s",
		},

		Generation: GenerationConfig{
			Provider:       "genai",
			Model:          "gemini-2.5-flash",
			Temperature:    0.7,
			MaxTokens:      1000,
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "gemma3",
			Timeout:        "60s",
		},

		VectorStore: VectorStoreConfig{
			Path:       ".hive/vectors.db",
			Collection: "verification_docs",
		},

		Search: SearchConfig{
			MaxResults:         5,
			DuckDuckGoFallback: true,
			Timeout:            "15s",
		},

		Scraping: ScrapingConfig{
			AllowedHosts:  []string{"indiatoday.in", "livemint.com"},
			Delay:         "1s",
			MaxConcurrent: 5,
			MaxBodyBytes:  2 << 20,
			UserAgent:     "Mozilla/5.0 (compatible; hive-verifier/1.0)",
			Timeout:       "20s",
		},

		Verification: VerificationConfig{
			TopK:            4,
			MaxContextChars: 8000,
			FallbackContext: DefaultFallbackContext,
			Timeout:         "3m",
		},

		Queue: QueueConfig{
			Workers:  2,
			Capacity: 100,
		},

		Posts: PostsConfig{
			DatabasePath: ".hive/posts.db",
		},

		Server: ServerConfig{
			Addr:    ":8080",
			GinMode: "release",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A .env file next to the config
// (or in the working directory) is loaded into the environment first, then
// environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	loadDotEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Variable names follow the deployment env of the hosted service.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if model := os.Getenv("GEMINI_EMBED_MODEL"); model != "" {
		c.Embedding.GenAIModel = strings.TrimPrefix(model, "models/")
	}
	if v := os.Getenv("GEMINI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxTokens = n
		}
	}
	if v := os.Getenv("GEMINI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generation.Temperature = f
		}
	}

	// CHROMA_* names are still honoured so existing deployments keep their settings.
	if p := os.Getenv("CHROMA_PERSIST_PATH"); p != "" {
		c.VectorStore.Path = filepath.Join(p, "vectors.db")
	}
	if p := os.Getenv("HIVE_VECTOR_PATH"); p != "" {
		c.VectorStore.Path = p
	}
	if name := os.Getenv("CHROMA_COLLECTION"); name != "" {
		c.VectorStore.Collection = name
	}

	if key := os.Getenv("GOOGLE_CUSTOM_SEARCH_API"); key != "" {
		c.Search.GoogleAPIKey = key
	}
	if id := os.Getenv("SEARCH_ENGINE_ID"); id != "" {
		c.Search.GoogleEngineID = id
	}

	if v := os.Getenv("SCRAPING_DELAY"); v != "" {
		// Seconds as a bare number, or a Go duration string.
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scraping.Delay = (time.Duration(f * float64(time.Second))).String()
		} else {
			c.Scraping.Delay = v
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_SCRAPES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scraping.MaxConcurrent = n
		}
	}

	if p := os.Getenv("HIVE_DB_PATH"); p != "" {
		c.Posts.DatabasePath = p
	}
	if addr := os.Getenv("HIVE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if v := os.Getenv("HIVE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetEmbeddingTimeout returns the embedding request timeout.
func (c *Config) GetEmbeddingTimeout() time.Duration {
	return parseDuration(c.Embedding.Timeout, 30*time.Second)
}

// GetGenerationTimeout returns the generation request timeout.
func (c *Config) GetGenerationTimeout() time.Duration {
	return parseDuration(c.Generation.Timeout, 60*time.Second)
}

// GetSearchTimeout returns the web search timeout.
func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration(c.Search.Timeout, 15*time.Second)
}

// GetScrapeTimeout returns the per-page fetch timeout.
func (c *Config) GetScrapeTimeout() time.Duration {
	return parseDuration(c.Scraping.Timeout, 20*time.Second)
}

// GetScrapeDelay returns the minimum delay between page fetches.
func (c *Config) GetScrapeDelay() time.Duration {
	return parseDuration(c.Scraping.Delay, time.Second)
}

// GetVerificationTimeout bounds one whole VerifyPost run.
func (c *Config) GetVerificationTimeout() time.Duration {
	return parseDuration(c.Verification.Timeout, 3*time.Minute)
}

// ValidProviders lists the supported model providers.
var ValidProviders = []string{"genai", "ollama"}

func validProvider(p string) bool {
	for _, v := range ValidProviders {
		if p == v {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !validProvider(c.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidProviders)
	}
	if !validProvider(c.Generation.Provider) {
		return fmt.Errorf("invalid generation provider: %s (valid: %v)", c.Generation.Provider, ValidProviders)
	}
	if c.Gemini.APIKey == "" && (c.Embedding.Provider == "genai" || c.Generation.Provider == "genai") {
		return fmt.Errorf("Gemini API key not configured (set GEMINI_API_KEY)")
	}
	if c.VectorStore.Path == "" {
		return fmt.Errorf("vector_store.path is required")
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector_store.collection is required")
	}
	if c.Verification.TopK < 1 {
		return fmt.Errorf("verification.top_k must be positive, got %d", c.Verification.TopK)
	}
	if c.Verification.MaxContextChars < 1 {
		return fmt.Errorf("verification.max_context_chars must be positive, got %d", c.Verification.MaxContextChars)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature out of range: %v", c.Generation.Temperature)
	}
	return nil
}

// HasGoogleSearch reports whether the Custom Search client can be used.
func (c *Config) HasGoogleSearch() bool {
	return c.Search.GoogleAPIKey != "" && c.Search.GoogleEngineID != ""
}
