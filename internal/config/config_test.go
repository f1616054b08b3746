package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "hive" {
		t.Errorf("expected Name=hive, got %s", cfg.Name)
	}
	if cfg.VectorStore.Collection != "verification_docs" {
		t.Errorf("expected collection verification_docs, got %s", cfg.VectorStore.Collection)
	}
	if cfg.Verification.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Verification.TopK)
	}
	if cfg.Verification.MaxContextChars != 8000 {
		t.Errorf("expected MaxContextChars=8000, got %d", cfg.Verification.MaxContextChars)
	}
	if cfg.Generation.Temperature != 0.7 || cfg.Generation.MaxTokens != 1000 {
		t.Errorf("unexpected generation defaults: %+v", cfg.Generation)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	path := filepath.Join(t.TempDir(), "hive.yaml")

	cfg := DefaultConfig()
	cfg.Gemini.APIKey = "file-key"
	cfg.Generation.Model = "gemini-2.0-flash"
	cfg.Scraping.AllowedHosts = []string{"example.org"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assert.Equal(t, "file-key", loaded.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", loaded.Generation.Model)
	assert.Equal(t, []string{"example.org"}, loaded.Scraping.AllowedHosts)
}

func TestLoad_MissingFileAppliesEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, DefaultConfig().VectorStore.Path, cfg.VectorStore.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEARCH_ENGINE_ID=cx-from-dotenv\n"), 0644))

	// godotenv never overrides existing vars; make sure the var is absent
	// and restore whatever was there afterwards.
	t.Setenv("SEARCH_ENGINE_ID", "")
	os.Unsetenv("SEARCH_ENGINE_ID")

	cfg, err := Load(filepath.Join(dir, "hive.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cx-from-dotenv", cfg.Search.GoogleEngineID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) { c.Gemini.APIKey = "k" }},
		{name: "missing key for genai", mutate: func(c *Config) {}, wantErr: "GEMINI_API_KEY"},
		{name: "ollama needs no key", mutate: func(c *Config) {
			c.Embedding.Provider = "ollama"
			c.Generation.Provider = "ollama"
		}},
		{name: "bad provider", mutate: func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Embedding.Provider = "weaviate"
		}, wantErr: "invalid embedding provider"},
		{name: "bad top_k", mutate: func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Verification.TopK = 0
		}, wantErr: "top_k"},
		{name: "empty collection", mutate: func(c *Config) {
			c.Gemini.APIKey = "k"
			c.VectorStore.Collection = ""
		}, wantErr: "collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Second, cfg.GetScrapeDelay())
	assert.Equal(t, 3*time.Minute, cfg.GetVerificationTimeout())

	cfg.Scraping.Delay = "not-a-duration"
	cfg.Generation.Timeout = ""
	assert.Equal(t, time.Second, cfg.GetScrapeDelay())
	assert.Equal(t, 60*time.Second, cfg.GetGenerationTimeout())
}

func TestLoggingConfig_Settings(t *testing.T) {
	lc := LoggingConfig{DebugMode: true, Level: "debug", Format: "json", Categories: map[string]bool{"rag": false}}
	s := lc.Settings()
	assert.True(t, s.DebugMode)
	assert.True(t, s.JSONFormat)
	assert.Equal(t, "debug", s.Level)
	assert.False(t, lc.IsCategoryEnabled("rag"))
	assert.True(t, lc.IsCategoryEnabled("store"))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Setenv("HIVE_DEBUG", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "hive.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	updated := DefaultConfig()
	updated.Logging.Level = "debug"
	require.NoError(t, updated.Save(path))

	select {
	case c := <-changes:
		assert.Equal(t, "debug", c.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
