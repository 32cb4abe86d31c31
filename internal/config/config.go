package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ProviderConfig holds the credential and model choice for one hosted LLM.
// An empty APIKey disables the provider without failing startup.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

type PineconeConfig struct {
	APIKey     string
	IndexName  string
	Namespace  string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

func (p PineconeConfig) Enabled() bool {
	return p.APIKey != "" && p.IndexName != ""
}

type Config struct {
	Addr   string
	DBPath string

	Claude   ProviderConfig
	OpenAI   ProviderConfig
	DeepSeek ProviderConfig

	Pinecone PineconeConfig
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. Missing provider keys are logged and the provider is left
// disabled; only a configuration with no providers at all is an error.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment", zap.Error(err))
	}

	cfg := &Config{
		Addr:   envOr("THINKTANK_ADDR", ":8100"),
		DBPath: envOr("THINKTANK_DB", "thinktank.db"),
		Claude: ProviderConfig{
			APIKey: os.Getenv("CLAUDE_API_KEY"),
			Model:  envOr("CLAUDE_MODEL", "claude-3-5-sonnet-latest"),
		},
		OpenAI: ProviderConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  envOr("OPENAI_MODEL", "gpt-4o"),
		},
		DeepSeek: ProviderConfig{
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			Model:   envOr("DEEPSEEK_MODEL", "deepseek-chat"),
			BaseURL: envOr("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		},
		Pinecone: PineconeConfig{
			APIKey:     os.Getenv("PINECONE_API_KEY"),
			IndexName:  envOr("PINECONE_INDEX", "rag-index"),
			Namespace:  os.Getenv("PINECONE_NAMESPACE"),
			BaseURL:    envOr("PINECONE_BASE_URL", "https://api.pinecone.io"),
			APIVersion: envOr("PINECONE_API_VERSION", "2025-10"),
			Timeout:    30 * time.Second,
		},
	}

	for _, p := range []struct {
		name string
		cfg  ProviderConfig
	}{
		{"claude", cfg.Claude},
		{"gpt4", cfg.OpenAI},
		{"deepseek", cfg.DeepSeek},
	} {
		if !p.cfg.Enabled() {
			logger.Warn("provider disabled, no API key configured", zap.String("provider", p.name))
		}
	}

	if !cfg.Claude.Enabled() && !cfg.OpenAI.Enabled() && !cfg.DeepSeek.Enabled() {
		return nil, fmt.Errorf("no LLM providers configured: set CLAUDE_API_KEY, OPENAI_API_KEY or DEEPSEEK_API_KEY")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
