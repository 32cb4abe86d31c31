package config

import (
	"testing"

	"go.uber.org/zap"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLAUDE_API_KEY", "OPENAI_API_KEY", "DEEPSEEK_API_KEY",
		"PINECONE_API_KEY", "THINKTANK_ADDR", "THINKTANK_DB",
		"CLAUDE_MODEL", "OPENAI_MODEL", "DEEPSEEK_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFailsWithoutAnyProvider(t *testing.T) {
	clearProviderEnv(t)

	if _, err := Load(zap.NewNop()); err == nil {
		t.Fatal("Load() error = nil, want error with no providers configured")
	}
}

func TestLoadDisablesMissingProviders(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CLAUDE_API_KEY", "test-key")

	cfg, err := Load(zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Claude.Enabled() {
		t.Error("Claude.Enabled() = false, want true")
	}
	if cfg.OpenAI.Enabled() {
		t.Error("OpenAI.Enabled() = true, want false")
	}
	if cfg.DeepSeek.Enabled() {
		t.Error("DeepSeek.Enabled() = true, want false")
	}
	if cfg.Pinecone.Enabled() {
		t.Error("Pinecone.Enabled() = true, want false")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load(zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":8100" {
		t.Errorf("Addr = %q, want :8100", cfg.Addr)
	}
	if cfg.DBPath != "thinktank.db" {
		t.Errorf("DBPath = %q, want thinktank.db", cfg.DBPath)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q, want gpt-4o", cfg.OpenAI.Model)
	}
	if cfg.DeepSeek.BaseURL == "" {
		t.Error("DeepSeek.BaseURL should default to the hosted endpoint")
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("THINKTANK_ADDR", ":9000")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load(zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q, want gpt-4o-mini", cfg.OpenAI.Model)
	}
}
