package llm

import (
	"fmt"

	"github.com/parrotlabs/thinktank/internal/config"
	"github.com/parrotlabs/thinktank/internal/models"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Registry holds the providers that could be constructed from the
// configured credentials. A provider whose key is absent is simply not
// registered; callers see it as unavailable.
type Registry struct {
	providers map[models.ModelKey]Provider
	order     []models.ModelKey
	logger    *zap.Logger
}

func NewRegistry(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		providers: make(map[models.ModelKey]Provider),
		order:     []models.ModelKey{models.ModelClaude, models.ModelGPT4, models.ModelDeepSeek},
		logger:    logger,
	}

	if cfg.Claude.Enabled() {
		model, err := anthropic.New(
			anthropic.WithToken(cfg.Claude.APIKey),
			anthropic.WithModel(cfg.Claude.Model),
		)
		if err != nil {
			logger.Warn("failed to initialize claude provider", zap.Error(err))
		} else {
			r.providers[models.ModelClaude] = newProvider(models.ModelClaude, "Claude", model)
		}
	}

	if cfg.OpenAI.Enabled() {
		model, err := openai.New(
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithModel(cfg.OpenAI.Model),
		)
		if err != nil {
			logger.Warn("failed to initialize gpt4 provider", zap.Error(err))
		} else {
			r.providers[models.ModelGPT4] = newProvider(models.ModelGPT4, "ChatGPT", model)
		}
	}

	if cfg.DeepSeek.Enabled() {
		// DeepSeek exposes an OpenAI-compatible API, so it reuses the
		// openai client with a different base URL, the same way the chat
		// client is pointed at local runtimes.
		model, err := openai.New(
			openai.WithToken(cfg.DeepSeek.APIKey),
			openai.WithModel(cfg.DeepSeek.Model),
			openai.WithBaseURL(cfg.DeepSeek.BaseURL),
		)
		if err != nil {
			logger.Warn("failed to initialize deepseek provider", zap.Error(err))
		} else {
			r.providers[models.ModelDeepSeek] = newProvider(models.ModelDeepSeek, "DeepSeek", model)
		}
	}

	if len(r.providers) == 0 {
		return nil, fmt.Errorf("no LLM providers could be initialized")
	}
	return r, nil
}

// NewStaticRegistry wraps a fixed provider set. It backs offline and
// test wiring where no hosted credentials exist.
func NewStaticRegistry(logger *zap.Logger, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[models.ModelKey]Provider, len(providers)),
		order:     []models.ModelKey{models.ModelClaude, models.ModelGPT4, models.ModelDeepSeek},
		logger:    logger,
	}
	for _, p := range providers {
		r.providers[p.Key()] = p
	}
	return r
}

// Descriptors lists every known model with its availability.
func (r *Registry) Descriptors() []models.ModelDescriptor {
	labels := map[models.ModelKey]string{
		models.ModelClaude:   "Claude",
		models.ModelGPT4:     "ChatGPT",
		models.ModelDeepSeek: "DeepSeek",
	}
	out := make([]models.ModelDescriptor, 0, len(r.order))
	for _, key := range r.order {
		label := labels[key]
		p, ok := r.providers[key]
		if ok {
			label = p.Label()
		}
		out = append(out, models.ModelDescriptor{Key: key, Label: label, Available: ok})
	}
	return out
}

func (r *Registry) Get(key models.ModelKey) (Provider, bool) {
	p, ok := r.providers[key]
	return p, ok
}

// Select resolves the requested keys to available providers, preserving
// request order and skipping unknown or unavailable models.
func (r *Registry) Select(keys []models.ModelKey) []Provider {
	out := make([]Provider, 0, len(keys))
	for _, key := range keys {
		if p, ok := r.providers[key]; ok {
			out = append(out, p)
		} else {
			r.logger.Warn("requested model is unavailable", zap.String("model", string(key)))
		}
	}
	return out
}
