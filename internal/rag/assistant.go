// Package rag implements the retrieval-augmented chat assistant: embed
// the query, pull matching documents from the vector index, and prompt a
// single model with the retrieved context plus recent history.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"github.com/parrotlabs/thinktank/internal/vectordb"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Embedder turns a query into a vector. *embeddings.EmbedderImpl from
// langchaingo satisfies this.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

const defaultSystemPrompt = "You are an expert coding assistant. Remember to keep track of the " +
	"conversation context and refer back to previous discussion when relevant for problem solving."

type Config struct {
	TopK         int
	HistoryLimit int
	TokenBudget  int
	SystemPrompt string
}

type Assistant struct {
	provider llm.Provider
	embedder Embedder
	index    vectordb.Index
	logger   *zap.Logger
	cfg      Config
	encoder  *tiktoken.Tiktoken
}

// New builds an assistant. embedder and index may be nil, in which case
// retrieval is disabled and every reply runs without context.
func New(provider llm.Provider, embedder Embedder, index vectordb.Index, logger *zap.Logger, cfg Config) *Assistant {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 4000
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}

	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// History stays bounded by entry count alone.
		logger.Warn("tiktoken encoding unavailable, skipping token budgets", zap.Error(err))
		encoder = nil
	}

	return &Assistant{
		provider: provider,
		embedder: embedder,
		index:    index,
		logger:   logger,
		cfg:      cfg,
		encoder:  encoder,
	}
}

// Retrieve embeds the query and returns the concatenated text of the
// top-k matches. Retrieval failures degrade to an empty context; the
// chat must keep working without it.
func (a *Assistant) Retrieve(ctx context.Context, query string) string {
	if a.embedder == nil || a.index == nil {
		return ""
	}

	vector, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		a.logger.Warn("failed to embed query", zap.Error(err))
		return ""
	}

	matches, err := a.index.Query(ctx, vector, a.cfg.TopK)
	if err != nil {
		a.logger.Warn("failed to query vector index", zap.Error(err))
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if content, ok := m.Metadata["content"].(string); ok && content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Reply answers a query with retrieved context and bounded recent
// history. It returns the cleaned reply and the context that was used.
func (a *Assistant) Reply(ctx context.Context, query string, history []models.Message) (string, string, error) {
	ragContext := a.Retrieve(ctx, query)

	msgs := a.historyWindow(history)

	content := query
	if ragContext != "" {
		content = fmt.Sprintf("%s\n\nUser: %s", ragContext, query)
	}
	msgs = append(msgs, llm.ChatMessage{Role: models.ChatRoleUser, Content: content})

	raw, err := a.provider.Chat(ctx, a.cfg.SystemPrompt, msgs)
	if err != nil {
		return "", ragContext, fmt.Errorf("rag: failed to generate reply: %w", err)
	}
	return Clean(raw), ragContext, nil
}

// historyWindow keeps the last HistoryLimit non-system turns, further
// trimmed from the oldest end to fit the token budget.
func (a *Assistant) historyWindow(history []models.Message) []llm.ChatMessage {
	if len(history) > a.cfg.HistoryLimit {
		history = history[len(history)-a.cfg.HistoryLimit:]
	}

	msgs := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == models.ChatRoleSystem {
			continue
		}
		msgs = append(msgs, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if a.encoder == nil {
		return msgs
	}
	total := 0
	for _, m := range msgs {
		total += len(a.encoder.Encode(m.Content, nil, nil))
	}
	for len(msgs) > 0 && total > a.cfg.TokenBudget {
		total -= len(a.encoder.Encode(msgs[0].Content, nil, nil))
		msgs = msgs[1:]
	}
	return msgs
}
