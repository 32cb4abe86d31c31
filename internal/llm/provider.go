package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/parrotlabs/thinktank/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const callTimeout = 30 * time.Second

// ChatMessage is one turn in a chat-style call.
type ChatMessage struct {
	Role    string
	Content string
}

// Provider is one hosted model a debate participant or the RAG assistant
// can call. Failures are returned as errors, never folded into the text;
// the caller decides whether a failed call degrades or aborts.
type Provider interface {
	Key() models.ModelKey
	Label() string

	// Generate sends a single flat prompt and returns the completion.
	Generate(ctx context.Context, prompt string) (string, error)

	// Chat sends a system instruction plus an ordered message list.
	Chat(ctx context.Context, system string, msgs []ChatMessage) (string, error)
}

type provider struct {
	key   models.ModelKey
	label string
	model llms.Model
}

func newProvider(key models.ModelKey, label string, model llms.Model) *provider {
	return &provider{key: key, label: label, model: model}
}

func (p *provider) Key() models.ModelKey { return p.key }

func (p *provider) Label() string { return p.label }

func (p *provider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt, llms.WithMaxTokens(1024))
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate completion: %w", p.key, err)
	}
	return completion, nil
}

func (p *provider) Chat(ctx context.Context, system string, msgs []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(msgs)+1)
	if system != "" {
		content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	for _, m := range msgs {
		role := schema.ChatMessageTypeHuman
		if m.Role == models.ChatRoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	resp, err := p.model.GenerateContent(ctx, content, llms.WithMaxTokens(1500))
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate chat completion: %w", p.key, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", p.key)
	}
	return resp.Choices[0].Content, nil
}
