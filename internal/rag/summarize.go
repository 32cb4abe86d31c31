package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"go.uber.org/zap"
)

const summaryPrompt = `Analyze this conversation and extract knowledge that would be valuable for future interactions. Focus on:

1. New Knowledge Gained:
   - What specific technical details were discussed?
   - What user implementation patterns or use cases were revealed?
   - What common integration scenarios were uncovered?

2. Context Improvements:
   - What additional context would have made the responses more accurate?
   - Which parts of the available documentation were most relevant?
   - What related technologies were discussed that need better coverage?

3. User Interaction Patterns:
   - How did users phrase their technical questions?
   - What assumptions did users make?
   - What level of technical detail was most effective in responses?

4. Knowledge Gaps Identified:
   - What questions carried uncertainty?
   - Which features needed more detailed explanation?

Format this as structured, actionable knowledge that could be used to improve future responses. Focus on specific, technical details rather than general summaries.`

const learningPrompt = `Convert the above conversation into structured training data by identifying:
1. Specific code patterns and implementations discussed
2. Technical terms and their contextual usage
3. Common user questions and effective response patterns
4. Areas where documentation enhancement would help
5. Integration points with other technologies

Format as clear, structured JSON that could be used for training. Include specific examples and contexts. Respond with the JSON object only.`

// LearningsParseError is the sentinel returned when the model's
// structured-learnings output is not valid JSON.
const LearningsParseError = "Could not parse structured learnings"

// Summarize sends the full history plus the analytical prompt to the
// model and returns a cleaned free-text summary.
func (a *Assistant) Summarize(ctx context.Context, history []models.Message) (string, error) {
	msgs := appendHistory(nil, history)
	msgs = append(msgs, llm.ChatMessage{Role: models.ChatRoleUser, Content: summaryPrompt})

	raw, err := a.provider.Chat(ctx, "You are analyzing a conversation to improve future responses.", msgs)
	if err != nil {
		return "", fmt.Errorf("rag: failed to generate summary: %w", err)
	}
	return Clean(raw), nil
}

// StructuredLearnings asks the model to reformat the conversation as
// JSON. Output that does not parse degrades to a sentinel error object
// rather than failing the export.
func (a *Assistant) StructuredLearnings(ctx context.Context, history []models.Message) (map[string]any, error) {
	msgs := appendHistory(nil, history)
	msgs = append(msgs, llm.ChatMessage{Role: models.ChatRoleUser, Content: learningPrompt})

	raw, err := a.provider.Chat(ctx, "You are extracting structured training data from a conversation.", msgs)
	if err != nil {
		return nil, fmt.Errorf("rag: failed to generate structured learnings: %w", err)
	}

	var learnings map[string]any
	if err := json.Unmarshal([]byte(Clean(raw)), &learnings); err != nil {
		a.logger.Warn("structured learnings were not valid JSON", zap.Error(err))
		return map[string]any{"error": LearningsParseError}, nil
	}
	return learnings, nil
}

func appendHistory(msgs []llm.ChatMessage, history []models.Message) []llm.ChatMessage {
	for _, m := range history {
		if m.Role == models.ChatRoleSystem {
			continue
		}
		msgs = append(msgs, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}
