package rag

import (
	"context"
	"testing"

	"github.com/parrotlabs/thinktank/internal/models"
)

func TestSummarizeSendsHistoryAndPrompt(t *testing.T) {
	provider := &fakeChatProvider{reply: "a summary"}
	a := newTestAssistant(t, provider, nil, nil)

	history := []models.Message{
		{Role: models.ChatRoleUser, Content: "how do turns work?"},
		{Role: models.ChatRoleAssistant, Content: "via the turn order config"},
	}

	summary, err := a.Summarize(context.Background(), history)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "a summary" {
		t.Errorf("summary = %q", summary)
	}

	// Full history followed by the analytical prompt.
	if len(provider.gotMsgs) != 3 {
		t.Fatalf("messages sent = %d, want 3", len(provider.gotMsgs))
	}
	last := provider.gotMsgs[len(provider.gotMsgs)-1]
	if last.Role != models.ChatRoleUser || last.Content != summaryPrompt {
		t.Errorf("final turn is not the summary prompt")
	}
}

func TestStructuredLearningsParsesJSON(t *testing.T) {
	provider := &fakeChatProvider{reply: `{"patterns": ["state machines"], "terms": {"phase": "a game stage"}}`}
	a := newTestAssistant(t, provider, nil, nil)

	learnings, err := a.StructuredLearnings(context.Background(), nil)
	if err != nil {
		t.Fatalf("StructuredLearnings() error = %v", err)
	}
	patterns, ok := learnings["patterns"].([]any)
	if !ok || len(patterns) != 1 {
		t.Errorf("patterns = %v", learnings["patterns"])
	}
}

func TestStructuredLearningsFallsBackOnInvalidJSON(t *testing.T) {
	provider := &fakeChatProvider{reply: "Sorry, here is prose instead of JSON."}
	a := newTestAssistant(t, provider, nil, nil)

	learnings, err := a.StructuredLearnings(context.Background(), nil)
	if err != nil {
		t.Fatalf("StructuredLearnings() error = %v", err)
	}
	if learnings["error"] != LearningsParseError {
		t.Errorf("learnings = %v, want parse-error sentinel", learnings)
	}
}
