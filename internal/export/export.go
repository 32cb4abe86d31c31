// Package export renders transcripts into downloadable artifacts.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parrotlabs/thinktank/internal/models"
)

// TranscriptText flattens a transcript into the line-oriented
// "role: content" download format.
func TranscriptText(msgs []models.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// ConversationMarkdown renders the chat history as a Markdown log with
// one heading per turn.
func ConversationMarkdown(msgs []models.Message) string {
	var b strings.Builder
	b.WriteString("# Conversation History\n\n")
	for _, m := range msgs {
		b.WriteString("## " + titleCase(m.Role) + "\n")
		b.WriteString(m.Content + "\n\n")
	}
	return b.String()
}

// SummaryMarkdown wraps a summary in a Markdown document.
func SummaryMarkdown(summary string) string {
	return "# Conversation Summary\n\n" + summary
}

// Metadata carries the counters attached to a training-data bundle.
type Metadata struct {
	TotalMessages         int      `json:"total_messages"`
	TotalUserQueries      int      `json:"total_user_queries"`
	TopicsCovered         []string `json:"topics_covered"`
	LearningEffectiveness *float64 `json:"learning_effectiveness"`
}

// TrainingData is the JSON bundle offered for download: the raw
// conversation, its summary, best-effort structured learnings and basic
// counters.
type TrainingData struct {
	Timestamp           string           `json:"timestamp"`
	Conversation        []models.Message `json:"conversation"`
	Summary             string           `json:"summary"`
	StructuredLearnings map[string]any   `json:"structured_learnings"`
	Metadata            Metadata         `json:"metadata"`
}

func NewTrainingData(msgs []models.Message, summary string, learnings map[string]any, now time.Time) TrainingData {
	userQueries := 0
	for _, m := range msgs {
		if m.Role == models.ChatRoleUser {
			userQueries++
		}
	}
	return TrainingData{
		Timestamp:           now.Format("20060102_150405"),
		Conversation:        msgs,
		Summary:             summary,
		StructuredLearnings: learnings,
		Metadata: Metadata{
			TotalMessages:    len(msgs),
			TotalUserQueries: userQueries,
			TopicsCovered:    []string{},
		},
	}
}

func (t TrainingData) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
