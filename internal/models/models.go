package models

import "time"

// ModelKey identifies a hosted model provider.
type ModelKey string

const (
	ModelClaude   ModelKey = "claude"
	ModelGPT4     ModelKey = "gpt4"
	ModelDeepSeek ModelKey = "deepseek"
)

// ModelDescriptor describes a provider as presented to the client.
// Available is false when no credential for the provider was configured.
type ModelDescriptor struct {
	Key       ModelKey `json:"key"`
	Label     string   `json:"label"`
	Available bool     `json:"available"`
}

// Role tags used on transcript messages. Model responses carry the
// provider's display label as their role, so roles are not unique.
const (
	RoleUser      = "User"
	RoleSystem    = "System"
	RoleConsensus = "Consensus"
)

// Chat-style roles used by the RAG assistant flow.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

type Message struct {
	ID           int64     `json:"id,omitempty"`
	DiscussionID string    `json:"discussion_id,omitempty"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Discussion is one debate session. The transcript is append-only and
// replayed into every prompt, so ordering is significant.
type Discussion struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
