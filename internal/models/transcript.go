package models

import (
	"fmt"
	"strings"
)

// Transcript is the ordered list of role-tagged messages for one session.
// It is owned by a single session and mutated only by its control flow.
type Transcript struct {
	msgs []Message
}

func NewTranscript() *Transcript {
	return &Transcript{msgs: make([]Message, 0)}
}

func (t *Transcript) Append(msg Message) {
	t.msgs = append(t.msgs, msg)
}

// Messages returns a copy so callers cannot reorder the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	return len(t.msgs)
}

// Reset clears the transcript for a new discussion.
func (t *Transcript) Reset() {
	t.msgs = t.msgs[:0]
}

// Render flattens the transcript into the "Role: content" form that is
// replayed into every model prompt.
func (t *Transcript) Render() string {
	lines := make([]string, 0, len(t.msgs))
	for _, m := range t.msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
