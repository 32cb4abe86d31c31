package debate

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/parrotlabs/thinktank/internal/attach"
	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"go.uber.org/zap"
)

type fakeProvider struct {
	key     models.ModelKey
	label   string
	reply   func(prompt string) (string, error)
	calls   atomic.Int64
	prompts []string
}

func (f *fakeProvider) Key() models.ModelKey { return f.key }

func (f *fakeProvider) Label() string { return f.label }

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.prompts = append(f.prompts, prompt)
	if f.reply != nil {
		return f.reply(prompt)
	}
	return "response from " + f.label, nil
}

func (f *fakeProvider) Chat(_ context.Context, _ string, _ []llm.ChatMessage) (string, error) {
	return "", errors.New("not used in debates")
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return NewOrchestrator(zap.NewNop())
}

func TestRunRequiresTwoParticipants(t *testing.T) {
	o := newTestOrchestrator(t)
	p := &fakeProvider{key: models.ModelClaude, label: "Claude"}

	_, err := o.Run(context.Background(), "problem", nil, []llm.Provider{p}, nil, Options{MaxRounds: 1})
	if !errors.Is(err, ErrNotEnoughParticipants) {
		t.Fatalf("Run() error = %v, want ErrNotEnoughParticipants", err)
	}
	if got := p.calls.Load(); got != 0 {
		t.Errorf("participant was called %d times, want 0", got)
	}
}

func TestRunSingleRoundTranscript(t *testing.T) {
	o := newTestOrchestrator(t)
	a := &fakeProvider{key: models.ModelClaude, label: "Claude"}
	b := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT"}

	result, err := o.Run(context.Background(), "Is a hotdog a sandwich?", nil,
		[]llm.Provider{a, b}, nil, Options{MaxRounds: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 1 user + 2 participant responses + 1 consensus.
	if len(result.Transcript) != 4 {
		t.Fatalf("transcript length = %d, want 4", len(result.Transcript))
	}
	if result.Transcript[0].Role != models.RoleUser {
		t.Errorf("first role = %q, want %q", result.Transcript[0].Role, models.RoleUser)
	}
	if result.Transcript[0].Content != "Is a hotdog a sandwich?" {
		t.Errorf("first content = %q", result.Transcript[0].Content)
	}
	last := result.Transcript[len(result.Transcript)-1]
	if last.Role != models.RoleConsensus {
		t.Errorf("last role = %q, want %q", last.Role, models.RoleConsensus)
	}
	if result.Consensus.Role != models.RoleConsensus {
		t.Errorf("Consensus.Role = %q, want %q", result.Consensus.Role, models.RoleConsensus)
	}
	if result.Status != StatusResolved {
		t.Errorf("Status = %q, want %q", result.Status, StatusResolved)
	}
}

func TestRunReplaysTranscriptIntoPrompts(t *testing.T) {
	o := newTestOrchestrator(t)
	a := &fakeProvider{key: models.ModelClaude, label: "Claude"}
	b := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT"}

	_, err := o.Run(context.Background(), "the problem", nil,
		[]llm.Provider{a, b}, nil, Options{MaxRounds: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, p := range []*fakeProvider{a, b} {
		if len(p.prompts) == 0 {
			t.Fatalf("%s was never called", p.label)
		}
		if !strings.Contains(p.prompts[0], "User: the problem") {
			t.Errorf("%s prompt missing replayed user message:\n%s", p.label, p.prompts[0])
		}
	}

	// The second responder in the shuffled order must see the first
	// responder's message in its prompt.
	sawOther := strings.Contains(a.prompts[0], "response from ChatGPT") ||
		strings.Contains(b.prompts[0], "response from Claude")
	if !sawOther {
		t.Error("neither participant saw the other's response in its prompt")
	}
}

func TestRunAppendsAttachmentAsSystemMessage(t *testing.T) {
	o := newTestOrchestrator(t)
	a := &fakeProvider{key: models.ModelClaude, label: "Claude"}
	b := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT"}

	file := &attach.File{Name: "main.py", Content: "def main():\n    pass\n"}
	result, err := o.Run(context.Background(), "review this", file,
		[]llm.Provider{a, b}, nil, Options{MaxRounds: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Transcript) != 5 {
		t.Fatalf("transcript length = %d, want 5", len(result.Transcript))
	}
	sys := result.Transcript[1]
	if sys.Role != models.RoleSystem {
		t.Errorf("second role = %q, want %q", sys.Role, models.RoleSystem)
	}
	if !strings.Contains(sys.Content, "def main():\n    pass\n") {
		t.Errorf("system message does not embed exact file content: %q", sys.Content)
	}
}

func TestRunConsensusProbeStopsEarly(t *testing.T) {
	o := newTestOrchestrator(t)
	a := &fakeProvider{key: models.ModelClaude, label: "Claude"}
	b := &fakeProvider{
		key:   models.ModelGPT4,
		label: "ChatGPT",
		reply: func(prompt string) (string, error) {
			if strings.Contains(prompt, "YES or NO") {
				return "YES, the participants agree.", nil
			}
			return "a response", nil
		},
	}

	result, err := o.Run(context.Background(), "problem", nil,
		[]llm.Provider{a, b}, nil, Options{
			MaxRounds:      5,
			ConsensusProbe: true,
			Synthesizer:    models.ModelGPT4,
			Seed:           1,
		})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.EarlyStop {
		t.Error("EarlyStop = false, want true")
	}
	if result.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", result.Rounds)
	}
}

func TestRunDegradesOnParticipantFailure(t *testing.T) {
	o := newTestOrchestrator(t)
	failing := &fakeProvider{
		key:   models.ModelClaude,
		label: "Claude",
		reply: func(string) (string, error) { return "", errors.New("rate limited") },
	}
	ok := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT"}

	result, err := o.Run(context.Background(), "problem", nil,
		[]llm.Provider{failing, ok}, nil, Options{MaxRounds: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded success", err)
	}

	found := false
	for _, m := range result.Transcript {
		if m.Role == "Claude" && strings.Contains(m.Content, "Error generating response") {
			found = true
		}
	}
	if !found {
		t.Error("no placeholder error message found for the failed participant")
	}
	if ok.calls.Load() == 0 {
		t.Error("healthy participant was not called after the failure")
	}
}

func TestRunAbortsOnParticipantFailure(t *testing.T) {
	o := newTestOrchestrator(t)
	failing := &fakeProvider{
		key:   models.ModelClaude,
		label: "Claude",
		reply: func(string) (string, error) { return "", errors.New("rate limited") },
	}
	other := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT",
		reply: func(string) (string, error) { return "", errors.New("rate limited") },
	}

	result, err := o.Run(context.Background(), "problem", nil,
		[]llm.Provider{failing, other}, nil, Options{MaxRounds: 1, OnError: AbortRound, Seed: 1})
	if err == nil {
		t.Fatal("Run() error = nil, want abort error")
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", result.Status, StatusFailed)
	}
}

func TestRunSinkReceivesMessagesInOrder(t *testing.T) {
	o := newTestOrchestrator(t)
	a := &fakeProvider{key: models.ModelClaude, label: "Claude"}
	b := &fakeProvider{key: models.ModelGPT4, label: "ChatGPT"}

	var seen []models.Message
	sink := func(m models.Message) { seen = append(seen, m) }

	result, err := o.Run(context.Background(), "problem", nil,
		[]llm.Provider{a, b}, sink, Options{MaxRounds: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(seen) != len(result.Transcript) {
		t.Fatalf("sink saw %d messages, transcript has %d", len(seen), len(result.Transcript))
	}
	for i := range seen {
		if seen[i].Role != result.Transcript[i].Role || seen[i].Content != result.Transcript[i].Content {
			t.Errorf("sink message %d = %+v, want %+v", i, seen[i], result.Transcript[i])
		}
	}
}

func TestRunOrderIsStableAcrossRounds(t *testing.T) {
	o := newTestOrchestrator(t)

	var order []string
	mk := func(key models.ModelKey, label string) *fakeProvider {
		return &fakeProvider{key: key, label: label, reply: func(string) (string, error) {
			order = append(order, label)
			return "ok", nil
		}}
	}
	a := mk(models.ModelClaude, "Claude")
	b := mk(models.ModelGPT4, "ChatGPT")
	c := mk(models.ModelDeepSeek, "DeepSeek")

	_, err := o.Run(context.Background(), "problem", nil,
		[]llm.Provider{a, b, c}, nil, Options{MaxRounds: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Drop the synthesizer's final call, then check each round repeats
	// the first round's ordering.
	responses := order[:9]
	for round := 1; round < 3; round++ {
		for i := 0; i < 3; i++ {
			if responses[round*3+i] != responses[i] {
				t.Fatalf("round %d order %v differs from round 1 %v",
					round+1, responses[round*3:round*3+3], responses[:3])
			}
		}
	}
}

func TestAssignPersonasUniquePerParticipant(t *testing.T) {
	labels := []string{"Claude", "ChatGPT", "DeepSeek"}
	rng := rand.New(rand.NewSource(7))
	personas := assignPersonas(labels, rng)

	if len(personas) != len(labels) {
		t.Fatalf("personas length = %d, want %d", len(personas), len(labels))
	}
	seen := make(map[string]bool)
	for _, label := range labels {
		p := personas[label]
		if p == "" {
			t.Errorf("no persona assigned to %s", label)
		}
		if seen[p] {
			t.Errorf("persona %q assigned twice", p)
		}
		seen[p] = true
	}
}
