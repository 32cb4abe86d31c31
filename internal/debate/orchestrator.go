// Package debate drives a multi-round discussion among hosted LLM
// providers and synthesizes a final consensus message.
package debate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parrotlabs/thinktank/internal/attach"
	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"go.uber.org/zap"
)

// ErrNotEnoughParticipants is returned before any model call is made
// when fewer than two participants are selected.
var ErrNotEnoughParticipants = errors.New("debate: at least 2 models are required")

// ErrorPolicy decides what happens when a participant's call fails.
type ErrorPolicy int

const (
	// DegradeToPlaceholder substitutes an error-text message for the
	// failed response and continues the round.
	DegradeToPlaceholder ErrorPolicy = iota

	// AbortRound stops the discussion on the first failed call.
	AbortRound
)

// Status of a discussion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Options configures one discussion.
type Options struct {
	MaxRounds int

	// ConsensusProbe asks the synthesizer a YES/NO question after each
	// full round and stops early on YES.
	ConsensusProbe bool

	// Synthesizer picks which participant produces the probe answers and
	// the final consensus. Zero value means the last participant in the
	// shuffled order.
	Synthesizer models.ModelKey

	OnError ErrorPolicy

	// Seed makes participant ordering and persona assignment
	// reproducible. Zero means time-seeded.
	Seed int64
}

// Sink receives each message as it is appended, in order. It replaces
// the original UI's incremental rendering; no pacing delays are used.
type Sink func(models.Message)

// Result is the outcome of a completed discussion.
type Result struct {
	DiscussionID string
	Transcript   []models.Message
	Consensus    models.Message
	Rounds       int
	EarlyStop    bool
	Status       Status
}

type Orchestrator struct {
	logger *zap.Logger
}

func NewOrchestrator(logger *zap.Logger) *Orchestrator {
	return &Orchestrator{logger: logger}
}

// Run executes a full discussion: user problem (plus optional vetted
// attachment), MaxRounds rounds of participant responses, an optional
// consensus probe, and a final synthesized Consensus message.
func (o *Orchestrator) Run(ctx context.Context, problem string, file *attach.File, participants []llm.Provider, sink Sink, opts Options) (*Result, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	if sink == nil {
		sink = func(models.Message) {}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Participant order is shuffled once per discussion, not per round.
	order := make([]llm.Provider, len(participants))
	copy(order, participants)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	labels := make([]string, len(order))
	for i, p := range order {
		labels[i] = p.Label()
	}
	personas := assignPersonas(labels, rng)

	result := &Result{
		DiscussionID: uuid.NewString(),
		Status:       StatusActive,
	}

	transcript := models.NewTranscript()
	appendMsg := func(role, content string) models.Message {
		msg := models.Message{
			DiscussionID: result.DiscussionID,
			Role:         role,
			Content:      content,
			CreatedAt:    time.Now(),
		}
		transcript.Append(msg)
		sink(msg)
		return msg
	}

	appendMsg(models.RoleUser, problem)
	if file != nil {
		appendMsg(models.RoleSystem, fmt.Sprintf("Attached file content: %s", file.Content))
	}

	synthesizer := o.pickSynthesizer(order, opts.Synthesizer)

rounds:
	for round := 1; round <= opts.MaxRounds; round++ {
		result.Rounds = round
		for _, p := range order {
			instruction := reviewPrompt
			if round == 1 {
				instruction = initialPrompt
			}
			prompt := buildPrompt(transcript.Render(), personas[p.Label()], instruction)

			response, err := p.Generate(ctx, prompt)
			if err != nil {
				o.logger.Warn("participant call failed",
					zap.String("model", string(p.Key())),
					zap.Int("round", round),
					zap.Error(err))
				if opts.OnError == AbortRound {
					result.Status = StatusFailed
					result.Transcript = transcript.Messages()
					return result, fmt.Errorf("debate: round %d: %w", round, err)
				}
				response = fmt.Sprintf("Error generating response: %v", err)
			}
			appendMsg(p.Label(), response)
		}

		if opts.ConsensusProbe && round < opts.MaxRounds {
			reached, err := o.probeConsensus(ctx, transcript, synthesizer)
			if err != nil {
				o.logger.Warn("consensus probe failed", zap.Int("round", round), zap.Error(err))
				continue
			}
			if reached {
				result.EarlyStop = true
				break rounds
			}
		}
	}

	prompt := buildPrompt(transcript.Render(), "", synthesisPrompt)
	consensus, err := synthesizer.Generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("consensus synthesis failed", zap.Error(err))
		if opts.OnError == AbortRound {
			result.Status = StatusFailed
			result.Transcript = transcript.Messages()
			return result, fmt.Errorf("debate: synthesis: %w", err)
		}
		consensus = fmt.Sprintf("Error generating response: %v", err)
	}
	result.Consensus = appendMsg(models.RoleConsensus, consensus)

	result.Transcript = transcript.Messages()
	result.Status = StatusResolved
	return result, nil
}

// probeConsensus asks the synthesizer for a binary judgment. Any answer
// containing YES counts as consensus.
func (o *Orchestrator) probeConsensus(ctx context.Context, transcript *models.Transcript, synthesizer llm.Provider) (bool, error) {
	prompt := buildPrompt(transcript.Render(), "", consensusProbePrompt)
	answer, err := synthesizer.Generate(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(answer), "YES"), nil
}

func (o *Orchestrator) pickSynthesizer(order []llm.Provider, key models.ModelKey) llm.Provider {
	for _, p := range order {
		if p.Key() == key {
			return p
		}
	}
	return order[len(order)-1]
}
