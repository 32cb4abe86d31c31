package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parrotlabs/thinktank/internal/attach"
	"github.com/parrotlabs/thinktank/internal/db"
	"github.com/parrotlabs/thinktank/internal/debate"
	"github.com/parrotlabs/thinktank/internal/export"
	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"github.com/parrotlabs/thinktank/internal/rag"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// chatSession is the explicit per-session state for the RAG flow:
// created at startup, replaced wholesale on reset, mutated only under
// the handler's lock.
type chatSession struct {
	ID       string
	Messages []models.Message
	Summary  string
}

type Handler struct {
	db           *db.Database
	registry     *llm.Registry
	orchestrator *debate.Orchestrator
	assistant    *rag.Assistant
	logger       *zap.Logger

	mu   sync.Mutex
	chat *chatSession
}

func NewHandler(database *db.Database, registry *llm.Registry, orchestrator *debate.Orchestrator, assistant *rag.Assistant, logger *zap.Logger) *Handler {
	h := &Handler{
		db:           database,
		registry:     registry,
		orchestrator: orchestrator,
		assistant:    assistant,
		logger:       logger,
		chat:         &chatSession{ID: uuid.NewString()},
	}
	// The initial session is registered like a reset one, so its
	// messages show up in the discussion list.
	if _, err := h.db.CreateDiscussion(h.chat.ID, "Chat session", "chat"); err != nil {
		h.logger.Error("failed to create chat discussion", zap.Error(err))
	}
	return h
}

type debateResponse struct {
	DiscussionID string           `json:"discussion_id"`
	Transcript   []models.Message `json:"transcript"`
	Consensus    models.Message   `json:"consensus"`
	Rounds       int              `json:"rounds"`
	EarlyStop    bool             `json:"early_stop"`
	Warning      string           `json:"warning,omitempty"`
}

// StartDebate runs a full discussion from a multipart form: problem
// text, round count, selected models and an optional attachment.
func (h *Handler) StartDebate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	problem := strings.TrimSpace(r.FormValue("problem"))
	if problem == "" {
		http.Error(w, "Field 'problem' is required", http.StatusBadRequest)
		return
	}

	maxRounds := 5
	if v := r.FormValue("max_rounds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			http.Error(w, "Field 'max_rounds' must be between 1 and 10", http.StatusBadRequest)
			return
		}
		maxRounds = n
	}

	keys := parseModelKeys(r.FormValue("models"))
	participants := h.registry.Select(keys)

	var warning string
	file, warn, err := h.readAttachment(r)
	if err != nil {
		http.Error(w, "Failed to read attachment", http.StatusBadRequest)
		return
	}
	warning = warn

	policy := debate.DegradeToPlaceholder
	if r.FormValue("on_error") == "abort" {
		policy = debate.AbortRound
	}

	opts := debate.Options{
		MaxRounds:      maxRounds,
		ConsensusProbe: r.FormValue("consensus_probe") != "false",
		OnError:        policy,
	}

	title := problem
	if len(title) > 80 {
		title = title[:80]
	}
	discussionID := ""
	sink := func(msg models.Message) {
		if discussionID == "" && msg.DiscussionID != "" {
			discussionID = msg.DiscussionID
			if _, err := h.db.CreateDiscussion(discussionID, title, "debate"); err != nil {
				h.logger.Error("failed to create discussion", zap.Error(err))
			}
		}
		if err := h.db.SaveMessage(&msg); err != nil {
			h.logger.Error("failed to save message", zap.Error(err))
		}
	}

	result, err := h.orchestrator.Run(r.Context(), problem, file, participants, sink, opts)
	if err != nil {
		if errors.Is(err, debate.ErrNotEnoughParticipants) {
			http.Error(w, "At least 2 available models must be selected", http.StatusBadRequest)
			return
		}
		h.logger.Error("debate failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Debate failed: %v", err), http.StatusBadGateway)
		return
	}

	writeJSON(w, h.logger, debateResponse{
		DiscussionID: result.DiscussionID,
		Transcript:   result.Transcript,
		Consensus:    result.Consensus,
		Rounds:       result.Rounds,
		EarlyStop:    result.EarlyStop,
		Warning:      warning,
	})
}

// readAttachment vets an optional uploaded file. A rejected file is
// dropped with a warning; only transport errors fail the request.
func (h *Handler) readAttachment(r *http.Request) (*attach.File, string, error) {
	f, header, err := r.FormFile("attachment")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}

	file, err := attach.Vet(header.Filename, data)
	if err != nil {
		h.logger.Warn("attachment rejected", zap.String("name", header.Filename), zap.Error(err))
		return nil, err.Error(), nil
	}
	return file, "", nil
}

// ExportDebate serves a discussion transcript as plain text.
func (h *Handler) ExportDebate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("discussion_id")
	if id == "" {
		http.Error(w, "Query parameter 'discussion_id' is required", http.StatusBadRequest)
		return
	}

	msgs, err := h.db.GetTranscript(id)
	if err != nil {
		h.logger.Error("failed to load transcript", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="debug_chat_history.txt"`)
	fmt.Fprint(w, export.TranscriptText(msgs))
}

// GetModels lists every known model with its availability.
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, h.logger, h.registry.Descriptors())
}

// GetDiscussions lists stored debate and chat sessions.
func (h *Handler) GetDiscussions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	discussions, err := h.db.GetDiscussions()
	if err != nil {
		h.logger.Error("failed to get discussions", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, h.logger, discussions)
}

// DeleteDiscussion removes a stored discussion and its messages.
func (h *Handler) DeleteDiscussion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("discussion_id")
	if id == "" {
		http.Error(w, "Query parameter 'discussion_id' is required", http.StatusBadRequest)
		return
	}

	if err := h.db.DeleteDiscussion(id); err != nil {
		h.logger.Error("failed to delete discussion", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type chatRequest struct {
	Content string `json:"content"`
}

type chatResponse struct {
	Reply    string        `json:"reply"`
	Segments []rag.Segment `json:"segments"`
	Context  string        `json:"context,omitempty"`
}

// HandleChatMessage answers one RAG-assisted chat turn.
func (h *Handler) HandleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Field 'content' is required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	history := make([]models.Message, len(h.chat.Messages))
	copy(history, h.chat.Messages)
	sessionID := h.chat.ID
	h.mu.Unlock()

	reply, ragContext, err := h.assistant.Reply(r.Context(), req.Content, history)
	if err != nil {
		h.logger.Error("failed to process chat message", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to process message: %v", err), http.StatusBadGateway)
		return
	}

	now := time.Now()
	userMsg := models.Message{DiscussionID: sessionID, Role: models.ChatRoleUser, Content: req.Content, CreatedAt: now}
	assistantMsg := models.Message{DiscussionID: sessionID, Role: models.ChatRoleAssistant, Content: reply, CreatedAt: now}

	// Save first so the session keeps the stored IDs and timestamps.
	for _, msg := range []*models.Message{&userMsg, &assistantMsg} {
		if err := h.db.SaveMessage(msg); err != nil {
			h.logger.Error("failed to save chat message", zap.Error(err))
		}
	}

	h.mu.Lock()
	h.chat.Messages = append(h.chat.Messages, userMsg, assistantMsg)
	h.mu.Unlock()

	writeJSON(w, h.logger, chatResponse{
		Reply:    reply,
		Segments: rag.Format(reply),
		Context:  ragContext,
	})
}

type summaryResponse struct {
	Summary             string         `json:"summary"`
	StructuredLearnings map[string]any `json:"structured_learnings"`
}

// HandleChatSummary generates the on-demand conversation summary plus
// structured learnings.
func (h *Handler) HandleChatSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	history := make([]models.Message, len(h.chat.Messages))
	copy(history, h.chat.Messages)
	h.mu.Unlock()

	if len(history) == 0 {
		http.Error(w, "No conversation to summarize", http.StatusBadRequest)
		return
	}

	summary, err := h.assistant.Summarize(r.Context(), history)
	if err != nil {
		h.logger.Error("failed to summarize conversation", zap.Error(err))
		http.Error(w, "Failed to generate summary", http.StatusBadGateway)
		return
	}

	learnings, err := h.assistant.StructuredLearnings(r.Context(), history)
	if err != nil {
		h.logger.Error("failed to extract structured learnings", zap.Error(err))
		http.Error(w, "Failed to extract structured learnings", http.StatusBadGateway)
		return
	}

	h.mu.Lock()
	h.chat.Summary = summary
	h.mu.Unlock()

	writeJSON(w, h.logger, summaryResponse{Summary: summary, StructuredLearnings: learnings})
}

// ExportChat serves the chat session as markdown, a summary document or
// the JSON training bundle, selected by ?format=.
func (h *Handler) ExportChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	history := make([]models.Message, len(h.chat.Messages))
	copy(history, h.chat.Messages)
	summary := h.chat.Summary
	h.mu.Unlock()

	if len(history) == 0 {
		http.Error(w, "No conversation to export", http.StatusBadRequest)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, export.ConversationMarkdown(history))

	case "summary":
		if summary == "" {
			var err error
			summary, err = h.assistant.Summarize(r.Context(), history)
			if err != nil {
				h.logger.Error("failed to summarize conversation", zap.Error(err))
				http.Error(w, "Failed to generate summary", http.StatusBadGateway)
				return
			}
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, export.SummaryMarkdown(summary))

	case "json":
		if summary == "" {
			var err error
			summary, err = h.assistant.Summarize(r.Context(), history)
			if err != nil {
				h.logger.Error("failed to summarize conversation", zap.Error(err))
				http.Error(w, "Failed to generate summary", http.StatusBadGateway)
				return
			}
		}
		learnings, err := h.assistant.StructuredLearnings(r.Context(), history)
		if err != nil {
			h.logger.Error("failed to extract structured learnings", zap.Error(err))
			http.Error(w, "Failed to extract structured learnings", http.StatusBadGateway)
			return
		}
		bundle := export.NewTrainingData(history, summary, learnings, time.Now())
		data, err := bundle.JSON()
		if err != nil {
			h.logger.Error("failed to encode training data", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	default:
		http.Error(w, "Unknown format: use markdown, summary or json", http.StatusBadRequest)
	}
}

// ResetChat starts a fresh chat session.
func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	h.chat = &chatSession{ID: uuid.NewString()}
	id := h.chat.ID
	h.mu.Unlock()

	if _, err := h.db.CreateDiscussion(id, "Chat session", "chat"); err != nil {
		h.logger.Error("failed to create chat discussion", zap.Error(err))
	}

	writeJSON(w, h.logger, map[string]string{"session_id": id})
}

func parseModelKeys(raw string) []models.ModelKey {
	parts := strings.Split(raw, ",")
	keys := make([]models.ModelKey, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, models.ModelKey(p))
		}
	}
	return keys
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
