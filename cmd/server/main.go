package main

import (
	"net/http"

	"github.com/parrotlabs/thinktank/internal/api"
	"github.com/parrotlabs/thinktank/internal/config"
	"github.com/parrotlabs/thinktank/internal/db"
	"github.com/parrotlabs/thinktank/internal/debate"
	"github.com/parrotlabs/thinktank/internal/llm"
	"github.com/parrotlabs/thinktank/internal/models"
	"github.com/parrotlabs/thinktank/internal/rag"
	"github.com/parrotlabs/thinktank/internal/vectordb"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer database.Close()

	registry, err := llm.NewRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM providers", zap.Error(err))
	}

	// Retrieval is optional: without Pinecone or OpenAI credentials the
	// chat assistant answers from history alone.
	var index vectordb.Index
	if cfg.Pinecone.Enabled() {
		index, err = vectordb.NewPinecone(logger, cfg.Pinecone)
		if err != nil {
			logger.Warn("vector index disabled", zap.Error(err))
		}
	} else {
		logger.Warn("vector index disabled, no Pinecone credentials configured")
	}

	var embedder rag.Embedder
	if cfg.OpenAI.Enabled() {
		embeddingClient, err := openai.New(
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithEmbeddingModel("text-embedding-3-small"),
		)
		if err != nil {
			logger.Warn("embeddings disabled", zap.Error(err))
		} else {
			embedder, err = embeddings.NewEmbedder(embeddingClient)
			if err != nil {
				logger.Warn("embeddings disabled", zap.Error(err))
			}
		}
	}

	chatProvider, ok := registry.Get(models.ModelClaude)
	if !ok {
		for _, d := range registry.Descriptors() {
			if d.Available {
				chatProvider, _ = registry.Get(d.Key)
				break
			}
		}
	}

	assistant := rag.New(chatProvider, embedder, index, logger, rag.Config{})
	orchestrator := debate.NewOrchestrator(logger)

	handler := api.NewHandler(database, registry, orchestrator, assistant, logger)

	http.HandleFunc("/api/debate", handler.StartDebate)
	http.HandleFunc("/api/debate/export", handler.ExportDebate)
	http.HandleFunc("/api/models", handler.GetModels)
	http.HandleFunc("/api/discussions", handler.GetDiscussions)
	http.HandleFunc("/api/discussions/delete", handler.DeleteDiscussion)
	http.HandleFunc("/api/chat/message", handler.HandleChatMessage)
	http.HandleFunc("/api/chat/summary", handler.HandleChatSummary)
	http.HandleFunc("/api/chat/export", handler.ExportChat)
	http.HandleFunc("/api/chat/reset", handler.ResetChat)

	// Serve static files
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	logger.Info("Starting server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
