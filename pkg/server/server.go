// Package server provides the public entry point for initializing the
// chatbot reasoning engine server.
//
// This package exists in pkg/ (not internal/) so that embedding
// deployments can import it and compose the full server with their own
// middleware.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/api"
	"github.com/JDRQlabs/LLM-Chatbot/internal/api/handlers"
	"github.com/JDRQlabs/LLM-Chatbot/internal/config"
	"github.com/JDRQlabs/LLM-Chatbot/internal/embeddings"
	"github.com/JDRQlabs/LLM-Chatbot/internal/notify"
	"github.com/JDRQlabs/LLM-Chatbot/internal/reasoning"
	"github.com/JDRQlabs/LLM-Chatbot/internal/retrieval"
	"github.com/JDRQlabs/LLM-Chatbot/internal/scripts"
	"github.com/JDRQlabs/LLM-Chatbot/internal/store"
	"github.com/JDRQlabs/LLM-Chatbot/internal/telemetry"
	"github.com/JDRQlabs/LLM-Chatbot/internal/tools"
	"github.com/JDRQlabs/LLM-Chatbot/internal/vectorstore"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// Server holds the initialized reasoning engine.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the configuration and conversation store.
	Store store.Store

	// Scripts is the internal script registry. Deployments register
	// their script handlers here before serving.
	Scripts *scripts.Runner

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all engine components from environment configuration
// and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore := store.NewMemoryStore()
	log.Info().Msg("Store initialized")

	// Knowledge base drivers. Retrieval is optional: a missing embedding
	// key only disables RAG, it never blocks startup.
	var retrieverContract contracts.KnowledgeRetriever
	var ingestor *retrieval.Ingestor
	embedder, err := embeddings.FromConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Embeddings unavailable, knowledge base disabled")
	} else {
		vs, err := vectorstore.FromConfig(ctx, cfg, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("init vector store: %w", err)
		}
		retrieverContract = retrieval.New(embedder, vs, retrieval.WithScoreThreshold(cfg.Retrieval.ScoreThreshold))
		ingestor = retrieval.NewIngestor(embedder, vs)
		log.Info().
			Str("provider", cfg.Retrieval.EmbeddingsProvider).
			Str("driver", cfg.Retrieval.VectorStoreDriver).
			Msg("Knowledge base initialized")
	}

	scriptRunner := scripts.NewRunner()
	executor := tools.NewExecutor(retrieverContract, scriptRunner, tools.WithTopK(cfg.Retrieval.TopK))

	var notifier contracts.AlertNotifier = notify.LogNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL,
			notify.WithSecret(cfg.Notify.WebhookSecret),
			notify.WithMaxRetries(cfg.Notify.MaxRetries),
		)
	}

	engine := reasoning.NewEngine(executor,
		reasoning.WithRetriever(retrieverContract),
		reasoning.WithNotifier(notifier),
		reasoning.WithDefaultProvider(models.AIProvider(cfg.Providers.Default)),
		reasoning.WithPlatformKeys(cfg.Providers.OpenAIAPIKey, cfg.Providers.GoogleAPIKey),
	)
	log.Info().Str("default_provider", cfg.Providers.Default).Msg("Reasoning engine initialized")

	h := handlers.New(dataStore, engine, ingestor, retrieverContract)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Scripts:      scriptRunner,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
