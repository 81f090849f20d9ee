package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JDRQlabs/LLM-Chatbot/internal/api/handlers"
	"github.com/JDRQlabs/LLM-Chatbot/internal/api/middleware"
	"github.com/JDRQlabs/LLM-Chatbot/internal/config"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	// The tenant rides on every access log line, so extraction runs first.
	r.Use(middleware.TenantExtractor)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(middleware.NewAPIKeyAuth().Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Reasoning runs
		r.Route("/reasoning", func(r chi.Router) {
			r.Post("/runs", h.Run)
		})

		// Conversation history
		r.Get("/sessions/{sessionID}/history", h.History)

		// Chatbots and their tools / knowledge bases
		r.Route("/chatbots", func(r chi.Router) {
			r.Get("/", h.ListChatbots)
			r.Post("/", h.CreateChatbot)
			r.Route("/{chatbotID}", func(r chi.Router) {
				r.Get("/", h.GetChatbot)
				r.Put("/", h.UpdateChatbot)
				r.Delete("/", h.DeleteChatbot)

				r.Route("/tools", func(r chi.Router) {
					r.Get("/", h.ListTools)
					r.Post("/", h.CreateTool)
					r.Route("/{toolName}", func(r chi.Router) {
						r.Get("/", h.GetTool)
						r.Put("/", h.UpdateTool)
						r.Delete("/", h.DeleteTool)
					})
				})

				r.Route("/knowledge", func(r chi.Router) {
					r.Post("/", h.IngestKnowledge)
					r.Post("/search", h.SearchKnowledge)
					r.Delete("/", h.DeleteKnowledge)
				})
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "llm-chatbot-engine",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "llm-chatbot-engine",
		})
	}
}
