// Package contracts defines the service interfaces of the reasoning engine.
//
// These interfaces form the seams between the engine's layers: handlers
// depend on ReasoningService, the orchestrator depends on the retriever
// and executor interfaces, and the retriever depends on the embedding
// and vector store drivers. Swapping an implementation (pgvector for the
// embedded store, Ollama for OpenAI embeddings) is a single line change
// in the wiring code (main.go).
package contracts

import (
	"context"

	"github.com/JDRQlabs/LLM-Chatbot/internal/store"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// Store is a type alias for the internal Store interface, exposed so
// callers outside internal/ can reference it in their own wiring.
type Store = store.Store

// ErrNotFound is a type alias for the internal ErrNotFound error.
type ErrNotFound = store.ErrNotFound

// ── Reasoning Service ───────────────────────────────────────

// ReasoningService runs one turn of agentic reasoning for a chatbot.
type ReasoningService interface {
	// Run executes the full pipeline: gate check, knowledge retrieval,
	// prompt assembly, provider dispatch, and the tool-calling loop.
	// Errors are folded into the ReasoningResult envelope rather than
	// returned; Run never fails with a Go error for provider, tool, or
	// retrieval problems.
	Run(ctx context.Context, convo *models.ConversationContext) *models.ReasoningResult
}

// ── Knowledge Retrieval ─────────────────────────────────────

// EmbeddingDriver converts text into vectors.
type EmbeddingDriver interface {
	// Kind returns the driver identifier (e.g. "openai", "ollama").
	Kind() string

	// Dimensions returns the vector dimensionality for the configured model.
	Dimensions() int

	// Embed converts a batch of texts into vectors, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// HealthCheck verifies the backing service is reachable.
	HealthCheck(ctx context.Context) error
}

// VectorStoreDriver stores and searches embedded knowledge chunks,
// partitioned by chatbot.
type VectorStoreDriver interface {
	// Kind returns the backend identifier (e.g. "embedded", "pgvector").
	Kind() string

	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs []models.VectorDoc) error

	// Search returns the topK most similar documents for a chatbot,
	// ordered by descending similarity score.
	Search(ctx context.Context, chatbotID string, vector []float64, topK int) ([]models.SearchResult, error)

	// Delete removes documents by ID.
	Delete(ctx context.Context, chatbotID string, ids []string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// KnowledgeRetriever performs semantic search over a chatbot's knowledge
// base. Retrieval is fail-soft: errors are logged and an empty slice is
// returned, never an error, so a degraded knowledge base cannot take
// down a conversation.
type KnowledgeRetriever interface {
	// Retrieve returns up to topK chunks scoring at or above minScore.
	// Zero topK and zero minScore fall back to the retriever's defaults.
	Retrieve(ctx context.Context, chatbotID, query string, topK int, minScore float64) []models.RetrievedChunk
}

// ── Tool Execution ──────────────────────────────────────────

// ToolExecutor dispatches a single tool call and always returns a
// result map. Failures are encoded as {"error": ...} payloads handed
// back to the model, never as Go errors.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, args map[string]interface{}, canonicalTools []models.CanonicalTool, tenantID string) map[string]interface{}
}

// ScriptRunner executes registered internal scripts by reference.
type ScriptRunner interface {
	// Run invokes the script registered under ref with the given
	// arguments. Returns an error when no script is registered or the
	// script itself fails.
	Run(ctx context.Context, ref string, args map[string]interface{}) (interface{}, error)
}

// ── Notifications ───────────────────────────────────────────

// AlertNotifier delivers failure alerts to tenant admins.
type AlertNotifier interface {
	NotifyFailure(ctx context.Context, alert *models.FailureAlert) error
}
