package models

import (
	"encoding/json"
	"time"
)

// ── Chatbot ──────────────────────────────────────────────────

// AIProvider identifies which model family serves a chatbot.
type AIProvider string

const (
	ProviderOpenAI AIProvider = "openai"
	ProviderGoogle AIProvider = "google"
)

// RAGConfig controls knowledge base retrieval for a chatbot. The
// embedding model is a deployment-level setting (EMBEDDING_MODEL), not
// a per-chatbot one: search vectors must come from the same model that
// embedded the chatbot's documents at ingest time.
type RAGConfig struct {
	Enabled        bool    `json:"enabled"`
	TopK           int     `json:"top_k,omitempty"`           // default: 5
	ScoreThreshold float64 `json:"score_threshold,omitempty"` // min similarity, 0 = retriever default
}

// ChatbotProfile is the per-tenant chatbot configuration the reasoning
// engine runs against. Each chatbot carries its own provider credentials
// so tenants bring their own keys.
type ChatbotProfile struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	Name         string     `json:"name" db:"name"`
	SystemPrompt string     `json:"system_prompt" db:"system_prompt"`
	Persona      string     `json:"persona,omitempty" db:"persona"`
	AIModel      string     `json:"ai_model" db:"ai_model"` // e.g. "gpt-4o-mini", "gemini-2.0-flash"
	Provider     AIProvider `json:"provider,omitempty" db:"provider"`
	Temperature  float64    `json:"temperature" db:"temperature"`

	// RAG controls knowledge base retrieval. Nil means disabled.
	RAG *RAGConfig `json:"rag,omitempty"`

	// Fallback replies sent to end users when the model fails.
	FallbackErrorMessage string `json:"fallback_error_message,omitempty" db:"fallback_error_message"`
	FallbackLimitMessage string `json:"fallback_limit_message,omitempty" db:"fallback_limit_message"`

	// Admin contact for failure notifications.
	AdminEmail string `json:"admin_email,omitempty" db:"admin_email"`

	Credentials ProviderCredentials `json:"-"`

	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderCredentials holds the per-chatbot API keys used to call model
// providers. Excluded from API responses.
type ProviderCredentials struct {
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	GoogleAPIKey string `json:"google_api_key,omitempty"`
}

// EndUser is the person on the other end of the conversation.
type EndUser struct {
	ID          string            `json:"id"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

// ── Conversation ─────────────────────────────────────────────

// ChatMessage is one turn of stored conversation history. ToolCalls and
// ToolResults carry provider-shaped payloads opaque to the store.
type ChatMessage struct {
	Role        string          `json:"role"` // "user", "assistant", "system", "tool"
	Content     string          `json:"content"`
	ToolCalls   json.RawMessage `json:"tool_calls,omitempty"`
	ToolResults json.RawMessage `json:"tool_results,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// ConversationContext is the input envelope from the upstream gate.
// Fields below Chatbot/User/History/Tools are only valid when Proceed
// is true; consumers must check Proceed first and short-circuit.
type ConversationContext struct {
	Proceed     bool   `json:"proceed"`
	Reason      string `json:"reason,omitempty"` // set when Proceed is false
	NotifyAdmin bool   `json:"notify_admin,omitempty"`

	Chatbot     *ChatbotProfile `json:"chatbot"`
	User        *EndUser        `json:"user"`
	History     []ChatMessage   `json:"history"` // oldest first
	Tools       []ToolRecord    `json:"tools,omitempty"`
	UserMessage string          `json:"user_message"`
	SessionID   string          `json:"session_id,omitempty"`

	// UsageInfo is the upstream quota summary, passed through untouched.
	UsageInfo map[string]interface{} `json:"usage_info,omitempty"`
}

// ── Tools ────────────────────────────────────────────────────

// ToolProvider identifies how a configured tool is executed.
type ToolProvider string

const (
	ToolProviderRemoteHTTP     ToolProvider = "remote_http"
	ToolProviderInternalScript ToolProvider = "internal_script"
)

// ToolConfig is the provider-specific portion of a tool record.
type ToolConfig struct {
	Description     string                 `json:"description,omitempty"`
	LLMInstructions string                 `json:"llm_instructions,omitempty"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"` // JSON Schema
	ServerURL       string                 `json:"server_url,omitempty"` // remote_http
	ScriptRef       string                 `json:"script_ref,omitempty"` // internal_script
}

// ToolRecord is a tool as configured by a tenant for a chatbot.
type ToolRecord struct {
	ID          string            `json:"id" db:"id"`
	ChatbotID   string            `json:"chatbot_id" db:"chatbot_id"`
	Provider    ToolProvider      `json:"provider" db:"provider"`
	Name        string            `json:"name" db:"name"`
	Enabled     bool              `json:"enabled" db:"enabled"`
	Config      ToolConfig        `json:"config"`
	Credentials map[string]string `json:"credentials,omitempty"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// ExecutionKind classifies how the executor dispatches a tool call.
type ExecutionKind string

const (
	ExecKnowledgeSearch ExecutionKind = "knowledge_search"
	ExecRemoteHTTP      ExecutionKind = "remote_http"
	ExecInternalScript  ExecutionKind = "internal_script"
)

// ExecutionMetadata is the routing information carried alongside a
// canonical tool so the executor knows where to dispatch the call.
type ExecutionMetadata struct {
	Kind      ExecutionKind `json:"kind"`
	BaseURL   string        `json:"base_url,omitempty"`
	TenantID  string        `json:"tenant_id,omitempty"`
	ScriptRef string        `json:"script_ref,omitempty"`
}

// CanonicalTool is the provider-neutral tool definition handed to the
// agent loops. Parameters is a JSON Schema object.
type CanonicalTool struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	LLMInstructions string                 `json:"llm_instructions,omitempty"`
	Parameters      map[string]interface{} `json:"parameters"`
	Execution       ExecutionMetadata      `json:"execution"`
}

// ToolExecution records one executed tool call for tracing.
type ToolExecution struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Status    string                 `json:"status"` // "success" or "failed"
	Iteration int                    `json:"iteration"`
}

// ── Knowledge ────────────────────────────────────────────────

// VectorDoc is one embedded knowledge chunk stored in the vector index.
type VectorDoc struct {
	ID         string                 `json:"id"`
	ChatbotID  string                 `json:"chatbot_id"`
	SourceName string                 `json:"source_name"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Vector     []float64              `json:"vector"`
	CreatedAt  time.Time              `json:"created_at"`
}

// SearchResult is a single vector search hit.
type SearchResult struct {
	Doc   VectorDoc `json:"doc"`
	Score float64   `json:"score"`
}

// RetrievedChunk is a knowledge base hit after retrieval post-processing.
type RetrievedChunk struct {
	Content    string                 `json:"content"`
	SourceName string                 `json:"source_name"`
	Page       int                    `json:"page,omitempty"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievedSource is the trimmed view of a chunk surfaced in run results.
type RetrievedSource struct {
	SourceName string                 `json:"source_name"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ── Run Results ──────────────────────────────────────────────

// UsageInfo is the accounting record for a single reasoning run.
type UsageInfo struct {
	Provider             string `json:"provider"`
	Model                string `json:"model"`
	TokensInput          int64  `json:"tokens_input"`
	TokensOutput         int64  `json:"tokens_output"`
	RAGUsed              bool   `json:"rag_used"`
	ChunksRetrieved      int    `json:"chunks_retrieved"`
	ToolCalls            int    `json:"tool_calls"`
	Iterations           int    `json:"iterations"`
	Error                string `json:"error,omitempty"`
	IsLimitError         bool   `json:"is_limit_error,omitempty"`
	MaxIterationsReached bool   `json:"max_iterations_reached,omitempty"`
	FinishReason         string `json:"finish_reason,omitempty"`
}

// ReasoningResult is the full outcome of one engine run.
type ReasoningResult struct {
	ReplyText         string                 `json:"reply_text"`
	UpdatedVariables  map[string]interface{} `json:"updated_variables"`
	Usage             UsageInfo              `json:"usage"`
	ToolExecutions    []ToolExecution        `json:"tool_executions,omitempty"`
	RetrievedSources  []RetrievedSource      `json:"retrieved_sources,omitempty"`
	Error             string                 `json:"error,omitempty"`
	ShouldNotifyAdmin bool                   `json:"should_notify_admin,omitempty"`
}

// ── Failure Alerts ───────────────────────────────────────────

// AlertSeverity grades a failure for admin notification purposes.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// FailureAlert describes a run failure reported to the tenant admin.
type FailureAlert struct {
	ID         string        `json:"id"`
	ChatbotID  string        `json:"chatbot_id"`
	TenantID   string        `json:"tenant_id"`
	Severity   AlertSeverity `json:"severity"`
	Stage      string        `json:"stage"` // "model_call", "tool_execution", "retrieval"
	Message    string        `json:"message"`
	Provider   string        `json:"provider,omitempty"`
	Model      string        `json:"model,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
