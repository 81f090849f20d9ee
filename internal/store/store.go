// Package store provides the storage interface and implementations for
// chatbot configuration, tools, and conversation history.
package store

import (
	"context"
	"time"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// Store is the primary storage interface. All handler code depends on
// this interface, making it easy to swap between in-memory (tests) and
// database-backed implementations.
type Store interface {
	ChatbotStore
	ToolStore
	ConversationStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Chatbot Store ───────────────────────────────────────────

type ChatbotStore interface {
	ListChatbots(ctx context.Context, tenantID string) ([]models.ChatbotProfile, error)
	GetChatbot(ctx context.Context, id string) (*models.ChatbotProfile, error)
	CreateChatbot(ctx context.Context, chatbot *models.ChatbotProfile) error
	UpdateChatbot(ctx context.Context, chatbot *models.ChatbotProfile) error
	DeleteChatbot(ctx context.Context, id string) error
}

// ── Tool Store ──────────────────────────────────────────────

type ToolStore interface {
	// ListTools returns all tool records for a chatbot, enabled or not.
	ListTools(ctx context.Context, chatbotID string) ([]models.ToolRecord, error)
	GetTool(ctx context.Context, chatbotID, name string) (*models.ToolRecord, error)
	CreateTool(ctx context.Context, tool *models.ToolRecord) error
	UpdateTool(ctx context.Context, tool *models.ToolRecord) error
	DeleteTool(ctx context.Context, chatbotID, name string) error
}

// ── Conversation Store ──────────────────────────────────────

type ConversationStore interface {
	// History returns the most recent messages for a session, oldest first.
	History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)

	// AppendMessages adds messages to a session's history.
	AppendMessages(ctx context.Context, sessionID string, msgs []models.ChatMessage) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// ── Filter helpers ──────────────────────────────────────────

// ListFilter provides common pagination/filter options.
type ListFilter struct {
	Limit  int
	Offset int
	Since  *time.Time
}
