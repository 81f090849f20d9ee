// Package agent implements the bounded tool-calling loops that drive a
// conversation against an LLM provider. The two loops (OpenAI chat
// completions, Gemini content/candidate) are deliberately parallel in
// structure but keep all wire shaping private to themselves; only the
// pure helpers (token estimation, tool execution, normalization) are
// shared.
package agent

import (
	"context"
	"strings"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// DefaultMaxIterations bounds the tool-calling loop.
const DefaultMaxIterations = 5

// State tracks where a loop run is in its lifecycle.
type State string

const (
	StateAwaitingModel  State = "awaiting_model"
	StateExecutingTools State = "executing_tools"
	StateDone           State = "done"
	StateExhausted      State = "exhausted"
	StateFailed         State = "failed"
)

// User-facing replies for terminal conditions that produce no model
// answer. Fallbacks for provider failures come from the chatbot
// configuration; these are the engine's own defaults.
const (
	DefaultFallbackError = "Lo siento, estoy teniendo problemas técnicos. Por favor intenta de nuevo más tarde."
	DefaultFallbackLimit = "Lo siento, he alcanzado mi límite de uso. El administrador ha sido notificado."

	exhaustedReplyOpenAI = "I need more time to think about this. Could you please rephrase your question?"
	exhaustedReplyGemini = "Necesito más información para responder. ¿Podrías reformular tu pregunta?"
	unexpectedFinishText = "I encountered an issue processing your request."
)

// Request is the provider-neutral input to a loop run.
type Request struct {
	Model         string
	SystemPrompt  string
	History       []models.ChatMessage
	UserMessage   string
	Tools         []models.CanonicalTool
	TenantID      string
	Temperature   float64
	MaxIterations int

	// Chatbot-configured fallback replies selected when the provider
	// call fails. Empty values fall back to the engine defaults.
	FallbackError string
	FallbackLimit string
}

func (r *Request) maxIterations() int {
	if r.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return r.MaxIterations
}

func (r *Request) fallbackError() string {
	if r.FallbackError != "" {
		return r.FallbackError
	}
	return DefaultFallbackError
}

func (r *Request) fallbackLimit() string {
	if r.FallbackLimit != "" {
		return r.FallbackLimit
	}
	return DefaultFallbackLimit
}

// fallbackFor selects the configured reply matching an error's quota
// classification.
func (r *Request) fallbackFor(errMsg string) string {
	if IsLimitError(errMsg) {
		return r.fallbackLimit()
	}
	return r.fallbackError()
}

// Result is the uniform outcome of a loop run, shared by both
// providers so the orchestrator never branches on wire format.
type Result struct {
	ReplyText      string
	ToolExecutions []models.ToolExecution
	Usage          models.UsageInfo
	State          State
}

// Loop is the shared contract both provider state machines implement.
type Loop interface {
	Run(ctx context.Context, req *Request) *Result
}

// limitKeywords classify a provider error as quota/rate-limit related.
var limitKeywords = []string{"quota", "limit", "rate", "exhausted", "429"}

// IsLimitError reports whether a provider error message looks like a
// quota or rate-limit failure. Matching is case-insensitive substring
// search anywhere in the message.
func IsLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range limitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// executionStatus derives the trace status from an executor result.
func executionStatus(result map[string]interface{}) string {
	if _, failed := result["error"]; failed {
		return "failed"
	}
	return "success"
}
