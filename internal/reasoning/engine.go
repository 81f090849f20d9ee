// Package reasoning is the orchestrator that turns a gated conversation
// context into a final reply. It resolves the provider, retrieves
// knowledge, normalizes tools, drives the provider loop, and packages
// the result envelope.
package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/agent"
	"github.com/JDRQlabs/LLM-Chatbot/internal/tools"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// gateReply is sent to the end user when the upstream gate blocked the
// message. No model call happens on this path.
const gateReply = "Sorry, I'm unable to process your message at this time. Please try again later."

// LoopFactory builds a provider loop bound to an API key. Exposed so
// tests can substitute canned loops without touching provider SDKs.
type LoopFactory func(ctx context.Context, apiKey string) (agent.Loop, error)

// Engine implements contracts.ReasoningService.
type Engine struct {
	retriever contracts.KnowledgeRetriever
	executor  contracts.ToolExecutor
	notifier  contracts.AlertNotifier

	defaultProvider models.AIProvider
	openAIKey       string
	googleKey       string

	openAIFactory LoopFactory
	geminiFactory LoopFactory
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRetriever wires knowledge base retrieval. Without it, RAG-enabled
// chatbots run with no knowledge context.
func WithRetriever(r contracts.KnowledgeRetriever) Option {
	return func(e *Engine) { e.retriever = r }
}

// WithNotifier wires failure alerting to the tenant admin.
func WithNotifier(n contracts.AlertNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithDefaultProvider sets the provider used when neither the model
// name nor the chatbot profile pins one.
func WithDefaultProvider(p models.AIProvider) Option {
	return func(e *Engine) { e.defaultProvider = p }
}

// WithPlatformKeys sets platform-level API keys used when a chatbot
// carries no credentials of its own.
func WithPlatformKeys(openAIKey, googleKey string) Option {
	return func(e *Engine) {
		e.openAIKey = openAIKey
		e.googleKey = googleKey
	}
}

// WithLoopFactories overrides provider loop construction.
func WithLoopFactories(openAI, gemini LoopFactory) Option {
	return func(e *Engine) {
		if openAI != nil {
			e.openAIFactory = openAI
		}
		if gemini != nil {
			e.geminiFactory = gemini
		}
	}
}

// NewEngine builds the orchestrator. The executor is required; every
// other collaborator is optional and degrades gracefully when absent.
func NewEngine(executor contracts.ToolExecutor, opts ...Option) *Engine {
	e := &Engine{
		executor:        executor,
		defaultProvider: models.ProviderOpenAI,
	}
	e.openAIFactory = func(ctx context.Context, apiKey string) (agent.Loop, error) {
		return agent.NewOpenAILoop(apiKey, e.executor), nil
	}
	e.geminiFactory = func(ctx context.Context, apiKey string) (agent.Loop, error) {
		return agent.NewGeminiLoop(ctx, apiKey, e.executor)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ contracts.ReasoningService = (*Engine)(nil)

// Run executes one full reasoning pass over a conversation context.
// It never returns an error: every failure mode is folded into the
// result envelope with a user-facing fallback reply.
func (e *Engine) Run(ctx context.Context, convo *models.ConversationContext) *models.ReasoningResult {
	started := time.Now()

	if convo == nil || !convo.Proceed {
		return gatedResult(convo)
	}
	if convo.Chatbot == nil {
		return failedResult("", "", "missing chatbot configuration", agent.DefaultFallbackError)
	}

	chatbot := convo.Chatbot
	provider := e.resolveProvider(chatbot)

	logger := log.With().
		Str("chatbot_id", chatbot.ID).
		Str("provider", string(provider)).
		Str("model", chatbot.AIModel).
		Logger()

	apiKey, errMsg := e.credentialFor(provider, chatbot)
	if errMsg != "" {
		logger.Error().Str("error", errMsg).Msg("reasoning run rejected")
		// Configuration errors carry no reply text. The caller decides
		// what, if anything, reaches the end user.
		res := failedResult(string(provider), chatbot.AIModel, errMsg, "")
		e.notifyFailure(ctx, chatbot, provider, "credentials", errMsg)
		return res
	}

	ragUsed := false
	var chunks []models.RetrievedChunk
	if chatbot.RAG != nil && chatbot.RAG.Enabled && e.retriever != nil {
		ragUsed = true
		chunks = e.retriever.Retrieve(ctx, chatbot.ID, convo.UserMessage, chatbot.RAG.TopK, chatbot.RAG.ScoreThreshold)
		logger.Debug().Int("chunks", len(chunks)).Msg("knowledge retrieval done")
	}

	canonical := tools.Normalize(convo.Tools, chatbot.ID, ragUsed)
	systemPrompt := buildSystemPrompt(chatbot, convo.User, chunks, canonical)

	loop, err := e.loopFor(ctx, provider, apiKey)
	if err != nil {
		logger.Error().Err(err).Msg("provider loop construction failed")
		res := failedResult(string(provider), chatbot.AIModel, err.Error(), fallbackErrorFor(chatbot))
		res.Usage.RAGUsed = ragUsed
		res.Usage.ChunksRetrieved = len(chunks)
		e.notifyFailure(ctx, chatbot, provider, "model_call", err.Error())
		return res
	}

	req := &agent.Request{
		Model:         chatbot.AIModel,
		SystemPrompt:  systemPrompt,
		History:       convo.History,
		UserMessage:   convo.UserMessage,
		Tools:         canonical,
		TenantID:      chatbot.ID,
		Temperature:   chatbot.Temperature,
		FallbackError: chatbot.FallbackErrorMessage,
		FallbackLimit: chatbot.FallbackLimitMessage,
	}
	out := loop.Run(ctx, req)

	result := &models.ReasoningResult{
		ReplyText:        out.ReplyText,
		UpdatedVariables: map[string]interface{}{},
		Usage:            out.Usage,
		ToolExecutions:   out.ToolExecutions,
		RetrievedSources: retrievedSources(chunks),
	}
	result.Usage.Provider = string(provider)
	result.Usage.Model = chatbot.AIModel
	result.Usage.RAGUsed = ragUsed
	result.Usage.ChunksRetrieved = len(chunks)

	if out.Usage.Error != "" {
		result.Error = out.Usage.Error
		result.ShouldNotifyAdmin = true
		e.notifyFailure(ctx, chatbot, provider, "model_call", out.Usage.Error)
	}

	logger.Info().
		Str("state", string(out.State)).
		Int("iterations", result.Usage.Iterations).
		Int("tool_calls", result.Usage.ToolCalls).
		Int64("tokens_input", result.Usage.TokensInput).
		Int64("tokens_output", result.Usage.TokensOutput).
		Dur("elapsed", time.Since(started)).
		Msg("reasoning run finished")
	return result
}

// resolveProvider picks the provider by model name first, then the
// chatbot profile, then the platform default.
func (e *Engine) resolveProvider(chatbot *models.ChatbotProfile) models.AIProvider {
	model := strings.ToLower(chatbot.AIModel)
	switch {
	case strings.Contains(model, "gemini"):
		return models.ProviderGoogle
	case strings.Contains(model, "gpt"):
		return models.ProviderOpenAI
	}
	if chatbot.Provider != "" {
		return chatbot.Provider
	}
	return e.defaultProvider
}

// credentialFor selects the API key for a provider, preferring the
// chatbot's own credentials over platform keys. Returns the error
// message for the envelope when no key exists.
func (e *Engine) credentialFor(provider models.AIProvider, chatbot *models.ChatbotProfile) (string, string) {
	switch provider {
	case models.ProviderOpenAI:
		if key := chatbot.Credentials.OpenAIAPIKey; key != "" {
			return key, ""
		}
		if e.openAIKey != "" {
			return e.openAIKey, ""
		}
		return "", "Missing OpenAI API Key"
	case models.ProviderGoogle:
		if key := chatbot.Credentials.GoogleAPIKey; key != "" {
			return key, ""
		}
		if e.googleKey != "" {
			return e.googleKey, ""
		}
		return "", "Missing Google API Key"
	default:
		return "", fmt.Sprintf("Unknown provider: %s", provider)
	}
}

func (e *Engine) loopFor(ctx context.Context, provider models.AIProvider, apiKey string) (agent.Loop, error) {
	switch provider {
	case models.ProviderOpenAI:
		return e.openAIFactory(ctx, apiKey)
	case models.ProviderGoogle:
		return e.geminiFactory(ctx, apiKey)
	default:
		return nil, fmt.Errorf("Unknown provider: %s", provider)
	}
}

func (e *Engine) notifyFailure(ctx context.Context, chatbot *models.ChatbotProfile, provider models.AIProvider, stage, message string) {
	if e.notifier == nil {
		return
	}
	severity := models.SeverityWarning
	if agent.IsLimitError(message) {
		severity = models.SeverityCritical
	}
	alert := &models.FailureAlert{
		ID:         uuid.NewString(),
		ChatbotID:  chatbot.ID,
		TenantID:   chatbot.TenantID,
		Severity:   severity,
		Stage:      stage,
		Message:    message,
		Provider:   string(provider),
		Model:      chatbot.AIModel,
		OccurredAt: time.Now().UTC(),
	}
	if err := e.notifier.NotifyFailure(ctx, alert); err != nil {
		log.Warn().Err(err).Str("chatbot_id", chatbot.ID).Msg("failure alert delivery failed")
	}
}

// gatedResult is the short-circuit envelope for a blocked message.
func gatedResult(convo *models.ConversationContext) *models.ReasoningResult {
	reason := "unknown"
	notify := false
	if convo != nil {
		if convo.Reason != "" {
			reason = convo.Reason
		}
		notify = convo.NotifyAdmin
	}
	return &models.ReasoningResult{
		ReplyText:         gateReply,
		UpdatedVariables:  map[string]interface{}{},
		Error:             reason,
		ShouldNotifyAdmin: notify,
	}
}

func failedResult(provider, model, errMsg, reply string) *models.ReasoningResult {
	return &models.ReasoningResult{
		ReplyText:        reply,
		UpdatedVariables: map[string]interface{}{},
		Usage: models.UsageInfo{
			Provider:     provider,
			Model:        model,
			Error:        errMsg,
			IsLimitError: agent.IsLimitError(errMsg),
		},
		Error:             errMsg,
		ShouldNotifyAdmin: true,
	}
}

func fallbackErrorFor(chatbot *models.ChatbotProfile) string {
	if chatbot.FallbackErrorMessage != "" {
		return chatbot.FallbackErrorMessage
	}
	return agent.DefaultFallbackError
}

func retrievedSources(chunks []models.RetrievedChunk) []models.RetrievedSource {
	if len(chunks) == 0 {
		return nil
	}
	sources := make([]models.RetrievedSource, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, models.RetrievedSource{
			SourceName: c.SourceName,
			Similarity: c.Score,
			Metadata:   c.Metadata,
		})
	}
	return sources
}
