// Package handlers implements the HTTP handlers for the chatbot
// reasoning engine: chatbot and tool configuration CRUD, reasoning
// runs, conversation history, and knowledge base management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/api/middleware"
	"github.com/JDRQlabs/LLM-Chatbot/internal/retrieval"
	"github.com/JDRQlabs/LLM-Chatbot/internal/store"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// defaultHistoryLimit caps how many stored messages ride into a run
// when the caller does not supply history inline.
const defaultHistoryLimit = 20

// Handlers holds all handler dependencies.
type Handlers struct {
	Store     store.Store
	Reasoning contracts.ReasoningService
	Ingestor  *retrieval.Ingestor
	Retriever contracts.KnowledgeRetriever
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, reasoning contracts.ReasoningService, ingestor *retrieval.Ingestor, retriever contracts.KnowledgeRetriever) *Handlers {
	return &Handlers{
		Store:     s,
		Reasoning: reasoning,
		Ingestor:  ingestor,
		Retriever: retriever,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Reasoning Runs ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// RunRequest is the POST /api/v1/reasoning/runs body. The conversation
// context may carry the full chatbot profile inline, or just a
// chatbot_id to resolve against the store.
type RunRequest struct {
	ChatbotID string `json:"chatbot_id,omitempty"`
	models.ConversationContext
}

// Run handles POST /api/v1/reasoning/runs.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	convo := req.ConversationContext
	ctx := r.Context()

	// Resolve the chatbot from the store when not supplied inline.
	if convo.Chatbot == nil && req.ChatbotID != "" {
		chatbot, err := h.Store.GetChatbot(ctx, req.ChatbotID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		convo.Chatbot = chatbot
	}
	if convo.Chatbot == nil {
		respondError(w, http.StatusBadRequest, "chatbot or chatbot_id is required")
		return
	}
	if !convo.Chatbot.Active {
		respondError(w, http.StatusConflict, "chatbot is inactive")
		return
	}

	// Same for tool records and stored history.
	if convo.Tools == nil {
		tools, err := h.Store.ListTools(ctx, convo.Chatbot.ID)
		if err != nil {
			log.Warn().Err(err).Str("chatbot_id", convo.Chatbot.ID).Msg("Tool listing failed, running without tools")
		} else {
			convo.Tools = tools
		}
	}
	if convo.History == nil && convo.SessionID != "" {
		history, err := h.Store.History(ctx, convo.SessionID, defaultHistoryLimit)
		if err != nil {
			log.Warn().Err(err).Str("session_id", convo.SessionID).Msg("History load failed, running without history")
		} else {
			convo.History = history
		}
	}

	result := h.Reasoning.Run(ctx, &convo)

	// Persist the exchange so the next run sees it as history.
	if convo.SessionID != "" && convo.Proceed {
		msgs := []models.ChatMessage{
			{Role: "user", Content: convo.UserMessage},
			{Role: "assistant", Content: result.ReplyText},
		}
		if err := h.Store.AppendMessages(ctx, convo.SessionID, msgs); err != nil {
			log.Warn().Err(err).Str("session_id", convo.SessionID).Msg("History append failed")
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// History handles GET /api/v1/sessions/{sessionID}/history.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	msgs, err := h.Store.History(r.Context(), sessionID, 0)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

// ══════════════════════════════════════════════════════════════
// ── Chatbot Handlers ─────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// chatbotRequest is the create/update body. Credentials are accepted
// write-only here: ChatbotProfile excludes them from JSON so responses
// and GETs never echo a tenant's API keys back out.
type chatbotRequest struct {
	models.ChatbotProfile
	Credentials *models.ProviderCredentials `json:"credentials"`
}

// profile folds the write-only credentials into the decoded profile.
func (req *chatbotRequest) profile() models.ChatbotProfile {
	p := req.ChatbotProfile
	if req.Credentials != nil {
		p.Credentials = *req.Credentials
	}
	return p
}

func (h *Handlers) ListChatbots(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	chatbots, err := h.Store.ListChatbots(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chatbots == nil {
		chatbots = []models.ChatbotProfile{}
	}
	respondJSON(w, http.StatusOK, chatbots)
}

func (h *Handlers) CreateChatbot(w http.ResponseWriter, r *http.Request) {
	var req chatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	chatbot := req.profile()
	chatbot.ID = uuid.New().String()
	chatbot.TenantID = middleware.GetTenantID(r.Context())
	chatbot.Active = true
	if chatbot.AIModel == "" {
		chatbot.AIModel = "gpt-4o-mini"
	}

	if err := h.Store.CreateChatbot(r.Context(), &chatbot); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("chatbot", chatbot.Name).Str("id", chatbot.ID).Str("tenant", chatbot.TenantID).Msg("Chatbot created")
	respondJSON(w, http.StatusCreated, chatbot)
}

func (h *Handlers) GetChatbot(w http.ResponseWriter, r *http.Request) {
	chatbot, err := h.Store.GetChatbot(r.Context(), chi.URLParam(r, "chatbotID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatbot)
}

func (h *Handlers) UpdateChatbot(w http.ResponseWriter, r *http.Request) {
	var req chatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	chatbot := req.profile()
	chatbot.ID = chi.URLParam(r, "chatbotID")
	chatbot.TenantID = middleware.GetTenantID(r.Context())

	if err := h.Store.UpdateChatbot(r.Context(), &chatbot); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatbot)
}

func (h *Handlers) DeleteChatbot(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteChatbot(r.Context(), chi.URLParam(r, "chatbotID")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════
// ── Tool Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.Store.ListTools(r.Context(), chi.URLParam(r, "chatbotID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tools == nil {
		tools = []models.ToolRecord{}
	}
	respondJSON(w, http.StatusOK, tools)
}

func (h *Handlers) CreateTool(w http.ResponseWriter, r *http.Request) {
	var req models.ToolRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	switch req.Provider {
	case models.ToolProviderRemoteHTTP, models.ToolProviderInternalScript:
	default:
		respondError(w, http.StatusBadRequest, "provider must be remote_http or internal_script")
		return
	}

	req.ID = uuid.New().String()
	req.ChatbotID = chi.URLParam(r, "chatbotID")

	if err := h.Store.CreateTool(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("tool", req.Name).Str("chatbot_id", req.ChatbotID).Str("provider", string(req.Provider)).Msg("Tool registered")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := h.Store.GetTool(r.Context(), chi.URLParam(r, "chatbotID"), chi.URLParam(r, "toolName"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tool)
}

func (h *Handlers) UpdateTool(w http.ResponseWriter, r *http.Request) {
	var req models.ToolRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ChatbotID = chi.URLParam(r, "chatbotID")
	req.Name = chi.URLParam(r, "toolName")

	if err := h.Store.UpdateTool(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) DeleteTool(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTool(r.Context(), chi.URLParam(r, "chatbotID"), chi.URLParam(r, "toolName")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════
// ── Helpers ──────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondStoreError(w http.ResponseWriter, err error) {
	var nf *store.ErrNotFound
	if errors.As(err, &nf) {
		respondError(w, http.StatusNotFound, nf.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
