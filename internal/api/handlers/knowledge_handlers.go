package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/retrieval"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Knowledge Base ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// knowledgeIngestRequest is the POST .../knowledge body.
type knowledgeIngestRequest struct {
	Documents []retrieval.IngestItem `json:"documents"`
}

// knowledgeSearchRequest is the POST .../knowledge/search body.
type knowledgeSearchRequest struct {
	Query    string  `json:"query"`
	TopK     int     `json:"top_k,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
}

// knowledgeDeleteRequest is the DELETE .../knowledge body.
type knowledgeDeleteRequest struct {
	IDs []string `json:"ids"`
}

// IngestKnowledge handles POST /api/v1/chatbots/{chatbotID}/knowledge.
func (h *Handlers) IngestKnowledge(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")

	var req knowledgeIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		respondError(w, http.StatusBadRequest, "documents array is required")
		return
	}
	if h.Ingestor == nil {
		respondError(w, http.StatusServiceUnavailable, "knowledge base not configured")
		return
	}

	result, err := h.Ingestor.Ingest(r.Context(), chatbotID, req.Documents)
	if err != nil {
		log.Error().Err(err).Str("chatbot_id", chatbotID).Msg("Knowledge ingest failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SearchKnowledge handles POST /api/v1/chatbots/{chatbotID}/knowledge/search.
func (h *Handlers) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")

	var req knowledgeSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if h.Retriever == nil {
		respondError(w, http.StatusServiceUnavailable, "knowledge base not configured")
		return
	}

	chunks := h.Retriever.Retrieve(r.Context(), chatbotID, req.Query, req.TopK, req.MinScore)
	if chunks == nil {
		chunks = []models.RetrievedChunk{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": chunks,
		"count":   len(chunks),
	})
}

// DeleteKnowledge handles DELETE /api/v1/chatbots/{chatbotID}/knowledge.
func (h *Handlers) DeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")

	var req knowledgeDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids array is required")
		return
	}
	if h.Ingestor == nil {
		respondError(w, http.StatusServiceUnavailable, "knowledge base not configured")
		return
	}

	if err := h.Ingestor.Delete(r.Context(), chatbotID, req.IDs); err != nil {
		log.Error().Err(err).Str("chatbot_id", chatbotID).Msg("Knowledge delete failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
