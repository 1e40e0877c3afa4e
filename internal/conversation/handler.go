package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler exposes the chat endpoints.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

// Chat handles POST /chat: one user message in, one assistant reply out.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	conversationID, reply, err := h.orchestrator.HandleMessage(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrConversationNotFound):
			http.Error(w, "conversation not found", http.StatusNotFound)
		case errors.Is(err, ErrEmptyMessage):
			http.Error(w, "message is required", http.StatusBadRequest)
		default:
			h.logger.Error("chat turn failed", "conversation_id", req.ConversationID, "error", err)
			http.Error(w, "failed to process message", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		ConversationID: conversationID,
		Message:        reply,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// EndConversation handles DELETE /chat/{conversation_id}.
func (h *Handler) EndConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")
	if err := h.orchestrator.EndConversation(conversationID); err != nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"conversation_id": conversationID,
		"ended":           true,
	})
}

// ListConversations handles GET /conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids := h.orchestrator.ActiveConversations()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"total":            len(ids),
		"conversation_ids": ids,
	})
}
