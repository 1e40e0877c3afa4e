package agenda

import (
	"encoding/json"
	"net/http"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler exposes meeting management endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an agenda handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CancelMeeting handles DELETE /meetings/{meeting_id}. Cancellation is
// best-effort: an upstream failure is reported, not masked.
func (h *Handler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meeting_id")
	if meetingID == "" {
		http.Error(w, "missing meeting_id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := h.service.CancelMeeting(r.Context(), meetingID); err != nil {
		h.logger.Error("failed to cancel meeting", "meeting_id", meetingID, "error", err)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"cancelled":  false,
			"meeting_id": meetingID,
			"error":      "calendar provider rejected the cancellation",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"cancelled":  true,
		"meeting_id": meetingID,
	})
}
