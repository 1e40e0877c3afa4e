package crm

import (
	"encoding/json"
	"net/http"

	"github.com/P3dr7/SDR-IA/pkg/logging"
)

// Handler exposes debug/admin endpoints for the schema resolver.
type Handler struct {
	resolver *Resolver
	logger   *logging.Logger
}

// NewHandler creates a CRM debug handler.
func NewHandler(resolver *Resolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// GetFields handles GET /crm/fields and returns the resolved field mapping.
func (h *Handler) GetFields(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.resolver.ResolveFieldMapping(r.Context())
	if err != nil {
		h.logger.Error("failed to resolve field mapping", "error", err)
		http.Error(w, "failed to resolve field mapping", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if mapping == nil {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"configured": false,
			"message":    "no CRM credentials configured; operating in simulated mode",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"configured": true,
		"mapping":    mapping,
	})
}

// InvalidateFields handles POST /crm/fields/invalidate and clears the cache.
func (h *Handler) InvalidateFields(w http.ResponseWriter, r *http.Request) {
	h.resolver.Invalidate()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "field mapping cache cleared"})
}
