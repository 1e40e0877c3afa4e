package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/P3dr7/SDR-IA/internal/agenda"
	"github.com/P3dr7/SDR-IA/internal/conversation"
	"github.com/P3dr7/SDR-IA/internal/crm"
	httpmiddleware "github.com/P3dr7/SDR-IA/internal/http/middleware"
	"github.com/P3dr7/SDR-IA/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	CRMHandler          *crm.Handler
	AgendaHandler       *agenda.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ConversationHandler != nil {
		r.Post("/chat", cfg.ConversationHandler.Chat)
		r.Delete("/chat/{conversation_id}", cfg.ConversationHandler.EndConversation)
		r.Get("/conversations", cfg.ConversationHandler.ListConversations)
	}

	if cfg.CRMHandler != nil {
		r.Route("/crm/fields", func(r chi.Router) {
			r.Get("/", cfg.CRMHandler.GetFields)
			r.Post("/invalidate", cfg.CRMHandler.InvalidateFields)
		})
	}

	if cfg.AgendaHandler != nil {
		r.Delete("/meetings/{meeting_id}", cfg.AgendaHandler.CancelMeeting)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
