package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/P3dr7/SDR-IA/internal/agenda"
	"github.com/P3dr7/SDR-IA/internal/api/router"
	appconfig "github.com/P3dr7/SDR-IA/internal/config"
	"github.com/P3dr7/SDR-IA/internal/conversation"
	"github.com/P3dr7/SDR-IA/internal/crm"
	"github.com/P3dr7/SDR-IA/internal/observability/metrics"
	"github.com/P3dr7/SDR-IA/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting SDR-IA API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	conversationMetrics := metrics.NewConversationMetrics(nil)
	schedulingMetrics := metrics.NewSchedulingMetrics(nil)

	// CRM: missing credentials means simulated mode, not a startup failure.
	crmLogger := logger.Component("crm")
	crmClient := crm.NewClient(cfg.PipefyAPIToken, cfg.PipefyPipeID, crmLogger)
	resolver := crm.NewResolver(crmClient, crmLogger)
	crmAdapter := crm.NewAdapter(crmClient, resolver, crmLogger)
	if !crmClient.Configured() {
		logger.Warn("pipefy credentials not configured, CRM operations are simulated")
	}

	loc, err := time.LoadLocation(cfg.MeetingTimezone)
	if err != nil {
		logger.Error("invalid meeting timezone", "timezone", cfg.MeetingTimezone, "error", err)
		os.Exit(1)
	}

	agendaLogger := logger.Component("agenda")
	provider, err := buildCalendarProvider(ctx, cfg, agendaLogger)
	if err != nil {
		logger.Error("failed to initialize calendar provider", "provider", cfg.CalendarProvider, "error", err)
		os.Exit(1)
	}
	if provider == nil {
		logger.Warn("no calendar provider configured, scheduling is simulated")
	}
	agendaService := agenda.NewService(provider, crmAdapter, loc, agendaLogger, schedulingMetrics)

	dialogues, err := conversation.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to initialize gemini client", "error", err)
		os.Exit(1)
	}
	defer dialogues.Close()

	conversationLogger := logger.Component("conversation")
	sessions := conversation.NewInMemorySessionStore(cfg.SessionIdleTTL, conversationLogger)
	defer sessions.Close()

	orchestrator := conversation.NewOrchestrator(conversation.OrchestratorOptions{
		Dialogues:     dialogues,
		Sessions:      sessions,
		Leads:         crmAdapter,
		Slots:         agendaService,
		Booker:        agendaService,
		Logger:        conversationLogger,
		Metrics:       conversationMetrics,
		MaxIterations: cfg.MaxToolIterations,
		Budget:        cfg.OrchestrationBudget,
	})

	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orchestrator, conversationLogger),
		CRMHandler:          crm.NewHandler(resolver, crmLogger),
		AgendaHandler:       agenda.NewHandler(agendaService, agendaLogger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildCalendarProvider selects the calendar backend from static
// configuration. An empty provider name yields nil, which the agenda service
// treats as simulated mode.
func buildCalendarProvider(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (agenda.CalendarProvider, error) {
	switch cfg.CalendarProvider {
	case "":
		return nil, nil
	case "google":
		return agenda.NewGoogleCalendarProvider(ctx, agenda.GoogleCalendarConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RefreshToken: cfg.GoogleRefreshToken,
			CalendarID:   cfg.GoogleCalendarID,
			RedirectURL:  cfg.GoogleRedirectURL,
		}, cfg.MeetingTimezone, logger)
	case "calendly":
		return agenda.NewCalendlyProvider(agenda.CalendlyConfig{
			APIToken:     cfg.CalendlyAPIToken,
			EventTypeURI: cfg.CalendlyEventTypeURI,
			UserURI:      cfg.CalendlyUserURI,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.CalendarProvider)
	}
}
