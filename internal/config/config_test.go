package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModelID)
	assert.Equal(t, "America/Sao_Paulo", cfg.MeetingTimezone)
	assert.Equal(t, 10, cfg.MaxToolIterations)
	assert.Equal(t, 60*time.Second, cfg.OrchestrationBudget)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CALENDAR_PROVIDER", "Google")
	t.Setenv("MAX_TOOL_ITERATIONS", "5")
	t.Setenv("ORCHESTRATION_BUDGET", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "google", cfg.CalendarProvider, "provider name is normalized")
	assert.Equal(t, 5, cfg.MaxToolIterations)
	assert.Equal(t, 30*time.Second, cfg.OrchestrationBudget)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_TOOL_ITERATIONS", "lots")
	t.Setenv("ORCHESTRATION_BUDGET", "soon")

	cfg := Load()

	assert.Equal(t, 10, cfg.MaxToolIterations)
	assert.Equal(t, 60*time.Second, cfg.OrchestrationBudget)
}
