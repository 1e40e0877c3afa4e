package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Gemini dialogue provider
	GeminiAPIKey  string
	GeminiModelID string

	// Pipefy CRM
	PipefyAPIToken string
	PipefyPipeID   string

	// Calendar provider selection: "google", "calendly" or "" (simulated)
	CalendarProvider string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleCalendarID   string
	GoogleRedirectURL  string

	CalendlyAPIToken     string
	CalendlyEventTypeURI string
	CalendlyUserURI      string

	// Meeting settings
	MeetingTimezone string

	// Orchestration hardening
	MaxToolIterations   int
	OrchestrationBudget time.Duration
	SessionIdleTTL      time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		PipefyAPIToken: getEnv("PIPEFY_API_TOKEN", ""),
		PipefyPipeID:   getEnv("PIPEFY_PIPE_ID", ""),

		CalendarProvider: strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_PROVIDER", ""))),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleCalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/oauth/callback"),

		CalendlyAPIToken:     getEnv("CALENDLY_API_TOKEN", ""),
		CalendlyEventTypeURI: getEnv("CALENDLY_EVENT_TYPE_URI", ""),
		CalendlyUserURI:      getEnv("CALENDLY_USER_URI", ""),

		MeetingTimezone: getEnv("MEETING_TIMEZONE", "America/Sao_Paulo"),

		MaxToolIterations:   getEnvAsInt("MAX_TOOL_ITERATIONS", 10),
		OrchestrationBudget: getEnvAsDuration("ORCHESTRATION_BUDGET", 60*time.Second),
		SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
