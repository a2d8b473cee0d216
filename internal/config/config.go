// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// JWT settings
	JWTSecret string

	// LLM settings
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicURL    string
	LLMTimeout      time.Duration

	// Circuit breaker around the completion provider
	BreakerMaxFailures int
	BreakerTimeout     time.Duration

	// Models
	OrchestratorModel     string
	OrchestratorMaxTokens int
	RouterModel           string
	AgentModel            string

	// Agent catalog
	AgentCatalogFile string

	// Conversation history
	HistoryBackend string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Telemetry sinks
	TelemetryDatabaseURL string
	TelemetryNATSEnabled bool

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// History backends.
const (
	HistoryBackendNATS  = "nats"
	HistoryBackendRedis = "redis"
)

// Load reads configuration from environment variables. A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnvAny([]string{"AI_INTEGRATIONS_OPENAI_API_KEY", "OPENAI_API_KEY"}, ""),
		OpenAIBaseURL:   getEnvAny([]string{"AI_INTEGRATIONS_OPENAI_BASE_URL", "OPENAI_BASE_URL"}, ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicURL:    getEnv("ANTHROPIC_BASE_URL", ""),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 60*time.Second),

		BreakerMaxFailures: getIntEnv("LLM_BREAKER_MAX_FAILURES", 5),
		BreakerTimeout:     getDurationEnv("LLM_BREAKER_TIMEOUT", 30*time.Second),

		// Models
		OrchestratorModel:     getEnv("KUARAY_MODEL", "gpt-4o"),
		OrchestratorMaxTokens: getIntEnv("ORCHESTRATOR_MAX_TOKENS", 2048),
		RouterModel:           getEnv("ROUTER_MODEL", "gpt-5-nano"),
		AgentModel:            getEnv("AGENT_MODEL", "gpt-5.2"),

		AgentCatalogFile: getEnv("AGENT_CATALOG_FILE", ""),

		HistoryBackend: getEnv("HISTORY_BACKEND", HistoryBackendNATS),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// Telemetry
		TelemetryDatabaseURL: getEnv("TELEMETRY_DATABASE_URL", ""),
		TelemetryNATSEnabled: getBoolEnv("TELEMETRY_NATS_ENABLED", true),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// UsesNATS reports whether any configured component needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.HistoryBackend == HistoryBackendNATS || c.TelemetryNATSEnabled
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAny returns the first non-empty value among keys.
func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
