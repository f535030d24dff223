// Package config provides configuration for the decisioning service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Vector store (Qdrant)
	QdrantURL           string
	QdrantAPIKey        string
	ApplicantCollection string
	PolicyCollection    string

	// Encoder service
	EncoderURL string

	// Generation endpoint (OpenAI-compatible; Groq in production)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Timeouts
	LLMTimeout     time.Duration
	EncoderTimeout time.Duration
	SearchTimeout  time.Duration

	// Debate settings
	DefaultTopK  int
	MaxTurns     int
	PolicyTopK   int
	PolicyMinSim float64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:         getEnv("DATABASE_URL", "file:loancourt.db?cache=shared&mode=rwc"),
		QdrantURL:           getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:        getEnv("QDRANT_API_KEY", ""),
		ApplicantCollection: getEnv("QDRANT_COLLECTION", "applicants_v1"),
		PolicyCollection:    getEnv("QDRANT_POLICY_COLLECTION", "policy_chunks_v1"),
		EncoderURL:          getEnv("ENCODER_URL", "http://localhost:8091"),
		LLMBaseURL:          getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		LLMModel:            getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		EncoderTimeout:      time.Duration(getEnvInt("ENCODER_TIMEOUT_MS", 15000)) * time.Millisecond,
		SearchTimeout:       time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 15000)) * time.Millisecond,
		DefaultTopK:         getEnvInt("DEFAULT_TOP_K", 8),
		MaxTurns:            getEnvInt("MAX_DEBATE_TURNS", 12),
		PolicyTopK:          getEnvInt("POLICY_TOP_K", 8),
		PolicyMinSim:        getEnvFloat("POLICY_MIN_SIM", 0.60),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
