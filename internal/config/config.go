package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the reasoning engine service.
type Config struct {
	Port      int
	Version   string
	Providers ProvidersConfig
	Retrieval RetrievalConfig
	Telemetry TelemetryConfig
	Notify    NotifyConfig
}

// ProvidersConfig carries the platform-level default provider and the
// fallback credentials used when a chatbot brings no keys of its own.
type ProvidersConfig struct {
	Default      string // "openai" or "google"
	OpenAIAPIKey string
	GoogleAPIKey string
}

type RetrievalConfig struct {
	EmbeddingsProvider string // "openai" or "ollama"
	EmbeddingModel     string
	OllamaEndpoint     string
	VectorStoreDriver  string // "embedded" or "pgvector"
	PGVectorURL        string
	TopK               int
	ScoreThreshold     float64
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// NotifyConfig configures admin failure alerting.
type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
	MaxRetries    int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("CHATBOT_PORT", 8080),
		Version: envStr("CHATBOT_VERSION", "0.1.0"),
		Providers: ProvidersConfig{
			Default:      envStr("DEFAULT_AI_PROVIDER", "openai"),
			OpenAIAPIKey: envStr("OPENAI_API_KEY", ""),
			GoogleAPIKey: envStr("GOOGLE_API_KEY", ""),
		},
		Retrieval: RetrievalConfig{
			EmbeddingsProvider: envStr("EMBEDDINGS_PROVIDER", "openai"),
			EmbeddingModel:     envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
			OllamaEndpoint:     envStr("OLLAMA_ENDPOINT", "http://localhost:11434"),
			VectorStoreDriver:  envStr("VECTORSTORE_DRIVER", "embedded"),
			PGVectorURL:        envStr("PGVECTOR_URL", ""),
			TopK:               envInt("RETRIEVAL_TOP_K", 5),
			ScoreThreshold:     envFloat("RETRIEVAL_SCORE_THRESHOLD", 0.7),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "llm-chatbot-engine"),
		},
		Notify: NotifyConfig{
			WebhookURL:    envStr("ALERT_WEBHOOK_URL", ""),
			WebhookSecret: envStr("ALERT_WEBHOOK_SECRET", ""),
			MaxRetries:    envInt("ALERT_MAX_RETRIES", 3),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
