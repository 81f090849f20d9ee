package config_test

import (
	"testing"

	"github.com/JDRQlabs/LLM-Chatbot/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"CHATBOT_PORT", "DEFAULT_AI_PROVIDER", "EMBEDDINGS_PROVIDER",
		"VECTORSTORE_DRIVER", "RETRIEVAL_TOP_K", "RETRIEVAL_SCORE_THRESHOLD",
		"OTEL_ENABLED", "ALERT_MAX_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Providers.Default != "openai" {
		t.Errorf("Providers.Default = %q, want openai", cfg.Providers.Default)
	}
	if cfg.Retrieval.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q", cfg.Retrieval.EmbeddingModel)
	}
	if cfg.Retrieval.VectorStoreDriver != "embedded" {
		t.Errorf("VectorStoreDriver = %q, want embedded", cfg.Retrieval.VectorStoreDriver)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.ScoreThreshold != 0.7 {
		t.Errorf("retrieval = %d/%v, want 5/0.7", cfg.Retrieval.TopK, cfg.Retrieval.ScoreThreshold)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.ServiceName != "llm-chatbot-engine" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Notify.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Notify.MaxRetries)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHATBOT_PORT", "9090")
	t.Setenv("DEFAULT_AI_PROVIDER", "google")
	t.Setenv("RETRIEVAL_TOP_K", "10")
	t.Setenv("RETRIEVAL_SCORE_THRESHOLD", "0.55")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("ALERT_WEBHOOK_URL", "https://alerts.example.com/hook")

	cfg := config.Load()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Providers.Default != "google" {
		t.Errorf("Providers.Default = %q", cfg.Providers.Default)
	}
	if cfg.Retrieval.TopK != 10 || cfg.Retrieval.ScoreThreshold != 0.55 {
		t.Errorf("retrieval = %d/%v", cfg.Retrieval.TopK, cfg.Retrieval.ScoreThreshold)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false")
	}
	if cfg.Notify.WebhookURL != "https://alerts.example.com/hook" {
		t.Errorf("WebhookURL = %q", cfg.Notify.WebhookURL)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("CHATBOT_PORT", "not-a-number")
	t.Setenv("RETRIEVAL_SCORE_THRESHOLD", "high")

	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default on parse failure", cfg.Port)
	}
	if cfg.Retrieval.ScoreThreshold != 0.7 {
		t.Errorf("ScoreThreshold = %v, want default on parse failure", cfg.Retrieval.ScoreThreshold)
	}
}
