package embeddings

import (
	"fmt"

	"github.com/JDRQlabs/LLM-Chatbot/internal/config"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
)

// FromConfig builds the embedding driver selected by configuration.
func FromConfig(cfg *config.Config) (contracts.EmbeddingDriver, error) {
	switch cfg.Retrieval.EmbeddingsProvider {
	case "openai":
		if cfg.Providers.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("embeddings provider %q requires OPENAI_API_KEY", "openai")
		}
		return NewOpenAIDriver(cfg.Providers.OpenAIAPIKey, cfg.Retrieval.EmbeddingModel), nil
	case "ollama":
		return NewOllamaDriver(cfg.Retrieval.OllamaEndpoint, cfg.Retrieval.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Retrieval.EmbeddingsProvider)
	}
}
