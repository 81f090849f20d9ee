package vectorstore

import (
	"context"
	"fmt"

	"github.com/JDRQlabs/LLM-Chatbot/internal/config"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
)

// FromConfig builds the vector store backend selected by configuration.
// dimensions must match the embedding driver in use.
func FromConfig(ctx context.Context, cfg *config.Config, dimensions int) (contracts.VectorStoreDriver, error) {
	switch cfg.Retrieval.VectorStoreDriver {
	case "embedded":
		return NewEmbeddedStore(), nil
	case "pgvector":
		if cfg.Retrieval.PGVectorURL == "" {
			return nil, fmt.Errorf("vector store %q requires PGVECTOR_URL", "pgvector")
		}
		return NewPgvectorStore(ctx, cfg.Retrieval.PGVectorURL, dimensions)
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.Retrieval.VectorStoreDriver)
	}
}
