// Package retrieval implements semantic search over a chatbot's
// knowledge base: embed the query, search the vector store, filter by
// similarity threshold.
package retrieval

import (
	"context"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTopK is the number of chunks returned when unspecified.
	DefaultTopK = 5
	// DefaultScoreThreshold is the minimum similarity for a chunk to count.
	DefaultScoreThreshold = 0.7
)

// Retriever performs fail-soft knowledge base lookups. Any embedding or
// storage error degrades to an empty result; a broken knowledge base
// must never take down a conversation.
type Retriever struct {
	embedder  contracts.EmbeddingDriver
	store     contracts.VectorStoreDriver
	threshold float64
}

// Option configures the retriever.
type Option func(*Retriever)

// WithScoreThreshold overrides the minimum similarity score.
func WithScoreThreshold(threshold float64) Option {
	return func(r *Retriever) { r.threshold = threshold }
}

// New creates a knowledge retriever over the given drivers.
func New(embedder contracts.EmbeddingDriver, store contracts.VectorStoreDriver, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		store:     store,
		threshold: DefaultScoreThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to topK chunks above the similarity threshold for
// a chatbot's knowledge base, ordered by descending similarity. A
// positive minScore overrides the retriever's configured threshold, so
// chatbots can carry their own floor. Errors are logged and swallowed;
// the return is empty in every failure mode.
func (r *Retriever) Retrieve(ctx context.Context, chatbotID, query string, topK int, minScore float64) []models.RetrievedChunk {
	if r.embedder == nil || r.store == nil {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := r.threshold
	if minScore > 0 {
		threshold = minScore
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		log.Warn().Err(err).Str("chatbot_id", chatbotID).Msg("Knowledge retrieval: embedding failed")
		return nil
	}
	if len(vectors) == 0 {
		return nil
	}

	hits, err := r.store.Search(ctx, chatbotID, vectors[0], topK)
	if err != nil {
		log.Warn().Err(err).Str("chatbot_id", chatbotID).Msg("Knowledge retrieval: vector search failed")
		return nil
	}

	chunks := make([]models.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		chunk := models.RetrievedChunk{
			Content:    hit.Doc.Content,
			SourceName: hit.Doc.SourceName,
			Score:      hit.Score,
			Metadata:   hit.Doc.Metadata,
		}
		if page, ok := pageNumber(hit.Doc.Metadata); ok {
			chunk.Page = page
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// pageNumber extracts a page number from chunk metadata, tolerating the
// numeric types JSON decoding produces.
func pageNumber(meta map[string]interface{}) (int, bool) {
	v, ok := meta["page"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
