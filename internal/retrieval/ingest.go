package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// IngestItem is one document chunk submitted for indexing.
type IngestItem struct {
	SourceName string                 `json:"source_name"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IngestResult summarizes an indexing request.
type IngestResult struct {
	DocumentsIndexed int      `json:"documents_indexed"`
	IDs              []string `json:"ids"`
}

// Ingestor writes document chunks into a chatbot's knowledge base:
// split oversized content, embed, then upsert into the vector store.
// Unlike retrieval, ingestion is fail-hard; a partial index is worse
// than a clear error to the caller.
type Ingestor struct {
	embedder     contracts.EmbeddingDriver
	store        contracts.VectorStoreDriver
	chunkSize    int
	chunkOverlap int
}

// IngestOption configures the ingestor.
type IngestOption func(*Ingestor)

// WithChunking overrides the chunk size and overlap used for splitting.
func WithChunking(size, overlap int) IngestOption {
	return func(in *Ingestor) {
		in.chunkSize = size
		in.chunkOverlap = overlap
	}
}

// NewIngestor creates a knowledge base ingestor over the given drivers.
func NewIngestor(embedder contracts.EmbeddingDriver, store contracts.VectorStoreDriver, opts ...IngestOption) *Ingestor {
	in := &Ingestor{
		embedder:     embedder,
		store:        store,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest indexes the given items under a chatbot's partition. Items
// longer than the chunk size are split into overlapping chunks, each
// indexed as its own document with a chunk_index metadata entry.
func (in *Ingestor) Ingest(ctx context.Context, chatbotID string, items []IngestItem) (*IngestResult, error) {
	items = in.chunkItems(items)
	if len(items) == 0 {
		return &IngestResult{IDs: []string{}}, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}

	vectors, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d documents", len(vectors), len(items))
	}

	docs := make([]models.VectorDoc, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = uuid.NewString()
		docs[i] = models.VectorDoc{
			ID:         ids[i],
			ChatbotID:  chatbotID,
			SourceName: item.SourceName,
			Content:    item.Content,
			Metadata:   item.Metadata,
			Vector:     vectors[i],
		}
	}

	if err := in.store.Upsert(ctx, docs); err != nil {
		return nil, fmt.Errorf("upsert documents: %w", err)
	}

	log.Info().Str("chatbot_id", chatbotID).Int("documents", len(docs)).Msg("Knowledge base documents indexed")
	return &IngestResult{DocumentsIndexed: len(docs), IDs: ids}, nil
}

// chunkItems expands items whose content exceeds the chunk size into
// one item per chunk, carrying the source metadata forward.
func (in *Ingestor) chunkItems(items []IngestItem) []IngestItem {
	out := make([]IngestItem, 0, len(items))
	for _, item := range items {
		pieces := splitText(item.Content, in.chunkSize, in.chunkOverlap)
		if len(pieces) == 1 {
			out = append(out, item)
			continue
		}
		for i, piece := range pieces {
			meta := make(map[string]interface{}, len(item.Metadata)+1)
			for k, v := range item.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = i
			out = append(out, IngestItem{
				SourceName: item.SourceName,
				Content:    piece,
				Metadata:   meta,
			})
		}
	}
	return out
}

// Delete removes documents from a chatbot's partition by ID.
func (in *Ingestor) Delete(ctx context.Context, chatbotID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := in.store.Delete(ctx, chatbotID, ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}
