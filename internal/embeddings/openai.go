// Package embeddings provides the embedding drivers used by knowledge
// retrieval: OpenAI's hosted API and a local Ollama server.
package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIDriver implements EmbeddingDriver on OpenAI's embedding API.
// Supports text-embedding-3-small (1536d), text-embedding-3-large (3072d),
// and text-embedding-ada-002 (1536d).
type OpenAIDriver struct {
	client     openai.Client
	model      string
	dimensions int
	batchSize  int
}

// OpenAIOption configures the OpenAI driver.
type OpenAIOption func(*OpenAIDriver)

// WithOpenAIBatchSize sets the max texts per Embed call.
func WithOpenAIBatchSize(size int) OpenAIOption {
	return func(d *OpenAIDriver) { d.batchSize = size }
}

// WithOpenAIBaseURL points the driver at a custom endpoint (proxies,
// stub servers in tests).
func WithOpenAIBaseURL(apiKey, baseURL string) OpenAIOption {
	return func(d *OpenAIDriver) {
		d.client = openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL))
	}
}

// NewOpenAIDriver creates an OpenAI embedding driver.
func NewOpenAIDriver(apiKey, model string, opts ...OpenAIOption) *OpenAIDriver {
	dims := 1536
	switch model {
	case "text-embedding-3-large":
		dims = 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		dims = 1536
	}

	d := &OpenAIDriver{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dims,
		batchSize:  2048,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *OpenAIDriver) Kind() string    { return "openai" }
func (d *OpenAIDriver) Dimensions() int { return d.dimensions }

// Embed generates vector embeddings for a batch of texts, preserving
// input order.
func (d *OpenAIDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > d.batchSize {
		return nil, fmt.Errorf("batch size %d exceeds max %d", len(texts), d.batchSize)
	}

	resp, err := d.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(d.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Reorder by index
	vectors := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if int(item.Index) < len(vectors) {
			vectors[item.Index] = item.Embedding
		}
	}
	return vectors, nil
}

// HealthCheck verifies the API key by embedding a test string.
func (d *OpenAIDriver) HealthCheck(ctx context.Context) error {
	_, err := d.Embed(ctx, []string{"health check"})
	return err
}
