package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JDRQlabs/LLM-Chatbot/internal/retrieval"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// fakeEmbedder returns one fixed vector per input text.
type fakeEmbedder struct {
	err   error
	texts []string
}

func (f *fakeEmbedder) Kind() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return 3 }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) HealthCheck(context.Context) error { return nil }

// fakeVectorStore returns canned hits and records search calls.
type fakeVectorStore struct {
	hits      []models.SearchResult
	searchErr error
	gotID     string
	gotTopK   int
	upserted  []models.VectorDoc
	deleted   []string
}

func (f *fakeVectorStore) Kind() string { return "fake" }

func (f *fakeVectorStore) Upsert(_ context.Context, docs []models.VectorDoc) error {
	f.upserted = append(f.upserted, docs...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, chatbotID string, _ []float64, topK int) ([]models.SearchResult, error) {
	f.gotID = chatbotID
	f.gotTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeVectorStore) Delete(_ context.Context, _ string, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeVectorStore) HealthCheck(context.Context) error { return nil }

func hit(content, source string, score float64, meta map[string]interface{}) models.SearchResult {
	return models.SearchResult{
		Doc:   models.VectorDoc{Content: content, SourceName: source, Metadata: meta},
		Score: score,
	}
}

func TestRetrieve_FiltersByThreshold(t *testing.T) {
	store := &fakeVectorStore{hits: []models.SearchResult{
		hit("relevante", "a.md", 0.92, nil),
		hit("borde", "b.md", 0.70, nil),
		hit("ruido", "c.md", 0.42, nil),
	}}
	r := retrieval.New(&fakeEmbedder{}, store)

	chunks := r.Retrieve(context.Background(), "cb-1", "horario", 5, 0)

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2 above threshold", len(chunks))
	}
	if chunks[0].Content != "relevante" || chunks[1].Content != "borde" {
		t.Errorf("chunks = %+v", chunks)
	}
	if store.gotID != "cb-1" || store.gotTopK != 5 {
		t.Errorf("search args = %q/%d", store.gotID, store.gotTopK)
	}
}

func TestRetrieve_CustomThreshold(t *testing.T) {
	store := &fakeVectorStore{hits: []models.SearchResult{hit("bajo", "a.md", 0.5, nil)}}
	r := retrieval.New(&fakeEmbedder{}, store, retrieval.WithScoreThreshold(0.4))

	if got := r.Retrieve(context.Background(), "cb-1", "q", 5, 0); len(got) != 1 {
		t.Errorf("chunks = %d, want 1 with lowered threshold", len(got))
	}
}

func TestRetrieve_PerCallMinScoreOverridesThreshold(t *testing.T) {
	store := &fakeVectorStore{hits: []models.SearchResult{
		hit("alto", "a.md", 0.92, nil),
		hit("medio", "b.md", 0.75, nil),
	}}
	r := retrieval.New(&fakeEmbedder{}, store)

	chunks := r.Retrieve(context.Background(), "cb-1", "q", 5, 0.9)

	if len(chunks) != 1 || chunks[0].Content != "alto" {
		t.Errorf("chunks = %+v, want only the 0.92 hit above the 0.9 floor", chunks)
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	store := &fakeVectorStore{}
	r := retrieval.New(&fakeEmbedder{}, store)

	r.Retrieve(context.Background(), "cb-1", "q", 0, 0)

	if store.gotTopK != retrieval.DefaultTopK {
		t.Errorf("topK = %d, want %d", store.gotTopK, retrieval.DefaultTopK)
	}
}

func TestRetrieve_EmbedErrorFailsSoft(t *testing.T) {
	r := retrieval.New(&fakeEmbedder{err: errors.New("api down")}, &fakeVectorStore{})

	if got := r.Retrieve(context.Background(), "cb-1", "q", 5, 0); got != nil {
		t.Errorf("chunks = %v, want nil on embedding failure", got)
	}
}

func TestRetrieve_SearchErrorFailsSoft(t *testing.T) {
	r := retrieval.New(&fakeEmbedder{}, &fakeVectorStore{searchErr: errors.New("index corrupt")})

	if got := r.Retrieve(context.Background(), "cb-1", "q", 5, 0); got != nil {
		t.Errorf("chunks = %v, want nil on search failure", got)
	}
}

func TestRetrieve_PageFromMetadata(t *testing.T) {
	store := &fakeVectorStore{hits: []models.SearchResult{
		hit("a", "doc.pdf", 0.9, map[string]interface{}{"page": float64(7)}),
		hit("b", "doc.pdf", 0.9, map[string]interface{}{"page": 3}),
		hit("c", "doc.pdf", 0.9, map[string]interface{}{"page": "not a number"}),
	}}
	r := retrieval.New(&fakeEmbedder{}, store)

	chunks := r.Retrieve(context.Background(), "cb-1", "q", 5, 0)

	if chunks[0].Page != 7 || chunks[1].Page != 3 || chunks[2].Page != 0 {
		t.Errorf("pages = %d/%d/%d, want 7/3/0", chunks[0].Page, chunks[1].Page, chunks[2].Page)
	}
}
