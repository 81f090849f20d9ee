package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PgvectorStore implements VectorStoreDriver using PostgreSQL with the
// pgvector extension. Operators provide their own PostgreSQL instance
// with pgvector installed; the connection URL comes from PGVECTOR_URL.
type PgvectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPgvectorStore creates a pgvector-backed vector store. It creates
// the required table and indexes if they don't exist.
func NewPgvectorStore(ctx context.Context, connURL string, dimensions int) (*PgvectorStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}

	s := &PgvectorStore{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector migrate: %w", err)
	}

	log.Info().Int("dims", dimensions).Msg("pgvector store initialized")
	return s, nil
}

func (s *PgvectorStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS kb_chunks (
			id          TEXT NOT NULL,
			chatbot_id  TEXT NOT NULL,
			source_name TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			metadata    JSONB NOT NULL DEFAULT '{}',
			vector      vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chatbot_id, id)
		);

		CREATE INDEX IF NOT EXISTS idx_kb_chunks_chatbot ON kb_chunks (chatbot_id);
	`, s.dimensions)

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PgvectorStore) Kind() string { return "pgvector" }

func (s *PgvectorStore) Upsert(ctx context.Context, docs []models.VectorDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO kb_chunks (id, chatbot_id, source_name, content, metadata, vector, created_at)
		VALUES `)

	args := make([]interface{}, 0, len(docs)*7)
	for i, d := range docs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*7 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", base, base+1, base+2, base+3, base+4, base+5, base+6))
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		now := d.CreatedAt
		if now.IsZero() {
			now = time.Now()
		}
		metadata := d.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		args = append(args, id, d.ChatbotID, d.SourceName, d.Content, metadata, pgvectorArray(d.Vector), now)
	}

	sb.WriteString(` ON CONFLICT (chatbot_id, id) DO UPDATE SET
		source_name = EXCLUDED.source_name,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		vector = EXCLUDED.vector`)

	_, err := s.pool.Exec(ctx, sb.String(), args...)
	return err
}

func (s *PgvectorStore) Search(ctx context.Context, chatbotID string, vector []float64, topK int) ([]models.SearchResult, error) {
	// Cosine distance operator; score = 1 - distance
	query := `SELECT id, chatbot_id, source_name, content, metadata, created_at,
		1 - (vector <=> $1) AS score
		FROM kb_chunks
		WHERE chatbot_id = $2
		ORDER BY vector <=> $1
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, pgvectorArray(vector), chatbotID, topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var doc models.VectorDoc
		var score float64
		if err := rows.Scan(&doc.ID, &doc.ChatbotID, &doc.SourceName, &doc.Content, &doc.Metadata, &doc.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		results = append(results, models.SearchResult{Doc: doc, Score: score})
	}
	return results, rows.Err()
}

func (s *PgvectorStore) Delete(ctx context.Context, chatbotID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, "DELETE FROM kb_chunks WHERE chatbot_id = $1 AND id = ANY($2)", chatbotID, ids)
	return err
}

func (s *PgvectorStore) Count(ctx context.Context, chatbotID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM kb_chunks WHERE chatbot_id = $1", chatbotID).Scan(&count)
	return count, err
}

func (s *PgvectorStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PgvectorStore) Close() {
	s.pool.Close()
}

// pgvectorArray converts a float64 slice to pgvector's text format: [1.0,2.0,3.0]
func pgvectorArray(v []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fmt.Sprintf("%g", f))
	}
	sb.WriteByte(']')
	return sb.String()
}
