package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Document is one archived content chunk with its embedding.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// PGVectorStore handles pgvector operations for one collection table.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe
// characters to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Alphanumeric and underscores only, starting with a letter or
	// underscore, within PostgreSQL's 63 char identifier limit.
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

func NewPGVectorStore(pool *pgxpool.Pool, tableName string) (*PGVectorStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &PGVectorStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// AddDocuments inserts document chunks with their embeddings.
func (vs *PGVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{vs.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, doc.Content, metadataJSON, pgvector.NewVector(doc.Embedding))
	}

	results := vs.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}
	return nil
}

// SimilaritySearch returns the topK most similar chunks by cosine
// distance.
func (vs *PGVectorStore) SimilaritySearch(ctx context.Context, embedding []float32, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = 5
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{vs.tableName}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var metadataJSON []byte
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
