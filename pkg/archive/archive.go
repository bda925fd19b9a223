// Package archive indexes fetched research sources into pgvector so
// past runs remain semantically searchable. Archiving is best-effort:
// failures are logged by the orchestrator and never affect a run.
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/ericmjl/canvas-research/pkg/database"
	"github.com/ericmjl/canvas-research/pkg/embeddings"
	"github.com/ericmjl/canvas-research/pkg/research"
	"github.com/ericmjl/canvas-research/pkg/vectorstore"
)

type Archive struct {
	db       *database.PostgresDB
	embedder *embeddings.GoogleEmbedder
	store    *vectorstore.PGVectorStore
	splitter textsplitter.TextSplitter
	logger   *slog.Logger
}

// Config carries the archive settings from the application config.
type Config struct {
	Collection   string
	ChunkSize    int
	ChunkOverlap int
}

// New prepares the collection table and returns an Archive implementing
// research.Archiver.
func New(ctx context.Context, db *database.PostgresDB, embedder *embeddings.GoogleEmbedder, cfg Config) (*Archive, error) {
	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := db.CreateEmbeddingsTable(ctx, cfg.Collection, embeddings.Dimension); err != nil {
		return nil, fmt.Errorf("failed to create embeddings table: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	return &Archive{
		db:       db,
		embedder: embedder,
		store:    store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger: slog.Default(),
	}, nil
}

// Archive chunks the page content, embeds the chunks and stores them
// with the source metadata.
func (a *Archive) Archive(ctx context.Context, src research.Source, content string) error {
	chunks, err := a.splitter.SplitText(content)
	if err != nil {
		return fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := a.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			Content: chunk,
			Metadata: map[string]interface{}{
				"source":    src.URL,
				"title":     src.Title,
				"query":     src.Query,
				"iteration": src.Iteration,
			},
			Embedding: vectors[i],
		}
	}

	if err := a.store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}

	a.logger.Debug("source archived", "url", src.URL, "chunks", len(chunks))
	return nil
}
