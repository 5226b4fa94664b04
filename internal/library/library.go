// Package library maintains the shared statute corpus that grounds the
// legal chat assistant. Statute files are embedded through the Genkit
// PostgreSQL plugin into the documents table and retrieved there by
// vector similarity.
package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceTypeStatute marks corpus rows ingested from statute files.
const SourceTypeStatute = "statute"

// StatuteFilter restricts plugin retrieval to statute rows. It is a fixed
// string so nothing user-influenced ever reaches the SQL filter.
const StatuteFilter = "source_type = 'statute'"

// Column layout of the documents table. Must match db/migrations.
const (
	DocumentsTable           = "documents"
	DocumentsSchema          = "public"
	DocumentsIDColumn        = "id"
	DocumentsContentColumn   = "content"
	DocumentsEmbeddingColumn = "embedding"
	DocumentsMetadataColumn  = "metadata"
)

const deleteDocumentsSQL = `DELETE FROM documents WHERE id = ANY($1)`

// NewDocStoreConfig builds the plugin configuration for the documents
// table. Production wiring and tests share it so the column mapping stays
// aligned with the migration.
func NewDocStoreConfig(embedder ai.Embedder) *postgresql.Config {
	return &postgresql.Config{
		TableName:          DocumentsTable,
		SchemaName:         DocumentsSchema,
		IDColumn:           DocumentsIDColumn,
		ContentColumn:      DocumentsContentColumn,
		EmbeddingColumn:    DocumentsEmbeddingColumn,
		MetadataJSONColumn: DocumentsMetadataColumn,
		MetadataColumns:    []string{"source_type"},
		Embedder:           embedder,
	}
}

// Store writes library documents through the plugin DocStore. The plugin
// only inserts, so Upsert deletes rows with matching IDs first.
type Store struct {
	docs   *postgresql.DocStore
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store over the plugin DocStore and its backing pool.
func NewStore(docs *postgresql.DocStore, pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if docs == nil {
		return nil, fmt.Errorf("doc store is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{docs: docs, pool: pool, logger: logger}, nil
}

// Upsert indexes docs, replacing any existing rows that share an ID.
// Document IDs are read from the "id" metadata key, the same key the
// plugin maps to the id column.
func (s *Store) Upsert(ctx context.Context, docs []*ai.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc.Metadata["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	// Rows may not exist yet, so a delete failure is not fatal on its own.
	if err := s.deleteByIDs(ctx, ids); err != nil {
		s.logger.Debug("deleting documents before re-index", "error", err)
	}

	if err := s.docs.Index(ctx, docs); err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}

	return nil
}

func (s *Store) deleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteDocumentsSQL, ids); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	return nil
}
