package knowledge

import (
	"context"
	"crypto/md5" // #nosec G501 -- content addressing only, not security
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// chunkCols is the standard SELECT column list for scanChunks.
const chunkCols = `id, user_id, source, chunk_index, content, created_at`

// Store manages embedded document chunks in one pgvector table.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger

	// contentLimit caps persisted chunk content in runes; 0 stores whole
	// chunks.
	contentLimit int

	upsertSQL string
	searchSQL string
	deleteSQL string
	countSQL  string
}

// NewStore creates a Store bound to one chunk table. table must be
// TableCaseChunks or TableAnalyserChunks; the name is interpolated into SQL,
// so arbitrary values are rejected.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, table string, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if table != TableCaseChunks && table != TableAnalyserChunks {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if logger == nil {
		logger = slog.Default()
	}

	contentLimit := StoredContentLimit
	if table == TableAnalyserChunks {
		contentLimit = 0
	}

	return &Store{
		pool:         pool,
		embedder:     embedder,
		logger:       logger,
		contentLimit: contentLimit,
		upsertSQL: fmt.Sprintf(`INSERT INTO %s (id, user_id, source, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				source = EXCLUDED.source,
				chunk_index = EXCLUDED.chunk_index,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`, table),
		searchSQL: fmt.Sprintf(`SELECT %s, 1 - (embedding <=> $1) AS similarity
			FROM %s
			WHERE user_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, chunkCols, table),
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table),
		countSQL:  fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table),
	}, nil
}

// embed generates a unit-length vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vecs[0], nil
}

// embedBatch embeds several texts in one API call. The returned slice is
// aligned with the input.
func (s *Store) embedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	dim := VectorDimension
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(texts))
	}

	vecs := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding response at index %d", i)
		}
		// Truncated Matryoshka embeddings lose unit length; cosine distance
		// in pgvector tolerates this, but stored vectors stay normalized so
		// thresholds mean the same thing everywhere.
		vecs[i] = pgvector.NewVector(normalize(e.Embedding))
	}
	return vecs, nil
}

// normalize rescales v to unit L2 length. Zero vectors are returned as-is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// ChunkID builds the deterministic chunk identifier
// <user>_<source>_<hex8>_<index>, where hex8 is derived from the source name.
// Re-indexing the same document overwrites its previous chunks via upsert.
func ChunkID(userID, source string, index int) string {
	sum := md5.Sum([]byte(source)) // #nosec G401 -- content addressing only
	return fmt.Sprintf("%s_%s_%x_%d", userID, sanitizeID(source), sum[:4], index)
}

// sanitizeID makes a document name safe for use inside a chunk ID.
func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}

// Index chunks text, embeds the chunks and upserts them for the user.
// Chunks whose embedding fails are skipped; the returned count is the number
// actually written. Returns ErrEmbeddingFailed when nothing could be embedded.
func (s *Store) Index(ctx context.Context, userID, source, text string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID is required")
	}

	chunks := NewSplitter(DefaultChunkSize, DefaultChunkOverlap).Split(text)
	return s.IndexChunks(ctx, userID, source, chunks)
}

// IndexChunks embeds and upserts pre-split chunks for the user. Used directly
// by the analyser, which chunks with different parameters.
func (s *Store) IndexChunks(ctx context.Context, userID, source string, chunks []string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID is required")
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	embedded := s.embedAll(ctx, chunks)
	if len(embedded) == 0 {
		return 0, ErrEmbeddingFailed
	}

	written := 0
	for start := 0; start < len(embedded); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(embedded))
		n, err := s.upsertBatch(ctx, userID, source, embedded[start:end])
		if err != nil {
			return written, fmt.Errorf("upserting chunk batch: %w", err)
		}
		written += n
	}

	s.logger.Debug("indexed document chunks",
		"user_id", userID, "source", source,
		"chunks", len(chunks), "written", written)
	return written, nil
}

// embeddedChunk pairs a chunk with its vector and original position.
type embeddedChunk struct {
	index   int
	content string
	vec     pgvector.Vector
}

// embedAll embeds chunks in batches, falling back to per-chunk requests when
// a batch fails so one bad chunk cannot sink the whole document.
func (s *Store) embedAll(ctx context.Context, chunks []string) []embeddedChunk {
	var out []embeddedChunk
	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := min(start+EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
		vecs, err := s.embedBatch(embedCtx, batch)
		cancel()
		if err == nil {
			for i, v := range vecs {
				out = append(out, embeddedChunk{index: start + i, content: batch[i], vec: v})
			}
			continue
		}

		s.logger.Warn("batch embedding failed, retrying chunks individually",
			"batch_start", start, "error", err)
		for i, c := range batch {
			embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
			vec, embedErr := s.embed(embedCtx, c)
			cancel()
			if embedErr != nil {
				s.logger.Warn("skipping chunk, embedding failed",
					"chunk_index", start+i, "error", embedErr)
				continue
			}
			out = append(out, embeddedChunk{index: start + i, content: c, vec: vec})
		}
	}
	return out
}

// upsertBatch writes one batch of embedded chunks in a single transaction.
func (s *Store) upsertBatch(ctx context.Context, userID, source string, batch []embeddedChunk) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	for _, c := range batch {
		content := c.content
		if s.contentLimit > 0 {
			content = truncateRunes(content, s.contentLimit)
		}
		if _, err := tx.Exec(ctx, s.upsertSQL,
			ChunkID(userID, source, c.index), userID, source, c.index, content, c.vec); err != nil {
			return 0, fmt.Errorf("upserting chunk %d: %w", c.index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing chunk batch: %w", err)
	}
	return len(batch), nil
}

// Search embeds query and returns the user's closest chunks with similarity
// of at least minScore. topK is clamped to [1, MaxTopK]; topK <= 0 uses
// DefaultTopK.
func (s *Store) Search(ctx context.Context, query, userID string, topK int, minScore float64) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(query), MaxQueryLength)
	}
	if strings.ContainsRune(query, 0) {
		return nil, fmt.Errorf("query contains null byte")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	ctx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	return s.SearchByVector(ctx, vec, userID, topK, minScore)
}

// SearchByVector runs the nearest-neighbour query with an already-computed
// embedding. The analysis pipeline uses this to reuse one embedding across
// gating and scoring.
func (s *Store) SearchByVector(ctx context.Context, vec pgvector.Vector, userID string, topK int, minScore float64) ([]Result, error) {
	rows, err := s.pool.Query(ctx, s.searchSQL, vec, userID, topK)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}

	if minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Similarity >= minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	return results, nil
}

// Embed exposes query embedding for callers that combine SearchByVector with
// their own gating.
func (s *Store) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()
	return s.embed(ctx, text)
}

// DeleteByUser removes all chunks belonging to the user and reports how many
// rows were deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID is required")
	}
	tag, err := s.pool.Exec(ctx, s.deleteSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByUser reports how many chunks the user has indexed.
func (s *Store) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, s.countSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// scanResults collects search rows into Results.
func scanResults(rows pgx.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var created time.Time
		if err := rows.Scan(&r.ID, &r.UserID, &r.Source, &r.Index, &r.Content, &created, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		r.CreatedAt = created
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return results, nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
