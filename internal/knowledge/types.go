// Package knowledge stores and searches embedded document chunks backed by
// PostgreSQL + pgvector.
//
// Two chunk tables share the same shape: case_chunks holds monitored case
// files and analyser_chunks holds analyser uploads. A Store is bound to one
// table at construction so analyser content never surfaces in monitoring
// searches.
package knowledge

import (
	"errors"
	"time"
)

// VectorDimension is the embedding dimensionality stored in pgvector.
// gemini-embedding-001 natively outputs 3072 dimensions; we request 768 via
// OutputDimensionality and re-normalize (see embed).
const VectorDimension int32 = 768

const (
	// EmbedTimeout bounds a single embedding API call.
	EmbedTimeout = 30 * time.Second

	// SearchTimeout bounds a similarity search including its embedding call.
	SearchTimeout = 15 * time.Second

	// DefaultTopK is used when the caller passes topK <= 0.
	DefaultTopK = 3

	// MaxTopK caps the number of results a single search may return.
	MaxTopK = 10

	// MaxQueryLength caps search query length in bytes.
	MaxQueryLength = 8192

	// StoredContentLimit caps how many runes of a case chunk are persisted.
	// Analyser chunks are stored whole: question answering stuffs their
	// text back into the prompt.
	StoredContentLimit = 1000

	// UpsertBatchSize is the number of chunks written per transaction.
	UpsertBatchSize = 100

	// EmbedBatchSize is the number of chunks sent per embedding request.
	EmbedBatchSize = 20
)

// Chunk table identifiers. NewStore accepts only these.
const (
	TableCaseChunks     = "case_chunks"
	TableAnalyserChunks = "analyser_chunks"
)

var (
	// ErrEmptyQuery indicates a search was attempted with no query text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong indicates the search query exceeds MaxQueryLength.
	ErrQueryTooLong = errors.New("query too long")

	// ErrEmbeddingFailed indicates no chunk of a document could be embedded.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings for document chunks")

	// ErrUnknownTable indicates a Store was requested for a table that is not
	// one of the chunk tables.
	ErrUnknownTable = errors.New("unknown chunk table")
)

// Chunk is one embedded slice of a document.
type Chunk struct {
	ID        string
	UserID    string
	Source    string
	Index     int
	Content   string
	CreatedAt time.Time
}

// Result is a chunk returned from a similarity search.
// Similarity is cosine similarity in [0, 1], higher is closer.
type Result struct {
	Chunk
	Similarity float64
}
