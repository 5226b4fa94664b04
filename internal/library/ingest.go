package library

// ingest.go walks statute corpora on disk and indexes each file as a
// library document. Backs the `lawyerup ingest` command.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// statuteExtensions are the file types accepted as statute sources.
var statuteExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// MaxFileSizeForEmbedding is the largest statute file indexed as a single
// document. The embedding model reads roughly 2048 tokens (about 8KB of
// text); anything past that would be cut off and unreachable by search.
const MaxFileSizeForEmbedding = 8 * 1024

// IngestStore is the storage side of ingestion. *Store satisfies it.
type IngestStore interface {
	Upsert(ctx context.Context, docs []*ai.Document) error
}

// IngestResult summarises one corpus walk.
type IngestResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	TotalSize    int64
	Duration     time.Duration
}

// Ingester indexes statute files from the local filesystem.
type Ingester struct {
	store  IngestStore
	logger *slog.Logger
}

// NewIngester creates an Ingester writing through store.
func NewIngester(store IngestStore, logger *slog.Logger) (*Ingester, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingester{store: store, logger: logger}, nil
}

// IngestFile indexes a single statute file.
func (ing *Ingester) IngestFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Reads go through os.Root so symlinks cannot escape the parent.
	root, err := os.OpenRoot(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("opening parent directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	name := filepath.Base(absPath)
	info, err := root.Stat(name)
	if err != nil {
		return fmt.Errorf("reading file info: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, use IngestDirectory", path)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !statuteExtensions[ext] {
		return fmt.Errorf("unsupported file type %s (statute files must be .txt or .md)", ext)
	}
	if info.Size() > MaxFileSizeForEmbedding {
		return fmt.Errorf("file %s (%d bytes) exceeds the embedding limit (%d bytes)",
			name, info.Size(), MaxFileSizeForEmbedding)
	}

	content, err := root.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	if err := ing.store.Upsert(ctx, []*ai.Document{statuteDocument(absPath, info.Size(), content)}); err != nil {
		return fmt.Errorf("indexing %s: %w", name, err)
	}

	ing.logger.Info("statute indexed", "file", name, "size", info.Size())

	return nil
}

// IngestDirectory walks dir recursively and indexes every statute file in
// it. Unsupported and oversized files count as skipped; per-file read or
// index errors count as failed and do not stop the walk.
func (ing *Ingester) IngestDirectory(ctx context.Context, dir string) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	err = filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !statuteExtensions[ext] {
			result.FilesSkipped++
			return nil
		}
		if info.Size() > MaxFileSizeForEmbedding {
			ing.logger.Debug("statute too large to embed, skipped", "file", path, "size", info.Size())
			result.FilesSkipped++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		content, err := root.ReadFile(relPath)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		if err := ing.store.Upsert(ctx, []*ai.Document{statuteDocument(path, info.Size(), content)}); err != nil {
			ing.logger.Warn("indexing statute failed", "file", relPath, "error", err)
			result.FilesFailed++
			return nil
		}

		result.FilesAdded++
		result.TotalSize += info.Size()

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	ing.logger.Info("library ingest complete",
		"dir", dir,
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed)

	return result, nil
}

// statuteDocument builds the indexable document for one statute file.
func statuteDocument(absPath string, size int64, content []byte) *ai.Document {
	return ai.DocumentFromText(string(content), map[string]any{
		"id":          docID(absPath),
		"source_type": SourceTypeStatute,
		"file_path":   absPath,
		"file_name":   filepath.Base(absPath),
		"file_size":   fmt.Sprintf("%d", size),
		"indexed_at":  time.Now().UTC().Format(time.RFC3339),
	})
}

// docID is a stable ID derived from the absolute path, so re-ingesting a
// file replaces its row instead of duplicating it.
func docID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return "statute_" + hex.EncodeToString(sum[:16])
}
