package analyser

// textstore.go keeps the full extracted text of each user's latest upload
// on disk. Explanations re-read the whole document, which never fits in
// chunk storage. Writes go to a temp file renamed into place, guarded by a
// flock so concurrent uploads for the same user never interleave.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrNoDocument is returned when the user has no stored document.
var ErrNoDocument = errors.New("no document found. please upload a document first")

const (
	// lockTimeout bounds how long a writer waits for the file lock.
	lockTimeout = 5 * time.Second

	// lockRetryInterval is how often a blocked writer retries the lock.
	lockRetryInterval = 50 * time.Millisecond
)

// TextStore persists one document text file per user under a data
// directory.
type TextStore struct {
	dir    string
	logger *slog.Logger
}

// NewTextStore creates the store rooted at dir, creating the directory if
// needed.
func NewTextStore(dir string, logger *slog.Logger) (*TextStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("text store directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating text store directory: %w", err)
	}

	return &TextStore{dir: dir, logger: logger}, nil
}

// Save replaces the user's stored document text.
func (ts *TextStore) Save(ctx context.Context, userID, text string) error {
	path := ts.path(userID)

	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if _, err := lock.TryLockContext(lockCtx, lockRetryInterval); err != nil {
		return fmt.Errorf("locking document text: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			ts.logger.Debug("releasing document text lock", "error", err)
		}
	}()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o600); err != nil {
		return fmt.Errorf("writing document text: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing document text: %w", err)
	}

	ts.logger.Debug("document text stored", "user_id", userID, "bytes", len(text))
	return nil
}

// Load returns the user's stored document text, or ErrNoDocument if none
// exists. The rename in Save is atomic, so reads need no lock.
func (ts *TextStore) Load(userID string) (string, error) {
	data, err := os.ReadFile(ts.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoDocument
		}
		return "", fmt.Errorf("reading document text: %w", err)
	}

	return string(data), nil
}

// Exists reports whether the user has a stored document.
func (ts *TextStore) Exists(userID string) bool {
	_, err := os.Stat(ts.path(userID))
	return err == nil
}

// path derives the user's file name from a hash of the user ID so external
// identity values never reach the filesystem.
func (ts *TextStore) path(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(ts.dir, "doc_"+hex.EncodeToString(sum[:16])+".txt")
}
