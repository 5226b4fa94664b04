package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no profile row exists for the user.
var ErrNotFound = errors.New("profile not found")

// profileCols is the standard SELECT column list for scanning a Profile.
const profileCols = `user_id, monitored_doc_name, extracted_search_terms,
	doc_upload_count, doc_upload_limit, created_at, updated_at`

const getProfileSQL = `SELECT ` + profileCols + ` FROM profiles WHERE user_id = $1`

// insertProfileSQL creates a row with column defaults (count 0, limit 1).
// ON CONFLICT DO NOTHING makes concurrent first-touch creation idempotent.
const insertProfileSQL = `INSERT INTO profiles (user_id) VALUES ($1)
	ON CONFLICT (user_id) DO NOTHING`

const saveTermsSQL = `UPDATE profiles
	SET monitored_doc_name = $2, extracted_search_terms = $3, updated_at = now()
	WHERE user_id = $1`

const incrementUploadSQL = `UPDATE profiles
	SET doc_upload_count = doc_upload_count + 1, updated_at = now()
	WHERE user_id = $1`

// Store manages profile persistence backed by PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a profile Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Get retrieves the profile for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	var p Profile
	err := s.pool.QueryRow(ctx, getProfileSQL, userID).Scan(
		&p.UserID, &p.MonitoredDocName, &p.ExtractedSearchTerms,
		&p.DocUploadCount, &p.DocUploadLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &p, nil
}

// GetOrCreate retrieves the profile for userID, creating it with defaults
// on first use. Concurrent first-touch calls converge on the same row.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, insertProfileSQL, userID); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	s.logger.Debug("created profile", "user_id", userID)

	return s.Get(ctx, userID)
}

// SaveTerms records the monitored document name and its extracted search
// terms. The profile row must already exist.
func (s *Store) SaveTerms(ctx context.Context, userID, docName string, terms []string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if terms == nil {
		terms = []string{}
	}

	tag, err := s.pool.Exec(ctx, saveTermsSQL, userID, docName, terms)
	if err != nil {
		return fmt.Errorf("saving search terms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("saved search terms", "user_id", userID, "doc_name", docName, "terms", len(terms))
	return nil
}

// IncrementUploadCount bumps doc_upload_count after a successful upload.
func (s *Store) IncrementUploadCount(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	tag, err := s.pool.Exec(ctx, incrementUploadSQL, userID)
	if err != nil {
		return fmt.Errorf("incrementing upload count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
