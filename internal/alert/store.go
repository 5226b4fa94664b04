package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an alert does not exist for the given user.
var ErrNotFound = errors.New("alert not found")

// alertCols is the standard SELECT column list for scanAlerts.
const alertCols = `id, user_id, title, article_link, summary, impact_analysis,
	related_documents, priority, status, created_at, read_at`

const insertAlertSQL = `INSERT INTO alerts
	(id, user_id, title, article_link, summary, impact_analysis, related_documents, priority, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at`

const listAlertsSQL = `SELECT ` + alertCols + ` FROM alerts
	WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

const listAlertsByStatusSQL = `SELECT ` + alertCols + ` FROM alerts
	WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3`

const markReadSQL = `UPDATE alerts SET status = 'read', read_at = now()
	WHERE id = $1 AND user_id = $2`

// Store manages alert persistence backed by PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates an alert Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create persists a new alert. A zero ID is assigned, an empty status
// defaults to unread, and CreatedAt is filled from the database.
func (s *Store) Create(ctx context.Context, a *Alert) error {
	if a == nil {
		return fmt.Errorf("alert is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if a.Priority != PriorityHigh && a.Priority != PriorityMedium {
		return fmt.Errorf("invalid priority %q", a.Priority)
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusUnread
	}
	if a.RelatedDocuments == nil {
		a.RelatedDocuments = []RelatedDocument{}
	}

	relatedJSON, err := json.Marshal(a.RelatedDocuments)
	if err != nil {
		return fmt.Errorf("marshaling related documents: %w", err)
	}

	err = s.pool.QueryRow(ctx, insertAlertSQL,
		a.ID, a.UserID, a.Title, a.ArticleLink, a.Summary, a.ImpactAnalysis,
		relatedJSON, a.Priority, a.Status,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}

	s.logger.Debug("created alert",
		"alert_id", a.ID, "user_id", a.UserID, "priority", a.Priority)
	return nil
}

// ListByUser returns the user's alerts ordered newest first. An empty status
// returns all alerts; otherwise only alerts in that state. A non-positive
// limit applies DefaultListLimit.
func (s *Store) ListByUser(ctx context.Context, userID, status string, limit int) ([]*Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx, listAlertsSQL, userID, limit)
	} else {
		rows, err = s.pool.Query(ctx, listAlertsByStatusSQL, userID, status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*Alert, 0, limit)
	for rows.Next() {
		var (
			a           Alert
			relatedJSON []byte
		)
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Title, &a.ArticleLink, &a.Summary, &a.ImpactAnalysis,
			&relatedJSON, &a.Priority, &a.Status, &a.CreatedAt, &a.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		if err := json.Unmarshal(relatedJSON, &a.RelatedDocuments); err != nil {
			s.logger.Warn("skipping alert with malformed related documents",
				"alert_id", a.ID, "error", err)
			continue
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading alerts: %w", err)
	}
	return alerts, nil
}

// MarkRead transitions an alert to read and stamps read_at. Unknown IDs and
// alerts belonging to other users return ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, alertID uuid.UUID, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	tag, err := s.pool.Exec(ctx, markReadSQL, alertID, userID)
	if err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("marked alert read", "alert_id", alertID, "user_id", userID)
	return nil
}
