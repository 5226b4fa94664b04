package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

const conversationCols = `id, user_id, title, created_at, updated_at`

const messageCols = `id, conversation_id, sequence, role, content, created_at`

const getLatestConversationSQL = `SELECT ` + conversationCols + `
	FROM conversations
	WHERE user_id = $1
	ORDER BY updated_at DESC
	LIMIT 1`

const insertConversationSQL = `INSERT INTO conversations (id, user_id, title)
	VALUES ($1, $2, $3)
	RETURNING created_at, updated_at`

const lockConversationSQL = `SELECT 1 FROM conversations WHERE id = $1 FOR UPDATE`

const nextSequenceSQL = `SELECT COALESCE(MAX(sequence), 0) + 1
	FROM conversation_messages
	WHERE conversation_id = $1`

const insertMessageSQL = `INSERT INTO conversation_messages (conversation_id, sequence, role, content)
	VALUES ($1, $2, $3, $4)`

const touchConversationSQL = `UPDATE conversations SET updated_at = now() WHERE id = $1`

const updateTitleSQL = `UPDATE conversations SET title = $2, updated_at = now() WHERE id = $1`

const recentMessagesSQL = `SELECT ` + messageCols + `
	FROM conversation_messages
	WHERE conversation_id = $1
	ORDER BY sequence DESC
	LIMIT $2`

const historySQL = `SELECT ` + messageCols + `
	FROM conversation_messages
	WHERE conversation_id = (
		SELECT id FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1
	)
	ORDER BY sequence DESC
	LIMIT $2`

// Store persists conversations in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a conversation Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{pool: pool, logger: logger}, nil
}

// GetOrCreate returns the user's active conversation, creating one when the
// user has none.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	c := &Conversation{UserID: userID}
	err := s.pool.QueryRow(ctx, getLatestConversationSQL, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	c.ID = uuid.New()
	err = s.pool.QueryRow(ctx, insertConversationSQL, c.ID, userID, "").
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Debug("conversation created", "conversation_id", c.ID, "user_id", userID)

	return c, nil
}

// AddExchange appends one user message and the model's reply as consecutive
// messages. The sequence numbers are assigned under a row lock on the
// conversation, so concurrent exchanges cannot collide.
func (s *Store) AddExchange(ctx context.Context, conversationID uuid.UUID, userContent, modelContent string) error {
	if conversationID == uuid.Nil {
		return fmt.Errorf("conversation id is required")
	}
	if userContent == "" || modelContent == "" {
		return fmt.Errorf("message content is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	var one int
	if err := tx.QueryRow(ctx, lockConversationSQL, conversationID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking conversation: %w", err)
	}

	var next int
	if err := tx.QueryRow(ctx, nextSequenceSQL, conversationID).Scan(&next); err != nil {
		return fmt.Errorf("getting next sequence: %w", err)
	}

	if _, err := tx.Exec(ctx, insertMessageSQL, conversationID, next, RoleUser, userContent); err != nil {
		return fmt.Errorf("inserting user message: %w", err)
	}
	if _, err := tx.Exec(ctx, insertMessageSQL, conversationID, next+1, RoleModel, modelContent); err != nil {
		return fmt.Errorf("inserting model message: %w", err)
	}
	if _, err := tx.Exec(ctx, touchConversationSQL, conversationID); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing exchange: %w", err)
	}

	s.logger.Debug("exchange added", "conversation_id", conversationID, "sequence", next)

	return nil
}

// UpdateTitle sets the conversation title.
func (s *Store) UpdateTitle(ctx context.Context, conversationID uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, updateTitleSQL, conversationID, title)
	if err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Recent returns the newest messages of a conversation in chronological
// order, at most limit entries.
func (s *Store) Recent(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, recentMessagesSQL, conversationID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// History returns the newest messages of the user's active conversation in
// chronological order, at most limit entries. Users with no conversation
// get an empty history.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, historySQL, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// scanMessages consumes rows ordered newest-first and returns them oldest
// first.
func scanMessages(rows pgx.Rows) ([]Message, error) {
	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sequence, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}

	return limit
}
