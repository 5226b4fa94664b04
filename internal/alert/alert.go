// Package alert persists the prioritized alerts produced by article impact
// analysis and serves them back to the owning user.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels. High is reserved for articles matching multiple case
// chunks with strong average similarity.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// Alert lifecycle states.
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// Listing limits for ListByUser.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// RelatedDocument references a case chunk that matched the analyzed article.
// Stored as a JSONB array on the alert row.
type RelatedDocument struct {
	DocumentID     string  `json:"document_id"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         string  `json:"source"`
}

// Alert is one persisted impact finding for a user.
type Alert struct {
	ID               uuid.UUID
	UserID           string
	Title            string
	ArticleLink      string
	Summary          string
	ImpactAnalysis   string
	RelatedDocuments []RelatedDocument
	Priority         string
	Status           string
	CreatedAt        time.Time
	ReadAt           *time.Time
}
