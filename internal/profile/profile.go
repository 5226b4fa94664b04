// Package profile persists per-user monitoring profiles: the uploaded case
// document name, the search terms extracted from it, and the upload quota.
package profile

import (
	"time"
)

// DefaultUploadLimit is the upload quota for new profiles. It must match
// the doc_upload_limit column default in the schema.
const DefaultUploadLimit = 1

// Profile is one user's monitoring state. A profile row is created lazily on
// first use with a default upload limit of one document.
type Profile struct {
	UserID               string
	MonitoredDocName     string
	ExtractedSearchTerms []string
	DocUploadCount       int
	DocUploadLimit       int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CanUpload reports whether the user has remaining upload quota.
func (p *Profile) CanUpload() bool {
	return p.DocUploadCount < p.DocUploadLimit
}

// HasSearchTerms reports whether a case file has been processed for this user.
func (p *Profile) HasSearchTerms() bool {
	return len(p.ExtractedSearchTerms) > 0
}
