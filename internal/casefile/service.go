// Package casefile implements the case-file pipeline: extracting text from
// an uploaded PDF, deriving the search terms used for news monitoring, and
// indexing the document into the vector store.
package casefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kartiksharma1227/LawyerUp/internal/profile"
)

const (
	// minTextLength is the least extracted text a document must yield.
	minTextLength = 100

	// conceptTextLimit bounds the document prefix sent to the model.
	conceptTextLimit = 8000

	// maxConcepts caps how many model-derived themes are kept.
	maxConcepts = 15

	// minSearchTerms is the smallest term set worth monitoring.
	minSearchTerms = 3

	// conceptTimeout bounds the concept-extraction model call.
	conceptTimeout = 30 * time.Second
)

var (
	// ErrUploadLimit means the profile has spent its document quota.
	ErrUploadLimit = errors.New("upload limit reached")

	// ErrTextTooShort means the PDF yielded too little text to work with.
	ErrTextTooShort = errors.New("pdf text extraction failed or document too short")

	// ErrNoText means extraction produced nothing at all.
	ErrNoText = errors.New("no text extracted from pdf")

	// ErrTooFewTerms means the document produced too few search terms.
	ErrTooFewTerms = errors.New("too few search terms extracted (minimum 3 required)")
)

// conceptPrompt asks the model for the legal themes worth monitoring.
const conceptPrompt = `You are an experienced corporate lawyer and compliance strategist.
Read the following legal document and extract the 10 to 15 most significant legal or regulatory themes it engages with. These are the topics a lawyer would monitor in the news for this client.

Focus on:
- Statutes, acts and regulations referenced
- Legal doctrines and causes of action
- Regulatory bodies and compliance regimes
- Industry-specific legal concerns

Document:
%s

Output only a comma-separated list (no numbering, no commentary, no quotes).`

// ProfileStore is the slice of the profile store the pipeline uses.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	GetOrCreate(ctx context.Context, userID string) (*profile.Profile, error)
	SaveTerms(ctx context.Context, userID, docName string, terms []string) error
	IncrementUploadCount(ctx context.Context, userID string) error
}

// Indexer writes document text into the vector store.
type Indexer interface {
	Index(ctx context.Context, userID, source, text string) (int, error)
}

// UploadResult reports what a successful upload produced.
type UploadResult struct {
	DocName        string   `json:"doc_name"`
	ExtractedTerms []string `json:"extracted_terms"`
	ChunksIndexed  int      `json:"chunks_indexed"`
}

// Status describes a user's monitoring setup.
type Status struct {
	HasUploadedCase     bool   `json:"has_uploaded_case"`
	ExtractedTermsCount int    `json:"extracted_terms_count"`
	UploadCount         int    `json:"upload_count"`
	UploadLimit         int    `json:"upload_limit"`
	MonitoredDocName    string `json:"monitored_doc_name"`
}

// Service runs the case-file pipeline end to end.
type Service struct {
	profiles  ProfileStore
	indexer   Indexer
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger

	// extractText parses PDF bytes. Defaults to ExtractText.
	extractText func(data []byte) (string, error)
}

// NewService creates the pipeline service. modelName must be
// provider-qualified (e.g. "googleai/gemini-2.5-flash").
func NewService(profiles ProfileStore, indexer Indexer, g *genkit.Genkit, modelName string, logger *slog.Logger) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		profiles:    profiles,
		indexer:     indexer,
		g:           g,
		modelName:   modelName,
		logger:      logger,
		extractText: ExtractText,
	}, nil
}

// Upload runs the full pipeline for one document: quota check, text
// extraction, term derivation, profile update, vector indexing. The term
// set is saved before indexing, so a failed index still leaves the
// monitoring terms in place; the quota is spent only after everything
// else succeeded.
func (s *Service) Upload(ctx context.Context, userID, docName string, pdfData []byte) (*UploadResult, error) {
	prof, err := s.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if !prof.CanUpload() {
		return nil, fmt.Errorf("%w (%d/%d)", ErrUploadLimit, prof.DocUploadCount, prof.DocUploadLimit)
	}

	text, err := s.extractText(pdfData)
	if err != nil {
		s.logger.Warn("pdf extraction failed",
			"user_id", userID,
			"doc_name", docName,
			"error", err,
		)
		return nil, ErrTextTooShort
	}
	if len([]rune(text)) < minTextLength {
		return nil, ErrTextTooShort
	}

	terms := s.deriveTerms(ctx, text)
	if err := validateExtraction(text, terms); err != nil {
		return nil, err
	}

	if err := s.profiles.SaveTerms(ctx, userID, docName, terms); err != nil {
		return nil, fmt.Errorf("saving search terms: %w", err)
	}

	chunks, err := s.indexer.Index(ctx, userID, docName, text)
	if err != nil {
		return nil, fmt.Errorf("indexing document: %w", err)
	}

	if err := s.profiles.IncrementUploadCount(ctx, userID); err != nil {
		return nil, fmt.Errorf("recording upload: %w", err)
	}

	s.logger.Info("case file uploaded",
		"user_id", userID,
		"doc_name", docName,
		"terms", len(terms),
		"chunks_indexed", chunks,
	)

	return &UploadResult{
		DocName:        docName,
		ExtractedTerms: terms,
		ChunksIndexed:  chunks,
	}, nil
}

// deriveTerms combines the heuristic entity scan with model-extracted
// themes. The model call is best effort; when it fails only scanned
// entities are used.
func (s *Service) deriveTerms(ctx context.Context, text string) []string {
	entities := scanEntities(text)
	concepts := s.extractConcepts(ctx, text)

	return mergeTerms(entities, concepts)
}

func (s *Service) extractConcepts(ctx context.Context, text string) []string {
	ctx, cancel := context.WithTimeout(ctx, conceptTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(conceptPrompt, truncateRunes(text, conceptTextLimit)),
	)
	if err != nil {
		s.logger.Warn("concept extraction failed, keeping scanned entities only", "error", err)
		return nil
	}

	return parseConceptList(resp.Text(), maxConcepts)
}

// validateExtraction checks pipeline output before anything is persisted.
func validateExtraction(text string, terms []string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoText
	}
	if len(terms) < minSearchTerms {
		return ErrTooFewTerms
	}

	return nil
}

// Status reports the user's monitoring setup. Users without a profile row
// get the defaults; nothing is written.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	prof, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return &Status{UploadLimit: profile.DefaultUploadLimit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	return &Status{
		HasUploadedCase:     prof.MonitoredDocName != "",
		ExtractedTermsCount: len(prof.ExtractedSearchTerms),
		UploadCount:         prof.DocUploadCount,
		UploadLimit:         prof.DocUploadLimit,
		MonitoredDocName:    prof.MonitoredDocName,
	}, nil
}
