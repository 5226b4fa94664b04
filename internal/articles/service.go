package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kartiksharma1227/LawyerUp/internal/config"
	"github.com/kartiksharma1227/LawyerUp/internal/profile"
)

// ErrNoCaseFile is returned when the user asks for news before uploading a
// case file. The message is shown to the user as-is.
var ErrNoCaseFile = errors.New("no case file uploaded. please upload a case file first")

// ProfileSource loads the monitoring profile a search is built from.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// Searcher runs one news query. Implemented by Client.
type Searcher interface {
	Search(ctx context.Context, query string, daysBack, maxResults int) ([]Article, error)
}

// Enricher fills article content in place. Implemented by Fetcher.
type Enricher interface {
	Enrich(ctx context.Context, arts []Article)
}

// SearchOpts are the per-request knobs. Zero values take configured defaults.
type SearchOpts struct {
	DaysBack     int
	MaxResults   int
	FetchContent bool
}

// Service runs news searches for a user's monitored case.
type Service struct {
	profiles ProfileSource
	searcher Searcher
	enricher Enricher
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// NewService creates the news search service.
func NewService(profiles ProfileSource, searcher Searcher, enricher Enricher,
	cfg config.SearchConfig, logger *slog.Logger) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile source is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles: profiles,
		searcher: searcher,
		enricher: enricher,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// SearchNews builds the query from the user's stored search terms and runs
// it, optionally enriching the results with fetched page content.
func (s *Service) SearchNews(ctx context.Context, userID string, opts SearchOpts) (*SearchResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	prof, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrNoCaseFile
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if !prof.HasSearchTerms() {
		return nil, ErrNoCaseFile
	}

	daysBack := clamp(opts.DaysBack, s.cfg.DaysBack, 1, config.MaxSearchDaysBack)
	maxResults := clamp(opts.MaxResults, s.cfg.MaxResults, 1, config.MaxSearchResults)

	query := BuildQuery(prof.ExtractedSearchTerms)
	arts, err := s.searcher.Search(ctx, query, daysBack, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching news: %w", err)
	}

	if opts.FetchContent && s.enricher != nil && len(arts) > 0 {
		s.enricher.Enrich(ctx, arts)
	}

	s.logger.Info("news search completed",
		"user_id", userID, "articles", len(arts), "enriched", opts.FetchContent)

	return &SearchResult{UserID: userID, Query: query, Articles: arts}, nil
}

// clamp applies the default for zero values and bounds the rest.
func clamp(v, def, minV, maxV int) int {
	if v == 0 {
		v = def
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
