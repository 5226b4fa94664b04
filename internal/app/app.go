// Package app assembles the application: telemetry, database, Genkit, the
// stores, and the domain services the commands run.
package app

import (
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartiksharma1227/LawyerUp/internal/alert"
	"github.com/kartiksharma1227/LawyerUp/internal/analyser"
	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/auth"
	"github.com/kartiksharma1227/LawyerUp/internal/casefile"
	"github.com/kartiksharma1227/LawyerUp/internal/chat"
	"github.com/kartiksharma1227/LawyerUp/internal/config"
	"github.com/kartiksharma1227/LawyerUp/internal/conversation"
	"github.com/kartiksharma1227/LawyerUp/internal/knowledge"
	"github.com/kartiksharma1227/LawyerUp/internal/library"
	"github.com/kartiksharma1227/LawyerUp/internal/monitor"
	"github.com/kartiksharma1227/LawyerUp/internal/profile"
	"github.com/kartiksharma1227/LawyerUp/internal/security"
)

// App is the application container: shared infrastructure plus the stores
// every command needs. Request-serving services are built on top of it with
// BuildServices.
type App struct {
	Config *config.Config

	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Pool      *pgxpool.Pool
	Retriever ai.Retriever

	Profiles       *profile.Store
	CaseChunks     *knowledge.Store
	AnalyserChunks *knowledge.Store
	Alerts         *alert.Store
	Conversations  *conversation.Store
	Texts          *analyser.TextStore
	Library        *library.Store
	Ingester       *library.Ingester

	otelCleanup func()
}

// Close releases all resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		slog.Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// Services are the request-serving domain services. They are separate from
// Setup because they need the serve-only credentials (search, identity)
// that ingest runs without.
type Services struct {
	CaseFiles *casefile.Service
	News      *articles.Service
	Monitor   *monitor.Service
	Chat      *chat.Service
	Analyser  *analyser.Service
	Auth      *auth.IdentityClient
}

// BuildServices wires the domain services onto the app's stores.
func (a *App) BuildServices() (*Services, error) {
	cfg := a.Config
	logger := slog.Default()
	model := cfg.FullModelName()

	caseFiles, err := casefile.NewService(a.Profiles, a.CaseChunks, a.Genkit, model, logger)
	if err != nil {
		return nil, fmt.Errorf("creating case file service: %w", err)
	}

	searcher, err := articles.NewClient(cfg.Search.APIKey, cfg.Search.EngineID, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search client: %w", err)
	}
	fetcher, err := articles.NewFetcher(cfg.Fetcher, security.NewURL(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating article fetcher: %w", err)
	}
	news, err := articles.NewService(a.Profiles, searcher, fetcher, cfg.Search, logger)
	if err != nil {
		return nil, fmt.Errorf("creating news service: %w", err)
	}

	mon, err := monitor.NewService(a.CaseChunks, a.Alerts, a.Genkit, model, logger)
	if err != nil {
		return nil, fmt.Errorf("creating monitor service: %w", err)
	}

	chatSvc, err := chat.NewService(a.Conversations, a.Retriever, a.Genkit, model, logger)
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}

	an, err := analyser.NewService(a.AnalyserChunks, a.Texts, a.Genkit, model, logger)
	if err != nil {
		return nil, fmt.Errorf("creating analyser service: %w", err)
	}

	verifier, err := auth.NewIdentityClient(cfg.IdentityURL, logger)
	if err != nil {
		return nil, fmt.Errorf("creating identity client: %w", err)
	}

	return &Services{
		CaseFiles: caseFiles,
		News:      news,
		Monitor:   mon,
		Chat:      chatSvc,
		Analyser:  an,
		Auth:      verifier,
	}, nil
}
