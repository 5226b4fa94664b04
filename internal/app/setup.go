package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kartiksharma1227/LawyerUp/db"
	"github.com/kartiksharma1227/LawyerUp/internal/alert"
	"github.com/kartiksharma1227/LawyerUp/internal/analyser"
	"github.com/kartiksharma1227/LawyerUp/internal/config"
	"github.com/kartiksharma1227/LawyerUp/internal/conversation"
	"github.com/kartiksharma1227/LawyerUp/internal/knowledge"
	"github.com/kartiksharma1227/LawyerUp/internal/library"
	"github.com/kartiksharma1227/LawyerUp/internal/profile"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideTracing(ctx, cfg)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	postgres, err := providePostgresPlugin(ctx, pool, cfg)
	if err != nil {
		return nil, err
	}

	g, err := provideGenkit(ctx, postgres)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	docStore, retriever, err := provideLibrary(ctx, g, postgres, embedder)
	if err != nil {
		return nil, err
	}
	a.Retriever = retriever

	logger := slog.Default()

	if a.CaseChunks, err = knowledge.NewStore(pool, embedder, knowledge.TableCaseChunks, logger); err != nil {
		return nil, fmt.Errorf("creating case chunk store: %w", err)
	}
	if a.AnalyserChunks, err = knowledge.NewStore(pool, embedder, knowledge.TableAnalyserChunks, logger); err != nil {
		return nil, fmt.Errorf("creating analyser chunk store: %w", err)
	}
	if a.Profiles, err = profile.NewStore(pool, logger); err != nil {
		return nil, fmt.Errorf("creating profile store: %w", err)
	}
	if a.Alerts, err = alert.NewStore(pool, logger); err != nil {
		return nil, fmt.Errorf("creating alert store: %w", err)
	}
	if a.Conversations, err = conversation.NewStore(pool, logger); err != nil {
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}
	if a.Texts, err = analyser.NewTextStore(cfg.DataDir, logger); err != nil {
		return nil, fmt.Errorf("creating text store: %w", err)
	}
	if a.Library, err = library.NewStore(docStore, pool, logger); err != nil {
		return nil, fmt.Errorf("creating library store: %w", err)
	}
	if a.Ingester, err = library.NewIngester(a.Library, logger); err != nil {
		return nil, fmt.Errorf("creating ingester: %w", err)
	}

	return a, nil
}

// provideTracing wires an OTLP trace exporter into Genkit's TracerProvider.
// Must run before provideGenkit so the processor is registered when spans
// start flowing. An empty endpoint disables export.
func provideTracing(ctx context.Context, cfg *config.Config) func() {
	endpoint := cfg.TelemetryEndpoint
	if endpoint == "" {
		slog.Debug("telemetry endpoint not configured, trace export disabled")
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		slog.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("trace export enabled", "endpoint", endpoint)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// providePostgresPlugin wraps the connection pool for Genkit's DocStore.
func providePostgresPlugin(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) (*postgresql.Postgres, error) {
	pEngine, err := postgresql.NewPostgresEngine(ctx, postgresql.WithPool(pool), postgresql.WithDatabase(cfg.PostgresDBName))
	if err != nil {
		return nil, fmt.Errorf("creating postgres engine: %w", err)
	}

	return &postgresql.Postgres{Engine: pEngine}, nil
}

// provideGenkit initializes Genkit with the Gemini and PostgreSQL plugins.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, postgres *postgresql.Postgres) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}, postgres))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideLibrary defines the statute library retriever over the documents
// table. The DocStore indexes, the Retriever searches.
func provideLibrary(ctx context.Context, g *genkit.Genkit, postgres *postgresql.Postgres, embedder ai.Embedder) (*postgresql.DocStore, ai.Retriever, error) {
	docStore, retriever, err := postgresql.DefineRetriever(ctx, g, postgres, library.NewDocStoreConfig(embedder))
	if err != nil {
		return nil, nil, fmt.Errorf("defining library retriever: %w", err)
	}

	return docStore, retriever, nil
}
