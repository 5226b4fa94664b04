package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartiksharma1227/LawyerUp/internal/alert"
	"github.com/kartiksharma1227/LawyerUp/internal/analyser"
	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/auth"
	"github.com/kartiksharma1227/LawyerUp/internal/casefile"
	"github.com/kartiksharma1227/LawyerUp/internal/chat"
	"github.com/kartiksharma1227/LawyerUp/internal/monitor"
	"github.com/kartiksharma1227/LawyerUp/internal/security"
)

// The handlers consume narrow slices of the domain services so they can be
// tested against fakes.

// CaseFileService runs the case-file pipeline and reports monitoring status.
type CaseFileService interface {
	Upload(ctx context.Context, userID, docName string, pdfData []byte) (*casefile.UploadResult, error)
	Status(ctx context.Context, userID string) (*casefile.Status, error)
}

// NewsSearcher runs a news search for a user's monitored case.
type NewsSearcher interface {
	SearchNews(ctx context.Context, userID string, opts articles.SearchOpts) (*articles.SearchResult, error)
}

// ArticleAnalyzer matches articles against the user's case and saves alerts.
type ArticleAnalyzer interface {
	Analyze(ctx context.Context, userID string, arts []articles.Article) (*monitor.AnalyzeResult, error)
}

// AlertStore reads and transitions stored alerts.
type AlertStore interface {
	ListByUser(ctx context.Context, userID, status string, limit int) ([]*alert.Alert, error)
	MarkRead(ctx context.Context, alertID uuid.UUID, userID string) error
}

// ChatService answers legal questions and replays conversation history.
type ChatService interface {
	Chat(ctx context.Context, userID, message string) (string, error)
	History(ctx context.Context, userID string) ([]chat.HistoryEntry, error)
}

// AnalyserService explains uploaded documents and answers questions on them.
type AnalyserService interface {
	Upload(ctx context.Context, userID string, docs []analyser.Document) (*analyser.UploadResult, error)
	Explain(ctx context.Context, userID, language string) (string, error)
	Ask(ctx context.Context, userID, question string) (string, error)
}

// ServerConfig contains the dependencies for building the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Auth        auth.Verifier   // Required
	CaseFiles   CaseFileService // Required
	News        NewsSearcher    // Required
	Monitor     ArticleAnalyzer // Required
	Alerts      AlertStore      // Required
	Chat        ChatService     // Required
	Analyser    AnalyserService // Required
	Pool        *pgxpool.Pool   // Optional: nil skips the DB ping in /ready
	CORSOrigins []string        // Allowed origins for CORS
	IsDev       bool            // Disables HSTS (plain HTTP in development)
	TrustProxy  bool            // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int             // Rate limiter burst per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Auth == nil:
		return nil, errors.New("token verifier is required")
	case cfg.CaseFiles == nil:
		return nil, errors.New("case file service is required")
	case cfg.News == nil:
		return nil, errors.New("news searcher is required")
	case cfg.Monitor == nil:
		return nil, errors.New("article analyzer is required")
	case cfg.Alerts == nil:
		return nil, errors.New("alert store is required")
	case cfg.Chat == nil:
		return nil, errors.New("chat service is required")
	case cfg.Analyser == nil:
		return nil, errors.New("analyser service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cf := &caseFileHandler{svc: cfg.CaseFiles, logger: logger}
	ar := &articlesHandler{news: cfg.News, monitor: cfg.Monitor, logger: logger}
	al := &alertsHandler{store: cfg.Alerts, logger: logger}
	ch := &chatHandler{svc: cfg.Chat, prompts: security.NewPromptValidator(), logger: logger}
	an := &analyserHandler{svc: cfg.Analyser, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/case-file", cf.upload)
	mux.HandleFunc("GET /api/v1/profile", cf.profile)
	mux.HandleFunc("POST /api/v1/articles/search", ar.search)
	mux.HandleFunc("POST /api/v1/articles/analyze", ar.analyze)
	mux.HandleFunc("GET /api/v1/alerts", al.list)
	mux.HandleFunc("POST /api/v1/alerts/{id}/read", al.markRead)
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("GET /api/v1/chat/history", ch.history)
	mux.HandleFunc("POST /api/v1/analyser/documents", an.upload)
	mux.HandleFunc("GET /api/v1/analyser/explanation", an.explain)
	mux.HandleFunc("POST /api/v1/analyser/questions", an.ask)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.Auth, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes stay outside auth and rate limiting.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
