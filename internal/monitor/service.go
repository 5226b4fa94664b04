// Package monitor turns searched news articles into case impact alerts.
// Each article is summarized, matched against the user's indexed case
// chunks, run through a conservative impact judgment, and persisted as an
// alert when the model finds an actionable connection.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kartiksharma1227/LawyerUp/internal/alert"
	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/knowledge"
)

const (
	// MaxArticlesPerRequest caps one analysis request.
	MaxArticlesPerRequest = 20

	// matchTopK is how many case chunks each article is matched against.
	matchTopK = 3

	// matchMinScore is the similarity floor for a chunk to count as a match.
	matchMinScore = 0.7

	// highPriorityMinScore is the average similarity above which an alert
	// with multiple matches is marked high priority.
	highPriorityMinScore = 0.8

	// minImpactRunes drops model responses too short to be an analysis.
	minImpactRunes = 50

	// contextChunkLimit caps each chunk excerpt in the impact prompt.
	contextChunkLimit = 500

	// llmTimeout bounds each model call.
	llmTimeout = 30 * time.Second
)

// noImpactMarker is the exact token the impact prompt requests when the
// development does not touch the user's case.
const noImpactMarker = "NO_IMPACT"

// ErrInvalidArticles is wrapped by all analysis input validation failures.
var ErrInvalidArticles = errors.New("invalid articles")

const summaryPrompt = `You are an experienced legal analyst briefing corporate counsel.

**Goal:** Summarize this article in 2 to 3 sentences (under 100 words) so the lawyer instantly understands the legal or regulatory significance and which types of documents or obligations it may affect.

**Article Title:** %s

**Article Content:** %s

**Instructions:**
- Highlight what changed (law, ruling, regulation, or enforcement trend)
- Mention who or what is affected (companies, sectors, contract types)
- Use clear, factual legal language (no fluff or speculation)
- End with a short note on potential action or relevance
- Do not exceed 3 sentences.
- No bullet points, no introduction text.

**Your Summary:**`

const impactPrompt = `You are a senior legal advisor evaluating the practical impact of a new legal or regulatory development on a company's existing documents (contracts, policies, or case materials).

**New Development:**
Title: %s
Summary: %s

**Potentially Affected Documents:**
%s

**Your Task:**
Analyze whether this new development has any direct and material effect on the obligations, clauses, or positions found in these documents.

**Instructions:**
1. Determine if the development introduces new legal duties, risks, or invalidates existing clauses.
2. If YES: write 2 to 3 sentences explaining why it matters, name the type of impact (compliance update, contract revision, litigation risk), and suggest the next action.
3. If there is no clear or actionable connection, respond with exactly:
   NO_IMPACT
4. Be conservative and flag only strong, evidence-backed connections.
5. Write in concise, professional language (no speculation, no unnecessary detail).

**Your Analysis:**`

// CaseSearcher is the slice of the vector store the analysis uses.
type CaseSearcher interface {
	Search(ctx context.Context, query, userID string, topK int, minScore float64) ([]knowledge.Result, error)
}

// AlertWriter persists generated alerts.
type AlertWriter interface {
	Create(ctx context.Context, a *alert.Alert) error
}

// AlertSummary is the per-alert entry in an analysis response.
type AlertSummary struct {
	AlertID          string `json:"alert_id"`
	Title            string `json:"title"`
	Priority         string `json:"priority"`
	RelatedDocsCount int    `json:"related_docs_count"`
}

// AnalyzeResult reports one analysis run.
type AnalyzeResult struct {
	ArticlesAnalyzed int            `json:"articles_analyzed"`
	AlertsCreated    int            `json:"alerts_created"`
	Alerts           []AlertSummary `json:"alerts"`
}

// briefing is a summarized article ready for impact matching.
type briefing struct {
	title   string
	link    string
	summary string
}

// Service runs the analysis pipeline.
type Service struct {
	cases     CaseSearcher
	alerts    AlertWriter
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewService creates the analysis service. modelName must be
// provider-qualified (e.g. "googleai/gemini-2.5-flash").
func NewService(cases CaseSearcher, alerts AlertWriter, g *genkit.Genkit, modelName string, logger *slog.Logger) (*Service, error) {
	if cases == nil {
		return nil, fmt.Errorf("case searcher is required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert store is required")
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
		cases:     cases,
		alerts:    alerts,
		g:         g,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Analyze summarizes the given articles, matches each against the user's
// case chunks, and saves an alert for every article with a real impact.
// Individual article failures are logged and skipped; the run only fails
// on invalid input.
func (s *Service) Analyze(ctx context.Context, userID string, arts []articles.Article) (*AnalyzeResult, error) {
	if err := validateArticles(arts); err != nil {
		return nil, err
	}

	briefings := s.summarizeAll(ctx, arts)
	result := &AnalyzeResult{
		ArticlesAnalyzed: len(briefings),
		Alerts:           []AlertSummary{},
	}
	if len(briefings) == 0 {
		s.logger.Warn("no briefings generated", "user_id", userID, "articles", len(arts))
		return result, nil
	}

	for _, b := range briefings {
		created, err := s.processBriefing(ctx, userID, b)
		if err != nil {
			s.logger.Error("briefing processing failed", "title", b.title, "error", err)
			continue
		}
		if created == nil {
			continue
		}
		result.Alerts = append(result.Alerts, *created)
	}
	result.AlertsCreated = len(result.Alerts)

	s.logger.Info("analysis complete",
		"user_id", userID,
		"articles_analyzed", result.ArticlesAnalyzed,
		"alerts_created", result.AlertsCreated,
	)

	return result, nil
}

// summarizeAll turns articles into briefings, dropping the ones the model
// could not summarize.
func (s *Service) summarizeAll(ctx context.Context, arts []articles.Article) []briefing {
	briefings := make([]briefing, 0, len(arts))
	for _, art := range arts {
		summary, err := s.summarize(ctx, art)
		if err != nil {
			s.logger.Warn("summarization failed, skipping article", "title", art.Title, "error", err)
			continue
		}
		briefings = append(briefings, briefing{title: art.Title, link: art.Link, summary: summary})
	}

	return briefings
}

func (s *Service) summarize(ctx context.Context, art articles.Article) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(summaryPrompt, art.Title, art.Snippet),
	)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}

	return summary, nil
}

// processBriefing runs match, impact judgment and persistence for one
// briefing. A nil, nil return means the article produced no alert.
func (s *Service) processBriefing(ctx context.Context, userID string, b briefing) (*AlertSummary, error) {
	matches, err := s.cases.Search(ctx, b.title+" "+b.summary, userID, matchTopK, matchMinScore)
	if err != nil {
		return nil, fmt.Errorf("searching case chunks: %w", err)
	}
	if len(matches) == 0 {
		s.logger.Debug("no relevant case chunks", "title", b.title)
		return nil, nil
	}

	impact := s.assessImpact(ctx, b, matches)
	if impact == "" {
		s.logger.Debug("no significant impact", "title", b.title)
		return nil, nil
	}

	var total float64
	for _, m := range matches {
		total += m.Similarity
	}
	avg := total / float64(len(matches))

	priority := alert.PriorityMedium
	if len(matches) > 1 && avg > highPriorityMinScore {
		priority = alert.PriorityHigh
	}

	related := make([]alert.RelatedDocument, len(matches))
	for i, m := range matches {
		related[i] = alert.RelatedDocument{
			DocumentID:     m.ID,
			RelevanceScore: m.Similarity,
			Source:         m.Source,
		}
	}

	a := &alert.Alert{
		UserID:           userID,
		Title:            b.title,
		ArticleLink:      b.link,
		Summary:          b.summary,
		ImpactAnalysis:   impact,
		RelatedDocuments: related,
		Priority:         priority,
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("saving alert: %w", err)
	}

	s.logger.Info("alert created",
		"alert_id", a.ID,
		"priority", priority,
		"matches", len(matches),
	)

	return &AlertSummary{
		AlertID:          a.ID.String(),
		Title:            b.title,
		Priority:         priority,
		RelatedDocsCount: len(matches),
	}, nil
}

// assessImpact asks the model whether the development touches the matched
// case chunks. Returns "" when the model answers NO_IMPACT, responds too
// briefly, or fails.
func (s *Service) assessImpact(ctx context.Context, b briefing, matches []knowledge.Result) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("[Document %d - %s | Relevance: %.2f]\n%s\n",
			i+1, m.Source, m.Similarity, truncateRunes(m.Content, contextChunkLimit))
	}
	docContext := strings.Join(blocks, "\n")

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(impactPrompt, b.title, b.summary, docContext),
	)
	if err != nil {
		s.logger.Warn("impact analysis failed", "title", b.title, "error", err)
		return ""
	}

	impact := strings.TrimSpace(resp.Text())
	if strings.Contains(strings.ToUpper(impact), noImpactMarker) {
		return ""
	}
	if utf8.RuneCountInString(impact) < minImpactRunes {
		return ""
	}

	return impact
}

// validateArticles rejects malformed analysis input. Fields are checked in
// a fixed order so the reported failure is deterministic.
func validateArticles(arts []articles.Article) error {
	if len(arts) == 0 {
		return fmt.Errorf("%w: no articles provided", ErrInvalidArticles)
	}
	if len(arts) > MaxArticlesPerRequest {
		return fmt.Errorf("%w: too many articles (maximum %d per request)", ErrInvalidArticles, MaxArticlesPerRequest)
	}
	for i, a := range arts {
		switch {
		case strings.TrimSpace(a.Title) == "":
			return fmt.Errorf("%w: article %d missing required field: title", ErrInvalidArticles, i)
		case strings.TrimSpace(a.Link) == "":
			return fmt.Errorf("%w: article %d missing required field: link", ErrInvalidArticles, i)
		case strings.TrimSpace(a.Snippet) == "":
			return fmt.Errorf("%w: article %d missing required field: snippet", ErrInvalidArticles, i)
		}
	}

	return nil
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}
