package api

import (
	"log/slog"
	"net/http"

	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/monitor"
)

// articlesHandler serves the two-step monitoring workflow: search for news
// first, then analyze the articles the user selected.
type articlesHandler struct {
	news    NewsSearcher
	monitor ArticleAnalyzer
	logger  *slog.Logger
}

type searchRequest struct {
	DaysBack     *int `json:"days_back"`
	MaxResults   *int `json:"max_results"`
	FetchContent bool `json:"fetch_content"`
}

type searchResponse struct {
	Success       bool               `json:"success"`
	UserID        string             `json:"user_id"`
	ArticlesFound int                `json:"articles_found"`
	Articles      []articles.Article `json:"articles"`
	SearchQuery   string             `json:"search_query"`
	Message       string             `json:"message,omitempty"`
}

// search handles POST /api/v1/articles/search. The body is optional;
// omitted parameters use the configured defaults.
func (h *articlesHandler) search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := articles.SearchOpts{FetchContent: req.FetchContent}
	if req.DaysBack != nil {
		if *req.DaysBack < 1 || *req.DaysBack > 30 {
			writeError(w, http.StatusBadRequest, "days_back must be an integer between 1 and 30")
			return
		}
		opts.DaysBack = *req.DaysBack
	}
	if req.MaxResults != nil {
		if *req.MaxResults < 1 || *req.MaxResults > 50 {
			writeError(w, http.StatusBadRequest, "max_results must be an integer between 1 and 50")
			return
		}
		opts.MaxResults = *req.MaxResults
	}

	result, err := h.news.SearchNews(r.Context(), userID, opts)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := searchResponse{
		Success:       true,
		UserID:        userID,
		ArticlesFound: len(result.Articles),
		Articles:      result.Articles,
		SearchQuery:   result.Query,
	}
	if len(result.Articles) == 0 {
		resp.Message = "No recent articles found matching your case terms"
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Articles []articles.Article `json:"articles"`
}

type analyzeResponse struct {
	Success          bool                   `json:"success"`
	UserID           string                 `json:"user_id"`
	ArticlesAnalyzed int                    `json:"articles_analyzed"`
	AlertsCreated    int                    `json:"alerts_created"`
	Alerts           []monitor.AlertSummary `json:"alerts"`
	Message          string                 `json:"message,omitempty"`
}

// analyze handles POST /api/v1/articles/analyze.
func (h *articlesHandler) analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.monitor.Analyze(r.Context(), userID, req.Articles)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := analyzeResponse{
		Success:          true,
		UserID:           userID,
		ArticlesAnalyzed: result.ArticlesAnalyzed,
		AlertsCreated:    result.AlertsCreated,
		Alerts:           result.Alerts,
	}
	if result.AlertsCreated == 0 && result.ArticlesAnalyzed > 0 {
		resp.Message = "Articles analyzed but no significant impacts detected on your case"
	}

	writeJSON(w, http.StatusOK, resp)
}
