package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartiksharma1227/LawyerUp/internal/articles"
	"github.com/kartiksharma1227/LawyerUp/internal/monitor"
)

func TestArticlesSearch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.news.result = &articles.SearchResult{
		UserID: testUser,
		Query:  "rent act eviction notice",
		Articles: []articles.Article{
			{Title: "Rent Act amendment tabled", Link: "https://news.example.com/1", Source: "example.com"},
			{Title: "High court ruling on eviction timelines", Link: "https://news.example.com/2", Source: "example.com"},
		},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/articles/search", map[string]any{
		"days_back":     14,
		"max_results":   10,
		"fetch_content": true,
	})

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	resp := jsonBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, testUser, resp["user_id"])
	assert.EqualValues(t, 2, resp["articles_found"])
	assert.Equal(t, "rent act eviction notice", resp["search_query"])
	assert.NotContains(t, resp, "message")

	assert.Equal(t, articles.SearchOpts{DaysBack: 14, MaxResults: 10, FetchContent: true}, env.news.gotOpts)
}

func TestArticlesSearch_EmptyBodyUsesDefaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.news.result = &articles.SearchResult{UserID: testUser, Query: "q"}

	rec := env.do(t, http.MethodPost, "/api/v1/articles/search", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	// Zero values let the service apply its own defaults.
	assert.Equal(t, articles.SearchOpts{}, env.news.gotOpts)
}

func TestArticlesSearch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    map[string]any
		wantMsg string
	}{
		{"days_back too low", map[string]any{"days_back": 0}, "days_back must be an integer between 1 and 30"},
		{"days_back too high", map[string]any{"days_back": 31}, "days_back must be an integer between 1 and 30"},
		{"max_results too low", map[string]any{"max_results": 0}, "max_results must be an integer between 1 and 50"},
		{"max_results too high", map[string]any{"max_results": 51}, "max_results must be an integer between 1 and 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/v1/articles/search", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, jsonBody(t, rec)["error"])
		})
	}
}

func TestArticlesSearch_NoCaseFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.news.err = articles.ErrNoCaseFile

	rec := env.do(t, http.MethodPost, "/api/v1/articles/search", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, articles.ErrNoCaseFile.Error(), jsonBody(t, rec)["error"])
}

func TestArticlesSearch_NoResults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.news.result = &articles.SearchResult{UserID: testUser, Query: "obscure terms"}

	rec := env.do(t, http.MethodPost, "/api/v1/articles/search", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := jsonBody(t, rec)
	assert.EqualValues(t, 0, resp["articles_found"])
	assert.Equal(t, "No recent articles found matching your case terms", resp["message"])
}

func TestArticlesAnalyze(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.monitor.result = &monitor.AnalyzeResult{
		ArticlesAnalyzed: 2,
		AlertsCreated:    1,
		Alerts: []monitor.AlertSummary{
			{AlertID: "a1", Title: "Rent Act amendment tabled", Priority: "high", RelatedDocsCount: 3},
		},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/articles/analyze", map[string]any{
		"articles": []map[string]string{
			{"title": "Rent Act amendment tabled", "link": "https://news.example.com/1"},
			{"title": "High court ruling on eviction timelines", "link": "https://news.example.com/2"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	resp := jsonBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.EqualValues(t, 2, resp["articles_analyzed"])
	assert.EqualValues(t, 1, resp["alerts_created"])
	assert.Len(t, resp["alerts"], 1)
	assert.NotContains(t, resp, "message")

	require.Len(t, env.monitor.gotArts, 2)
	assert.Equal(t, "Rent Act amendment tabled", env.monitor.gotArts[0].Title)
}

func TestArticlesAnalyze_NoImpacts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.monitor.result = &monitor.AnalyzeResult{ArticlesAnalyzed: 3, AlertsCreated: 0}

	rec := env.do(t, http.MethodPost, "/api/v1/articles/analyze", map[string]any{
		"articles": []map[string]string{{"title": "t", "link": "https://x.example.com"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := jsonBody(t, rec)
	assert.EqualValues(t, 0, resp["alerts_created"])
	assert.Equal(t, "Articles analyzed but no significant impacts detected on your case", resp["message"])
}

func TestArticlesAnalyze_InvalidArticles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.monitor.err = fmt.Errorf("%w: no articles provided", monitor.ErrInvalidArticles)

	rec := env.do(t, http.MethodPost, "/api/v1/articles/analyze", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid articles: no articles provided", jsonBody(t, rec)["error"])
}
