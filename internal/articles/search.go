package articles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	searchEndpoint = "https://www.googleapis.com/customsearch/v1"

	// pageSize is the API maximum per request.
	pageSize = 10

	// maxQueryTerms caps how many profile terms go into one query.
	maxQueryTerms = 10

	searchRequestTimeout = 15 * time.Second
)

// Client calls the Google Custom Search JSON API.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	httpClient *http.Client
	apiKey     string
	engineID   string
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a search client. Requests are paced to stay inside the
// API quota.
func NewClient(apiKey, engineID string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if engineID == "" {
		return nil, fmt.Errorf("search engine ID is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: searchRequestTimeout},
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    searchEndpoint,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		logger:     logger,
	}, nil
}

// BuildQuery turns extracted search terms into one OR-joined query. Terms
// are quoted for exact matching; at most maxQueryTerms are used.
func BuildQuery(terms []string) string {
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(strings.ReplaceAll(t, `"`, ""))
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// searchResponse is the subset of the API response we consume.
type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// Search runs the query restricted to the last daysBack days and collects up
// to maxResults articles across pages of ten. A failing page stops
// pagination; whatever was already collected is returned. Results are
// deduplicated by URL keeping the first occurrence.
func (c *Client) Search(ctx context.Context, query string, daysBack, maxResults int) ([]Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if daysBack < 1 {
		daysBack = 1
	}
	if maxResults < 1 {
		maxResults = pageSize
	}

	collected := make([]Article, 0, maxResults)
	seen := map[string]struct{}{}

	for start := 1; len(collected) < maxResults; start += pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		page, err := c.fetchPage(ctx, query, daysBack, start)
		if err != nil {
			c.logger.Warn("search page failed, truncating results",
				"start", start, "collected", len(collected), "error", err)
			break
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			if _, ok := seen[a.Link]; ok {
				continue
			}
			seen[a.Link] = struct{}{}
			collected = append(collected, a)
		}
	}

	if len(collected) > maxResults {
		collected = collected[:maxResults]
	}

	c.logger.Debug("news search completed",
		"articles", len(collected), "days_back", daysBack)
	return collected, nil
}

// fetchPage requests one page of results starting at the given 1-based index.
func (c *Client) fetchPage(ctx context.Context, query string, daysBack, start int) ([]Article, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("dateRestrict", "d"+strconv.Itoa(daysBack))
	q.Set("num", strconv.Itoa(pageSize))
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	page := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		page = append(page, Article{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
		})
	}
	return page, nil
}
