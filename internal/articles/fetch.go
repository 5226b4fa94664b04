package articles

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/kartiksharma1227/LawyerUp/internal/config"
)

const fetchUserAgent = "LawyerUp/1.0 (legal news monitor)"

// maxBodyBytes caps how much of a page colly downloads.
const maxBodyBytes = 2 << 20

// fallbackSelectors are tried in order when readability extraction fails.
var fallbackSelectors = []string{"main", "article", ".content", "#content", ".article-body"}

// URLPolicy screens fetch targets before any request is made and again on
// every redirect hop.
type URLPolicy interface {
	Validate(rawURL string) error
	ValidateRedirect(req *http.Request, via []*http.Request) error
	SafeTransport() *http.Transport
}

// Fetcher downloads article pages and extracts their main text content.
// Fetch failures are per-article and never propagate to the caller.
type Fetcher struct {
	cfg    config.FetcherConfig
	policy URLPolicy
	logger *slog.Logger
}

// NewFetcher creates a Fetcher governed by the given URL policy.
func NewFetcher(cfg config.FetcherConfig, policy URLPolicy, logger *slog.Logger) (*Fetcher, error) {
	if policy == nil {
		return nil, fmt.Errorf("URL policy is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{cfg: cfg, policy: policy, logger: logger}, nil
}

// Enrich fetches each article's page and fills Content with the extracted
// main text. Articles whose fetch or extraction fails keep their snippet.
func (f *Fetcher) Enrich(ctx context.Context, arts []Article) {
	if len(arts) == 0 {
		return
	}

	c := colly.NewCollector(
		colly.UserAgent(fetchUserAgent),
		colly.MaxBodySize(maxBodyBytes),
		colly.Async(true),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.cfg.Timeout())
	c.WithTransport(f.policy.SafeTransport())
	c.SetRedirectHandler(f.policy.ValidateRedirect)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.Parallelism,
		Delay:       f.cfg.Delay(),
	}); err != nil {
		f.logger.Warn("applying fetch limit rule", "error", err)
	}

	// Each response writes its own index; the slice is read after Wait.
	contents := make([]string, len(arts))

	c.OnResponse(func(r *colly.Response) {
		idx, ok := r.Ctx.GetAny("index").(int)
		if !ok {
			return
		}
		text, err := f.extract(r)
		if err != nil {
			f.logger.Debug("content extraction failed",
				"url", r.Request.URL.String(), "error", err)
			return
		}
		contents[idx] = text
	})

	c.OnError(func(r *colly.Response, err error) {
		f.logger.Debug("article fetch failed",
			"url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	requested := 0
	for i, a := range arts {
		if a.Link == "" {
			continue
		}
		if err := f.policy.Validate(a.Link); err != nil {
			f.logger.Warn("skipping disallowed article URL", "url", a.Link, "error", err)
			continue
		}

		reqCtx := colly.NewContext()
		reqCtx.Put("index", i)
		if err := c.Request(http.MethodGet, a.Link, nil, reqCtx, nil); err != nil {
			f.logger.Debug("scheduling article fetch failed", "url", a.Link, "error", err)
			continue
		}
		requested++
	}
	c.Wait()

	enriched := 0
	for i := range arts {
		if contents[i] != "" {
			arts[i].Content = contents[i]
			enriched++
		}
	}
	f.logger.Debug("article enrichment completed",
		"requested", requested, "enriched", enriched, "total", len(arts))
}

// extract pulls the main text out of a fetched page, decoding the body with
// the charset declared by the server. Readability runs first; a selector
// sweep over the cleaned DOM is the fallback.
func (f *Fetcher) extract(r *colly.Response) (string, error) {
	contentType := r.Headers.Get("Content-Type")

	reader, err := charset.NewReader(bytes.NewReader(r.Body), contentType)
	if err != nil {
		return "", fmt.Errorf("decoding response body: %w", err)
	}

	if article, err := readability.FromReader(reader, r.Request.URL); err == nil {
		if text := collapseWhitespace(article.TextContent); text != "" {
			return f.truncate(text), nil
		}
	}

	reader, err = charset.NewReader(bytes.NewReader(r.Body), contentType)
	if err != nil {
		return "", fmt.Errorf("decoding response body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside, form").Remove()

	var text string
	for _, sel := range fallbackSelectors {
		if selected := doc.Find(sel); selected.Length() > 0 {
			text = selected.First().Text()
			break
		}
	}
	if text == "" {
		text = doc.Find("body").Text()
	}

	text = collapseWhitespace(text)
	if text == "" {
		return "", fmt.Errorf("no extractable content")
	}
	return f.truncate(text), nil
}

func (f *Fetcher) truncate(text string) string {
	maxLen := f.cfg.MaxContentBytes
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return strings.ToValidUTF8(text[:maxLen], "")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
