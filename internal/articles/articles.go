// Package articles searches recent news coverage for a user's monitored case
// via the Google Programmable Search JSON API, with optional full-content
// enrichment of the returned articles.
package articles

// Article is one news search result. Content is populated only when the
// caller asked for enrichment and the fetch succeeded.
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content,omitempty"`
}

// SearchResult is the outcome of a news search for one user.
type SearchResult struct {
	UserID   string
	Query    string
	Articles []Article
}
