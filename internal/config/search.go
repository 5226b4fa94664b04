package config

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultSearchDaysBack is the default news look-back window in days.
	DefaultSearchDaysBack = 7

	// MaxSearchDaysBack caps the look-back window.
	MaxSearchDaysBack = 30

	// DefaultSearchMaxResults is the default article cap per search.
	DefaultSearchMaxResults = 20

	// MaxSearchResults is the absolute article cap per search.
	MaxSearchResults = 50
)

// SearchConfig holds Google Programmable Search Engine settings for the
// article search pipeline.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	EngineID   string `mapstructure:"engine_id" json:"engine_id"`
	DaysBack   int    `mapstructure:"days_back" json:"days_back"`
	MaxResults int    `mapstructure:"max_results" json:"max_results"`
}

// MarshalJSON masks the API key.
func (s SearchConfig) MarshalJSON() ([]byte, error) {
	type alias SearchConfig
	a := alias(s)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal search config: %w", err)
	}
	return data, nil
}

// FetcherConfig holds article content fetcher settings.
// The fetcher visits result URLs to extract readable article bodies, so it is
// throttled to stay polite toward news sites.
type FetcherConfig struct {
	Parallelism     int `mapstructure:"parallelism" json:"parallelism"`
	DelayMS         int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMS       int `mapstructure:"timeout_ms" json:"timeout_ms"`
	MaxContentBytes int `mapstructure:"max_content_bytes" json:"max_content_bytes"`
}

// Timeout returns the per-request timeout as a duration.
func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// Delay returns the inter-request delay as a duration.
func (f FetcherConfig) Delay() time.Duration {
	return time.Duration(f.DelayMS) * time.Millisecond
}
