package chat

// retry.go retries answer generation on the transient failure modes the
// Gemini API exhibits (rate limits, 5xx, flaky connections).

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

type retryConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category. Matched
// case-insensitively against err.Error() because Genkit and the provider
// SDKs expose no typed errors for transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

// retryableError reports whether err is transient and worth retrying.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}

	return false
}

// generateWithRetry runs genkit.Generate with exponential backoff.
// Non-retryable errors fail immediately.
func (s *Service) generateWithRetry(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	var lastErr error
	delay := s.retry.initialInterval

	for attempt := 0; attempt <= s.retry.maxRetries; attempt++ {
		resp, err := genkit.Generate(ctx, s.g, opts...)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !retryableError(err) {
			return nil, err
		}
		if attempt == s.retry.maxRetries {
			break
		}

		s.logger.Debug("retrying generation",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, s.retry.maxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries: %w", s.retry.maxRetries, lastErr)
}
