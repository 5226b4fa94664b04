// Package auth resolves bearer tokens to user IDs through the external
// identity service. The service owns registration and user management;
// this package only verifies.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// verifyTimeout bounds one verification round trip.
const verifyTimeout = 10 * time.Second

var (
	// ErrTokenInvalid is returned when the identity service rejects the
	// token.
	ErrTokenInvalid = errors.New("invalid authentication token")

	// ErrTokenExpired is returned when the token is well-formed but
	// expired.
	ErrTokenExpired = errors.New("authentication token has expired")
)

// Verifier resolves a bearer token to a user ID.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// IdentityClient verifies tokens against the identity service.
type IdentityClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewIdentityClient creates a reusable client for the identity service at
// baseURL.
func NewIdentityClient(baseURL string, logger *slog.Logger) (*IdentityClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("identity service URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IdentityClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: verifyTimeout},
		logger:  logger,
	}, nil
}

// Verify posts the token to the identity service and returns the user ID
// it resolves to.
func (c *IdentityClient) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenInvalid
	}

	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", fmt.Errorf("marshaling verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/tokens/verify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling identity service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", rejectionError(resp.Body)
	default:
		return "", fmt.Errorf("identity service returned %s", resp.Status)
	}

	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding verify response: %w", err)
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("identity service returned no user id")
	}

	c.logger.Debug("token verified", "user_id", payload.UserID)
	return payload.UserID, nil
}

// rejectionError distinguishes expired tokens from invalid ones using the
// service's error text.
func rejectionError(body io.Reader) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil &&
		strings.Contains(strings.ToLower(payload.Error), "expired") {
		return ErrTokenExpired
	}

	return ErrTokenInvalid
}
