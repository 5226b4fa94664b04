package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kartiksharma1227/LawyerUp/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string) *IdentityClient {
	t.Helper()

	c, err := NewIdentityClient(baseURL, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewIdentityClient() error: %v", err)
	}

	return c
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/tokens/verify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}

		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body.Token != "tok-1" {
			t.Errorf("token = %q, want tok-1", body.Token)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "user-9"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/")

	userID, err := c.Verify(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if userID != "user-9" {
		t.Errorf("userID = %q, want user-9", userID)
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token signature mismatch"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "bad-token")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token has expired"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "old-token")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
	if calls != 0 {
		t.Error("empty token must not reach the identity service")
	}
}

func TestVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "tok-1")
	if err == nil || !strings.Contains(err.Error(), "identity service returned") {
		t.Fatalf("Verify() error = %v, want status error", err)
	}
	if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenExpired) {
		t.Error("a server failure must not read as a token rejection")
	}
}

func TestVerifyMissingUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "tok-1")
	if err == nil || !strings.Contains(err.Error(), "no user id") {
		t.Fatalf("Verify() error = %v, want missing user id error", err)
	}
}

func TestVerifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Verify(context.Background(), "tok-1")
	if err == nil || !strings.Contains(err.Error(), "calling identity service") {
		t.Fatalf("Verify() error = %v, want transport error", err)
	}
}

func TestNewIdentityClientValidation(t *testing.T) {
	if _, err := NewIdentityClient("", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for empty base URL")
	}
	if _, err := NewIdentityClient("/", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for a bare slash")
	}
}
