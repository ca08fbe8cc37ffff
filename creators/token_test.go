package creators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func tokenServer(t *testing.T, hits *int32, expiresIn int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(hits, 1)

		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			t.Errorf("FAIL: unexpected token request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		err := r.ParseForm()
		if err != nil {
			t.Errorf("FAIL: cannot parse form: %v", err)
		}
		expect := map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     "cred-id",
			"client_secret": "cred-secret",
		}
		for key, value := range expect {
			if r.PostForm.Get(key) != value {
				t.Errorf("FAIL: form %s is %q, expected %q", key, r.PostForm.Get(key), value)
			}
		}

		if expiresIn > 0 {
			fmt.Fprintf(w, `{"access_token": "tok-%d", "token_type": "bearer", "expires_in": %d}`, n, expiresIn)
			return
		}
		fmt.Fprintf(w, `{"access_token": "tok-%d", "token_type": "bearer"}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenManagerCaches(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits, 3600)

	clock := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tm := NewTokenManager("cred-id", "cred-secret", "2.2", srv.URL)
	tm.now = func() time.Time { return clock }

	steps := []struct {
		name    string
		advance time.Duration
		expect  string
	}{
		{"first fetch", 0, "tok-1"},
		{"cached", 0, "tok-1"},
		// Still valid outside the refresh margin
		{"before margin", time.Hour - time.Minute, "tok-1"},
		// Refreshed when about to expire
		{"inside margin", 45 * time.Second, "tok-2"},
	}
	for _, step := range steps {
		clock = clock.Add(step.advance)
		token, err := tm.Token(context.Background())
		if err != nil {
			t.Fatalf("FAIL %s: unexpected error: %v", step.name, err)
		}
		if token != step.expect {
			t.Errorf("FAIL %s: expected %s, got %s", step.name, step.expect, token)
		}
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("FAIL: expected 2 token requests, got %d", hits)
	}

	tm.Invalidate()
	token, err := tm.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-3" {
		t.Errorf("FAIL: invalidation must fetch a new token, got %s", token)
	}
}

func TestTokenManagerDefaultLifetime(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits, 0)

	clock := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tm := NewTokenManager("cred-id", "cred-secret", "2.1", srv.URL)
	tm.now = func() time.Time { return clock }

	_, err := tm.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tm.expires.Equal(clock.Add(defaultTokenLifetime)) {
		t.Errorf("FAIL: unexpected expiry %v", tm.expires)
	}
}

func TestTokenManagerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied":
			w.Header().Set("x-amzn-requestid", "req-123")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error": "invalid_client", "error_description": "Client authentication failed"}`)
		case "/empty":
			io.WriteString(w, `{"token_type": "bearer"}`)
		default:
			io.WriteString(w, `not json`)
		}
	}))
	t.Cleanup(srv.Close)

	tm := NewTokenManager("cred-id", "cred-secret", "2.1", srv.URL+"/denied")
	_, err := tm.Token(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FAIL: expected an API error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.RequestID != "req-123" {
		t.Errorf("FAIL: unexpected error %+v", apiErr)
	}
	if apiErr.Message != "Client authentication failed" || !strings.Contains(apiErr.Body, "invalid_client") {
		t.Errorf("FAIL: unexpected message %q body %q", apiErr.Message, apiErr.Body)
	}
	if apiErr.Error() != "[401] Client authentication failed (request id req-123)" {
		t.Errorf("FAIL: unexpected rendering %q", apiErr.Error())
	}

	tm = NewTokenManager("cred-id", "cred-secret", "2.1", srv.URL+"/empty")
	_, err = tm.Token(context.Background())
	if err == nil || err.Error() != "invalid token response: missing access_token" {
		t.Errorf("FAIL: unexpected error %v", err)
	}

	tm = NewTokenManager("cred-id", "cred-secret", "2.1", srv.URL+"/garbage")
	_, err = tm.Token(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid token response") {
		t.Errorf("FAIL: unexpected error %v", err)
	}
}
