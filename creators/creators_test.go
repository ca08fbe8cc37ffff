package creators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type testServer struct {
	*httptest.Server

	tokenHits int32
	apiHits   int32

	// Status returned by the next API call when set
	failWith int32
}

// Handlers run outside of the test goroutine, so they only ever report
// failures with t.Errorf.
func newTestServer(t *testing.T) *testServer {
	ts := &testServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&ts.tokenHits, 1)
		err := r.ParseForm()
		if err != nil {
			t.Errorf("FAIL: cannot parse form: %v", err)
		}
		fmt.Fprintf(w, `{"access_token": "%s-%d", "expires_in": 3600}`, r.PostForm.Get("client_secret"), n)
	})
	mux.HandleFunc(listFeedsPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.apiHits, 1)
		if ts.fail(w) {
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("FAIL: unexpected method %s", r.Method)
		}
		if r.Header.Get("x-marketplace") != "www.amazon.com" || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("FAIL: unexpected headers %v", r.Header)
		}
		io.WriteString(w, `{"feeds": [
			{"feedName": "deals", "size": 1536, "lastUpdated": "2024-01-15T10:00:00Z", "md5": "abc"},
			{"feedName": "catalog", "size": 1048576, "lastUpdated": "2024-01-14T10:00:00Z", "md5": "def"}
		]}`)
	})
	mux.HandleFunc(getFeedPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.apiHits, 1)
		if ts.fail(w) {
			return
		}
		var payload GetFeedRequest
		err := json.NewDecoder(r.Body).Decode(&payload)
		if err != nil {
			t.Errorf("FAIL: cannot decode request: %v", err)
		}
		fmt.Fprintf(w, `{"feedName": %q, "downloadUrl": "https://feeds.example.com/%s.json.gz", "extra": true}`, payload.FeedName, payload.FeedName)
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) fail(w http.ResponseWriter) bool {
	status := atomic.SwapInt32(&ts.failWith, 0)
	if status == 0 {
		return false
	}
	w.Header().Set("x-amzn-requestid", "req-456")
	w.WriteHeader(int(status))
	io.WriteString(w, `{"message": "rejected"}`)
	return true
}

func (ts *testServer) config() Config {
	return Config{
		CredentialID:     "cred-id",
		CredentialSecret: "secret",
		Version:          "2.2",
		AuthEndpoint:     ts.URL + "/auth/token",
		Host:             ts.URL,
	}
}

func newTestClient(t *testing.T, ts *testServer) *Client {
	t.Helper()
	crt, err := NewClient(ts.config())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	crt.LogCallback = t.Logf
	return crt
}

func mustTokenManager(t *testing.T, crt *Client) *TokenManager {
	t.Helper()
	tm, err := crt.TokenManager()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tm
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		CredentialID:     "id",
		CredentialSecret: "secret",
		Version:          "2.1",
		AuthEndpoint:     "https://auth.example.com/token",
		Host:             "creators.example.com",
	}
	err := valid.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid.baseURL() != "https://creators.example.com" {
		t.Errorf("FAIL: unexpected base url %s", valid.baseURL())
	}

	tests := []struct {
		mutate func(cfg *Config)
		expect string
	}{
		{func(cfg *Config) { cfg.CredentialID = "" }, "missing OAuth2 configuration"},
		{func(cfg *Config) { cfg.CredentialSecret = "" }, "missing OAuth2 configuration"},
		{func(cfg *Config) { cfg.Version = "" }, "missing OAuth2 configuration"},
		{func(cfg *Config) { cfg.AuthEndpoint = "" }, "missing authEndpoint for credential version 2.1"},
		{func(cfg *Config) { cfg.Host = "" }, "missing host"},
		{func(cfg *Config) { cfg.Timeout = 301 }, "timeout must be between"},
		{func(cfg *Config) { cfg.RequestsPerSecond = -2 }, "requests per second cannot be negative"},
	}
	for _, test := range tests {
		cfg := valid
		test.mutate(&cfg)
		_, err := NewClient(cfg)
		if err == nil || !strings.Contains(err.Error(), test.expect) {
			t.Errorf("FAIL: expected %q, got %v", test.expect, err)
		}
	}
}

func TestListFeeds(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	response, err := crt.ListFeeds(context.Background(), "www.amazon.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Feeds) != 2 {
		t.Fatalf("FAIL: expected 2 feeds, got %d", len(response.Feeds))
	}

	if response.Feeds[0].FeedName != "deals" || response.Feeds[0].SizeKB() != 2 {
		t.Errorf("FAIL: unexpected feed %+v", response.Feeds[0])
	}
	if response.Feeds[1].SizeKB() != 1024 || response.Feeds[1].MD5 != "def" {
		t.Errorf("FAIL: unexpected feed %+v", response.Feeds[1])
	}
}

func TestAuthorizationHeader(t *testing.T) {
	headers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			io.WriteString(w, `{"access_token": "abc", "expires_in": 3600}`)
			return
		}
		headers <- r.Header.Get("Authorization")
		io.WriteString(w, `{"feeds": []}`)
	}))
	t.Cleanup(srv.Close)

	crt, err := NewClient(Config{
		CredentialID:     "id",
		CredentialSecret: "secret",
		Version:          "2.3",
		AuthEndpoint:     srv.URL + "/token",
		Host:             srv.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := crt.ListFeeds(context.Background(), "www.amazon.co.jp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Feeds) != 0 {
		t.Errorf("FAIL: unexpected feeds %v", response.Feeds)
	}
	header := <-headers
	if header != "Bearer abc, Version 2.3" {
		t.Errorf("FAIL: unexpected authorization %q", header)
	}
}

func TestGetFeed(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	response, err := crt.GetFeed(context.Background(), "www.amazon.com", "deals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.FeedName != "deals" || response.DownloadURL != "https://feeds.example.com/deals.json.gz" {
		t.Errorf("FAIL: unexpected response %+v", response)
	}
	if response.Raw["extra"] != true {
		t.Errorf("FAIL: unknown fields must be kept, got %v", response.Raw)
	}

	_, err = crt.GetFeed(context.Background(), "www.amazon.com", " ")
	if err == nil || err.Error() != "missing feed name" {
		t.Errorf("FAIL: unexpected error %v", err)
	}
}

func TestMarketplaceValidation(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	_, err := crt.ListFeeds(context.Background(), "  ")
	if err == nil || err.Error() != "missing marketplace" {
		t.Errorf("FAIL: unexpected error %v", err)
	}

	_, err = crt.ListFeeds(context.Background(), strings.Repeat("a", maxMarketplaceLength+1))
	if err == nil {
		t.Errorf("FAIL: an overlong marketplace must fail")
	}

	if atomic.LoadInt32(&ts.apiHits) != 0 || atomic.LoadInt32(&ts.tokenHits) != 0 {
		t.Errorf("FAIL: invalid marketplaces must not reach the server")
	}
}

func TestTokenManagerReuse(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	first := mustTokenManager(t, crt)
	if mustTokenManager(t, crt) != first {
		t.Errorf("FAIL: the token manager must be reused")
	}

	for i := 0; i < 3; i++ {
		_, err := crt.ListFeeds(context.Background(), "www.amazon.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if atomic.LoadInt32(&ts.tokenHits) != 1 || atomic.LoadInt32(&ts.apiHits) != 3 {
		t.Errorf("FAIL: unexpected hits token=%d api=%d", ts.tokenHits, ts.apiHits)
	}

	// Changing anything but the credentials keeps the manager
	crt.Config.Timeout = 10
	if mustTokenManager(t, crt) != first {
		t.Errorf("FAIL: the token manager must survive a timeout change")
	}
}

func TestTokenManagerRebuild(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	mutations := map[string]func(cfg *Config){
		"secret":   func(cfg *Config) { cfg.CredentialSecret = "rotated" },
		"id":       func(cfg *Config) { cfg.CredentialID = "other-id" },
		"version":  func(cfg *Config) { cfg.Version = "2.1" },
		"endpoint": func(cfg *Config) { cfg.AuthEndpoint = ts.URL + "/auth/token?v=2" },
	}
	previous := mustTokenManager(t, crt)
	for _, name := range []string{"secret", "id", "version", "endpoint"} {
		mutations[name](&crt.Config)
		tm := mustTokenManager(t, crt)
		if tm == previous {
			t.Errorf("FAIL: changing the %s must rebuild the token manager", name)
		}
		previous = tm
	}

	_, err := crt.ListFeeds(context.Background(), "www.amazon.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if previous.Version != "2.1" || previous.CredentialID != "other-id" {
		t.Errorf("FAIL: unexpected token manager %s %s", previous.Version, previous.CredentialID)
	}

	crt.Config.CredentialID = ""
	_, err = crt.TokenManager()
	if err == nil {
		t.Errorf("FAIL: missing credentials must fail")
	}
	_, err = crt.ListFeeds(context.Background(), "www.amazon.com")
	if err == nil {
		t.Errorf("FAIL: calls without credentials must fail")
	}
}

func TestSecretRotationRequestsNewToken(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	_, err := crt.ListFeeds(context.Background(), "www.amazon.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	crt.Config.CredentialSecret = "rotated"
	_, err = crt.ListFeeds(context.Background(), "www.amazon.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := mustTokenManager(t, crt).Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "rotated-2" {
		t.Errorf("FAIL: expected a token for the rotated secret, got %s", token)
	}
	if atomic.LoadInt32(&ts.tokenHits) != 2 {
		t.Errorf("FAIL: expected 2 token requests, got %d", ts.tokenHits)
	}
}

func TestAPIErrors(t *testing.T) {
	ts := newTestServer(t)
	crt := newTestClient(t, ts)

	atomic.StoreInt32(&ts.failWith, http.StatusForbidden)
	_, err := crt.ListFeeds(context.Background(), "www.amazon.com")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FAIL: expected an API error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "rejected" || apiErr.RequestID != "req-456" {
		t.Errorf("FAIL: unexpected error %+v", apiErr)
	}
	if apiErr.Body != `{"message": "rejected"}` {
		t.Errorf("FAIL: unexpected body %q", apiErr.Body)
	}
	if atomic.LoadInt32(&ts.tokenHits) != 1 {
		t.Errorf("FAIL: expected 1 token request, got %d", ts.tokenHits)
	}

	// Unauthorized drops the cached token
	atomic.StoreInt32(&ts.failWith, http.StatusUnauthorized)
	_, err = crt.GetFeed(context.Background(), "www.amazon.com", "deals")
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("FAIL: expected an unauthorized error, got %v", err)
	}

	_, err = crt.ListFeeds(context.Background(), "www.amazon.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&ts.tokenHits) != 2 {
		t.Errorf("FAIL: unauthorized must refresh the token, got %d requests", ts.tokenHits)
	}

	// Retries are disabled
	atomic.StoreInt32(&ts.failWith, http.StatusInternalServerError)
	hits := atomic.LoadInt32(&ts.apiHits)
	_, err = crt.ListFeeds(context.Background(), "www.amazon.com")
	if err == nil {
		t.Errorf("FAIL: a server error must fail")
	}
	if atomic.LoadInt32(&ts.apiHits) != hits+1 {
		t.Errorf("FAIL: server errors must not be retried")
	}
}
