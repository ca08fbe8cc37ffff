package creators

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
)

const (
	// Tokens are refreshed this long before they expire
	expiryMargin = 30 * time.Second

	// Used when the token endpoint omits expires_in
	defaultTokenLifetime = time.Hour
)

// TokenManager obtains and caches an access token through the OAuth2
// client credentials grant. It is safe for concurrent use.
type TokenManager struct {
	CredentialID     string
	CredentialSecret string
	Version          string
	AuthEndpoint     string

	client *http.Client
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenManager(credentialID, credentialSecret, version, authEndpoint string) *TokenManager {
	return &TokenManager{
		CredentialID:     credentialID,
		CredentialSecret: credentialSecret,
		Version:          version,
		AuthEndpoint:     authEndpoint,
		client:           cleanhttp.DefaultClient(),
		now:              time.Now,
	}
}

// Token returns the cached token, requesting a new one when missing or
// about to expire.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != "" && tm.now().Add(expiryMargin).Before(tm.expires) {
		return tm.token, nil
	}

	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", tm.CredentialID)
	params.Set("client_secret", tm.CredentialSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.AuthEndpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := tm.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp, data, "token request failed")
	}

	var response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err = json.Unmarshal(data, &response)
	if err != nil {
		return "", fmt.Errorf("invalid token response: %w", err)
	}
	if response.AccessToken == "" {
		return "", fmt.Errorf("invalid token response: missing access_token")
	}

	lifetime := defaultTokenLifetime
	if response.ExpiresIn > 0 {
		lifetime = time.Duration(response.ExpiresIn) * time.Second
	}

	tm.token = response.AccessToken
	tm.expires = tm.now().Add(lifetime)

	return tm.token, nil
}

// Invalidate drops the cached token so that the next call requests a new one.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	tm.token = ""
	tm.expires = time.Time{}
	tm.mu.Unlock()
}

// tokenKey identifies the configuration a TokenManager was built from
type tokenKey struct {
	credentialID     string
	credentialSecret string
	version          string
	authEndpoint     string
}

func (c Config) tokenKey() tokenKey {
	return tokenKey{
		credentialID:     c.CredentialID,
		credentialSecret: c.CredentialSecret,
		version:          c.Version,
		authEndpoint:     c.AuthEndpoint,
	}
}
