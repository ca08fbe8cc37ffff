package creators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/mtgban/go-paapi/paapi"
)

const (
	listFeedsPath = "/catalog/v1/listFeeds"
	getFeedPath   = "/catalog/v1/getFeed"

	maxMarketplaceLength = 1000
)

// Client calls the Creators API. Config may be changed between calls; the
// token manager is rebuilt when the credentials it was built from differ.
type Client struct {
	Config      Config
	LogCallback paapi.LogCallbackFunc

	client *retryablehttp.Client

	mu     sync.Mutex
	tokens *TokenManager
	key    tokenKey
}

func NewClient(cfg Config) (*Client, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	crt := Client{
		Config: cfg,
	}
	crt.client = retryablehttp.NewClient()
	crt.client.Logger = nil
	crt.client.RetryMax = 0
	crt.client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	crt.client.HTTPClient.Timeout = cfg.timeout()

	transport := &authTransport{
		Parent: crt.client.HTTPClient.Transport,
		Client: &crt,
	}
	if cfg.RequestsPerSecond > 0 {
		transport.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	crt.client.HTTPClient.Transport = transport

	return &crt, nil
}

func (crt *Client) printf(format string, a ...interface{}) {
	if crt.LogCallback != nil {
		crt.LogCallback("[CRT] "+format, a...)
	}
}

// TokenManager returns the cached manager, building a new one the first
// time and whenever the credentials or auth endpoint change.
func (crt *Client) TokenManager() (*TokenManager, error) {
	crt.mu.Lock()
	defer crt.mu.Unlock()

	key := crt.Config.tokenKey()
	if crt.tokens != nil && crt.key == key {
		return crt.tokens, nil
	}
	if key.credentialID == "" || key.credentialSecret == "" || key.version == "" {
		return nil, errors.New("missing OAuth2 configuration: credentialId, credentialSecret and version are required")
	}

	crt.printf("building token manager for credential version %s", key.version)
	crt.tokens = NewTokenManager(key.credentialID, key.credentialSecret, key.version, key.authEndpoint)
	crt.key = key
	return crt.tokens, nil
}

type authTransport struct {
	Parent  http.RoundTripper
	Client  *Client
	Limiter *rate.Limiter
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		err := t.Limiter.Wait(req.Context())
		if err != nil {
			return nil, err
		}
	}

	tm, err := t.Client.TokenManager()
	if err != nil {
		return nil, err
	}
	token, err := tm.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s, Version %s", token, tm.Version))
	return t.Parent.RoundTrip(req)
}

func checkMarketplace(marketplace string) error {
	switch {
	case strings.TrimSpace(marketplace) == "":
		return errors.New("missing marketplace")
	case len(marketplace) > maxMarketplaceLength:
		return fmt.Errorf("invalid marketplace length, must be at most %d", maxMarketplaceLength)
	}
	return nil
}

func (crt *Client) post(ctx context.Context, path, marketplace string, payload interface{}) ([]byte, error) {
	err := checkMarketplace(marketplace)
	if err != nil {
		return nil, err
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, crt.Config.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-marketplace", marketplace)

	resp, err := crt.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			tm, err := crt.TokenManager()
			if err == nil {
				tm.Invalidate()
			}
		}
		apiErr := newAPIError(resp, data, fmt.Sprintf("Error connecting to the API (%s)", req.URL))
		crt.printf("%s failed: %v", path, apiErr)
		return nil, apiErr
	}

	return data, nil
}

// ListFeeds lists the feeds available on a marketplace, such as
// "www.amazon.com".
func (crt *Client) ListFeeds(ctx context.Context, marketplace string) (*ListFeedsResponse, error) {
	data, err := crt.post(ctx, listFeedsPath, marketplace, nil)
	if err != nil {
		return nil, err
	}

	var response ListFeedsResponse
	err = json.Unmarshal(data, &response)
	if err != nil {
		return nil, fmt.Errorf("invalid listFeeds response: %w", err)
	}
	crt.printf("found %d feeds on %s", len(response.Feeds), marketplace)

	return &response, nil
}

// GetFeed retrieves the location of a single feed.
func (crt *Client) GetFeed(ctx context.Context, marketplace, feedName string) (*GetFeedResponse, error) {
	if strings.TrimSpace(feedName) == "" {
		return nil, errors.New("missing feed name")
	}

	data, err := crt.post(ctx, getFeedPath, marketplace, &GetFeedRequest{FeedName: feedName})
	if err != nil {
		return nil, err
	}

	var response GetFeedResponse
	err = json.Unmarshal(data, &response)
	if err != nil {
		return nil, fmt.Errorf("invalid getFeed response: %w", err)
	}
	response.Raw, err = paapi.DecodeDocument(data)
	if err != nil {
		return nil, err
	}

	return &response, nil
}
