package creators

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout = 30
	MaxTimeout     = 300
)

// Config holds the OAuth2 client credentials and the API endpoints. The
// credential version selects the region, such as 2.1 for North America,
// 2.2 for Europe and 2.3 for the Far East.
type Config struct {
	CredentialID     string `json:"credentialId"`
	CredentialSecret string `json:"credentialSecret"`
	Version          string `json:"version"`

	// Token endpoint for the credential version
	AuthEndpoint string `json:"authEndpoint"`

	// API base URL, https is assumed when the scheme is missing
	Host string `json:"host"`

	// Seconds, zero means DefaultTimeout
	Timeout int `json:"timeout,omitempty"`

	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`
}

// ConfigFromEnv reads the CREATORS_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		CredentialID:     os.Getenv("CREATORS_CREDENTIAL_ID"),
		CredentialSecret: os.Getenv("CREATORS_CREDENTIAL_SECRET"),
		Version:          os.Getenv("CREATORS_VERSION"),
		AuthEndpoint:     os.Getenv("CREATORS_AUTH_ENDPOINT"),
		Host:             os.Getenv("CREATORS_HOST"),
	}

	timeout := os.Getenv("CREATORS_TIMEOUT")
	if timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
		cfg.Timeout = seconds
	}

	return cfg, nil
}

// Validate checks the configuration needed to obtain a token and reach
// the API.
func (c Config) Validate() error {
	if c.CredentialID == "" || c.CredentialSecret == "" || c.Version == "" {
		return fmt.Errorf("missing OAuth2 configuration: credentialId, credentialSecret and version are required")
	}
	if c.AuthEndpoint == "" {
		return fmt.Errorf("missing authEndpoint for credential version %s", c.Version)
	}
	if c.Host == "" {
		return fmt.Errorf("missing host")
	}
	if c.Timeout < 0 || c.Timeout > MaxTimeout {
		return fmt.Errorf("timeout must be between 1 and %d seconds", MaxTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	return nil
}

func (c Config) baseURL() string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
