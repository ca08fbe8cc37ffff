package amazon

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/mtgban/go-paapi/paapi"
)

const (
	DefaultTimeout = 30
	MinTimeout     = 1
	MaxTimeout     = 300
)

// Config holds the client settings. Either Marketplace or Host must be set;
// when only Host is set and it is not a known endpoint, Region is required.
type Config struct {
	AccessKey  string `json:"accessKey"`
	SecretKey  string `json:"secretKey"`
	PartnerTag string `json:"partnerTag"`

	Marketplace string `json:"marketplace,omitempty"`
	Host        string `json:"host,omitempty"`
	Region      string `json:"region,omitempty"`

	// Seconds, zero means DefaultTimeout
	Timeout int `json:"timeout,omitempty"`

	TrackingPlaceholder string `json:"trackingPlaceholder,omitempty"`

	// BCP 47 tag, defaults to the marketplace language
	Language string `json:"language,omitempty"`

	// "buybox" (default) or "lowest"
	PricePolicy string `json:"pricePolicy,omitempty"`

	// Client side limit, zero disables it
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`
}

// UnmarshalJSON accepts both camelCase and snake_case keys, camelCase
// winning when both are present.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessKey                 string  `json:"accessKey"`
		AccessKeyLegacy           string  `json:"access_key"`
		SecretKey                 string  `json:"secretKey"`
		SecretKeyLegacy           string  `json:"secret_key"`
		PartnerTag                string  `json:"partnerTag"`
		PartnerTagLegacy          string  `json:"partner_tag"`
		Marketplace               string  `json:"marketplace"`
		Host                      string  `json:"host"`
		Region                    string  `json:"region"`
		Timeout                   *int    `json:"timeout"`
		TrackingPlaceholder       string  `json:"trackingPlaceholder"`
		TrackingPlaceholderLegacy string  `json:"tracking_placeholder"`
		Language                  string  `json:"language"`
		PricePolicy               string  `json:"pricePolicy"`
		PricePolicyLegacy         string  `json:"price_policy"`
		RequestsPerSecond         float64 `json:"requestsPerSecond"`
		RequestsPerSecondLegacy   float64 `json:"requests_per_second"`
	}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*c = Config{
		AccessKey:           firstOf(raw.AccessKey, raw.AccessKeyLegacy),
		SecretKey:           firstOf(raw.SecretKey, raw.SecretKeyLegacy),
		PartnerTag:          firstOf(raw.PartnerTag, raw.PartnerTagLegacy),
		Marketplace:         raw.Marketplace,
		Host:                raw.Host,
		Region:              raw.Region,
		TrackingPlaceholder: firstOf(raw.TrackingPlaceholder, raw.TrackingPlaceholderLegacy),
		Language:            raw.Language,
		PricePolicy:         firstOf(raw.PricePolicy, raw.PricePolicyLegacy),
		RequestsPerSecond:   raw.RequestsPerSecond,
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = raw.RequestsPerSecondLegacy
	}
	if raw.Timeout != nil {
		if *raw.Timeout == 0 {
			return parameterError("timeout must be between %d and %d seconds", MinTimeout, MaxTimeout)
		}
		c.Timeout = *raw.Timeout
	}

	return nil
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, parameterError("Configuration file not found: %s", path)
	}
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)
	if err != nil {
		var paramErr *ParameterError
		if errors.As(err, &paramErr) {
			return cfg, err
		}
		return cfg, parameterError("Invalid JSON in configuration file: %v", err)
	}

	return cfg, nil
}

// ConfigFromEnv builds a configuration from PAAPI_* environment variables,
// after loading the optional dotenv files.
func ConfigFromEnv(filenames ...string) (Config, error) {
	var cfg Config

	if len(filenames) > 0 {
		err := godotenv.Load(filenames...)
		if err != nil {
			return cfg, err
		}
	}

	cfg = Config{
		AccessKey:           os.Getenv("PAAPI_ACCESS_KEY"),
		SecretKey:           os.Getenv("PAAPI_SECRET_KEY"),
		PartnerTag:          os.Getenv("PAAPI_PARTNER_TAG"),
		Marketplace:         os.Getenv("PAAPI_MARKETPLACE"),
		Host:                os.Getenv("PAAPI_HOST"),
		Region:              os.Getenv("PAAPI_REGION"),
		TrackingPlaceholder: os.Getenv("PAAPI_TRACKING_PLACEHOLDER"),
		Language:            os.Getenv("PAAPI_LANGUAGE"),
		PricePolicy:         os.Getenv("PAAPI_PRICE_POLICY"),
	}

	timeout := os.Getenv("PAAPI_TIMEOUT")
	if timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil || seconds == 0 {
			return cfg, parameterError("timeout must be between %d and %d seconds", MinTimeout, MaxTimeout)
		}
		cfg.Timeout = seconds
	}

	rps := os.Getenv("PAAPI_REQUESTS_PER_SECOND")
	if rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return cfg, parameterError("Invalid requests per second: %s", rps)
		}
		cfg.RequestsPerSecond = value
	}

	return cfg, nil
}

// settings is the validated and defaulted form of a Config
type settings struct {
	accessKey  string
	secretKey  string
	partnerTag string

	marketplace string
	host        string
	region      string
	language    language.Tag
	hasLanguage bool
	currency    string

	timeout     time.Duration
	placeholder string
	policy      paapi.PricePolicy
	rps         float64
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

func (c Config) resolve() (settings, error) {
	s := settings{
		accessKey:   strings.TrimSpace(c.AccessKey),
		secretKey:   strings.TrimSpace(c.SecretKey),
		partnerTag:  strings.TrimSpace(c.PartnerTag),
		placeholder: c.TrackingPlaceholder,
		rps:         c.RequestsPerSecond,
	}

	switch {
	case s.accessKey == "":
		return s, parameterError("accessKey is required")
	case s.secretKey == "":
		return s, parameterError("secretKey is required")
	case s.partnerTag == "":
		return s, parameterError("partnerTag is required")
	case c.Marketplace == "" && c.Host == "":
		return s, parameterError("Either marketplace or host is required")
	}

	if c.Marketplace != "" {
		mp, found := LookupMarketplace(c.Marketplace)
		if !found {
			return s, parameterError("Invalid marketplace: %s", c.Marketplace)
		}
		s.marketplace = mp.Domain
		s.host = firstOf(strings.ToLower(strings.TrimSpace(c.Host)), mp.Host)
		s.region = firstOf(c.Region, mp.Region)
		s.language = mp.Language
		s.hasLanguage = true
		s.currency = mp.Currency
	} else {
		s.host = strings.ToLower(strings.TrimSpace(c.Host))
		mp, found := lookupMarketplaceByHost(s.host)
		if found {
			s.marketplace = mp.Domain
			s.region = firstOf(c.Region, mp.Region)
			s.language = mp.Language
			s.hasLanguage = true
			s.currency = mp.Currency
		} else {
			if c.Region == "" {
				return s, parameterError("region is required when host %s is not a known endpoint", s.host)
			}
			s.marketplace = "www." + strings.TrimPrefix(s.host, "webservices.")
			s.region = c.Region
		}
	}

	if c.Language != "" {
		tag, err := language.Parse(strings.ReplaceAll(c.Language, "_", "-"))
		if err != nil {
			return s, parameterError("Invalid language: %s", c.Language)
		}
		s.language = tag
		s.hasLanguage = true
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		return s, parameterError("timeout must be between %d and %d seconds", MinTimeout, MaxTimeout)
	}
	s.timeout = time.Duration(timeout) * time.Second

	if s.placeholder == "" {
		s.placeholder = paapi.DefaultTrackingPlaceholder
	}

	policy, err := paapi.ParsePricePolicy(c.PricePolicy)
	if err != nil {
		return s, parameterError("Invalid price policy: %s", c.PricePolicy)
	}
	s.policy = policy

	if s.rps < 0 {
		return s, parameterError("requests per second cannot be negative")
	}

	return s, nil
}
