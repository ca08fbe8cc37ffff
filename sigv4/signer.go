package sigv4

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

const (
	// Algorithm is the identifier placed in the string to sign and the header
	Algorithm = "AWS4-HMAC-SHA256"

	// TimeFormat is the layout of the X-Amz-Date header
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the layout of the date in the credential scope
	ShortTimeFormat = "20060102"

	// EmptyStringSHA256 is the hex digest of an empty payload
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	scopeTerminator = "aws4_request"
)

// Signer produces Authorization header values for one set of credentials
// bound to a region and a service.
type Signer struct {
	accessKey string
	secretKey string
	region    string
	service   string
}

// Option configures a Signer.
type Option func(*Signer) error

// WithCredential sets static access and secret keys.
func WithCredential(accessKey, secretKey string) Option {
	return func(s *Signer) error {
		s.accessKey = accessKey
		s.secretKey = secretKey
		return nil
	}
}

// WithCredentialsProvider loads the keys once from an aws-sdk-go-v2
// credentials provider.
func WithCredentialsProvider(ctx context.Context, provider aws.CredentialsProvider) Option {
	return func(s *Signer) error {
		if provider == nil {
			return errors.New("nil credentials provider")
		}
		creds, err := provider.Retrieve(ctx)
		if err != nil {
			return err
		}
		s.accessKey = creds.AccessKeyID
		s.secretKey = creds.SecretAccessKey
		return nil
	}
}

// WithRegionService sets the region and service of the credential scope.
func WithRegionService(region, service string) Option {
	return func(s *Signer) error {
		s.region = region
		s.service = service
		return nil
	}
}

// New returns a Signer configured with the given options.
func New(opts ...Option) (*Signer, error) {
	s := Signer{}
	for _, opt := range opts {
		err := opt(&s)
		if err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (s *Signer) AccessKey() string {
	return s.accessKey
}

func (s *Signer) Region() string {
	return s.region
}

func (s *Signer) Service() string {
	return s.service
}

// CredentialScope returns `<date8>/<region>/<service>/aws4_request` for the
// given X-Amz-Date timestamp.
func (s *Signer) CredentialScope(timestamp string) string {
	return shortDate(timestamp) + "/" + s.region + "/" + s.service + "/" + scopeTerminator
}

// Sign returns the Authorization header value for a request.
//
// The headers map must contain every header that is protected by the
// signature, including Host and X-Amz-Date, and no others. Malformed input
// is not rejected here; the remote service will refuse the signature.
func (s *Signer) Sign(method, uriPath string, payload []byte, timestamp string, headers map[string]string) string {
	canonicalRequest := CanonicalRequest(method, uriPath, payload, headers)
	scope := s.CredentialScope(timestamp)
	stringToSign := StringToSign(timestamp, scope, canonicalRequest)

	key := SigningKey(s.secretKey, shortDate(timestamp), s.region, s.service)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	_, signedHeaders := CanonicalHeaders(headers)

	return Algorithm + " " +
		"Credential=" + s.accessKey + "/" + scope + ", " +
		"SignedHeaders=" + signedHeaders + ", " +
		"Signature=" + signature
}

// CanonicalHeaders returns the canonical header block, one `name:value\n`
// line per header, and the `;` separated signed header list. Names that only
// differ in case are merged with a comma, in byte order of the original names.
func CanonicalHeaders(headers map[string]string) (string, string) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	values := map[string]string{}
	var lowered []string
	for _, name := range names {
		key := strings.ToLower(name)
		value := strings.TrimSpace(headers[name])
		prev, found := values[key]
		if found {
			values[key] = prev + "," + value
			continue
		}
		values[key] = value
		lowered = append(lowered, key)
	}
	sort.Strings(lowered)

	var canonical strings.Builder
	for _, key := range lowered {
		canonical.WriteString(key)
		canonical.WriteByte(':')
		canonical.WriteString(values[key])
		canonical.WriteByte('\n')
	}

	return canonical.String(), strings.Join(lowered, ";")
}

// CanonicalRequest builds the canonical request string. The query string
// component is always empty.
func CanonicalRequest(method, uriPath string, payload []byte, headers map[string]string) string {
	canonicalHeaders, signedHeaders := CanonicalHeaders(headers)

	return method + "\n" +
		uriPath + "\n" +
		"" + "\n" +
		canonicalHeaders + "\n" +
		signedHeaders + "\n" +
		PayloadHash(payload)
}

// StringToSign builds the string that is HMACed with the signing key.
func StringToSign(timestamp, credentialScope, canonicalRequest string) string {
	return Algorithm + "\n" +
		timestamp + "\n" +
		credentialScope + "\n" +
		hashHex([]byte(canonicalRequest))
}

// SigningKey derives the raw signing key for a date, region and service.
func SigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(scopeTerminator))
}

// PayloadHash returns the hex encoded SHA-256 of the payload, as expected in
// the X-Amz-Content-Sha256 header.
func PayloadHash(payload []byte) string {
	return hashHex(payload)
}

// FormatTime renders t in UTC with TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func shortDate(timestamp string) string {
	if len(timestamp) < len(ShortTimeFormat) {
		return timestamp
	}
	return timestamp[:len(ShortTimeFormat)]
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
