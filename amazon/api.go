package amazon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/mtgban/go-paapi/paapi"
	"github.com/mtgban/go-paapi/sigv4"
)

const (
	GetItemsPath   = "/paapi5/getitems"
	GetItemsTarget = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"

	contentType     = "application/json; charset=UTF-8"
	contentEncoding = "amz-1.0"
)

var operationTargets = map[string]string{
	GetItemsPath: GetItemsTarget,
}

// SigningHeaders returns the headers covered by the signature of a PAAPI
// call; Authorization is added on top of them.
func SigningHeaders(host, target string, payload []byte, timestamp string) map[string]string {
	return map[string]string{
		"Host":                 host,
		"Content-Type":         contentType,
		"Content-Encoding":     contentEncoding,
		"X-Amz-Target":         target,
		"X-Amz-Content-Sha256": sigv4.PayloadHash(payload),
		"X-Amz-Date":           timestamp,
	}
}

// authTransport signs every outgoing request with the body it carries.
type authTransport struct {
	Parent  http.RoundTripper
	Signer  *sigv4.Signer
	Host    string
	Limiter *rate.Limiter

	// Clock, time.Now when nil
	Now func() time.Time
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		err := t.Limiter.Wait(req.Context())
		if err != nil {
			return nil, err
		}
	}

	target, found := operationTargets[req.URL.Path]
	if !found {
		return nil, fmt.Errorf("unsupported operation %s", req.URL.Path)
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	timestamp := sigv4.FormatTime(now())

	headers := SigningHeaders(t.Host, target, payload, timestamp)
	auth := t.Signer.Sign(http.MethodPost, req.URL.Path, payload, timestamp, headers)

	req = req.Clone(req.Context())
	req.Body = io.NopCloser(bytes.NewReader(payload))
	req.ContentLength = int64(len(payload))
	req.Host = t.Host
	for name, value := range headers {
		if name == "Host" {
			continue
		}
		req.Header.Set(name, value)
	}
	req.Header.Set("Authorization", auth)

	return t.Parent.RoundTrip(req)
}

func (amz *Client) post(ctx context.Context, path string, body []byte) (map[string]interface{}, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, amz.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	resp, err := amz.client.Do(req)
	if err != nil {
		return nil, amz.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, amz.transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var code, message string
		doc, err := paapi.DecodeDocument(data)
		if err == nil {
			errs := responseErrors(doc)
			if len(errs) > 0 {
				code, message = errs[0].Code, errs[0].Message
			}
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, providerError(resp.StatusCode, code, message)
	}

	doc, err := paapi.DecodeDocument(data)
	if err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Invalid JSON response: %v", err),
			Err:        err,
		}
	}

	return doc, nil
}

func (amz *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{
			Message: fmt.Sprintf("request timed out after %d seconds", amz.Timeout()),
			Err:     err,
		}
	}
	return &APIError{
		Message: fmt.Sprintf("could not connect to %s: %v", amz.settings.host, err),
		Err:     err,
	}
}

// Response locations of the item list, in priority order
var itemPaths = [][]string{
	{"ItemsResult", "Items"},
	{"GetItemsResponse", "Items"},
	{"Items"},
}

func itemsFromResponse(doc map[string]interface{}) ([]interface{}, bool) {
	for _, path := range itemPaths {
		var node interface{} = doc
		for _, key := range path {
			obj, ok := node.(map[string]interface{})
			if !ok {
				node = nil
				break
			}
			node = obj[key]
		}
		items, ok := node.([]interface{})
		if ok {
			return items, true
		}
	}
	return nil, false
}

type responseError struct {
	Code    string
	Message string
}

func responseErrors(doc map[string]interface{}) []responseError {
	list, _ := doc["Errors"].([]interface{})

	var out []responseError
	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		code, _ := obj["Code"].(string)
		message, _ := obj["Message"].(string)
		out = append(out, responseError{
			Code:    code,
			Message: message,
		})
	}
	return out
}
