package creators

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx response of the Creators API or its
// token endpoint.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	if e.RequestID != "" {
		msg += " (request id " + e.RequestID + ")"
	}
	return msg
}

func newAPIError(resp *http.Response, body []byte, fallback string) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fallback,
		RequestID:  resp.Header.Get("x-amzn-requestid"),
		Body:       string(body),
	}

	var payload struct {
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.ErrorDescription != "":
			apiErr.Message = payload.ErrorDescription
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}

	return apiErr
}
