package amazon

import (
	"fmt"
	"net/http"
)

// APIError is returned for any failure that is not caused by the caller
// parameters or credentials: transport errors, throttling, server errors,
// malformed responses and unclassified provider codes.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	Err error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return "Too Many Requests: " + e.Message
	case e.StatusCode == http.StatusInternalServerError:
		return "Internal Server Error: " + e.Message
	case e.Code != "":
		return fmt.Sprintf("API Error (%s): %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ParameterError reports invalid configuration or request parameters.
type ParameterError struct {
	APIError
}

func (e *ParameterError) Error() string {
	if e.StatusCode == http.StatusBadRequest {
		return "Bad Request: " + e.Message
	}
	return e.Message
}

// As lets errors.As match a ParameterError as an *APIError too.
func (e *ParameterError) As(target interface{}) bool {
	apiErr, ok := target.(**APIError)
	if ok {
		*apiErr = &e.APIError
	}
	return ok
}

// AuthenticationError reports rejected, expired or mismatched credentials.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return "Authentication failed: " + e.Message
}

func (e *AuthenticationError) As(target interface{}) bool {
	apiErr, ok := target.(**APIError)
	if ok {
		*apiErr = &e.APIError
	}
	return ok
}

type errorKind int

const (
	kindAPI errorKind = iota
	kindParameter
	kindAuthentication
	kindThrottling
)

var errorCodes = map[string]errorKind{
	"InvalidParameterValue":      kindParameter,
	"MissingParameter":           kindParameter,
	"InvalidPartnerTag":          kindParameter,
	"InvalidAssociate":           kindParameter,
	"ItemNotAccessible":          kindParameter,
	"InvalidInput":               kindParameter,
	"UnknownOperation":           kindParameter,
	"ValidationException":        kindParameter,
	"InvalidSignature":           kindAuthentication,
	"IncompleteSignature":        kindAuthentication,
	"UnrecognizedClient":         kindAuthentication,
	"AccessDenied":               kindAuthentication,
	"AccessDeniedException":      kindAuthentication,
	"ExpiredToken":               kindAuthentication,
	"RequestExpired":             kindAuthentication,
	"MissingAuthenticationToken": kindAuthentication,
	"InvalidClientTokenId":       kindAuthentication,
	"TooManyRequests":            kindThrottling,
	"TooManyRequestsException":   kindThrottling,
	"RequestThrottled":           kindThrottling,
}

func parameterError(format string, a ...interface{}) error {
	return &ParameterError{APIError{Message: fmt.Sprintf(format, a...)}}
}

// providerError classifies a provider error code, falling back to the HTTP
// status when the code is unknown.
func providerError(statusCode int, code, message string) error {
	if message == "" {
		message = "Unknown API error"
	}

	kind, found := errorCodes[code]
	if !found {
		switch statusCode {
		case http.StatusBadRequest:
			kind = kindParameter
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = kindAuthentication
		case http.StatusTooManyRequests:
			kind = kindThrottling
		}
	}

	base := APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
	switch kind {
	case kindParameter:
		return &ParameterError{base}
	case kindAuthentication:
		return &AuthenticationError{base}
	case kindThrottling:
		base.StatusCode = http.StatusTooManyRequests
	}
	return &base
}
