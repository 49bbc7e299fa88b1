// Package graph provides an HTTP client for the Microsoft Graph OneDrive
// endpoints with retry, client-side rate limiting, and error classification.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrConflict     = errors.New("graph: conflict")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
)

// APIError wraps a sentinel error with the HTTP status, the structured
// error code from the response body (when the API returned one), and the
// raw message for debugging. A response is classified as failed exactly
// once, at this boundary — callers only ever see APIError, never raw JSON.
type APIError struct {
	StatusCode int
	Code       string // "error.code" from the response body, if present
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph: HTTP %d (code: %s): %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody mirrors the structured error object OneDrive returns:
// {"error": {"code": "itemNotFound", "message": "..."}}.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds an APIError from a failed response, extracting the
// structured error code from the body when one is present.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    string(body),
		Err:        classifyStatus(statusCode),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil {
		apiErr.Code = eb.Error.Code
		if eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
		}
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried
// at the transport layer.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
