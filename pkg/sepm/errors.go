package sepm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMethod is returned for verbs outside GET/HEAD/PUT/POST/PATCH/DELETE.
	ErrUnsupportedMethod = errors.New("unsupported request method")
	// ErrAuthentication marks a login that did not yield a token.
	ErrAuthentication = errors.New("failed to acquire login token")
	// ErrBodyNotResolved is returned when a DeriveFromFields body reaches the transport unresolved.
	ErrBodyNotResolved = errors.New("derived request body must be resolved by a requester")
)

// ConnectionError reports a response body that could not be decoded as JSON.
type ConnectionError struct {
	Raw string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("invalid JSON response: %s", e.Raw)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError reports a login response without a usable token.
type AuthenticationError struct {
	StatusCode int
	Body       any
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s (status %d)", ErrAuthentication.Error(), e.StatusCode)
}

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// APIError is a non-2xx response after classification.
type APIError struct {
	Method         string
	URL            string
	Body           any
	Classification Classification
}

func (e *APIError) Error() string {
	c := e.Classification
	if c.Known {
		return fmt.Sprintf("got '%d' error on %s %s: %s", c.StatusCode, e.Method, e.URL, c.Reason)
	}
	return fmt.Sprintf("%s: %s %s returned status %d: %s", c.Reason, e.Method, e.URL, c.StatusCode, bodySnippet(e.Body))
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Classification.StatusCode }

func bodySnippet(body any) string {
	const maxLen = 512
	var s string
	switch v := body.(type) {
	case nil:
		return "<empty>"
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
