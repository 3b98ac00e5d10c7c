// Package sepm is a thin client for the Symantec Endpoint Protection Manager
// REST API: an authenticated session, a verb-level request façade, status
// classification for failed calls and the fingerprint archive decoder.
package sepm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/sepm-epm/pkg/httpclient"
)

const (
	// BasePath is the root of the SEPM REST API.
	BasePath = "/sepm/api/v1"
	// AuthenticatePath exchanges credentials for a bearer token.
	AuthenticatePath = BasePath + "/identity/authenticate"
	// LogoutPath invalidates the current token.
	LogoutPath = BasePath + "/identity/logout"
)

// State is the authentication state of a session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is one connection to a SEPM server. It owns the base URL, the
// default headers and the bearer token. A Session is not safe for concurrent
// use; run one session per flow.
type Session struct {
	baseURL string
	client  httpclient.Client
	log     Logger
	headers map[string]string
	token   string
}

// NewSession validates baseURL (scheme://host[:port]) and builds an anonymous session.
func NewSession(baseURL string, client httpclient.Client, log Logger) (*Session, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse sepm base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sepm base url %q must include scheme and host", baseURL)
	}
	if client == nil {
		return nil, errors.New("sepm session requires an http client")
	}
	return &Session{
		baseURL: baseURL,
		client:  client,
		log:     ensureLogger(log),
		headers: map[string]string{"Content-Type": contentTypeJSON},
	}, nil
}

// BaseURL returns the normalized server URL.
func (s *Session) BaseURL() string { return s.baseURL }

// State reports whether a token is held.
func (s *Session) State() State {
	if s.token == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

// Login exchanges credentials for a bearer token. A reply without a token
// fails with an *AuthenticationError whatever its status code.
func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   AuthenticatePath,
		Body:   Explicit(map[string]string{"username": username, "password": password}),
	})
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	token := tokenFrom(resp.Body)
	if token == "" {
		s.log.WarnObj("sepm login rejected", "sepm_login", map[string]any{
			"status":   resp.StatusCode,
			"username": username,
		})
		return &AuthenticationError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	s.token = token
	s.log.InfoObj("sepm login succeeded", "sepm_login", map[string]any{
		"base_url": s.baseURL,
		"username": username,
	})
	return nil
}

// Logout posts the auth header to the logout endpoint and clears the token.
// The token is cleared even when the call fails; the call's error is still
// returned. Logout on an anonymous session is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	auth := s.authHeader()
	defer func() { s.token = "" }()

	payload, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("encode logout payload: %w", err)
	}
	if _, err := s.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   LogoutPath,
		Body:   Raw(payload),
	}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// AuthHeader returns a copy of the Authorization header, or nil when anonymous.
func (s *Session) AuthHeader() map[string]string {
	return s.authHeader()
}

func (s *Session) authHeader() map[string]string {
	if s.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func tokenFrom(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	token, _ := m["token"].(string)
	return strings.TrimSpace(token)
}
