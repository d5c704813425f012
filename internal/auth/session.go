// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the bearer credential used for protected actions.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/logging"
)

const (
	// TokenPath is the login endpoint relative to the backend base URL.
	TokenPath = "/query/token"

	// DefaultTimeout bounds a login exchange.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize limits how much of a login response is read.
	maxResponseSize = 1 << 20
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrMissingCredentials is returned before any request when the
	// identifier or secret is blank.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrInvalidCredentials matches every AuthenticationError.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// AuthenticationError reports a rejected or failed login exchange.
type AuthenticationError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("login failed (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("login failed: %s", e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidCredentials) match any login failure.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// =============================================================================
// CREDENTIAL
// =============================================================================

// Credential is a bearer token obtained from a login exchange.
// No expiry is tracked; a rejected protected call is the only signal.
type Credential struct {
	Token    string
	IssuedAt time.Time
	// Subject is the token's "sub" claim when the token is a JWT.
	Subject string
}

// Header returns the Authorization header value for the credential.
func (c Credential) Header() string {
	return "Bearer " + c.Token
}

// subjectOf reads the subject claim without verifying the signature.
// The client has no key to verify with; the server does that.
func subjectOf(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// =============================================================================
// SESSION
// =============================================================================

// Session holds the optional credential for one conversation.
// Login and Clear are the only writers; Current is safe at any time.
type Session struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	cred atomic.Pointer[Credential]
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the HTTP client used for the login exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logging.OrNop(logger)
	}
}

// WithClock overrides the time source used for IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates an unauthenticated session for the given backend.
func NewSession(baseURL string, opts ...Option) *Session {
	s := &Session{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tokenResponse is the success body of the login endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// errorResponse covers the error shapes the backend returns.
type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// Login exchanges an identifier and secret for a credential.
// On failure the current credential is left as it was.
func (s *Session) Login(ctx context.Context, identifier, secret string) (Credential, error) {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return Credential{}, ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+TokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	logging.LogRequest(s.logger, req)
	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logging.LogFailure(s.logger, req, err, time.Since(start))
		return Credential{}, &AuthenticationError{Message: "could not reach the login service", Err: err}
	}
	defer resp.Body.Close()
	logging.LogResponse(s.logger, req, resp, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Credential{}, &AuthenticationError{Status: resp.StatusCode, Message: "failed to read login response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, &AuthenticationError{Status: resp.StatusCode, Message: loginFailureMessage(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return Credential{}, &AuthenticationError{Status: resp.StatusCode, Message: "malformed login response", Err: err}
	}
	if tok.AccessToken == "" {
		return Credential{}, &AuthenticationError{Status: resp.StatusCode, Message: "login response did not include a token"}
	}

	cred := Credential{
		Token:    tok.AccessToken,
		IssuedAt: s.now(),
		Subject:  subjectOf(tok.AccessToken),
	}
	s.cred.Store(&cred)

	s.logger.Info("logged in", zap.String("subject", cred.Subject))
	return cred, nil
}

// loginFailureMessage extracts a server message, falling back to the
// generic invalid-credentials text.
func loginFailureMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Detail != "" {
			return er.Detail
		}
		if er.Error != "" {
			return er.Error
		}
	}
	return ErrInvalidCredentials.Error()
}

// Current returns the credential, if any.
func (s *Session) Current() (Credential, bool) {
	c := s.cred.Load()
	if c == nil {
		return Credential{}, false
	}
	return *c, true
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.cred.Load() != nil
}

// AuthorizationHeader returns the header value for protected calls.
func (s *Session) AuthorizationHeader() (string, bool) {
	c, ok := s.Current()
	if !ok {
		return "", false
	}
	return c.Header(), true
}

// Clear drops the credential. Used on logout and on a 401 from a protected call.
func (s *Session) Clear() {
	if s.cred.Swap(nil) != nil {
		s.logger.Info("credential cleared")
	}
}

// ClearIf drops the credential only while it still holds token, so a 401 for
// an old token does not discard a newer login. It reports whether the
// credential was cleared.
func (s *Session) ClearIf(token string) bool {
	c := s.cred.Load()
	if c == nil || c.Token != token {
		return false
	}
	if !s.cred.CompareAndSwap(c, nil) {
		return false
	}
	s.logger.Info("credential cleared")
	return true
}
