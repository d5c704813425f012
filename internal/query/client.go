// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package query submits questions to the answering service.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/logging"
	"github.com/jeranaias/askrod/internal/source"
)

// Configuration constants for the answering service.
const (
	// QueryPath is the question endpoint relative to the backend base URL.
	QueryPath = "/query/"

	// DefaultTimeout is the default timeout for a question round trip.
	// Answers are generated by an LLM behind the service and can be slow.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// =============================================================================
// TYPES
// =============================================================================

// Answer is a normalized response to one question.
type Answer struct {
	Text    string
	Sources []source.Source
}

// request is the body sent to the question endpoint.
type request struct {
	Query string `json:"query"`
}

// response is the body returned by the question endpoint.
type response struct {
	Question string          `json:"question,omitempty"`
	Answer   string          `json:"answer"`
	Sources  []source.Source `json:"sources"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client asks questions of the answering service.
// It does not serialize or queue requests; callers suppress duplicate
// submissions themselves.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// timeout bounds each Ask through its context, leaving the shared
	// http.Client untouched.
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-question timeout. It applies whichever HTTP
// client is in use and never modifies that client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(logger)
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-question timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ask submits question and returns the answer with its sources merged.
//
// A blank question is rejected with ErrEmptyQuestion before any request is
// made. Transport failures, non-2xx responses and undecodable bodies are
// reported as *QueryError.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	payload, err := json.Marshal(request{Query: question})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+QueryPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logging.LogRequest(c.logger, req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogFailure(c.logger, req, err, time.Since(start))
		return nil, networkError(err)
	}
	defer resp.Body.Close()
	logging.LogResponse(c.logger, req, resp, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded amount so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return nil, statusError(resp)
	}

	body, err := readResponse(resp)
	if err != nil {
		return nil, &QueryError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &QueryError{
			Status:  resp.StatusCode,
			Message: "malformed response from server",
			Err:     err,
		}
	}

	answer := &Answer{
		Text:    parsed.Answer,
		Sources: source.Merge(parsed.Sources),
	}

	c.logger.Debug("answer received",
		zap.Int("answer_runes", len([]rune(answer.Text))),
		zap.Int("sources_raw", len(parsed.Sources)),
		zap.Int("sources_merged", len(answer.Sources)))

	return answer, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// statusError converts a non-2xx response into a QueryError.
func statusError(resp *http.Response) *QueryError {
	text := http.StatusText(resp.StatusCode)
	// resp.Status is "404 Not Found"; prefer the server's own reason phrase.
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		text = reason
	}
	return &QueryError{
		Status:     resp.StatusCode,
		StatusText: text,
		Message:    fmt.Sprintf("Server error: %d - %s", resp.StatusCode, text),
	}
}

// networkError converts a transport failure into a QueryError.
func networkError(err error) *QueryError {
	reason := "network request failed"
	switch {
	case errors.Is(err, context.Canceled):
		reason = "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "request timed out"
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			reason = "request timed out"
		}
	}
	return &QueryError{
		Message: fmt.Sprintf("%s: %v", reason, err),
		Err:     err,
	}
}
