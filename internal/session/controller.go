// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/auth"
	"github.com/jeranaias/askrod/internal/config"
	"github.com/jeranaias/askrod/internal/conversation"
	"github.com/jeranaias/askrod/internal/logging"
	"github.com/jeranaias/askrod/internal/query"
	"github.com/jeranaias/askrod/internal/reveal"
	"github.com/jeranaias/askrod/internal/upload"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds what a Controller needs to reach the backend.
type Config struct {
	// BaseURL is the answering service, e.g. "http://localhost:80".
	BaseURL string

	// Timeout bounds one question round trip (default: query.DefaultTimeout).
	Timeout time.Duration

	// RevealInterval is the delay per revealed character (default: 10ms).
	RevealInterval time.Duration

	// HTTPClient overrides the client used for every request.
	HTTPClient *http.Client

	Logger *zap.Logger

	// Clock overrides time.Now for turn timestamps.
	Clock func() time.Time
}

// ConfigFrom builds a controller Config from the application configuration.
func ConfigFrom(cfg *config.Config, logger *zap.Logger) Config {
	return Config{
		BaseURL:        cfg.Backend.URL,
		Timeout:        cfg.BackendTimeout(),
		RevealInterval: cfg.RevealInterval(),
		Logger:         logger,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Outcome describes what happened to one submitted question.
type Outcome struct {
	// Ignored is set for blank input; nothing was sent.
	Ignored bool

	// Stale is set when a newer question was asked before this answer
	// arrived. The answer was dropped.
	Stale bool

	// Generation is the request generation assigned to the question.
	Generation uint64

	// Turn is the appended turn on success.
	Turn conversation.Turn

	// Reveal delivers the typing animation for Turn.Answer. It is nil unless
	// a turn was appended.
	Reveal <-chan reveal.Snapshot
}

// Controller drives one conversation.
type Controller struct {
	queries *query.Client
	auth    *auth.Session
	uploads *upload.Client
	flow    *upload.Flow
	store   *conversation.Store
	reveal  *reveal.Controller
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	latest   uint64
	inflight int
	lastErr  string
	closed   bool
}

// NewController wires a controller for cfg.
func NewController(cfg Config) *Controller {
	logger := logging.OrNop(cfg.Logger)
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	queryOpts := []query.Option{query.WithLogger(logger.Named("query"))}
	if cfg.HTTPClient != nil {
		queryOpts = append(queryOpts, query.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Timeout > 0 {
		queryOpts = append(queryOpts, query.WithTimeout(cfg.Timeout))
	}

	authOpts := []auth.Option{auth.WithLogger(logger.Named("auth")), auth.WithClock(now)}
	uploadOpts := []upload.Option{upload.WithLogger(logger.Named("upload"))}
	if cfg.HTTPClient != nil {
		authOpts = append(authOpts, auth.WithHTTPClient(cfg.HTTPClient))
		uploadOpts = append(uploadOpts, upload.WithHTTPClient(cfg.HTTPClient))
	}

	sess := auth.NewSession(cfg.BaseURL, authOpts...)

	return &Controller{
		queries: query.NewClient(cfg.BaseURL, queryOpts...),
		auth:    sess,
		uploads: upload.NewClient(cfg.BaseURL, sess, uploadOpts...),
		flow:    upload.NewFlow(),
		store:   conversation.NewStore(),
		reveal: reveal.New(
			reveal.WithInterval(cfg.RevealInterval),
			reveal.WithLogger(logger.Named("reveal")),
		),
		logger: logger,
		now:    now,
	}
}

// Submit asks question and, on success, appends the turn and starts its reveal.
//
// Blank input is ignored without an error. On failure the turn is not
// appended, LastError holds the user-facing message and the error is
// returned. A response that arrives after a newer Submit is discarded.
func (c *Controller) Submit(ctx context.Context, question string) (Outcome, error) {
	if strings.TrimSpace(question) == "" {
		return Outcome{Ignored: true}, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	c.latest++
	gen := c.latest
	c.inflight++
	c.lastErr = ""
	c.mu.Unlock()

	asked := c.now()
	c.logger.Debug("question submitted", zap.Uint64("generation", gen))

	answer, err := c.queries.Ask(ctx, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if errors.Is(err, query.ErrEmptyQuestion) {
		return Outcome{Ignored: true, Generation: gen}, nil
	}
	if gen != c.latest || c.closed {
		c.logger.Info("discarding stale response",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", c.latest))
		return Outcome{Stale: true, Generation: gen}, nil
	}
	if err != nil {
		c.lastErr = Message(err)
		c.logger.Warn("question failed", zap.Uint64("generation", gen), zap.Error(err))
		return Outcome{Generation: gen}, err
	}

	turn := c.store.Append(conversation.Turn{
		Question:   question,
		Answer:     answer.Text,
		Sources:    answer.Sources,
		AskedAt:    asked,
		AnsweredAt: c.now(),
	})
	snapshots := c.reveal.Start(turn.Answer)

	return Outcome{Generation: gen, Turn: turn, Reveal: snapshots}, nil
}

// Pending reports whether a question is waiting for its answer.
// Callers disable the submit action while it is true.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// LastError returns the message for the most recent failure, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearError dismisses the current error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

// ReportError records a failure raised outside the controller, such as a
// file that could not be opened for upload, so it is shown like any other.
func (c *Controller) ReportError(err error) {
	if err == nil {
		return
	}
	c.logger.Warn("action failed", zap.Error(err))
	c.setError(err)
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = Message(err)
	c.mu.Unlock()
}

// Store returns the conversation log.
func (c *Controller) Store() *conversation.Store {
	return c.store
}

// Reveal returns the reveal controller.
func (c *Controller) Reveal() *reveal.Controller {
	return c.reveal
}

// Auth returns the credential holder.
func (c *Controller) Auth() *auth.Session {
	return c.auth
}

// Flow returns the upload flow.
func (c *Controller) Flow() *upload.Flow {
	return c.flow
}

// BaseURL returns the backend base URL.
func (c *Controller) BaseURL() string {
	return c.queries.BaseURL()
}

// =============================================================================
// PROTECTED ACTIONS
// =============================================================================

// Login obtains a credential. On failure the previous credential is kept and
// LastError holds the message.
func (c *Controller) Login(ctx context.Context, username, password string) (auth.Credential, error) {
	cred, err := c.auth.Login(ctx, username, password)
	if err != nil {
		c.setError(err)
		return auth.Credential{}, err
	}
	c.ClearError()
	return cred, nil
}

// Logout drops the credential.
func (c *Controller) Logout() {
	c.auth.Clear()
}

// Upload sends files under category through the upload flow.
// A rejected credential is cleared and Flow().NeedsLogin reports true.
func (c *Controller) Upload(ctx context.Context, category string, files []upload.File) (upload.Result, error) {
	if !c.auth.Authenticated() {
		c.setError(upload.ErrLoginRequired)
		return upload.Result{}, upload.ErrLoginRequired
	}
	if err := c.flow.Select(category, files); err != nil {
		c.setError(err)
		return upload.Result{}, err
	}
	category, selected, err := c.flow.Begin()
	if err != nil {
		c.setError(err)
		return upload.Result{}, err
	}

	result, err := c.uploads.Upload(ctx, category, selected)
	if finishErr := c.flow.Finish(result, err); finishErr != nil {
		c.logger.Error("upload flow out of step", zap.Error(finishErr))
	}
	if err != nil {
		c.setError(err)
		return upload.Result{}, err
	}
	c.ClearError()
	return result, nil
}

// Close stops the reveal. Answers still in flight are discarded when they
// arrive.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.reveal.Cancel()
}
