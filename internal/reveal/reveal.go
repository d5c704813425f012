// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal implements the typing effect used to display answers.
//
// The answer is already complete when it arrives; the Controller discloses
// it one character per tick so the response appears to be typed out. Only one
// reveal runs per Controller. Starting a new one stops the previous ticker
// before the new one begins, so two tickers never race on the same view.
package reveal

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the delay between two revealed characters.
const DefaultInterval = 10 * time.Millisecond

// =============================================================================
// STATE TYPES
// =============================================================================

// State describes the progress of the current reveal.
// Cursor counts runes, not bytes, so a prefix never splits a UTF-8 sequence.
type State struct {
	FullText string
	Cursor   int
	Complete bool
}

// Displayed returns the part of FullText that has been revealed so far.
func (s State) Displayed() string {
	return prefix(s.FullText, s.Cursor)
}

// Snapshot is one emitted step of a reveal.
type Snapshot struct {
	// Generation identifies the Start call that produced this snapshot.
	Generation uint64
	Text       string
	Complete   bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the reveal state machine for one displayed answer.
type Controller struct {
	interval time.Duration
	logger   *zap.Logger

	// runMu serializes Start and Cancel so stop-then-replace is atomic.
	runMu  sync.Mutex
	active *run

	// stateMu guards gen and state. It is never held while waiting on a run.
	stateMu sync.Mutex
	gen     uint64
	state   State
}

// run is a single ticker goroutine.
type run struct {
	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the tick interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an idle Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		interval: DefaultInterval,
		logger:   zap.NewNop(),
		state:    State{Complete: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval returns the configured tick interval.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Start begins revealing fullText and returns the channel its snapshots are
// delivered on. Any reveal already in progress is stopped first and its
// channel closed; none of its snapshots are delivered after Start returns.
//
// The channel is unbuffered and closed once the final snapshot (equal to
// fullText) has been received, or when the reveal is cancelled. An empty
// fullText yields a single complete snapshot.
func (c *Controller) Start(fullText string) <-chan Snapshot {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.stopLocked()

	total := runeCount(fullText)

	c.stateMu.Lock()
	c.gen++
	gen := c.gen
	c.state = State{FullText: fullText, Cursor: 0, Complete: total == 0}
	c.stateMu.Unlock()

	r := &run{
		gen:  gen,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.active = r

	out := make(chan Snapshot)
	go c.loop(r, fullText, total, out)

	c.logger.Debug("reveal started",
		zap.Uint64("generation", gen),
		zap.Int("runes", total),
		zap.Duration("interval", c.interval))

	return out
}

// Cancel stops the active reveal without emitting further snapshots.
// It is safe to call at any time, including when nothing is running.
func (c *Controller) Cancel() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.stopLocked()
}

// stopLocked stops the active run and waits for its goroutine to exit.
// Caller must hold runMu.
func (c *Controller) stopLocked() {
	if c.active == nil {
		return
	}
	r := c.active
	c.active = nil

	close(r.stop)
	<-r.done

	c.logger.Debug("reveal stopped", zap.Uint64("generation", r.gen))
}

// loop advances the cursor once per tick until the text is fully shown.
func (c *Controller) loop(r *run, fullText string, total int, out chan<- Snapshot) {
	defer close(r.done)
	defer close(out)

	if total == 0 {
		select {
		case out <- Snapshot{Generation: r.gen, Complete: true}:
		case <-r.stop:
		}
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	runes := []rune(fullText)
	cursor := 0

	for cursor < total {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		cursor++
		complete := cursor == total
		snap := Snapshot{
			Generation: r.gen,
			Text:       string(runes[:cursor]),
			Complete:   complete,
		}

		c.stateMu.Lock()
		if c.gen == r.gen {
			c.state.Cursor = cursor
			c.state.Complete = complete
		}
		c.stateMu.Unlock()

		select {
		case out <- snap:
		case <-r.stop:
			return
		}
	}
}

// State returns the progress of the most recent reveal.
func (c *Controller) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Generation returns the number of reveals started so far.
func (c *Controller) Generation() uint64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.gen
}

// Active reports whether a ticker goroutine is still running.
func (c *Controller) Active() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.active == nil {
		return false
	}
	select {
	case <-c.active.done:
		return false
	default:
		return true
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Collect drains ch and returns the last snapshot received.
// The boolean is false if the channel closed without a complete snapshot.
func Collect(ch <-chan Snapshot) (Snapshot, bool) {
	var last Snapshot
	for snap := range ch {
		last = snap
	}
	return last, last.Complete
}

func runeCount(s string) int {
	return len([]rune(s))
}

func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[:n])
}
