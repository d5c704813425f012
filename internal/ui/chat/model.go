// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/logging"
	"github.com/jeranaias/askrod/internal/session"
	"github.com/jeranaias/askrod/internal/ui/components"
	"github.com/jeranaias/askrod/internal/ui/styles"
)

// =============================================================================
// INPUT MODE
// =============================================================================

// Mode selects what the input line is collecting.
type Mode int

const (
	ModeAsk      Mode = iota // Questions and slash commands
	ModePassword             // Masked password for /login
)

const (
	inputPrompt    = "> "
	passwordPrompt = "Password: "
	placeholder    = "Ask a question, or /help"
)

// Lifetime of a cached answer render.
const (
	renderTTL     = 30 * time.Minute
	renderCleanup = 10 * time.Minute
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the conversation view.
type Model struct {
	ctrl     *session.Controller
	theme    *styles.Theme
	markdown *components.Markdown
	spinner  components.Spinner
	input    textinput.Model
	viewport viewport.Model
	logger   *zap.Logger
	requests *requestContexts
	ctx      context.Context

	width  int
	height int
	ready  bool

	mode        Mode
	pendingUser string

	// revealText is what the newest turn shows while it is being revealed.
	revealText string
	revealing  bool

	// rendered caches markdown per turn ID at the current width.
	rendered *cache.Cache

	suggestion  int
	notice      string
	showSources bool
	exportDir   string
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logging.OrNop(logger)
	}
}

// WithShowSources toggles the citation list under answers.
func WithShowSources(show bool) Option {
	return func(m *Model) {
		m.showSources = show
	}
}

// WithExportDir sets where /export writes files.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		if dir != "" {
			m.exportDir = dir
		}
	}
}

// WithContext sets the parent context for requests.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// New creates the conversation view for ctrl.
func New(ctrl *session.Controller, theme *styles.Theme, opts ...Option) Model {
	in := textinput.New()
	in.Prompt = inputPrompt
	in.Placeholder = placeholder
	in.CharLimit = 2000
	in.Focus()

	m := Model{
		ctrl:        ctrl,
		theme:       theme,
		markdown:    components.NewMarkdown(theme.MarkdownStyle()),
		spinner:     components.NewSpinner(theme),
		input:       in,
		viewport:    viewport.New(80, 20),
		logger:      zap.NewNop(),
		requests:    newRequestContexts(),
		ctx:         context.Background(),
		rendered:    cache.New(renderTTL, renderCleanup),
		suggestion:  -1,
		showSources: true,
		exportDir:   ".",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns the current input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// RevealText returns the partially revealed text of the newest answer.
func (m Model) RevealText() string {
	return m.revealText
}

// Revealing reports whether the newest answer is still being revealed.
func (m Model) Revealing() bool {
	return m.revealing
}

// Notice returns the informational line shown above the input.
func (m Model) Notice() string {
	return m.notice
}

// Shutdown cancels outstanding requests and stops the reveal.
func (m Model) Shutdown() {
	m.requests.cancelAll()
	m.ctrl.Close()
}
