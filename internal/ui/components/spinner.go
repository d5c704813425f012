// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the askrod TUI.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askrod/internal/ui/styles"
)

// =============================================================================
// THINKING SPINNER
// =============================================================================

// Spinner is the "waiting for an answer" indicator.
type Spinner struct {
	spinner   spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	isActive  bool
	now       func() time.Time
}

// NewSpinner creates an inactive spinner with ASCII-compatible frames.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return Spinner{
		spinner: s,
		theme:   theme,
		message: "Thinking",
		now:     time.Now,
	}
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and returns its first tick.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = s.now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is running.
func (s Spinner) IsActive() bool {
	return s.isActive
}

// Update advances the animation. Ticks are dropped while inactive so the
// tick chain ends.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner with its elapsed time.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	elapsed := s.now().Sub(s.startTime)
	return s.theme.Spinner.Render(s.spinner.View()) + " " +
		s.theme.ThinkingText.Render(s.message+"...") +
		s.theme.SourceRank.Render(" ("+formatElapsed(elapsed)+")")
}

// formatElapsed formats a duration as "12s" or "1m 5s".
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
