// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the askrod TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeDark  = "dark"
	ModeLight = "light"
	ModeAuto  = "auto"
)

// Theme holds the styled components for the application.
type Theme struct {
	// IsDark selects the glamour markdown style.
	IsDark bool

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	QuestionBubble lipgloss.Style
	AnswerBubble   lipgloss.Style
	RevealCursor   lipgloss.Style

	SourcesTitle  lipgloss.Style
	SourceHeading lipgloss.Style
	SourceLink    lipgloss.Style
	SourceRank    lipgloss.Style

	Suggestion         lipgloss.Style
	SuggestionSelected lipgloss.Style
	Welcome            lipgloss.Style

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	ErrorBox     lipgloss.Style
	Notice       lipgloss.Style
	StatusBar    lipgloss.Style
	LoggedIn     lipgloss.Style
	LoggedOut    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto").
// Auto asks the terminal for its background color.
func NewTheme(mode string) *Theme {
	var dark bool
	switch strings.ToLower(mode) {
	case ModeLight:
		dark = false
	case ModeAuto:
		dark = termenv.HasDarkBackground()
	default:
		dark = true
	}
	lipgloss.SetHasDarkBackground(dark)

	t := &Theme{IsDark: dark}
	t.initStyles()
	return t
}

// MarkdownStyle returns the glamour standard style name for the theme.
func (t *Theme) MarkdownStyle() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Conversation
	t.QuestionBubble = lipgloss.NewStyle().
		Foreground(QuestionFg).
		Background(QuestionBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(QuestionBorder).
		Padding(0, 2).
		MarginLeft(4)

	t.AnswerBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AnswerBorder).
		Padding(0, 1).
		MarginRight(4)

	t.RevealCursor = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	// Sources
	t.SourcesTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.SourceHeading = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SourceLink = lipgloss.NewStyle().
		Foreground(Link).
		Underline(true)

	t.SourceRank = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Suggestions on the empty screen
	t.Welcome = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(1, 2)

	t.Suggestion = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(2)

	t.SuggestionSelected = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		PaddingLeft(2)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// Pending
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Feedback
	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		BorderLeft(true).
		PaddingLeft(1)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald).
		PaddingLeft(2)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.LoggedIn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.LoggedOut = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}
