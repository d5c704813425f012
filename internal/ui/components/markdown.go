// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders answer text for the terminal. Renderers are rebuilt only
// when the wrap width changes.
type Markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer using a glamour standard style
// ("dark" or "light").
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style}
}

// Render renders content wrapped at width. It returns the content unchanged
// if glamour cannot render it.
func (m *Markdown) Render(content string, width int) string {
	if width < 20 {
		width = 20
	}
	if m.renderer == nil || width != m.width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		m.renderer = r
		m.width = width
	}

	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
