// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/askrod/internal/source"
	"github.com/jeranaias/askrod/internal/ui/styles"
)

// RenderSources renders the citation list under an answer, one line per
// source, truncated to width display cells.
func RenderSources(theme *styles.Theme, sources []source.Source, width int) string {
	if len(sources) == 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString(theme.SourcesTitle.Render("Sources:"))
	for i, s := range sources {
		b.WriteString("\n")
		b.WriteString(renderSource(theme, i+1, s, width))
	}
	return b.String()
}

func renderSource(theme *styles.Theme, n int, s source.Source, width int) string {
	prefix := fmt.Sprintf("  %d. ", n)
	heading := s.DisplayHeading()

	var suffix string
	if s.HasRank() {
		suffix = fmt.Sprintf(" (p. %d)", *s.Rank)
	}

	var link string
	if s.HasLink() {
		link = " - " + s.Locator
	}

	// Truncate the link first, then the heading, so the heading survives
	// on narrow terminals.
	budget := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix)
	headingWidth := runewidth.StringWidth(heading)
	if headingWidth+runewidth.StringWidth(link) > budget {
		link = runewidth.Truncate(link, max(budget-headingWidth, 0), "...")
		if headingWidth > budget {
			heading = runewidth.Truncate(heading, max(budget, 0), "...")
			link = ""
		}
	}

	line := prefix + theme.SourceHeading.Render(heading)
	if suffix != "" {
		line += theme.SourceRank.Render(suffix)
	}
	if link != "" {
		line += theme.SourceLink.Render(link)
	}
	return line
}

// Truncate shortens s to width display cells with a trailing ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "...")
}
