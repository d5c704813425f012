// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/askrod/internal/conversation"
	"github.com/jeranaias/askrod/internal/source"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes the transcript as a Markdown document.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// frontmatter is the YAML header of a Markdown export.
type frontmatter struct {
	Title     string `yaml:"title"`
	Backend   string `yaml:"backend"`
	Turns     int    `yaml:"turns"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(tr Transcript) ([]byte, error) {
	if len(tr.Turns) == 0 {
		return nil, ErrEmptyTranscript
	}

	header, err := yaml.Marshal(frontmatter{
		Title:     tr.Title,
		Backend:   tr.Backend,
		Turns:     len(tr.Turns),
		Exported:  tr.ExportedAt.Format(time.RFC3339),
		Generator: "askrod",
	})
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n\n")

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(tr.Title)))

	for i, turn := range tr.Turns {
		writeTurn(&sb, turn)
		if i < len(tr.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("*Exported from askrod on %s*\n", formatTimestamp(tr.ExportedAt)))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func writeTurn(sb *strings.Builder, turn conversation.Turn) {
	sb.WriteString(fmt.Sprintf("### Question <sub>%s</sub>\n\n", formatShortTimestamp(turn.AskedAt)))
	sb.WriteString(strings.TrimSpace(turn.Question))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("### Answer <sub>%s</sub>\n\n", formatShortTimestamp(turn.AnsweredAt)))
	// Answers are already markdown.
	sb.WriteString(strings.TrimSpace(turn.Answer))
	sb.WriteString("\n\n")

	if turn.HasSources() {
		sb.WriteString("**Sources**\n\n")
		for _, s := range turn.Sources {
			sb.WriteString("- ")
			sb.WriteString(formatSource(s))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

// formatSource renders one citation as "Heading (p. N) - locator".
func formatSource(s source.Source) string {
	line := escapeMarkdown(s.DisplayHeading())
	if s.HasRank() {
		line += fmt.Sprintf(" (p. %d)", *s.Rank)
	}
	if s.HasLink() {
		if strings.HasPrefix(s.Locator, "http://") || strings.HasPrefix(s.Locator, "https://") {
			line += fmt.Sprintf(" - <%s>", s.Locator)
		} else {
			line += " - `" + s.Locator + "`"
		}
	}
	return line
}

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
