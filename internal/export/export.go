// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/askrod/internal/conversation"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("conversation has no turns")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is a snapshot of a conversation prepared for export.
type Transcript struct {
	Title      string              `json:"title"`
	Backend    string              `json:"backend"`
	ExportedAt time.Time           `json:"exported_at"`
	Turns      []conversation.Turn `json:"turns"`
}

// titleLength caps the title taken from the first question.
const titleLength = 50

// FromStore snapshots store. The title is the first question, shortened.
func FromStore(store *conversation.Store, backend string, now time.Time) Transcript {
	tr := Transcript{
		Backend:    backend,
		ExportedAt: now,
		Turns:      store.Turns(),
	}
	if len(tr.Turns) > 0 {
		tr.Title = shorten(strings.TrimSpace(tr.Turns[0].Question), titleLength)
	}
	if tr.Title == "" {
		tr.Title = "Conversation"
	}
	return tr
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript into one file format.
type Exporter interface {
	// Export returns the file content.
	Export(tr Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot, e.g. ".md".
	FileExtension() string
}

// ForFormat returns the exporter for a format name: "md", "markdown" or "json".
func ForFormat(name string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use md or json)", name)
	}
}

// ToFile exports tr into dir and returns the written path. The file name is
// built from the title and the export time.
func ToFile(tr Transcript, exporter Exporter, dir string) (string, error) {
	if len(tr.Turns) == 0 {
		return "", ErrEmptyTranscript
	}

	content, err := exporter.Export(tr)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("askrod_%s_%s%s",
		sanitizeFilename(tr.Title),
		tr.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(shorten(s, 40), "...")

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		'.':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := make([]rune, 0, len(s))
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	out := strings.Trim(string(result), "-_")
	if out == "" {
		return "conversation"
	}
	return out
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
