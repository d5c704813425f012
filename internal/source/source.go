// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package source holds the citation records attached to an answer.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholders used when building a merge key for incomplete records.
const (
	UnknownHeading = "Unknown"
	NoLocator      = "None"

	// unknownTitle is what the sources list shows for a record without a heading.
	unknownTitle = "Unknown Title"
)

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a single citation returned with an answer.
type Source struct {
	// Heading is the display title. Empty when the service sent none.
	Heading string `json:"heading,omitempty"`

	// Locator is a URL or document reference. Empty when absent.
	Locator string `json:"source,omitempty"`

	// Rank is an optional ordinal such as a page number.
	Rank *int `json:"page,omitempty"`
}

// New creates a source without a rank.
func New(heading, locator string) Source {
	return Source{Heading: heading, Locator: locator}
}

// WithRank returns a copy of s carrying the given rank.
func (s Source) WithRank(rank int) Source {
	s.Rank = &rank
	return s
}

// Key returns the identity used for deduplication.
func (s Source) Key() string {
	heading := s.Heading
	if heading == "" {
		heading = UnknownHeading
	}
	locator := s.Locator
	if locator == "" {
		locator = NoLocator
	}
	return heading + "|" + locator
}

// HasRank reports whether the rank is defined.
func (s Source) HasRank() bool {
	return s.Rank != nil
}

// DisplayHeading returns the heading, or a placeholder when it is missing.
func (s Source) DisplayHeading() string {
	if s.Heading == "" {
		return unknownTitle
	}
	return s.Heading
}

// HasLink reports whether the locator points somewhere the user can follow.
func (s Source) HasLink() bool {
	return s.Locator != "" && s.Locator != NoLocator
}

// String implements fmt.Stringer.
func (s Source) String() string {
	if s.Rank != nil {
		return fmt.Sprintf("%s (%s, p. %d)", s.DisplayHeading(), s.Key(), *s.Rank)
	}
	return fmt.Sprintf("%s (%s)", s.DisplayHeading(), s.Key())
}

// clone returns a copy that shares no memory with s.
func (s Source) clone() Source {
	if s.Rank != nil {
		r := *s.Rank
		s.Rank = &r
	}
	return s
}

// Clone returns deep copies of the given sources.
func Clone(sources []Source) []Source {
	if sources == nil {
		return nil
	}
	out := make([]Source, len(sources))
	for i, s := range sources {
		out[i] = s.clone()
	}
	return out
}

// =============================================================================
// JSON DECODING
// =============================================================================

// wireSource mirrors what the answering service actually sends. Older
// deployments use "title" instead of "heading" and may send the page as a
// string.
type wireSource struct {
	Heading *string         `json:"heading"`
	Title   *string         `json:"title"`
	Locator *string         `json:"source"`
	Page    json.RawMessage `json:"page"`
}

// UnmarshalJSON accepts both the current and the legacy source shapes.
func (s *Source) UnmarshalJSON(data []byte) error {
	var w wireSource
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode source: %w", err)
	}

	*s = Source{}
	switch {
	case w.Heading != nil:
		s.Heading = *w.Heading
	case w.Title != nil:
		s.Heading = *w.Title
	}
	if w.Locator != nil {
		s.Locator = *w.Locator
	}

	rank, ok, err := parseRank(w.Page)
	if err != nil {
		return err
	}
	if ok {
		s.Rank = &rank
	}
	return nil
}

// parseRank decodes a page value sent as a number or a numeric string.
// Anything else (null, empty, free text) leaves the rank undefined.
func parseRank(raw json.RawMessage) (int, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i, true, nil
		}
		if f, err := n.Float64(); err == nil {
			// 3.0 is page 3; 2.7 or a value past int range is not a page.
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return 0, false, nil
			}
			return int(f), true, nil
		}
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false, fmt.Errorf("failed to decode source page %s: %w", string(raw), err)
	}
	i, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, false, nil
	}
	return i, true, nil
}
