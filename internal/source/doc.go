// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package source holds the citation records attached to an answer and the
// merge step that collapses duplicates returned by the answering service.
//
// # Key Types
//
//   - Source: A citation with a display heading, optional locator and rank
//
// # Usage
//
//	merged := source.Merge(resp.Sources)
//	for _, s := range merged {
//	    fmt.Println(s.DisplayHeading())
//	}
//
// Two sources are the same logical source when their keys match exactly.
// The key is case and whitespace sensitive; "Dining Guide" and
// "dining guide" are kept apart.
package source
