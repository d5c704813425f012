// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

// Merge collapses sources that share a key.
//
// The first record seen for a key fixes its position in the output. A later
// record with the same key replaces it only when it carries a rank and the
// stored record has none or a higher one, so the lowest page number wins.
// The input slice is not modified.
func Merge(sources []Source) []Source {
	order := make([]string, 0, len(sources))
	byKey := make(map[string]Source, len(sources))

	for _, s := range sources {
		key := s.Key()
		existing, seen := byKey[key]
		if !seen {
			order = append(order, key)
			byKey[key] = s
			continue
		}
		if prefer(s, existing) {
			byKey[key] = s
		}
	}

	merged := make([]Source, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key].clone())
	}
	return merged
}

// prefer reports whether candidate should replace existing.
func prefer(candidate, existing Source) bool {
	if candidate.Rank == nil {
		return false
	}
	return existing.Rank == nil || *existing.Rank > *candidate.Rank
}
