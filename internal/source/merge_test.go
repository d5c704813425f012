// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(n int) *int { return &n }

// =============================================================================
// MERGE TESTS
// =============================================================================

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Source
		want []Source
	}{
		{
			name: "nil input",
			in:   nil,
			want: []Source{},
		},
		{
			name: "distinct sources keep input order",
			in: []Source{
				{Heading: "B", Locator: "u2"},
				{Heading: "A", Locator: "u1"},
			},
			want: []Source{
				{Heading: "B", Locator: "u2"},
				{Heading: "A", Locator: "u1"},
			},
		},
		{
			name: "lower rank wins",
			in: []Source{
				{Heading: "A", Locator: "u", Rank: rank(5)},
				{Heading: "A", Locator: "u", Rank: rank(2)},
			},
			want: []Source{{Heading: "A", Locator: "u", Rank: rank(2)}},
		},
		{
			name: "higher rank does not replace",
			in: []Source{
				{Heading: "A", Locator: "u", Rank: rank(2)},
				{Heading: "A", Locator: "u", Rank: rank(7)},
			},
			want: []Source{{Heading: "A", Locator: "u", Rank: rank(2)}},
		},
		{
			name: "ranked replaces unranked",
			in: []Source{
				{Heading: "A", Locator: "u"},
				{Heading: "A", Locator: "u", Rank: rank(3)},
				{Heading: "A", Locator: "u"},
			},
			want: []Source{{Heading: "A", Locator: "u", Rank: rank(3)}},
		},
		{
			name: "unranked duplicates keep first seen",
			in: []Source{
				{Heading: "A", Locator: "u"},
				{Heading: "A", Locator: "u"},
			},
			want: []Source{{Heading: "A", Locator: "u"}},
		},
		{
			name: "replacement keeps first position",
			in: []Source{
				{Heading: "A", Locator: "u", Rank: rank(9)},
				{Heading: "B", Locator: "v"},
				{Heading: "A", Locator: "u", Rank: rank(1)},
			},
			want: []Source{
				{Heading: "A", Locator: "u", Rank: rank(1)},
				{Heading: "B", Locator: "v"},
			},
		},
		{
			name: "missing heading and locator collapse",
			in: []Source{
				{},
				{Heading: "", Locator: ""},
				{Heading: UnknownHeading, Locator: NoLocator},
			},
			want: []Source{{}},
		},
		{
			name: "key is case sensitive",
			in: []Source{
				{Heading: "Dining Guide", Locator: "u"},
				{Heading: "dining guide", Locator: "u"},
			},
			want: []Source{
				{Heading: "Dining Guide", Locator: "u"},
				{Heading: "dining guide", Locator: "u"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	in := []Source{
		{Heading: "A", Locator: "u", Rank: rank(4)},
		{Heading: "B"},
		{Heading: "A", Locator: "u"},
		{Locator: "https://x/2"},
		{Heading: "A", Locator: "u", Rank: rank(1)},
		{Heading: "B", Rank: rank(3)},
		{},
	}

	once := Merge(in)
	twice := Merge(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Merge is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestMerge_UniqueKeys(t *testing.T) {
	in := []Source{
		{Heading: "A"}, {Heading: "A", Locator: "None"}, {Locator: "x"},
		{Heading: "Unknown", Locator: "x"}, {Heading: "C", Rank: rank(1)},
	}

	seen := make(map[string]bool)
	for _, s := range Merge(in) {
		require.False(t, seen[s.Key()], "duplicate key %q", s.Key())
		seen[s.Key()] = true
	}
	assert.Len(t, seen, 3)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	in := []Source{{Heading: "A", Rank: rank(2)}}
	out := Merge(in)

	*out[0].Rank = 99
	assert.Equal(t, 2, *in[0].Rank)
}

// =============================================================================
// KEY / DISPLAY TESTS
// =============================================================================

func TestSource_Key(t *testing.T) {
	assert.Equal(t, "Unknown|None", Source{}.Key())
	assert.Equal(t, "Dining Guide|https://x/1", New("Dining Guide", "https://x/1").Key())
	assert.Equal(t, " A |None", Source{Heading: " A "}.Key())
}

func TestSource_Display(t *testing.T) {
	assert.Equal(t, "Unknown Title", Source{}.DisplayHeading())
	assert.False(t, Source{Locator: "None"}.HasLink())
	assert.False(t, Source{}.HasLink())
	assert.True(t, Source{Locator: "https://x/1"}.HasLink())
}

// =============================================================================
// JSON TESTS
// =============================================================================

func TestSource_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Source
	}{
		{"current shape", `{"heading":"Dining Guide","source":"https://x/1","page":2}`,
			Source{Heading: "Dining Guide", Locator: "https://x/1", Rank: rank(2)}},
		{"legacy title and string page", `{"title":"Catalog","source":"catalog.pdf","page":"12"}`,
			Source{Heading: "Catalog", Locator: "catalog.pdf", Rank: rank(12)}},
		{"heading wins over title", `{"heading":"H","title":"T"}`,
			Source{Heading: "H"}},
		{"null fields", `{"heading":null,"source":null,"page":null}`,
			Source{}},
		{"non numeric page", `{"heading":"A","page":"intro"}`,
			Source{Heading: "A"}},
		{"integral float page", `{"heading":"A","page":3.0}`,
			Source{Heading: "A", Rank: rank(3)}},
		{"fractional page", `{"heading":"A","page":2.7}`,
			Source{Heading: "A"}},
		{"page out of int range", `{"heading":"A","page":1e30}`,
			Source{Heading: "A"}},
		{"fractional string page", `{"heading":"A","page":"2.7"}`,
			Source{Heading: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Source
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UnmarshalJSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSource_UnmarshalJSON_BadPage(t *testing.T) {
	var s Source
	err := json.Unmarshal([]byte(`{"heading":"A","page":{"n":1}}`), &s)
	assert.Error(t, err)
}
