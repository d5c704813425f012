// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered log of answered questions.
//
// A Store only grows. Turns are appended when an answer arrives and are never
// edited, reordered or removed; the store lives as long as the conversation
// view that owns it.
//
// # Usage
//
//	store := conversation.NewStore()
//	store.AppendTurn("Where do I eat on campus?", "Try the Union.", sources)
//
//	for turn := range store.All() {
//	    fmt.Println(turn.Question, "->", turn.Answer)
//	}
//
//	if last, ok := store.Latest(); ok {
//	    reveal.Start(last.Answer)
//	}
package conversation
