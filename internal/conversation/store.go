// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/askrod/internal/source"
)

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one question and its answer.
type Turn struct {
	ID         string          `json:"id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Sources    []source.Source `json:"sources"`
	AskedAt    time.Time       `json:"asked_at"`
	AnsweredAt time.Time       `json:"answered_at"`
}

// clone returns a copy of t whose sources share no memory with t.
func (t Turn) clone() Turn {
	t.Sources = source.Clone(t.Sources)
	if t.Sources == nil {
		t.Sources = []source.Source{}
	}
	return t
}

// HasSources reports whether the answer cited anything.
func (t Turn) HasSources() bool {
	return len(t.Sources) > 0
}

// =============================================================================
// STORE
// =============================================================================

// Store is an append-only, ordered log of turns.
// Any number of readers may use it while one writer appends.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		turns: make([]Turn, 0),
		now:   time.Now,
	}
}

// AppendTurn records an answered question and returns the stored turn.
func (s *Store) AppendTurn(question, answer string, sources []source.Source) Turn {
	return s.Append(Turn{
		Question: question,
		Answer:   answer,
		Sources:  sources,
	})
}

// Append records t, filling in the ID and timestamps when they are zero.
// The caller keeps ownership of t's sources; the store keeps its own copy.
func (s *Store) Append(t Turn) Turn {
	t = t.clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	s.mu.Lock()
	now := s.now()
	if t.AnsweredAt.IsZero() {
		t.AnsweredAt = now
	}
	if t.AskedAt.IsZero() {
		t.AskedAt = t.AnsweredAt
	}
	s.turns = append(s.turns, t)
	s.mu.Unlock()

	return t.clone()
}

// All returns the turns in append order.
// Each iteration reads the store afresh, so the sequence can be ranged over
// again after more turns arrive. Turns appended during an iteration are not
// visited by it.
func (s *Store) All() iter.Seq[Turn] {
	return func(yield func(Turn) bool) {
		s.mu.RLock()
		snapshot := s.turns[:len(s.turns):len(s.turns)]
		s.mu.RUnlock()

		for _, t := range snapshot {
			if !yield(t.clone()) {
				return
			}
		}
	}
}

// Latest returns the most recently appended turn.
func (s *Store) Latest() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1].clone(), true
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Turns returns a copy of every turn in order.
func (s *Store) Turns() []Turn {
	out := make([]Turn, 0, s.Len())
	for t := range s.All() {
		out = append(out, t)
	}
	return out
}
