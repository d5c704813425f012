// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// requestContexts tracks the contexts of in-flight requests so they can be
// cancelled on quit. It must be used as a pointer in Model so Bubble Tea's
// value copies share one mutex.
type requestContexts struct {
	mu      sync.Mutex
	next    int
	cancels map[int]context.CancelFunc
}

func newRequestContexts() *requestContexts {
	return &requestContexts{cancels: make(map[int]context.CancelFunc)}
}

// begin returns a context for one request and a func that releases it.
func (r *requestContexts) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	id := r.next
	r.next++
	r.cancels[id] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		delete(r.cancels, id)
		r.mu.Unlock()
		cancel()
	}
}

// cancelAll cancels every outstanding request. Safe to call repeatedly.
func (r *requestContexts) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
}

// outstanding returns the number of requests not yet released.
func (r *requestContexts) outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
