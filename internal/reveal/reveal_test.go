// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFast() *Controller {
	return New(WithInterval(time.Millisecond))
}

// =============================================================================
// BASIC REVEAL TESTS
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultInterval, c.Interval())
	assert.Equal(t, 10*time.Millisecond, c.Interval())
	assert.False(t, c.Active())
	assert.True(t, c.State().Complete)

	assert.Equal(t, DefaultInterval, New(WithInterval(-1)).Interval())
}

func TestStart_EmptyText(t *testing.T) {
	c := newFast()

	ch := c.Start("")
	snap, ok := <-ch
	require.True(t, ok, "expected one snapshot for empty text")
	assert.Equal(t, "", snap.Text)
	assert.True(t, snap.Complete)

	_, ok = <-ch
	assert.False(t, ok, "channel should close after the empty snapshot")
	assert.True(t, c.State().Complete)
}

func TestStart_RevealsEveryCharacter(t *testing.T) {
	c := newFast()
	text := "Try the Union."

	var snaps []Snapshot
	for snap := range c.Start(text) {
		snaps = append(snaps, snap)
	}

	require.Len(t, snaps, len(text))
	for i, snap := range snaps {
		assert.Equal(t, text[:i+1], snap.Text)
		assert.LessOrEqual(t, len(snap.Text), len(text))
		assert.Equal(t, i == len(text)-1, snap.Complete)
	}

	last := snaps[len(snaps)-1]
	assert.Equal(t, text, last.Text)

	state := c.State()
	assert.Equal(t, len(text), state.Cursor)
	assert.True(t, state.Complete)
	assert.Equal(t, text, state.Displayed())
}

func TestStart_MultiByteText(t *testing.T) {
	c := newFast()
	text := "¿Dónde como? 🌽 ok"

	count := 0
	var last Snapshot
	for snap := range c.Start(text) {
		require.True(t, utf8.ValidString(snap.Text), "snapshot split a rune: %q", snap.Text)
		require.True(t, strings.HasPrefix(text, snap.Text))
		last = snap
		count++
	}

	assert.Equal(t, utf8.RuneCountInString(text), count)
	assert.Equal(t, text, last.Text)
	assert.True(t, last.Complete)
}

func TestCollect(t *testing.T) {
	c := newFast()

	snap, ok := Collect(c.Start("hello"))
	assert.True(t, ok)
	assert.Equal(t, "hello", snap.Text)
	assert.Equal(t, uint64(1), snap.Generation)
}

// =============================================================================
// RESTART / CANCEL TESTS
// =============================================================================

func TestStart_RestartDiscardsStaleProgress(t *testing.T) {
	c := newFast()
	first := strings.Repeat("a", 200)
	second := strings.Repeat("b", 50)

	ch1 := c.Start(first)
	// Let the first reveal make some progress.
	<-ch1
	<-ch1

	ch2 := c.Start(second)

	// The first channel is closed by the time Start returns.
	_, ok := <-ch1
	assert.False(t, ok, "stale channel must be closed after restart")

	var last Snapshot
	for snap := range ch2 {
		require.NotContains(t, snap.Text, "a", "stale text leaked into new reveal")
		require.True(t, strings.HasPrefix(second, snap.Text))
		assert.Equal(t, uint64(2), snap.Generation)
		last = snap
	}
	assert.Equal(t, second, last.Text)
	assert.Equal(t, second, c.State().FullText)
}

func TestStart_RestartImmediately(t *testing.T) {
	c := newFast()

	c.Start("first answer that is never read")
	ch := c.Start("second")

	snap, ok := Collect(ch)
	require.True(t, ok)
	assert.Equal(t, "second", snap.Text)
	assert.Equal(t, uint64(2), c.Generation())
}

func TestCancel_StopsEmission(t *testing.T) {
	c := newFast()

	ch := c.Start(strings.Repeat("x", 500))
	<-ch
	c.Cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Cancel")
	assert.False(t, c.Active())

	state := c.State()
	assert.False(t, state.Complete)
	assert.Less(t, state.Cursor, 500)
}

func TestCancel_Idempotent(t *testing.T) {
	c := newFast()
	c.Cancel()

	snap, ok := Collect(c.Start("ok"))
	require.True(t, ok)
	assert.Equal(t, "ok", snap.Text)

	c.Cancel()
	c.Cancel()
	assert.False(t, c.Active())
}

func TestCancel_UnreadSnapshotDoesNotBlock(t *testing.T) {
	c := New(WithInterval(time.Microsecond))

	// Nobody reads this channel; Cancel must still return.
	c.Start("nobody is listening")
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Cancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel blocked on an unread snapshot")
	}
}

func TestStart_ConcurrentRestarts(t *testing.T) {
	c := New(WithInterval(time.Microsecond))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ch := c.Start(strings.Repeat("z", n+1))
			for range ch {
			}
		}(i)
	}
	wg.Wait()

	c.Cancel()
	assert.False(t, c.Active())
	assert.Equal(t, uint64(20), c.Generation())
}

func TestState_Displayed(t *testing.T) {
	s := State{FullText: "héllo", Cursor: 2}
	assert.Equal(t, "hé", s.Displayed())

	s.Cursor = 0
	assert.Equal(t, "", s.Displayed())

	s.Cursor = 99
	assert.Equal(t, "héllo", s.Displayed())
}
