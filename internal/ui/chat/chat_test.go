// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askrod/internal/reveal"
	"github.com/jeranaias/askrod/internal/session"
	"github.com/jeranaias/askrod/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/query/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"Try the Union.","sources":[
			{"heading":"Dining Guide","source":"https://x/1"},
			{"heading":"Dining Guide","source":"https://x/1","page":2}
		]}`))
	})
	mux.HandleFunc("/query/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("/query/query/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"2 files ingested"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newModel(t *testing.T) Model {
	t.Helper()
	srv := newBackend(t)
	ctrl := session.NewController(session.Config{BaseURL: srv.URL, RevealInterval: time.Millisecond})
	t.Cleanup(ctrl.Close)

	m := New(ctrl, styles.NewTheme("dark"))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func enter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func typed(m Model, text string) Model {
	m.input.SetValue(text)
	return m
}

// commands flattens a (possibly batched) command into its parts.
func commands(cmd tea.Cmd) []tea.Cmd {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Cmd
		for _, c := range batch {
			if c != nil {
				out = append(out, c)
			}
		}
		return out
	}
	return []tea.Cmd{func() tea.Msg { return msg }}
}

// drainReveal feeds reveal messages back into the model until the channel
// closes.
func drainReveal(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 1000; i++ {
		msg := cmd()
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		if _, closed := msg.(RevealClosedMsg); closed {
			return m
		}
		cmd = nextCmd
	}
	return m
}

// =============================================================================
// ASK FLOW
// =============================================================================

func TestEnter_AsksAndReveals(t *testing.T) {
	m := typed(newModel(t), "Where do I eat on campus?")

	next, cmd := m.Update(enter())
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.True(t, m.spinner.IsActive())

	var answer AnswerMsg
	found := false
	for _, c := range commands(cmd) {
		if msg, ok := c().(AnswerMsg); ok {
			answer, found = msg, true
		}
	}
	require.True(t, found, "enter should issue the question")
	require.NoError(t, answer.Err)

	next, cmd = m.Update(answer)
	m = next.(Model)
	assert.False(t, m.spinner.IsActive())
	assert.True(t, m.Revealing())

	m = drainReveal(t, m, cmd)
	assert.False(t, m.Revealing())
	assert.Equal(t, "Try the Union.", m.RevealText())

	view := m.View()
	assert.Contains(t, view, "Where do I eat on campus?")
	assert.Contains(t, view, "Dining Guide")
	assert.Contains(t, view, "(p. 2)")
	assert.Equal(t, 1, m.ctrl.Store().Len())

	latest, _ := m.ctrl.Store().Latest()
	_, cached := m.rendered.Get(latest.ID)
	assert.True(t, cached, "finished answers are rendered once and cached")
}

func TestEnter_BlankIsIgnored(t *testing.T) {
	m := typed(newModel(t), "   ")
	next, cmd := m.Update(enter())
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).spinner.IsActive())
}

func TestReveal_StaleSnapshotDropped(t *testing.T) {
	m := newModel(t)
	m.revealText = "current"

	ch := make(chan reveal.Snapshot)
	next, cmd := m.Update(RevealMsg{Snapshot: reveal.Snapshot{Generation: 99, Text: "old"}, ch: ch})
	assert.Nil(t, cmd)
	assert.Equal(t, "current", next.(Model).RevealText())
}

func TestTab_CyclesSuggestions(t *testing.T) {
	m := newModel(t)
	tab := tea.KeyMsg{Type: tea.KeyTab}

	next, _ := m.Update(tab)
	m = next.(Model)
	assert.Equal(t, CommonQuestions[0], m.input.Value())

	for range CommonQuestions {
		next, _ = m.Update(tab)
		m = next.(Model)
	}
	assert.Equal(t, CommonQuestions[0], m.input.Value(), "suggestions wrap around")
	assert.Contains(t, m.View(), "> "+CommonQuestions[0])
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestLoginCommand(t *testing.T) {
	m := typed(newModel(t), "/login admin")
	next, _ := m.Update(enter())
	m = next.(Model)
	require.Equal(t, ModePassword, m.Mode())
	assert.Equal(t, textinput.EchoPassword, m.input.EchoMode)

	m = typed(m, "pw")
	next, cmd := m.Update(enter())
	m = next.(Model)
	assert.Equal(t, ModeAsk, m.Mode())
	assert.Equal(t, textinput.EchoNormal, m.input.EchoMode)
	require.NotNil(t, cmd)

	result, ok := cmd().(LoginResultMsg)
	require.True(t, ok)
	require.NoError(t, result.Err)

	next, _ = m.Update(result)
	m = next.(Model)
	assert.Equal(t, "Logged in as user.", m.Notice())
	assert.True(t, m.ctrl.Auth().Authenticated())

	m = typed(m, "/logout")
	next, _ = m.Update(enter())
	m = next.(Model)
	assert.False(t, m.ctrl.Auth().Authenticated())
}

func TestLoginCommand_Rejected(t *testing.T) {
	m := typed(newModel(t), "/login admin")
	next, _ := m.Update(enter())
	m = typed(next.(Model), "wrong")
	next, cmd := m.Update(enter())
	m = next.(Model)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Invalid username or password.", m.ctrl.LastError())
	assert.Contains(t, m.View(), "Invalid username or password.")

	m = typed(m, "/clear-error")
	next, _ = m.Update(enter())
	assert.Empty(t, next.(Model).ctrl.LastError())
}

func TestLoginCommand_EscCancels(t *testing.T) {
	m := typed(newModel(t), "/login admin")
	next, _ := m.Update(enter())
	next, cmd := next.(Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, ModeAsk, m.Mode())
	assert.Equal(t, "Login cancelled.", m.Notice())
}

func TestUploadCommand_RequiresLogin(t *testing.T) {
	m := typed(newModel(t), "/upload Dining menu.pdf")
	next, cmd := m.Update(enter())
	assert.Nil(t, cmd)
	assert.Contains(t, next.(Model).Notice(), "log in")
}

func loggedInModel(t *testing.T) Model {
	t.Helper()
	m := newModel(t)
	_, err := m.ctrl.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	return m
}

func TestUploadCommand_MissingFileIsReported(t *testing.T) {
	m := loggedInModel(t)
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	msg := m.uploadCmd("Dining", []string{missing})()
	result, ok := msg.(UploadResultMsg)
	require.True(t, ok)
	require.Error(t, result.Err)

	next, _ := m.Update(result)
	m = next.(Model)
	assert.False(t, m.spinner.IsActive())
	assert.Contains(t, m.ctrl.LastError(), missing)
	assert.Contains(t, m.View(), "missing.pdf")
}

func TestUploadCommand_Success(t *testing.T) {
	m := loggedInModel(t)
	doc := filepath.Join(t.TempDir(), "menu.txt")
	require.NoError(t, os.WriteFile(doc, []byte("soup"), 0600))

	msg := m.uploadCmd("Dining", []string{doc})()
	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, "2 files ingested", m.Notice())
	assert.Empty(t, m.ctrl.LastError())
}

func TestHelpAndUnknownCommands(t *testing.T) {
	m := typed(newModel(t), "/help")
	next, _ := m.Update(enter())
	m = next.(Model)
	for _, c := range Commands {
		assert.Contains(t, m.Notice(), c.Name)
	}

	m = typed(m, "/frobnicate")
	next, _ = m.Update(enter())
	assert.True(t, strings.HasPrefix(next.(Model).Notice(), "Unknown command /frobnicate"))
}

func TestExportCommand(t *testing.T) {
	m := newModel(t)
	m.exportDir = t.TempDir()

	m = typed(m, "/export")
	next, _ := m.Update(enter())
	m = next.(Model)
	assert.Equal(t, "Nothing to export yet.", m.Notice())

	m.ctrl.Store().AppendTurn("Hours?", "9-5", nil)
	m = typed(m, "/export json")
	next, _ = m.Update(enter())
	m = next.(Model)
	require.True(t, strings.HasPrefix(m.Notice(), "Saved conversation to "), m.Notice())

	path := strings.TrimPrefix(m.Notice(), "Saved conversation to ")
	assert.Equal(t, m.exportDir, filepath.Dir(path))
	assert.Equal(t, ".json", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"question": "Hours?"`)

	m = typed(m, "/export pdf")
	next, _ = m.Update(enter())
	assert.Contains(t, next.(Model).Notice(), "unknown export format")
}

// =============================================================================
// REQUEST CONTEXTS
// =============================================================================

func TestRequestContexts(t *testing.T) {
	r := newRequestContexts()
	ctx1, done1 := r.begin(context.Background())
	ctx2, _ := r.begin(context.Background())
	assert.Equal(t, 2, r.outstanding())

	done1()
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.Equal(t, 1, r.outstanding())

	r.cancelAll()
	r.cancelAll()
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
	assert.Zero(t, r.outstanding())
}
