// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/askrod/internal/auth"
	"github.com/jeranaias/askrod/internal/config"
	"github.com/jeranaias/askrod/internal/query"
	"github.com/jeranaias/askrod/internal/reveal"
	"github.com/jeranaias/askrod/internal/upload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeBackend answers questions from a table and accepts admin/pw logins.
type fakeBackend struct {
	answers map[string]string

	// hold, when set for a question, blocks its response until closed.
	hold    map[string]chan struct{}
	arrived chan string

	uploadStatus atomic.Int32
	queries      atomic.Int32
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{
		answers: map[string]string{},
		hold:    map[string]chan struct{}{},
		arrived: make(chan string, 8),
	}
	fb.uploadStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc(query.QueryPath, fb.handleQuery)
	mux.HandleFunc(auth.TokenPath, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("username") != "admin" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})
	mux.HandleFunc(upload.UploadPath, func(w http.ResponseWriter, r *http.Request) {
		status := int(fb.uploadStatus.Load())
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"message":"uploaded"}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) handleQuery(w http.ResponseWriter, r *http.Request) {
	fb.queries.Add(1)
	var req struct {
		Query string `json:"query"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	fb.arrived <- req.Query

	if ch, ok := fb.hold[req.Query]; ok {
		select {
		case <-ch:
		case <-r.Context().Done():
			return
		}
	}

	if req.Query == "Where do I eat on campus?" {
		w.Write([]byte(`{"answer":"Try the Union.","sources":[
			{"heading":"Dining Guide","source":"https://x/1"},
			{"heading":"Dining Guide","source":"https://x/1","page":2}
		]}`))
		return
	}
	answer, ok := fb.answers[req.Query]
	if !ok {
		http.Error(w, "no answer", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"answer": answer, "sources": []any{}})
}

func newController(t *testing.T, srv *httptest.Server) *Controller {
	t.Helper()
	c := NewController(Config{BaseURL: srv.URL, RevealInterval: time.Millisecond})
	t.Cleanup(c.Close)
	return c
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestSubmit_EndToEnd(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newController(t, srv)

	out, err := c.Submit(context.Background(), "Where do I eat on campus?")
	require.NoError(t, err)
	require.NotNil(t, out.Reveal)
	assert.False(t, out.Ignored)
	assert.False(t, out.Stale)

	require.Equal(t, 1, c.Store().Len())
	turn, ok := c.Store().Latest()
	require.True(t, ok)
	assert.Equal(t, "Where do I eat on campus?", turn.Question)
	assert.Equal(t, "Try the Union.", turn.Answer)
	require.Len(t, turn.Sources, 1)
	assert.Equal(t, "Dining Guide", turn.Sources[0].Heading)
	assert.Equal(t, "https://x/1", turn.Sources[0].Locator)
	require.NotNil(t, turn.Sources[0].Rank)
	assert.Equal(t, 2, *turn.Sources[0].Rank)

	final, complete := reveal.Collect(out.Reveal)
	require.True(t, complete)
	assert.Equal(t, "Try the Union.", final.Text)
	assert.Equal(t, "Try the Union.", c.Reveal().State().Displayed())
	assert.False(t, c.Pending())
	assert.Empty(t, c.LastError())
}

func TestSubmit_BlankIsIgnored(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newController(t, srv)

	out, err := c.Submit(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Nil(t, out.Reveal)
	assert.Zero(t, fb.queries.Load())
	assert.Zero(t, c.Store().Len())
	assert.Empty(t, c.LastError())
}

func TestSubmit_FailureNotAppended(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newController(t, srv)

	_, err := c.Submit(context.Background(), "unknown question")
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrQueryFailed)

	assert.Zero(t, c.Store().Len())
	assert.Equal(t,
		"Failed to get response: Server error: 500 - Internal Server Error. Please check if the backend server is running and accessible.",
		c.LastError())

	c.ClearError()
	assert.Empty(t, c.LastError())
}

func TestSubmit_SuccessClearsPreviousError(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.answers["hours?"] = "9 to 5"
	c := newController(t, srv)

	_, err := c.Submit(context.Background(), "nope")
	require.Error(t, err)
	require.NotEmpty(t, c.LastError())

	out, err := c.Submit(context.Background(), "hours?")
	require.NoError(t, err)
	reveal.Collect(out.Reveal)
	assert.Empty(t, c.LastError())
}

func TestSubmit_StaleResponseDiscarded(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.answers["slow"] = "slow answer"
	fb.answers["fast"] = "fast answer"
	release := make(chan struct{})
	fb.hold["slow"] = release
	c := newController(t, srv)

	var (
		wg      sync.WaitGroup
		slowOut Outcome
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowOut, slowErr = c.Submit(context.Background(), "slow")
	}()
	require.Equal(t, "slow", <-fb.arrived)
	assert.True(t, c.Pending())

	fastOut, err := c.Submit(context.Background(), "fast")
	require.NoError(t, err)
	<-fb.arrived

	close(release)
	wg.Wait()

	require.NoError(t, slowErr)
	assert.True(t, slowOut.Stale)
	assert.Nil(t, slowOut.Reveal)
	assert.Less(t, slowOut.Generation, fastOut.Generation)

	require.Equal(t, 1, c.Store().Len())
	latest, _ := c.Store().Latest()
	assert.Equal(t, "fast answer", latest.Answer)

	final, _ := reveal.Collect(fastOut.Reveal)
	assert.Equal(t, "fast answer", final.Text)
	assert.False(t, c.Pending())
}

func TestSubmit_NewAnswerSupersedesReveal(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.answers["one"] = strings.Repeat("a", 200)
	fb.answers["two"] = "bbb"
	c := NewController(Config{BaseURL: srv.URL, RevealInterval: 5 * time.Millisecond})
	defer c.Close()

	first, err := c.Submit(context.Background(), "one")
	require.NoError(t, err)
	<-first.Reveal

	second, err := c.Submit(context.Background(), "two")
	require.NoError(t, err)

	// The first reveal's channel is closed without reaching its end.
	last, complete := reveal.Collect(first.Reveal)
	assert.False(t, complete)
	assert.Less(t, len(last.Text), 200)

	for snap := range second.Reveal {
		assert.True(t, strings.HasPrefix("bbb", snap.Text), snap.Text)
	}
	assert.Equal(t, 2, c.Store().Len())
	<-fb.arrived
	<-fb.arrived
}

func TestSubmit_AfterClose(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newController(t, srv)
	c.Close()

	_, err := c.Submit(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrClosed)
}

// =============================================================================
// LOGIN / UPLOAD TESTS
// =============================================================================

func TestLoginAndUpload(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newController(t, srv)

	_, err := c.Upload(context.Background(), "Dining", []upload.File{{Name: "a.txt", Reader: strings.NewReader("x")}})
	assert.ErrorIs(t, err, upload.ErrLoginRequired)
	assert.Equal(t, "Please log in to upload documents.", c.LastError())

	_, err = c.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password.", c.LastError())
	assert.False(t, c.Auth().Authenticated())

	cred, err := c.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", cred.Token)
	assert.Empty(t, c.LastError())

	res, err := c.Upload(context.Background(), "Dining", []upload.File{{Name: "a.txt", Reader: strings.NewReader("x")}})
	require.NoError(t, err)
	assert.Equal(t, "uploaded", res.Message)
	assert.Equal(t, upload.Succeeded, c.Flow().Phase())

	c.Logout()
	assert.False(t, c.Auth().Authenticated())
}

func TestUpload_UnauthorizedDemandsLogin(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.uploadStatus.Store(http.StatusUnauthorized)
	c := newController(t, srv)

	_, err := c.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), "Dining", []upload.File{{Name: "a.txt", Reader: strings.NewReader("x")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, upload.ErrUnauthorized))

	_, ok := c.Auth().Current()
	assert.False(t, ok)
	assert.True(t, c.Flow().NeedsLogin())
	assert.Equal(t, upload.Failed, c.Flow().Phase())
	assert.Equal(t, "Your session has expired. Please log in again.", c.LastError())
}

func TestUpload_MissingCategory(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := newController(t, srv)
	_, err := c.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), "", []upload.File{{Name: "a.txt", Reader: strings.NewReader("x")}})
	assert.ErrorIs(t, err, upload.ErrMissingCategory)
	assert.Equal(t, "Please select a category.", c.LastError())
	assert.Equal(t, upload.Idle, c.Flow().Phase())
}

// =============================================================================
// MISC
// =============================================================================

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.URL = "http://rod:9000"
	cfg.Reveal.IntervalMs = 3

	sc := ConfigFrom(cfg, nil)
	assert.Equal(t, "http://rod:9000", sc.BaseURL)
	assert.Equal(t, 3*time.Millisecond, sc.RevealInterval)
	assert.Equal(t, cfg.BackendTimeout(), sc.Timeout)

	c := NewController(sc)
	defer c.Close()
	assert.Equal(t, "http://rod:9000", c.BaseURL())
	assert.Equal(t, 3*time.Millisecond, c.Reveal().Interval())
}

func TestReportError(t *testing.T) {
	c := NewController(Config{BaseURL: "http://rod:9000"})
	defer c.Close()

	c.ReportError(nil)
	assert.Empty(t, c.LastError())

	c.ReportError(errors.New("failed to open menu.pdf"))
	assert.Equal(t, "failed to open menu.pdf", c.LastError())
}

func TestNewController_SharedHTTPClientUntouched(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Minute}
	c := NewController(Config{BaseURL: "http://rod:9000", HTTPClient: hc, Timeout: 2 * time.Second})
	defer c.Close()

	assert.Equal(t, 5*time.Minute, hc.Timeout, "upload and login share this client")
	assert.Equal(t, 2*time.Second, c.queries.Timeout())
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "Please enter a username and password.", Message(auth.ErrMissingCredentials))
	assert.Equal(t, "Login failed: could not reach the login service",
		Message(&auth.AuthenticationError{Message: "could not reach the login service"}))
	assert.Equal(t, "Upload failed: disk full", Message(&upload.UploadError{Status: 500, Message: "disk full"}))
	assert.Equal(t, "Please select at least one file.", Message(upload.ErrNoFiles))
}
