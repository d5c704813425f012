// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/reveal"
)

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case AnswerMsg:
		return m.handleAnswer(msg)

	case RevealMsg:
		return m.handleReveal(msg)

	case RevealClosedMsg:
		if m.revealing && !m.ctrl.Reveal().Active() {
			m.revealing = false
			m.refreshViewport()
		}
		return m, nil

	case LoginResultMsg:
		return m.handleLoginResult(msg)

	case UploadResultMsg:
		return m.handleUploadResult(msg)
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.Shutdown()
		return m, tea.Quit, true

	case "esc":
		if m.mode == ModePassword {
			m.leavePasswordMode()
			m.notice = "Login cancelled."
			return m, nil, true
		}
		m.Shutdown()
		return m, tea.Quit, true

	case "tab":
		if m.mode == ModeAsk && m.ctrl.Store().Len() == 0 {
			m.suggestion = (m.suggestion + 1) % len(CommonQuestions)
			m.input.SetValue(CommonQuestions[m.suggestion])
			m.input.CursorEnd()
			m.refreshViewport()
			return m, nil, true
		}

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true

	case "enter":
		next, cmd := m.submit()
		return next, cmd, true
	}
	return m, nil, false
}

// submit acts on the current input line.
func (m Model) submit() (Model, tea.Cmd) {
	value := m.input.Value()

	if m.mode == ModePassword {
		user := m.pendingUser
		m.leavePasswordMode()
		m.notice = "Logging in..."
		return m, m.loginCmd(user, value)
	}

	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "/") {
		m.input.Reset()
		return m.runCommand(trimmed)
	}

	// Disabled while a question is pending; blank input is a no-op.
	if trimmed == "" || m.ctrl.Pending() {
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.suggestion = -1
	m.spinner.SetMessage("Thinking")
	return m, tea.Batch(m.spinner.Start(), m.askCmd(value))
}

func (m *Model) leavePasswordMode() {
	m.mode = ModeAsk
	m.pendingUser = ""
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	m.input.Prompt = inputPrompt
	m.input.Placeholder = placeholder
}

func (m *Model) enterPasswordMode(user string) {
	m.mode = ModePassword
	m.pendingUser = user
	m.input.Reset()
	m.input.EchoMode = textinput.EchoPassword
	m.input.EchoCharacter = '*'
	m.input.Prompt = passwordPrompt
	m.input.Placeholder = ""
}

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

func (m Model) askCmd(question string) tea.Cmd {
	ctx, done := m.requests.begin(m.ctx)
	ctrl := m.ctrl
	return func() tea.Msg {
		defer done()
		out, err := ctrl.Submit(ctx, question)
		return AnswerMsg{Outcome: out, Err: err}
	}
}

// waitForSnapshot reads the next snapshot from a reveal channel.
func waitForSnapshot(ch <-chan reveal.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return RevealClosedMsg{ch: ch}
		}
		return RevealMsg{Snapshot: snap, ch: ch}
	}
}

// =============================================================================
// RESULT HANDLING
// =============================================================================

func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	out := msg.Outcome
	if !m.ctrl.Pending() {
		m.spinner.Stop()
	}

	switch {
	case out.Ignored, out.Stale:
		m.logger.Debug("answer dropped",
			zap.Bool("ignored", out.Ignored),
			zap.Bool("stale", out.Stale),
			zap.Uint64("generation", out.Generation))
		return m, nil

	case msg.Err != nil:
		m.refreshViewport()
		return m, nil
	}

	m.revealing = out.Reveal != nil
	m.revealText = ""
	m.refreshViewport()
	m.viewport.GotoBottom()

	if out.Reveal == nil {
		return m, nil
	}
	return m, waitForSnapshot(out.Reveal)
}

func (m Model) handleReveal(msg RevealMsg) (tea.Model, tea.Cmd) {
	// Snapshots from a superseded reveal are dropped and their channel
	// abandoned; it has already been closed by the newer Start.
	if msg.Snapshot.Generation != m.ctrl.Reveal().Generation() {
		return m, nil
	}

	m.revealText = msg.Snapshot.Text
	if msg.Snapshot.Complete {
		m.revealing = false
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, waitForSnapshot(msg.ch)
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, waitForSnapshot(msg.ch)
}

func (m Model) handleLoginResult(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.notice = ""
		return m, nil
	}
	who := msg.Credential.Subject
	if who == "" {
		who = "user"
	}
	m.notice = "Logged in as " + who + "."
	return m, nil
}

func (m Model) handleUploadResult(msg UploadResultMsg) (tea.Model, tea.Cmd) {
	m.spinner.Stop()
	if msg.Err != nil {
		m.notice = ""
		if m.ctrl.Flow().NeedsLogin() {
			m.notice = "Use /login <user> to log in again."
		}
		return m, nil
	}
	m.notice = msg.Result.Message
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

// Fixed rows: header, spinner/notice, error, input (2 rows), status bar.
const chromeHeight = 6

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-len(inputPrompt)-4, 10)
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 3)
	m.ready = true

	// Markdown is wrapped to the width; cached renders are stale.
	m.rendered.Flush()
	m.refreshViewport()
}
