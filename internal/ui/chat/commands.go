// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/export"
	"github.com/jeranaias/askrod/internal/upload"
)

// Command describes a slash command.
type Command struct {
	Name  string
	Args  string
	Usage string
}

// Commands lists the slash commands in help order.
var Commands = []Command{
	{Name: "/login", Args: "<user>", Usage: "log in to enable uploads"},
	{Name: "/logout", Usage: "drop the login credential"},
	{Name: "/upload", Args: "<category> <file>...", Usage: "upload documents"},
	{Name: "/export", Args: "[md|json]", Usage: "save this conversation to a file"},
	{Name: "/clear-error", Usage: "dismiss the error message"},
	{Name: "/help", Usage: "show this list"},
	{Name: "/quit", Usage: "exit"},
}

// runCommand executes a slash command line.
func (m Model) runCommand(line string) (Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	m.notice = ""

	switch name {
	case "/login":
		if len(args) != 1 {
			m.notice = "Usage: /login <user>"
			return m, nil
		}
		m.enterPasswordMode(args[0])
		return m, nil

	case "/logout":
		m.ctrl.Logout()
		m.notice = "Logged out."
		return m, nil

	case "/upload":
		if len(args) < 2 {
			m.notice = "Usage: /upload <category> <file>..."
			return m, nil
		}
		if !m.ctrl.Auth().Authenticated() {
			m.notice = "Please log in first: /login <user>"
			return m, nil
		}
		m.spinner.SetMessage("Uploading")
		return m, tea.Batch(m.spinner.Start(), m.uploadCmd(args[0], args[1:]))

	case "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		m.notice = m.exportTranscript(format)
		return m, nil

	case "/clear-error":
		m.ctrl.ClearError()
		return m, nil

	case "/help":
		m.notice = helpText()
		return m, nil

	case "/quit", "/exit":
		m.Shutdown()
		return m, tea.Quit

	default:
		m.notice = "Unknown command " + name + ". Type /help for the list."
		return m, nil
	}
}

func helpText() string {
	var b strings.Builder
	for i, c := range Commands {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.Name)
		if c.Args != "" {
			b.WriteString(" " + c.Args)
		}
		b.WriteString(" - " + c.Usage)
	}
	return b.String()
}

// exportTranscript writes the conversation and returns the notice to show.
func (m Model) exportTranscript(format string) string {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return err.Error()
	}
	tr := export.FromStore(m.ctrl.Store(), m.ctrl.BaseURL(), time.Now())
	path, err := export.ToFile(tr, exporter, m.exportDir)
	if errors.Is(err, export.ErrEmptyTranscript) {
		return "Nothing to export yet."
	}
	if err != nil {
		m.logger.Warn("export failed", zap.Error(err))
		return "Export failed: " + err.Error()
	}
	m.logger.Info("conversation exported", zap.String("path", path), zap.Int("turns", len(tr.Turns)))
	return "Saved conversation to " + path
}

func (m Model) loginCmd(user, password string) tea.Cmd {
	ctx, done := m.requests.begin(m.ctx)
	ctrl := m.ctrl
	return func() tea.Msg {
		defer done()
		cred, err := ctrl.Login(ctx, user, password)
		return LoginResultMsg{Credential: cred, Err: err}
	}
}

func (m Model) uploadCmd(category string, paths []string) tea.Cmd {
	ctx, done := m.requests.begin(m.ctx)
	ctrl := m.ctrl
	logger := m.logger
	return func() tea.Msg {
		defer done()
		files, closeAll, err := upload.OpenFiles(paths)
		defer func() {
			if cerr := closeAll(); cerr != nil {
				logger.Warn("failed to close upload files", zap.Error(cerr))
			}
		}()
		if err != nil {
			ctrl.ReportError(err)
			return UploadResultMsg{Err: err}
		}
		res, err := ctrl.Upload(ctx, category, files)
		return UploadResultMsg{Result: res, Err: err}
	}
}
