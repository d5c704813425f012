// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/patrickmn/go-cache"

	"github.com/jeranaias/askrod/internal/conversation"
	"github.com/jeranaias/askrod/internal/ui/components"
)

const revealCursor = "▌"

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}

	if m.spinner.IsActive() {
		sections = append(sections, m.spinner.View())
	} else if m.notice != "" {
		sections = append(sections, m.theme.Notice.Render(m.notice))
	}
	if msg := m.ctrl.LastError(); msg != "" {
		sections = append(sections, m.theme.ErrorBox.Width(max(m.width-2, 10)).Render(msg))
	}

	sections = append(sections,
		m.theme.InputContainer.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatusBar(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("askrod")
	meta := m.theme.HeaderMeta.Render(" " + components.Truncate(m.ctrl.BaseURL(), max(m.width-12, 10)))
	return m.theme.Header.Width(m.width).Render(title + meta)
}

func (m Model) renderStatusBar() string {
	var login string
	if cred, ok := m.ctrl.Auth().Current(); ok {
		who := cred.Subject
		if who == "" {
			who = "logged in"
		}
		login = m.theme.LoggedIn.Render("● " + who)
	} else {
		login = m.theme.LoggedOut.Render("○ guest")
	}

	keys := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" ask"),
		m.theme.ShortcutKey.Render("pgup/pgdn") + m.theme.ShortcutDesc.Render(" scroll"),
		m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render(" commands"),
		m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" quit"),
	}
	if m.ctrl.Store().Len() == 0 {
		keys = append([]string{m.theme.ShortcutKey.Render("tab") + m.theme.ShortcutDesc.Render(" suggestions")}, keys...)
	}
	return m.theme.StatusBar.Width(m.width).Render(login + "  " + strings.Join(keys, "  "))
}

// =============================================================================
// CONVERSATION CONTENT
// =============================================================================

// refreshViewport rebuilds the viewport content from the store.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
}

func (m Model) renderConversation() string {
	if m.ctrl.Store().Len() == 0 {
		return m.renderWelcome()
	}

	latest, _ := m.ctrl.Store().Latest()
	wrap := max(m.width-8, 20)

	var blocks []string
	for turn := range m.ctrl.Store().All() {
		blocks = append(blocks, m.theme.QuestionBubble.MaxWidth(m.width).Render(turn.Question))

		live := m.revealing && turn.ID == latest.ID
		blocks = append(blocks, m.theme.AnswerBubble.Width(wrap+2).Render(m.renderAnswer(turn, live, wrap)))
	}
	return strings.Join(blocks, "\n")
}

// renderAnswer shows the revealed prefix as plain text while the typing
// effect runs, then the full markdown with sources.
func (m Model) renderAnswer(turn conversation.Turn, live bool, wrap int) string {
	if live {
		return lipgloss.NewStyle().Width(wrap).Render(m.revealText) + m.theme.RevealCursor.Render(revealCursor)
	}

	var body string
	if cached, ok := m.rendered.Get(turn.ID); ok {
		body = cached.(string)
	} else {
		body = m.markdown.Render(turn.Answer, wrap)
		m.rendered.Set(turn.ID, body, cache.DefaultExpiration)
	}
	if m.showSources && turn.HasSources() {
		body += "\n\n" + components.RenderSources(m.theme, turn.Sources, wrap)
	}
	return body
}

func (m Model) renderWelcome() string {
	lines := []string{"Ask a question to get started. Try one of these (tab):", ""}
	for i, q := range CommonQuestions {
		if i == m.suggestion {
			lines = append(lines, m.theme.SuggestionSelected.Render("> "+q))
		} else {
			lines = append(lines, m.theme.Suggestion.Render("  "+q))
		}
	}
	return m.theme.Welcome.Render(strings.Join(lines, "\n"))
}
