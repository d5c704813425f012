// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the conversation view for the askrod TUI.

The view is a Bubble Tea model in front of a session.Controller. It turns key
presses into controller actions and renders what the controller reports.

# Asking

Enter submits the input. While a question is pending the submit key does
nothing, so only one request is in flight from this view. The answer's reveal
channel is read one snapshot per message; each snapshot carries the reveal
generation and anything older than the controller's current generation is
dropped.

# Commands

	/login <user>              prompt for a password and log in
	/logout                    drop the credential
	/upload <category> <file>  upload documents (requires login)
	/clear-error               dismiss the error message
	/help                      list commands
	/quit                      exit

# Suggestions

On an empty conversation, Tab cycles through common questions and copies the
highlighted one into the input.
*/
package chat
