// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/askrod/internal/auth"
	"github.com/jeranaias/askrod/internal/reveal"
	"github.com/jeranaias/askrod/internal/session"
	"github.com/jeranaias/askrod/internal/upload"
)

// =============================================================================
// ANSWER MESSAGES
// =============================================================================

// AnswerMsg is sent when a submitted question completes.
type AnswerMsg struct {
	Outcome session.Outcome
	Err     error
}

// RevealMsg carries one snapshot of the answer being revealed.
type RevealMsg struct {
	Snapshot reveal.Snapshot
	ch       <-chan reveal.Snapshot
}

// RevealClosedMsg is sent when a reveal channel closes.
type RevealClosedMsg struct {
	ch <-chan reveal.Snapshot
}

// =============================================================================
// PROTECTED ACTION MESSAGES
// =============================================================================

// LoginResultMsg is sent when a login exchange completes.
type LoginResultMsg struct {
	Credential auth.Credential
	Err        error
}

// UploadResultMsg is sent when an upload completes.
type UploadResultMsg struct {
	Result upload.Result
	Err    error
}
