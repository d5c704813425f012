// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current conversation to a file on request.
//
// # Supported Formats
//
//   - Markdown: questions, answers and their sources, with a YAML header
//   - JSON: the transcript as data
//
// # Usage
//
//	tr := export.FromStore(ctrl.Store(), ctrl.BaseURL(), time.Now())
//	exp, err := export.ForFormat("md")
//	path, err := export.ToFile(tr, exp, ".")
//
// Nothing in askrod reads an export back; the conversation itself lives
// only as long as the session.
package export
