// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the conversation session controller.
//
// A Controller owns everything one conversation needs: the question client,
// the optional login credential, the append-only turn log, the reveal
// animation and the upload flow. The presentation layer (the TUI or the CLI)
// feeds it user actions and renders what it reports.
//
// # Requests
//
// Every submitted question gets a request generation. When an answer comes
// back after a newer question was asked, it is discarded instead of being
// appended out of order.
//
// # Errors
//
// Failures are turned into a user-facing message at the controller boundary
// (see Message and LastError). Nothing is retried; the user asks again.
//
// # Usage
//
//	ctrl := session.NewController(session.Config{BaseURL: "http://localhost:80"})
//	defer ctrl.Close()
//
//	out, err := ctrl.Submit(ctx, "Where do I eat on campus?")
//	if err != nil {
//	    fmt.Println(ctrl.LastError())
//	    return
//	}
//	for snap := range out.Reveal {
//	    render(snap.Text)
//	}
package session
