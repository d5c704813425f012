// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jeranaias/askrod/internal/auth"
	"github.com/jeranaias/askrod/internal/query"
	"github.com/jeranaias/askrod/internal/upload"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session closed")

// Message converts an action error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		qerr    *query.QueryError
		authErr *auth.AuthenticationError
		upErr   *upload.UploadError
	)

	switch {
	case errors.As(err, &qerr):
		return fmt.Sprintf("Failed to get response: %s. Please check if the backend server is running and accessible.", qerr.Message)

	case errors.Is(err, auth.ErrMissingCredentials):
		return "Please enter a username and password."
	case errors.As(err, &authErr):
		if authErr.Status == http.StatusUnauthorized || authErr.Status == http.StatusBadRequest {
			return "Invalid username or password."
		}
		return fmt.Sprintf("Login failed: %s", authErr.Message)

	case errors.Is(err, upload.ErrLoginRequired):
		return "Please log in to upload documents."
	case errors.Is(err, upload.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, upload.ErrMissingCategory):
		return "Please select a category."
	case errors.Is(err, upload.ErrNoFiles):
		return "Please select at least one file."
	case errors.Is(err, upload.ErrInvalidTransition):
		return "An upload is already in progress."
	case errors.As(err, &upErr):
		return fmt.Sprintf("Upload failed: %s", upErr.Message)

	default:
		return err.Error()
	}
}
