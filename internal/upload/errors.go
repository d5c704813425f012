// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"errors"
	"fmt"
)

// Local validation errors. None of these cause a network call.
var (
	ErrLoginRequired   = errors.New("login required before uploading")
	ErrMissingCategory = errors.New("please select a category")
	ErrNoFiles         = errors.New("please select at least one file")
)

// ErrUnauthorized matches an UploadError whose credential was rejected.
var ErrUnauthorized = errors.New("session expired, please log in again")

// ErrUploadFailed matches every UploadError.
var ErrUploadFailed = errors.New("upload failed")

// UploadError reports a failed upload request.
type UploadError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is the server's error text when it sent one.
	Message string
	// Unauthorized is set for a 401; the credential has been cleared.
	Unauthorized bool
	Err          error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	switch {
	case e.Unauthorized:
		return ErrUnauthorized.Error()
	case e.Status != 0:
		return fmt.Sprintf("upload failed (HTTP %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("upload failed: %s", e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is matches ErrUploadFailed always and ErrUnauthorized for a 401.
func (e *UploadError) Is(target error) bool {
	switch target {
	case ErrUploadFailed:
		return true
	case ErrUnauthorized:
		return e.Unauthorized
	}
	return false
}
