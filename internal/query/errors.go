// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"errors"
	"fmt"
)

// ErrQueryFailed matches every QueryError.
var ErrQueryFailed = errors.New("query failed")

// ValidationError is a problem with the input caught before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrEmptyQuestion is returned by Ask for blank input. Callers treat it as a
// no-op rather than a failure to report.
var ErrEmptyQuestion = &ValidationError{Field: "question", Message: "question is empty"}

// QueryError represents a failed question round trip.
type QueryError struct {
	// Status is the HTTP status, or 0 if no response was received.
	Status     int
	StatusText string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrQueryFailed) match any QueryError.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// IsNetwork reports whether no HTTP response was received.
func (e *QueryError) IsNetwork() bool {
	return e.Status == 0
}
