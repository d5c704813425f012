// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// =============================================================================
// FLOW STATE MACHINE
// =============================================================================

// Phase is the current step of an upload.
type Phase int

const (
	// Idle: nothing selected yet.
	Idle Phase = iota
	// Selecting: category and files chosen, not yet sent.
	Selecting
	// Uploading: request in flight.
	Uploading
	// Succeeded: the server accepted the files.
	Succeeded
	// Failed: the upload was rejected or never reached the server.
	Failed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInvalidTransition is returned when a step is attempted from the wrong phase.
var ErrInvalidTransition = errors.New("invalid upload transition")

// transitionError names the phases involved in a rejected step.
type transitionError struct {
	from Phase
	to   Phase
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.from, e.to)
}

func (e *transitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Flow tracks one upload from selection to outcome. Each step checks the
// current phase instead of inferring it from a set of flags.
type Flow struct {
	mu sync.Mutex

	phase      Phase
	category   string
	files      []File
	result     Result
	err        error
	needsLogin bool
}

// NewFlow creates a flow in the Idle phase.
func NewFlow() *Flow {
	return &Flow{}
}

var allowed = map[Phase][]Phase{
	Idle:      {Selecting},
	Selecting: {Selecting, Uploading, Idle},
	Uploading: {Succeeded, Failed},
	Succeeded: {Idle, Selecting},
	Failed:    {Idle, Selecting, Uploading},
}

func (f *Flow) canMove(to Phase) bool {
	for _, p := range allowed[f.phase] {
		if p == to {
			return true
		}
	}
	return false
}

func (f *Flow) moveLocked(to Phase) error {
	if !f.canMove(to) {
		return &transitionError{from: f.phase, to: to}
	}
	f.phase = to
	return nil
}

// Select records the category and files to send.
// Local validation happens here so the upload action can stay disabled.
func (f *Flow) Select(category string, files []File) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.TrimSpace(category) == "" {
		return ErrMissingCategory
	}
	if len(files) == 0 {
		return ErrNoFiles
	}
	if err := f.moveLocked(Selecting); err != nil {
		return err
	}
	f.category = category
	f.files = append([]File(nil), files...)
	f.result = Result{}
	f.err = nil
	f.needsLogin = false
	return nil
}

// Begin moves to Uploading and returns what to send. A failed upload can be
// retried by calling Begin again with the same selection.
func (f *Flow) Begin() (string, []File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.moveLocked(Uploading); err != nil {
		return "", nil, err
	}
	f.err = nil
	f.needsLogin = false
	return f.category, append([]File(nil), f.files...), nil
}

// Finish records the outcome of the upload started by Begin.
func (f *Flow) Finish(result Result, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	to := Succeeded
	if err != nil {
		to = Failed
	}
	if moveErr := f.moveLocked(to); moveErr != nil {
		return moveErr
	}

	f.result = result
	f.err = err
	f.needsLogin = errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrLoginRequired)
	return nil
}

// Reset returns to Idle, dropping the selection. Not allowed mid-upload.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == Idle {
		return nil
	}
	if err := f.moveLocked(Idle); err != nil {
		return err
	}
	f.category = ""
	f.files = nil
	f.result = Result{}
	f.err = nil
	f.needsLogin = false
	return nil
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Category returns the selected category.
func (f *Flow) Category() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.category
}

// Result returns the last successful result.
func (f *Flow) Result() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns the error from the last failed upload.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// NeedsLogin reports whether the last failure requires a fresh login.
func (f *Flow) NeedsLogin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.needsLogin
}
