// ABOUTME: Error values for workflow state transitions
// ABOUTME: Rejected submissions, unknown choices and out-of-range positions

package workflow

import "errors"

var (
	// ErrNotReady is returned when a submission is attempted while the gate is closed
	ErrNotReady = errors.New("submission not ready")
	// ErrBusy is returned when a submission is attempted while one is already loading
	ErrBusy = errors.New("submission already in flight")
	// ErrUnknownGenre is returned for a genre tag that is not offered
	ErrUnknownGenre = errors.New("unknown genre")
	// ErrUnknownVoice is returned for a voice style that is not offered
	ErrUnknownVoice = errors.New("unknown voice style")
	// ErrUnknownResult is returned when selecting an id absent from the current results
	ErrUnknownResult = errors.New("unknown search result")
	// ErrPosition is returned for an upload position outside the list
	ErrPosition = errors.New("position out of range")
)
