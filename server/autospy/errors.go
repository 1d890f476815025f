package autospy

import "errors"

var (
	// ErrAlreadyActive is returned by Start when the requester already has a
	// session.
	ErrAlreadyActive = errors.New("autospy already active")
	// ErrNotActive is returned by Stop when the requester has no session.
	ErrNotActive = errors.New("autospy not active")
	// ErrCancelFailed is returned by Stop when the session's task could not be
	// cancelled. The session is kept so that the stop can be retried.
	ErrCancelFailed = errors.New("autospy task could not be cancelled")
	// ErrInvalidOptions is returned by Start when session options are out of
	// range.
	ErrInvalidOptions = errors.New("invalid autospy options")
	// errNoEligibleTarget marks a tick skipped because nobody can be spectated.
	errNoEligibleTarget = errors.New("no eligible target")
)
