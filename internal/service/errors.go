package service

import "errors"

// Definition store errors. These are policy violations, surfaced directly
// to the caller with no retries.
var (
	ErrInvalidSpec       = errors.New("assessment spec must include at least one group with positive count and marks")
	ErrInvalidTransition = errors.New("lifecycle transition not allowed from current state")
	ErrNotReady          = errors.New("assessment has no generated questions")
	ErrInFlightAttempts  = errors.New("assessment has attempts that are not submitted")
	ErrNotOwner          = errors.New("not the owner of this assessment")
	ErrTemplateNotFound  = errors.New("assessment not found")
)

// Session engine errors.
var (
	ErrNotAvailable      = errors.New("assessment is not available")
	ErrAlreadyAttempted  = errors.New("assessment already attempted and retake is not allowed")
	ErrAttemptInProgress = errors.New("an attempt is already in progress")
	ErrInvalidState      = errors.New("attempt is not in progress")
	ErrOutOfRange        = errors.New("question or option index out of range")
	ErrAttemptNotFound   = errors.New("attempt not found")
)
