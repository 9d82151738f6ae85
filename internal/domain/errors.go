package domain

import "errors"

var (
	// ErrCommentNotFound is returned by store lookups for unknown ids.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrNoData signals a generation response without a payload. An
	// ingestion tick that ends with ErrNoData is a no-op, not a failure.
	ErrNoData = errors.New("generation service returned no data")

	// ErrNotFailed is returned when a manual retry targets a comment that
	// is not in the FAILED state.
	ErrNotFailed = errors.New("comment is not in FAILED state")

	// ErrAlreadyTerminal is returned when an operator tries to force-fail
	// a comment that already reached a terminal state.
	ErrAlreadyTerminal = errors.New("comment already in terminal state")
)
