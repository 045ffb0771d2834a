package domain

import "errors"

var (
	// ErrProviderUnavailable marks a failed or timed out language model call.
	ErrProviderUnavailable = errors.New("language model provider unavailable")
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is required")
	// ErrSessionNotFound is returned when a thread has no stored session.
	ErrSessionNotFound = errors.New("session not found")
)
