// Package services holds the admin-side application logic: reading and
// recording the activity log, and inspecting or resetting live sessions.
// Handlers map these errors to HTTP statuses.
package services

import "errors"

var (
	// ErrSessionNotFound means the sender has no live session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrActivityNotFound means no activity row exists for the message id.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrInvalidSender is returned for a blank sender id.
	ErrInvalidSender = errors.New("sender id is required")
)
