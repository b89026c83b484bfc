package pipeline

import "errors"

var (
	// ErrInvalidMessage is returned for a message without id, sender or text.
	ErrInvalidMessage = errors.New("message needs id, sender and text")

	// ErrRateLimited reports that the sender exceeded its window. The message
	// is dropped and its id is not remembered.
	ErrRateLimited = errors.New("sender rate limited")

	// ErrExternalSendFailure is returned alongside a complete Result when the
	// reply could not be delivered. Session state is already committed.
	ErrExternalSendFailure = errors.New("reply delivery failed")
)
