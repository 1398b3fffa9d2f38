package training

import "errors"

// Sentinel kinds for training errors.
var (
	ErrBusy              = errors.New("a turn is already in flight")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMentorPending     = errors.New("mentor intervention awaiting continue or retry")
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrConversationEnded = errors.New("conversation ended, exit or retry")
)
