package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidUser = errors.New("invalid user id")
	ErrConflict    = errors.New("concurrent progress update conflict")
	ErrClosed      = errors.New("store closed")
	ErrUnknown     = errors.New("unknown store backend")
)
