package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidEnum  = errors.New("invalid enum value")
	ErrInvalidDay   = errors.New("invalid calendar day")
	ErrInvalidDraft = errors.New("invalid session draft")
)
