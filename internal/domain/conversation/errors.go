package conversation

import (
	"errors"
	"fmt"
)

// Error kinds every Client reports through.
var (
	ErrNoSession         = errors.New("no active simulation session")
	ErrSessionEnded      = fmt.Errorf("%w: backend session not found", ErrNoSession)
	ErrTransport         = errors.New("simulation backend unavailable")
	ErrMalformedResponse = errors.New("malformed simulation response")
)

// IsTransient reports whether err is a backend failure the trainee can retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrMalformedResponse)
}
