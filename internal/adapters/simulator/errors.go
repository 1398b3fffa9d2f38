package simulator

import (
	"errors"

	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/model"
)

// Sentinel kinds for simulator errors. The session and transport kinds are
// the contract's own so callers match them through conversation.
var (
	ErrNoSession         = conversation.ErrNoSession
	ErrSessionEnded      = conversation.ErrSessionEnded
	ErrTransport         = conversation.ErrTransport
	ErrMalformedResponse = conversation.ErrMalformedResponse
	ErrInvalidEnum       = model.ErrInvalidEnum
	ErrInvalidBaseURL    = errors.New("invalid simulation backend url")
)

// IsTransient reports whether err is a backend failure the trainee can retry.
func IsTransient(err error) bool { return conversation.IsTransient(err) }

// errorKind labels err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNoSession):
		return "no_session"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrInvalidEnum):
		return "invalid_enum"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "other"
}
