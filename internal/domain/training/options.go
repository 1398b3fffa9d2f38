package training

import (
	"time"

	"github.com/okian/cyberguardian/pkg/logger"
)

// Default machine configuration constants.
const (
	DefaultTurnTimeout = 20 * time.Second
	// FallbackNotice is shown when a turn could not be delivered.
	FallbackNotice = "The connection to the simulator was interrupted. Your last message was not sent, please try again."
)

// Option configures a Machine.
type Option func(*Machine)

// WithTurnTimeout bounds each call to the simulation backend.
func WithTurnTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.turnTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the machine logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithFallbackNotice overrides the text shown after a failed turn.
func WithFallbackNotice(text string) Option {
	return func(m *Machine) {
		if text != "" {
			m.fallback = text
		}
	}
}
