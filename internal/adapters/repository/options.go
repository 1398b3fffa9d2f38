package repository

import (
	"context"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/pkg/logger"
	"github.com/okian/cyberguardian/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultMaxRetries  = 8
	DefaultBusyTimeout = 5 * time.Second
)

// Option configures any Store backend.
type Option func(*settings)

type settings struct {
	log         logger.Logger
	maxRetries  int
	busyTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		log:         logger.Nop(),
		maxRetries:  defaultMaxRetries,
		busyTimeout: DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger used to report corrupt blobs.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxRetries bounds optimistic update retries (redis).
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBusyTimeout sets how long sqlite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// decode wraps Decode with the corruption report shared by every backend.
func (s settings) decode(ctx context.Context, backend, userID string, blob []byte) *model.UserProgress {
	p, err := Decode(blob)
	if err != nil {
		s.log.Warn(ctx, "stored progress is corrupt, starting fresh",
			logger.String("backend", backend),
			logger.String("user_id", userID),
			logger.Error(err))
		metrics.RecordProgressReset("corrupt")
	}
	return p
}

func observe(backend, operation string, start time.Time) {
	metrics.RecordStoreLatency(backend, operation, float64(time.Since(start).Microseconds())/1000)
}
