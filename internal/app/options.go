package service

import (
	"time"

	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/dedupe"
	"github.com/okian/cyberguardian/pkg/logger"
)

// Default service configuration constants.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultChartDays     = 7
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the progress store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSimulator sets the client trainers talk to.
func WithSimulator(c conversation.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithDeduper replaces the idempotency-key tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key tracker.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL sets how long idempotency keys are remembered.
func WithDedupeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dedupeTTL = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for session stamps and idle tracking.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithTurnTimeout bounds each simulator call made by trainers.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.turnTimeout = d
		}
	}
}

// WithIdleTTL sets how long an untouched trainer is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithSweepInterval sets how often idle trainers are looked for.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithChartDays sets the default chart window.
func WithChartDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.chartDays = days
		}
	}
}
