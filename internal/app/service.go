// Package service wires the training state machines, the progress store and
// the derived views (score, badges, chart data) behind one API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/dailystats"
	"github.com/okian/cyberguardian/internal/domain/dedupe"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/progress"
	"github.com/okian/cyberguardian/internal/domain/scoring"
	"github.com/okian/cyberguardian/internal/domain/training"
	"github.com/okian/cyberguardian/pkg/logger"
	"github.com/okian/cyberguardian/pkg/metrics"
)

// SaveResult is what a successful saveSession produced.
type SaveResult struct {
	Session  model.TrainingSession `json:"session"`
	Progress *model.UserProgress   `json:"progress"`
	Unlocked []string              `json:"unlocked"`
}

// Service implements the API dependencies for the training core.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	client  conversation.Client
	deduper dedupe.Deduper

	// Configuration
	now           func() time.Time
	loc           *time.Location
	turnTimeout   time.Duration
	idleTTL       time.Duration
	sweepInterval time.Duration
	chartDays     int
	dedupeSize    int
	dedupeTTL     time.Duration

	trainersMu sync.Mutex
	trainers   map[string]*training.Machine

	// State
	started bool
	stopCh  chan struct{}
	done    chan struct{}

	logger logger.Logger
}

// New constructs a Service. Without WithStore it keeps progress in memory.
func New(opts ...Option) *Service {
	s := &Service{
		now:           time.Now,
		loc:           time.Local,
		turnTimeout:   training.DefaultTurnTimeout,
		idleTTL:       DefaultIdleTTL,
		sweepInterval: DefaultSweepInterval,
		chartDays:     DefaultChartDays,
		dedupeSize:    dedupe.DefaultMaxSize,
		trainers:      make(map[string]*training.Machine),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemory(repository.WithLogger(s.logger))
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.dedupeSize),
			dedupe.WithTTL(s.dedupeTTL),
			dedupe.WithClock(s.now),
		)
	}
	return s
}

// Start launches the idle trainer sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.sweepLoop(s.stopCh, s.done)

	s.started = true
	s.logger.Info(ctx, "training service started",
		logger.Duration("idleTTL", s.idleTTL),
		logger.Duration("turnTimeout", s.turnTimeout),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop halts the sweeper and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	close(s.stopCh)
	<-s.done

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "training service stopped")
}

// SaveSession validates draft, stamps it and folds it into the user's
// progress. Every call counts as a new session.
func (s *Service) SaveSession(ctx context.Context, userID string, draft model.SessionDraft) (SaveResult, error) {
	if err := draft.Validate(); err != nil {
		metrics.RecordSessionSaveError()
		return SaveResult{}, err
	}

	now := s.now()
	record := draft.Record(uuid.NewString(), now, s.loc)

	var unlocked []string
	p, err := s.store.Update(ctx, userID, &record, func(p *model.UserProgress) error {
		unlocked = progress.Apply(p, record, now)
		return nil
	})
	if err != nil {
		metrics.RecordSessionSaveError()
		metrics.RecordErrorByComponent("service", "save_session")
		s.logger.Error(ctx, "failed to save session",
			logger.String("user_id", userID),
			logger.Error(err))
		return SaveResult{}, fmt.Errorf("save session: %w", err)
	}

	metrics.RecordSessionSaved(record.Completed)
	for _, id := range unlocked {
		metrics.RecordBadgeUnlocked(id)
	}
	if len(unlocked) > 0 {
		s.logger.Info(ctx, "badges unlocked",
			logger.String("user_id", userID),
			logger.Strings("badges", unlocked))
	}
	s.logger.Debug(ctx, "session saved",
		logger.String("user_id", userID),
		logger.String("session_id", record.ID),
		logger.String("scenario", string(record.ScenarioType)),
		logger.Bool("completed", record.Completed),
		logger.Int("streak", p.Streak))

	if unlocked == nil {
		unlocked = []string{}
	}
	return SaveResult{Session: record, Progress: p, Unlocked: unlocked}, nil
}

// SaveSessionIdempotent is SaveSession guarded by a client key. A key whose
// save already succeeded reports replay=true and saves nothing. A key whose
// save is still running returns ErrSaveInProgress. An empty key saves
// unconditionally.
func (s *Service) SaveSessionIdempotent(ctx context.Context, userID, key string, draft model.SessionDraft) (SaveResult, bool, error) {
	if strings.TrimSpace(key) == "" {
		res, err := s.SaveSession(ctx, userID, draft)
		return res, false, err
	}

	k := dedupe.Key(userID, key)
	switch s.deduper.Reserve(ctx, k) {
	case dedupe.StatusCommitted:
		metrics.RecordIdempotentReplay()
		s.logger.Debug(ctx, "duplicate save skipped",
			logger.String("user_id", userID),
			logger.String("key", key))
		return SaveResult{}, true, nil
	case dedupe.StatusPending:
		return SaveResult{}, false, ErrSaveInProgress
	}

	res, err := s.SaveSession(ctx, userID, draft)
	if err != nil {
		s.deduper.Release(ctx, k)
		return SaveResult{}, false, err
	}
	s.deduper.Commit(ctx, k)
	return res, false, nil
}

// Progress returns the user's aggregate.
func (s *Service) Progress(ctx context.Context, userID string) (*model.UserProgress, error) {
	return s.store.Load(ctx, userID)
}

// Score returns the user's score in [0, scoring.MaxScore].
func (s *Service) Score(ctx context.Context, userID string) (int, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return scoring.Calculate(p), nil
}

// ScoreBreakdown returns each capped term of the user's score.
func (s *Service) ScoreBreakdown(ctx context.Context, userID string) (scoring.Breakdown, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return scoring.Breakdown{}, err
	}
	return scoring.Explain(p), nil
}

// ChartData returns one DailyStats per day for the last days days, oldest
// first and zero-filled. Non-positive days uses the configured default.
func (s *Service) ChartData(ctx context.Context, userID string, days int) ([]model.DailyStats, error) {
	if days <= 0 {
		days = s.chartDays
	}
	if days > model.MaxDailyStats {
		days = model.MaxDailyStats
	}
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dailystats.Window(p.DailyStats, model.DayOf(s.now(), s.loc), days), nil
}

// Badges returns the full catalog with the user's earned timestamps.
func (s *Service) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.Badges, nil
}

// EarnedBadges returns only the stamped badges.
func (s *Service) EarnedBadges(ctx context.Context, userID string) ([]model.Badge, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.EarnedBadges(), nil
}

// Sessions returns the user's saved session records, oldest first.
func (s *Service) Sessions(ctx context.Context, userID string) ([]model.TrainingSession, error) {
	return s.store.Sessions(ctx, userID)
}

// Reset wipes the user's progress and session history.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if err := s.store.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	metrics.RecordProgressReset("user")
	s.logger.Info(ctx, "progress reset", logger.String("user_id", userID))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.ActiveTrainers()
	metrics.UpdateActiveTrainers(active)

	return map[string]interface{}{
		"started":        s.started,
		"activeTrainers": active,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"idleTTLSeconds": int(s.idleTTL / time.Second),
		"turnTimeoutMs":  int(s.turnTimeout / time.Millisecond),
	}
}
