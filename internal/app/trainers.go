package service

import (
	"context"
	"strings"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/internal/domain/training"
	"github.com/okian/cyberguardian/pkg/logger"
	"github.com/okian/cyberguardian/pkg/metrics"
)

// Trainer returns the user's state machine, creating it on first use. Its
// saves go through SaveSession for the same user.
func (s *Service) Trainer(userID string) (*training.Machine, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	if s.client == nil {
		return nil, ErrNoSimulator
	}

	s.trainersMu.Lock()
	defer s.trainersMu.Unlock()

	if m, ok := s.trainers[userID]; ok {
		return m, nil
	}
	save := func(ctx context.Context, d model.SessionDraft) error {
		_, err := s.SaveSession(ctx, userID, d)
		return err
	}
	m := training.New(s.client, save,
		training.WithClock(s.now),
		training.WithTurnTimeout(s.turnTimeout),
		training.WithLogger(s.logger.Named("training").With(logger.String("user_id", userID))),
	)
	s.trainers[userID] = m
	metrics.UpdateActiveTrainers(len(s.trainers))
	return m, nil
}

// EndTraining exits an active conversation, saving it, and forgets the
// user's machine. When the save fails the machine is kept.
func (s *Service) EndTraining(ctx context.Context, userID string) error {
	s.trainersMu.Lock()
	m, ok := s.trainers[userID]
	s.trainersMu.Unlock()
	if !ok {
		return nil
	}

	if m.Active() {
		if _, err := m.Exit(ctx); err != nil {
			return err
		}
	}

	s.trainersMu.Lock()
	defer s.trainersMu.Unlock()
	if s.trainers[userID] == m {
		delete(s.trainers, userID)
	}
	metrics.UpdateActiveTrainers(len(s.trainers))
	return nil
}

// ActiveTrainers returns the number of live state machines.
func (s *Service) ActiveTrainers() int {
	s.trainersMu.Lock()
	defer s.trainersMu.Unlock()
	return len(s.trainers)
}

// Sweep forgets machines idle for longer than the idle TTL. An idle
// conversation is exited first so the attempt is saved as completed; when that
// save fails the machine is kept for the next sweep. Machines with a turn in
// flight are kept. It returns how many were dropped.
func (s *Service) Sweep(ctx context.Context) int {
	now := s.now()

	s.trainersMu.Lock()
	idle := make(map[string]*training.Machine)
	for id, m := range s.trainers {
		if m.Busy() || now.Sub(m.LastActivity()) <= s.idleTTL {
			continue
		}
		idle[id] = m
	}
	s.trainersMu.Unlock()

	dropped := 0
	for id, m := range idle {
		if m.Active() {
			snap, err := m.Exit(ctx)
			if err != nil {
				s.logger.Warn(ctx, "idle trainer kept, exit failed",
					logger.String("user_id", id),
					logger.Error(err))
				continue
			}
			s.logger.Info(ctx, "idle conversation saved and closed",
				logger.String("user_id", id),
				logger.String("scenario", string(snap.Scenario)))
		}

		s.trainersMu.Lock()
		if s.trainers[id] == m {
			delete(s.trainers, id)
			dropped++
		}
		s.trainersMu.Unlock()
	}

	remaining := s.ActiveTrainers()
	metrics.UpdateActiveTrainers(remaining)
	if dropped > 0 {
		s.logger.Debug(ctx, "idle trainers discarded",
			logger.Int("dropped", dropped),
			logger.Int("remaining", remaining))
	}
	return dropped
}

func (s *Service) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}
