package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// MemoryStore keeps JSON blobs in a map guarded by one mutex, mirroring a
// single-writer key/value store.
type MemoryStore struct {
	settings
	mu       sync.Mutex
	blobs    map[string][]byte
	sessions map[string][]model.TrainingSession
	closed   bool
}

// NewMemory creates an empty in-process store.
func NewMemory(opts ...Option) *MemoryStore {
	return &MemoryStore{
		settings: newSettings(opts),
		blobs:    make(map[string][]byte),
		sessions: make(map[string][]model.TrainingSession),
	}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, userID string) (*model.UserProgress, error) {
	defer observe(BackendMemory, "load", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.decode(ctx, BackendMemory, userID, s.blobs[BlobKey(userID)]), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, userID string, record *model.TrainingSession, fn UpdateFunc) (*model.UserProgress, error) {
	defer observe(BackendMemory, "update", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := BlobKey(userID)
	p := s.decode(ctx, BackendMemory, userID, s.blobs[key])
	if err := fn(p); err != nil {
		return nil, err
	}
	blob, err := Encode(p)
	if err != nil {
		return nil, err
	}
	s.blobs[key] = blob
	if record != nil {
		rec := *record
		rec.TacticsEncountered = append([]string{}, record.TacticsEncountered...)
		s.sessions[userID] = append(s.sessions[userID], rec)
	}
	return p.Clone(), nil
}

// Sessions implements Store.
func (s *MemoryStore) Sessions(_ context.Context, userID string) ([]model.TrainingSession, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.TrainingSession, len(s.sessions[userID]))
	copy(out, s.sessions[userID])
	return out, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.blobs, BlobKey(userID))
	delete(s.sessions, userID)
	return nil
}

// Put stores a raw blob for userID. It exists to seed legacy or damaged data.
func (s *MemoryStore) Put(userID string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[BlobKey(userID)] = append([]byte{}, blob...)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }
