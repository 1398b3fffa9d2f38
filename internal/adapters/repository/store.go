// Package repository persists the per-user progress aggregate and the
// immutable session history.
package repository

import (
	"context"
	"strings"

	"github.com/okian/cyberguardian/internal/domain/model"
)

// StorageKey is the well-known key the progress blob lives under.
const StorageKey = "cyberguardian_user_progress"

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// UpdateFunc mutates the loaded progress inside the store's critical section.
// Returning an error aborts the update and nothing is written. Optimistic
// backends may call it more than once, each time with freshly loaded progress.
type UpdateFunc func(p *model.UserProgress) error

// Store provides serialized access to each user's progress.
type Store interface {
	// Load returns the user's progress, migrated to the current schema.
	// Missing or corrupt data yields model.NewProgress().
	Load(ctx context.Context, userID string) (*model.UserProgress, error)

	// Update atomically loads the progress, applies fn, persists the result and,
	// when record is non-nil, appends it to the session history in the same
	// critical section. The persisted progress is returned.
	Update(ctx context.Context, userID string, record *model.TrainingSession, fn UpdateFunc) (*model.UserProgress, error)

	// Sessions returns the user's stored session records, oldest first.
	Sessions(ctx context.Context, userID string) ([]model.TrainingSession, error)

	// Reset deletes the user's progress and session history.
	Reset(ctx context.Context, userID string) error

	Close() error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BlobKey returns the key of a user's progress blob.
func BlobKey(userID string) string {
	return StorageKey + ":" + userID
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	return nil
}
