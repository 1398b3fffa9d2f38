package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const sessionsKeyPrefix = "cyberguardian_sessions:"

// RedisConfig addresses the redis server.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisStore keeps the blob in a redis string and the session history in a
// list. Updates are compare-and-swap transactions over WATCH/MULTI, retried a
// bounded number of times when another writer wins the race.
type RedisStore struct {
	settings
	client *redis.Client
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{settings: newSettings(opts), client: client}, nil
}

func sessionsKey(userID string) string { return sessionsKeyPrefix + userID }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, userID string) (*model.UserProgress, error) {
	defer observe(BackendRedis, "load", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	blob, err := s.client.Get(ctx, BlobKey(userID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	return s.decode(ctx, BackendRedis, userID, blob), nil
}

// abortError marks a failure of the caller's UpdateFunc so it is not retried.
type abortError struct{ err error }

func (e abortError) Error() string { return e.err.Error() }
func (e abortError) Unwrap() error { return e.err }

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, userID string, record *model.TrainingSession, fn UpdateFunc) (*model.UserProgress, error) {
	defer observe(BackendRedis, "update", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	key := BlobKey(userID)

	var rec []byte
	if record != nil {
		var err error
		if rec, err = encodeSession(record); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var result *model.UserProgress
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			blob, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("read progress: %w", err)
			}
			p := s.decode(ctx, BackendRedis, userID, blob)
			if err := fn(p); err != nil {
				return abortError{err: err}
			}
			out, err := Encode(p)
			if err != nil {
				return abortError{err: err}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				if rec != nil {
					pipe.RPush(ctx, sessionsKey(userID), rec)
				}
				return nil
			})
			result = p
			return err
		}, key)

		var abort abortError
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			s.log.Debug(ctx, "progress update lost a race, retrying")
			continue
		case errors.As(err, &abort):
			return nil, abort.err
		default:
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %d attempts", ErrConflict, s.maxRetries)
}

// Sessions implements Store.
func (s *RedisStore) Sessions(ctx context.Context, userID string) ([]model.TrainingSession, error) {
	defer observe(BackendRedis, "sessions", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	raw, err := s.client.LRange(ctx, sessionsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	out := make([]model.TrainingSession, 0, len(raw))
	for _, r := range raw {
		rec, err := decodeSession([]byte(r))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, BlobKey(userID), sessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
