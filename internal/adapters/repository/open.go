package repository

import (
	"context"
	"fmt"
)

// Config selects and addresses a backend.
type Config struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case BackendMemory, "":
		return NewMemory(opts...), nil
	case BackendSQLite:
		return NewSQLite(cfg.SQLitePath, opts...)
	case BackendRedis:
		return NewRedis(ctx, cfg.Redis, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, cfg.Driver)
}
