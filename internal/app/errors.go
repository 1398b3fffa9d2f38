package service

import (
	"errors"

	"github.com/okian/cyberguardian/internal/adapters/repository"
)

var (
	ErrInvalidUser = repository.ErrInvalidUser
	ErrNoSimulator = errors.New("no simulation backend configured")

	ErrSaveInProgress = errors.New("a save with this idempotency key is still running")
)
