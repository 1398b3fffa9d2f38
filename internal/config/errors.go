package config

import "errors"

var (
	// ErrInvalidConfig marks a value that loaded but cannot be used.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a file, env or decode failure.
	ErrLoadConfig = errors.New("load config failed")
)
