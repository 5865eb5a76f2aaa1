package types

import "errors"

var (
	// ErrCommandNotFound indicates a command record does not exist in
	// the audit store
	ErrCommandNotFound = errors.New("command not found")

	// ErrDeviceNotFound indicates no history exists for a device
	ErrDeviceNotFound = errors.New("device not found")

	// ErrCacheMiss indicates a cache key is absent or expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrPublisherNotInitialized indicates event publishing was not
	// configured
	ErrPublisherNotInitialized = errors.New("event publisher not initialized")

	// ErrUnknownQueryType indicates an unsupported device query type
	ErrUnknownQueryType = errors.New("unknown query type")
)
