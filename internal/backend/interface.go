package backend

import (
	"context"

	"reimburse/internal/kv"
)

// CleanupFunc releases whatever the backend holds open
type CleanupFunc func() error

// BackendResult contains the key-value store and optional cleanup function
type BackendResult struct {
	Store   kv.Store
	Cleanup CleanupFunc
	Health  func(ctx context.Context) error // nil for in-process stores
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Check runs the health probe if the backend has one.
func (r *BackendResult) Check(ctx context.Context) error {
	if r == nil || r.Health == nil {
		return nil
	}
	return r.Health(ctx)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisURL string

	// Memory specific: optional key=value file used to seed the store
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
