// Package backend builds the ledger store selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/ledger"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Result contains the store and an optional cleanup function
type Result struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type         BackendType
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
