package backend

import (
	"context"

	"debtbook/internal/core"
	"debtbook/internal/ledger"
	"debtbook/internal/services"
)

// Backend is everything the server, worker and report tool need from storage.
type Backend interface {
	ledger.Store
	ledger.Recorder
	GetCustomer(ctx context.Context, id int64) (core.Customer, error)
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend, the ledger service writing to it and
// the cleanup that releases both.
type BackendResult struct {
	Backend Backend
	Ledger  *services.LedgerService
	Cleanup CleanupFunc
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

	// Publisher; empty URL or Publish=false leaves the service without one
	Publish      bool
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
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
