package backend

import (
	"context"

	"cashflow/internal/ledger"
	"cashflow/internal/store"
	"cashflow/internal/store/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles the stores a session mode needs. Guest sessions get a
// local store and no client; authenticated sessions get a client and no
// local store.
type Result struct {
	Mode    ledger.SessionMode
	Local   store.TransactionStore
	Client  remote.Client
	Cleanup CleanupFunc
}

// Factory creates storage backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Session
	OwnerID string

	// SQLite specific
	SQLiteDBPath string

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPRPCQueue string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	AMQPBackend   BackendType = "amqp"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, AMQPBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
