package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cashflow/internal/amqp"
	"cashflow/internal/ledger"
	"cashflow/internal/store/memory"
	"cashflow/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type %q, valid types: %v", config.Type, GetBackendTypeStrings())
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case AMQPBackend:
		return f.createAMQPBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Mode:    ledger.Guest(),
		Local:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createAMQPBackend(config Config) (*Result, error) {
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRPCQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.Info("Initialized AMQP backend",
		"exchange", config.AMQPExchange,
		"rpc_queue", config.AMQPRPCQueue,
		"owner_id", config.OwnerID)

	return &Result{
		Mode:    ledger.Authenticated(config.OwnerID),
		Client:  client,
		Cleanup: client.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	ownerID := config.OwnerID
	if ownerID == "" {
		ownerID = "dev" // Development default
	}

	replica := memory.New()

	f.logger.Info("Initialized memory backend", "owner_id", ownerID)

	return &Result{
		Mode:    ledger.Authenticated(ownerID),
		Client:  replica,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
