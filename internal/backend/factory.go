package backend

import (
	"context"
	"fmt"
	"log/slog"

	"debtbook/internal/amqp"
	applog "debtbook/internal/log"
	"debtbook/internal/services"
	"debtbook/internal/storage"
	"debtbook/internal/storage/memory"
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

// CreateBackend opens the store and wires a ledger service on top of it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := f.logger.With(applog.FieldComponent, applog.ComponentBackend)

	var store Backend
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// Publisher stays a nil interface unless the client was created.
	var publisher services.Publisher
	if config.Publish {
		logger := f.logger.With(applog.FieldComponent, applog.ComponentAMQP)
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without mirror", "error", err)
		} else {
			publisher = client
			logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(store, publisher)
	return &BackendResult{
		Backend: store,
		Ledger:  svc,
		Cleanup: svc.Close,
	}, nil
}
