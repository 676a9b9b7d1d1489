package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	options []api.Option
}

// NewFactory creates a new backend factory. opts are passed to the API
// client of remote backends.
func NewFactory(logger *slog.Logger, opts ...api.Option) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		options: opts,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(ctx, config)
	case OfflineBackend:
		return f.createOfflineBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	// the configured timeout wins over one carried by a caller's http.Client
	opts := append(append([]api.Option(nil), f.options...), api.WithTimeout(config.RequestTimeout))
	client := api.NewClient(config.APIURL, api.NewSession(), opts...)

	var (
		wsOpts   []services.Option
		cleanups []CleanupFunc
	)

	// The snapshot is optional for the remote backend
	if config.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to open snapshot, continuing without it",
				"error", err, "path", config.SQLiteDBPath)
		} else {
			wsOpts = append(wsOpts, services.WithSnapshotter(repo))
			cleanups = append(cleanups, repo.Close)
		}
	}

	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change feed", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			wsOpts = append(wsOpts, services.WithPublisher(amqpClient))
			cleanups = append(cleanups, amqpClient.Close)
		}
	}

	ws := services.New(client, cache.NewStore(), wsOpts...)

	f.logger.InfoContext(ctx, "Initialized remote backend",
		"api_url", client.BaseURL(),
		"snapshot_enabled", config.SQLiteDBPath != "",
		"amqp_enabled", config.AMQPURL != "")

	return &BackendResult{
		Reader:    remoteReader{ws: ws},
		Workspace: ws,
		Cleanup: func() error {
			ws.Close()
			var errs []error
			for _, c := range cleanups {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createOfflineBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	f.logger.Info("Initialized offline backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Reader:  offlineReader{repo: repo},
		Cleanup: repo.Close,
	}, nil
}
