package backend

import (
	"context"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

// Reader serves the read commands, either from the API or from the offline
// snapshot.
type Reader interface {
	Spaces(ctx context.Context) ([]core.Space, error)
	Space(ctx context.Context, spaceID core.ID) (core.Space, error)
	Expenses(ctx context.Context, spaceID core.ID) ([]core.Expense, error)
	Categories(ctx context.Context, spaceID core.ID) ([]core.Category, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Workspace is nil for the offline backend, which cannot mutate anything.
type BackendResult struct {
	Reader    Reader
	Workspace *services.Workspace
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote
	APIURL         string
	RequestTimeout time.Duration

	// Snapshot, read by the offline backend and written by the remote one
	SQLiteDBPath string

	// Change feed, remote only
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend  BackendType = "remote"
	OfflineBackend BackendType = "offline"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, OfflineBackend:
		return true
	default:
		return false
	}
}
