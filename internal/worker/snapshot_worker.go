package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// SnapshotStore is the offline copy the worker keeps current.
type SnapshotStore interface {
	SaveSpaces(ctx context.Context, spaces []core.Space) error
	SaveSpace(ctx context.Context, space core.Space) error
	SaveSpaceContents(ctx context.Context, spaceID core.ID, expenses []core.Expense, categories []core.Category) error
	DeleteSpace(ctx context.Context, spaceID core.ID) error
}

// SnapshotWorker refreshes the snapshot of a space whenever a change message
// for it arrives, and periodically refreshes everything in case messages
// were lost.
type SnapshotWorker struct {
	client      *api.Client
	store       SnapshotStore
	creds       core.Credentials
	concurrency int
	logger      *log.Logger
}

func NewSnapshotWorker(client *api.Client, store SnapshotStore, creds core.Credentials, concurrency int) *SnapshotWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SnapshotWorker{
		client:      client,
		store:       store,
		creds:       creds,
		concurrency: concurrency,
		logger:      log.FromContext(context.Background()).WithComponent(log.ComponentWorker),
	}
}

// Login opens the worker's API session.
func (w *SnapshotWorker) Login(ctx context.Context) error {
	if _, err := w.client.Login(ctx, w.creds); err != nil {
		return fmt.Errorf("worker login: %w", err)
	}
	w.logger.InfoContext(ctx, "Worker logged in", log.FieldUsername, w.creds.Username)
	return nil
}

// HandleChange processes one change message from AMQP
func (w *SnapshotWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		log.NewFields().
			WithSpace(msg.SpaceID.String()).
			With("action", msg.Action).
			With("entity", msg.Entity).
			ToSlice()...)

	if msg.SpaceRemoved() {
		if err := w.store.DeleteSpace(ctx, msg.SpaceID); err != nil {
			return fmt.Errorf("delete space from snapshot: %w", err)
		}
		return nil
	}

	return w.refreshSpace(ctx, msg.SpaceID, true)
}

// RefreshAll replaces the space list and refreshes the contents of every
// space, at most concurrency at a time. Failures of single spaces are logged
// and do not stop the others.
func (w *SnapshotWorker) RefreshAll(ctx context.Context) error {
	var spaces []core.Space
	err := w.withSession(ctx, func(ctx context.Context) error {
		var err error
		spaces, err = w.client.GetSpaces(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("get spaces: %w", err)
	}
	if err := w.store.SaveSpaces(ctx, spaces); err != nil {
		return fmt.Errorf("save spaces: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	failed := make([]bool, len(spaces))
	for i, sp := range spaces {
		g.Go(func() error {
			if err := w.refreshSpace(gctx, sp.ID, false); err != nil {
				w.logger.ErrorContext(gctx, "Failed to refresh space",
					log.FieldSpaceID, sp.ID.String(), log.FieldError, err)
				failed[i] = true
			}
			return nil
		})
	}
	g.Wait()

	errorCount := 0
	for _, f := range failed {
		if f {
			errorCount++
		}
	}
	w.logger.InfoContext(ctx, "Snapshot refresh completed",
		"total", len(spaces),
		"refreshed", len(spaces)-errorCount,
		"errors", errorCount)

	return ctx.Err()
}

// Run refreshes everything every interval until ctx is done.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RefreshAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}

// refreshSpace fetches a space with its expenses and categories and stores
// them. A space the API no longer shows us is removed from the snapshot.
func (w *SnapshotWorker) refreshSpace(ctx context.Context, spaceID core.ID, withSpace bool) error {
	var (
		space      core.Space
		expenses   []core.Expense
		categories []core.Category
	)
	err := w.withSession(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if withSpace {
			g.Go(func() error {
				var err error
				space, err = w.client.GetSpaceByID(gctx, spaceID)
				return err
			})
		}
		g.Go(func() error {
			var err error
			expenses, err = w.client.GetExpenses(gctx, spaceID)
			return err
		})
		g.Go(func() error {
			var err error
			categories, err = w.client.GetCategories(gctx, spaceID)
			return err
		})
		return g.Wait()
	})
	if gone(err) {
		w.logger.InfoContext(ctx, "Space no longer visible, removing from snapshot",
			log.FieldSpaceID, spaceID.String(), "status", api.StatusCode(err))
		return w.store.DeleteSpace(ctx, spaceID)
	}
	if err != nil {
		return fmt.Errorf("fetch space %s: %w", spaceID, err)
	}

	if withSpace {
		if err := w.store.SaveSpace(ctx, space); err != nil {
			return fmt.Errorf("save space %s: %w", spaceID, err)
		}
	}
	if err := w.store.SaveSpaceContents(ctx, spaceID, expenses, categories); err != nil {
		return fmt.Errorf("save contents of %s: %w", spaceID, err)
	}
	return nil
}

// withSession runs fn, logging in again once if the token was rejected.
func (w *SnapshotWorker) withSession(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if !api.IsUnauthorized(err) {
		return err
	}
	w.logger.WarnContext(ctx, "Session rejected, logging in again")
	if err := w.Login(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func gone(err error) bool {
	if err == nil {
		return false
	}
	switch api.StatusCode(err) {
	case http.StatusNotFound, http.StatusForbidden:
		return true
	}
	return false
}
