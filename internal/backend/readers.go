package backend

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

var (
	// ErrReadOnly is returned for mutations on the offline backend.
	ErrReadOnly      = errors.New("offline backend is read-only")
	ErrSpaceNotFound = errors.New("space not found")
)

// remoteReader reads through the workspace so the cache and the snapshot
// are refreshed as a side effect.
type remoteReader struct {
	ws *services.Workspace
}

func (r remoteReader) Spaces(ctx context.Context) ([]core.Space, error) {
	return r.ws.RefreshSpaces(ctx, nil).Result(ctx)
}

func (r remoteReader) Space(ctx context.Context, spaceID core.ID) (core.Space, error) {
	if sp, ok := r.ws.Store().Space(spaceID); ok {
		return sp, nil
	}
	spaces, err := r.Spaces(ctx)
	if err != nil {
		return core.Space{}, err
	}
	for _, sp := range spaces {
		if sp.ID == spaceID {
			return sp, nil
		}
	}
	return core.Space{}, fmt.Errorf("space %s: %w", spaceID, ErrSpaceNotFound)
}

func (r remoteReader) Expenses(ctx context.Context, spaceID core.ID) ([]core.Expense, error) {
	view, err := r.open(ctx, spaceID)
	return view.Expenses, err
}

func (r remoteReader) Categories(ctx context.Context, spaceID core.ID) ([]core.Category, error) {
	view, err := r.open(ctx, spaceID)
	return view.Categories, err
}

// open reuses the open space when it is already loaded.
func (r remoteReader) open(ctx context.Context, spaceID core.ID) (services.SpaceView, error) {
	store := r.ws.Store()
	if store.OpenSpaceID() == spaceID && store.OpenStatus() == cache.Loaded {
		sp, _ := store.Space(spaceID)
		return services.SpaceView{Space: sp, Expenses: store.Expenses(), Categories: store.Categories()}, nil
	}
	return r.ws.OpenSpace(ctx, spaceID, nil).Result(ctx)
}

// offlineReader serves the last snapshot.
type offlineReader struct {
	repo *storage.SQLiteRepository
}

func (r offlineReader) Spaces(ctx context.Context) ([]core.Space, error) {
	return r.repo.ListSpaces(ctx)
}

func (r offlineReader) Space(ctx context.Context, spaceID core.ID) (core.Space, error) {
	sp, err := r.repo.GetSpace(ctx, spaceID)
	if errors.Is(err, storage.ErrNotFound) {
		return sp, fmt.Errorf("%w: %w", ErrSpaceNotFound, err)
	}
	return sp, err
}

func (r offlineReader) Expenses(ctx context.Context, spaceID core.ID) ([]core.Expense, error) {
	if _, err := r.Space(ctx, spaceID); err != nil {
		return nil, err
	}
	return r.repo.ListExpenses(ctx, spaceID)
}

func (r offlineReader) Categories(ctx context.Context, spaceID core.ID) ([]core.Category, error) {
	if _, err := r.Space(ctx, spaceID); err != nil {
		return nil, err
	}
	return r.repo.ListCategories(ctx, spaceID)
}
