package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

var (
	// ErrSpaceNotOpen is returned by operations that need the space to be
	// the open, fully loaded one.
	ErrSpaceNotOpen = errors.New("space is not open")
	// ErrExpenseNotCached is returned when an expense must be known locally
	// before it can be changed.
	ErrExpenseNotCached = errors.New("expense is not cached")
)

// ChangePublisher announces successful mutations.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Snapshotter keeps an offline copy of what the API returned.
type Snapshotter interface {
	SaveSpaces(ctx context.Context, spaces []core.Space) error
	SaveSpaceContents(ctx context.Context, spaceID core.ID, expenses []core.Expense, categories []core.Category) error
	DeleteSpace(ctx context.Context, spaceID core.ID) error
}

// SpaceView is an opened space with its expenses and categories.
type SpaceView struct {
	Space      core.Space
	Expenses   []core.Expense
	Categories []core.Category
}

// Workspace runs the user flows: each one calls the API and, only once the
// call succeeded, writes the result into the shared cache. A failed call
// leaves the cache untouched and reaches the caller's error callback.
type Workspace struct {
	client    *api.Client
	store     *cache.Store
	publisher ChangePublisher
	snapshots Snapshotter
	logger    *log.Logger

	mu         sync.Mutex
	cancelOpen context.CancelFunc
}

type Option func(*Workspace)

// WithPublisher enables change messages. A nil publisher disables them.
func WithPublisher(p ChangePublisher) Option {
	return func(w *Workspace) {
		w.publisher = p
	}
}

// WithSnapshotter enables the offline snapshot.
func WithSnapshotter(s Snapshotter) Option {
	return func(w *Workspace) {
		w.snapshots = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

func New(client *api.Client, store *cache.Store, opts ...Option) *Workspace {
	w := &Workspace{
		client: client,
		store:  store,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentWorkspace),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store returns the cache the workspace writes to.
func (w *Workspace) Store() *cache.Store {
	return w.store
}

// Close cancels the in-flight open, if any.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelOpen != nil {
		w.cancelOpen()
		w.cancelOpen = nil
	}
}

// Session

func (w *Workspace) Login(ctx context.Context, creds core.Credentials, onErr api.ErrorCallback) *api.Future[core.Token] {
	if err := creds.Validate(); err != nil {
		return api.Failed[core.Token](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Token, error) {
		tok, err := w.client.Login(ctx, creds)
		if err != nil {
			return tok, err
		}
		w.Close()
		w.store.Reset()
		w.store.SetUsername(creds.Username)
		w.logger.InfoContext(ctx, "Logged in", log.FieldUsername, creds.Username)
		return tok, nil
	}, onErr)
}

// Signup validates the form and creates the account. It does not log in.
func (w *Workspace) Signup(ctx context.Context, form core.Signup, onErr api.ErrorCallback) *api.Future[core.User] {
	if err := form.Validate(); err != nil {
		return api.Failed[core.User](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.User, error) {
		return w.client.CreateUser(ctx, form.User)
	}, onErr)
}

// Logout ends the session and forgets all cached state.
func (w *Workspace) Logout(ctx context.Context, onErr api.ErrorCallback) *api.Future[core.Ack] {
	return api.Go(ctx, func(ctx context.Context) (core.Ack, error) {
		ack, err := w.client.Logout(ctx)
		if err != nil {
			return ack, err
		}
		w.Close()
		w.store.Reset()
		return ack, nil
	}, onErr)
}

// Spaces

func (w *Workspace) RefreshSpaces(ctx context.Context, onErr api.ErrorCallback) *api.Future[[]core.Space] {
	w.store.SetSpacesStatus(cache.Loading)
	return api.Go(ctx, func(ctx context.Context) ([]core.Space, error) {
		spaces, err := w.client.GetSpaces(ctx)
		if err != nil {
			w.store.SetSpacesStatus(cache.Failed)
			return nil, err
		}
		w.store.SetSpaces(spaces)
		w.snapshot(ctx, "save spaces", func(s Snapshotter) error {
			return s.SaveSpaces(ctx, spaces)
		})
		return spaces, nil
	}, onErr)
}

func (w *Workspace) CreateSpace(ctx context.Context, draft core.SpaceDraft, onErr api.ErrorCallback) *api.Future[core.Space] {
	if err := draft.Validate(); err != nil {
		return api.Failed[core.Space](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Space, error) {
		sp, err := w.client.CreateSpace(ctx, draft)
		if err != nil {
			return sp, err
		}
		w.store.AppendSpace(sp)
		w.publish(ctx, amqp.ActionCreated, amqp.EntitySpace, sp.ID, sp.ID)
		return sp, nil
	}, onErr)
}

// EditSpace patches name and description of space.
func (w *Workspace) EditSpace(ctx context.Context, space core.Space, onErr api.ErrorCallback) *api.Future[core.Space] {
	draft := core.SpaceDraft{Name: space.Name, Description: space.Description}
	if err := draft.Validate(); err != nil {
		return api.Failed[core.Space](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Space, error) {
		if _, err := w.client.PatchSpace(ctx, space); err != nil {
			return core.Space{}, err
		}
		w.store.EditSpace(space)
		w.publish(ctx, amqp.ActionUpdated, amqp.EntitySpace, space.ID, space.ID)
		if cached, ok := w.store.Space(space.ID); ok {
			return cached, nil
		}
		return space, nil
	}, onErr)
}

func (w *Workspace) DeleteSpace(ctx context.Context, spaceID core.ID, onErr api.ErrorCallback) *api.Future[[]core.Space] {
	return api.Go(ctx, func(ctx context.Context) ([]core.Space, error) {
		if _, err := w.client.DeleteSpace(ctx, spaceID); err != nil {
			return nil, err
		}
		remaining := w.forgetSpace(ctx, spaceID)
		w.publish(ctx, amqp.ActionDeleted, amqp.EntitySpace, spaceID, spaceID)
		return remaining, nil
	}, onErr)
}

// JoinSpace joins a space the user was invited to and caches it.
func (w *Workspace) JoinSpace(ctx context.Context, spaceID core.ID, onErr api.ErrorCallback) *api.Future[core.Space] {
	return api.Go(ctx, func(ctx context.Context) (core.Space, error) {
		if _, err := w.client.JoinSpace(ctx, spaceID); err != nil {
			return core.Space{}, err
		}
		sp, err := w.client.GetSpaceByID(ctx, spaceID)
		if err != nil {
			return core.Space{}, fmt.Errorf("fetch joined space: %w", err)
		}
		w.store.AppendSpace(sp)
		w.publish(ctx, amqp.ActionJoined, amqp.EntitySpace, spaceID, spaceID)
		return sp, nil
	}, onErr)
}

// QuitSpace leaves a space and drops it from the cache.
func (w *Workspace) QuitSpace(ctx context.Context, spaceID core.ID, onErr api.ErrorCallback) *api.Future[[]core.Space] {
	return api.Go(ctx, func(ctx context.Context) ([]core.Space, error) {
		if _, err := w.client.QuitSpace(ctx, spaceID); err != nil {
			return nil, err
		}
		remaining := w.forgetSpace(ctx, spaceID)
		w.publish(ctx, amqp.ActionQuit, amqp.EntitySpace, spaceID, spaceID)
		return remaining, nil
	}, onErr)
}

func (w *Workspace) forgetSpace(ctx context.Context, spaceID core.ID) []core.Space {
	if w.store.OpenSpaceID() == spaceID {
		w.Close()
		w.store.CloseSpace()
	}
	remaining := w.store.RemoveSpaceByID(spaceID)
	w.snapshot(ctx, "delete space", func(s Snapshotter) error {
		return s.DeleteSpace(ctx, spaceID)
	})
	return remaining
}

// OpenSpace makes spaceID the open space and loads its expenses and
// categories in parallel. Opening another space cancels this load; a load
// that lost the race resolves absent without reaching onErr.
func (w *Workspace) OpenSpace(ctx context.Context, spaceID core.ID, onErr api.ErrorCallback) *api.Future[SpaceView] {
	w.mu.Lock()
	if w.cancelOpen != nil {
		w.cancelOpen()
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancelOpen = cancel
	ticket := w.store.BeginOpen(spaceID)
	w.mu.Unlock()

	return api.Go(ctx, func(ctx context.Context) (SpaceView, error) {
		var (
			expenses   []core.Expense
			categories []core.Category
		)
		g, gctx := errgroup.WithContext(ctx)
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

		if err := g.Wait(); err != nil {
			if !w.store.FailOpen(ticket) {
				return SpaceView{}, fmt.Errorf("open space %s: %w", spaceID, api.ErrSuperseded)
			}
			return SpaceView{}, err
		}
		if !w.store.CompleteExpenses(ticket, expenses) || !w.store.CompleteCategories(ticket, categories) {
			return SpaceView{}, fmt.Errorf("open space %s: %w", spaceID, api.ErrSuperseded)
		}

		w.logger.DebugContext(ctx, "Space opened",
			log.NewFields().
				WithSpace(spaceID.String()).
				With("expenses", len(expenses)).
				With("categories", len(categories)).
				ToSlice()...)
		w.snapshot(ctx, "save space contents", func(s Snapshotter) error {
			return s.SaveSpaceContents(ctx, spaceID, expenses, categories)
		})

		sp, _ := w.store.Space(spaceID)
		return SpaceView{Space: sp, Expenses: expenses, Categories: categories}, nil
	}, onErr)
}

// Expenses

// CreateExpense records an expense. It is appended to the cache when its
// space is the open one.
func (w *Workspace) CreateExpense(ctx context.Context, spaceID core.ID, draft core.ExpenseDraft, onErr api.ErrorCallback) *api.Future[core.Expense] {
	if err := draft.Validate(); err != nil {
		return api.Failed[core.Expense](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Expense, error) {
		e, err := w.client.CreateExpense(ctx, spaceID, draft)
		if err != nil {
			return e, err
		}
		if w.store.OpenSpaceID() == spaceID {
			w.store.AppendExpense(e)
		}
		w.logger.InfoContext(ctx, "Expense created",
			log.NewFields().
				WithSpace(spaceID.String()).
				WithExpense(e.ID.String()).
				With(log.FieldExpenseCost, e.Cost).
				ToSlice()...)
		w.publish(ctx, amqp.ActionCreated, amqp.EntityExpense, spaceID, e.ID)
		return e, nil
	}, onErr)
}

// EditExpense patches description and cost. When the expense is cached in
// the open space its cached category is sent back so the patch does not
// clear it; otherwise the category of update is sent.
func (w *Workspace) EditExpense(ctx context.Context, spaceID core.ID, update core.Expense, onErr api.ErrorCallback) *api.Future[core.Expense] {
	patch := update.Patch()
	if cached, ok := w.cachedExpense(spaceID, update.ID); ok {
		patch.Category = cached.Patch().Category
	}
	if err := patch.Validate(); err != nil {
		return api.Failed[core.Expense](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Expense, error) {
		if _, err := w.client.PatchExpense(ctx, spaceID, update.ID, patch); err != nil {
			return core.Expense{}, err
		}
		if w.store.OpenSpaceID() == spaceID {
			w.store.EditExpense(update)
		}
		w.publish(ctx, amqp.ActionUpdated, amqp.EntityExpense, spaceID, update.ID)
		if cached, ok := w.cachedExpense(spaceID, update.ID); ok {
			return cached, nil
		}
		return update, nil
	}, onErr)
}

// CategorizeExpense sets the category of an expense cached in the open
// space. The zero ID removes it.
func (w *Workspace) CategorizeExpense(ctx context.Context, spaceID, expenseID, categoryID core.ID, onErr api.ErrorCallback) *api.Future[core.Expense] {
	cached, ok := w.cachedExpense(spaceID, expenseID)
	if !ok {
		return api.Failed[core.Expense](ctx, fmt.Errorf("categorize %s: %w", expenseID, ErrExpenseNotCached), onErr)
	}
	patch := core.ExpensePatch{Description: cached.Description, Cost: cached.Cost}
	if !categoryID.IsZero() {
		patch.Category = &categoryID
	}
	return api.Go(ctx, func(ctx context.Context) (core.Expense, error) {
		if _, err := w.client.PatchExpense(ctx, spaceID, expenseID, patch); err != nil {
			return core.Expense{}, err
		}
		cached.Category = patch.Category
		if w.store.OpenSpaceID() == spaceID {
			w.store.SetExpenseCategory(expenseID, categoryID)
		}
		w.publish(ctx, amqp.ActionUpdated, amqp.EntityExpense, spaceID, expenseID)
		if e, ok := w.cachedExpense(spaceID, expenseID); ok {
			return e, nil
		}
		return cached, nil
	}, onErr)
}

// DeleteExpense deletes an expense and returns the expenses left in the
// cache. The cache only changes when spaceID is the open space; otherwise
// the result is nil.
func (w *Workspace) DeleteExpense(ctx context.Context, spaceID, expenseID core.ID, onErr api.ErrorCallback) *api.Future[[]core.Expense] {
	return api.Go(ctx, func(ctx context.Context) ([]core.Expense, error) {
		if _, err := w.client.DeleteExpense(ctx, spaceID, expenseID); err != nil {
			return nil, err
		}
		var remaining []core.Expense
		if w.store.OpenSpaceID() == spaceID {
			remaining = w.store.RemoveExpenseByID(expenseID)
		}
		w.publish(ctx, amqp.ActionDeleted, amqp.EntityExpense, spaceID, expenseID)
		return remaining, nil
	}, onErr)
}

// cachedExpense returns the expense when spaceID is the open space and it is
// cached there. Ids are only unique within a space.
func (w *Workspace) cachedExpense(spaceID, expenseID core.ID) (core.Expense, bool) {
	if w.store.OpenSpaceID() != spaceID {
		return core.Expense{}, false
	}
	return w.store.Expense(expenseID)
}

// Categories

func (w *Workspace) CreateCategory(ctx context.Context, spaceID core.ID, draft core.CategoryDraft, onErr api.ErrorCallback) *api.Future[core.Category] {
	if err := draft.Validate(); err != nil {
		return api.Failed[core.Category](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Category, error) {
		c, err := w.client.CreateCategory(ctx, spaceID, draft)
		if err != nil {
			return c, err
		}
		if w.store.OpenSpaceID() == spaceID {
			w.store.AppendCategory(c)
		}
		w.publish(ctx, amqp.ActionCreated, amqp.EntityCategory, spaceID, c.ID)
		return c, nil
	}, onErr)
}

// DeleteCategory deletes a category. When spaceID is the open space the
// category leaves the cache and the cached expenses that used it are
// uncategorized; otherwise the result is nil.
func (w *Workspace) DeleteCategory(ctx context.Context, spaceID, categoryID core.ID, onErr api.ErrorCallback) *api.Future[[]core.Category] {
	return api.Go(ctx, func(ctx context.Context) ([]core.Category, error) {
		if _, err := w.client.DeleteCategory(ctx, spaceID, categoryID); err != nil {
			return nil, err
		}
		var remaining []core.Category
		if w.store.OpenSpaceID() == spaceID {
			remaining = w.store.RemoveCategoryByID(categoryID)
			w.store.ClearCategory(categoryID)
		}
		w.publish(ctx, amqp.ActionDeleted, amqp.EntityCategory, spaceID, categoryID)
		return remaining, nil
	}, onErr)
}

// Collaborators

func (w *Workspace) AddCollaborator(ctx context.Context, spaceID core.ID, username string, onErr api.ErrorCallback) *api.Future[core.Collaborator] {
	if err := (core.CollaboratorDraft{Username: username}).Validate(); err != nil {
		return api.Failed[core.Collaborator](ctx, err, onErr)
	}
	return api.Go(ctx, func(ctx context.Context) (core.Collaborator, error) {
		col, err := w.client.AddCollaborator(ctx, spaceID, username)
		if err != nil {
			return col, err
		}
		w.store.AddSpaceCollaborator(spaceID, username)
		w.publish(ctx, amqp.ActionCreated, amqp.EntityCollaborator, spaceID, core.ID(username))
		return col, nil
	}, onErr)
}

func (w *Workspace) RemoveCollaborator(ctx context.Context, spaceID core.ID, username string, onErr api.ErrorCallback) *api.Future[core.Space] {
	return api.Go(ctx, func(ctx context.Context) (core.Space, error) {
		if _, err := w.client.RemoveCollaborator(ctx, spaceID, username); err != nil {
			return core.Space{}, err
		}
		w.store.RemoveSpaceCollaborator(spaceID, username)
		w.publish(ctx, amqp.ActionDeleted, amqp.EntityCollaborator, spaceID, core.ID(username))
		sp, _ := w.store.Space(spaceID)
		return sp, nil
	}, onErr)
}

// Totals summarizes the open space from the cache.
func (w *Workspace) Totals(spaceID core.ID) (core.Summary, error) {
	if w.store.OpenSpaceID() != spaceID || w.store.OpenStatus() != cache.Loaded {
		return core.Summary{}, fmt.Errorf("totals of %s: %w", spaceID, ErrSpaceNotOpen)
	}
	return core.Summarize(spaceID, w.store.Expenses(), w.store.Categories()), nil
}

func (w *Workspace) publish(ctx context.Context, action, entity string, spaceID, entityID core.ID) {
	if w.publisher == nil {
		return
	}
	msg := amqp.NewChangeMessage(action, entity, spaceID, entityID, w.store.Username())
	if err := w.publisher.PublishChange(ctx, msg); err != nil {
		// the remote change already happened
		w.logger.WarnContext(ctx, "Failed to publish change message",
			log.NewFields().
				WithOperation(entity+"."+action).
				WithSpace(spaceID.String()).
				WithError(err).
				ToSlice()...)
	}
}

func (w *Workspace) snapshot(ctx context.Context, op string, fn func(Snapshotter) error) {
	if w.snapshots == nil {
		return
	}
	if err := fn(w.snapshots); err != nil {
		w.logger.WarnContext(ctx, "Failed to update snapshot",
			log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
}
