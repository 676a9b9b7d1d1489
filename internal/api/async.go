package api

import (
	"context"

	"expensetracker/internal/core"
)

// Async exposes every Client operation as a Future. Failures are handed to
// the optional callback and the future resolves without a value.
type Async struct {
	client *Client
}

func NewAsync(client *Client) *Async {
	return &Async{client: client}
}

// Client returns the blocking client behind a.
func (a *Async) Client() *Client {
	return a.client
}

func (a *Async) Login(ctx context.Context, creds core.Credentials, onErr ErrorCallback) *Future[core.Token] {
	return Go(ctx, func(ctx context.Context) (core.Token, error) {
		return a.client.Login(ctx, creds)
	}, onErr)
}

func (a *Async) Logout(ctx context.Context, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, a.client.Logout, onErr)
}

func (a *Async) CreateUser(ctx context.Context, user core.User, onErr ErrorCallback) *Future[core.User] {
	return Go(ctx, func(ctx context.Context) (core.User, error) {
		return a.client.CreateUser(ctx, user)
	}, onErr)
}

func (a *Async) GetSpaces(ctx context.Context, onErr ErrorCallback) *Future[[]core.Space] {
	return Go(ctx, a.client.GetSpaces, onErr)
}

func (a *Async) GetSpaceByID(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[core.Space] {
	return Go(ctx, func(ctx context.Context) (core.Space, error) {
		return a.client.GetSpaceByID(ctx, spaceID)
	}, onErr)
}

func (a *Async) CreateSpace(ctx context.Context, draft core.SpaceDraft, onErr ErrorCallback) *Future[core.Space] {
	return Go(ctx, func(ctx context.Context) (core.Space, error) {
		return a.client.CreateSpace(ctx, draft)
	}, onErr)
}

func (a *Async) PatchSpace(ctx context.Context, space core.Space, onErr ErrorCallback) *Future[core.Space] {
	return Go(ctx, func(ctx context.Context) (core.Space, error) {
		return a.client.PatchSpace(ctx, space)
	}, onErr)
}

func (a *Async) DeleteSpace(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, func(ctx context.Context) (core.Ack, error) {
		return a.client.DeleteSpace(ctx, spaceID)
	}, onErr)
}

func (a *Async) JoinSpace(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[core.Collaborator] {
	return Go(ctx, func(ctx context.Context) (core.Collaborator, error) {
		return a.client.JoinSpace(ctx, spaceID)
	}, onErr)
}

func (a *Async) QuitSpace(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[core.Collaborator] {
	return Go(ctx, func(ctx context.Context) (core.Collaborator, error) {
		return a.client.QuitSpace(ctx, spaceID)
	}, onErr)
}

func (a *Async) GetExpenses(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[[]core.Expense] {
	return Go(ctx, func(ctx context.Context) ([]core.Expense, error) {
		return a.client.GetExpenses(ctx, spaceID)
	}, onErr)
}

func (a *Async) CreateExpense(ctx context.Context, spaceID core.ID, draft core.ExpenseDraft, onErr ErrorCallback) *Future[core.Expense] {
	return Go(ctx, func(ctx context.Context) (core.Expense, error) {
		return a.client.CreateExpense(ctx, spaceID, draft)
	}, onErr)
}

func (a *Async) PatchExpense(ctx context.Context, spaceID, expenseID core.ID, patch core.ExpensePatch, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, func(ctx context.Context) (core.Ack, error) {
		return a.client.PatchExpense(ctx, spaceID, expenseID, patch)
	}, onErr)
}

func (a *Async) DeleteExpense(ctx context.Context, spaceID, expenseID core.ID, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, func(ctx context.Context) (core.Ack, error) {
		return a.client.DeleteExpense(ctx, spaceID, expenseID)
	}, onErr)
}

func (a *Async) GetCategories(ctx context.Context, spaceID core.ID, onErr ErrorCallback) *Future[[]core.Category] {
	return Go(ctx, func(ctx context.Context) ([]core.Category, error) {
		return a.client.GetCategories(ctx, spaceID)
	}, onErr)
}

func (a *Async) CreateCategory(ctx context.Context, spaceID core.ID, draft core.CategoryDraft, onErr ErrorCallback) *Future[core.Category] {
	return Go(ctx, func(ctx context.Context) (core.Category, error) {
		return a.client.CreateCategory(ctx, spaceID, draft)
	}, onErr)
}

func (a *Async) DeleteCategory(ctx context.Context, spaceID, categoryID core.ID, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, func(ctx context.Context) (core.Ack, error) {
		return a.client.DeleteCategory(ctx, spaceID, categoryID)
	}, onErr)
}

func (a *Async) AddCollaborator(ctx context.Context, spaceID core.ID, username string, onErr ErrorCallback) *Future[core.Collaborator] {
	return Go(ctx, func(ctx context.Context) (core.Collaborator, error) {
		return a.client.AddCollaborator(ctx, spaceID, username)
	}, onErr)
}

func (a *Async) RemoveCollaborator(ctx context.Context, spaceID core.ID, username string, onErr ErrorCallback) *Future[core.Ack] {
	return Go(ctx, func(ctx context.Context) (core.Ack, error) {
		return a.client.RemoveCollaborator(ctx, spaceID, username)
	}, onErr)
}
