package api

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
)

func (c *Client) GetExpenses(ctx context.Context, spaceID core.ID) ([]core.Expense, error) {
	path, err := expand(pathExpenses, "space_id", spaceID.String())
	if err != nil {
		return nil, err
	}
	return call[[]core.Expense](ctx, c, "get_expenses", http.MethodGet, path, nil)
}

func (c *Client) CreateExpense(ctx context.Context, spaceID core.ID, draft core.ExpenseDraft) (core.Expense, error) {
	path, err := expand(pathExpenses, "space_id", spaceID.String())
	if err != nil {
		return core.Expense{}, err
	}
	return call[core.Expense](ctx, c, "create_expense", http.MethodPost, path, draft)
}

func (c *Client) PatchExpense(ctx context.Context, spaceID, expenseID core.ID, patch core.ExpensePatch) (core.Ack, error) {
	path, err := expand(pathExpense, "space_id", spaceID.String(), "expense_id", expenseID.String())
	if err != nil {
		return nil, err
	}
	return call[core.Ack](ctx, c, "patch_expense", http.MethodPatch, path, patch)
}

func (c *Client) DeleteExpense(ctx context.Context, spaceID, expenseID core.ID) (core.Ack, error) {
	path, err := expand(pathExpense, "space_id", spaceID.String(), "expense_id", expenseID.String())
	if err != nil {
		return nil, err
	}
	return call[core.Ack](ctx, c, "delete_expense", http.MethodDelete, path, nil)
}
