package api

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
)

func (c *Client) GetCategories(ctx context.Context, spaceID core.ID) ([]core.Category, error) {
	path, err := expand(pathCategories, "space_id", spaceID.String())
	if err != nil {
		return nil, err
	}
	return call[[]core.Category](ctx, c, "get_categories", http.MethodGet, path, nil)
}

func (c *Client) CreateCategory(ctx context.Context, spaceID core.ID, draft core.CategoryDraft) (core.Category, error) {
	path, err := expand(pathCategories, "space_id", spaceID.String())
	if err != nil {
		return core.Category{}, err
	}
	return call[core.Category](ctx, c, "create_category", http.MethodPost, path, draft)
}

func (c *Client) DeleteCategory(ctx context.Context, spaceID, categoryID core.ID) (core.Ack, error) {
	path, err := expand(pathCategory, "space_id", spaceID.String(), "category_id", categoryID.String())
	if err != nil {
		return nil, err
	}
	return call[core.Ack](ctx, c, "delete_category", http.MethodDelete, path, nil)
}
