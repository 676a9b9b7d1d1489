package api

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
)

func (c *Client) GetSpaces(ctx context.Context) ([]core.Space, error) {
	return call[[]core.Space](ctx, c, "get_spaces", http.MethodGet, pathSpaces, nil)
}

func (c *Client) GetSpaceByID(ctx context.Context, spaceID core.ID) (core.Space, error) {
	path, err := expand(pathSpace, "space_id", spaceID.String())
	if err != nil {
		return core.Space{}, err
	}
	return call[core.Space](ctx, c, "get_space", http.MethodGet, path, nil)
}

func (c *Client) CreateSpace(ctx context.Context, draft core.SpaceDraft) (core.Space, error) {
	return call[core.Space](ctx, c, "create_space", http.MethodPost, pathSpaces, draft)
}

// PatchSpace sends the name and description of space.
func (c *Client) PatchSpace(ctx context.Context, space core.Space) (core.Space, error) {
	path, err := expand(pathSpace, "space_id", space.ID.String())
	if err != nil {
		return core.Space{}, err
	}
	draft := core.SpaceDraft{Name: space.Name, Description: space.Description}
	return call[core.Space](ctx, c, "patch_space", http.MethodPatch, path, draft)
}

func (c *Client) DeleteSpace(ctx context.Context, spaceID core.ID) (core.Ack, error) {
	path, err := expand(pathSpace, "space_id", spaceID.String())
	if err != nil {
		return nil, err
	}
	return call[core.Ack](ctx, c, "delete_space", http.MethodDelete, path, nil)
}

// JoinSpace adds the logged-in user to a space they were invited to.
func (c *Client) JoinSpace(ctx context.Context, spaceID core.ID) (core.Collaborator, error) {
	path, err := expand(pathJoin, "space_id", spaceID.String())
	if err != nil {
		return core.Collaborator{}, err
	}
	return call[core.Collaborator](ctx, c, "join_space", http.MethodPost, path, nil)
}

// QuitSpace removes the logged-in user from a space.
func (c *Client) QuitSpace(ctx context.Context, spaceID core.ID) (core.Collaborator, error) {
	path, err := expand(pathQuit, "space_id", spaceID.String())
	if err != nil {
		return core.Collaborator{}, err
	}
	return call[core.Collaborator](ctx, c, "quit_space", http.MethodPost, path, nil)
}
