package api

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
)

// AddCollaborator invites username to a space.
func (c *Client) AddCollaborator(ctx context.Context, spaceID core.ID, username string) (core.Collaborator, error) {
	path, err := expand(pathSpaceUsers, "space_id", spaceID.String())
	if err != nil {
		return core.Collaborator{}, err
	}
	draft := core.CollaboratorDraft{Username: username}
	return call[core.Collaborator](ctx, c, "add_collaborator", http.MethodPost, path, draft)
}

func (c *Client) RemoveCollaborator(ctx context.Context, spaceID core.ID, username string) (core.Ack, error) {
	path, err := expand(pathSpaceUser, "space_id", spaceID.String(), "username", username)
	if err != nil {
		return nil, err
	}
	return call[core.Ack](ctx, c, "remove_collaborator", http.MethodDelete, path, nil)
}
