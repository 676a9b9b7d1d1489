package api

import (
	"context"
	"fmt"
	"net/http"

	"expensetracker/internal/core"
)

// Login exchanges credentials for a token and stores it in the session, so
// every later request is authenticated.
func (c *Client) Login(ctx context.Context, creds core.Credentials) (core.Token, error) {
	tok, err := call[core.Token](ctx, c, "login", http.MethodPost, pathLogin, creds)
	if err != nil {
		return core.Token{}, err
	}
	if tok.Token == "" {
		return core.Token{}, fmt.Errorf("login: %w", ErrEmptyToken)
	}
	c.session.SetToken(tok.Token)

	if exp, ok := c.session.ExpiresAt(); ok {
		c.logger.DebugContext(ctx, "Session token stored", "expires_at", exp)
	}
	return tok, nil
}

// Logout ends the session on the server and forgets the local token.
func (c *Client) Logout(ctx context.Context) (core.Ack, error) {
	ack, err := call[core.Ack](ctx, c, "logout", http.MethodPost, pathLogout, struct{}{})
	if err != nil {
		return nil, err
	}
	c.session.Clear()
	return ack, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	return call[core.User](ctx, c, "create_user", http.MethodPost, pathUsers, user)
}
