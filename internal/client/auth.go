package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthSession, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and signs in
func (c *Client) Register(ctx context.Context, signup domain.Signup) (*domain.AuthSession, error) {
	return c.authenticate(ctx, "/auth/register", signup)
}

func (c *Client) authenticate(ctx context.Context, path string, payload interface{}) (*domain.AuthSession, error) {
	r, err := jsonRequest(http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	var session domain.AuthSession
	if err := c.do(ctx, r, &session); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if session.Token == "" || session.User == nil {
		return nil, errors.New("api: auth response missing token or user")
	}
	return &session, nil
}

// Me returns the user the token belongs to
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/auth/me", &raw); err != nil {
		return nil, err
	}

	// either {"user": {...}} or the user object itself
	var wrapped struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// Logout invalidates the token server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, &request{method: http.MethodPost, path: "/auth/logout"}, nil)
}
