// Package users is the typed client for the portal's user endpoints: the
// current user's profile and the admin-only account surface.
package users

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/session"
)

// User is the fixed shape returned by the admin account endpoints.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Update carries optional account fields for the admin update endpoint.
// Nil fields are left unchanged.
type Update struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Client calls the user endpoints through the API gateway.
type Client struct {
	api *api.Client
}

// New creates a users client.
func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Me fetches the current user's profile. The profile is an open field
// mapping; academic attributes vary per student.
func (c *Client) Me(ctx context.Context) (session.Profile, error) {
	var profile session.Profile
	if err := c.api.Get(ctx, "/users/me", &profile); err != nil {
		return nil, errors.Wrap(err, "[Client.Me] GET /users/me")
	}
	return profile, nil
}

// UpdateMe updates the current user's profile fields and returns the updated
// profile as the server sees it.
func (c *Client) UpdateMe(ctx context.Context, fields session.Profile) (session.Profile, error) {
	var updated session.Profile
	if err := c.api.Put(ctx, "/users/me", fields, &updated); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateMe] PUT /users/me")
	}
	return updated, nil
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	err := c.api.Put(ctx, "/users/me/password", passwordChangeRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}, nil)
	return errors.Wrap(err, "[Client.ChangePassword] PUT /users/me/password")
}

// List returns a page of accounts (admin only).
func (c *Client) List(ctx context.Context, skip, limit int) ([]User, error) {
	var accounts []User
	path := fmt.Sprintf("/users/?skip=%d&limit=%d", skip, limit)
	if err := c.api.Get(ctx, path, &accounts); err != nil {
		return nil, errors.Wrap(err, "[Client.List] GET /users/")
	}
	return accounts, nil
}

// GetByID returns a single account (admin only).
func (c *Client) GetByID(ctx context.Context, id int) (User, error) {
	var account User
	if err := c.api.Get(ctx, fmt.Sprintf("/users/%d", id), &account); err != nil {
		return User{}, errors.Wrapf(err, "[Client.GetByID] GET /users/%d", id)
	}
	return account, nil
}

// UpdateByID updates an account (admin only).
func (c *Client) UpdateByID(ctx context.Context, id int, update Update) (User, error) {
	var account User
	if err := c.api.Put(ctx, fmt.Sprintf("/users/%d", id), update, &account); err != nil {
		return User{}, errors.Wrapf(err, "[Client.UpdateByID] PUT /users/%d", id)
	}
	return account, nil
}

// DeleteByID removes an account (admin only).
func (c *Client) DeleteByID(ctx context.Context, id int) error {
	err := c.api.Delete(ctx, fmt.Sprintf("/users/%d", id), nil)
	return errors.Wrapf(err, "[Client.DeleteByID] DELETE /users/%d", id)
}
