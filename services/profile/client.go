// Package profile provides a client for the signed-in user's profile.
package profile

import (
	"context"
	"encoding/json"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
)

// Status is the account status of a user.
type Status string

// User statuses.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusForbidden Status = "forbidden"
	StatusDeleted   Status = "deleted"
)

// Privacy is the visibility of a profile.
type Privacy string

// Privacy settings.
const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// Profile is the signed-in user's profile as the backend sends it.
// The client relays profile bodies unchanged; Profile is the decoded view for callers that need fields.
type Profile struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Status  Status  `json:"status"`
	Privacy Privacy `json:"privacy"`
}

// ChangePasswordInput is the request body for a password change.
type ChangePasswordInput struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newpasswordConfirm"`
}

// Client is the profile client. Profile bodies are relayed as the backend sends them.
type Client struct {
	client *auth.Client
}

// NewClient creates a new profile client.
func NewClient(ac *auth.Client) *Client {
	return &Client{client: ac}
}

// Get returns the profile of the session's user.
func (c *Client) Get(ctx context.Context, sess *auth.Session) (json.RawMessage, error) {
	var p json.RawMessage
	err := c.client.Get(ctx, sess, "/users/profile").
		WithTraceName("svc:profile.getProfile").
		Decode(&p)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Update applies a partial update and returns the updated profile.
func (c *Client) Update(ctx context.Context, sess *auth.Session, patch any) (json.RawMessage, error) {
	var p json.RawMessage
	err := c.client.Patch(ctx, sess, "/users/profile", patch).
		WithTraceName("svc:profile.updateProfile").
		Decode(&p)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// ChangePassword changes the user's password.
func (c *Client) ChangePassword(ctx context.Context, sess *auth.Session, input ChangePasswordInput) error {
	_, err := c.client.Patch(ctx, sess, "/users/profile/password", input).
		WithTraceName("svc:profile.changePassword").
		Do()
	return err
}

// Delete deletes the user's account.
func (c *Client) Delete(ctx context.Context, sess *auth.Session) error {
	_, err := c.client.Delete(ctx, sess, "/users/profile").
		WithTraceName("svc:profile.deleteProfile").
		Do()
	return err
}
