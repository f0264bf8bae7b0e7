package api

import (
	"context"
	"net/http"
	"net/url"

	"huddle-cli/internal/model"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account. The backend rejects duplicate emails and
// usernames with a 400 whose detail names the conflict.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/register", req, nil)
}

// Login exchanges credentials for a bearer token and arms the client with
// it. The endpoint speaks the OAuth2 password flow, so the account's
// username goes in the "username" form field.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.doForm(ctx, "/login", form, &out); err != nil {
		return "", err
	}
	c.token = out.AccessToken
	return out.AccessToken, nil
}

// CurrentUser returns the user behind the active session token.
//
// The /me payload does not include the username; callers that need the
// mention key resolve it against Users by id.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var me model.User
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return model.User{}, err
	}
	return me, nil
}

// Users returns the full user directory (the mention candidate set).
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
