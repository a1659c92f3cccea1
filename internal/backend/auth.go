package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/codecritic/codecritic/internal/core"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse wraps core.User with response-shape validation.
type userResponse struct {
	core.User
}

func (u *userResponse) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}
	if u.Email == "" {
		return fmt.Errorf("user email is empty")
	}
	return nil
}

type userWithTokenResponse struct {
	core.UserWithToken
}

func (u *userWithTokenResponse) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}
	if u.AccessToken == "" {
		return fmt.Errorf("access token is empty")
	}
	return nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, email, password string) (*core.User, error) {
	var out userResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/signup", "", credentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login exchanges credentials for a user and bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*core.UserWithToken, error) {
	var out userWithTokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", credentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out.UserWithToken, nil
}

// SignupGuest creates a throwaway guest account and returns its token.
func (c *Client) SignupGuest(ctx context.Context) (*core.UserWithToken, error) {
	var out userWithTokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/guest", "", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out.UserWithToken, nil
}
