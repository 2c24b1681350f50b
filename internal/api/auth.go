package api

import (
	"context"
	"net/http"

	"github.com/nhle/swapdesk/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) Result[model.LoginResult] {
	return Do[model.LoginResult](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	})
}

// ForgotPassword asks the backend to email a password reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) Result[struct{}] {
	return Do[struct{}](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/forgot-password",
		Body:   forgotPasswordRequest{Email: email},
	})
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) Result[model.User] {
	return Do[model.User](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/auth/me",
		Token:  token,
	})
}
