package api

import (
	"context"
	"net/http"

	"garage-go/internal/model"
)

func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp model.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.TokenResponse, error) {
	var resp model.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleLogin exchanges a Google ID token for a session.
func (c *Client) GoogleLogin(ctx context.Context, credential string) (*model.TokenResponse, error) {
	body := map[string]string{"credential": credential}
	var resp model.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/google", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendSMSCode asks the backend to text a verification code.
func (c *Client) SendSMSCode(ctx context.Context, phoneNumber string) error {
	body := map[string]string{"phone_number": phoneNumber}
	return c.send(ctx, http.MethodPost, "/api/auth/sms/send", body, nil)
}

// VerifySMSCode trades a texted code for a session, creating the account on
// first use.
func (c *Client) VerifySMSCode(ctx context.Context, req model.SMSVerifyRequest) (*model.TokenResponse, error) {
	var resp model.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/sms/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.get(ctx, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
