package api

import (
	"context"
	"errors"
	"net/http"

	"garage-go/internal/model"
)

func (c *Client) SubscriptionStatus(ctx context.Context) (*model.SubscriptionStatus, error) {
	var st model.SubscriptionStatus
	if err := c.get(ctx, "/api/subscription", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"checkout_url"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/subscription/checkout", nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("backend returned no checkout url")
	}
	return resp.URL, nil
}

func (c *Client) CreatePortalSession(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"portal_url"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/subscription/portal", nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("backend returned no portal url")
	}
	return resp.URL, nil
}
