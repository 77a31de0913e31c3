package api

import (
	"context"
	"net/http"
	"net/url"

	"garage-go/internal/model"
)

func componentsPath(t model.ComponentType) string {
	return "/api/components/" + url.PathEscape(string(t))
}

func (c *Client) CreateComponent(ctx context.Context, t model.ComponentType, in model.ComponentInput) (*model.Component, error) {
	var comp model.Component
	if err := c.send(ctx, http.MethodPost, componentsPath(t), in, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

func (c *Client) GetComponent(ctx context.Context, t model.ComponentType, componentID int64) (*model.Component, error) {
	var comp model.Component
	if err := c.get(ctx, componentsPath(t)+"/"+id(componentID), nil, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

func (c *Client) UpdateComponent(ctx context.Context, t model.ComponentType, componentID int64, in model.ComponentInput) (*model.Component, error) {
	var comp model.Component
	if err := c.send(ctx, http.MethodPut, componentsPath(t)+"/"+id(componentID), in, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

func (c *Client) DeleteComponent(ctx context.Context, t model.ComponentType, componentID int64) error {
	return c.send(ctx, http.MethodDelete, componentsPath(t)+"/"+id(componentID), nil, nil)
}

func (c *Client) ListTemplates(ctx context.Context, t model.ComponentType) ([]model.Component, error) {
	var list []model.Component
	if err := c.get(ctx, componentsPath(t)+"/templates", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CloneComponent(ctx context.Context, t model.ComponentType, componentID int64, newName string) (*model.Component, error) {
	var comp model.Component
	body := map[string]string{"new_name": newName}
	if err := c.send(ctx, http.MethodPost, componentsPath(t)+"/"+id(componentID)+"/clone", body, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}
