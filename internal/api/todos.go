package api

import (
	"context"
	"net/http"
	"net/url"

	"garage-go/internal/model"
)

func (c *Client) ListTodos(ctx context.Context, buildID int64, filter model.TodoFilter) ([]model.Todo, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	var todos []model.Todo
	if err := c.get(ctx, "/api/builds/"+id(buildID)+"/todos", q, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) TodoStats(ctx context.Context, buildID int64) (*model.TodoStats, error) {
	var st model.TodoStats
	if err := c.get(ctx, "/api/builds/"+id(buildID)+"/todos/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetTodo(ctx context.Context, todoID int64) (*model.Todo, error) {
	var t model.Todo
	if err := c.get(ctx, "/api/todos/"+id(todoID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTodo(ctx context.Context, buildID int64, in model.TodoInput) (*model.TodoCreated, error) {
	var created model.TodoCreated
	if err := c.send(ctx, http.MethodPost, "/api/builds/"+id(buildID)+"/todos", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTodo(ctx context.Context, todoID int64, patch model.TodoPatch) error {
	return c.send(ctx, http.MethodPut, "/api/todos/"+id(todoID), patch, nil)
}

func (c *Client) CompleteTodo(ctx context.Context, todoID int64, completion model.TodoCompletion) (*model.TodoCompletionResult, error) {
	var done model.TodoCompletionResult
	if err := c.send(ctx, http.MethodPost, "/api/todos/"+id(todoID)+"/complete", completion, &done); err != nil {
		return nil, err
	}
	return &done, nil
}

func (c *Client) ReopenTodo(ctx context.Context, todoID int64) error {
	return c.send(ctx, http.MethodPost, "/api/todos/"+id(todoID)+"/reopen", nil, nil)
}

func (c *Client) DeleteTodo(ctx context.Context, todoID int64) error {
	return c.send(ctx, http.MethodDelete, "/api/todos/"+id(todoID), nil, nil)
}

// ReorderTodos sends the full ordering; position i gets sort order i.
func (c *Client) ReorderTodos(ctx context.Context, buildID int64, todoIDs []int64) error {
	if todoIDs == nil {
		todoIDs = []int64{}
	}
	body := map[string][]int64{"todo_ids": todoIDs}
	return c.send(ctx, http.MethodPost, "/api/builds/"+id(buildID)+"/todos/reorder", body, nil)
}
