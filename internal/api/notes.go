package api

import (
	"context"
	"net/http"
	"net/url"

	"garage-go/internal/model"
)

func notesPath(buildID int64, component model.ComponentType) string {
	return "/api/builds/" + id(buildID) + "/components/" + url.PathEscape(string(component)) + "/notes"
}

func (c *Client) ListNotes(ctx context.Context, buildID int64, component model.ComponentType) ([]model.ComponentNote, error) {
	var notes []model.ComponentNote
	if err := c.get(ctx, notesPath(buildID, component), nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) AddNote(ctx context.Context, buildID int64, component model.ComponentType, content string) (*model.ComponentNote, error) {
	var n model.ComponentNote
	body := map[string]string{"content": content}
	if err := c.send(ctx, http.MethodPost, notesPath(buildID, component), body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) UpdateNote(ctx context.Context, buildID int64, component model.ComponentType, noteID, content string) (*model.ComponentNote, error) {
	var n model.ComponentNote
	body := map[string]string{"content": content}
	path := notesPath(buildID, component) + "/" + url.PathEscape(noteID)
	if err := c.send(ctx, http.MethodPut, path, body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) DeleteNote(ctx context.Context, buildID int64, component model.ComponentType, noteID string) error {
	path := notesPath(buildID, component) + "/" + url.PathEscape(noteID)
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}
