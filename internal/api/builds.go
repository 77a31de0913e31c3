package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"garage-go/internal/model"
)

func (c *Client) ListBuilds(ctx context.Context) ([]model.Build, error) {
	var builds []model.Build
	if err := c.get(ctx, "/api/builds", nil, &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (c *Client) GetBuild(ctx context.Context, ref string) (*model.BuildDetail, error) {
	var d model.BuildDetail
	if err := c.get(ctx, "/api/builds/"+url.PathEscape(ref), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateBuild(ctx context.Context, fields map[string]any) (*model.Build, error) {
	var b model.Build
	if err := c.send(ctx, http.MethodPost, "/api/builds", fields, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBuild(ctx context.Context, buildID int64, fields map[string]any) (*model.Build, error) {
	var b model.Build
	if err := c.send(ctx, http.MethodPatch, "/api/builds/"+id(buildID), fields, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// PutSection sends doc as the request body unchanged.
func (c *Client) PutSection(ctx context.Context, buildID int64, section model.Section, doc json.RawMessage) error {
	return c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/api/builds/" + id(buildID) + "/" + url.PathEscape(string(section)),
		raw:         bytes.NewReader(doc),
		contentType: "application/json",
	}, nil)
}

func (c *Client) UploadComponentPhoto(ctx context.Context, buildID int64, componentType, filename string, r io.Reader) (*model.Upload, error) {
	var u model.Upload
	fields := map[string]string{"component_type": componentType}
	if err := c.upload(ctx, "/api/builds/"+id(buildID)+"/upload-component-photo", fields, filename, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
