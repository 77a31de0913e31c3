package api

import (
	"context"
	"io"
	"net/http"

	"garage-go/internal/model"
)

func (c *Client) CreateMaintenance(ctx context.Context, buildID int64, in model.MaintenanceInput) (*model.MaintenanceCreated, error) {
	var created model.MaintenanceCreated
	if err := c.send(ctx, http.MethodPost, "/api/builds/"+id(buildID)+"/maintenance", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UploadAttachment(ctx context.Context, maintenanceID int64, filename, description string, r io.Reader) (*model.Attachment, error) {
	fields := map[string]string{}
	if description != "" {
		fields["description"] = description
	}
	var a model.Attachment
	if err := c.upload(ctx, "/api/maintenance/"+id(maintenanceID)+"/attachments", fields, filename, r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListAttachments(ctx context.Context, maintenanceID int64) ([]model.Attachment, error) {
	var list []model.Attachment
	if err := c.get(ctx, "/api/maintenance/"+id(maintenanceID)+"/attachments", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
