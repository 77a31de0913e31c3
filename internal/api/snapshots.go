package api

import (
	"context"
	"net/http"

	"garage-go/internal/model"
)

func (c *Client) ListSnapshots(ctx context.Context, buildID int64) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	if err := c.get(ctx, "/api/builds/"+id(buildID)+"/snapshots", nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (c *Client) GetSnapshot(ctx context.Context, snapshotID int64) (*model.Snapshot, error) {
	var s model.Snapshot
	if err := c.get(ctx, "/api/snapshots/"+id(snapshotID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DiffSnapshots asks the backend for the changes from beforeID to afterID.
// The route is addressed from the newer snapshot.
func (c *Client) DiffSnapshots(ctx context.Context, beforeID, afterID int64) (*model.SnapshotDiff, error) {
	var d model.SnapshotDiff
	if err := c.get(ctx, "/api/snapshots/"+id(afterID)+"/diff/"+id(beforeID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) RestoreSnapshot(ctx context.Context, buildID, snapshotID int64) (*model.RestoreResult, error) {
	var res model.RestoreResult
	if err := c.send(ctx, http.MethodPost, "/api/builds/"+id(buildID)+"/restore/"+id(snapshotID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
