package garage

import (
	"context"
	"fmt"

	"garage-go/internal/model"
)

// LoadChangesFailed is the message shown when a diff cannot be fetched.
const LoadChangesFailed = "failed to load changes"

// HistoryView is the version-history timeline of one build together with the
// diff currently on display.
type HistoryView struct {
	api     SnapshotAPI
	logger  Logger
	buildID int64

	// Snapshots is the timeline, newest first.
	Snapshots []model.Snapshot

	// Diff is the last successfully loaded comparison.
	Diff *model.SnapshotDiff

	// Changes is the visible subset of Diff.
	Changes []ChangeLine

	// Message is set when the last diff request failed.
	Message string
}

// NewHistoryView creates an empty view. Call Load to fetch the timeline.
func NewHistoryView(api SnapshotAPI, buildID int64, logger Logger) *HistoryView {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &HistoryView{api: api, logger: logger, buildID: buildID}
}

// Load fetches the timeline from the backend.
func (h *HistoryView) Load(ctx context.Context) error {
	snaps, err := h.api.ListSnapshots(ctx, h.buildID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	h.Snapshots = snaps
	return nil
}

// ViewChanges shows what changed at timeline entry i, comparing it to the
// entry recorded just before it (i+1, since the timeline is newest first).
func (h *HistoryView) ViewChanges(ctx context.Context, i int) error {
	if i < 0 || i >= len(h.Snapshots) {
		return validationError("no history entry %d", i)
	}
	if i+1 >= len(h.Snapshots) {
		return validationError("entry %d is the oldest snapshot", i)
	}
	return h.Compare(ctx, h.Snapshots[i+1].ID, h.Snapshots[i].ID)
}

// Compare shows the diff between any two snapshots. On failure the previous
// diff stays on display and Message is set.
func (h *HistoryView) Compare(ctx context.Context, beforeID, afterID int64) error {
	diff, err := h.api.DiffSnapshots(ctx, beforeID, afterID)
	if err != nil {
		h.Message = LoadChangesFailed
		h.logger.Warn("diff request failed", "before", beforeID, "after", afterID, "error", err)
		return fmt.Errorf("comparing snapshots %d and %d: %w", beforeID, afterID, err)
	}
	h.Diff = diff
	h.Changes = VisibleChanges(diff)
	h.Message = ""
	return nil
}

// Index returns the timeline position of a snapshot id, or -1.
func (h *HistoryView) Index(snapshotID int64) int {
	for i := range h.Snapshots {
		if h.Snapshots[i].ID == snapshotID {
			return i
		}
	}
	return -1
}
