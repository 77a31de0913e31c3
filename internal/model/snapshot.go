package model

import (
	"encoding/json"
	"strings"
)

// Snapshot types the backend writes.
const (
	SnapshotManual            = "manual"
	SnapshotManualEdit        = "manual_edit"
	SnapshotMaintenance       = "maintenance"
	SnapshotBeforeMaintenance = "before_maintenance"
	SnapshotPerformanceTest   = "performance_test"
	SnapshotBeforeChange      = "before_change"
	SnapshotAfterChange       = "after_change"
	SnapshotBeforeRestore     = "before_restore"
	SnapshotRestored          = "restored"
	SnapshotInitial           = "initial"
)

// Snapshot is an immutable capture of a build. History listings carry the
// author's name and, for maintenance snapshots, the maintenance type.
type Snapshot struct {
	ID                int64     `json:"id"`
	BuildID           int64     `json:"build_id"`
	UserID            int64     `json:"user_id,omitempty"`
	MaintenanceID     *int64    `json:"maintenance_id,omitempty"`
	SnapshotType      string    `json:"snapshot_type"`
	ChangeDescription string    `json:"change_description,omitempty"`
	CreatedAt         Timestamp `json:"created_at"`
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	MaintenanceType   string    `json:"maintenance_type,omitempty"`

	// Documents holds the captured section documents keyed by their build
	// document field, e.g. "suspension_json".
	Documents map[string]json.RawMessage `json:"-"`
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Documents = make(map[string]json.RawMessage)
	for _, sec := range AllSections {
		if v, ok := raw[sec.Field()]; ok && string(v) != "null" {
			p.Documents[sec.Field()] = v
		}
	}
	*s = Snapshot(p)
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	head, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	if len(s.Documents) == 0 {
		return head, nil
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(head, &doc); err != nil {
		return nil, err
	}
	for k, v := range s.Documents {
		doc[k] = v
	}
	return json.Marshal(doc)
}

// AuthorName returns the snapshot author's display name.
func (s *Snapshot) AuthorName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Label is the one-line caption shown in the history timeline.
func (s *Snapshot) Label() string {
	if s.SnapshotType == SnapshotMaintenance && s.MaintenanceType != "" {
		return s.MaintenanceType
	}
	if s.ChangeDescription != "" {
		return s.ChangeDescription
	}
	return strings.ReplaceAll(s.SnapshotType, "_", " ")
}

// SnapshotRef is the header of one side of a diff.
type SnapshotRef struct {
	ID                int64     `json:"id"`
	CreatedAt         Timestamp `json:"created_at"`
	SnapshotType      string    `json:"snapshot_type"`
	ChangeDescription string    `json:"change_description,omitempty"`
}

// FieldChange is the backend's verdict for one compared field.
type FieldChange struct {
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after"`
	HasChanges bool            `json:"has_changes"`
}

// SnapshotDiff compares two snapshots field by field.
type SnapshotDiff struct {
	SnapshotBefore SnapshotRef            `json:"snapshot_before"`
	SnapshotAfter  SnapshotRef            `json:"snapshot_after"`
	Changes        map[string]FieldChange `json:"changes"`
}

// RestoreResult is returned by a successful restore.
type RestoreResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
