package garage

import (
	"encoding/json"
	"time"
)

// DraftEntry is one pending edit of a build, persisted until it is saved or
// discarded.
type DraftEntry struct {
	BuildID   int64
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// Operation records a CLI command that changed remote or local state.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Database is the local store for draft changesets and the operation log.
type Database interface {
	// Draft operations

	// PutDraftEntry inserts or replaces the entry for (BuildID, Key).
	PutDraftEntry(entry *DraftEntry) error

	// ListDraftEntries returns the build's pending entries ordered by key.
	ListDraftEntries(buildID int64) ([]*DraftEntry, error)

	// DeleteDraftEntries removes the named entries of a build.
	DeleteDraftEntries(buildID int64, keys []string) error

	// ClearDraft removes every pending entry of a build.
	ClearDraft(buildID int64) error

	// ListDraftBuilds returns the ids of builds with pending entries.
	ListDraftBuilds() ([]int64, error)

	// Operation log

	CreateOperation(operation, parameters string) (*Operation, error)
	FinishOperation(id int64, status string) error
	ListOperations(limit int) ([]*Operation, error)

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
