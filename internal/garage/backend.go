package garage

import (
	"context"
	"encoding/json"
	"io"

	"garage-go/internal/model"
)

// AuthAPI covers account login and identity.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.TokenResponse, error)
	GoogleLogin(ctx context.Context, credential string) (*model.TokenResponse, error)
	SendSMSCode(ctx context.Context, phoneNumber string) error
	VerifySMSCode(ctx context.Context, req model.SMSVerifyRequest) (*model.TokenResponse, error)
	CurrentUser(ctx context.Context) (*model.User, error)
}

// BuildAPI covers build records and their section documents.
type BuildAPI interface {
	ListBuilds(ctx context.Context) ([]model.Build, error)

	// GetBuild accepts a numeric id or a share slug.
	GetBuild(ctx context.Context, ref string) (*model.BuildDetail, error)

	CreateBuild(ctx context.Context, fields map[string]any) (*model.Build, error)

	// UpdateBuild applies a partial update; only the given fields change.
	UpdateBuild(ctx context.Context, buildID int64, fields map[string]any) (*model.Build, error)

	// PutSection replaces one nested section document.
	PutSection(ctx context.Context, buildID int64, section model.Section, doc json.RawMessage) error

	UploadComponentPhoto(ctx context.Context, buildID int64, componentType, filename string, r io.Reader) (*model.Upload, error)
}

// SnapshotAPI covers version history.
type SnapshotAPI interface {
	// ListSnapshots returns the build's history, newest first.
	ListSnapshots(ctx context.Context, buildID int64) ([]model.Snapshot, error)
	GetSnapshot(ctx context.Context, snapshotID int64) (*model.Snapshot, error)

	// DiffSnapshots compares any two snapshots of the same build. beforeID
	// is the chronologically earlier one.
	DiffSnapshots(ctx context.Context, beforeID, afterID int64) (*model.SnapshotDiff, error)

	RestoreSnapshot(ctx context.Context, buildID, snapshotID int64) (*model.RestoreResult, error)
}

// MaintenanceAPI covers maintenance records and their attachments.
type MaintenanceAPI interface {
	CreateMaintenance(ctx context.Context, buildID int64, in model.MaintenanceInput) (*model.MaintenanceCreated, error)
	UploadAttachment(ctx context.Context, maintenanceID int64, filename, description string, r io.Reader) (*model.Attachment, error)
	ListAttachments(ctx context.Context, maintenanceID int64) ([]model.Attachment, error)
}

// TodoAPI covers build todos.
type TodoAPI interface {
	ListTodos(ctx context.Context, buildID int64, filter model.TodoFilter) ([]model.Todo, error)
	TodoStats(ctx context.Context, buildID int64) (*model.TodoStats, error)
	GetTodo(ctx context.Context, todoID int64) (*model.Todo, error)
	CreateTodo(ctx context.Context, buildID int64, in model.TodoInput) (*model.TodoCreated, error)
	UpdateTodo(ctx context.Context, todoID int64, patch model.TodoPatch) error
	CompleteTodo(ctx context.Context, todoID int64, c model.TodoCompletion) (*model.TodoCompletionResult, error)
	ReopenTodo(ctx context.Context, todoID int64) error
	DeleteTodo(ctx context.Context, todoID int64) error
	ReorderTodos(ctx context.Context, buildID int64, todoIDs []int64) error
}

// NoteAPI covers notes scoped to a (build, component type) pair.
type NoteAPI interface {
	ListNotes(ctx context.Context, buildID int64, component model.ComponentType) ([]model.ComponentNote, error)
	AddNote(ctx context.Context, buildID int64, component model.ComponentType, content string) (*model.ComponentNote, error)
	UpdateNote(ctx context.Context, buildID int64, component model.ComponentType, noteID, content string) (*model.ComponentNote, error)
	DeleteNote(ctx context.Context, buildID int64, component model.ComponentType, noteID string) error
}

// SubscriptionAPI covers tier status and billing redirects.
type SubscriptionAPI interface {
	SubscriptionStatus(ctx context.Context) (*model.SubscriptionStatus, error)

	// CreateCheckoutSession returns the URL of a hosted checkout page.
	CreateCheckoutSession(ctx context.Context) (string, error)

	// CreatePortalSession returns the URL of the billing portal.
	CreatePortalSession(ctx context.Context) (string, error)
}

// ComponentAPI covers the reusable component library.
type ComponentAPI interface {
	CreateComponent(ctx context.Context, t model.ComponentType, in model.ComponentInput) (*model.Component, error)
	GetComponent(ctx context.Context, t model.ComponentType, id int64) (*model.Component, error)
	UpdateComponent(ctx context.Context, t model.ComponentType, id int64, in model.ComponentInput) (*model.Component, error)
	DeleteComponent(ctx context.Context, t model.ComponentType, id int64) error
	ListTemplates(ctx context.Context, t model.ComponentType) ([]model.Component, error)
	CloneComponent(ctx context.Context, t model.ComponentType, id int64, newName string) (*model.Component, error)
}

// Backend is the full REST contract the client depends on.
type Backend interface {
	AuthAPI
	BuildAPI
	SnapshotAPI
	MaintenanceAPI
	TodoAPI
	NoteAPI
	SubscriptionAPI
	ComponentAPI
}
