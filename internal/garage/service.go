package garage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"garage-go/internal/model"
)

// Service is the client-side application layer. It owns no UI state; the view
// models it hands out (HistoryView, TodoBoard, NoteBoard) hold what is on
// display.
type Service struct {
	backend  Backend
	tokens   TokenStore
	database Database
	archive  Archive
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
}

// NewService creates a Service. database, archive and fsmgr may be nil for
// callers that only talk to the backend; the operations needing them return
// an error.
func NewService(backend Backend, tokens TokenStore, database Database, archive Archive, fsmgr FilesystemManager, logger Logger, clock Clock) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Service{
		backend:  backend,
		tokens:   tokens,
		database: database,
		archive:  archive,
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
	}
}

// Builds lists the current user's builds.
func (s *Service) Builds(ctx context.Context) ([]model.Build, error) {
	builds, err := s.backend.ListBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	return builds, nil
}

// Build fetches a build by numeric id or share slug.
func (s *Service) Build(ctx context.Context, ref string) (*model.BuildDetail, error) {
	b, err := s.backend.GetBuild(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading build %s: %w", ref, err)
	}
	return b, nil
}

// CreateBuild creates a build. name is required; fields holds any further
// scalar fields to set.
func (s *Service) CreateBuild(ctx context.Context, name string, fields map[string]any) (*model.Build, error) {
	if name == "" {
		return nil, validationError("build name is required")
	}
	body := map[string]any{"name": name}
	for k, v := range fields {
		if !model.IsBuildField(k) {
			return nil, validationError("unknown build field %q", k)
		}
		body[k] = v
	}
	b, err := s.backend.CreateBuild(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("creating build: %w", err)
	}
	s.logger.Info("build created", "id", b.ID, "name", b.Name)
	return b, nil
}

// RestoreSnapshot replaces the build's state with a snapshot after the user
// confirms. On success the build is re-fetched from the server and returned;
// nothing is reconstructed from the snapshot locally. history, when non-nil,
// is reloaded as the backend records new snapshots around a restore.
func (s *Service) RestoreSnapshot(ctx context.Context, buildID, snapshotID int64, c Confirmer, history *HistoryView) (*model.BuildDetail, error) {
	prompt := fmt.Sprintf("Restore build %d to snapshot %d? The current state will be replaced.", buildID, snapshotID)
	if err := confirm(c, prompt); err != nil {
		return nil, err
	}

	res, err := s.backend.RestoreSnapshot(ctx, buildID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("restoring snapshot %d: %w", snapshotID, err)
	}
	s.logger.Info("snapshot restored", "build", buildID, "snapshot", snapshotID, "message", res.Message)

	detail, err := s.Build(ctx, strconv.FormatInt(buildID, 10))
	if err != nil {
		return nil, err
	}
	if history != nil {
		if err := history.Load(ctx); err != nil {
			return detail, err
		}
	}
	return detail, nil
}

// UploadComponentPhoto uploads a local image for one component of a build.
func (s *Service) UploadComponentPhoto(ctx context.Context, buildID int64, componentType model.ComponentType, p *Path) (*model.Upload, error) {
	if p.IsDir() {
		return nil, validationError("%s is a directory", p.String())
	}
	var up *model.Upload
	err := s.withFile(p, func(name string, r io.Reader) error {
		var err error
		up, err = s.backend.UploadComponentPhoto(ctx, buildID, string(componentType), name, r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	s.logger.Info("component photo uploaded", "build", buildID, "component", componentType, "path", up.FilePath)
	return up, nil
}

// History creates the version-history view of a build. Call Load on it.
func (s *Service) History(buildID int64) *HistoryView {
	return NewHistoryView(s.backend, buildID, s.logger)
}

// TodoBoard creates the todo board of a build. Call Load on it.
func (s *Service) TodoBoard(buildID int64) *TodoBoard {
	return NewTodoBoard(s.backend, buildID, s.logger)
}

// NoteBoard loads the notes of one component of a build as seen by the
// current user. Without a session the viewer is anonymous and read-only.
func (s *Service) NoteBoard(ctx context.Context, buildRef string, component model.ComponentType) (*NoteBoard, error) {
	if _, err := model.ParseComponentType(string(component)); err != nil {
		return nil, validationError("%v", err)
	}
	build, err := s.Build(ctx, buildRef)
	if err != nil {
		return nil, err
	}
	user, err := s.WhoAmI(ctx)
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		return nil, err
	}
	board := NewNoteBoard(s.backend, &build.Build, component, user, s.logger)
	if err := board.Load(ctx); err != nil {
		return nil, err
	}
	return board, nil
}
