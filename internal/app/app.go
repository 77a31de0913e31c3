package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"garage-go/internal/api"
	"garage-go/internal/config"
	"garage-go/internal/credentials"
	"garage-go/internal/database"
	"garage-go/internal/fs"
	"garage-go/internal/garage"
	"garage-go/internal/model"
	"garage-go/internal/vault"
)

// GarageApp is the application layer between the CLI and garage.Service.
// It constructs all dependencies from config, exposes the operations that
// take raw string paths, and manages the DB lifecycle on Close.
type GarageApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	tokens  garage.TokenStore
	client  *api.Client
	archive garage.Archive
	fsmgr   garage.FilesystemManager
	service *garage.Service
	logger  garage.Logger
	op      *Operation
	logFile *os.File
}

// NewGarageApp creates a fully wired GarageApp from the given config.
// operation identifies the CLI command being run (e.g. "SaveDraft", "Login").
// The caller must call Close when done.
func NewGarageApp(ctx context.Context, cfg *config.Config, operation string) (*GarageApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &GarageApp{cfg: cfg, logger: logger, logFile: logFile, op: NewOperation(operation, "")}
	if err := a.wire(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *GarageApp) wire(ctx context.Context) error {
	tokens, err := credentials.NewTokenStoreFromConfig(a.cfg.Credentials)
	if err != nil {
		return fmt.Errorf("creating token store: %w", err)
	}
	a.tokens = tokens

	timeout, err := a.cfg.API.RequestTimeout()
	if err != nil {
		return err
	}
	client, err := api.New(a.cfg.API.BaseURL, tokens,
		api.WithTimeout(timeout),
		api.WithUserAgent(a.cfg.API.UserAgent),
		api.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}
	a.client = client

	db, err := database.NewDatabaseFromConfig(a.cfg.Database, garage.RealClock{})
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	archive, err := vault.NewArchiveFromConfig(ctx, a.cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	a.archive = archive

	a.fsmgr = fs.NewOSFilesystemManager(a.cfg.Uploads.Ignore)
	a.service = garage.NewService(client, tokens, db, archive, a.fsmgr, a.logger, garage.RealClock{})
	return nil
}

// Service returns the wired service.
func (a *GarageApp) Service() *garage.Service { return a.service }

// Config returns the config the app was built from.
func (a *GarageApp) Config() *config.Config { return a.cfg }

// BaseURL returns the backend the API client talks to.
func (a *GarageApp) BaseURL() string { return a.client.BaseURL() }

// Logger returns the app's logger.
func (a *GarageApp) Logger() garage.Logger { return a.logger }

// Operation returns the operation being run.
func (a *GarageApp) Operation() *Operation { return a.op }

// Track persists the operation to the log with the given parameters, giving
// it an auto-increment ID. Only commands that change state call it.
func (a *GarageApp) Track(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Finish records the command's outcome and returns err unchanged.
func (a *GarageApp) Finish(err error) error {
	a.op.Finish(err)
	if err != nil {
		a.logger.Info("operation failed", "operation", a.op.Name, "error", err)
	}
	return err
}

// History returns the most recent operations from the log.
func (a *GarageApp) History(limit int) ([]*garage.Operation, error) {
	return a.db.ListOperations(limit)
}

// DatabasePath returns the local database location.
func (a *GarageApp) DatabasePath() string { return a.db.Path() }

// BackupDatabase writes a copy of the local database to destPath.
func (a *GarageApp) BackupDatabase(destPath string) error {
	return a.db.BackupTo(destPath)
}

// CheckArchive verifies the export archive is reachable and writable.
func (a *GarageApp) CheckArchive(ctx context.Context) error {
	if err := a.archive.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("archive %s: %w", a.cfg.Archive.Type, err)
	}
	return nil
}

// ResolvePaths resolves raw command-line paths.
func (a *GarageApp) ResolvePaths(raw []string) ([]*garage.Path, error) {
	out := make([]*garage.Path, 0, len(raw))
	for _, r := range raw {
		p, err := a.fsmgr.Resolve(r)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", r, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// UploadPhoto resolves rawPath and uploads it as a component photo.
func (a *GarageApp) UploadPhoto(ctx context.Context, buildID int64, componentType model.ComponentType, rawPath string) (*model.Upload, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.UploadComponentPhoto(ctx, buildID, componentType, p)
}

// RecordMaintenance resolves the attachment paths and records the form.
func (a *GarageApp) RecordMaintenance(ctx context.Context, buildID int64, form *garage.MaintenanceForm, rawPaths []string, recursive bool) (*garage.MaintenanceResult, error) {
	paths, err := a.ResolvePaths(rawPaths)
	if err != nil {
		return nil, err
	}
	return a.service.RecordMaintenance(ctx, buildID, form, paths, recursive)
}

// AttachFiles resolves rawPaths and uploads them to a maintenance record.
func (a *GarageApp) AttachFiles(ctx context.Context, maintenanceID int64, rawPaths []string, recursive bool, description string) ([]*model.Attachment, error) {
	paths, err := a.ResolvePaths(rawPaths)
	if err != nil {
		return nil, err
	}
	return a.service.AttachFiles(ctx, maintenanceID, paths, recursive, description)
}

// Close finalizes the operation and closes all resources.
func (a *GarageApp) Close() error {
	var firstErr error
	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *GarageApp) closeResources() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
