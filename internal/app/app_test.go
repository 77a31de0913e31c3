package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"garage-go/internal/config"
	"garage-go/internal/model"
	"garage-go/internal/testutil"
)

type appEnv struct {
	cfg     *config.Config
	backend *testutil.FakeBackend
	user    *model.User
}

func newAppEnv(t *testing.T) *appEnv {
	t.Helper()
	backend := testutil.NewFakeBackend(testutil.FixedClock())
	user := backend.AddUser("dana@example.com", "hunter22", "Dana", "Reyes")
	srv := testutil.NewServer(t, backend)

	cfg := config.NewConfig(t.TempDir())
	cfg.API.BaseURL = srv.URL
	return &appEnv{cfg: cfg, backend: backend, user: user}
}

func (e *appEnv) open(t *testing.T, operation string) *GarageApp {
	t.Helper()
	a, err := NewGarageApp(context.Background(), e.cfg, operation)
	if err != nil {
		t.Fatalf("NewGarageApp() error = %v", err)
	}
	return a
}

func TestGarageApp_sessionSurvivesRestart(t *testing.T) {
	e := newAppEnv(t)
	ctx := context.Background()

	a := e.open(t, "Login")
	if err := a.Track("dana@example.com"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	_, err := a.Service().Login(ctx, "dana@example.com", "hunter22")
	if err := a.Finish(err); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(e.cfg.Credentials.TokenPath); err != nil {
		t.Fatalf("token file missing: %v", err)
	}

	b := e.open(t, "WhoAmI")
	defer b.Close()
	u, err := b.Service().WhoAmI(ctx)
	if err != nil {
		t.Fatalf("WhoAmI() error = %v", err)
	}
	if u.Email != "dana@example.com" {
		t.Errorf("WhoAmI() = %+v", u)
	}

	ops, err := b.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("History() = %d ops, want 1 (reads are not tracked)", len(ops))
	}
	if ops[0].Operation != "Login" || ops[0].Parameters != "dana@example.com" || ops[0].Status != "success" || ops[0].FinishedAt == nil {
		t.Errorf("operation = %+v", ops[0])
	}
}

func TestGarageApp_failedOperation(t *testing.T) {
	e := newAppEnv(t)

	a := e.open(t, "CreateBuild")
	if err := a.Track("Truck"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	_, err := a.Service().CreateBuild(context.Background(), "Truck", nil)
	if err := a.Finish(err); err == nil {
		t.Fatal("CreateBuild() expected error without a session")
	}
	if a.Operation().Status != "error" {
		t.Errorf("Status = %q, want error", a.Operation().Status)
	}
	a.Close()

	b := e.open(t, "History")
	defer b.Close()
	ops, _ := b.History(0)
	if len(ops) != 1 || ops[0].Status != "error" {
		t.Errorf("History() = %+v", ops)
	}
}

func TestGarageApp_uploads(t *testing.T) {
	e := newAppEnv(t)
	ctx := context.Background()
	build := e.backend.AddBuild(e.user.ID, "Truck", nil, nil)

	dir := t.TempDir()
	photo := filepath.Join(dir, "coilover.jpg")
	if err := os.WriteFile(photo, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	a := e.open(t, "UploadPhoto")
	defer a.Close()
	if _, err := a.Service().Login(ctx, "dana@example.com", "hunter22"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	up, err := a.UploadPhoto(ctx, build.ID, model.ComponentSuspension, photo)
	if err != nil {
		t.Fatalf("UploadPhoto() error = %v", err)
	}
	if up.FileSize != 4 || filepath.Base(up.FilePath) != "coilover.jpg" {
		t.Errorf("UploadPhoto() = %+v", up)
	}

	if _, err := a.UploadPhoto(ctx, build.ID, model.ComponentSuspension, filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("UploadPhoto(missing) expected error")
	}
	if _, err := a.ResolvePaths([]string{photo, filepath.Join(dir, "missing.jpg")}); err == nil {
		t.Error("ResolvePaths() expected error for a missing path")
	}
}

func TestGarageApp_localStores(t *testing.T) {
	e := newAppEnv(t)
	a := e.open(t, "DBBackup")
	defer a.Close()

	if got, want := a.DatabasePath(), filepath.Join(e.cfg.Database.DataDir, "garage.db"); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
	if err := a.CheckArchive(context.Background()); err != nil {
		t.Errorf("CheckArchive() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "copy.db")
	if err := a.BackupDatabase(dest); err != nil {
		t.Fatalf("BackupDatabase() error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("backup missing: %v", err)
	}
}

func TestNewGarageApp_invalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "base url", mutate: func(c *config.Config) { c.API.BaseURL = "ftp://example.com" }},
		{name: "timeout", mutate: func(c *config.Config) { c.API.Timeout = "soon" }},
		{name: "credentials", mutate: func(c *config.Config) { c.Credentials.Type = "keychain" }},
		{name: "database", mutate: func(c *config.Config) { c.Database.Type = "postgres" }},
		{name: "archive", mutate: func(c *config.Config) { c.Archive.Type = "tape" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig(t.TempDir())
			tt.mutate(cfg)
			a, err := NewGarageApp(context.Background(), cfg, "Test")
			if err == nil {
				a.Close()
				t.Fatal("NewGarageApp() expected error")
			}
		})
	}
}

func TestGarageApp_Finish(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Database.Type = "memory"
	a, err := NewGarageApp(context.Background(), cfg, "Noop")
	if err != nil {
		t.Fatalf("NewGarageApp() error = %v", err)
	}
	defer a.Close()

	boom := errors.New("boom")
	if err := a.Finish(boom); !errors.Is(err, boom) {
		t.Errorf("Finish() = %v, want the error unchanged", err)
	}
	if a.Operation().Persisted() {
		t.Error("untracked operation was persisted")
	}
}
