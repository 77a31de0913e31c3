package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.garage")
	original.API.BaseURL = "https://garage.example.com"
	original.Archive = ArchiveConfig{
		Type:     "s3",
		Name:     "offsite",
		S3Bucket: "garage-exports",
		S3Prefix: "components",
		S3Region: "us-west-2",
	}
	original.Uploads.Ignore = []string{"*.tmp", ".git"}

	m := &Manager{}
	var buf bytes.Buffer
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.API.BaseURL != "https://garage.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", got.API.BaseURL, "https://garage.example.com")
	}
	if got.Credentials.Type != "age" {
		t.Errorf("Credentials.Type = %q, want %q", got.Credentials.Type, "age")
	}
	if got.Archive.Type != "s3" || got.Archive.S3Bucket != "garage-exports" {
		t.Errorf("Archive = %+v", got.Archive)
	}
	if got.Archive.FSRoot != "" {
		t.Errorf("Archive.FSRoot = %q, want empty for s3", got.Archive.FSRoot)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if len(got.Uploads.Ignore) != 2 {
		t.Fatalf("len(Uploads.Ignore) = %d, want 2", len(got.Uploads.Ignore))
	}
}

func TestManager_Read_invalid(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("base_dir = [unterminated")); err == nil {
		t.Fatal("Read() expected error for malformed TOML")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/garage")

	if cfg.BaseDir != "/data/garage" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/garage")
	}
	if cfg.LogDir != "/data/garage/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/garage/log")
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.Credentials.TokenPath != "/data/garage/credentials/token.age" {
		t.Errorf("Credentials.TokenPath = %q", cfg.Credentials.TokenPath)
	}
	if cfg.Credentials.IdentityPath != "/data/garage/credentials/identity.key" {
		t.Errorf("Credentials.IdentityPath = %q", cfg.Credentials.IdentityPath)
	}
	if cfg.Database.DataDir != "/data/garage/db" {
		t.Errorf("Database.DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.Archive.FSRoot != "/data/garage/exports" {
		t.Errorf("Archive.FSRoot = %q", cfg.Archive.FSRoot)
	}
}

func TestAPIConfig_RequestTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{name: "unset", timeout: "", want: DefaultTimeout},
		{name: "seconds", timeout: "5s", want: 5 * time.Second},
		{name: "minutes", timeout: "2m", want: 2 * time.Minute},
		{name: "garbage", timeout: "soon", wantErr: true},
		{name: "zero", timeout: "0s", wantErr: true},
		{name: "negative", timeout: "-1s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := APIConfig{Timeout: tt.timeout}.RequestTimeout()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("RequestTimeout() = %v, expected error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("RequestTimeout() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RequestTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "garage.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config perm = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "garage.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "garage.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}
		cfg.API.UserAgent = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.API.UserAgent != "read-test" {
			t.Errorf("API.UserAgent = %q, want %q", got.API.UserAgent, "read-test")
		}
		if got.Database.Type != "memory" || got.Database.DataDir != "" {
			t.Errorf("Database = %+v, want memory with no data dir", got.Database)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/garage.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
