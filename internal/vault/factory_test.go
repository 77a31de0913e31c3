package vault

import (
	"context"
	"path/filepath"
	"testing"

	"garage-go/internal/config"
)

func TestNewArchiveFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ArchiveConfig
		wantErr bool
	}{
		{
			name: "memory archive",
			cfg:  config.ArchiveConfig{Type: "memory", Name: "test-memory"},
		},
		{
			name: "filesystem archive",
			cfg:  config.ArchiveConfig{Type: "filesystem", Name: "test-fs", FSRoot: filepath.Join(t.TempDir(), "exports")},
		},
		{
			name:    "filesystem archive without root",
			cfg:     config.ArchiveConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 archive without bucket",
			cfg:     config.ArchiveConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown archive type",
			cfg:     config.ArchiveConfig{Type: "ftp", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewArchiveFromConfig(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewArchiveFromConfig() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewArchiveFromConfig() error = %v", err)
			}
			if got == nil {
				t.Fatal("NewArchiveFromConfig() returned nil archive")
			}
		})
	}
}

func TestNewArchiveFromConfig_s3(t *testing.T) {
	cfg := config.ArchiveConfig{
		Type:              "s3",
		Name:              "offsite",
		S3Bucket:          "garage",
		S3Prefix:          "exports",
		S3Region:          "us-east-1",
		S3Endpoint:        "http://127.0.0.1:9000",
		S3AccessKeyID:     "AKIDEXAMPLE",
		S3SecretAccessKey: "secret",
	}
	got, err := NewArchiveFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewArchiveFromConfig() error = %v", err)
	}
	a, ok := got.(*S3Archive)
	if !ok {
		t.Fatalf("NewArchiveFromConfig() = %T, want *S3Archive", got)
	}
	if a.Name() != "offsite" || a.objectKey("frame/a-1.json") != "exports/frame/a-1.json" {
		t.Errorf("archive = %+v", a)
	}
}
