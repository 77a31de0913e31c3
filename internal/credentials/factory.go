package credentials

import (
	"fmt"

	"garage-go/internal/config"
	"garage-go/internal/garage"
)

// NewTokenStoreFromConfig creates a TokenStore based on the credentials config type.
func NewTokenStoreFromConfig(cfg config.CredentialsConfig) (garage.TokenStore, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.TokenPath == "" || cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age credentials require token_path and identity_path")
		}
		return NewAgeStore(cfg.TokenPath, cfg.IdentityPath), nil
	case "file":
		if cfg.TokenPath == "" {
			return nil, fmt.Errorf("file credentials require token_path")
		}
		return NewFileStore(cfg.TokenPath), nil
	case "memory":
		return NewMemoryStore(""), nil
	default:
		return nil, fmt.Errorf("unknown credentials type: %q", cfg.Type)
	}
}
