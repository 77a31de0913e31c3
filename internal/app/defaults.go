package app

import (
	"fmt"
	"os"
	"path/filepath"

	"garage-go/internal/config"
)

// Defaults are the locations garage uses when the config names nothing else.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string

	// APIURL overrides api.base_url when set.
	APIURL string
}

// GetDefaults resolves the default locations. Lookup order, first match wins:
//   - config file: $GARAGE_CONFIG_PATH, $XDG_CONFIG_HOME/garage.toml, ~/.config/garage.toml
//   - data dir:    $GARAGE_HOME, $XDG_DATA_HOME/garage, ~/.local/share/garage
//
// $GARAGE_API_URL points an existing config at another backend.
func GetDefaults() (Defaults, error) {
	configPath, err := firstPath("GARAGE_CONFIG_PATH", "XDG_CONFIG_HOME", "garage.toml", ".config")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := firstPath("GARAGE_HOME", "XDG_DATA_HOME", "garage", ".local/share")
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		APIURL:     os.Getenv("GARAGE_API_URL"),
	}, nil
}

// firstPath returns $explicit, else $xdg/name, else ~/homeRel/name.
func firstPath(explicit, xdg, name, homeRel string) (string, error) {
	if p := os.Getenv(explicit); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdg); dir != "" {
		return filepath.Join(dir, name), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, filepath.FromSlash(homeRel), name), nil
}

// LoadConfig reads the config file at d.ConfigPath and applies the
// environment overrides.
func LoadConfig(d Defaults) (*config.Config, error) {
	cfg, err := config.ReadFromFile(d.ConfigPath)
	if err != nil {
		return nil, err
	}
	if d.APIURL != "" {
		cfg.API.BaseURL = d.APIURL
	}
	return cfg, nil
}
