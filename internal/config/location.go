package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "VLIST_CONFIG"

// ErrExists is returned by WriteDefault when the file is already present.
var ErrExists = errors.New("config file already exists")

// GetConfigPath returns $VLIST_CONFIG, or ~/.vlist/config when unset.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".vlist", "config"), nil
}

// WriteDefault writes DefaultSchema().DefaultFile() to path, refusing to
// replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Lstat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return atomicWriteFile(path, []byte(DefaultSchema().DefaultFile()), 0o644)
}
