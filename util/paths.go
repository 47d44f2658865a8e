package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppConfigDir holds config.yaml and the database when they are not in the
// working directory. It is relative to the user's home.
const AppConfigDir = ".config/" + Name

// GetConfigDir returns ~/.config/nn-instagram, creating it on first use.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no home directory for config: %w", err)
	}
	dir := filepath.Join(home, AppConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return dir, nil
}

// ResolveFilePath picks where a state file such as config.yaml or the sqlite
// database lives. A copy in the working directory wins, so a checkout can run
// with local state; otherwise the file belongs in the config directory, whether
// or not it exists yet.
func ResolveFilePath(filename string) string {
	if filepath.IsAbs(filename) || exists(filename) {
		return filename
	}
	dir, err := GetConfigDir()
	if err != nil {
		return filename
	}
	return filepath.Join(dir, filename)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
