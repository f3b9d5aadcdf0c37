package utils

import (
	"os"
	"path/filepath"
)

const (
	AppDirName        = ".spellbee"
	DefaultDBFilename = "spellbee.db"
)

// GetDefaultDataDir returns the per-user data directory, creating it if needed.
func GetDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't find a home directory, fall back to local directory
		return AppDirName
	}
	dir := filepath.Join(home, AppDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return AppDirName
	}
	return dir
}

func GetDefaultDatabasePath() string {
	return filepath.Join(GetDefaultDataDir(), DefaultDBFilename)
}
