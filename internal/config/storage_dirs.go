package config

import (
	"os"
	"path/filepath"
)

const (
	appDirName = "plant-watering-system"
	dbName     = "plant_data.db"
)

// DataDir follows XDG_DATA_HOME, then ~/.local/share if it exists, then
// ~/.plant-watering-system. Without a home directory it is ".".
func DataDir() string {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, appDirName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	localSharePath := filepath.Join(homeDir, ".local", "share")
	if _, err := os.Stat(localSharePath); err == nil {
		return filepath.Join(localSharePath, appDirName)
	}
	return filepath.Join(homeDir, "."+appDirName)
}

func DBPath() string {
	return filepath.Join(DataDir(), dbName)
}
