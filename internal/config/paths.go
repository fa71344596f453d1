package config

import (
	"os"
	"path/filepath"
)

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "ble-finder.db"
	}
	return filepath.Join(dir, "ble-finder", "history.db")
}

// The TUI owns the terminal, so logs go to a file.
func defaultLogPath() string {
	return filepath.Join(os.TempDir(), "ble-finder.log")
}
