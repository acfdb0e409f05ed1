package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration directory.
const AppName = "quest-dashboard"

// DefaultConfigDir returns the OS-appropriate directory for the global
// config file.
//
//   - macOS:   ~/Library/Application Support/quest-dashboard
//   - Linux:   $XDG_CONFIG_HOME/quest-dashboard (fallback ~/.config/quest-dashboard)
//   - Windows: %APPDATA%\quest-dashboard (fallback %LOCALAPPDATA%\quest-dashboard)
func DefaultConfigDir() string {
	return defaultConfigDirForOS(runtime.GOOS)
}

func defaultConfigDirForOS(goos string) string {
	home, _ := os.UserHomeDir()

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, AppName)
		}
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, AppName)
		}
		return filepath.Join(home, AppName)
	default: // linux, freebsd, etc.
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			return filepath.Join(dir, AppName)
		}
		return filepath.Join(home, ".config", AppName)
	}
}
