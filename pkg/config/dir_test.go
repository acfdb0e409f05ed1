package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigDirMacOS(t *testing.T) {
	home, _ := os.UserHomeDir()
	dir := defaultConfigDirForOS("darwin")
	assert.Equal(t, filepath.Join(home, "Library", "Application Support", "quest-dashboard"), dir)
}

func TestDefaultConfigDirLinux(t *testing.T) {
	home, _ := os.UserHomeDir()

	// Without XDG_CONFIG_HOME
	t.Setenv("XDG_CONFIG_HOME", "")
	dir := defaultConfigDirForOS("linux")
	assert.Equal(t, filepath.Join(home, ".config", "quest-dashboard"), dir)

	// With XDG_CONFIG_HOME
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	dir = defaultConfigDirForOS("linux")
	assert.Equal(t, filepath.Join("/custom/config", "quest-dashboard"), dir)
}

func TestDefaultConfigDirWindows(t *testing.T) {
	// With APPDATA
	t.Setenv("APPDATA", `C:\Users\test\AppData\Roaming`)
	dir := defaultConfigDirForOS("windows")
	assert.Equal(t, filepath.Join(`C:\Users\test\AppData\Roaming`, "quest-dashboard"), dir)

	// Without APPDATA, with LOCALAPPDATA
	t.Setenv("APPDATA", "")
	t.Setenv("LOCALAPPDATA", `C:\Users\test\AppData\Local`)
	dir = defaultConfigDirForOS("windows")
	assert.Equal(t, filepath.Join(`C:\Users\test\AppData\Local`, "quest-dashboard"), dir)
}
