// Package paths finds where pantry keeps its configuration and its local
// document store.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDir is the directory name used under the platform base directories.
const appDir = "pantry"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variables that override the platform defaults.
const (
	EnvConfigDir = "PANTRY_CONFIG_DIR"
	EnvDataDir   = "PANTRY_DATA_DIR"
)

// platformDir can be replaced in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/pantry or ~/.config/pantry on Linux, and
// os.UserConfigDir()/pantry elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgOrUserConfig("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory:
// $XDG_DATA_HOME/pantry or ~/.local/share/pantry on Linux, and
// os.UserConfigDir()/pantry/data elsewhere.
func DefaultDataDir() (string, error) {
	dir, err := xdgOrUserConfig("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return "", err
	}
	if platformDir.goos != "linux" {
		dir = filepath.Join(dir, "data")
	}
	return dir, nil
}

func xdgOrUserConfig(xdgVar, homeRel string) (string, error) {
	if platformDir.goos != "linux" {
		base, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appDir), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appDir), nil
}

// ResolveConfigDir picks the config directory: flag, then PANTRY_CONFIG_DIR,
// then DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir picks the data directory: flag, then PANTRY_DATA_DIR, then
// the data_dir value from config.yaml, then DefaultDataDir.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDir, flag, os.Getenv(EnvDataDir), configValue)
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func resolve(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
