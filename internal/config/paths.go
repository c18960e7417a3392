// Package config provides configuration management for the appendix client.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "appendix-client"

// ConfigDirectory returns the directory holding config.ini and prefs.ini.
//
// Locations:
//   - Windows: %USERPROFILE%\.config\appendix-client
//   - Unix: ~/.config/appendix-client
func ConfigDirectory() string {
	if runtime.GOOS == "windows" {
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, ".config", appDirName)
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(homeDir, ".config", appDirName)
}

// DefaultConfigPath returns the path of the main configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), "config.ini")
}

// DefaultPreferencesPath returns the path of the UI preference store.
func DefaultPreferencesPath() string {
	return filepath.Join(ConfigDirectory(), "prefs.ini")
}

// LogDirectory returns where the GUI writes its log file.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\AppendixClient\logs
//   - Unix: ~/.config/appendix-client/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "appendix-client-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "AppendixClient", "logs")
	}
	return filepath.Join(ConfigDirectory(), "logs")
}

// EnsureLogDirectory creates the log directory with owner-only permissions.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}
