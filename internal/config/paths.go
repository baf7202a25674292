package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigDir is the standard configuration directory name
const ConfigDir = "agol-shelf"

// getConfigDir returns the platform-appropriate config directory.
//   - Windows: %APPDATA%\AGRC\agol-shelf (publishing runs on the desktop-GIS box)
//   - Unix: ~/.config/agol-shelf (XDG standard)
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "AGRC", ConfigDir)
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, "AppData", "Roaming", "AGRC", ConfigDir)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return "config.csv"
	}
	return filepath.Join(configDir, "config.csv")
}

// GetDefaultTokenPath returns the default token file path. This is where
// 'config init' saves a generated portal token.
func GetDefaultTokenPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "token")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	configDir := getConfigDir()
	if configDir == "" {
		return fmt.Errorf("could not determine config directory")
	}
	return os.MkdirAll(configDir, 0700)
}

// ReadTokenFile reads a portal token from a file.
// The file should contain only the token (whitespace is trimmed).
// Warns if file permissions are too open (not 0600 on Unix systems).
func ReadTokenFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}

	// Token files should be readable only by owner (0600 or stricter)
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		fmt.Fprintf(os.Stderr, "Warning: Token file %s has insecure permissions %04o. Consider using 'chmod 600 %s'\n", path, mode, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}

// WriteTokenFile writes a portal token to a file with secure permissions (0600).
func WriteTokenFile(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("cannot write empty token")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}
