package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the configuration search paths for the
// current operating system. If a flashnotify.yaml is found in any of them,
// only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "flashnotify"),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", "flashnotify"),
			"/etc/flashnotify",
		}
	}

	for _, path := range configPaths {
		configFile := filepath.Join(path, "flashnotify.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the active configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "flashnotify.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryNotFound).
		Context("operation", "find-config-file").
		Build()
}

// GetBasePath expands environment variables in the given path and ensures
// the resulting directory exists.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			return basePath
		}
	}

	return basePath
}
