// Package secrets resolves credentials from files, environment variables,
// or literal config values without ever logging the secret itself.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxSecretFileSize bounds secret file reads; tokens and passwords are
// small, anything larger is a misconfiguration.
const maxSecretFileSize = 64 * 1024

// ExpandString resolves ${VAR} and ${VAR:-default} references in a config
// value. Returns an error naming the missing variables when a reference has
// no value and no fallback.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missingVars []string

	expanded := os.Expand(s, func(key string) string {
		varName := key
		defaultValue := ""
		fallbackProvided := false

		if idx := strings.Index(key, ":-"); idx != -1 {
			varName = key[:idx]
			defaultValue = key[idx+2:]
			fallbackProvided = true
		}

		value := os.Getenv(varName)
		if value == "" {
			if fallbackProvided {
				return defaultValue
			}
			missingVars = append(missingVars, varName)
			return ""
		}
		return value
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missingVars, ", "))
	}

	return expanded, nil
}

// ReadFile reads a secret from a file, the way Docker and Kubernetes mount
// them. Trailing newlines are stripped; group/other-readable files produce
// a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret file not found: %s", cleanPath)
		}
		return "", fmt.Errorf("failed to stat secret file %s: %w", cleanPath, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, cleanPath)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		slog.Warn("secret file has group/other permissions",
			"path", cleanPath,
			"perms", fmt.Sprintf("%04o", perm))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", cleanPath, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", cleanPath)
	}

	return secret, nil
}

// Resolve returns the secret from the first available source: filePath if
// set, otherwise value with environment expansion. An empty result without
// an error means no source was configured.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		secret, err := ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file: %w", err)
		}
		return secret, nil
	}

	if value != "" {
		return ExpandString(value)
	}

	return "", nil
}

// MustResolve is like Resolve but errors when the secret is required and
// no source produced a value.
func MustResolve(fieldName, filePath, value string) (string, error) {
	secret, err := Resolve(filePath, value)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%s is required but not provided", fieldName)
	}
	return secret, nil
}
