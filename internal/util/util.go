// Package util collects small filesystem-adjacent helpers shared across the
// sync engine's components.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// IsHostCaseInsensitiveFS reports whether the current OS's default
// filesystem is case-insensitive, judged from runtime.GOOS alone.
func IsHostCaseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// ExpandPath expands a tilde (~) prefix in a path to the user's home
// directory, so mapping roots in the config file can be written portably.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// InvertMap takes a map[K]V and returns a map[V]K. A generic helper for
// building reverse lookup maps for small enums (plog uses it for log level
// names).
func InvertMap[K comparable, V comparable](m map[K]V) map[V]K {
	inv := make(map[V]K, len(m))
	for k, v := range m {
		inv[v] = k
	}
	return inv
}
