package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a regular file exists at path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// TempFile creates a uniquely named temporary file with a specific extension.
// An empty dir means os.TempDir().
func TempFile(dir, pattern, ext string) (*os.File, error) {
	if dir != "" {
		if err := EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	return os.CreateTemp(dir, pattern+"*"+SafeExtension(ext))
}

// CleanupFiles removes every path and reports the failures together.
// Paths that are already gone are not failures.
func CleanupFiles(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SafeExtension returns the extension of name when it is usable in a temp
// file pattern, otherwise "".
func SafeExtension(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	if len(ext) > 16 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
