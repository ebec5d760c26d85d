package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/sd
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// NormalizeDir expands '~' and returns the cleaned absolute form of path.
func NormalizeDir(path string) (string, error) {
	p, err := ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ListFiles returns the regular files directly inside dir, sorted by name.
// When ext is non-empty only files with that extension (case-insensitive) are returned.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// follow symlinks; skip sockets, devices and dangling links
		if !IsFile(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListDirs returns the directories directly inside dir, sorted by name.
func ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() || (e.Type()&os.ModeSymlink != 0 && IsDir(p)) {
			out = append(out, p)
		}
	}
	return out, nil
}

// TrimExt returns name without its final extension.
func TrimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
