package utils

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var badPathSegment = regexp.MustCompile(`^\.\.|/\.\.|\\\.\.`)

// ResolvePath expands ~ and returns a cleaned absolute path
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("failed to retrieve home directory")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// IsValidVaultPath reports whether a client-supplied relative path is safe to
// use as a storage key. Rejects empty, absolute and traversal-carrying paths.
func IsValidVaultPath(path string) bool {
	if path == "" {
		return false
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return false
	}
	if strings.Contains(path, "..") || strings.ContainsRune(path, '\x00') {
		return false
	}
	return !badPathSegment.MatchString(path)
}

// NormalizeDocID turns a vault-relative file path into a document id:
// separators become "/", a trailing ".md" is stripped.
func NormalizeDocID(path string) string {
	id := strings.ReplaceAll(path, "\\", "/")
	return strings.TrimSuffix(id, ".md")
}

// DocIDToPath is the inverse of NormalizeDocID for markdown documents.
func DocIDToPath(id string) string {
	return id + ".md"
}

func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	return EnsureDir(dir)
}

func EnsureDir(path string) error {
	// already exists
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.MkdirAll(path, 0o755)
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
