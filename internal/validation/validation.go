// Package validation provides input validation and sanitization functions
// to prevent path traversal and related filesystem abuse when handling
// archive entry names and user-supplied paths.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits applied to archive entry names and destination paths.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrPathTooLong     = errors.New("path too long")
	ErrFilenameTooLong = errors.New("filename too long")
	ErrEmptyPath       = errors.New("path cannot be empty")
)

// SanitizePath validates and sanitizes an untrusted relative path (such as
// an archive entry name) against a base directory. It ensures the path
// does not escape the base directory. Returns the cleaned path relative to
// the base directory, or an error if invalid.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	// Clean the path to remove redundant separators and resolve . and ..
	cleanPath := filepath.Clean(filepath.FromSlash(userPath))

	// Reject paths that try to escape the base directory
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	// Reject absolute paths (should be relative to baseDir)
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	// Build full path and verify it's within baseDir
	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks if a single path component is safe. It rejects
// names with path separators, control characters, null bytes, and the
// reserved "." / ".." names.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	return nil
}
