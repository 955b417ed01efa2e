// Package errors provides standardized error types and helpers for the snarf codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNetwork indicates a request failed or returned a non-success status
	ErrNetwork = errors.New("network error")
	// ErrFormat indicates a manifest body doesn't match any known shape or is missing required fields
	ErrFormat = errors.New("format error")
	// ErrConflictAborted indicates the user declined an overwrite (a normal early exit, not a failure)
	ErrConflictAborted = errors.New("conflict aborted")
	// ErrExtraction indicates an archive is corrupt or extraction I/O failed
	ErrExtraction = errors.New("extraction error")
	// ErrFilesystem indicates a directory create/move/delete failed
	ErrFilesystem = errors.New("filesystem error")
	// ErrUserCancelled indicates explicit cancellation of a long-running step
	ErrUserCancelled = errors.New("cancelled")
	// ErrPackaging indicates archive construction failed
	ErrPackaging = errors.New("packaging error")
	// ErrBusy indicates another operation is already in flight for the same path
	ErrBusy = errors.New("operation already in progress")
)

// NetworkError represents a failed HTTP request with context
type NetworkError struct {
	URL    string // URL that was requested
	Status int    // HTTP status code, 0 if the transport failed
	Err    error  // Underlying error, if any
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNetwork
}

// Is reports sentinel identity so errors.Is(err, ErrNetwork) works even
// when a transport error is wrapped.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// FormatError represents a manifest parsing failure with context
type FormatError struct {
	Format  string // Format handler name (e.g., "flatjson"), empty if no handler matched
	Field   string // Field or element that was missing/malformed
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	switch {
	case e.Format != "" && e.Field != "":
		return fmt.Sprintf("manifest %s: missing or malformed %s: %s", e.Format, e.Field, e.Message)
	case e.Format != "":
		return fmt.Sprintf("manifest %s: %s", e.Format, e.Message)
	default:
		return fmt.Sprintf("manifest: %s", e.Message)
	}
}

func (e *FormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrFormat
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ConflictAbortedError records the destination the user declined to overwrite
type ConflictAbortedError struct {
	Path string
}

func (e *ConflictAbortedError) Error() string {
	return fmt.Sprintf("destination %s exists, overwrite declined", e.Path)
}

func (e *ConflictAbortedError) Unwrap() error {
	return ErrConflictAborted
}

// ExtractionError represents a failed archive extraction with context
type ExtractionError struct {
	Archive string // Archive path or URL
	Entry   string // Entry within the archive, if the failure was entry-specific
	Err     error  // Underlying error
}

func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("failed to extract %s from %s: %v", e.Entry, e.Archive, e.Err)
	}
	return fmt.Sprintf("failed to extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrExtraction
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// FilesystemError represents a failed filesystem operation with context
type FilesystemError struct {
	Op   string // Operation being performed (e.g., "create", "rename", "remove")
	Path string // Path involved
	Err  error  // Underlying error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrFilesystem
}

func (e *FilesystemError) Is(target error) bool {
	return target == ErrFilesystem
}

// UserCancelledError records which step the user cancelled
type UserCancelledError struct {
	Step string
}

func (e *UserCancelledError) Error() string {
	return fmt.Sprintf("%s cancelled", e.Step)
}

func (e *UserCancelledError) Unwrap() error {
	return ErrUserCancelled
}

// PackagingError represents a failed submission-archive build with context
type PackagingError struct {
	Path string // Project or file path involved
	Err  error  // Underlying error
}

func (e *PackagingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to package %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("packaging failed: %v", e.Err)
}

func (e *PackagingError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrPackaging
}

func (e *PackagingError) Is(target error) bool {
	return target == ErrPackaging
}

// Convenience wrappers around the standard errors package so callers
// don't need to import both.

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
