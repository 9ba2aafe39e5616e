package cleaner

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ErrorReason categorizes why a deletion failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorNotEmpty
	ErrorInvalidPath
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorNotEmpty:
		return "Directory not empty"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// Op is the filesystem operation that failed
type Op string

const (
	OpStat   Op = "stat"
	OpList   Op = "list"
	OpDelete Op = "delete"
)

// DeletionError represents a detailed deletion error
type DeletionError struct {
	Path      string
	Op        Op
	Reason    ErrorReason
	Original  error
	Retryable bool
}

// Error implements the error interface
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s %s: %s (%v)", e.Op, e.Path, e.Reason, e.Original)
}

// Unwrap returns the underlying filesystem error
func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		if e.Op == OpList {
			return fmt.Sprintf("⚠️  Permission denied reading directory: %s", e.Path)
		}
		return fmt.Sprintf("⚠️  Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("⚠️  File is being used: %s (close the application and try again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("ℹ️  Already deleted: %s", e.Path)
	case ErrorIsDirectory:
		return fmt.Sprintf("⚠️  Cannot delete directory: %s", e.Path)
	case ErrorNotEmpty:
		return fmt.Sprintf("⚠️  Directory not empty: %s (entries were added while deleting)", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("❌ Invalid path: %s", e.Path)
	default:
		return fmt.Sprintf("❌ Error deleting %s: %v", e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(op Op, path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{
		Path:     path,
		Op:       op,
		Original: err,
		Reason:   ErrorUnknown,
	}

	// Check if file not found
	if errors.Is(err, fs.ErrNotExist) {
		delErr.Reason = ErrorFileNotFound
		return delErr
	}

	// Check syscall errors
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM, syscall.EROFS:
			delErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.EISDIR:
			delErr.Reason = ErrorIsDirectory
		case syscall.ENOTEMPTY, syscall.EEXIST:
			delErr.Reason = ErrorNotEmpty
		case syscall.EINVAL, syscall.ENAMETOOLONG, syscall.ENOTDIR:
			delErr.Reason = ErrorInvalidPath
		}
		return delErr
	}

	// Check if permission error
	if errors.Is(err, fs.ErrPermission) {
		delErr.Reason = ErrorPermissionDenied
	}

	return delErr
}

// IsGone reports whether err means the entry no longer exists
func IsGone(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// GroupErrors groups deletion errors by reason
func GroupErrors(errors []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errors {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errors []*DeletionError) string {
	if len(errors) == 0 {
		return ""
	}

	grouped := GroupErrors(errors)
	var b strings.Builder
	b.WriteString("\n⚠️  Issues encountered:\n")

	// Permission denied
	if perms, ok := grouped[ErrorPermissionDenied]; ok {
		fmt.Fprintf(&b, "   ├─ Permission denied: %d entries\n", len(perms))
		b.WriteString("   │  └─ Tip: check ownership and write permission on the parent directory\n")
	}

	// File in use
	if busy, ok := grouped[ErrorFileInUse]; ok {
		fmt.Fprintf(&b, "   ├─ File in use: %d entries\n", len(busy))
		b.WriteString("   │  └─ Tip: Close applications and retry\n")
	}

	// File not found
	if notFound, ok := grouped[ErrorFileNotFound]; ok {
		fmt.Fprintf(&b, "   ├─ Already deleted: %d entries\n", len(notFound))
	}

	// Directories that gained entries
	if full, ok := grouped[ErrorNotEmpty]; ok {
		fmt.Fprintf(&b, "   ├─ Directories not empty: %d\n", len(full))
		b.WriteString("   │  └─ Tip: something wrote into the tree while it was being deleted\n")
	}

	// Invalid paths
	if invalid, ok := grouped[ErrorInvalidPath]; ok {
		fmt.Fprintf(&b, "   ├─ Invalid paths: %d\n", len(invalid))
	}

	// Unknown errors
	other := len(grouped[ErrorUnknown]) + len(grouped[ErrorIsDirectory])
	if other > 0 {
		fmt.Fprintf(&b, "   └─ Other errors: %d entries\n", other)
	}

	return b.String()
}
