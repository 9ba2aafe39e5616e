package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/rm-rfp/internal/platform"
)

// SafetyErrorKind categorizes why a root path was refused
type SafetyErrorKind int

const (
	RootDeleteDenied SafetyErrorKind = iota
	MountPointDeleteDenied
	ProtectedPathDenied
	DotPathDenied
	StatFailed
)

// String returns a human-readable kind
func (k SafetyErrorKind) String() string {
	switch k {
	case RootDeleteDenied:
		return "root delete denied"
	case MountPointDeleteDenied:
		return "mount point delete denied"
	case ProtectedPathDenied:
		return "protected path denied"
	case DotPathDenied:
		return "dot path denied"
	case StatFailed:
		return "stat failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is
var (
	ErrRootDeleteDenied       = errors.New("refusing to delete the filesystem root")
	ErrMountPointDeleteDenied = errors.New("refusing to delete a mount point")
	ErrProtectedPathDenied    = errors.New("refusing to delete a protected path")
	ErrDotPathDenied          = errors.New("refusing to delete \".\" or \"..\"")
)

// SafetyError is returned when a root path fails validation
type SafetyError struct {
	Path string
	Kind SafetyErrorKind
	Err  error
}

// Error implements the error interface
func (e *SafetyError) Error() string {
	const override = "You can override with `--no-preserve-root`"
	switch e.Kind {
	case RootDeleteDenied:
		if e.Path == "/" {
			return fmt.Sprintf("%q: Refusing to delete \"/\". %s", e.Path, override)
		}
		return fmt.Sprintf("%q: Refusing to delete (same as \"/\"). %s", e.Path, override)
	case MountPointDeleteDenied:
		return fmt.Sprintf("%q: Refusing to delete because it is the root of a mounted filesystem. %s", e.Path, override)
	case ProtectedPathDenied:
		return fmt.Sprintf("%q: Refusing to delete protected path. %s", e.Path, override)
	case DotPathDenied:
		return fmt.Sprintf("%q: Refusing to delete \".\" or \"..\" directory", e.Path)
	default:
		return fmt.Sprintf("%q: %v", e.Path, e.Err)
	}
}

// Unwrap returns the underlying stat error, if any
func (e *SafetyError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *SafetyError) Is(target error) bool {
	switch target {
	case ErrRootDeleteDenied:
		return e.Kind == RootDeleteDenied
	case ErrMountPointDeleteDenied:
		return e.Kind == MountPointDeleteDenied
	case ErrProtectedPathDenied:
		return e.Kind == ProtectedPathDenied
	case ErrDotPathDenied:
		return e.Kind == DotPathDenied
	}
	return false
}

// PathValidator checks root paths before any traversal starts
type PathValidator struct {
	preserveRoot   bool
	protectedPaths []string

	lstat        func(string) (os.FileInfo, error)
	isRoot       func(string) (bool, error)
	isMountPoint func(string) (bool, error)
}

// Option configures a PathValidator
type Option func(*PathValidator)

// WithProtectedPaths adds paths that are refused unless root protection is off
func WithProtectedPaths(paths ...string) Option {
	return func(pv *PathValidator) {
		for _, p := range paths {
			pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(p))
		}
	}
}

// WithMountCheck replaces the mount point predicate
func WithMountCheck(fn func(string) (bool, error)) Option {
	return func(pv *PathValidator) {
		pv.isMountPoint = fn
	}
}

// WithRootCheck replaces the filesystem root predicate
func WithRootCheck(fn func(string) (bool, error)) Option {
	return func(pv *PathValidator) {
		pv.isRoot = fn
	}
}

// NewPathValidator creates a validator. preserveRoot mirrors GNU rm's
// --preserve-root=all: every argument is checked for being "/" or a mount point.
func NewPathValidator(preserveRoot bool, opts ...Option) *PathValidator {
	pv := &PathValidator{
		preserveRoot: preserveRoot,
		lstat:        os.Lstat,
		isRoot:       platform.IsRoot,
		isMountPoint: platform.IsMountPoint,
	}
	for _, opt := range opts {
		opt(pv)
	}
	return pv
}

// Validate checks every path and returns all failures joined, so the operator
// sees every problem before anything is deleted
func (pv *PathValidator) Validate(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := pv.ValidatePath(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidatePath checks a single root path
func (pv *PathValidator) ValidatePath(path string) error {
	if _, err := pv.lstat(path); err != nil {
		return &SafetyError{Path: path, Kind: StatFailed, Err: err}
	}

	if pv.preserveRoot {
		if err := pv.checkRoot(path); err != nil {
			return err
		}
		if err := pv.checkProtectedPaths(path); err != nil {
			return err
		}
		if err := pv.checkMountPoint(path); err != nil {
			return err
		}
	}

	if endsWithDot(path) {
		return &SafetyError{Path: path, Kind: DotPathDenied}
	}

	return nil
}

func (pv *PathValidator) checkRoot(path string) error {
	if abs, err := filepath.Abs(path); err == nil && abs == string(filepath.Separator) {
		return &SafetyError{Path: path, Kind: RootDeleteDenied}
	}

	root, err := pv.isRoot(path)
	if err != nil && !errors.Is(err, platform.ErrUnsupportedPlatform) {
		return &SafetyError{Path: path, Kind: StatFailed, Err: err}
	}
	if root {
		return &SafetyError{Path: path, Kind: RootDeleteDenied}
	}
	return nil
}

// checkProtectedPaths refuses exact matches only; children of a protected
// path may still be deleted
func (pv *PathValidator) checkProtectedPaths(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	for _, protected := range pv.protectedPaths {
		if abs == protected {
			return &SafetyError{Path: path, Kind: ProtectedPathDenied}
		}
	}
	return nil
}

func (pv *PathValidator) checkMountPoint(path string) error {
	mount, err := pv.isMountPoint(path)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupportedPlatform) {
			return nil
		}
		return &SafetyError{Path: path, Kind: StatFailed, Err: err}
	}
	if mount {
		return &SafetyError{Path: path, Kind: MountPointDeleteDenied}
	}
	return nil
}

// endsWithDot reports whether the last real component of path is "." or "..".
// filepath.Clean would hide a trailing "." so the raw string is inspected.
func endsWithDot(path string) bool {
	trimmed := strings.TrimRight(path, string(filepath.Separator))
	if trimmed == "" {
		return false
	}
	if i := strings.LastIndexByte(trimmed, filepath.Separator); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed == "." || trimmed == ".."
}
