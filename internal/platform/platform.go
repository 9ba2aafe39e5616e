package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// FileID identifies a filesystem object independently of the path used to
// reach it
type FileID struct {
	Device uint64
	Inode  uint64
}

// RootID returns the identity of the filesystem root "/"
func RootID() (FileID, error) {
	return Identify(string(filepath.Separator))
}

// IsRoot reports whether path refers to the filesystem root, whatever
// spelling was used to reach it
func IsRoot(path string) (bool, error) {
	root, err := RootID()
	if err != nil {
		return false, err
	}
	id, err := Identify(path)
	if err != nil {
		return false, err
	}
	return id == root, nil
}

// IsMountPoint reports whether path is the root of a mounted filesystem other
// than the one holding its parent. The filesystem root itself is not reported.
func IsMountPoint(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}

	parent := filepath.Dir(filepath.Clean(path))
	if info.IsDir() {
		parent = filepath.Join(path, "..")
	}

	self, err := Identify(path)
	if err != nil {
		return false, err
	}
	up, err := Identify(parent)
	if err != nil {
		return false, &PlatformError{Message: "couldn't stat parent " + parent + ": " + err.Error()}
	}
	return self.Device != up.Device, nil
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}
