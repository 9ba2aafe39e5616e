// Package testutil provides test helpers and fixtures for rm-rfp tests.
// OS fixtures live under t.TempDir(); in-memory trees use afero.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// TestFixture holds the root of an on-disk test tree
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)
}

// NewFixture creates an empty fixture rooted in a fresh temp directory
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()
	return &TestFixture{T: t, RootDir: t.TempDir()}
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileOfSize creates a zero-filled file of size bytes
func (f *TestFixture) CreateFileOfSize(relPath string, size int) string {
	f.T.Helper()
	return f.CreateFile(relPath, make([]byte, size))
}

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSymlink creates a symbolic link
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLinkPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullLinkPath, err)
	}

	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateReadOnlyDir creates a directory holding one file that cannot be
// removed because the directory is not writable
func (f *TestFixture) CreateReadOnlyDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "trapped.txt"), []byte("trapped"))
	if err := os.Chmod(dirPath, 0555); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	// Restore permissions so TempDir cleanup works
	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// MakeTree builds a chain of nested directories a/b/c/... count deep under
// relPath, each level holding count files named aa, bb, cc, ... whose content
// is their own relative path. It returns the path of the top directory.
func (f *TestFixture) MakeTree(relPath string, count int) string {
	f.T.Helper()

	dir := relPath
	for _, d := range letters[:count] {
		dir = filepath.Join(dir, string(d))
		for _, c := range letters[:count] {
			name := filepath.Join(dir, strings.Repeat(string(c), 2))
			f.CreateFile(name, []byte(name))
		}
	}
	return f.Path(filepath.Join(relPath, "a"))
}

// =============================================================================
// Path Helpers
// =============================================================================

// Path returns the full path for a relative path within the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// Find lists every entry under path relative to path, in lexical walk order,
// including path itself as ".". A missing path yields nothing.
func (f *TestFixture) Find(path string) []string {
	f.T.Helper()

	var out []string
	err := filepath.Walk(path, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(path, p)
		out = append(out, rel)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		f.T.Fatalf("walk %s: %v", path, err)
	}
	return out
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists checks if a path exists without following symlinks
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// =============================================================================
// Utility Functions
// =============================================================================

// CountEntries returns the number of entries under path, path included
func CountEntries(path string) (int, error) {
	var count int
	err := filepath.Walk(path, func(_ string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// SortedCopy returns a sorted copy of s
func SortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// IsRoot returns true if running as root/admin
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SkipIfRoot skips the test if running as root
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("skipping test when running as root")
	}
}
