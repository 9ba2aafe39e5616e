package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/spf13/afero"
)

// MemTree creates an in-memory filesystem. Keys ending in "/" are
// directories, everything else is a file of the given size.
func MemTree(t *testing.T, entries map[string]int) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for p, size := range entries {
		if strings.HasSuffix(p, "/") {
			if err := fs.MkdirAll(filepath.Clean(p), 0755); err != nil {
				t.Fatalf("mkdir %s: %v", p, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := afero.WriteFile(fs, p, make([]byte, size), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return fs
}

// MemExists reports whether path exists in fs
func MemExists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// FaultyFs wraps an afero.Fs and fails selected operations. It also enforces
// that directories are empty before removal, which afero's MemMapFs does not.
type FaultyFs struct {
	afero.Fs

	mu         sync.Mutex
	openErr    map[string]error
	removeErr  map[string]error
	removeHook func(path string)
}

// NewFaultyFs wraps base
func NewFaultyFs(base afero.Fs) *FaultyFs {
	return &FaultyFs{
		Fs:        base,
		openErr:   make(map[string]error),
		removeErr: make(map[string]error),
	}
}

// FailOpen makes Open(path) return err
func (f *FaultyFs) FailOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr[filepath.Clean(path)] = err
}

// FailRemove makes Remove(path) return err
func (f *FaultyFs) FailRemove(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeErr[filepath.Clean(path)] = err
}

// OnRemove registers a hook called before every Remove
func (f *FaultyFs) OnRemove(hook func(path string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeHook = hook
}

func (f *FaultyFs) Open(name string) (afero.File, error) {
	f.mu.Lock()
	err := f.openErr[filepath.Clean(name)]
	f.mu.Unlock()
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.Open(name)
}

func (f *FaultyFs) Remove(name string) error {
	f.mu.Lock()
	err := f.removeErr[filepath.Clean(name)]
	hook := f.removeHook
	f.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	if err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: err}
	}

	info, statErr := f.Fs.Stat(name)
	if statErr == nil && info.IsDir() {
		names, err := afero.ReadDir(f.Fs, name)
		if err == nil && len(names) > 0 {
			return &os.PathError{Op: "remove", Path: name, Err: syscall.ENOTEMPTY}
		}
	}
	return f.Fs.Remove(name)
}

// LstatIfPossible passes through to the wrapped filesystem when it can lstat
func (f *FaultyFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if lst, ok := f.Fs.(afero.Lstater); ok {
		return lst.LstatIfPossible(name)
	}
	info, err := f.Fs.Stat(name)
	return info, false, err
}
