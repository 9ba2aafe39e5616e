package fsops

import (
	"sync"

	"github.com/spf13/afero"
)

// Deleter removes a single filesystem entry. Directories are only ever passed
// once they are empty.
type Deleter interface {
	Remove(path string) error
}

// FsDeleter implements Deleter on an afero filesystem
type FsDeleter struct {
	Fs afero.Fs
}

// NewOSDeleter returns a Deleter backed by the real filesystem
func NewOSDeleter() FsDeleter {
	return FsDeleter{Fs: afero.NewOsFs()}
}

func (d FsDeleter) Remove(path string) error {
	return d.Fs.Remove(path)
}

// DryRunDeleter pretends every delete succeeded
type DryRunDeleter struct{}

func (DryRunDeleter) Remove(string) error {
	return nil
}

// RecordingDeleter wraps a Deleter and records every call in order
type RecordingDeleter struct {
	Next Deleter

	mu    sync.Mutex
	calls []string
}

func (r *RecordingDeleter) Remove(path string) error {
	r.mu.Lock()
	r.calls = append(r.calls, path)
	r.mu.Unlock()
	if r.Next == nil {
		return nil
	}
	return r.Next.Remove(path)
}

// Calls returns a copy of the recorded paths
func (r *RecordingDeleter) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
