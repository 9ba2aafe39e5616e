package fsops

import (
	"errors"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

const (
	// DefaultSortThreshold is the largest directory yielded in name order
	DefaultSortThreshold = 5000
	// DefaultBatchSize is how many entries are read from a directory per call
	DefaultBatchSize = 256
)

// Lister produces the children of a directory lazily
type Lister struct {
	fs            afero.Fs
	sortThreshold int
	batchSize     int
}

// ListerOption configures a Lister
type ListerOption func(*Lister)

// WithSortThreshold sets the largest directory that is yielded sorted by name.
// Zero disables sorting.
func WithSortThreshold(n int) ListerOption {
	return func(l *Lister) {
		if n >= 0 {
			l.sortThreshold = n
		}
	}
}

// WithBatchSize sets how many entries are read per directory read
func WithBatchSize(n int) ListerOption {
	return func(l *Lister) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// NewLister creates a Lister over fsys
func NewLister(fsys afero.Fs, opts ...ListerOption) *Lister {
	l := &Lister{
		fs:            fsys,
		sortThreshold: DefaultSortThreshold,
		batchSize:     DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fs returns the underlying filesystem
func (l *Lister) Fs() afero.Fs {
	return l.fs
}

// Lstat describes path without following a final symlink, when the
// filesystem supports it
func (l *Lister) Lstat(path string) (Entry, error) {
	var (
		info fs.FileInfo
		err  error
	)
	if lst, ok := l.fs.(afero.Lstater); ok {
		info, _, err = lst.LstatIfPossible(path)
	} else {
		info, err = l.fs.Stat(path)
	}
	if err != nil {
		return Entry{}, err
	}
	e := entryFromInfo(path, info)
	e.Name = filepath.Base(path)
	return e, nil
}

// List yields the children of dir. The sequence is finite and not
// restartable. An I/O error is yielded once, after which the sequence ends;
// entries yielded before it remain valid.
//
// Directories with at most the sort threshold entries are yielded in name
// order. Larger ones are streamed in directory order without buffering the
// remainder.
func (l *Lister) List(dir string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := l.fs.Open(dir)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer f.Close()

		var buffered []fs.FileInfo
		streaming := l.sortThreshold == 0

		for {
			infos, err := f.Readdir(l.batchSize)

			if !streaming {
				buffered = append(buffered, infos...)
				if len(buffered) > l.sortThreshold {
					streaming = true
					infos, buffered = buffered, nil
				}
			}

			if streaming {
				for _, info := range infos {
					if !yield(entryFromInfo(filepath.Join(dir, info.Name()), info), nil) {
						return
					}
				}
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				// Flush what was read so far before surfacing the error
				if !l.flush(dir, buffered, yield) {
					return
				}
				yield(Entry{}, err)
				return
			}
			if len(infos) == 0 {
				break
			}
		}

		l.flush(dir, buffered, yield)
	}
}

func (l *Lister) flush(dir string, infos []fs.FileInfo, yield func(Entry, error) bool) bool {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})
	for _, info := range infos {
		if !yield(entryFromInfo(filepath.Join(dir, info.Name()), info), nil) {
			return false
		}
	}
	return true
}
