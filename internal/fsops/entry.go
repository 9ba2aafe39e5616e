package fsops

import (
	"io/fs"
)

// EntryKind is the type of a filesystem entry as seen without following links
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
	KindSymlink
	KindFifo
	KindSocket
	KindCharDevice
	KindBlockDevice
	KindOther
)

// String returns a human-readable kind
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symbolic link"
	case KindFifo:
		return "fifo"
	case KindSocket:
		return "socket"
	case KindCharDevice:
		return "character device"
	case KindBlockDevice:
		return "block device"
	default:
		return "other"
	}
}

// KindOf maps a file mode to an EntryKind
func KindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode&fs.ModeNamedPipe != 0:
		return KindFifo
	case mode&fs.ModeSocket != 0:
		return KindSocket
	case mode&fs.ModeCharDevice != 0:
		return KindCharDevice
	case mode&fs.ModeDevice != 0:
		return KindBlockDevice
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// Entry is a single filesystem object named within a parent directory
type Entry struct {
	Path string
	Name string
	Kind EntryKind
	Mode fs.FileMode
	Size int64
}

// IsDir reports whether the entry is a real directory (not a link to one)
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// SizeHint is the number of bytes freed by deleting the entry. Directories
// contribute nothing.
func (e Entry) SizeHint() int64 {
	if e.Kind == KindDir || e.Size < 0 {
		return 0
	}
	return e.Size
}

func entryFromInfo(path string, info fs.FileInfo) Entry {
	return Entry{
		Path: path,
		Name: info.Name(),
		Kind: KindOf(info.Mode()),
		Mode: info.Mode(),
		Size: info.Size(),
	}
}
