//go:build unix

package platform

import (
	"golang.org/x/sys/unix"
)

// Identify returns the device and inode of path without following a final
// symlink
func Identify(path string) (FileID, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return FileID{}, err
	}
	return FileID{Device: uint64(st.Dev), Inode: uint64(st.Ino)}, nil
}
