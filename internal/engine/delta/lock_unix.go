//go:build unix

package delta

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked indicates another process holds the file lock.
var ErrLocked = errors.New("file is locked by another process")

func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLocked
	}
	return err
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
