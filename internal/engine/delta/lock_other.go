//go:build !unix

package delta

import (
	"errors"
	"os"
)

// ErrLocked indicates another process holds the file lock.
var ErrLocked = errors.New("file is locked by another process")

// Advisory locking is only provided on unix builds.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
