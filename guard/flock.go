package guard

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFileMode lets every user open the shared lock file. flock(2) takes
// an exclusive lock on a read-only descriptor, so nobody needs write access.
const lockFileMode = 0644

// FileGuard holds an exclusive flock(2) on a lock file. The lock belongs
// to the open file description, which os.OpenFile marks close-on-exec,
// so the player never inherits it.
type FileGuard struct {
	path string
}

func NewFileGuard(path string) *FileGuard {
	return &FileGuard{path: path}
}

func (g *FileGuard) Acquire() (*Lock, error) {
	file, err := g.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", g.path, err)
	}

	fd := int(file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s is locked", ErrAlreadyRunning, g.path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", g.path, err)
	}

	return newLock(g.path, func() error {
		// the file is left in place: unlinking it would let a racing
		// process lock a fresh inode while another holds the old one
		if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
			file.Close()
			return fmt.Errorf("failed to unlock %s: %w", g.path, err)
		}
		return file.Close()
	}), nil
}

// open reuses an existing lock file read-only, whoever created it, and
// creates it world-readable only when it is missing.
func (g *FileGuard) open() (*os.File, error) {
	for {
		file, err := os.OpenFile(g.path, os.O_RDONLY, 0)
		if !errors.Is(err, os.ErrNotExist) {
			return file, err
		}
		file, err = os.OpenFile(g.path, os.O_RDONLY|os.O_CREATE|os.O_EXCL, lockFileMode)
		if errors.Is(err, os.ErrExist) {
			// another process created it first
			continue
		}
		if err == nil {
			// umask may have narrowed the mode
			if chmodErr := file.Chmod(lockFileMode); chmodErr != nil {
				file.Close()
				return nil, chmodErr
			}
		}
		return file, err
	}
}
