package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// staleLockThreshold is the maximum age of an install lock before it is
	// considered abandoned and taken over.
	staleLockThreshold = 10 * time.Minute

	installLockName = "install.lock"
)

// ErrInstallLocked is returned when another process holds the install lock.
var ErrInstallLocked = errors.New("install lock exists: another installation may be in progress")

// installLock guards the install directory against concurrent installers.
type installLock struct {
	path string
	file *os.File
}

// acquireInstallLock takes an exclusive lock inside the install directory.
// Uses O_CREATE|O_EXCL for atomic creation; a stale lock (older than the
// threshold) is removed and retried once.
func acquireInstallLock(installDir string) (*installLock, error) {
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return nil, fmt.Errorf("create install dir: %w", err)
	}

	lockPath := filepath.Join(installDir, installLockName)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isLockStale(lockPath); !stale {
			return nil, ErrInstallLocked
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrInstallLocked
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	return &installLock{path: lockPath, file: file}, nil
}

// release removes the lock.
func (l *installLock) release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

// isLockStale checks if a lock file is older than the stale threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > staleLockThreshold, nil
}
