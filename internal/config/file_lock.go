package config

import (
	"log/slog"

	"github.com/gofrs/flock"
)

// FileLockInterface defines the interface for file locking operations
type FileLockInterface interface {
	Lock() error
	TryLock() (bool, error)
	Unlock() error
}

// FileLock guards config writes with an advisory lock file
type FileLock struct {
	filePath string
	flock    *flock.Flock
}

// NewFileLock creates a new file lock for the specified path
func NewFileLock(filePath string) FileLockInterface {
	return &FileLock{
		filePath: filePath,
		flock:    flock.New(filePath),
	}
}

// Lock acquires an exclusive lock on the file (blocking)
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		slog.Error("failed to acquire file lock", "file_path", fl.filePath, "error", err)
		return err
	}
	slog.Debug("file lock acquired", "file_path", fl.filePath)
	return nil
}

// TryLock attempts to acquire an exclusive lock on the file (non-blocking)
// Returns true if lock was acquired, false if file is already locked
func (fl *FileLock) TryLock() (bool, error) {
	success, err := fl.flock.TryLock()
	if err != nil {
		slog.Error("error during try-lock attempt", "file_path", fl.filePath, "error", err)
		return false, err
	}
	if !success {
		slog.Debug("config file already locked", "file_path", fl.filePath)
	}
	return success, nil
}

// Unlock releases the file lock
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		slog.Error("failed to release file lock", "file_path", fl.filePath, "error", err)
		return err
	}
	return nil
}
