//go:build windows

package store

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"

	"github.com/kvisser/tempo/internal/core/model"
)

const lockRetryInterval = 50 * time.Millisecond

// acquireLock takes an exclusive lock on the lock file via LockFileEx,
// retrying until the bounded wait elapses.
func acquireLock(path string, wait time.Duration) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	handle := windows.Handle(file.Fd())
	overlapped := new(windows.Overlapped)
	deadline := time.Now().Add(wait)
	for {
		err = windows.LockFileEx(handle,
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
			0, 1, 0, overlapped)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			file.Close()
			return nil, fmt.Errorf("%w: %s held by another process", model.ErrStoreLocked, path)
		}
		time.Sleep(lockRetryInterval)
	}

	return func() {
		windows.UnlockFileEx(handle, 0, 1, 0, overlapped)
		file.Close()
	}, nil
}
