//go:build unix

package store

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kvisser/tempo/internal/core/model"
)

const lockRetryInterval = 50 * time.Millisecond

// acquireLock takes an exclusive advisory flock on the lock file, retrying
// until the bounded wait elapses. The returned function releases the lock and
// closes the file.
func acquireLock(path string, wait time.Duration) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			file.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			file.Close()
			return nil, fmt.Errorf("%w: %s held by another process", model.ErrStoreLocked, path)
		}
		time.Sleep(lockRetryInterval)
	}

	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}
