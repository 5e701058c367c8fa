package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// ErrLocked reports that another process holds the run lock.
var ErrLocked = errors.New("another grading run holds the lock")

// RunLock guards an output file against concurrent runs writing it.
type RunLock struct {
	path string
	lock *flock.Flock
}

// LockOutput takes a non-blocking lock on "<output>.lock".
func LockOutput(outputPath string) (*RunLock, error) {
	lockPath := outputPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	l := &RunLock{path: lockPath, lock: flock.New(lockPath)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, domain.WrapError(domain.ErrConfig, "lock output", fmt.Errorf("%w: %s", ErrLocked, lockPath))
	}
	return l, nil
}

func (l *RunLock) Path() string {
	return l.path
}

func (l *RunLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}
