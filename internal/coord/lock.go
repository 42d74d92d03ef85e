package coord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within its
// timeout. Callers treat it as a transient coordination failure: back off
// and retry, never fatal.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Lock names used by the coordination protocol.
const (
	LockAssign = "assign" // serializes task selection across workers
	LockMerge  = "merge"  // serializes result merges into the content area
)

// Lock is a named advisory lock backed by directory creation, which is
// atomic (create-if-absent) on every filesystem we care about. The lock is
// visible to other processes sharing the state directory.
type Lock struct {
	dir  string
	held bool
}

// NewLock returns a lock named name under stateDir/locks.
func NewLock(stateDir, name string) *Lock {
	return &Lock{dir: filepath.Join(stateDir, "locks", name+".lock")}
}

// TryAcquire attempts a single non-blocking acquisition.
func (l *Lock) TryAcquire() (bool, error) {
	if l.held {
		return false, fmt.Errorf("lock %s already held by this handle", l.dir)
	}
	if err := os.MkdirAll(filepath.Dir(l.dir), 0o755); err != nil {
		return false, fmt.Errorf("creating lock parent: %w", err)
	}
	if err := os.Mkdir(l.dir, 0o755); err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("acquiring lock %s: %w", l.dir, err)
	}
	// Owner file is informational only, for operators inspecting stuck locks.
	owner := fmt.Sprintf("pid=%d acquired=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_ = os.WriteFile(filepath.Join(l.dir, "owner"), []byte(owner), 0o644)
	l.held = true
	return true, nil
}

// Acquire polls until the lock is obtained, the timeout elapses
// (ErrLockTimeout), or ctx is cancelled.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.TryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lock %s: %w", filepath.Base(l.dir), ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.RemoveAll(l.dir); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.dir, err)
	}
	return nil
}

// Held reports whether this handle currently holds the lock.
func (l *Lock) Held() bool { return l.held }
