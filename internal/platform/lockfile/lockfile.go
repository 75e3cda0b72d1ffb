// Package lockfile provides per-directory mutual exclusion backed by an
// on-disk flock. All listing and sequencing state is derived from directory
// scans, so scans and writes to the same folder must never interleave; the
// lock covers both in-process goroutines and other processes sharing the
// media tree.
package lockfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the name of the lock file created inside a guarded folder.
// It does not match any supported media extension, so scans ignore it.
const LockFileName = ".lock"

const retryDelay = 25 * time.Millisecond

// Acquire takes an exclusive lock on dir's lock file, blocking until the lock
// is held or ctx is done. The returned release function must be called on
// every exit path.
func Acquire(ctx context.Context, dir string) (release func(), err error) {
	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", dir)
	}
	return func() { _ = fl.Unlock() }, nil
}
