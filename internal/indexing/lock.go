package indexing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oakridge-association/sitesearch/internal/log"
)

const (
	lockFileName  = ".build.lock"
	lockTimeout   = 5 * time.Second // Max time to wait for lock
	lockRetryWait = 500 * time.Millisecond
)

// isProcessRunning is implemented in platform-specific files:
// - lock_unix.go for Unix/Linux/macOS
// - lock_windows.go for Windows

// BuildLock is a PID file guarding an output directory against
// concurrent builds.
type BuildLock struct {
	path    string
	timeout time.Duration
	retry   time.Duration
	log     *log.Logger
}

// NewBuildLock returns the lock for dir. It is not acquired yet.
func NewBuildLock(dir string) *BuildLock {
	return &BuildLock{
		path:    filepath.Join(dir, lockFileName),
		timeout: lockTimeout,
		retry:   lockRetryWait,
		log:     log.ForService("lock"),
	}
}

// Path returns the lock file location.
func (l *BuildLock) Path() string {
	return l.path
}

// cleanStale removes the lock file if the owning process is dead
func (l *BuildLock) cleanStale() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No lock file, nothing to clean
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		l.log.Warnf("Corrupted lock file (invalid PID), removing...")
		return os.Remove(l.path)
	}

	if isProcessRunning(pid) {
		return fmt.Errorf("%w: lock held by running process %d", ErrBuildInProgress, pid)
	}

	l.log.Infof("Stale lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(l.path)
}

// Acquire takes the lock, waiting up to the lock timeout for a live
// holder to finish.
func (l *BuildLock) Acquire(ctx context.Context) error {
	ourPID := os.Getpid()

	if data, err := os.ReadFile(l.path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == ourPID {
			l.log.Debugf("Lock already held by this process (PID %d)", ourPID)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	start := time.Now()
	for {
		if err := l.cleanStale(); err != nil {
			elapsed := time.Since(start)
			if elapsed >= l.timeout {
				return fmt.Errorf("timeout waiting for build lock after %v: %w", elapsed.Round(time.Millisecond), err)
			}
			l.log.Infof("Output locked by another build, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.retry):
			}
			continue
		}

		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if os.IsExist(err) {
				// Lost the race to another process; go around again.
				continue
			}
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		_, werr := f.WriteString(strconv.Itoa(ourPID))
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(l.path)
			return fmt.Errorf("failed to write lock file: %v %v", werr, cerr)
		}

		l.log.Debugf("✓ Build lock acquired (PID %d)", ourPID)
		return nil
	}
}

// Release removes the lock if this process owns it.
func (l *BuildLock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Lock already removed
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() {
		l.log.Warnf("Lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.log.Debugf("✓ Build lock released")
	return nil
}
