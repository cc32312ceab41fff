package run

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"wbgrab/internal/logging"
	"wbgrab/internal/services"
)

// Lifecycle owns the working directory and intermediate artifacts of one
// download run. Every run gets a fresh directory under the workspace root;
// Cleanup removes everything the run registered, on success and failure
// alike. The final output file is never registered and so never removed.
type Lifecycle struct {
	id  string
	dir string

	mu        sync.Mutex
	artifacts []string
	lock      *flock.Flock
	done      bool
}

// New creates the run directory and returns its lifecycle handle.
func New(workspaceRoot string) (*Lifecycle, error) {
	id := uuid.NewString()
	dir := filepath.Join(workspaceRoot, "run-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Lifecycle{id: id, dir: dir}, nil
}

// ID returns the run identifier.
func (l *Lifecycle) ID() string { return l.id }

// Dir returns the run's working directory.
func (l *Lifecycle) Dir() string { return l.dir }

// Path joins name onto the run directory.
func (l *Lifecycle) Path(name string) string {
	return filepath.Join(l.dir, name)
}

// Register records an intermediate artifact for removal at cleanup. Safe for
// concurrent use.
func (l *Lifecycle) Register(path string) {
	if path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts = append(l.artifacts, path)
}

// LockOutput takes an advisory lock guarding the output path so two runs
// cannot write the same file. The lock is released by Cleanup.
func (l *Lifecycle) LockOutput(outputPath string) error {
	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output %s: %w", outputPath, err)
	}
	if !locked {
		return fmt.Errorf("output %s is locked by another run", outputPath)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lock = lock
	return nil
}

// Cleanup removes every registered artifact, the run directory, and the
// output lock. Failures are logged and reported but never escalate: cleanup
// problems must not mask the run's own outcome. Idempotent.
func (l *Lifecycle) Cleanup(logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return nil
	}
	l.done = true

	var firstErr error
	for _, artifact := range l.artifacts {
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove artifact",
				logging.String("path", artifact),
				logging.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	l.artifacts = nil

	if err := os.RemoveAll(l.dir); err != nil {
		logger.Warn("failed to remove run directory",
			logging.String("path", l.dir),
			logging.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if l.lock != nil {
		lockPath := l.lock.Path()
		if err := l.lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock",
				logging.String("path", lockPath),
				logging.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		} else {
			// Best effort: another process may already hold a fresh lock.
			_ = os.Remove(lockPath)
		}
		l.lock = nil
	}

	if firstErr != nil {
		return services.Wrap(services.ErrCleanup, "cleanup", "remove artifacts", l.id, firstErr)
	}
	return nil
}
