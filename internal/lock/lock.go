// Package lock provides named advisory file locks under the repository's
// .jj/jjq-locks directory. The held/free state is the OS flock, never the
// lock file's existence, so a crashed holder can never leave a stale lock.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Names of the locks jjq uses.
const (
	ID     = "id"     // serializes sequence-ID allocation
	Run    = "run"    // at most one run pipeline at a time
	Config = "config" // serializes configuration writes
)

// State is the result of probing a lock.
type State int

const (
	Free State = iota
	Held
)

func (s State) String() string {
	if s == Held {
		return "held"
	}
	return "free"
}

// Manager hands out non-blocking advisory locks over files in a directory.
type Manager struct {
	dir string
}

// NewManager creates a Manager over the given lock directory. The directory
// is created lazily on first acquire or probe.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the lock directory.
func (m *Manager) Dir() string { return m.dir }

// Guard represents a held lock. Release it when done; the OS releases it
// unconditionally when the process exits.
type Guard struct {
	fl *flock.Flock
}

// Release drops the lock and closes the underlying file handle.
func (g *Guard) Release() error {
	return g.fl.Unlock()
}

// Acquire attempts an exclusive non-blocking lock on <dir>/<name>.lock,
// creating the file and directory as needed. It returns (nil, nil) when the
// lock is held by someone else.
func (m *Manager) Acquire(name string) (*Guard, error) {
	fl, locked, err := m.tryLock(name)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return &Guard{fl: fl}, nil
}

// Probe reports whether the named lock is currently held, without
// retaining it.
func (m *Manager) Probe(name string) (State, error) {
	fl, locked, err := m.tryLock(name)
	if err != nil {
		return Free, err
	}
	if !locked {
		return Held, nil
	}
	if err := fl.Unlock(); err != nil {
		return Free, err
	}
	return Free, nil
}

func (m *Manager) tryLock(name string) (*flock.Flock, bool, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(filepath.Join(m.dir, name+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("locking %s: %w", name, err)
	}
	return fl, locked, nil
}
