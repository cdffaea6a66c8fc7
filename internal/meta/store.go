// Package meta implements the metadata store: a jj branch parented at root()
// whose head is the bookmark jjq/_/_. Its working tree is a flat file layout
// holding the sequence counter, explicitly set configuration keys, and hint
// markers. Reads go straight to the head; writes go through a throwaway
// workspace that is forgotten again on every path.
package meta

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulsmith/jjq/internal/jj"
)

// Bookmark is the metadata head. Three slash-separated components, like every
// jjq bookmark, so the git export treats the namespace uniformly.
const Bookmark = "jjq/_/_"

// File names inside the metadata tree.
const (
	lastIDFile  = "last_id"
	logHintFile = "log_hint_shown"
)

// MaxID is the largest sequence ID; the counter never exceeds it.
const MaxID = 999999

// ErrExhausted is returned when the sequence-ID space is used up.
var ErrExhausted = errors.New("sequence IDs exhausted")

// Store reads and writes the metadata branch of one repository.
type Store struct {
	r jj.Runner
}

// NewStore creates a Store over the given repository.
func NewStore(r jj.Runner) *Store {
	return &Store{r: r}
}

// IsInitialized reports whether the metadata head exists.
func (s *Store) IsInitialized() (bool, error) {
	_, err := s.r.Resolve(Bookmark)
	if err != nil {
		if errors.Is(err, jj.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Initialize creates the metadata branch with last_id = 0 plus the given
// configuration values, and publishes the head bookmark. It fails if the
// repository is already initialized.
func (s *Store) Initialize(config map[string]string) error {
	ok, err := s.IsInitialized()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("already initialized")
	}
	files := map[string]string{lastIDFile: "0"}
	for key, value := range config {
		files[configPath(key)] = value
	}
	return s.mutate("root()", "jjq: initialize metadata", true, files)
}

// Read fetches a named file from the metadata head. The second return value
// is false when the key is not set.
func (s *Store) Read(key string) (string, bool, error) {
	out, err := s.r.FileShow(Bookmark, key)
	if err != nil {
		if errors.Is(err, jj.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return out, true, nil
}

// Write replaces a named file at the metadata head and advances it.
func (s *Store) Write(key, value string) error {
	return s.mutate(Bookmark, "jjq: set "+key, false, map[string]string{key: value})
}

// LastID returns the most recently allocated sequence ID.
func (s *Store) LastID() (int, error) {
	out, ok, err := s.Read(lastIDFile)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("metadata is missing %s", lastIDFile)
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("malformed %s: %w", lastIDFile, err)
	}
	return n, nil
}

// SetLastID records a newly allocated sequence ID. Callers hold the id lock.
func (s *Store) SetLastID(n int) error {
	return s.Write(lastIDFile, strconv.Itoa(n))
}

// LogHintShown reports whether the one-time run-log hint was already shown.
func (s *Store) LogHintShown() (bool, error) {
	_, ok, err := s.Read(logHintFile)
	return ok, err
}

// MarkLogHintShown sets the presence marker for the run-log hint.
func (s *Store) MarkLogHintShown() error {
	return s.Write(logHintFile, "")
}

// mutate opens a scoped throwaway workspace at base, writes the given files,
// describes the resulting commit, and points the head bookmark at it. A
// mutation that changes nothing is abandoned instead so the metadata branch
// never grows an empty commit.
func (s *Store) mutate(base, message string, create bool, files map[string]string) error {
	dir, err := os.MkdirTemp("", "jjq-meta-")
	if err != nil {
		return fmt.Errorf("creating metadata workspace directory: %w", err)
	}
	defer os.RemoveAll(dir)

	name := fmt.Sprintf("jjq-meta-%d", os.Getpid())
	if err := s.r.WorkspaceAdd(dir, name, base); err != nil {
		return err
	}
	defer s.r.WorkspaceForget(name)

	for key, value := range files {
		path := filepath.Join(dir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
			return err
		}
	}
	if err := s.r.Snapshot(dir); err != nil {
		return err
	}

	wc := name + "@"
	if err := s.r.Describe(wc, message); err != nil {
		return err
	}
	empty, err := s.r.IsEmpty(wc)
	if err != nil {
		return err
	}
	if empty && !create {
		// The write was a no-op; drop the commit instead of advancing.
		return s.r.Abandon(wc)
	}
	if create {
		return s.r.BookmarkCreate(Bookmark, wc)
	}
	return s.r.BookmarkMove(Bookmark, wc)
}
