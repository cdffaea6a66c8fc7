package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/paulsmith/jjq/internal/jj"
	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

// fakeRunner is a stateful in-memory jj: bookmarks move, descriptions stick,
// and the metadata branch folds snapshotted workspace files back into its
// tree, which is enough to drive every pipeline end to end without a jj
// binary.
type fakeRunner struct {
	bookmarks  map[string]jj.Rev // bookmark name -> target
	revs       map[string]jj.Rev // other revsets (change IDs, ws@, commits)
	descs      map[string]string // revset -> description
	conflicts  map[string]bool
	files      map[string]string // metadata tree
	pending    map[string]string // snapshotted but not yet committed
	workspaces []jj.Workspace
	probeRev   jj.Rev // returned by New
	dupRev     jj.Rev // returned by Duplicate
	// resolveHook intercepts Resolve before any map lookup; return ok=false
	// to fall through.
	resolveHook func(revset string) (jj.Rev, bool)
	calls       []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		bookmarks: make(map[string]jj.Rev),
		revs:      make(map[string]jj.Rev),
		descs:     make(map[string]string),
		conflicts: make(map[string]bool),
		files:     make(map[string]string),
		probeRev:  jj.Rev{ChangeID: "probepro", CommitID: "probe123"},
	}
}

// initialized marks the repository as initialized with the given metadata
// files on top of last_id.
func (f *fakeRunner) initialized(files map[string]string) *fakeRunner {
	f.bookmarks[meta.Bookmark] = jj.Rev{ChangeID: "metameta", CommitID: "meta1"}
	f.files["last_id"] = "0"
	for k, v := range files {
		f.files[k] = v
	}
	return f
}

func (f *fakeRunner) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeRunner) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) Root() (string, error) { return "", nil }

func (f *fakeRunner) Resolve(revset string) (jj.Rev, error) {
	if f.resolveHook != nil {
		if rev, ok := f.resolveHook(revset); ok {
			return rev, nil
		}
	}
	if rev, ok := f.bookmarks[revset]; ok {
		return rev, nil
	}
	if rev, ok := f.revs[revset]; ok {
		return rev, nil
	}
	return jj.Rev{}, fmt.Errorf("revset %q: %w", revset, jj.ErrNotFound)
}

func (f *fakeRunner) Description(revset string) (string, error) {
	return f.descs[revset], nil
}

func (f *fakeRunner) HasConflicts(revset string) (bool, error) {
	return f.conflicts[revset], nil
}

func (f *fakeRunner) IsEmpty(string) (bool, error) { return false, nil }

func (f *fakeRunner) BookmarkList(glob string) ([]string, error) {
	prefix := strings.TrimSuffix(glob, "*")
	var names []string
	for name := range f.bookmarks {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRunner) BookmarkCreate(name, revset string) error {
	f.record("bookmark-create %s %s", name, revset)
	f.setBookmark(name, revset)
	return nil
}

func (f *fakeRunner) BookmarkDelete(name string) error {
	f.record("bookmark-delete %s", name)
	delete(f.bookmarks, name)
	return nil
}

func (f *fakeRunner) BookmarkMove(name, revset string) error {
	f.record("bookmark-move %s %s", name, revset)
	f.setBookmark(name, revset)
	return nil
}

func (f *fakeRunner) setBookmark(name, revset string) {
	if name == meta.Bookmark {
		// The metadata head advanced; fold the snapshotted workspace
		// files into the tree.
		for k, v := range f.pending {
			f.files[k] = v
		}
		f.pending = nil
		f.bookmarks[name] = jj.Rev{ChangeID: "metameta", CommitID: "meta1"}
		return
	}
	if rev, err := f.Resolve(revset); err == nil {
		f.bookmarks[name] = rev
	} else {
		f.bookmarks[name] = jj.Rev{ChangeID: revset, CommitID: revset}
	}
}

func (f *fakeRunner) New(message string, parents ...string) (jj.Rev, error) {
	f.record("new %s", strings.Join(parents, ","))
	return f.probeRev, nil
}

func (f *fakeRunner) Abandon(revset string) error {
	f.record("abandon %s", revset)
	return nil
}

func (f *fakeRunner) Describe(revset, message string) error {
	f.record("describe %s", revset)
	f.descs[revset] = message
	return nil
}

func (f *fakeRunner) Duplicate(src, dest string) (jj.Rev, error) {
	f.record("duplicate %s %s", src, dest)
	return f.dupRev, nil
}

func (f *fakeRunner) RebaseBranch(revset, dest string) error {
	f.record("rebase %s %s", revset, dest)
	return nil
}

func (f *fakeRunner) WorkspaceAdd(path, name string, revs ...string) error {
	f.record("workspace-add %s %s", name, strings.Join(revs, ","))
	f.workspaces = append(f.workspaces, jj.Workspace{Name: name, Path: path})
	return nil
}

func (f *fakeRunner) WorkspaceForget(name string) error {
	f.record("workspace-forget %s", name)
	for i, ws := range f.workspaces {
		if ws.Name == name {
			f.workspaces = append(f.workspaces[:i], f.workspaces[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRunner) WorkspaceList() ([]jj.Workspace, error) {
	return append([]jj.Workspace(nil), f.workspaces...), nil
}

func (f *fakeRunner) Edit(dir, revset string) error {
	f.record("edit %s", revset)
	return nil
}

func (f *fakeRunner) Snapshot(dir string) error {
	f.record("snapshot")
	f.pending = make(map[string]string)
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		f.pending[filepath.ToSlash(rel)] = string(data)
		return nil
	})
}

func (f *fakeRunner) FileShow(revset, path string) (string, error) {
	if v, ok := f.files[path]; ok {
		return v, nil
	}
	return "", jj.ErrNotFound
}

// newTestApp wires an app around the fake with real locks and a real run-log
// location under a temp directory.
func newTestApp(t *testing.T, f *fakeRunner) *app {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".jj"), 0o755); err != nil {
		t.Fatal(err)
	}
	locks := lock.NewManager(filepath.Join(root, ".jj", "jjq-locks"))
	store := meta.NewStore(f)
	return &app{
		runner: f,
		locks:  locks,
		store:  store,
		alloc:  &queue.Allocator{Locks: locks, Store: store},
		root:   root,
	}
}
