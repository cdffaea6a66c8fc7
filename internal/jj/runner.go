// Package jj wraps the jj CLI. Every operation spawns a single jj subprocess;
// read queries use explicit templates so the output is machine-parseable, and
// mutations are quiet on success and surface the captured stderr on failure.
package jj

import (
	"bytes"
	"os/exec"
	"strings"
)

// resolveTemplate outputs one "change_id commit_id" pair per revision.
const resolveTemplate = `change_id ++ " " ++ commit_id ++ "\n"`

// Rev identifies a single resolved revision.
type Rev struct {
	ChangeID string
	CommitID string
}

// Workspace is one entry from jj workspace list.
type Workspace struct {
	Name string
	Path string
}

// Runner executes jj commands against one repository.
type Runner interface {
	// Root returns the repository root directory.
	Root() (string, error)

	// Resolve resolves a revset to exactly one revision. It fails with
	// ErrNotFound if the revset is empty and ErrAmbiguous if it matches
	// more than one revision.
	Resolve(revset string) (Rev, error)

	// Description returns the full description of a revision.
	Description(revset string) (string, error)

	// HasConflicts reports whether the revision carries merge conflicts.
	HasConflicts(revset string) (bool, error)

	// IsEmpty reports whether the revision has no file changes.
	IsEmpty(revset string) (bool, error)

	// BookmarkList returns the names of local bookmarks matching the glob,
	// in jj's (lexicographic) order.
	BookmarkList(glob string) ([]string, error)

	// BookmarkCreate creates a new bookmark at the given revision.
	BookmarkCreate(name, revset string) error

	// BookmarkDelete deletes a local bookmark.
	BookmarkDelete(name string) error

	// BookmarkMove moves an existing bookmark to the given revision,
	// in any direction.
	BookmarkMove(name, revset string) error

	// New creates a commit with the given parents without touching any
	// working copy. The message must be unique in the repository; it is
	// how the new commit is located afterwards.
	New(message string, parents ...string) (Rev, error)

	// Abandon abandons the revisions in the revset.
	Abandon(revset string) error

	// Describe replaces the description of a revision.
	Describe(revset, message string) error

	// Duplicate copies src onto dest and returns the duplicate's identity.
	Duplicate(src, dest string) (Rev, error)

	// RebaseBranch rebases the branch containing the given revision onto
	// dest, preserving change IDs and moving descendants along.
	RebaseBranch(revset, dest string) error

	// WorkspaceAdd registers a workspace at path whose working-copy commit
	// is created on top of the given revisions (one parent per revision).
	WorkspaceAdd(path, name string, revs ...string) error

	// WorkspaceForget deregisters a workspace, leaving its directory alone.
	WorkspaceForget(name string) error

	// WorkspaceList returns all registered workspaces.
	WorkspaceList() ([]Workspace, error)

	// Edit makes the revision the working copy of the workspace at dir.
	Edit(dir, revset string) error

	// Snapshot records the current on-disk state of the workspace at dir
	// into its working-copy commit.
	Snapshot(dir string) error

	// FileShow returns the contents of a file at a revision. Missing paths
	// fail with ErrNotFound.
	FileShow(revset, path string) (string, error)
}

// NewRunner creates a Runner that executes jj against the repository
// containing dir.
func NewRunner(dir string) Runner {
	return &realRunner{repoDir: dir}
}

type realRunner struct {
	repoDir string
}

// run executes jj with -R pointing at dir, capturing stdout and stderr
// separately. Some jj commands report results on stderr (duplicate, new),
// so stderr is returned on success too.
func run(dir string, args ...string) (stdout, stderr string, err error) {
	full := append([]string{"-R", dir}, args...)
	cmd := exec.Command("jj", full...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return "", errb.String(), &ExecError{Args: args, Stderr: errb.String(), Err: err}
	}
	return out.String(), errb.String(), nil
}

func (r *realRunner) run(args ...string) (string, string, error) {
	return run(r.repoDir, args...)
}

func (r *realRunner) Root() (string, error) {
	out, _, err := r.run("root")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *realRunner) Resolve(revset string) (Rev, error) {
	out, _, err := r.run("log", "--no-graph", "-r", revset, "-T", resolveTemplate)
	if err != nil {
		return Rev{}, err
	}
	return parseResolveOutput(revset, out)
}

func (r *realRunner) Description(revset string) (string, error) {
	out, _, err := r.run("log", "--no-graph", "-r", revset, "-T", "description")
	if err != nil {
		return "", err
	}
	return out, nil
}

func (r *realRunner) HasConflicts(revset string) (bool, error) {
	return r.boolQuery(revset, `if(conflict, "yes")`)
}

func (r *realRunner) IsEmpty(revset string) (bool, error) {
	return r.boolQuery(revset, `if(empty, "yes")`)
}

func (r *realRunner) boolQuery(revset, template string) (bool, error) {
	out, _, err := r.run("log", "--no-graph", "-r", revset, "-T", template)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "yes", nil
}

func (r *realRunner) BookmarkList(glob string) ([]string, error) {
	out, _, err := r.run("bookmark", "list", "glob:"+glob, "-T", `name ++ "\n"`)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func (r *realRunner) BookmarkCreate(name, revset string) error {
	_, _, err := r.run("bookmark", "create", name, "-r", revset)
	return err
}

func (r *realRunner) BookmarkDelete(name string) error {
	_, _, err := r.run("bookmark", "delete", name)
	return err
}

func (r *realRunner) BookmarkMove(name, revset string) error {
	_, _, err := r.run("bookmark", "move", name, "--to", revset, "--allow-backwards")
	return err
}

func (r *realRunner) New(message string, parents ...string) (Rev, error) {
	args := append([]string{"new", "--no-edit", "-m", message}, parents...)
	if _, _, err := r.run(args...); err != nil {
		return Rev{}, err
	}
	// jj new reports the commit on stderr in a human format; locate it by
	// its unique description instead.
	return r.Resolve(`description(` + revsetString(message) + `)`)
}

func (r *realRunner) Abandon(revset string) error {
	_, _, err := r.run("abandon", revset)
	return err
}

func (r *realRunner) Describe(revset, message string) error {
	_, _, err := r.run("describe", revset, "-m", message)
	return err
}

func (r *realRunner) Duplicate(src, dest string) (Rev, error) {
	_, stderr, err := r.run("duplicate", src, "-d", dest)
	if err != nil {
		return Rev{}, err
	}
	return parseDuplicateOutput(stderr)
}

func (r *realRunner) RebaseBranch(revset, dest string) error {
	_, _, err := r.run("rebase", "-b", revset, "-d", dest)
	return err
}

func (r *realRunner) WorkspaceAdd(path, name string, revs ...string) error {
	args := []string{"workspace", "add", "--name", name}
	for _, rev := range revs {
		args = append(args, "-r", rev)
	}
	args = append(args, path)
	_, _, err := r.run(args...)
	return err
}

func (r *realRunner) WorkspaceForget(name string) error {
	_, _, err := r.run("workspace", "forget", name)
	return err
}

func (r *realRunner) WorkspaceList() ([]Workspace, error) {
	out, _, err := r.run("workspace", "list")
	if err != nil {
		return nil, err
	}
	return parseWorkspaceList(out), nil
}

func (r *realRunner) Edit(dir, revset string) error {
	_, _, err := run(dir, "edit", revset)
	return err
}

func (r *realRunner) Snapshot(dir string) error {
	// Any command run inside the workspace snapshots its working copy.
	_, _, err := run(dir, "log", "--no-graph", "-r", "@", "-T", "change_id")
	return err
}

func (r *realRunner) FileShow(revset, path string) (string, error) {
	out, stderr, err := r.run("file", "show", "-r", revset, path)
	if err != nil {
		if strings.Contains(stderr, "No such path") {
			return "", ErrNotFound
		}
		return "", err
	}
	return out, nil
}
