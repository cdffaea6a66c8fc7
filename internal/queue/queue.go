// Package queue is the read-only view over the jjq bookmark namespace plus
// the sequence allocator and the failed-item trailer codec. Queue and failed
// entries are jj bookmarks named jjq/queue/NNNNNN and jjq/failed/NNNNNN; an
// entry is active exactly while its bookmark exists.
package queue

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/paulsmith/jjq/internal/jj"
)

// Bookmark namespaces. All jjq bookmarks are three slash-separated
// components so the jj→git export treats them as plain directories.
const (
	QueuePrefix  = "jjq/queue/"
	FailedPrefix = "jjq/failed/"
)

// WorkspacePrefix is the name prefix of sandbox workspaces.
const WorkspacePrefix = "jjq-run-"

// PadID renders a sequence ID the way bookmark names carry it.
func PadID(id int) string {
	return fmt.Sprintf("%06d", id)
}

// ParseID parses the zero-padded ID suffix of a bookmark name.
func ParseID(s string) (int, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("malformed sequence ID %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("malformed sequence ID %q", s)
	}
	return n, nil
}

// QueueBookmark returns the bookmark name of a queue entry.
func QueueBookmark(id int) string { return QueuePrefix + PadID(id) }

// FailedBookmark returns the bookmark name of a failed entry.
func FailedBookmark(id int) string { return FailedPrefix + PadID(id) }

// WorkspaceName returns the sandbox workspace name for a sequence ID.
func WorkspaceName(id int) string { return WorkspacePrefix + PadID(id) }

// Entry is one queue or failed bookmark.
type Entry struct {
	ID       int
	Bookmark string
}

// ListEntries enumerates the bookmarks under prefix, sorted by sequence ID
// ascending. Bookmarks with a malformed ID suffix are skipped.
func ListEntries(r jj.Runner, prefix string) ([]Entry, error) {
	names, err := r.BookmarkList(prefix + "*")
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, name := range names {
		id, err := ParseID(name[len(prefix):])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ID: id, Bookmark: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Exists reports whether the bookmark for an entry is present.
func Exists(r jj.Runner, bookmark string) (bool, error) {
	names, err := r.BookmarkList(bookmark)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == bookmark {
			return true, nil
		}
	}
	return false, nil
}
