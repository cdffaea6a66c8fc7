package queue

import (
	"strings"

	"github.com/paulsmith/jjq/internal/jj"
)

// QueueItem is the projection of one queue entry.
type QueueItem struct {
	ID          int    `json:"id"`
	ChangeID    string `json:"change_id"`
	CommitID    string `json:"commit_id"`
	Description string `json:"description"`
}

// FailedItem is the projection of one failed entry. The identity fields come
// from the trailers on the failed revision; Description is the first line of
// the original candidate's own message, so readers see what the user wrote
// rather than the synthetic failure summary.
type FailedItem struct {
	ID          int    `json:"id"`
	ChangeID    string `json:"change_id"`
	CommitID    string `json:"commit_id"`
	Trunk       string `json:"trunk"`
	Workspace   string `json:"workspace"`
	Failure     string `json:"failure"`
	Strategy    string `json:"strategy"`
	Description string `json:"description"`
}

// Status is the full queue view, suitable for human rendering or JSON.
type Status struct {
	Running bool         `json:"running"`
	Queue   []QueueItem  `json:"queue"`
	Failed  []FailedItem `json:"failed"`
}

// BuildStatus projects the current bookmark state. running is the caller's
// probe of the run lock.
func BuildStatus(r jj.Runner, running bool) (*Status, error) {
	st := &Status{Running: running, Queue: []QueueItem{}, Failed: []FailedItem{}}

	queued, err := ListEntries(r, QueuePrefix)
	if err != nil {
		return nil, err
	}
	for _, e := range queued {
		rev, err := r.Resolve(e.Bookmark)
		if err != nil {
			return nil, err
		}
		desc, err := r.Description(e.Bookmark)
		if err != nil {
			return nil, err
		}
		st.Queue = append(st.Queue, QueueItem{
			ID:          e.ID,
			ChangeID:    rev.ChangeID,
			CommitID:    rev.CommitID,
			Description: firstLine(desc),
		})
	}

	failed, err := ListEntries(r, FailedPrefix)
	if err != nil {
		return nil, err
	}
	for _, e := range failed {
		desc, err := r.Description(e.Bookmark)
		if err != nil {
			return nil, err
		}
		f := ParseFailure(desc)
		item := FailedItem{
			ID:        e.ID,
			ChangeID:  f.Candidate,
			CommitID:  f.CandidateCommit,
			Trunk:     f.Trunk,
			Workspace: f.Workspace,
			Failure:   f.Failure,
			Strategy:  f.Strategy,
		}
		// The candidate may have been abandoned since; its message is
		// best-effort.
		if f.Candidate != "" {
			if orig, err := r.Description(f.Candidate); err == nil {
				item.Description = firstLine(orig)
			}
		}
		st.Failed = append(st.Failed, item)
	}
	return st, nil
}

// FindByID returns the item with the given sequence ID, searching the queue
// first, then the failed set.
func (s *Status) FindByID(id int) (*QueueItem, *FailedItem) {
	for i := range s.Queue {
		if s.Queue[i].ID == id {
			return &s.Queue[i], nil
		}
	}
	for i := range s.Failed {
		if s.Failed[i].ID == id {
			return nil, &s.Failed[i]
		}
	}
	return nil, nil
}

// FindByChange returns the item whose candidate has the given change ID.
func (s *Status) FindByChange(changeID string) (*QueueItem, *FailedItem) {
	for i := range s.Queue {
		if s.Queue[i].ChangeID == changeID {
			return &s.Queue[i], nil
		}
	}
	for i := range s.Failed {
		if s.Failed[i].ChangeID == changeID {
			return nil, &s.Failed[i]
		}
	}
	return nil, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
