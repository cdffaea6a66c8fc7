package queue

import (
	"testing"

	"github.com/paulsmith/jjq/internal/jj"
)

func statusFixture() *fakeRunner {
	failedDesc := FormatFailure(1, "check command exited with status 2", Failure{
		Candidate:       "qqqqqqqq",
		CandidateCommit: "4444",
		Trunk:           "1111",
		Workspace:       "/tmp/jjq-run-xyz",
		Failure:         FailureCheck,
		Strategy:        "rebase",
	})
	return &fakeRunner{
		bookmarks: map[string]jj.Rev{
			"jjq/queue/000002":  {ChangeID: "bbbbbbbb", CommitID: "2222"},
			"jjq/queue/000003":  {ChangeID: "cccccccc", CommitID: "3333"},
			"jjq/failed/000001": {ChangeID: "ffffffff", CommitID: "5555"},
		},
		descs: map[string]string{
			"jjq/queue/000002":  "feat: second change\n\nlonger body\n",
			"jjq/queue/000003":  "fix: third change\n",
			"jjq/failed/000001": failedDesc,
			"qqqqqqqq":          "feat: the original message\n",
		},
	}
}

func TestBuildStatus(t *testing.T) {
	st, err := BuildStatus(statusFixture(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Running {
		t.Error("expected running=true")
	}
	if len(st.Queue) != 2 {
		t.Fatalf("expected 2 queue items, got %d", len(st.Queue))
	}
	// FIFO order: lowest sequence ID first.
	if st.Queue[0].ID != 2 || st.Queue[1].ID != 3 {
		t.Errorf("queue order: got %d, %d", st.Queue[0].ID, st.Queue[1].ID)
	}
	if st.Queue[0].ChangeID != "bbbbbbbb" || st.Queue[0].CommitID != "2222" {
		t.Errorf("queue item identity: %+v", st.Queue[0])
	}
	if st.Queue[0].Description != "feat: second change" {
		t.Errorf("expected first-line description, got %q", st.Queue[0].Description)
	}

	if len(st.Failed) != 1 {
		t.Fatalf("expected 1 failed item, got %d", len(st.Failed))
	}
	f := st.Failed[0]
	if f.ID != 1 || f.ChangeID != "qqqqqqqq" || f.CommitID != "4444" {
		t.Errorf("failed item identity: %+v", f)
	}
	if f.Failure != FailureCheck || f.Strategy != "rebase" {
		t.Errorf("failed item context: %+v", f)
	}
	if f.Workspace != "/tmp/jjq-run-xyz" || f.Trunk != "1111" {
		t.Errorf("failed item forensics: %+v", f)
	}
	// The human-facing description is the candidate's own message, not the
	// synthetic failure summary.
	if f.Description != "feat: the original message" {
		t.Errorf("expected original description, got %q", f.Description)
	}
}

func TestBuildStatus_Empty(t *testing.T) {
	st, err := BuildStatus(&fakeRunner{bookmarks: map[string]jj.Rev{}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Running {
		t.Error("expected running=false")
	}
	if len(st.Queue) != 0 || len(st.Failed) != 0 {
		t.Errorf("expected empty status, got %+v", st)
	}
}

func TestBuildStatus_AbandonedCandidate(t *testing.T) {
	r := statusFixture()
	delete(r.descs, "qqqqqqqq")
	st, err := BuildStatus(r, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Failed[0].Description != "" {
		t.Errorf("expected empty description for vanished candidate, got %q", st.Failed[0].Description)
	}
}

func TestFindByID(t *testing.T) {
	st, err := BuildStatus(statusFixture(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qi, fi := st.FindByID(3)
	if qi == nil || fi != nil || qi.ID != 3 {
		t.Errorf("FindByID(3): qi=%+v fi=%+v", qi, fi)
	}
	qi, fi = st.FindByID(1)
	if qi != nil || fi == nil || fi.ID != 1 {
		t.Errorf("FindByID(1): qi=%+v fi=%+v", qi, fi)
	}
	qi, fi = st.FindByID(99)
	if qi != nil || fi != nil {
		t.Errorf("FindByID(99): expected no match")
	}
}

func TestFindByChange(t *testing.T) {
	st, err := BuildStatus(statusFixture(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qi, fi := st.FindByChange("cccccccc")
	if qi == nil || fi != nil || qi.ID != 3 {
		t.Errorf("FindByChange(queued): qi=%+v fi=%+v", qi, fi)
	}
	qi, fi = st.FindByChange("qqqqqqqq")
	if qi != nil || fi == nil || fi.ID != 1 {
		t.Errorf("FindByChange(failed): qi=%+v fi=%+v", qi, fi)
	}
}
