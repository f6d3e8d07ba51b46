package report

import (
	"errors"
	"fmt"
	"testing"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "missing commit", err: &graph.MissingCommitError{ID: "abc", Err: graph.ErrNotFound}, want: KindResolution},
		{name: "cycle", err: fmt.Errorf("refresh: %w", graph.ErrCycle), want: KindResolution},
		{name: "no upstream", err: fmt.Errorf("%w: main", git.ErrNoUpstream), want: KindResolution},
		{name: "conflict", err: &git.ConflictError{Step: 1}, want: KindMergeConflict},
		{name: "wrapped conflict", err: fmt.Errorf("pull: %w", &git.ConflictError{}), want: KindMergeConflict},
		{name: "config", err: &git.ConfigBlockedError{Setting: "pull.ff", Value: "only"}, want: KindConfigBlocked},
		{name: "fetch", err: &git.FetchError{Failures: []git.RemoteFailure{{Remote: "origin", Err: errors.New("denied")}}}, want: KindBackend},
		{name: "other", err: errors.New("boom"), want: KindBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSink(t *testing.T) {
	t.Parallel()

	s := NewSink()
	var notified []Entry
	s.Subscribe(func(e Entry) { notified = append(notified, e) })

	if e := s.Report("refresh", nil); e.ID != "" {
		t.Fatalf("Report(nil) = %+v, want zero entry", e)
	}

	first := s.Report("fetch", errors.New("network down"))
	second := s.Report("pull", &git.ConflictError{Branch: "main", Step: 1, Paths: []string{"a"}, Detail: "--- a\n+++ b\n"})
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("entry ids = %q, %q, want distinct", first.ID, second.ID)
	}
	if second.Kind != KindMergeConflict || second.Detail == "" || second.Op != "pull" {
		t.Fatalf("second = %+v", second)
	}
	if len(notified) != 2 {
		t.Fatalf("subscriber saw %d entries, want 2", len(notified))
	}

	if got := s.Entries(); len(got) != 2 || got[0].ID != first.ID {
		t.Fatalf("Entries() = %+v", got)
	}
	if !s.Dismiss(first.ID) {
		t.Fatal("Dismiss() = false for a pending entry")
	}
	if s.Dismiss(first.ID) {
		t.Fatal("Dismiss() = true twice")
	}
	if got := s.Entries(); len(got) != 1 || got[0].ID != second.ID {
		t.Fatalf("Entries() after dismiss = %+v", got)
	}
}
