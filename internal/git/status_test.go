package git

import (
	"context"
	"slices"
	"testing"
)

func TestLocalChanges(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.commit("init", "a.txt", "1", "b.txt", "1")
	svc := r.service()
	ctx := context.Background()

	got, err := svc.LocalChanges(ctx)
	if err != nil {
		t.Fatalf("LocalChanges: %v", err)
	}
	if !got.Clean() {
		t.Fatalf("LocalChanges() = %+v, want clean", got)
	}

	r.write("untracked.txt", "x")
	if got, _ := svc.LocalChanges(ctx); !got.Clean() {
		t.Fatalf("untracked file reported as change: %+v", got)
	}

	r.write("a.txt", "2")
	got, err = svc.LocalChanges(ctx)
	if err != nil {
		t.Fatalf("LocalChanges: %v", err)
	}
	if !got.HasWorktree || got.HasStaged || !slices.Equal(got.Paths, []string{"a.txt"}) {
		t.Fatalf("LocalChanges() = %+v, want unstaged a.txt", got)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	r.write("b.txt", "2")
	if _, err := wt.Add("b.txt"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err = svc.LocalChanges(ctx)
	if err != nil {
		t.Fatalf("LocalChanges: %v", err)
	}
	if !got.HasWorktree || !got.HasStaged || !slices.Equal(got.Paths, []string{"a.txt", "b.txt"}) {
		t.Fatalf("LocalChanges() = %+v, want a.txt unstaged and b.txt staged", got)
	}
}
