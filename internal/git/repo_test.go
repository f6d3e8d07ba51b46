package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gitlib.Repository
	tick int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo}
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
}

// commit writes files (name, content pairs) and commits them with a
// strictly increasing timestamp.
func (r *testRepo) commit(msg string, files ...string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree: %v", err)
	}
	for i := 0; i+1 < len(files); i += 2 {
		r.write(files[i], files[i+1])
		if _, err := wt.Add(files[i]); err != nil {
			r.t.Fatalf("Add %s: %v", files[i], err)
		}
	}
	r.tick++
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: testEpoch.Add(time.Duration(r.tick) * time.Minute)}
	h, err := wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	if err != nil {
		r.t.Fatalf("Commit %q: %v", msg, err)
	}
	return h
}

func (r *testRepo) checkout(branch string, create bool) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree: %v", err)
	}
	err = wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Create: create})
	if err != nil {
		r.t.Fatalf("Checkout %s: %v", branch, err)
	}
}

func (r *testRepo) setRef(name plumbing.ReferenceName, h plumbing.Hash) {
	r.t.Helper()
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(name, h)); err != nil {
		r.t.Fatalf("SetReference %s: %v", name, err)
	}
}

func (r *testRepo) headBranch() string {
	r.t.Helper()
	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		r.t.Fatalf("read HEAD: %v", err)
	}
	return head.Target().Short()
}

// track configures branch to integrate origin/<branch>.
func (r *testRepo) track(branch string, raw map[string]string) {
	r.t.Helper()
	cfg, err := r.repo.Config()
	if err != nil {
		r.t.Fatalf("Config: %v", err)
	}
	cfg.Branches[branch] = &config.Branch{
		Name:   branch,
		Remote: "origin",
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	for key, value := range raw {
		cfg.Raw.Section("pull").SetOption(key, value)
	}
	if err := r.repo.SetConfig(cfg); err != nil {
		r.t.Fatalf("SetConfig: %v", err)
	}
}

func (r *testRepo) service() *Service {
	r.t.Helper()
	svc, err := Open(r.dir)
	if err != nil {
		r.t.Fatalf("Open: %v", err)
	}
	svc.now = func() time.Time { return testEpoch.Add(24 * time.Hour) }
	return svc
}

// isolateGlobalConfig keeps the user's git configuration out of a test.
func isolateGlobalConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}
