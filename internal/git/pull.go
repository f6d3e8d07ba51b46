package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

// Pull fetches and then integrates the current branch's upstream. It
// fast-forwards when possible and otherwise replays local commits on top of
// the upstream; it never creates a merge commit.
func (s *Service) Pull(ctx context.Context) (PullResult, error) {
	if err := s.Fetch(ctx); err != nil {
		return PullResult{}, err
	}
	return s.integrate(ctx)
}

type upstream struct {
	branch  string
	ref     plumbing.ReferenceName // local branch
	remote  plumbing.ReferenceName // tracking ref it integrates
	rebase  string                 // branch.<name>.rebase
	display string
}

func (s *Service) integrate(ctx context.Context) (PullResult, error) {
	up, err := s.resolveUpstream()
	if err != nil {
		return PullResult{}, err
	}
	res := PullResult{Branch: up.branch, Upstream: up.display}

	localRef, err := s.repo.Reference(up.ref, true)
	if err != nil {
		return res, fmt.Errorf("resolve %s: %w", up.branch, err)
	}
	remoteRef, err := s.repo.Reference(up.remote, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return res, fmt.Errorf("%w: %s has not been fetched", ErrNoUpstream, up.display)
	}
	if err != nil {
		return res, fmt.Errorf("resolve %s: %w", up.display, err)
	}
	local, err := s.repo.CommitObject(localRef.Hash())
	if err != nil {
		return res, fmt.Errorf("read %s: %w", up.branch, err)
	}
	remote, err := s.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return res, fmt.Errorf("read %s: %w", up.display, err)
	}
	res.Head = graph.ID(local.Hash.String())

	if local.Hash == remote.Hash {
		res.Outcome = PullUpToDate
		return res, nil
	}
	behind, err := remote.IsAncestor(local)
	if err != nil {
		return res, fmt.Errorf("compare %s with %s: %w", up.branch, up.display, err)
	}
	if behind {
		res.Outcome = PullUpToDate
		return res, nil
	}

	changes, err := s.LocalChanges(ctx)
	if err != nil {
		return res, err
	}
	if !changes.Clean() {
		return res, &ConflictError{Branch: up.branch, Paths: changes.Paths}
	}

	ff, rebase, err := s.pullSettings(up)
	if err != nil {
		return res, err
	}
	ahead, err := local.IsAncestor(remote)
	if err != nil {
		return res, fmt.Errorf("compare %s with %s: %w", up.branch, up.display, err)
	}
	if ahead {
		if ff == "false" {
			return res, &ConfigBlockedError{Branch: up.branch, Setting: "pull.ff", Value: ff, Need: "fast-forward"}
		}
		if err := s.checkUntracked(up.branch, remote); err != nil {
			return res, err
		}
		if err := s.moveBranch(up.ref, localRef.Hash(), remote.Hash); err != nil {
			return res, err
		}
		slog.Info("pull fast-forwarded", slog.String("branch", up.branch), slog.String("head", remote.Hash.String()))
		res.Outcome = PullFastForward
		res.Head = graph.ID(remote.Hash.String())
		return res, nil
	}

	if ff == "only" {
		return res, &ConfigBlockedError{Branch: up.branch, Setting: "pull.ff", Value: ff, Need: "rebase"}
	}
	if rebase.setting != "" && isFalse(rebase.value) {
		return res, &ConfigBlockedError{Branch: up.branch, Setting: rebase.setting, Value: rebase.value, Need: "rebase"}
	}

	head, replayed, err := s.replay(ctx, up.branch, local, remote)
	if err != nil {
		return res, err
	}
	rebased, err := s.repo.CommitObject(head)
	if err != nil {
		return res, fmt.Errorf("read rebased head: %w", err)
	}
	if err := s.checkUntracked(up.branch, rebased); err != nil {
		return res, err
	}
	if err := s.moveBranch(up.ref, localRef.Hash(), head); err != nil {
		return res, err
	}
	slog.Info("pull rebased",
		slog.String("branch", up.branch),
		slog.Int("replayed", replayed),
		slog.String("head", head.String()),
	)
	res.Outcome = PullRebased
	res.Head = graph.ID(head.String())
	res.Replayed = replayed
	return res, nil
}

func (s *Service) resolveUpstream() (upstream, error) {
	head, err := s.headState()
	if err != nil {
		return upstream{}, err
	}
	if head.Unborn {
		return upstream{}, ErrUnbornHead
	}
	if head.Detached {
		return upstream{}, fmt.Errorf("%w: HEAD is detached", ErrNoUpstream)
	}
	cfg, err := s.repo.Config()
	if err != nil {
		return upstream{}, fmt.Errorf("read config: %w", err)
	}
	br, ok := cfg.Branches[head.Branch]
	if !ok || br.Remote == "" || br.Merge == "" {
		return upstream{}, fmt.Errorf("%w: %s", ErrNoUpstream, head.Branch)
	}
	up := upstream{
		branch: head.Branch,
		ref:    plumbing.NewBranchReferenceName(head.Branch),
		rebase: br.Rebase,
	}
	if br.Remote == "." {
		up.remote = br.Merge
		up.display = br.Merge.Short()
	} else {
		up.remote = plumbing.NewRemoteReferenceName(br.Remote, br.Merge.Short())
		up.display = br.Remote + "/" + br.Merge.Short()
	}
	return up, nil
}

type rebaseSetting struct {
	setting string
	value   string
}

// pullSettings reads pull.ff and the effective rebase setting, repository
// configuration first, then the user's global configuration.
func (s *Service) pullSettings(up upstream) (string, rebaseSetting, error) {
	local, err := s.repo.Config()
	if err != nil {
		return "", rebaseSetting{}, fmt.Errorf("read config: %w", err)
	}
	global, err := config.LoadConfig(config.GlobalScope)
	if err != nil {
		slog.Debug("read global git config", slog.Any("error", err))
		global = config.NewConfig()
	}
	option := func(key string) string {
		if v := local.Raw.Section("pull").Option(key); v != "" {
			return strings.ToLower(v)
		}
		return strings.ToLower(global.Raw.Section("pull").Option(key))
	}
	ff := option("ff")
	if up.rebase != "" {
		return ff, rebaseSetting{setting: "branch." + up.branch + ".rebase", value: strings.ToLower(up.rebase)}, nil
	}
	if v := option("rebase"); v != "" {
		return ff, rebaseSetting{setting: "pull.rebase", value: v}, nil
	}
	return ff, rebaseSetting{}, nil
}

func isFalse(v string) bool {
	switch v {
	case "false", "no", "off", "0":
		return true
	}
	return false
}

// checkUntracked refuses to move branch onto target when that would
// overwrite untracked files.
func (s *Service) checkUntracked(branch string, target *object.Commit) error {
	paths, err := s.untrackedCollisions(target)
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		return &ConflictError{Branch: branch, Paths: paths, Untracked: true}
	}
	return nil
}

// moveBranch points ref at target and hard-resets the worktree to it. The
// branch is restored to prev if the worktree cannot be updated.
func (s *Service) moveBranch(ref plumbing.ReferenceName, prev, target plumbing.Hash) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Reset(&gitlib.ResetOptions{Commit: target, Mode: gitlib.HardReset}); err != nil {
		if restoreErr := s.repo.Storer.SetReference(plumbing.NewHashReference(ref, prev)); restoreErr != nil {
			return errors.Join(fmt.Errorf("update worktree: %w", err), fmt.Errorf("restore %s: %w", ref.Short(), restoreErr))
		}
		return fmt.Errorf("update worktree: %w", err)
	}
	return nil
}

// firstParentRange returns the commits from tip back to (excluding) base,
// oldest first. Merge commits cannot be replayed.
func firstParentRange(tip *object.Commit, base plumbing.Hash) ([]*object.Commit, error) {
	var commits []*object.Commit
	cur := tip
	for cur.Hash != base {
		if cur.NumParents() > 1 {
			return nil, fmt.Errorf("cannot replay merge commit %s", cur.Hash.String()[:7])
		}
		commits = append(commits, cur)
		if cur.NumParents() == 0 {
			return nil, fmt.Errorf("commit %s is not based on %s", tip.Hash.String()[:7], base.String()[:7])
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("read parent of %s: %w", cur.Hash.String()[:7], err)
		}
		cur = parent
	}
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}
