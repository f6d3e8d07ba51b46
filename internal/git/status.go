package git

import (
	"context"
	"fmt"
	"slices"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// LocalChanges reports staged, unstaged and unmerged tracked files.
// Untracked files are ignored.
func (s *Service) LocalChanges(ctx context.Context) (LocalChanges, error) {
	var res LocalChanges
	if err := ctx.Err(); err != nil {
		return res, err
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return res, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return res, fmt.Errorf("worktree status: %w", err)
	}
	for path, st := range status {
		dirty := false
		if st.Staging == gitlib.UpdatedButUnmerged || st.Worktree == gitlib.UpdatedButUnmerged {
			res.HasConflicts = true
			dirty = true
		}
		if st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked {
			res.HasWorktree = true
			dirty = true
		}
		if st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked {
			res.HasStaged = true
			dirty = true
		}
		if dirty {
			res.Paths = append(res.Paths, path)
		}
	}
	slices.Sort(res.Paths)
	return res, nil
}

// untrackedCollisions lists untracked files that a checkout of target would
// overwrite.
func (s *Service) untrackedCollisions(target *object.Commit) ([]string, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	tree, err := target.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", target.Hash.String()[:7], err)
	}
	var paths []string
	for path, st := range status {
		if st.Worktree != gitlib.Untracked {
			continue
		}
		if _, err := tree.File(path); err == nil {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths, nil
}
