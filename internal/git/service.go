package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/semaphore"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

// Service is the repository backend. Methods that touch the repository
// expect the caller to hold the repository lock (Lock/TryLock) unless their
// documentation says otherwise.
type Service struct {
	lock *semaphore.Weighted

	repo *gitlib.Repository
	path string

	// now stamps commits written while replaying local work.
	now func() time.Time
}

// HeadState describes what HEAD points at.
type HeadState struct {
	Branch   string // short branch name, empty when detached
	Target   graph.ID
	Detached bool
	Unborn   bool
}

func Open(repoPath string) (*Service, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	slog.Debug("repository opened", slog.String("path", root))
	return &Service{
		lock: semaphore.NewWeighted(1),
		repo: repo,
		path: root,
		now:  time.Now,
	}, nil
}

func (s *Service) RepoPath() string {
	return s.path
}

// Lock acquires the repository lock, waiting until ctx is done.
func (s *Service) Lock(ctx context.Context) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire repository lock: %w", err)
	}
	return nil
}

// TryLock acquires the repository lock only if it is free.
func (s *Service) TryLock() bool {
	return s.lock.TryAcquire(1)
}

func (s *Service) Unlock() {
	s.lock.Release(1)
}

// HeadState takes the repository lock itself for the duration of the read.
func (s *Service) HeadState(ctx context.Context) (HeadState, error) {
	if err := s.Lock(ctx); err != nil {
		return HeadState{}, err
	}
	defer s.Unlock()
	return s.headState()
}

func (s *Service) headState() (HeadState, error) {
	head, err := s.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return HeadState{}, fmt.Errorf("read HEAD: %w", err)
	}
	var st HeadState
	if head.Type() == plumbing.SymbolicReference {
		st.Branch = head.Target().Short()
	} else {
		st.Detached = true
	}
	resolved, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		st.Unborn = true
		return st, nil
	}
	if err != nil {
		return HeadState{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	st.Target = graph.ID(resolved.Hash().String())
	return st, nil
}
