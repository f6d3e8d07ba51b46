package git

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

// commitLookup reads commit objects for the graph engine. Commits on the
// shallow boundary report no parents, so a shallow clone lays out as if its
// oldest commits were roots.
type commitLookup struct {
	repo    *gitlib.Repository
	shallow map[plumbing.Hash]struct{}

	mu    sync.Mutex
	cache map[graph.ID]*graph.Commit
}

// Lookup returns a graph.Lookup over the repository's commits. Results are
// cached for the lifetime of the returned value.
func (s *Service) Lookup() graph.Lookup {
	l := &commitLookup{
		repo:    s.repo,
		shallow: map[plumbing.Hash]struct{}{},
		cache:   map[graph.ID]*graph.Commit{},
	}
	hashes, err := s.repo.Storer.Shallow()
	if err != nil {
		slog.Warn("read shallow boundary", slog.Any("error", err))
	}
	for _, h := range hashes {
		l.shallow[h] = struct{}{}
	}
	return l
}

func (l *commitLookup) Commit(id graph.ID) (*graph.Commit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.cache[id]; ok {
		return c, nil
	}
	if !plumbing.IsHash(string(id)) {
		return nil, fmt.Errorf("commit %q: %w", id, graph.ErrNotFound)
	}
	hash := plumbing.NewHash(string(id))
	obj, err := l.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("commit %s: %w", id.Short(), graph.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id.Short(), err)
	}
	c := &graph.Commit{
		ID:      id,
		Summary: summaryLine(obj.Message),
		Time:    obj.Committer.When.Unix(),
	}
	if _, boundary := l.shallow[hash]; !boundary {
		c.Parents = make([]graph.ID, 0, len(obj.ParentHashes))
		for _, p := range obj.ParentHashes {
			c.Parents = append(c.Parents, graph.ID(p.String()))
		}
	}
	l.cache[id] = c
	return c, nil
}

func summaryLine(message string) string {
	return strings.SplitN(strings.TrimSpace(message), "\n", 2)[0]
}
