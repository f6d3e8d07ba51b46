package git

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

type Ref struct {
	Name   string // full name: refs/heads/main
	Short  string // main, origin/main, v1
	Target graph.ID
	Kind   graph.RefKind
	IsHead bool // current branch
}

type RefGroups struct {
	Local  []Ref
	Remote []Ref
	Tags   []Ref
}

// Refs lists local branches, remote-tracking branches (without the */HEAD
// aliases) and tags peeled to their commits. Each group is sorted by name.
func (s *Service) Refs(ctx context.Context) (RefGroups, error) {
	var groups RefGroups
	head, err := s.headState()
	if err != nil {
		return groups, err
	}
	iter, err := s.repo.References()
	if err != nil {
		return groups, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		short := name.Short()
		switch {
		case name.IsBranch():
			groups.Local = append(groups.Local, Ref{
				Name:   name.String(),
				Short:  short,
				Target: graph.ID(ref.Hash().String()),
				Kind:   graph.RefLocal,
				IsHead: !head.Detached && head.Branch == short,
			})
		case name.IsRemote():
			if strings.HasSuffix(short, "/HEAD") {
				return nil
			}
			groups.Remote = append(groups.Remote, Ref{
				Name:   name.String(),
				Short:  short,
				Target: graph.ID(ref.Hash().String()),
				Kind:   graph.RefRemote,
			})
		case name.IsTag():
			hash, ok := s.peelTagCommitHash(ref.Hash())
			if !ok {
				return nil
			}
			groups.Tags = append(groups.Tags, Ref{
				Name:   name.String(),
				Short:  short,
				Target: graph.ID(hash.String()),
				Kind:   graph.RefTag,
			})
		}
		return nil
	})
	if err != nil {
		return RefGroups{}, fmt.Errorf("list references: %w", err)
	}
	byName := func(a, b Ref) int { return strings.Compare(a.Short, b.Short) }
	slices.SortFunc(groups.Local, byName)
	slices.SortFunc(groups.Remote, byName)
	slices.SortFunc(groups.Tags, byName)
	return groups, nil
}

// Tips flattens Refs into traversal and decoration tips. A detached HEAD is
// appended as a RefHead tip.
func (s *Service) Tips(ctx context.Context) ([]graph.Ref, error) {
	groups, err := s.Refs(ctx)
	if err != nil {
		return nil, err
	}
	tips := make([]graph.Ref, 0, len(groups.Local)+len(groups.Remote)+len(groups.Tags)+1)
	for _, group := range [][]Ref{groups.Local, groups.Remote, groups.Tags} {
		for _, ref := range group {
			tips = append(tips, graph.Ref{Name: ref.Short, Kind: ref.Kind, Target: ref.Target, IsHead: ref.IsHead})
		}
	}
	head, err := s.headState()
	if err != nil {
		return nil, err
	}
	if head.Detached && !head.Unborn {
		tips = append(tips, graph.Ref{Name: "HEAD", Kind: graph.RefHead, Target: head.Target, IsHead: true})
	}
	return tips, nil
}

func (s *Service) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := s.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := s.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}
