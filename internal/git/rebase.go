package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

// treeFile is a non-directory tree entry keyed by its full path.
type treeFile struct {
	mode filemode.FileMode
	hash plumbing.Hash
}

// replay rewrites the first-parent commits between the merge base and
// local on top of onto, returning the new tip. Objects are written to the
// store but no reference is moved, so an error leaves the repository as it
// was.
func (s *Service) replay(ctx context.Context, branch string, local, onto *object.Commit) (plumbing.Hash, int, error) {
	bases, err := local.MergeBase(onto)
	if err != nil {
		return plumbing.ZeroHash, 0, fmt.Errorf("find merge base: %w", err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, 0, fmt.Errorf("%s and upstream share no history", branch)
	}
	commits, err := firstParentRange(local, bases[0].Hash)
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}

	ontoTree, err := onto.Tree()
	if err != nil {
		return plumbing.ZeroHash, 0, fmt.Errorf("read upstream tree: %w", err)
	}
	files, err := flattenTree(ontoTree)
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}

	parent := onto.Hash
	for step, c := range commits {
		if err := ctx.Err(); err != nil {
			return plumbing.ZeroHash, 0, err
		}
		if err := s.applyCommit(files, branch, step+1, c); err != nil {
			return plumbing.ZeroHash, 0, err
		}
		treeHash, err := s.writeTree(files)
		if err != nil {
			return plumbing.ZeroHash, 0, err
		}
		parent, err = s.writeCommit(c, treeHash, parent)
		if err != nil {
			return plumbing.ZeroHash, 0, err
		}
	}
	return parent, len(commits), nil
}

// applyCommit applies the changes c made against its parent to files. A
// path conflicts when its current entry matches neither side of the change.
func (s *Service) applyCommit(files map[string]treeFile, branch string, step int, c *object.Commit) error {
	tree, err := c.Tree()
	if err != nil {
		return fmt.Errorf("read tree of %s: %w", c.Hash.String()[:7], err)
	}
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		p, err := c.Parent(0)
		if err != nil {
			return fmt.Errorf("read parent of %s: %w", c.Hash.String()[:7], err)
		}
		if parentTree, err = p.Tree(); err != nil {
			return fmt.Errorf("read tree of %s: %w", p.Hash.String()[:7], err)
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return fmt.Errorf("diff %s: %w", c.Hash.String()[:7], err)
	}

	var conflicts []string
	var detail string
	for _, ch := range changes {
		path := ch.To.Name
		if path == "" {
			path = ch.From.Name
		}
		before := entryOf(ch.From)
		after := entryOf(ch.To)
		cur := files[path]
		if cur != before && cur != after {
			if detail == "" {
				detail = s.conflictDetail(path, cur.hash, after.hash)
			}
			conflicts = append(conflicts, path)
			continue
		}
		if after.hash.IsZero() {
			delete(files, path)
		} else {
			files[path] = after
		}
	}
	if len(conflicts) > 0 {
		slices.Sort(conflicts)
		return &ConflictError{
			Branch:  branch,
			Step:    step,
			Commit:  graph.ID(c.Hash.String()),
			Summary: summaryLine(c.Message),
			Paths:   conflicts,
			Detail:  detail,
		}
	}
	return nil
}

func entryOf(e object.ChangeEntry) treeFile {
	if e.Name == "" {
		return treeFile{}
	}
	return treeFile{mode: e.TreeEntry.Mode, hash: e.TreeEntry.Hash}
}

func (s *Service) conflictDetail(path string, upstream, local plumbing.Hash) string {
	a, errA := s.blobText(upstream)
	b, errB := s.blobText(local)
	if err := errors.Join(errA, errB); err != nil {
		return fmt.Sprintf("cannot read %s: %v", path, err)
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "upstream/" + path,
		ToFile:   "local/" + path,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

func (s *Service) blobText(hash plumbing.Hash) (string, error) {
	if hash.IsZero() {
		return "", nil
	}
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return "", err
	}
	r, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func flattenTree(tree *object.Tree) (map[string]treeFile, error) {
	files := map[string]treeFile{}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree: %w", err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		files[name] = treeFile{mode: entry.Mode, hash: entry.Hash}
	}
}

// writeTree stores files as a nested tree and returns the root hash.
func (s *Service) writeTree(files map[string]treeFile) (plumbing.Hash, error) {
	type dir struct {
		files map[string]treeFile
		dirs  map[string]*dir
	}
	newDir := func() *dir { return &dir{files: map[string]treeFile{}, dirs: map[string]*dir{}} }
	root := newDir()
	for path, f := range files {
		d := root
		parts := strings.Split(path, "/")
		for _, part := range parts[:len(parts)-1] {
			sub, ok := d.dirs[part]
			if !ok {
				sub = newDir()
				d.dirs[part] = sub
			}
			d = sub
		}
		d.files[parts[len(parts)-1]] = f
	}

	var write func(d *dir) (plumbing.Hash, error)
	write = func(d *dir) (plumbing.Hash, error) {
		entries := make([]object.TreeEntry, 0, len(d.files)+len(d.dirs))
		for name, f := range d.files {
			entries = append(entries, object.TreeEntry{Name: name, Mode: f.mode, Hash: f.hash})
		}
		for name, sub := range d.dirs {
			h, err := write(sub)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h})
		}
		slices.SortFunc(entries, func(a, b object.TreeEntry) int {
			return strings.Compare(treeSortKey(a), treeSortKey(b))
		})
		obj := s.repo.Storer.NewEncodedObject()
		if err := (&object.Tree{Entries: entries}).Encode(obj); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
		}
		h, err := s.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("store tree: %w", err)
		}
		return h, nil
	}
	return write(root)
}

// treeSortKey orders entries the way git does: directories sort as if
// their name ended in a slash.
func treeSortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func (s *Service) writeCommit(orig *object.Commit, tree, parent plumbing.Hash) (plumbing.Hash, error) {
	committer := orig.Committer
	committer.When = s.now()
	c := &object.Commit{
		Author:       orig.Author,
		Committer:    committer,
		Message:      orig.Message,
		TreeHash:     tree,
		ParentHashes: []plumbing.Hash{parent},
	}
	obj := s.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	h, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store commit: %w", err)
	}
	return h, nil
}
