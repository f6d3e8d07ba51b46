package graph

import (
	"errors"
	"fmt"
)

// ID identifies a commit. Backends use the hex object hash.
type ID string

// Short returns the abbreviated form used in logs and labels.
func (id ID) Short() string {
	if len(id) > 7 {
		return string(id[:7])
	}
	return string(id)
}

type Commit struct {
	ID      ID
	Parents []ID
	Summary string
	Time    int64 // seconds since epoch
}

// Lookup resolves commit ids. Implementations return an error wrapping
// ErrNotFound when an id does not exist.
type Lookup interface {
	Commit(id ID) (*Commit, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(id ID) (*Commit, error)

func (f LookupFunc) Commit(id ID) (*Commit, error) { return f(id) }

// MapLookup is an in-memory Lookup.
type MapLookup map[ID]*Commit

func (m MapLookup) Commit(id ID) (*Commit, error) {
	if c, ok := m[id]; ok && c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("commit %s: %w", id.Short(), ErrNotFound)
}

type RefKind uint8

const (
	RefLocal RefKind = iota
	RefRemote
	RefTag
	RefHead // detached HEAD
)

func (k RefKind) String() string {
	switch k {
	case RefLocal:
		return "local"
	case RefRemote:
		return "remote"
	case RefTag:
		return "tag"
	case RefHead:
		return "head"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

// Ref is a named pointer at a commit. Refs seed traversal and decorate rows.
type Ref struct {
	Name   string // short name: main, origin/main, v1
	Kind   RefKind
	Target ID
	IsHead bool // current branch, or the detached HEAD itself
}

// Order is the display order of commits, newest first. Row = index.
type Order []ID

var (
	ErrNotFound      = errors.New("not found")
	ErrMissingCommit = errors.New("missing commit")
	ErrCycle         = errors.New("commit ancestry contains a cycle")
)

// MissingCommitError reports an id that a tip or a child commit refers to
// but the lookup cannot resolve.
type MissingCommitError struct {
	ID    ID
	Child ID // empty when the id came from a ref tip
	Err   error
}

func (e *MissingCommitError) Error() string {
	if e.Child == "" {
		return fmt.Sprintf("resolve tip %s: %v", e.ID.Short(), e.Err)
	}
	return fmt.Sprintf("resolve parent %s of %s: %v", e.ID.Short(), e.Child.Short(), e.Err)
}

func (e *MissingCommitError) Unwrap() error { return e.Err }

func (e *MissingCommitError) Is(target error) bool { return target == ErrMissingCommit }

func resolve(lookup Lookup, id, child ID) (*Commit, error) {
	c, err := lookup.Commit(id)
	if err == nil && c == nil {
		err = ErrNotFound
	}
	if err != nil {
		return nil, &MissingCommitError{ID: id, Child: child, Err: err}
	}
	return c, nil
}
