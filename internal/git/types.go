package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

var (
	ErrUnbornHead = errors.New("HEAD has no commits yet")
	ErrNoUpstream = errors.New("current branch has no upstream")
)

// RemoteFailure is one remote that could not be fetched.
type RemoteFailure struct {
	Remote string
	Err    error
}

// FetchError aggregates the remotes that failed during a fetch.
type FetchError struct {
	Failures []RemoteFailure
}

func (e *FetchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Remote, f.Err))
	}
	return "fetch failed: " + strings.Join(parts, "; ")
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// ConflictError reports a pull that stopped because local work could not be
// applied. Nothing in the repository was changed. Step 0 means uncommitted
// changes blocked the pull before any commit was replayed.
type ConflictError struct {
	Branch  string
	Step    int
	Commit  graph.ID
	Summary string
	Paths   []string
	// Untracked marks a step 0 refusal caused by untracked files the
	// pull would overwrite.
	Untracked bool
	// Detail is a unified diff of the first conflicting path, upstream
	// version against the replayed commit's version.
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Step == 0 && e.Untracked {
		return fmt.Sprintf("pull %s: untracked files would be overwritten: %s", e.Branch, strings.Join(e.Paths, ", "))
	}
	if e.Step == 0 {
		return fmt.Sprintf("pull %s: uncommitted changes in %s", e.Branch, strings.Join(e.Paths, ", "))
	}
	return fmt.Sprintf("pull %s: conflict replaying %s %q (step %d) in %s; rebase aborted",
		e.Branch, e.Commit.Short(), e.Summary, e.Step, strings.Join(e.Paths, ", "))
}

// ConfigBlockedError reports a pull refused by the user's configuration.
type ConfigBlockedError struct {
	Branch  string
	Setting string
	Value   string
	Need    string // what the pull would have had to do
}

func (e *ConfigBlockedError) Error() string {
	return fmt.Sprintf("pull %s: %s needs a %s but %s=%s forbids it", e.Branch, e.Branch, e.Need, e.Setting, e.Value)
}

type PullOutcome uint8

const (
	PullUpToDate PullOutcome = iota
	PullFastForward
	PullRebased
)

func (o PullOutcome) String() string {
	switch o {
	case PullUpToDate:
		return "up to date"
	case PullFastForward:
		return "fast-forward"
	case PullRebased:
		return "rebased"
	default:
		return fmt.Sprintf("PullOutcome(%d)", uint8(o))
	}
}

type PullResult struct {
	Outcome  PullOutcome
	Branch   string
	Upstream string
	Head     graph.ID
	Replayed int // local commits rewritten on top of upstream
}

// LocalChanges summarizes tracked files that differ from HEAD.
type LocalChanges struct {
	HasWorktree  bool
	HasStaged    bool
	HasConflicts bool
	Paths        []string
}

func (c LocalChanges) Clean() bool {
	return !c.HasWorktree && !c.HasStaged && !c.HasConflicts
}
