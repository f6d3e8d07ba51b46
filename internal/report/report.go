// Package report collects user-facing errors until they are dismissed.
package report

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
)

type Kind uint8

const (
	// KindBackend covers repository and transport failures.
	KindBackend Kind = iota
	// KindResolution is a commit or ref that could not be resolved.
	KindResolution
	// KindMergeConflict is a pull aborted on conflicting changes.
	KindMergeConflict
	// KindConfigBlocked is a pull refused by git configuration.
	KindConfigBlocked
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindMergeConflict:
		return "merge conflict"
	case KindConfigBlocked:
		return "blocked by configuration"
	default:
		return "backend"
	}
}

// Classify maps err onto the reporting taxonomy.
func Classify(err error) Kind {
	var conflict *git.ConflictError
	var blocked *git.ConfigBlockedError
	switch {
	case errors.As(err, &conflict):
		return KindMergeConflict
	case errors.As(err, &blocked):
		return KindConfigBlocked
	case errors.Is(err, graph.ErrMissingCommit), errors.Is(err, graph.ErrCycle),
		errors.Is(err, git.ErrUnbornHead), errors.Is(err, git.ErrNoUpstream):
		return KindResolution
	default:
		return KindBackend
	}
}

type Entry struct {
	ID      string
	Kind    Kind
	Op      string
	Message string
	Detail  string
	Err     error
	Time    time.Time
}

// Sink keeps every reported error until Dismiss is called for it.
type Sink struct {
	mu          sync.Mutex
	entries     []Entry
	subscribers []func(Entry)
	now         func() time.Time
}

func NewSink() *Sink {
	return &Sink{now: time.Now}
}

// Report records err for op and notifies subscribers. A nil error is
// ignored and yields the zero Entry.
func (s *Sink) Report(op string, err error) Entry {
	if err == nil {
		return Entry{}
	}
	e := Entry{
		ID:      uuid.New().String(),
		Kind:    Classify(err),
		Op:      op,
		Message: err.Error(),
		Err:     err,
	}
	var conflict *git.ConflictError
	if errors.As(err, &conflict) {
		e.Detail = conflict.Detail
	}

	s.mu.Lock()
	e.Time = s.now()
	s.entries = append(s.entries, e)
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	slog.Error("operation failed",
		slog.String("op", op),
		slog.String("kind", e.Kind.String()),
		slog.String("id", e.ID),
		slog.Any("error", err),
	)
	for _, fn := range subs {
		fn(e)
	}
	return e
}

// Entries returns the undismissed entries, oldest first.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Dismiss removes the entry with id and reports whether it existed.
func (s *Sink) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// Subscribe registers fn to be called, outside the sink's lock, for every
// new entry.
func (s *Sink) Subscribe(fn func(Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
