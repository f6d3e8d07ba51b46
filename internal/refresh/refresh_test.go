package refresh

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/report"
)

type fakeSource struct {
	lock chan struct{}

	tipsFunc  func(ctx context.Context) ([]graph.Ref, error)
	lookup    graph.Lookup
	fetchFunc func(ctx context.Context) error
	pullFunc  func(ctx context.Context) (git.PullResult, error)

	locks atomic.Int32
}

func newFakeSource(lookup graph.MapLookup, tips ...graph.Ref) *fakeSource {
	return &fakeSource{
		lock:   make(chan struct{}, 1),
		lookup: lookup,
		tipsFunc: func(context.Context) ([]graph.Ref, error) {
			return tips, nil
		},
	}
}

func (f *fakeSource) Lock(ctx context.Context) error {
	select {
	case f.lock <- struct{}{}:
		f.locks.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) Unlock() { <-f.lock }

func (f *fakeSource) Tips(ctx context.Context) ([]graph.Ref, error) {
	f.assertLocked()
	return f.tipsFunc(ctx)
}

func (f *fakeSource) Lookup() graph.Lookup { return f.lookup }

func (f *fakeSource) Fetch(ctx context.Context) error {
	f.assertLocked()
	if f.fetchFunc != nil {
		return f.fetchFunc(ctx)
	}
	return errors.New("unexpected Fetch call")
}

func (f *fakeSource) Pull(ctx context.Context) (git.PullResult, error) {
	f.assertLocked()
	if f.pullFunc != nil {
		return f.pullFunc(ctx)
	}
	return git.PullResult{}, errors.New("unexpected Pull call")
}

func (f *fakeSource) assertLocked() {
	if len(f.lock) != 1 {
		panic("repository accessed without holding the lock")
	}
}

func (f *fakeSource) unlocked() bool { return len(f.lock) == 0 }

func linear() (graph.MapLookup, graph.Ref) {
	lookup := graph.MapLookup{
		"a": {ID: "a", Summary: "first", Time: 1},
		"b": {ID: "b", Parents: []graph.ID{"a"}, Summary: "second", Time: 2},
	}
	return lookup, graph.Ref{Name: "main", Kind: graph.RefLocal, Target: "b", IsHead: true}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	tag := graph.Ref{Name: "v1", Kind: graph.RefTag, Target: "a"}
	src := newFakeSource(lookup, main, tag)

	layout, err := Build(context.Background(), src, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if layout.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", layout.Len())
	}
	if labels := layout.Row(0).Labels; len(labels) != 1 || labels[0].Name != "main" || !labels[0].IsHead {
		t.Fatalf("row 0 labels = %+v", labels)
	}
	if labels := layout.Row(1).Labels; len(labels) != 1 || labels[0].Name != "v1" {
		t.Fatalf("row 1 labels = %+v", labels)
	}
	if !src.unlocked() {
		t.Fatal("lock still held after Build")
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := newFakeSource(nil)
	src.tipsFunc = func(context.Context) ([]graph.Ref, error) { return nil, boom }
	if _, err := Build(context.Background(), src, Options{}); !errors.Is(err, boom) {
		t.Fatalf("Build() error = %v, want %v", err, boom)
	}
	if !src.unlocked() {
		t.Fatal("lock still held after failed Build")
	}

	missing := newFakeSource(graph.MapLookup{}, graph.Ref{Name: "main", Kind: graph.RefLocal, Target: "gone"})
	if _, err := Build(context.Background(), missing, Options{}); !errors.Is(err, graph.ErrMissingCommit) {
		t.Fatalf("Build() error = %v, want ErrMissingCommit", err)
	}
}

func TestCoordinator_RefreshIdempotent(t *testing.T) {
	t.Parallel()

	lookup := graph.MapLookup{
		"a": {ID: "a", Summary: "root", Time: 1},
		"b": {ID: "b", Parents: []graph.ID{"a"}, Summary: "base", Time: 2},
		"c": {ID: "c", Parents: []graph.ID{"b"}, Summary: "main work", Time: 4},
		"d": {ID: "d", Parents: []graph.ID{"b"}, Summary: "feature work", Time: 3},
		"e": {ID: "e", Parents: []graph.ID{"d"}, Summary: "more feature", Time: 5},
		"m": {ID: "m", Parents: []graph.ID{"c", "e"}, Summary: "merge", Time: 6},
		"f": {ID: "f", Parents: []graph.ID{"a"}, Summary: "old topic", Time: 2},
	}
	c := New(newFakeSource(lookup,
		graph.Ref{Name: "main", Kind: graph.RefLocal, Target: "m", IsHead: true},
		graph.Ref{Name: "feature", Kind: graph.RefLocal, Target: "e"},
		graph.Ref{Name: "topic", Kind: graph.RefLocal, Target: "f"},
	), &recorder{}, Options{})

	first := c.Refresh(context.Background())
	second := c.Refresh(context.Background())
	if len(first.Errs) != 0 || len(second.Errs) != 0 {
		t.Fatalf("Errs = %v, %v", first.Errs, second.Errs)
	}
	a, b := first.Layout, second.Layout
	if a.Len() != len(lookup) || b.Len() != a.Len() {
		t.Fatalf("Len() = %d then %d, want %d", a.Len(), b.Len(), len(lookup))
	}
	for r := range a.Len() {
		x, y := a.Row(r), b.Row(r)
		if x.ID != y.ID || x.Node != y.Node || !slices.Equal(x.Segments, y.Segments) {
			t.Fatalf("row %d differs between refreshes: %+v vs %+v", r, x, y)
		}
	}
}

func TestCoordinator_ApplyDropsStaleLayout(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	c := New(newFakeSource(lookup, main), &recorder{}, Options{})
	var published []*graph.Layout
	c.OnPublish(func(l *graph.Layout) { published = append(published, l) })
	var applied []Result
	c.OnResult(func(r Result) { applied = append(applied, r) })

	older := c.Refresh(context.Background())
	newer := c.Refresh(context.Background())
	if older.Gen >= newer.Gen {
		t.Fatalf("Gen = %d then %d, want increasing", older.Gen, newer.Gen)
	}
	c.Apply(newer)
	c.Apply(older)

	if c.Current() != newer.Layout {
		t.Fatal("stale layout replaced the newer one")
	}
	if len(published) != 1 || published[0] != newer.Layout {
		t.Fatalf("published %d layouts, want only the newer one", len(published))
	}
	if len(applied) != 2 || applied[1].Layout != nil {
		t.Fatalf("results = %+v, want the stale result delivered without a layout", applied)
	}
}

func TestCoordinator_RequestRefreshQueuesBehindRunning(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	src := newFakeSource(lookup, main)
	var calls atomic.Int32
	release := make(chan struct{})
	src.tipsFunc = func(context.Context) ([]graph.Ref, error) {
		if calls.Add(1) == 1 {
			<-release
		}
		return []graph.Ref{main}, nil
	}
	c := New(src, &recorder{}, Options{})
	results, ctx := startRun(t, c)

	if !c.TriggerRefresh(ctx) {
		t.Fatal("TriggerRefresh() = false on idle coordinator")
	}
	eventually(t, "first refresh to read tips", func() bool { return calls.Load() == 1 })
	c.RequestRefresh(ctx)
	close(release)

	waitResult(t, results)
	waitResult(t, results)
	eventually(t, "refresh to become idle", func() bool { return !c.Busy(OpRefresh) })
	if got := calls.Load(); got != 2 {
		t.Fatalf("tips read %d times, want 2", got)
	}
}

type recorder struct {
	mu      sync.Mutex
	entries []report.Entry
}

func (r *recorder) Report(op string, err error) report.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := report.Entry{Op: op, Err: err, Kind: report.Classify(err)}
	r.entries = append(r.entries, e)
	return e
}

func (r *recorder) all() []report.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report.Entry(nil), r.entries...)
}

func startRun(t *testing.T, c *Coordinator) (chan Result, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	results := make(chan Result, 8)
	c.OnResult(func(r Result) { results <- r })
	go func() { _ = c.Run(ctx) }()
	return results, ctx
}

func waitResult(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCoordinator_TriggerRefreshPublishes(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	c := New(newFakeSource(lookup, main), &recorder{}, Options{})
	var published atomic.Pointer[graph.Layout]
	c.OnPublish(func(l *graph.Layout) { published.Store(l) })
	results, ctx := startRun(t, c)

	if c.Current() != nil {
		t.Fatal("Current() before first publish should be nil")
	}
	if !c.TriggerRefresh(ctx) {
		t.Fatal("TriggerRefresh() = false on idle coordinator")
	}
	res := waitResult(t, results)
	if len(res.Errs) != 0 {
		t.Fatalf("Errs = %v", res.Errs)
	}
	if c.Current() == nil || c.Current() != published.Load() {
		t.Fatal("layout not published")
	}
	eventually(t, "refresh to become idle", func() bool { return !c.Busy(OpRefresh) })
}

func TestCoordinator_BusyRejectsDuplicate(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	src := newFakeSource(lookup, main)
	release := make(chan struct{})
	src.fetchFunc = func(context.Context) error {
		<-release
		return nil
	}
	c := New(src, &recorder{}, Options{})
	var transitions []bool
	var mu sync.Mutex
	c.OnBusyChange(func(op Op, busy bool) {
		if op == OpFetch {
			mu.Lock()
			transitions = append(transitions, busy)
			mu.Unlock()
		}
	})
	results, ctx := startRun(t, c)

	if !c.TriggerFetch(ctx) {
		t.Fatal("first TriggerFetch() = false")
	}
	if !c.Busy(OpFetch) {
		t.Fatal("Busy(fetch) = false while running")
	}
	if c.TriggerFetch(ctx) {
		t.Fatal("second TriggerFetch() = true while busy")
	}
	close(release)
	res := waitResult(t, results)
	if res.Op != OpFetch || res.Layout == nil {
		t.Fatalf("result = %+v, want fetch with layout", res)
	}
	eventually(t, "fetch to become idle", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Fatalf("busy transitions = %v, want [true false]", transitions)
	}
}

func TestCoordinator_FailureKeepsLayout(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	src := newFakeSource(lookup, main)
	sink := &recorder{}
	c := New(src, sink, Options{})
	results, ctx := startRun(t, c)

	c.TriggerRefresh(ctx)
	waitResult(t, results)
	before := c.Current()
	eventually(t, "refresh to become idle", func() bool { return !c.Busy(OpRefresh) })

	src.tipsFunc = func(context.Context) ([]graph.Ref, error) {
		return []graph.Ref{{Name: "main", Kind: graph.RefLocal, Target: "gone"}}, nil
	}
	if !c.TriggerRefresh(ctx) {
		t.Fatal("TriggerRefresh() = false after previous refresh finished")
	}
	res := waitResult(t, results)
	if len(res.Errs) != 1 {
		t.Fatalf("Errs = %v, want one", res.Errs)
	}
	if c.Current() != before {
		t.Fatal("failed refresh replaced the published layout")
	}
	entries := sink.all()
	if len(entries) != 1 || entries[0].Kind != report.KindResolution || entries[0].Op != "refresh" {
		t.Fatalf("reported = %+v, want one resolution error", entries)
	}
}

func TestCoordinator_PullConflictStillRefreshes(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	src := newFakeSource(lookup, main)
	src.pullFunc = func(context.Context) (git.PullResult, error) {
		return git.PullResult{}, &git.ConflictError{Branch: "main", Step: 1, Paths: []string{"a.txt"}}
	}
	sink := &recorder{}
	c := New(src, sink, Options{})

	res := c.Pull(context.Background())
	if res.Layout == nil || res.Pull != nil {
		t.Fatalf("result = %+v, want layout and no pull result", res)
	}
	c.Apply(res)
	if c.Current() != res.Layout {
		t.Fatal("layout not published after pull")
	}
	entries := sink.all()
	if len(entries) != 1 || entries[0].Kind != report.KindMergeConflict {
		t.Fatalf("reported = %+v, want merge conflict", entries)
	}
	if !src.unlocked() {
		t.Fatal("lock still held after pull")
	}
}

func TestCoordinator_PullSuccess(t *testing.T) {
	t.Parallel()

	lookup, main := linear()
	src := newFakeSource(lookup, main)
	src.pullFunc = func(context.Context) (git.PullResult, error) {
		return git.PullResult{Outcome: git.PullFastForward, Branch: "main"}, nil
	}
	c := New(src, &recorder{}, Options{})
	results, ctx := startRun(t, c)

	if !c.TriggerPull(ctx) {
		t.Fatal("TriggerPull() = false")
	}
	res := waitResult(t, results)
	if res.Pull == nil || res.Pull.Outcome != git.PullFastForward {
		t.Fatalf("Pull = %+v, want fast-forward", res.Pull)
	}
	if src.locks.Load() != 1 {
		t.Fatalf("lock acquired %d times, want once for pull and rebuild", src.locks.Load())
	}
}
