// Package refresh rebuilds the commit graph and publishes it atomically
// after background fetch and pull operations.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/report"
)

// Source is the repository the coordinator reads and mutates. Every call
// other than Lock is made with the lock held.
type Source interface {
	Lock(ctx context.Context) error
	Unlock()
	Tips(ctx context.Context) ([]graph.Ref, error)
	Lookup() graph.Lookup
	Fetch(ctx context.Context) error
	Pull(ctx context.Context) (git.PullResult, error)
}

type Reporter interface {
	Report(op string, err error) report.Entry
}

type Options struct {
	Walk graph.WalkOptions
}

// Build runs the walk, layout and decoration pipeline under the repository
// lock and returns a layout ready to publish.
func Build(ctx context.Context, src Source, opts Options) (*graph.Layout, error) {
	if err := src.Lock(ctx); err != nil {
		return nil, err
	}
	defer src.Unlock()
	return build(ctx, src, opts)
}

func build(ctx context.Context, src Source, opts Options) (*graph.Layout, error) {
	start := time.Now()
	tips, err := src.Tips(ctx)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	lookup := src.Lookup()
	order, err := graph.BuildOrder(tips, lookup, opts.Walk)
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layout, err := graph.BuildLayout(order, lookup)
	if err != nil {
		return nil, fmt.Errorf("lay out graph: %w", err)
	}
	skipped := graph.Decorate(layout, tips)
	slog.Debug("graph rebuilt",
		slog.Int("commits", layout.Len()),
		slog.Int("lanes", layout.Lanes()),
		slog.Int("skipped_refs", skipped),
		slog.Duration("took", time.Since(start)),
	)
	return layout, nil
}

type Op uint8

const (
	OpRefresh Op = iota
	OpFetch
	OpPull
	opCount
)

func (o Op) String() string {
	switch o {
	case OpRefresh:
		return "refresh"
	case OpFetch:
		return "fetch"
	case OpPull:
		return "pull"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Result is what a worker hands to the receive loop. Layout is nil when
// the rebuild failed; Errs holds every failure of the operation. Gen is
// taken under the repository lock and orders layouts by the repository
// state they were built from.
type Result struct {
	Op     Op
	Gen    uint64
	Layout *graph.Layout
	Pull   *git.PullResult
	Errs   []error
}

// Coordinator owns the published layout. Workers compute new layouts off
// the caller's goroutine; Run applies their results one at a time.
type Coordinator struct {
	src  Source
	opts Options
	sink Reporter

	current atomic.Pointer[graph.Layout]
	busy    [opCount]atomic.Bool
	results chan Result
	gen     atomic.Uint64
	// queued asks Run to start another refresh once the running one is applied.
	queued atomic.Bool

	mu        sync.Mutex
	published uint64 // Gen of the current layout
	onPublish []func(*graph.Layout)
	onBusy    []func(Op, bool)
	onResult  []func(Result)
}

func New(src Source, sink Reporter, opts Options) *Coordinator {
	return &Coordinator{
		src:     src,
		opts:    opts,
		sink:    sink,
		results: make(chan Result),
	}
}

// Current returns the published layout, nil before the first publish.
func (c *Coordinator) Current() *graph.Layout {
	return c.current.Load()
}

func (c *Coordinator) Busy(op Op) bool {
	return c.busy[op].Load()
}

// OnPublish registers fn to run on the Run goroutine after each swap.
func (c *Coordinator) OnPublish(fn func(*graph.Layout)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPublish = append(c.onPublish, fn)
}

// OnBusyChange registers fn to run whenever an operation starts or finishes.
func (c *Coordinator) OnBusyChange(fn func(Op, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBusy = append(c.onBusy, fn)
}

// OnResult registers fn to run on the Run goroutine after a result is applied.
func (c *Coordinator) OnResult(fn func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = append(c.onResult, fn)
}

// Refresh rebuilds the layout on the calling goroutine.
func (c *Coordinator) Refresh(ctx context.Context) Result {
	res := Result{Op: OpRefresh}
	err := c.locked(ctx, func() error {
		res.Gen = c.gen.Add(1)
		layout, err := build(ctx, c.src, c.opts)
		res.Layout = layout
		return err
	})
	if err != nil {
		res.Errs = append(res.Errs, err)
	}
	return res
}

// Fetch fetches every remote and rebuilds on the calling goroutine. The
// rebuild runs even when some remotes failed.
func (c *Coordinator) Fetch(ctx context.Context) Result {
	res := Result{Op: OpFetch}
	err := c.locked(ctx, func() error {
		if err := c.src.Fetch(ctx); err != nil {
			res.Errs = append(res.Errs, err)
		}
		res.Gen = c.gen.Add(1)
		layout, err := build(ctx, c.src, c.opts)
		res.Layout = layout
		return err
	})
	if err != nil {
		res.Errs = append(res.Errs, err)
	}
	return res
}

// Pull pulls the current branch and rebuilds on the calling goroutine.
func (c *Coordinator) Pull(ctx context.Context) Result {
	res := Result{Op: OpPull}
	err := c.locked(ctx, func() error {
		pr, err := c.src.Pull(ctx)
		if err != nil {
			res.Errs = append(res.Errs, err)
		} else {
			res.Pull = &pr
		}
		res.Gen = c.gen.Add(1)
		layout, err := build(ctx, c.src, c.opts)
		res.Layout = layout
		return err
	})
	if err != nil {
		res.Errs = append(res.Errs, err)
	}
	return res
}

func (c *Coordinator) locked(ctx context.Context, fn func() error) error {
	if err := c.src.Lock(ctx); err != nil {
		return err
	}
	defer c.src.Unlock()
	return fn()
}

func (c *Coordinator) TriggerRefresh(ctx context.Context) bool {
	return c.trigger(ctx, OpRefresh, c.Refresh)
}

// RequestRefresh starts a refresh, or queues one to run after the refresh
// already in flight.
func (c *Coordinator) RequestRefresh(ctx context.Context) {
	if c.TriggerRefresh(ctx) {
		return
	}
	c.queued.Store(true)
	// The running refresh may have been applied before the flag was set.
	if !c.Busy(OpRefresh) && c.queued.CompareAndSwap(true, false) {
		c.TriggerRefresh(ctx)
	}
}

func (c *Coordinator) TriggerFetch(ctx context.Context) bool {
	return c.trigger(ctx, OpFetch, c.Fetch)
}

func (c *Coordinator) TriggerPull(ctx context.Context) bool {
	return c.trigger(ctx, OpPull, c.Pull)
}

// trigger starts op on a worker goroutine unless it is already running.
// The busy flag is cleared once Run has applied the result.
func (c *Coordinator) trigger(ctx context.Context, op Op, run func(context.Context) Result) bool {
	if !c.busy[op].CompareAndSwap(false, true) {
		slog.Debug("operation already running", slog.String("op", op.String()))
		return false
	}
	c.notifyBusy(op, true)
	go func() {
		res := run(ctx)
		select {
		case c.results <- res:
		case <-ctx.Done():
			c.busy[op].Store(false)
			c.notifyBusy(op, false)
		}
	}()
	return true
}

// Run applies worker results until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-c.results:
			c.Apply(res)
			c.busy[res.Op].Store(false)
			c.notifyBusy(res.Op, false)
			if res.Op == OpRefresh && c.queued.CompareAndSwap(true, false) {
				slog.Debug("starting queued refresh")
				c.TriggerRefresh(ctx)
			}
		}
	}
}

// Apply publishes res.Layout when present and reports res.Errs. A failed
// rebuild keeps the previous layout, and a layout older than the published
// one is dropped.
func (c *Coordinator) Apply(res Result) {
	for _, err := range res.Errs {
		if errors.Is(err, context.Canceled) {
			continue
		}
		if c.sink != nil {
			c.sink.Report(res.Op.String(), err)
		}
	}
	c.mu.Lock()
	if res.Layout != nil {
		if res.Gen < c.published {
			slog.Debug("dropping stale layout",
				slog.String("op", res.Op.String()),
				slog.Uint64("gen", res.Gen),
				slog.Uint64("published", c.published),
			)
			res.Layout = nil
		} else {
			c.published = res.Gen
			c.current.Store(res.Layout)
		}
	}
	publish := append([]func(*graph.Layout)(nil), c.onPublish...)
	results := append([]func(Result)(nil), c.onResult...)
	c.mu.Unlock()

	if res.Layout != nil {
		for _, fn := range publish {
			fn(res.Layout)
		}
	}
	for _, fn := range results {
		fn(res)
	}
}

func (c *Coordinator) notifyBusy(op Op, busy bool) {
	c.mu.Lock()
	fns := append([]func(Op, bool)(nil), c.onBusy...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(op, busy)
	}
}
