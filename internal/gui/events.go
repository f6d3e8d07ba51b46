package gui

import (
	"fmt"
	"log/slog"
	"strings"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/refresh"
	"github.com/thiagokokada/gitlanes/internal/report"
)

// connectCoordinator forwards coordinator and sink callbacks, which run on
// background goroutines, to the Tk event loop.
func (a *Controller) connectCoordinator() {
	a.coord.OnPublish(func(l *graph.Layout) {
		PostEvent(func() { a.onLayoutPublished(l) }, false)
	})
	a.coord.OnBusyChange(func(op refresh.Op, busy bool) {
		PostEvent(func() { a.onBusyChange(op, busy) }, false)
	})
	a.coord.OnResult(func(res refresh.Result) {
		PostEvent(func() { a.onResult(res) }, false)
	})
	a.sink.Subscribe(func(report.Entry) {
		PostEvent(a.showNextReport, false)
	})
}

func (a *Controller) onLayoutPublished(l *graph.Layout) {
	a.updateScrollRegion(l)
	if row := a.state.selection.Row(l); row < 0 {
		a.state.selection.Clear()
	}
	a.scheduleRedraw()
	a.refreshRepoStatusAsync()
}

func (a *Controller) onBusyChange(op refresh.Op, busy bool) {
	switch op {
	case refresh.OpRefresh:
		a.setButtonEnabled(a.ui.reloadButton, !busy)
	case refresh.OpFetch:
		a.setButtonEnabled(a.ui.fetchButton, !busy)
	case refresh.OpPull:
		a.setButtonEnabled(a.ui.pullButton, !busy)
	}
}

func (a *Controller) onResult(res refresh.Result) {
	slog.Debug("operation finished",
		slog.String("op", res.Op.String()),
		slog.Int("errors", len(res.Errs)),
	)
	if msg := resultStatus(res); msg != "" {
		a.setStatus(msg)
	}
}

// resultStatus is the status line after an operation, empty when the
// repository summary should be shown instead.
func resultStatus(res refresh.Result) string {
	if len(res.Errs) > 0 {
		return fmt.Sprintf("%s failed: %v", capitalize(res.Op.String()), res.Errs[0])
	}
	switch res.Op {
	case refresh.OpFetch:
		return "Fetch complete."
	case refresh.OpPull:
		if res.Pull == nil {
			return ""
		}
		switch res.Pull.Outcome {
		case git.PullFastForward:
			return fmt.Sprintf("Fast-forwarded %s to %s.", res.Pull.Branch, res.Pull.Head.Short())
		case git.PullRebased:
			return fmt.Sprintf("Rebased %d local commit(s) of %s onto %s.", res.Pull.Replayed, res.Pull.Branch, res.Pull.Upstream)
		default:
			return fmt.Sprintf("%s is already up to date with %s.", res.Pull.Branch, res.Pull.Upstream)
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// refreshRepoStatusAsync reads HEAD and the working tree status off the Tk
// thread and shows them in the status line.
func (a *Controller) refreshRepoStatusAsync() {
	commits := a.coord.Current().Len()
	go func() {
		head, err := a.svc.HeadState(a.ctx)
		if err != nil {
			slog.Error("head state", slog.Any("error", err))
			return
		}
		if err := a.svc.Lock(a.ctx); err != nil {
			return
		}
		changes, err := a.svc.LocalChanges(a.ctx)
		a.svc.Unlock()
		if err != nil {
			slog.Error("local changes", slog.Any("error", err))
			return
		}
		PostEvent(func() {
			a.repo.head = head
			a.repo.changes = changes
			a.setStatus(repoSummary(a.repo.path, head, changes, commits))
		}, false)
	}()
}

func repoSummary(path string, head git.HeadState, changes git.LocalChanges, commits int) string {
	var where string
	switch {
	case head.Unborn:
		where = fmt.Sprintf("%s (no commits yet)", head.Branch)
	case head.Detached:
		where = fmt.Sprintf("detached HEAD at %s", head.Target.Short())
	default:
		where = head.Branch
	}
	summary := fmt.Sprintf("%d commits on %s in %s", commits, where, path)
	var dirty []string
	if changes.HasConflicts {
		dirty = append(dirty, "conflicts")
	}
	if changes.HasStaged {
		dirty = append(dirty, "staged changes")
	}
	if changes.HasWorktree {
		dirty = append(dirty, "unstaged changes")
	}
	if len(dirty) > 0 {
		summary += fmt.Sprintf(" (%s)", strings.Join(dirty, ", "))
	}
	return summary
}

// showNextReport shows the oldest undismissed report and dismisses it when
// the dialog closes. Entries reported meanwhile are shown one at a time.
func (a *Controller) showNextReport() {
	if a.state.showingReport {
		return
	}
	entries := a.sink.Entries()
	if len(entries) == 0 {
		return
	}
	e := entries[0]
	title, icon := reportDialog(e)
	a.state.showingReport = true
	MessageBox(
		Parent(App),
		Title(title),
		Icon(icon),
		Msg(e.Message),
		Detail(e.Detail),
		Type("ok"),
	)
	a.state.showingReport = false
	a.sink.Dismiss(e.ID)
	if len(entries) > 1 {
		PostEvent(a.showNextReport, false)
	}
}

func reportDialog(e report.Entry) (title, icon string) {
	switch e.Kind {
	case report.KindMergeConflict:
		return "Pull aborted", "warning"
	case report.KindConfigBlocked:
		return "Pull blocked", "warning"
	case report.KindResolution:
		return fmt.Sprintf("Unable to %s", e.Op), "error"
	default:
		return fmt.Sprintf("%s failed", capitalize(e.Op)), "error"
	}
}
