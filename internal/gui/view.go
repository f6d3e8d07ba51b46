package gui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/gui/tkutil"
	"github.com/thiagokokada/gitlanes/internal/gui/widgets"
)

func (a *Controller) scheduleRedraw() {
	a.state.painter.ScheduleRedraw(a.redraw)
}

// redraw paints the rows that intersect the viewport. Only the
// materialised window is drawn; the scroll region covers every row.
func (a *Controller) redraw() {
	canvas := a.ui.graphCanvas
	if canvas == nil {
		return
	}
	l := a.coord.Current()
	first, _, err := tkutil.ParseView(tkutil.EvalOrEmpty("%s yview", canvas))
	if err != nil {
		first = 0
	}
	height := tkutil.Atoi(tkutil.EvalOrEmpty("winfo height %s", canvas))
	width := tkutil.Atoi(tkutil.EvalOrEmpty("winfo width %s", canvas))
	geo := a.cfg.geometry
	start, end := graph.VisibleRows(
		scrollOffset(first, l.Len(), geo),
		float32(height),
		geo.RowPitch,
		l.Len(),
		a.cfg.paddingRows,
	)
	frame := graph.Materialize(l, start, end)
	a.state.painter.Paint(canvas, frame, geo, a.theme.palette.Graph, a.state.selection.Row(l), width)
	slog.Debug("graph redraw",
		slog.Int("start", frame.Start),
		slog.Int("end", frame.End),
		slog.Int("lines", len(frame.Lines)),
	)
}

// scrollOffset converts the first visible fraction of the scroll region
// into a pixel offset.
func scrollOffset(first float64, total int, geo widgets.Geometry) float32 {
	if first <= 0 || total <= 0 {
		return 0
	}
	return float32(first * float64(geo.Height(total)))
}

func (a *Controller) updateScrollRegion(l *graph.Layout) {
	if a.ui.graphCanvas == nil {
		return
	}
	geo := a.cfg.geometry
	width := geo.LaneX(l.Lanes()) + int(geo.LaneSpacing)
	tkutil.EvalOrEmpty("%s configure -scrollregion {0 0 %d %d}", a.ui.graphCanvas, width, geo.Height(l.Len()))
}

func (a *Controller) selectAt(y int) {
	l := a.coord.Current()
	cy, err := strconv.ParseFloat(strings.TrimSpace(tkutil.EvalOrEmpty("%s canvasy %d", a.ui.graphCanvas, y)), 64)
	if err != nil {
		return
	}
	row, ok := a.cfg.geometry.RowAt(cy, l.Len())
	if !ok {
		return
	}
	a.state.selection.Select(l, row)
	a.onSelectionChanged(l, row)
}

func (a *Controller) moveSelection(delta int) {
	l := a.coord.Current()
	row := a.state.selection.Move(l, delta)
	if row < 0 {
		return
	}
	a.seeRow(l, row)
	a.onSelectionChanged(l, row)
}

func (a *Controller) selectEdge(last bool) {
	l := a.coord.Current()
	if l.Len() == 0 {
		return
	}
	row := 0
	if last {
		row = l.Len() - 1
	}
	a.state.selection.Select(l, row)
	a.seeRow(l, row)
	a.onSelectionChanged(l, row)
}

// seeRow scrolls the canvas just enough to show row.
func (a *Controller) seeRow(l *graph.Layout, row int) {
	canvas := a.ui.graphCanvas
	first, last, err := tkutil.ParseView(tkutil.EvalOrEmpty("%s yview", canvas))
	if err != nil || l.Len() == 0 {
		return
	}
	if frac, ok := seeFraction(first, last, row, l.Len()); ok {
		tkutil.EvalOrEmpty("%s yview moveto %f", canvas, frac)
	}
}

// seeFraction returns the yview fraction that brings row into the window
// [first, last), or false when it is already visible.
func seeFraction(first, last float64, row, total int) (float64, bool) {
	top := float64(row) / float64(total)
	bottom := float64(row+1) / float64(total)
	switch {
	case top < first:
		return top, true
	case bottom > last:
		return max(bottom-(last-first), 0), true
	default:
		return 0, false
	}
}

func (a *Controller) scrollPages(delta int) {
	if _, err := tkutil.Eval("%s yview scroll %d pages", a.ui.graphCanvas, delta); err != nil {
		slog.Error("graph scroll", slog.Any("error", err))
	}
}

func (a *Controller) onSelectionChanged(l *graph.Layout, row int) {
	a.setStatus(describeRow(l.Row(row)))
	a.scheduleRedraw()
}

func describeRow(r graph.Row) string {
	var labels []string
	for _, lb := range r.Labels {
		labels = append(labels, lb.Display())
	}
	desc := fmt.Sprintf("%s %s", r.ID, r.Summary)
	if len(labels) > 0 {
		desc += fmt.Sprintf(" [%s]", strings.Join(labels, ", "))
	}
	return desc
}
