package widgets

import (
	"math"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/gui/tkutil"
)

const (
	graphCanvasLineWidth = 2
	graphCanvasNodeMinR  = 3

	graphCanvasLabelPadX = 4
	graphCanvasLabelPadY = 2
	graphCanvasLabelGap  = 6

	graphCanvasLabelFont = "TkDefaultFont 9"
	graphCanvasTextFont  = "TkDefaultFont 10"
)

// Geometry maps layout locations onto canvas pixels.
type Geometry struct {
	RowPitch    float32
	LaneSpacing float32
	Margin      float32
}

func (g Geometry) LaneX(lane int) int {
	return int(math.Round(float64(g.Margin + float32(lane)*g.LaneSpacing + g.LaneSpacing/2)))
}

// RowY returns the vertical center of row.
func (g Geometry) RowY(row int) int {
	return int(math.Round(float64(float32(row)*g.RowPitch + g.RowPitch/2)))
}

// Height is the scroll region height for total rows.
func (g Geometry) Height(total int) int {
	return int(math.Ceil(float64(float32(max(total, 0)) * g.RowPitch)))
}

// RowAt returns the row under canvas y, if any.
func (g Geometry) RowAt(y float64, total int) (int, bool) {
	if g.RowPitch <= 0 || y < 0 {
		return 0, false
	}
	row := int(y / float64(g.RowPitch))
	if row >= total {
		return 0, false
	}
	return row, true
}

func (g Geometry) nodeRadius() int {
	return max(graphCanvasNodeMinR, int(min(g.RowPitch/4, g.LaneSpacing/3)))
}

// LinePoints returns the canvas polyline of a connector piece. Lane changes
// bend halfway down so that lines entering a node arrive vertically.
func (g Geometry) LinePoints(ln graph.Line) []int {
	x1, y1 := g.LaneX(ln.From.Lane), g.RowY(ln.From.Row)
	x2, y2 := g.LaneX(ln.To.Lane), g.RowY(ln.To.Row)
	if x1 == x2 {
		return []int{x1, y1, x2, y2}
	}
	mid := (y1 + y2) / 2
	if ln.To.Lane < ln.From.Lane {
		return []int{x1, y1, x1, mid, x2, y2}
	}
	return []int{x1, y1, x2, mid, x2, y2}
}

type LabelStyle struct {
	Fill    string
	Outline string
	Text    string
}

type Palette struct {
	Background string
	Text       string
	Selection  string
	NodeFill   string
	HeadFill   string
	Lanes      []string

	Local  LabelStyle
	Remote LabelStyle
	Tag    LabelStyle
	Head   LabelStyle
}

func (p Palette) lane(color int) string {
	if len(p.Lanes) == 0 {
		return p.Text
	}
	return p.Lanes[color%len(p.Lanes)]
}

// LabelStyleFor picks the style of a ref label.
func (p Palette) LabelStyleFor(lb graph.RefLabel) LabelStyle {
	switch {
	case lb.IsHead || lb.Kind == graph.RefHead:
		return p.Head
	case lb.Kind == graph.RefTag:
		return p.Tag
	case lb.Kind == graph.RefRemote:
		return p.Remote
	default:
		return p.Local
	}
}

// GraphCanvas paints frames onto a Tk canvas. It keeps no layout state;
// every paint replaces the previous one.
type GraphCanvas struct {
	redrawPending bool
}

// ScheduleRedraw coalesces redraw requests made before the next idle event.
func (g *GraphCanvas) ScheduleRedraw(redraw func()) {
	if g.redrawPending {
		return
	}
	g.redrawPending = true
	PostEvent(func() {
		g.redrawPending = false
		if redraw != nil {
			redraw()
		}
	}, false)
}

// Paint draws f. selected is the highlighted row, or -1.
func (g *GraphCanvas) Paint(canvas *CanvasWidget, f graph.Frame, geo Geometry, pal Palette, selected int, width int) {
	if canvas == nil {
		return
	}
	canvas.Delete("all")
	if selected >= f.Start && selected < f.End {
		top := geo.RowY(selected) - int(geo.RowPitch/2)
		canvas.CreateRectangle(0, top, width, top+int(geo.RowPitch), Fill(pal.Selection), Width(0))
	}
	for _, ln := range f.Lines {
		pts := geo.LinePoints(ln)
		args := make([]any, 0, len(pts)+2)
		for _, p := range pts {
			args = append(args, p)
		}
		args = append(args, Width(graphCanvasLineWidth), Fill(pal.lane(ln.Color)))
		canvas.CreateLine(args...)
	}
	r := geo.nodeRadius()
	for _, n := range f.Nodes {
		x, y := geo.LaneX(n.At.Lane), geo.RowY(n.At.Row)
		fill := pal.NodeFill
		if n.IsHead {
			fill = pal.HeadFill
		}
		outline := 1
		if n.Merge {
			outline = 2
		}
		canvas.CreateOval(x-r, y-r, x+r, y+r, Fill(fill), Outline(pal.lane(n.Color)), Width(outline))
	}
	for _, t := range f.Texts {
		drawText(canvas, geo, pal, t, width)
	}
}

func drawText(canvas *CanvasWidget, geo Geometry, pal Palette, t graph.Text, width int) {
	y := geo.RowY(t.At.Row)
	x := geo.LaneX(t.At.Lane) - int(geo.LaneSpacing/2)
	for _, lb := range t.Labels {
		if width > 0 && x >= width-graphCanvasLabelGap {
			return
		}
		style := pal.LabelStyleFor(lb)
		textID := canvas.CreateText(
			x+graphCanvasLabelPadX, y,
			Anchor(W),
			Txt(lb.Display()),
			Font(graphCanvasLabelFont),
			Fill(style.Text),
		)
		bbox := canvas.Bbox(textID)
		if len(bbox) < 4 {
			continue
		}
		x1 := tkutil.Atoi(bbox[0]) - graphCanvasLabelPadX
		y1 := tkutil.Atoi(bbox[1]) - graphCanvasLabelPadY
		x2 := tkutil.Atoi(bbox[2]) + graphCanvasLabelPadX
		y2 := tkutil.Atoi(bbox[3]) + graphCanvasLabelPadY
		rectID := canvas.CreateRectangle(x1, y1, x2, y2, Fill(style.Fill), Outline(style.Outline), Width(1))
		tkutil.EvalOrEmpty("%s lower %s %s", canvas, rectID, textID)
		x = x2 + graphCanvasLabelGap
	}
	caption := t.ID.Short()
	if t.Summary != "" {
		caption += "  " + t.Summary
	}
	canvas.CreateText(x, y, Anchor(W), Txt(caption), Font(graphCanvasTextFont), Fill(pal.Text))
}
