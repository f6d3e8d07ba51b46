package graph

import "math"

// VisibleRows returns the half-open row range [start, end) to materialise
// for a viewport scrolled to scrollOffset, padded by paddingRows on each side.
func VisibleRows(scrollOffset, viewportHeight, rowPitch float32, totalRows, paddingRows int) (int, int) {
	if totalRows <= 0 || rowPitch <= 0 || math.IsNaN(float64(rowPitch)) {
		return 0, 0
	}
	offset := float64(scrollOffset)
	if offset < 0 || math.IsNaN(offset) {
		offset = 0
	}
	height := float64(viewportHeight)
	if height < 0 || math.IsNaN(height) {
		height = 0
	}
	pad := max(paddingRows, 0)
	pitch := float64(rowPitch)
	total := float64(totalRows)

	first := min(math.Floor(offset/pitch), total)
	last := min(math.Ceil((offset+height)/pitch), total)
	start := clampRow(int(first)-pad, totalRows)
	end := clampRow(int(last)+pad, totalRows)
	return start, max(start, end)
}

func clampRow(v, total int) int {
	return min(max(v, 0), total)
}

// NodeMark is a commit node to draw.
type NodeMark struct {
	At     Location
	ID     ID
	Color  int
	IsHead bool
	Merge  bool
}

// Line is a connector piece between two adjacent rows.
type Line struct {
	From  Location
	To    Location
	Color int
}

// Text is a row summary with its ref labels, drawn from At.Lane onwards.
type Text struct {
	At      Location
	ID      ID
	Summary string
	Labels  []RefLabel
}

// Frame holds the draw primitives for rows [Start, End).
type Frame struct {
	Start, End int
	Lanes      int
	Nodes      []NodeMark
	Lines      []Line
	Texts      []Text
}

// Materialize turns rows [start, end) of l into draw primitives. Lines that
// start on row start-1 and end inside the window are included.
func Materialize(l *Layout, start, end int) Frame {
	start = clampRow(start, l.Len())
	end = clampRow(end, l.Len())
	f := Frame{Start: start, End: max(start, end), Lanes: l.Lanes()}
	if f.Start == f.End {
		return f
	}
	for r := max(start-1, 0); r < f.End; r++ {
		row := l.rows[r]
		for _, s := range row.Segments {
			if s.To.Row < start {
				continue
			}
			f.Lines = append(f.Lines, Line{From: s.From, To: s.To, Color: s.Color})
		}
		if r < start {
			continue
		}
		f.Nodes = append(f.Nodes, NodeMark{
			At:     row.Node,
			ID:     row.ID,
			Color:  row.Node.Lane,
			IsHead: hasHead(row.Labels),
			Merge:  mergeRow(row),
		})
		f.Texts = append(f.Texts, Text{At: row.Text, ID: row.ID, Summary: row.Summary, Labels: row.Labels})
	}
	return f
}

func hasHead(labels []RefLabel) bool {
	for _, lb := range labels {
		if lb.IsHead {
			return true
		}
	}
	return false
}

// mergeRow reports whether more than one line leaves the row's node.
func mergeRow(row Row) bool {
	n := 0
	for _, s := range row.Segments {
		if s.Kind == SegmentDirect || s.Kind == SegmentEntry {
			n++
		}
	}
	return n > 1
}
