// Package textgraph draws materialised graph frames as terminal text.
package textgraph

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

const (
	glyphNode  = "●"
	glyphMerge = "◎"
	glyphHead  = "◉"
)

var laneColors = []lipgloss.Color{
	lipgloss.Color("#00D7FF"),
	lipgloss.Color("#AF87FF"),
	lipgloss.Color("#00FF87"),
	lipgloss.Color("#FFD700"),
	lipgloss.Color("#FF5F87"),
	lipgloss.Color("#5FD7FF"),
	lipgloss.Color("#FFD787"),
	lipgloss.Color("#87FFD7"),
}

// Each lane takes two columns: the lane itself and a gap used by
// horizontal connector pieces.
const laneWidth = 2

type dir uint8

const (
	up dir = 1 << iota
	down
	left
	right
)

var boxGlyphs = map[dir]string{
	up:                       "│",
	down:                     "│",
	up | down:                "│",
	left:                     "─",
	right:                    "─",
	left | right:             "─",
	down | right:             "┌",
	down | left:              "┐",
	up | right:               "└",
	up | left:                "┘",
	up | down | right:        "├",
	up | down | left:         "┤",
	left | right | down:      "┬",
	left | right | up:        "┴",
	up | down | left | right: "┼",
}

type cell struct {
	dirs  dir
	node  string
	color int
}

type line []cell

func (l line) add(col int, d dir, color int) {
	if col < 0 || col >= len(l) {
		return
	}
	l[col].dirs |= d
	l[col].color = color
}

func (l line) glyph(col int) string {
	if c := l[col]; c.node != "" {
		return c.node
	} else if g, ok := boxGlyphs[c.dirs]; ok {
		return g
	}
	return " "
}

type Renderer struct {
	lanes []lipgloss.Style
	id    lipgloss.Style
	label lipgloss.Style
	head  lipgloss.Style
}

// New returns a renderer whose color profile follows w.
func New(w io.Writer) *Renderer {
	re := lipgloss.NewRenderer(w)
	r := &Renderer{
		id:    re.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		label: re.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD7FF")),
		head:  re.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF87")),
	}
	for _, c := range laneColors {
		r.lanes = append(r.lanes, re.NewStyle().Foreground(c))
	}
	return r
}

// Render draws one text line per row of f, with a connector line between
// consecutive rows.
func (r *Renderer) Render(f graph.Frame) string {
	var b strings.Builder
	for i, text := range f.Texts {
		row := f.Start + i
		b.WriteString(r.nodeLine(f, f.Nodes[i], text, row))
		b.WriteByte('\n')
		if row+1 < f.End {
			b.WriteString(r.connectorLine(f, row))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) nodeLine(f graph.Frame, node graph.NodeMark, text graph.Text, row int) string {
	cells := make(line, max(text.At.Lane, 1)*laneWidth)
	for _, ln := range f.Lines {
		if ln.To.Row == row {
			cells.add(ln.To.Lane*laneWidth, up|down, ln.Color)
		}
		if ln.From.Row == row {
			cells.add(ln.From.Lane*laneWidth, up|down, ln.Color)
		}
	}
	if col := node.At.Lane * laneWidth; col < len(cells) {
		cells[col].node = nodeGlyph(node)
		cells[col].color = node.Color
	}

	var b strings.Builder
	r.writeCells(&b, cells, len(cells))
	b.WriteString(r.caption(text))
	return b.String()
}

func nodeGlyph(n graph.NodeMark) string {
	switch {
	case n.IsHead:
		return glyphHead
	case n.Merge:
		return glyphMerge
	default:
		return glyphNode
	}
}

// connectorLine draws the lines leaving row towards row+1. A line changing
// lanes turns at its upper lane, runs sideways and turns down at its lower one.
func (r *Renderer) connectorLine(f graph.Frame, row int) string {
	cells := make(line, max(f.Lanes, 1)*laneWidth)
	for _, ln := range f.Lines {
		if ln.From.Row != row {
			continue
		}
		from, to := ln.From.Lane*laneWidth, ln.To.Lane*laneWidth
		switch {
		case from == to:
			cells.add(from, up|down, ln.Color)
		case to < from:
			cells.add(from, up|left, ln.Color)
			for c := to + 1; c < from; c++ {
				cells.add(c, left|right, ln.Color)
			}
			cells.add(to, down|right, ln.Color)
		default:
			cells.add(from, up|right, ln.Color)
			for c := from + 1; c < to; c++ {
				cells.add(c, left|right, ln.Color)
			}
			cells.add(to, down|left, ln.Color)
		}
	}
	last := len(cells)
	for last > 0 && cells.glyph(last-1) == " " {
		last--
	}
	var b strings.Builder
	r.writeCells(&b, cells, last)
	return b.String()
}

func (r *Renderer) writeCells(b *strings.Builder, cells line, n int) {
	for col := range n {
		g := cells.glyph(col)
		if g == " " {
			b.WriteString(g)
			continue
		}
		b.WriteString(r.lanes[cells[col].color%len(r.lanes)].Render(g))
	}
}

func (r *Renderer) caption(t graph.Text) string {
	parts := []string{r.id.Render(t.ID.Short())}
	if len(t.Labels) > 0 {
		labels := make([]string, 0, len(t.Labels))
		for _, lb := range t.Labels {
			style := r.label
			if lb.IsHead {
				style = r.head
			}
			labels = append(labels, style.Render(lb.Display()))
		}
		parts = append(parts, "("+strings.Join(labels, ", ")+")")
	}
	if t.Summary != "" {
		parts = append(parts, t.Summary)
	}
	return strings.Join(parts, " ")
}
