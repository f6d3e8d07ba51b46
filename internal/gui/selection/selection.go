package selection

import (
	"sync/atomic"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

type snapshot struct {
	id  graph.ID
	row int
}

// State remembers the selected commit across layout swaps. The row is a
// hint; the id is authoritative.
type State struct {
	snapshot atomic.Pointer[snapshot]
}

func (s *State) Clear() {
	s.snapshot.Store(nil)
}

// Select selects row of l, clearing the selection when row is out of range.
func (s *State) Select(l *graph.Layout, row int) bool {
	if row < 0 || row >= l.Len() {
		s.Clear()
		return false
	}
	s.snapshot.Store(&snapshot{id: l.Row(row).ID, row: row})
	return true
}

func (s *State) ID() graph.ID {
	if snap := s.snapshot.Load(); snap != nil {
		return snap.id
	}
	return ""
}

// Row returns the row of the selected commit in l, or -1 when nothing is
// selected or l no longer shows it.
func (s *State) Row(l *graph.Layout) int {
	snap := s.snapshot.Load()
	if snap == nil {
		return -1
	}
	if snap.row >= 0 && snap.row < l.Len() && l.Row(snap.row).ID == snap.id {
		return snap.row
	}
	if row, ok := l.RowOf(snap.id); ok {
		s.snapshot.Store(&snapshot{id: snap.id, row: row})
		return row
	}
	return -1
}

// Move selects the row delta rows away from the current one, clamped to
// l. With nothing selected it starts from the first row.
func (s *State) Move(l *graph.Layout, delta int) int {
	if l.Len() == 0 {
		return -1
	}
	row := s.Row(l)
	if row < 0 {
		row = 0
	} else {
		row = min(max(row+delta, 0), l.Len()-1)
	}
	s.Select(l, row)
	return row
}
