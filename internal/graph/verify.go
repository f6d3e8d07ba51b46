package graph

import (
	"errors"
	"fmt"
)

var ErrInvalidLayout = errors.New("invalid layout")

// Verify replays lane occupancy from l's nodes and passing lines and
// reports the first slot claimed twice or any segment that does not span
// exactly one row.
func Verify(l *Layout) error {
	claimed := make(map[Location]ID, l.Len())
	claim := func(at Location, by ID) error {
		if prev, ok := claimed[at]; ok {
			return fmt.Errorf("%w: lane %d row %d claimed by %s and %s",
				ErrInvalidLayout, at.Lane, at.Row, prev.Short(), by.Short())
		}
		claimed[at] = by
		return nil
	}
	for r := 0; r < l.Len(); r++ {
		row := l.rows[r]
		if row.Node.Row != r {
			return fmt.Errorf("%w: node of %s placed on row %d, want %d",
				ErrInvalidLayout, row.ID.Short(), row.Node.Row, r)
		}
		if err := claim(row.Node, row.ID); err != nil {
			return err
		}
	}
	for r := 0; r < l.Len(); r++ {
		row := l.rows[r]
		for _, s := range row.Segments {
			if s.From.Row != r || s.To.Row != s.From.Row+1 {
				return fmt.Errorf("%w: segment %v-%v stored on row %d",
					ErrInvalidLayout, s.From, s.To, r)
			}
			if s.To.Row >= l.Len() {
				return fmt.Errorf("%w: segment %v-%v leaves the graph", ErrInvalidLayout, s.From, s.To)
			}
			switch s.Kind {
			case SegmentPass, SegmentFinal:
				if err := claim(s.From, row.ID); err != nil {
					return err
				}
			default:
				if s.From != row.Node {
					return fmt.Errorf("%w: segment of %s does not start at its node",
						ErrInvalidLayout, row.ID.Short())
				}
			}
		}
	}
	return nil
}
