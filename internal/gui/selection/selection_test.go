package selection

import (
	"testing"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

func layoutOf(t *testing.T, ids ...graph.ID) *graph.Layout {
	t.Helper()
	lookup := graph.MapLookup{}
	order := make(graph.Order, 0, len(ids))
	for i, id := range ids {
		c := &graph.Commit{ID: id, Time: int64(len(ids) - i)}
		if i+1 < len(ids) {
			c.Parents = []graph.ID{ids[i+1]}
		}
		lookup[id] = c
		order = append(order, id)
	}
	l, err := graph.BuildLayout(order, lookup)
	if err != nil {
		t.Fatalf("BuildLayout: %v", err)
	}
	return l
}

func TestStateRow(t *testing.T) {
	l := layoutOf(t, "c", "b", "a")

	t.Run("empty", func(t *testing.T) {
		var sel State
		if got := sel.Row(l); got != -1 {
			t.Fatalf("Row() = %d, want -1", got)
		}
	})

	t.Run("direct-hit", func(t *testing.T) {
		var sel State
		sel.Select(l, 1)
		if got := sel.Row(l); got != 1 || sel.ID() != "b" {
			t.Fatalf("Row() = %d, ID() = %q, want 1, b", got, sel.ID())
		}
	})

	t.Run("follows-id-after-swap", func(t *testing.T) {
		var sel State
		sel.Select(l, 0)
		grown := layoutOf(t, "d", "c", "b", "a")
		if got := sel.Row(grown); got != 1 {
			t.Fatalf("Row() after swap = %d, want 1", got)
		}
	})

	t.Run("commit-gone", func(t *testing.T) {
		var sel State
		sel.Select(l, 0)
		if got := sel.Row(layoutOf(t, "x", "y")); got != -1 {
			t.Fatalf("Row() = %d, want -1", got)
		}
	})

	t.Run("out-of-range-clears", func(t *testing.T) {
		var sel State
		sel.Select(l, 0)
		if sel.Select(l, 3) {
			t.Fatal("Select(3) = true on a 3-row layout")
		}
		if sel.ID() != "" {
			t.Fatalf("ID() = %q after clearing", sel.ID())
		}
	})
}

func TestStateMove(t *testing.T) {
	l := layoutOf(t, "c", "b", "a")
	var sel State
	if got := sel.Move(l, 1); got != 0 {
		t.Fatalf("first Move() = %d, want 0", got)
	}
	if got := sel.Move(l, 5); got != 2 {
		t.Fatalf("Move(5) = %d, want clamp to 2", got)
	}
	if got := sel.Move(l, -1); got != 1 || sel.ID() != "b" {
		t.Fatalf("Move(-1) = %d (%s), want 1 (b)", got, sel.ID())
	}
	if got := sel.Move(nil, 1); got != -1 {
		t.Fatalf("Move on nil layout = %d, want -1", got)
	}
}
