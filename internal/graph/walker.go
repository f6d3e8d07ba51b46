package graph

import (
	"log/slog"
	"slices"

	"github.com/emirpasic/gods/trees/binaryheap"
)

type WalkOptions struct {
	// IncludeRemotes also seeds traversal from remote-tracking branches.
	IncludeRemotes bool
}

type walkNode struct {
	commit  *Commit
	rank    int // index of the first seed that reached this commit
	seq     int // discovery order
	pending int // reachable children not yet emitted
}

// BuildOrder returns every commit reachable from the seeding tips, children
// always before parents. Among commits that are ready at the same time, the
// one reached from the earliest seed wins, then the newest, then the first
// discovered.
func BuildOrder(tips []Ref, lookup Lookup, opts WalkOptions) (Order, error) {
	seeds, err := seedCommits(tips, lookup, opts)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return Order{}, nil
	}

	nodes := make(map[ID]*walkNode)
	var stack []*walkNode
	for rank, c := range seeds {
		if _, ok := nodes[c.ID]; ok {
			continue
		}
		n := &walkNode{commit: c, rank: rank, seq: len(nodes)}
		nodes[c.ID] = n
		stack = append(stack, n)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, pid := range cur.commit.Parents {
				if pn, ok := nodes[pid]; ok {
					pn.pending++
					continue
				}
				pc, err := resolve(lookup, pid, cur.commit.ID)
				if err != nil {
					return nil, err
				}
				pn := &walkNode{commit: pc, rank: rank, seq: len(nodes), pending: 1}
				nodes[pid] = pn
				stack = append(stack, pn)
			}
		}
	}

	ready := binaryheap.NewWith(func(a, b interface{}) int {
		x, y := a.(*walkNode), b.(*walkNode)
		switch {
		case x.rank != y.rank:
			return x.rank - y.rank
		case x.commit.Time != y.commit.Time:
			if x.commit.Time > y.commit.Time {
				return -1
			}
			return 1
		default:
			return x.seq - y.seq
		}
	})
	for _, n := range nodes {
		if n.pending == 0 {
			ready.Push(n)
		}
	}

	order := make(Order, 0, len(nodes))
	for !ready.Empty() {
		v, _ := ready.Pop()
		n := v.(*walkNode)
		order = append(order, n.commit.ID)
		for _, pid := range n.commit.Parents {
			pn := nodes[pid]
			pn.pending--
			if pn.pending == 0 {
				ready.Push(pn)
			}
		}
	}
	if len(order) != len(nodes) {
		slog.Error("revision walk stalled",
			slog.Int("emitted", len(order)),
			slog.Int("reachable", len(nodes)),
		)
		return nil, ErrCycle
	}
	return order, nil
}

func seedCommits(tips []Ref, lookup Lookup, opts WalkOptions) ([]*Commit, error) {
	seen := make(map[ID]struct{}, len(tips))
	var seeds []*Commit
	add := func(id ID) error {
		if id == "" {
			return nil
		}
		if _, ok := seen[id]; ok {
			return nil
		}
		seen[id] = struct{}{}
		c, err := resolve(lookup, id, "")
		if err != nil {
			return err
		}
		seeds = append(seeds, c)
		return nil
	}
	for _, ref := range tips {
		if ref.Kind == RefLocal || (opts.IncludeRemotes && ref.Kind == RefRemote) {
			if err := add(ref.Target); err != nil {
				return nil, err
			}
		}
	}
	for _, ref := range tips {
		if ref.Kind == RefHead {
			if err := add(ref.Target); err != nil {
				return nil, err
			}
		}
	}
	slices.SortStableFunc(seeds, func(a, b *Commit) int {
		switch {
		case a.Time > b.Time:
			return -1
		case a.Time < b.Time:
			return 1
		default:
			return 0
		}
	})
	return seeds, nil
}
