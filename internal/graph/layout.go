package graph

// Location is a (lane, row) slot. Lanes are discrete; renderers scale them.
type Location struct {
	Lane int
	Row  int
}

type SegmentKind uint8

const (
	// SegmentDirect joins a child to a parent on the next row.
	SegmentDirect SegmentKind = iota
	// SegmentEntry leaves a child node towards the first row its line passes through.
	SegmentEntry
	// SegmentPass continues a line between two rows it passes through.
	SegmentPass
	// SegmentFinal leaves the last passed-through row into the parent node.
	SegmentFinal
)

// Segment is one piece of a connector line. From.Row+1 == To.Row always
// holds, so a renderer only needs the segments stored on the rows it draws.
type Segment struct {
	From  Location
	To    Location
	Color int // lane-based palette slot
	Kind  SegmentKind
}

type RefLabel struct {
	Name   string
	Kind   RefKind
	IsHead bool
}

// Display returns the label text, starred for the current head.
func (l RefLabel) Display() string {
	name := l.Name
	switch l.Kind {
	case RefTag:
		name = "tag: " + name
	case RefHead:
		name = "HEAD"
	}
	if l.IsHead {
		return "* " + name
	}
	return name
}

type Row struct {
	ID      ID
	Summary string
	Time    int64
	Node    Location
	Text    Location
	// Segments holds every segment that starts on this row.
	Segments []Segment
	Labels   []RefLabel
}

// Layout is an immutable snapshot of the positioned graph once published.
type Layout struct {
	rows  []Row
	index map[ID]int
	lanes int
}

func (l *Layout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rows)
}

// Row returns row i. The returned slices must not be modified.
func (l *Layout) Row(i int) Row {
	return l.rows[i]
}

// RowOf returns the row that displays id.
func (l *Layout) RowOf(id ID) (int, bool) {
	if l == nil {
		return 0, false
	}
	r, ok := l.index[id]
	return r, ok
}

// Lanes returns the number of lanes claimed by nodes and lines.
func (l *Layout) Lanes() int {
	if l == nil {
		return 0
	}
	return l.lanes
}

// laneSet marks claimed lanes at a single row.
type laneSet []bool

func (s laneSet) has(lane int) bool {
	return lane >= 0 && lane < len(s) && s[lane]
}

func (s *laneSet) claim(lane int) {
	for len(*s) <= lane {
		*s = append(*s, false)
	}
	(*s)[lane] = true
}

func (s laneSet) firstFree(from int) int {
	for lane := max(from, 0); ; lane++ {
		if !s.has(lane) {
			return lane
		}
	}
}

func (s laneSet) highest() int {
	for lane := len(s) - 1; lane >= 0; lane-- {
		if s[lane] {
			return lane
		}
	}
	return -1
}

// occupancy is the per-row table of claimed lanes used while building a
// layout. reach additionally records lanes swept by connector jogs.
type occupancy struct {
	rows  []laneSet
	reach []int
}

func newOccupancy(n int) *occupancy {
	o := &occupancy{rows: make([]laneSet, n), reach: make([]int, n)}
	for i := range o.reach {
		o.reach[i] = -1
	}
	return o
}

func (o *occupancy) claim(row, lane int) { o.rows[row].claim(lane) }

func (o *occupancy) reserve(row, lane int) { o.reach[row] = max(o.reach[row], lane) }

func (o *occupancy) widest(row int) int { return max(o.rows[row].highest(), o.reach[row]) }

// route is the line from a child row to one parent row.
type route struct {
	child, parent int
	via           []int // lanes at rows child+1 .. parent-1
}

func (rt route) path(nodeLane []int) []int {
	p := make([]int, 0, len(rt.via)+2)
	p = append(p, nodeLane[rt.child])
	p = append(p, rt.via...)
	return append(p, nodeLane[rt.parent])
}

// BuildLayout positions every commit of order (row = index) and routes
// connector lines to parents that are also in order.
func BuildLayout(order Order, lookup Lookup) (*Layout, error) {
	n := len(order)
	index := make(map[ID]int, n)
	commits := make([]*Commit, n)
	for r, id := range order {
		c, err := resolve(lookup, id, "")
		if err != nil {
			return nil, err
		}
		commits[r] = c
		if _, dup := index[id]; !dup {
			index[id] = r
		}
	}

	occ := newOccupancy(n)
	nodeLane := make([]int, n)
	reserved := make([]int, n)
	for i := range reserved {
		reserved[i] = -1
	}
	routes := claimLanes(commits, index, occ, nodeLane, reserved)
	reserveJogs(routes, nodeLane, occ)

	l := &Layout{rows: make([]Row, n), index: index}
	for r, c := range commits {
		l.rows[r] = Row{
			ID:      c.ID,
			Summary: c.Summary,
			Time:    c.Time,
			Node:    Location{Lane: nodeLane[r], Row: r},
			Text:    Location{Lane: occ.widest(r) + 1, Row: r},
		}
		l.lanes = max(l.lanes, occ.rows[r].highest()+1)
	}
	emitSegments(l, routes, nodeLane)
	return l, nil
}

// claimLanes assigns node lanes row by row and claims the lanes of lines
// that pass through intermediate rows. A parent reached through such rows
// keeps the lane its line arrived on, and the last child in row order decides.
func claimLanes(commits []*Commit, index map[ID]int, occ *occupancy, nodeLane, reserved []int) []route {
	var routes []route
	for r, c := range commits {
		lane := reserved[r]
		if lane < 0 || occ.rows[r].has(lane) {
			lane = occ.rows[r].firstFree(0)
		}
		occ.claim(r, lane)
		nodeLane[r] = lane

		for _, pid := range c.Parents {
			rp, ok := index[pid]
			if !ok || rp <= r {
				continue
			}
			rt := route{child: r, parent: rp}
			if rp > r+1 {
				cur := lane
				rt.via = make([]int, 0, rp-r-1)
				for i := r + 1; i < rp; i++ {
					cur = occ.rows[i].firstFree(cur)
					occ.claim(i, cur)
					rt.via = append(rt.via, cur)
				}
				reserved[rp] = cur
			}
			routes = append(routes, rt)
		}
	}
	return routes
}

// reserveJogs keeps summary text clear of diagonal connector pieces by
// reserving the wider lane of each jog in both rows it touches.
func reserveJogs(routes []route, nodeLane []int, occ *occupancy) {
	for _, rt := range routes {
		path := rt.path(nodeLane)
		for k := 0; k+1 < len(path); k++ {
			if path[k] == path[k+1] {
				continue
			}
			wide := max(path[k], path[k+1])
			occ.reserve(rt.child+k, wide)
			occ.reserve(rt.child+k+1, wide)
		}
	}
}

func emitSegments(l *Layout, routes []route, nodeLane []int) {
	for _, rt := range routes {
		path := rt.path(nodeLane)
		color := max(path[0], path[1])
		if len(path) == 2 {
			l.rows[rt.child].Segments = append(l.rows[rt.child].Segments, Segment{
				From:  Location{Lane: path[0], Row: rt.child},
				To:    Location{Lane: path[1], Row: rt.parent},
				Color: color,
				Kind:  SegmentDirect,
			})
			continue
		}
		for k := 0; k+1 < len(path); k++ {
			kind := SegmentPass
			switch {
			case k == 0:
				kind = SegmentEntry
			case k == len(path)-2:
				kind = SegmentFinal
			}
			row := rt.child + k
			l.rows[row].Segments = append(l.rows[row].Segments, Segment{
				From:  Location{Lane: path[k], Row: row},
				To:    Location{Lane: path[k+1], Row: row + 1},
				Color: color,
				Kind:  kind,
			})
		}
	}
}
