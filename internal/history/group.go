package history

// Group is an index-addressed set of series whose member count must match
// an external key count, such as one series per CPU core.
type Group struct {
	capacity int
	series   []*Series
}

// NewGroup creates a group with no members.
func NewGroup(capacity int) *Group {
	if capacity < 1 {
		capacity = 1
	}
	return &Group{capacity: capacity, series: []*Series{}}
}

// ResizeToKeyCount re-initializes the group to n all-zero full-length
// series when n differs from the current member count. It reports whether
// a reset happened.
func (g *Group) ResizeToKeyCount(n int) bool {
	if n < 0 {
		n = 0
	}
	if n == len(g.series) {
		return false
	}
	g.series = make([]*Series, n)
	for i := range g.series {
		g.series[i] = NewZeroSeries(g.capacity)
	}
	return true
}

// Push appends v to member i. Out-of-range indexes are ignored.
func (g *Group) Push(i int, v float64) {
	if i < 0 || i >= len(g.series) {
		return
	}
	g.series[i].Push(v)
}

// Values returns a copy of every member, in index order. Never nil.
func (g *Group) Values() [][]float64 {
	out := make([][]float64, len(g.series))
	for i, s := range g.series {
		out[i] = s.Values()
	}
	return out
}

// Len returns the member count.
func (g *Group) Len() int { return len(g.series) }

// Reset drops every member.
func (g *Group) Reset() {
	g.series = []*Series{}
}

// Validate reports whether every member is structurally sound; when one
// is not, the group is reset and true is returned.
func (g *Group) Validate() bool {
	for _, s := range g.series {
		if !s.ValidWithCap(g.capacity) {
			g.Reset()
			return true
		}
	}
	return false
}
