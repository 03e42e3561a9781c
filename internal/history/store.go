package history

import "sort"

// Store holds one Series per key, all with the same capacity.
// It is not safe for concurrent use; the owner serializes access.
type Store struct {
	capacity int
	series   map[string]*Series
}

// NewStore creates an empty store whose series hold capacity values.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*Series),
	}
}

// Push appends v to the series for key, creating it empty first if needed.
func (st *Store) Push(key string, v float64) {
	s, ok := st.series[key]
	if !ok {
		s = NewSeries(st.capacity)
		st.series[key] = s
	}
	s.Push(v)
}

// Values returns the ordered values for key, or an empty slice.
func (st *Store) Values(key string) []float64 {
	if s, ok := st.series[key]; ok {
		return s.Values()
	}
	return []float64{}
}

// Last returns the newest value for key.
func (st *Store) Last(key string) (float64, bool) {
	if s, ok := st.series[key]; ok {
		return s.Last()
	}
	return 0, false
}

// Has reports whether a series exists for key.
func (st *Store) Has(key string) bool {
	_, ok := st.series[key]
	return ok
}

// Delete drops the series for key.
func (st *Store) Delete(key string) {
	delete(st.series, key)
}

// Retain removes every series whose key is not in keep and returns the
// removed keys in sorted order.
func (st *Store) Retain(keep map[string]struct{}) []string {
	var removed []string
	for key := range st.series {
		if _, ok := keep[key]; !ok {
			delete(st.series, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}

// Keys returns the tracked keys in sorted order.
func (st *Store) Keys() []string {
	keys := make([]string, 0, len(st.series))
	for key := range st.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of series.
func (st *Store) Len() int { return len(st.series) }

// Capacity returns the per-series capacity.
func (st *Store) Capacity() int { return st.capacity }

// Validate replaces structurally broken series with empty ones and
// returns how many were repaired.
func (st *Store) Validate() int {
	if st.series == nil {
		st.series = make(map[string]*Series)
		return 1
	}
	repaired := 0
	for key, s := range st.series {
		if !s.ValidWithCap(st.capacity) {
			st.series[key] = NewSeries(st.capacity)
			repaired++
		}
	}
	return repaired
}
