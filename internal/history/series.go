// Package history keeps bounded, fixed-capacity time series for charting.
package history

// Series is a fixed-capacity FIFO of float64 values backed by a ring buffer.
// Values are stored as given; callers clamp before pushing.
type Series struct {
	points []float64
	max    int // capacity
	head   int // index of oldest element
	count  int // current number of elements
}

// NewSeries returns an empty series holding at most capacity values.
// A non-positive capacity is treated as 1.
func NewSeries(capacity int) *Series {
	if capacity < 1 {
		capacity = 1
	}
	return &Series{
		points: make([]float64, capacity),
		max:    capacity,
	}
}

// NewZeroSeries returns a full-length series of zeros.
func NewZeroSeries(capacity int) *Series {
	s := NewSeries(capacity)
	s.count = s.max
	return s
}

// Push appends v, evicting the oldest value when the series is full.
func (s *Series) Push(v float64) {
	insertIdx := (s.head + s.count) % s.max
	s.points[insertIdx] = v

	if s.count < s.max {
		s.count++
	} else {
		s.head = (s.head + 1) % s.max
	}
}

// Values returns a copy ordered oldest to newest. Never nil.
func (s *Series) Values() []float64 {
	result := make([]float64, s.count)
	for i := 0; i < s.count; i++ {
		result[i] = s.points[(s.head+i)%s.max]
	}
	return result
}

// Last returns the newest value, or false when the series is empty.
func (s *Series) Last() (float64, bool) {
	if s.count == 0 {
		return 0, false
	}
	return s.points[(s.head+s.count-1)%s.max], true
}

// Len returns the number of stored values.
func (s *Series) Len() int { return s.count }

// Cap returns the capacity.
func (s *Series) Cap() int { return s.max }

// ValidWithCap reports whether s is valid and holds exactly capacity values.
func (s *Series) ValidWithCap(capacity int) bool {
	return s.Valid() && s.max == capacity
}

// Valid reports whether the ring bookkeeping is internally consistent.
// It is safe to call on a nil series.
func (s *Series) Valid() bool {
	return s != nil &&
		s.max > 0 &&
		len(s.points) == s.max &&
		s.count >= 0 && s.count <= s.max &&
		s.head >= 0 && s.head < s.max
}
