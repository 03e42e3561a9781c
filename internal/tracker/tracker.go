// Package tracker keeps per-entity counter state across sampling cycles and
// derives rates and bounded histories from it.
package tracker

import (
	"sort"
	"time"

	constants "sysmon/config"
	"sysmon/internal/history"
	"sysmon/internal/rate"
)

// Counters is a pair of cumulative values, such as rx/tx or read/write bytes.
type Counters struct {
	In  uint64
	Out uint64
}

// Rates is a pair of per-second values derived from Counters.
type Rates struct {
	In  float64
	Out float64
}

// Entry is a read-only view of one tracked entity after an observation.
type Entry struct {
	ID         string
	Rates      Rates
	InHistory  []float64
	OutHistory []float64
	First      bool // first observation, rates are 0
	Fresh      bool // rates were recomputed this time
}

type state struct {
	last     Counters
	lastSeen time.Time
	observed bool
	rates    Rates
	in       *history.Series
	out      *history.Series
}

// Options configures a Tracker.
type Options struct {
	HistoryLength   int
	Divisor         float64 // unit divisor applied to per-second deltas
	SmoothingWeight float64 // weight of the previous rate in estimate mode
}

// Tracker maps entity ids to their last counters, rates and histories.
// It is not safe for concurrent use.
type Tracker struct {
	opts    Options
	entries map[string]*state
	seen    map[string]struct{}
}

// New creates a tracker. Zero option fields fall back to defaults.
func New(opts Options) *Tracker {
	if opts.HistoryLength < 1 {
		opts.HistoryLength = constants.HISTORY_LENGTH
	}
	if opts.Divisor <= 0 {
		opts.Divisor = 1
	}
	if opts.SmoothingWeight <= 0 || opts.SmoothingWeight >= 1 {
		opts.SmoothingWeight = constants.SMOOTHING_PREVIOUS_WEIGHT
	}
	return &Tracker{
		opts:    opts,
		entries: make(map[string]*state),
		seen:    make(map[string]struct{}),
	}
}

func (t *Tracker) insert(id string, c Counters, now time.Time) *state {
	st := &state{
		last:     c,
		lastSeen: now,
		observed: true,
		in:       history.NewSeries(t.opts.HistoryLength),
		out:      history.NewSeries(t.opts.HistoryLength),
	}
	t.entries[id] = st
	return st
}

// Upsert records counters for id and returns the saturating delta against
// the previous observation. hasPrior is false on the first sighting, where
// delta is zero. A timestamp earlier than the stored one is not kept.
func (t *Tracker) Upsert(id string, c Counters, now time.Time) (hasPrior bool, delta Counters) {
	t.seen[id] = struct{}{}

	st, ok := t.entries[id]
	if !ok {
		t.insert(id, c, now)
		return false, Counters{}
	}

	delta = Counters{
		In:  rate.SaturatingSub(st.last.In, c.In),
		Out: rate.SaturatingSub(st.last.Out, c.Out),
	}
	st.last = c
	if now.After(st.lastSeen) {
		st.lastSeen = now
	}
	st.observed = true
	return true, delta
}

// Observe derives rates from true cumulative counters. The first
// observation yields zero rates. When less than rate.MinElapsed has passed
// the previous rates are kept and the last history values are repeated;
// the stored counters are left alone so the next fresh rate covers the
// whole interval.
func (t *Tracker) Observe(id string, c Counters, now time.Time) Entry {
	t.seen[id] = struct{}{}

	st, ok := t.entries[id]
	if !ok {
		st = t.insert(id, c, now)
		st.in.Push(0)
		st.out.Push(0)
		return t.entry(id, st, true, false)
	}

	in, okIn := rate.Compute(st.last.In, c.In, st.lastSeen, now, t.opts.Divisor)
	out, okOut := rate.Compute(st.last.Out, c.Out, st.lastSeen, now, t.opts.Divisor)
	if !okIn || !okOut {
		t.replicate(st)
		return t.entry(id, st, false, false)
	}

	st.rates = Rates{In: rate.NonNegative(in), Out: rate.NonNegative(out)}
	st.last = c
	st.lastSeen = now
	st.observed = true
	st.in.Push(st.rates.In)
	st.out.Push(st.rates.Out)
	return t.entry(id, st, false, true)
}

// ObserveEstimate feeds an estimated rate sample for a source without true
// counters. Rates are smoothed against the previous value; the first
// observation yields zero and smoothing starts from there.
func (t *Tracker) ObserveEstimate(id string, sample Rates, now time.Time) Entry {
	t.seen[id] = struct{}{}

	st, ok := t.entries[id]
	if !ok {
		st = t.insert(id, Counters{}, now)
		st.in.Push(0)
		st.out.Push(0)
		return t.entry(id, st, true, false)
	}

	if now.Sub(st.lastSeen) < rate.MinElapsed {
		t.replicate(st)
		return t.entry(id, st, false, false)
	}

	w := t.opts.SmoothingWeight
	st.rates = Rates{
		In:  rate.NonNegative(rate.Smooth(st.rates.In, sample.In, w)),
		Out: rate.NonNegative(rate.Smooth(st.rates.Out, sample.Out, w)),
	}
	st.lastSeen = now
	st.observed = true
	st.in.Push(st.rates.In)
	st.out.Push(st.rates.Out)
	return t.entry(id, st, false, true)
}

func (t *Tracker) replicate(st *state) {
	lastIn, _ := st.in.Last()
	lastOut, _ := st.out.Last()
	st.in.Push(lastIn)
	st.out.Push(lastOut)
}

func (t *Tracker) entry(id string, st *state, first, fresh bool) Entry {
	return Entry{
		ID:         id,
		Rates:      st.rates,
		InHistory:  st.in.Values(),
		OutHistory: st.out.Values(),
		First:      first,
		Fresh:      fresh,
	}
}

// Get returns the current view of id without observing it.
func (t *Tracker) Get(id string) (Entry, bool) {
	st, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return t.entry(id, st, false, false), true
}

// Touch marks a tracked id as seen without changing its counters, so it
// survives the next Prune. It reports whether id is tracked.
func (t *Tracker) Touch(id string) bool {
	if _, ok := t.entries[id]; !ok {
		return false
	}
	t.seen[id] = struct{}{}
	return true
}

// Has reports whether id is tracked.
func (t *Tracker) Has(id string) bool {
	_, ok := t.entries[id]
	return ok
}

// IDs returns the tracked ids in sorted order.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int { return len(t.entries) }

// Prune removes every entity that was not observed since the previous
// Prune call and returns the removed ids in sorted order.
func (t *Tracker) Prune() []string {
	var removed []string
	for id := range t.entries {
		if _, ok := t.seen[id]; !ok {
			delete(t.entries, id)
			removed = append(removed, id)
		}
	}
	t.seen = make(map[string]struct{})
	sort.Strings(removed)
	return removed
}

// Validate repairs structurally broken entries in place and returns the
// number of repairs. Broken histories are replaced with empty ones and
// entries without a first observation are dropped. The seen set is
// cleared, so the next Prune only keeps ids observed after the repair.
func (t *Tracker) Validate() int {
	repaired := 0
	if t.entries == nil {
		t.entries = make(map[string]*state)
		repaired++
	}
	t.seen = make(map[string]struct{})
	for id, st := range t.entries {
		if st == nil || !st.observed || st.lastSeen.IsZero() {
			delete(t.entries, id)
			repaired++
			continue
		}
		if !st.in.ValidWithCap(t.opts.HistoryLength) {
			st.in = history.NewSeries(t.opts.HistoryLength)
			repaired++
		}
		if !st.out.ValidWithCap(t.opts.HistoryLength) {
			st.out = history.NewSeries(t.opts.HistoryLength)
			repaired++
		}
	}
	return repaired
}
