package tracker

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func newKB(historyLength int) *Tracker {
	return New(Options{HistoryLength: historyLength, Divisor: 1024})
}

func TestObserve_NetworkScenario(t *testing.T) {
	tr := newKB(100)
	t0 := time.Unix(1700000000, 0)

	first := tr.Observe("eth0", Counters{In: 1000}, t0)
	if !first.First || first.Rates.In != 0 {
		t.Errorf("Expected first observation with zero rate, got %+v", first)
	}

	e := tr.Observe("eth0", Counters{In: 2024}, t0.Add(time.Second))
	if e.Rates.In != 1.0 {
		t.Errorf("Expected current_rx_speed 1.0 KB/s, got %f", e.Rates.In)
	}
	if !reflect.DeepEqual(e.InHistory, []float64{0, 1.0}) {
		t.Errorf("Expected rx history [0 1], got %v", e.InHistory)
	}
}

func TestObserve_CounterResetSaturates(t *testing.T) {
	tr := newKB(10)
	t0 := time.Unix(1700000000, 0)

	tr.Observe("eth0", Counters{In: 1 << 30, Out: 1 << 20}, t0)
	e := tr.Observe("eth0", Counters{In: 10, Out: 10}, t0.Add(time.Second))

	if e.Rates.In != 0 || e.Rates.Out != 0 {
		t.Errorf("Expected zero rates after counter reset, got %+v", e.Rates)
	}
}

func TestObserve_JitterKeepsPreviousValue(t *testing.T) {
	tr := newKB(10)
	t0 := time.Unix(1700000000, 0)

	tr.Observe("eth0", Counters{In: 0}, t0)
	fresh := tr.Observe("eth0", Counters{In: 4096}, t0.Add(time.Second))
	if fresh.Rates.In != 4.0 {
		t.Fatalf("Expected 4.0 KB/s, got %f", fresh.Rates.In)
	}

	// 500µs later: below the minimum interval
	jitter := tr.Observe("eth0", Counters{In: 1 << 30}, t0.Add(time.Second+500*time.Microsecond))
	if jitter.Fresh {
		t.Errorf("Expected no fresh rate under jitter")
	}
	if jitter.Rates.In != fresh.Rates.In {
		t.Errorf("Expected rate %f to be kept, got %f", fresh.Rates.In, jitter.Rates.In)
	}
	if !reflect.DeepEqual(jitter.InHistory, []float64{0, 4.0, 4.0}) {
		t.Errorf("Expected last value replicated, got %v", jitter.InHistory)
	}

	// Backwards clock is also jitter and does not move lastSeen
	back := tr.Observe("eth0", Counters{In: 8192}, t0)
	if back.Fresh || back.Rates.In != 4.0 {
		t.Errorf("Expected backwards timestamp ignored, got %+v", back)
	}
}

func TestObserve_JitterOnFirstObservationIsZero(t *testing.T) {
	tr := newKB(10)
	t0 := time.Unix(1700000000, 0)

	tr.Observe("eth0", Counters{In: 100}, t0)
	e := tr.Observe("eth0", Counters{In: 5000}, t0)
	if e.Rates.In != 0 {
		t.Errorf("Expected 0 before any fresh rate, got %f", e.Rates.In)
	}
	if !reflect.DeepEqual(e.InHistory, []float64{0, 0}) {
		t.Errorf("Expected [0 0], got %v", e.InHistory)
	}
}

func TestObserveEstimate_Smoothing(t *testing.T) {
	tr := New(Options{HistoryLength: 10, SmoothingWeight: 0.7})
	t0 := time.Unix(1700000000, 0)

	first := tr.ObserveEstimate("sda", Rates{In: 10, Out: 8}, t0)
	if first.Rates.In != 0 || first.Rates.Out != 0 {
		t.Errorf("Expected zero on first estimate, got %+v", first.Rates)
	}

	e := tr.ObserveEstimate("sda", Rates{In: 10, Out: 8}, t0.Add(time.Second))
	if math.Abs(e.Rates.In-3.0) > 1e-9 || math.Abs(e.Rates.Out-2.4) > 1e-9 {
		t.Errorf("Expected (3.0, 2.4), got %+v", e.Rates)
	}

	e = tr.ObserveEstimate("sda", Rates{In: 10, Out: 8}, t0.Add(2*time.Second))
	if math.Abs(e.Rates.In-5.1) > 1e-9 {
		t.Errorf("Expected 5.1, got %f", e.Rates.In)
	}
}

func TestUpsert(t *testing.T) {
	tr := newKB(10)
	t0 := time.Unix(1700000000, 0)

	hasPrior, delta := tr.Upsert("42", Counters{In: 100, Out: 50}, t0)
	if hasPrior || delta != (Counters{}) {
		t.Errorf("Expected no prior state, got %v %+v", hasPrior, delta)
	}

	hasPrior, delta = tr.Upsert("42", Counters{In: 300, Out: 20}, t0.Add(time.Second))
	if !hasPrior {
		t.Errorf("Expected prior state")
	}
	if delta.In != 200 || delta.Out != 0 {
		t.Errorf("Expected delta {200 0}, got %+v", delta)
	}
}

func TestPrune_RemovesUnseen(t *testing.T) {
	tr := newKB(10)
	t0 := time.Unix(1700000000, 0)

	tr.Observe("eth0", Counters{}, t0)
	tr.Observe("wlan0", Counters{}, t0)
	if removed := tr.Prune(); len(removed) != 0 {
		t.Errorf("Expected nothing pruned, got %v", removed)
	}

	tr.Observe("eth0", Counters{In: 10}, t0.Add(time.Second))
	removed := tr.Prune()
	if !reflect.DeepEqual(removed, []string{"wlan0"}) {
		t.Errorf("Expected wlan0 pruned, got %v", removed)
	}
	if tr.Has("wlan0") {
		t.Errorf("Expected wlan0 absent from tracker")
	}
	if !tr.Has("eth0") {
		t.Errorf("Expected eth0 to remain")
	}
}

func TestHistoryBounded(t *testing.T) {
	tr := newKB(5)
	t0 := time.Unix(1700000000, 0)
	for i := 0; i < 20; i++ {
		e := tr.Observe("eth0", Counters{In: uint64(i) * 1024}, t0.Add(time.Duration(i)*time.Second))
		if len(e.InHistory) > 5 {
			t.Fatalf("Expected history <= 5, got %d", len(e.InHistory))
		}
	}
	e, _ := tr.Get("eth0")
	if len(e.InHistory) != 5 {
		t.Errorf("Expected full history of 5, got %d", len(e.InHistory))
	}
}

func TestValidate_RepairsBrokenEntries(t *testing.T) {
	tr := newKB(5)
	t0 := time.Unix(1700000000, 0)
	tr.Observe("eth0", Counters{}, t0)
	tr.Observe("eth1", Counters{}, t0)

	tr.entries["eth0"].in = nil
	tr.entries["ghost"] = &state{}

	if n := tr.Validate(); n != 2 {
		t.Errorf("Expected 2 repairs, got %d", n)
	}
	if tr.Has("ghost") {
		t.Errorf("Expected unobserved entry dropped")
	}
	e := tr.Observe("eth0", Counters{In: 1024}, t0.Add(time.Second))
	if len(e.InHistory) != 1 {
		t.Errorf("Expected repaired history to restart, got %v", e.InHistory)
	}
}

func TestValidate_ClearsSeenSet(t *testing.T) {
	tr := newKB(5)
	t0 := time.Unix(1700000000, 0)
	tr.Observe("eth0", Counters{}, t0)
	tr.Prune()

	// observed by a cycle that never reached Prune
	tr.Observe("eth0", Counters{In: 10}, t0.Add(time.Second))
	tr.Observe("usb0", Counters{}, t0.Add(time.Second))
	tr.Validate()

	tr.Observe("eth0", Counters{In: 20}, t0.Add(2*time.Second))
	removed := tr.Prune()
	if !reflect.DeepEqual(removed, []string{"usb0"}) {
		t.Errorf("Expected usb0 pruned after repair, got %v", removed)
	}
}

func TestTouch_KeepsEntryWithoutUpdating(t *testing.T) {
	tr := newKB(5)
	t0 := time.Unix(1700000000, 0)

	if tr.Touch("42") {
		t.Errorf("Expected Touch on unknown id to report false")
	}

	tr.Upsert("42", Counters{In: 100}, t0)
	tr.Prune()
	if !tr.Touch("42") {
		t.Errorf("Expected Touch on tracked id to report true")
	}
	if removed := tr.Prune(); len(removed) != 0 {
		t.Errorf("Expected touched id to survive Prune, got %v", removed)
	}

	_, delta := tr.Upsert("42", Counters{In: 300}, t0.Add(time.Second))
	if delta.In != 200 {
		t.Errorf("Expected delta 200 against the untouched counters, got %d", delta.In)
	}
}
