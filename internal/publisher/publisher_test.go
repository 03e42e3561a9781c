package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	constants "sysmon/config"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Consume(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestPublish_DeliversOncePerConsumer(t *testing.T) {
	p := New(logger.Discard())
	a, b := &recorder{}, &recorder{err: errors.New("broken pipe")}
	p.Subscribe("a", a)
	p.Subscribe("b", b)

	p.Publish(context.Background(), metrics.NewSnapshot(time.Now(), "Linux"))

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("Expected one event each, got %d and %d", a.count(), b.count())
	}
	if a.events[0].Name != constants.EVENT_SYSTEM_UPDATE {
		t.Errorf("Expected %s, got %s", constants.EVENT_SYSTEM_UPDATE, a.events[0].Name)
	}
}

func TestPublishError_CarriesMessage(t *testing.T) {
	p := New(logger.Discard())
	r := &recorder{}
	p.Subscribe("r", r)

	p.PublishError(context.Background(), errors.New("collection cycle failed: boom"))
	p.PublishError(context.Background(), nil)

	if r.count() != 1 {
		t.Fatalf("Expected one event, got %d", r.count())
	}
	ev := r.events[0]
	if ev.Name != constants.EVENT_BACKEND_ERROR || ev.Message != "collection cycle failed: boom" {
		t.Errorf("Expected backend-error with message, got %+v", ev)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	p := New(logger.Discard())
	r := &recorder{}
	p.Subscribe("r", r)

	if !p.Unsubscribe("r") {
		t.Errorf("Expected Unsubscribe to report removal")
	}
	if p.Unsubscribe("r") {
		t.Errorf("Expected second Unsubscribe to report nothing removed")
	}
	p.Publish(context.Background(), metrics.NewSnapshot(time.Now(), "Linux"))
	if r.count() != 0 {
		t.Errorf("Expected no events after unsubscribe, got %d", r.count())
	}
}

func TestChannelConsumer_DropsWhenFull(t *testing.T) {
	c := NewChannelConsumer(1)
	ev := Event{Name: constants.EVENT_SYSTEM_UPDATE}

	if err := c.Consume(context.Background(), ev); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := c.Consume(context.Background(), ev); !errors.Is(err, ErrConsumerFull) {
		t.Errorf("Expected ErrConsumerFull, got %v", err)
	}
	if len(c.Events()) != 1 {
		t.Errorf("Expected one buffered event, got %d", len(c.Events()))
	}
}

func TestSnapshotFunc_IgnoresErrors(t *testing.T) {
	calls := 0
	f := SnapshotFunc(func(*metrics.Snapshot) error {
		calls++
		return nil
	})
	f.Consume(context.Background(), Event{Name: constants.EVENT_BACKEND_ERROR, Message: "x"})
	f.Consume(context.Background(), Event{Name: constants.EVENT_SYSTEM_UPDATE, Snapshot: metrics.NewSnapshot(time.Now(), "")})
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestPublish_ConsumerPanicDoesNotStopOthers(t *testing.T) {
	p := New(logger.Discard())
	p.Subscribe("a", ConsumerFunc(func(context.Context, Event) error { panic("bad consumer") }))
	r := &recorder{}
	p.Subscribe("b", r)

	p.Publish(context.Background(), metrics.NewSnapshot(time.Now(), "Linux"))
	if r.count() != 1 {
		t.Errorf("Expected b to receive the event, got %d", r.count())
	}
}

type scriptedSource struct {
	mu    sync.Mutex
	calls int
	fail  map[int]error
}

func (s *scriptedSource) Collect(context.Context) (*metrics.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[s.calls]; err != nil {
		return nil, err
	}
	return metrics.NewSnapshot(time.Now(), "Linux"), nil
}

func TestRunner_KeepsTickingAfterFailure(t *testing.T) {
	src := &scriptedSource{fail: map[int]error{1: errors.New("boom")}}
	p := New(logger.Discard())
	r := &recorder{}
	p.Subscribe("r", r)

	runner := NewRunner(src, p, 5*time.Millisecond, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 events, got %d", r.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events[0].Name != constants.EVENT_BACKEND_ERROR {
		t.Errorf("Expected first event to be backend-error, got %s", r.events[0].Name)
	}
	if r.events[1].Name != constants.EVENT_SYSTEM_UPDATE {
		t.Errorf("Expected updates after the failure, got %s", r.events[1].Name)
	}
}

func TestRunner_DefaultInterval(t *testing.T) {
	r := NewRunner(&scriptedSource{}, New(logger.Discard()), 0, nil)
	if r.Interval() != time.Second {
		t.Errorf("Expected 1s default, got %v", r.Interval())
	}
}
