// Package publisher fans snapshots out to subscribed consumers and drives
// the periodic sampling loop.
package publisher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	constants "sysmon/config"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
)

// ErrConsumerFull is returned by consumers that drop events instead of
// blocking the loop.
var ErrConsumerFull = errors.New("consumer buffer full")

// Event is one named push. System updates carry Snapshot; backend errors
// carry Message.
type Event struct {
	Name     string
	Snapshot *metrics.Snapshot
	Message  string
	Time     time.Time
}

// Consumer receives events. Snapshots are shared between consumers and
// must be treated as read-only.
type Consumer interface {
	Consume(ctx context.Context, ev Event) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, ev Event) error

func (f ConsumerFunc) Consume(ctx context.Context, ev Event) error { return f(ctx, ev) }

// SnapshotFunc adapts a snapshot sink to Consumer. Non-snapshot events are
// ignored.
type SnapshotFunc func(s *metrics.Snapshot) error

func (f SnapshotFunc) Consume(_ context.Context, ev Event) error {
	if ev.Name != constants.EVENT_SYSTEM_UPDATE || ev.Snapshot == nil {
		return nil
	}
	return f(ev.Snapshot)
}

// ChannelConsumer buffers events on a channel and drops them when the
// reader falls behind.
type ChannelConsumer struct {
	ch chan Event
}

// NewChannelConsumer creates a consumer with the given buffer size.
func NewChannelConsumer(size int) *ChannelConsumer {
	if size < 1 {
		size = 1
	}
	return &ChannelConsumer{ch: make(chan Event, size)}
}

// Events returns the receive side.
func (c *ChannelConsumer) Events() <-chan Event { return c.ch }

func (c *ChannelConsumer) Consume(_ context.Context, ev Event) error {
	select {
	case c.ch <- ev:
		return nil
	default:
		return ErrConsumerFull
	}
}

// Publisher delivers every event once to each subscriber. Delivery
// failures are logged and never retried.
type Publisher struct {
	mu        sync.RWMutex
	consumers map[string]Consumer
	log       *logger.Logger
}

// New creates a publisher with no subscribers.
func New(log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Default()
	}
	return &Publisher{consumers: make(map[string]Consumer), log: log}
}

// Subscribe registers c under name, replacing any previous consumer with
// that name.
func (p *Publisher) Subscribe(name string, c Consumer) {
	p.mu.Lock()
	p.consumers[name] = c
	p.mu.Unlock()
}

// Unsubscribe removes the consumer registered under name.
func (p *Publisher) Unsubscribe(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.consumers[name]; !ok {
		return false
	}
	delete(p.consumers, name)
	return true
}

// Subscribers returns the registered names in sorted order.
func (p *Publisher) Subscribers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.consumers))
	for name := range p.consumers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Publish emits a system-update event carrying s.
func (p *Publisher) Publish(ctx context.Context, s *metrics.Snapshot) {
	p.emit(ctx, Event{Name: constants.EVENT_SYSTEM_UPDATE, Snapshot: s, Time: s.Timestamp})
}

// PublishError emits a backend-error event describing err.
func (p *Publisher) PublishError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	p.emit(ctx, Event{Name: constants.EVENT_BACKEND_ERROR, Message: err.Error(), Time: time.Now()})
}

func (p *Publisher) emit(ctx context.Context, ev Event) {
	p.mu.RLock()
	names := make([]string, 0, len(p.consumers))
	for name := range p.consumers {
		names = append(names, name)
	}
	sort.Strings(names)
	targets := make([]Consumer, len(names))
	for i, name := range names {
		targets[i] = p.consumers[name]
	}
	p.mu.RUnlock()

	for i, c := range targets {
		if err := p.deliver(ctx, c, ev); err != nil {
			if errors.Is(err, ErrConsumerFull) {
				p.log.Debug("Dropped %s for %s: %v", ev.Name, names[i], err)
			} else {
				p.log.Warning("Failed to deliver %s to %s: %v", ev.Name, names[i], err)
			}
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, c Consumer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Consumer panicked on %s: %v", ev.Name, r)
			err = nil
		}
	}()
	return c.Consume(ctx, ev)
}
