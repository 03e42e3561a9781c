package publisher

import (
	"context"
	"errors"
	"time"

	constants "sysmon/config"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
)

// Source produces one snapshot per call.
type Source interface {
	Collect(ctx context.Context) (*metrics.Snapshot, error)
}

// Runner drives Source at a fixed interval and publishes the result.
// Ticks are handled on one goroutine, so cycles never overlap; a tick that
// overruns the interval delays the next one.
type Runner struct {
	source   Source
	pub      *Publisher
	interval time.Duration
	log      *logger.Logger

	// stateCorruption is matched with errors.Is to log repaired cycles at
	// warning instead of error.
	stateCorruption error
}

// NewRunner creates a runner. A non-positive interval uses the default.
func NewRunner(source Source, pub *Publisher, interval time.Duration, log *logger.Logger) *Runner {
	if interval <= 0 {
		interval = constants.UPDATE_INTERVAL_MS * time.Millisecond
	}
	if log == nil {
		log = logger.Default()
	}
	return &Runner{source: source, pub: pub, interval: interval, log: log}
}

// WithRecoverable marks err as a recoverable failure that is logged at
// warning level.
func (r *Runner) WithRecoverable(err error) *Runner {
	r.stateCorruption = err
	return r
}

// Interval returns the tick interval.
func (r *Runner) Interval() time.Duration { return r.interval }

// Run ticks until ctx is cancelled. The first cycle runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one cycle and publishes its snapshot or its failure.
func (r *Runner) Tick(ctx context.Context) {
	snap, err := r.collect(ctx)
	if err != nil {
		if r.stateCorruption != nil && errors.Is(err, r.stateCorruption) {
			r.log.Warning("Cycle recovered: %v", err)
		} else {
			r.log.Error("Cycle failed: %v", err)
		}
		r.pub.PublishError(ctx, err)
		return
	}
	r.pub.Publish(ctx, snap)
}

func (r *Runner) collect(ctx context.Context) (snap *metrics.Snapshot, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("collection panicked")
			r.log.Error("Collector panicked: %v", p)
		}
	}()
	snap, err = r.source.Collect(ctx)
	if err == nil && snap == nil {
		err = errors.New("collector returned no snapshot")
	}
	return snap, err
}
