package sources

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	constants "sysmon/config"
)

// Runner executes an external diagnostic tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host with a per-call timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner; a non-positive timeout uses the default.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = constants.PROBE_TIMEOUT_SECONDS * time.Second
	}
	return &ExecRunner{Timeout: timeout}
}

// Run looks the binary up on PATH first so a missing tool is reported as
// ErrSourceUnavailable rather than an exec failure. Streaming tools are cut
// off at the timeout; whatever they printed by then is returned.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrSourceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("%s timed out after %s: %w", name, r.Timeout, ErrSourceUnavailable)
		}
		return nil, ctx.Err()
	}
	if err != nil {
		// Some tools exit non-zero after printing a usable sample
		if len(out) > 0 {
			return out, nil
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
