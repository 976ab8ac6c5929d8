// Package workerutil runs the resident controller's background workers (the
// control server and the journal sink) so that a panic in one of them is
// logged and the worker restarted instead of taking the controller, and its
// pending override cleanup, down with it.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithPanicRecovery. Zero values select the
// defaults (100ms initial backoff, 5s cap, 10 attempts).
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries is the total number of runs; 1 means no restart.
	MaxRetries int

	// OnPanic runs after each recovered panic; attempt is 1-based. May be nil.
	OnPanic func(worker string, attempt int)
	// OnFatal runs once MaxRetries is exhausted. May be nil.
	OnFatal func(worker string, maxRetries int)
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[worker] MaxBackoff < InitialBackoff, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff,
			"maxBackoff", opts.MaxBackoff,
		)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithPanicRecovery launches fn on a goroutine tracked by wg. A normal
// return, or any return once ctx is cancelled, ends the worker. A panic is
// logged with its stack and fn is started again after an exponential backoff.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context),
	opts RecoveryOptions,
) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRecoveryLoop(ctx, name, fn, opts)
	})
}

func runRecoveryLoop(ctx context.Context, name string, fn func(ctx context.Context), opts RecoveryOptions) {
	restartDelay := opts.InitialBackoff

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if !runOnce(ctx, name, fn) || ctx.Err() != nil {
			return
		}

		slog.Warn("[worker] restarting after panic",
			"worker", name,
			"restartDelay", restartDelay,
			"attempt", attempt+1,
		)
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt+1)
		}
		if attempt == opts.MaxRetries-1 {
			break
		}

		restartTimer := time.NewTimer(restartDelay)
		select {
		case <-ctx.Done():
			restartTimer.Stop()
			return
		case <-restartTimer.C:
		}
		restartDelay = nextBackoff(restartDelay, opts.MaxBackoff)
	}

	slog.Error("[worker] exceeded max retries, giving up",
		"worker", name,
		"maxRetries", opts.MaxRetries,
	)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// runOnce reports whether fn panicked.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[worker] recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panicked = true
		}
	}()
	fn(ctx)
	return false
}

// nextBackoff doubles current up to maxBackoff, guarding against overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
