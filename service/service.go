// Package service orchestrates the finality, parachain, and message loops
// that make up one configured bridge direction, and implements the
// drain-mode shutdown of §5: once the relay's context is cancelled, every
// loop is given a grace window to let an in-flight transaction reach a
// terminal status before being abandoned. Loops are not told of the
// shutdown during that window and may start new submissions in it.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultDrainTimeout is how long a shutting-down relay waits for an
// in-flight transaction tracker to reach a terminal status before its
// loop's context is cancelled outright.
const DefaultDrainTimeout = 30 * time.Second

// Runner is one long-running loop (finality.Run, parachains.Run,
// messages.Run, or an equivocation.Detector's Run method) reduced to its
// ctx-in, error-out shape.
type Runner func(ctx context.Context) error

// Bridge groups every loop configured for one bridge direction so they
// start and drain together.
type Bridge struct {
	Runners []Runner

	// DrainTimeout overrides DefaultDrainTimeout.
	DrainTimeout time.Duration

	Logger *slog.Logger
}

// Run starts every configured runner and blocks until either a runner
// returns a fatal error or ctx is cancelled and the drain window elapses.
//
// Runners are handed a grace context derived independently of ctx: it
// keeps running past ctx's cancellation for up to DrainTimeout, so a
// scheduler tick already waiting on a submitted transaction's tracker gets
// a chance to reach InBlock or Finalized instead of being cut off mid-tx.
// Once the timeout elapses (or every runner has already returned) the
// grace context is cancelled and any runner still blocked unwinds via the
// usual ctx.Done() paths in core.Scheduler.Run.
func (b *Bridge) Run(ctx context.Context) error {
	logger := b.logger()
	timeout := b.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}

	graceCtx, cancelGrace := context.WithCancel(context.Background())
	defer cancelGrace()

	drainDone := make(chan struct{})
	defer close(drainDone)

	go func() {
		select {
		case <-ctx.Done():
		case <-drainDone:
			return
		}
		logger.Info("shutdown requested, entering drain window", "timeout", timeout)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			logger.Warn("drain window elapsed, cancelling remaining loops")
		case <-drainDone:
		}
		cancelGrace()
	}()

	eg, egCtx := errgroup.WithContext(graceCtx)
	for i := range b.Runners {
		runner := b.Runners[i]
		eg.Go(func() error {
			return runner(egCtx)
		})
	}

	err := eg.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// Shutdown was requested and every loop unwound via the grace
		// context; that is the expected drain outcome, not a failure.
		return nil
	}
	return err
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
