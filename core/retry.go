package core

import (
	"context"
	"math/rand"
	"time"

	retry "github.com/avast/retry-go"
)

// Backoff parameters for RPC-facing retries, per §4.2's failure semantics:
// capped exponential backoff, base ~1s, cap ~60s, jitter +-20%.
const (
	backoffBase   = time.Second
	backoffCap    = 60 * time.Second
	backoffJitter = 0.20
)

// jitteredExponentialBackoff computes the wait before the scheduler's next
// retry attempt after a StarvationError or TransientError, per §4.2/§7's
// capped exponential backoff. Its signature matches retry-go's
// retry.DelayTypeFunc so it can also delay a retry.Do call, though the
// scheduler applies it directly (see Scheduler.Run) since a tick may have
// already submitted a transaction by the time it fails, and retry.Do's
// blanket re-invocation model doesn't distinguish that from a clean retry.
func jitteredExponentialBackoff(n uint, _ error, _ *retry.Config) time.Duration {
	d := backoffBase << n
	if d <= 0 || d > backoffCap {
		d = backoffCap
	}
	jitter := 1 + backoffJitter*(2*rand.Float64()-1)
	scaled := time.Duration(float64(d) * jitter)
	if scaled > backoffCap {
		scaled = backoffCap
	}
	if scaled < 0 {
		scaled = backoffBase
	}
	return scaled
}

// wait blocks for d or until ctx is cancelled, matching the teacher's
// core/service.go wait() helper.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
