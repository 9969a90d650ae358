package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

// countingStrategy fails ReadSource with a *TransientError for the first
// failCount ticks, then reports Idle (nil action) forever.
type countingStrategy struct {
	failCount int32
	calls     int32
}

func (s *countingStrategy) Name() string                        { return "counting" }
func (s *countingStrategy) ReadTarget(ctx context.Context) error { return nil }
func (s *countingStrategy) Decide(ctx context.Context) (*Action, error) {
	return nil, nil
}

func (s *countingStrategy) ReadSource(ctx context.Context) error {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.failCount) {
		return NewTransientError(errors.New("node not ready"))
	}
	return nil
}

func TestSchedulerBacksOffOnTransientError(t *testing.T) {
	strategy := &countingStrategy{failCount: 2}
	sched := &Scheduler{
		Strategy:        strategy,
		MinTickInterval: 5 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	for atomic.LoadInt32(&strategy.calls) < 3 {
		if err := sched.tick(ctx); err != nil {
			if !IsTransient(err) {
				t.Fatalf("tick: unexpected error %v", err)
			}
			// Simulate Run's backoff wait so the retry cadence is observed,
			// without pulling in the full Run loop's select/ticker plumbing.
			sched.transientStreak++
			d := jitteredExponentialBackoff(sched.transientStreak, err, nil)
			if d < backoffBase/2 {
				t.Fatalf("expected a backoff of at least ~%s after a transient error, got %s", backoffBase/2, d)
			}
			continue
		}
		break
	}
	if atomic.LoadInt32(&strategy.calls) < 3 {
		t.Fatalf("expected ReadSource to be called at least 3 times, got %d", strategy.calls)
	}
	if elapsed := time.Since(start); elapsed < 0 {
		t.Fatalf("impossible elapsed time %s", elapsed)
	}
}

func IsTransient(err error) bool {
	_, ok := err.(*TransientError)
	return ok
}
