package core

import (
	"context"
	"testing"
	"time"
)

type fixedOutcomeEnv struct {
	outcome DispatchOutcome
	err     error
}

func (e fixedOutcomeEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash Hash) (DispatchOutcome, error) {
	return e.outcome, e.err
}

func TestTransactionTrackerFinalizedAfterSuccessfulDispatch(t *testing.T) {
	events := make(chan TxStatusEvent, 4)
	events <- TxStatusEvent{Status: TxReady}
	events <- TxStatusEvent{Status: TxInBlock}
	events <- TxStatusEvent{Status: TxFinalized}
	close(events)

	tracker := NewTransactionTracker(fixedOutcomeEnv{outcome: DispatchOk}, TxHandle{}, time.Second, events)
	status := tracker.Wait(context.Background())
	if status != TrackedFinalized {
		t.Fatalf("expected Finalized, got %v", status)
	}
}

func TestTransactionTrackerInvalidatedAfterFailedDispatch(t *testing.T) {
	events := make(chan TxStatusEvent, 2)
	events <- TxStatusEvent{Status: TxInBlock}
	events <- TxStatusEvent{Status: TxFinalized}
	close(events)

	tracker := NewTransactionTracker(fixedOutcomeEnv{outcome: DispatchFailed}, TxHandle{}, time.Second, events)
	status := tracker.Wait(context.Background())
	if status != TrackedInvalidated {
		t.Fatalf("expected Invalidated, got %v", status)
	}
}

func TestTransactionTrackerStalledOnDeadline(t *testing.T) {
	events := make(chan TxStatusEvent)
	tracker := NewTransactionTracker(fixedOutcomeEnv{}, TxHandle{}, 10*time.Millisecond, events)
	status := tracker.Wait(context.Background())
	if status != TrackedStalled {
		t.Fatalf("expected Stalled on deadline, got %v", status)
	}
}

func TestTransactionTrackerStalledOnClosedSubscription(t *testing.T) {
	events := make(chan TxStatusEvent)
	close(events)
	tracker := NewTransactionTracker(fixedOutcomeEnv{}, TxHandle{}, time.Second, events)
	status := tracker.Wait(context.Background())
	if status != TrackedStalled {
		t.Fatalf("expected Stalled on closed subscription, got %v", status)
	}
}

func TestTransactionTrackerInvalidatedOnTxInvalid(t *testing.T) {
	events := make(chan TxStatusEvent, 1)
	events <- TxStatusEvent{Status: TxInvalid}
	tracker := NewTransactionTracker(fixedOutcomeEnv{}, TxHandle{}, time.Second, events)
	status := tracker.Wait(context.Background())
	if status != TrackedInvalidated {
		t.Fatalf("expected Invalidated, got %v", status)
	}
}

func TestTransactionTrackerStalledWhenDispatchOutcomeUnknownAtFinalization(t *testing.T) {
	events := make(chan TxStatusEvent, 2)
	events <- TxStatusEvent{Status: TxInBlock}
	events <- TxStatusEvent{Status: TxFinalized}
	close(events)

	tracker := NewTransactionTracker(fixedOutcomeEnv{err: context.DeadlineExceeded}, TxHandle{}, time.Second, events)
	status := tracker.Wait(context.Background())
	if status != TrackedStalled {
		t.Fatalf("expected Stalled when the dispatch outcome could not be read, got %v", status)
	}
}

func TestTransactionTrackerStalledOnCancelledContext(t *testing.T) {
	events := make(chan TxStatusEvent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracker := NewTransactionTracker(fixedOutcomeEnv{}, TxHandle{}, time.Minute, events)
	status := tracker.Wait(ctx)
	if status != TrackedStalled {
		t.Fatalf("expected Stalled on cancelled context, got %v", status)
	}
}
