package core

import (
	"context"
	"time"
)

// TxHandle identifies a submitted transaction on a specific chain.
type TxHandle struct {
	Chain ChainID
	Hash  Hash
}

// TxStatus is a single event observed on a transaction status
// subscription, matching the vocabulary Substrate's `author_submitAndWatch`
// RPC exposes and the one `original_source`'s transaction_tracker.rs
// pattern-matches on.
type TxStatus int

const (
	TxFuture TxStatus = iota
	TxReady
	TxBroadcast
	TxInBlock
	TxRetracted
	TxFinalized
	TxFinalityTimeout
	TxUsurped
	TxDropped
	TxInvalid
)

// TxStatusEvent is one item on a transaction-status subscription.
type TxStatusEvent struct {
	Status    TxStatus
	BlockHash Hash
	// UsurpedBy is set only for TxUsurped.
	UsurpedBy Hash
}

// TrackedStatus is the externally visible transaction lifecycle of §3:
// Pending -> InBlock -> Finalized | Stalled | Invalidated.
type TrackedStatus int

const (
	TrackedPending TrackedStatus = iota
	TrackedInBlock
	TrackedFinalized
	TrackedStalled
	TrackedInvalidated
)

func (s TrackedStatus) String() string {
	switch s {
	case TrackedPending:
		return "Pending"
	case TrackedInBlock:
		return "InBlock"
	case TrackedFinalized:
		return "Finalized"
	case TrackedStalled:
		return "Stalled"
	case TrackedInvalidated:
		return "Invalidated"
	default:
		return "Unknown"
	}
}

// DispatchOutcome is the result of executing the extrinsic within a block,
// once it is known.
type DispatchOutcome int

const (
	DispatchUnknown DispatchOutcome = iota
	DispatchOk
	DispatchFailed
)

// TrackerEnvironment abstracts the chain-specific bits the tracker needs:
// a way to learn the dispatch outcome of an in-block extrinsic. Grounded
// on original_source/relays/client-substrate/src/transaction_tracker.rs's
// `Environment` trait.
type TrackerEnvironment interface {
	ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash Hash) (DispatchOutcome, error)
}

// TransactionTracker watches a submitted transaction to a terminal status,
// implementing §4.6. It is driven by a status-event channel (as would come
// from a node's `author_submitAndWatchExtrinsic` subscription) and a
// mortality deadline.
type TransactionTracker struct {
	env      TrackerEnvironment
	tx       TxHandle
	deadline time.Duration
	events   <-chan TxStatusEvent
}

// NewTransactionTracker constructs a tracker for a submitted transaction.
func NewTransactionTracker(env TrackerEnvironment, tx TxHandle, deadline time.Duration, events <-chan TxStatusEvent) *TransactionTracker {
	return &TransactionTracker{env: env, tx: tx, deadline: deadline, events: events}
}

// Wait blocks until the transaction reaches a terminal status or the
// mortality deadline elapses, whichever happens first. On deadline it
// returns TrackedStalled and the scheduler treats the slot as free (§4.6).
func (t *TransactionTracker) Wait(ctx context.Context) TrackedStatus {
	timer := time.NewTimer(t.deadline)
	defer timer.Stop()

	var dispatchOutcome DispatchOutcome = DispatchUnknown

	for {
		select {
		case <-ctx.Done():
			return TrackedStalled
		case <-timer.C:
			return TrackedStalled
		case ev, ok := <-t.events:
			if !ok {
				// Subscription closed: status unknown, treat as stalled.
				return TrackedStalled
			}
			switch ev.Status {
			case TxFuture, TxReady, TxBroadcast, TxRetracted:
				// Nothing terminal yet; keep waiting.
			case TxInBlock:
				outcome, err := t.env.ExtrinsicDispatchOutcome(ctx, ev.BlockHash, t.tx.Hash)
				if err == nil {
					dispatchOutcome = outcome
				} else {
					// We failed to read the dispatch outcome at this block;
					// stay Unknown and wait for finalization or timeout,
					// matching the Rust tracker's "wait for stall timeout"
					// choice over guessing success or failure.
					dispatchOutcome = DispatchUnknown
				}
			case TxFinalized:
				switch dispatchOutcome {
				case DispatchOk:
					return TrackedFinalized
				case DispatchFailed:
					return TrackedInvalidated
				default:
					return TrackedStalled
				}
			case TxInvalid:
				return TrackedInvalidated
			case TxFinalityTimeout, TxUsurped, TxDropped:
				return TrackedStalled
			}
		}
	}
}
