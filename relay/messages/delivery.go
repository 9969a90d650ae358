// Package messages implements the bidirectional Message Lane Loop of §4.4:
// a delivery race that moves message batches from an outbound lane to an
// inbound lane, and a confirmation race that carries reward-accounting
// state back the other way.
package messages

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paritytech/parity-bridges-common/core"
)

// DeliveryCaps bounds a single receive_messages_proof transaction, per
// §4.4.1's four caps.
type DeliveryCaps struct {
	// MaxMessagesPerTx bounds how many nonces one transaction may cover.
	MaxMessagesPerTx core.Nonce
	// MaxUnconfirmed bounds how far the inbound lane's LatestReceived may
	// run ahead of the freshest known latest_confirmed (the larger of the
	// inbound and outbound lanes' counters) before delivery pauses to let
	// the confirmation race catch up.
	MaxUnconfirmed core.Nonce
	// MaxExtrinsicSize bounds the proof's total declared encoded size.
	MaxExtrinsicSize uint64
	// MaxBlockWeight is the target chain's full block weight; delivery
	// transactions may claim at most WeightBudgetFraction of it.
	MaxBlockWeight uint64
	// WeightBudgetFraction caps the share of MaxBlockWeight a single
	// delivery transaction may claim. Zero defaults to 0.5 (§4.4.1).
	WeightBudgetFraction float64
}

func (c DeliveryCaps) weightBudget() uint64 {
	frac := c.WeightBudgetFraction
	if frac <= 0 {
		frac = 0.5
	}
	return uint64(float64(c.MaxBlockWeight) * frac)
}

func (c DeliveryCaps) messagesPerTx() core.Nonce {
	if c.MaxMessagesPerTx == 0 {
		return 128
	}
	return c.MaxMessagesPerTx
}

// DeliveryStrategy implements core.Strategy for the delivery race: Source is
// the lane's outbound (message-emitting) chain, Target is its inbound
// (message-receiving) chain.
type DeliveryStrategy struct {
	Source core.ChainWithMessages
	Target core.ChainWithMessages
	Lane   core.LaneID
	Signer core.Signer
	Caps   DeliveryCaps

	Logger *slog.Logger

	mu          sync.Mutex
	sourceAt    core.Hash
	sourceState core.OutboundLaneState
	targetState core.InboundLaneState
}

var _ core.Strategy = (*DeliveryStrategy)(nil)

func (s *DeliveryStrategy) Name() string { return "delivery" }

// ReadSource reads the lane's outbound counters at the source's currently
// finalized header.
func (s *DeliveryStrategy) ReadSource(ctx context.Context) error {
	header, err := s.Source.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	state, err := s.Source.OutboundLaneState(ctx, header.Hash, s.Lane)
	if err != nil {
		return core.NewTransientError(err)
	}
	s.mu.Lock()
	s.sourceAt = header.Hash
	s.sourceState = state
	s.mu.Unlock()
	return nil
}

// ReadTarget reads the lane's inbound counters at the target's currently
// finalized header.
func (s *DeliveryStrategy) ReadTarget(ctx context.Context) error {
	header, err := s.Target.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	state, err := s.Target.InboundLaneState(ctx, header.Hash, s.Lane)
	if err != nil {
		return core.NewTransientError(err)
	}
	s.mu.Lock()
	s.targetState = state
	s.mu.Unlock()
	return nil
}

// Decide implements §4.4.1: pick the largest nonce range starting at
// target.LatestReceived+1 that respects every cap, fetch its proof, and
// trim to the caps a declared-weight/size read can only confirm after the
// fact.
func (s *DeliveryStrategy) Decide(ctx context.Context) (*core.Action, error) {
	s.mu.Lock()
	sourceState := s.sourceState
	targetState := s.targetState
	sourceAt := s.sourceAt
	s.mu.Unlock()

	// confirmed is the freshest known source-side latest_confirmed: the
	// on-chain target counter itself only advances when the next
	// receive_messages_proof lands with the lanes_state built below, so
	// using it here (rather than targetState.LatestConfirmed) is what lets
	// delivery resume as soon as the confirmation race reports a
	// confirmation, instead of waiting for a tx that the cap itself would
	// otherwise block from ever being sent.
	confirmed := targetState.LatestConfirmed
	if sourceState.LatestConfirmed > confirmed {
		confirmed = sourceState.LatestConfirmed
	}

	if s.Caps.MaxUnconfirmed > 0 && targetState.LatestReceived > confirmed &&
		targetState.LatestReceived-confirmed >= s.Caps.MaxUnconfirmed {
		// The inbound lane already has as many undelivered-confirmation
		// messages as it may; wait for the confirmation race.
		return nil, nil
	}

	begin := targetState.LatestReceived + 1
	end := sourceState.LatestGenerated
	if end < begin {
		return nil, nil
	}
	if cap := begin + s.Caps.messagesPerTx() - 1; end > cap {
		end = cap
	}
	if s.Caps.MaxUnconfirmed > 0 {
		if cap := confirmed + s.Caps.MaxUnconfirmed; end > cap {
			end = cap
		}
	}
	if end < begin {
		return nil, nil
	}

	proof, err := s.Source.MessagesProof(ctx, sourceAt, s.Lane, begin, end)
	if err != nil {
		return nil, core.NewTransientError(err)
	}
	proof.SourceLatestConfirmed = sourceState.LatestConfirmed

	proof = trimToCaps(proof, s.Caps)
	if len(proof.Messages) == 0 {
		return nil, core.NewInvalidError("no messages fit the delivery transaction's size/weight budget", nil)
	}
	// The range claimed by the proof ends at the last message it carries,
	// so the target never records nonces it was not given as received.
	if last := proof.Messages[len(proof.Messages)-1].Nonce; last < proof.ToNonce {
		proof.ToNonce = last
	}

	relayer := s.Signer.AccountID()
	action := &core.Action{
		Submit: func(ctx context.Context) (core.TxHandle, error) {
			return s.Target.SubmitMessagesProof(ctx, relayer, proof, s.Signer)
		},
		Track: func(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
			return s.Target.WatchTransaction(ctx, tx)
		},
	}
	return action, nil
}

// trimToCaps drops messages off the high-nonce end of a proof until its
// declared size and weight both fit within caps. Real proofs are opaque
// storage proofs so a smaller nonce range technically needs re-fetching to
// get a matching proof; callers that need a strict on-chain-verifiable proof
// should treat a trim as a signal to re-request MessagesProof with the
// resulting [FromNonce, ToNonce] instead of submitting this shortened copy.
func trimToCaps(proof core.MessagesProof, caps DeliveryCaps) core.MessagesProof {
	weightBudget := caps.weightBudget()
	sizeBudget := caps.MaxExtrinsicSize

	messages := proof.Messages
	for len(messages) > 0 {
		var weight, size uint64
		for _, m := range messages {
			weight += m.Weight
			size += m.Size
		}
		fitsWeight := weightBudget == 0 || weight <= weightBudget
		fitsSize := sizeBudget == 0 || size <= sizeBudget
		if fitsWeight && fitsSize {
			break
		}
		messages = messages[:len(messages)-1]
	}

	if len(messages) == len(proof.Messages) {
		return proof
	}
	trimmed := proof
	trimmed.Messages = messages
	if len(messages) == 0 {
		trimmed.ToNonce = trimmed.FromNonce - 1
	} else {
		trimmed.ToNonce = messages[len(messages)-1].Nonce
	}
	return trimmed
}
