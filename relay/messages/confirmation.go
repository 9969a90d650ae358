package messages

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paritytech/parity-bridges-common/core"
)

// ConfirmationStrategy implements core.Strategy for the confirmation race of
// §4.4.2. Naming follows the race's own source/target, which run opposite
// the bridge's message-flow direction: Receiving is the chain that accepted
// the messages (the race's read source), Emitting is the chain that
// originally sent them and is owed the delivery-confirmation proof so it can
// advance its reward accounting (the race's submission target).
type ConfirmationStrategy struct {
	Receiving core.ChainWithMessages
	Emitting  core.ChainWithMessages
	Lane      core.LaneID
	Signer    core.Signer

	Logger *slog.Logger

	mu            sync.Mutex
	receivingAt   core.Hash
	receivingSt   core.InboundLaneState
	emittingState core.OutboundLaneState
}

var _ core.Strategy = (*ConfirmationStrategy)(nil)

func (s *ConfirmationStrategy) Name() string { return "confirmation" }

// ReadSource reads the receiving chain's inbound lane counters.
func (s *ConfirmationStrategy) ReadSource(ctx context.Context) error {
	header, err := s.Receiving.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	state, err := s.Receiving.InboundLaneState(ctx, header.Hash, s.Lane)
	if err != nil {
		return core.NewTransientError(err)
	}
	s.mu.Lock()
	s.receivingAt = header.Hash
	s.receivingSt = state
	s.mu.Unlock()
	return nil
}

// ReadTarget reads the emitting chain's outbound lane counters.
func (s *ConfirmationStrategy) ReadTarget(ctx context.Context) error {
	header, err := s.Emitting.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	state, err := s.Emitting.OutboundLaneState(ctx, header.Hash, s.Lane)
	if err != nil {
		return core.NewTransientError(err)
	}
	s.mu.Lock()
	s.emittingState = state
	s.mu.Unlock()
	return nil
}

// Decide submits a delivery-confirmation proof once the receiving chain has
// accepted messages the emitting chain hasn't yet recorded as confirmed.
func (s *ConfirmationStrategy) Decide(ctx context.Context) (*core.Action, error) {
	s.mu.Lock()
	receivingSt := s.receivingSt
	emittingSt := s.emittingState
	receivingAt := s.receivingAt
	s.mu.Unlock()

	if receivingSt.LatestReceived <= emittingSt.LatestConfirmed {
		return nil, nil
	}

	proof, err := s.Receiving.MessagesDeliveryProof(ctx, receivingAt, s.Lane)
	if err != nil {
		return nil, core.NewTransientError(err)
	}

	action := &core.Action{
		Submit: func(ctx context.Context) (core.TxHandle, error) {
			return s.Emitting.SubmitMessagesDeliveryProof(ctx, proof, s.Signer)
		},
		Track: func(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
			return s.Emitting.WatchTransaction(ctx, tx)
		},
	}
	return action, nil
}
