package messages

import (
	"context"
	"testing"

	"github.com/paritytech/parity-bridges-common/core"
)

func TestConfirmationStrategySubmitsWhenReceivingAheadOfEmittingConfirmation(t *testing.T) {
	lane := core.LaneID{'l', 'a', 'n', '0'}
	receiving := &fakeMessageChain{
		id:           core.ChainID{'t', 'g', 't', '0'},
		finalized:    core.Header{Hash: core.Hash{2}},
		inbound:      core.InboundLaneState{LatestReceived: 10, LatestConfirmed: 0},
		deliverProof: core.MessagesDeliveryProof{Lane: lane},
	}
	emitting := &fakeMessageChain{
		id:        core.ChainID{'s', 'r', 'c', '0'},
		finalized: core.Header{Hash: core.Hash{1}},
		outbound:  core.OutboundLaneState{LatestGenerated: 10, LatestConfirmed: 0},
	}

	s := &ConfirmationStrategy{Receiving: receiving, Emitting: emitting, Lane: lane, Signer: fakeSigner{}}
	if err := s.ReadSource(context.Background()); err != nil {
		t.Fatalf("ReadSource: %v", err)
	}
	if err := s.ReadTarget(context.Background()); err != nil {
		t.Fatalf("ReadTarget: %v", err)
	}
	action, err := s.Decide(context.Background())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if action == nil {
		t.Fatal("expected a confirmation action")
	}
	if _, err := action.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(emitting.submittedDelivery) != 1 {
		t.Fatalf("expected one delivery proof submitted to the emitting chain, got %d", len(emitting.submittedDelivery))
	}
}

func TestConfirmationStrategyIdleWhenAlreadyConfirmed(t *testing.T) {
	lane := core.LaneID{'l', 'a', 'n', '0'}
	receiving := &fakeMessageChain{inbound: core.InboundLaneState{LatestReceived: 10}}
	emitting := &fakeMessageChain{outbound: core.OutboundLaneState{LatestConfirmed: 10}}

	s := &ConfirmationStrategy{Receiving: receiving, Emitting: emitting, Lane: lane, Signer: fakeSigner{}}
	if err := s.ReadSource(context.Background()); err != nil {
		t.Fatalf("ReadSource: %v", err)
	}
	if err := s.ReadTarget(context.Background()); err != nil {
		t.Fatalf("ReadTarget: %v", err)
	}
	action, err := s.Decide(context.Background())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if action != nil {
		t.Fatal("expected no action once the emitting chain already recorded confirmation")
	}
}
