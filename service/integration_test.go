package service

import (
	"context"
	"testing"
	"time"

	"github.com/paritytech/parity-bridges-common/chains/mock"
	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/relay/finality"
	"github.com/paritytech/parity-bridges-common/relay/messages"
)

// TestHappyPathDelivery drives the delivery race (and its confirmation
// counterpart) end to end against two mock chains: five messages generated
// on the source lane are delivered to the target in one transaction, and
// the source eventually sees them confirmed.
func TestHappyPathDelivery(t *testing.T) {
	source := mock.New(core.ChainID{'s', 'r', 'c', '0'}, "source")
	target := mock.New(core.ChainID{'t', 'g', 't', '0'}, "target")

	lane := core.LaneID{0, 0, 0, 0}
	signer, err := mock.NewSigner()
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	source.FinalizeHeader(core.Header{Number: 1})
	target.FinalizeHeader(core.Header{Number: 1})

	var msgs []core.MessageEnvelope
	for n := core.Nonce(1); n <= 5; n++ {
		msgs = append(msgs, core.MessageEnvelope{Nonce: n, Payload: []byte("msg"), Weight: 1, Size: 1})
	}
	source.AddMessages(lane, msgs...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bridge := &Bridge{
		DrainTimeout: 200 * time.Millisecond,
		Runners: []Runner{
			func(ctx context.Context) error {
				return messages.Run(ctx, messages.LoopConfig{
					Source:          source,
					Target:          target,
					Lane:            lane,
					Signer:          signer,
					Caps:            messages.DeliveryCaps{},
					MinTickInterval: 5 * time.Millisecond,
				})
			},
		},
	}

	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		inbound, err := target.InboundLaneState(ctx, core.Hash{}, lane)
		if err != nil {
			t.Fatalf("InboundLaneState: %v", err)
		}
		if inbound.LatestReceived == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("target never received all five messages, got latest_received=%d", inbound.LatestReceived)
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		outbound, err := source.OutboundLaneState(ctx, core.Hash{}, lane)
		if err != nil {
			t.Fatalf("OutboundLaneState: %v", err)
		}
		if outbound.LatestConfirmed == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("source never observed delivery confirmation, got latest_confirmed=%d", outbound.LatestConfirmed)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		t.Fatalf("bridge.Run: %v", err)
	}
}

// TestCoalescedFinalitySubmitsMandatoryBeforeCoalescedTip drives
// relay/finality's Strategy directly against a mock source/target pair
// through its exported ReadSource/ReadTarget/Decide methods, the same
// surface core.Scheduler drives a tick at a time. The source finalizes
// headers 100, 101 (a mandatory voter-set change), 102 and 103 while the
// target sits at 99; the strategy must submit the mandatory proof for 101
// before the coalesced tip at 103, never dropping the mandatory proof
// along the way.
func TestCoalescedFinalitySubmitsMandatoryBeforeCoalescedTip(t *testing.T) {
	source := mock.New(core.ChainID{'s', 'r', 'c', '1'}, "source")
	target := mock.New(core.ChainID{'t', 'g', 't', '1'}, "target")
	target.SetTrackedSource(source.ChainID())

	signer, err := mock.NewSigner()
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	ctx := context.Background()

	// Seed the target's tracked best-finalized-source height at 99 without
	// going through the strategy, mirroring where a real light client
	// would already sit before this test's scenario begins.
	if _, err := target.SubmitFinalityProof(ctx, core.Header{Number: 99}, core.FinalityProof{TargetNumber: 99}, signer); err != nil {
		t.Fatalf("seed SubmitFinalityProof: %v", err)
	}

	strategy := &finality.Strategy{Source: source, Target: target, Signer: signer}

	source.SetVoterSet(1)
	source.FinalizeHeader(core.Header{Number: 100})
	source.AddFinalityProof(core.FinalityProof{TargetNumber: 100, VoterSet: 1, Mandatory: false})
	if err := strategy.ReadSource(ctx); err != nil {
		t.Fatalf("ReadSource(100): %v", err)
	}

	source.SetVoterSet(2)
	source.FinalizeHeader(core.Header{Number: 101})
	source.AddFinalityProof(core.FinalityProof{TargetNumber: 101, VoterSet: 1, NextVoterSet: 2, Mandatory: true})
	if err := strategy.ReadSource(ctx); err != nil {
		t.Fatalf("ReadSource(101): %v", err)
	}

	source.FinalizeHeader(core.Header{Number: 102})
	source.AddFinalityProof(core.FinalityProof{TargetNumber: 102, VoterSet: 2, Mandatory: false})
	if err := strategy.ReadSource(ctx); err != nil {
		t.Fatalf("ReadSource(102): %v", err)
	}

	source.FinalizeHeader(core.Header{Number: 103})
	source.AddFinalityProof(core.FinalityProof{TargetNumber: 103, VoterSet: 2, Mandatory: false})
	if err := strategy.ReadSource(ctx); err != nil {
		t.Fatalf("ReadSource(103): %v", err)
	}

	if err := strategy.ReadTarget(ctx); err != nil {
		t.Fatalf("ReadTarget: %v", err)
	}

	action, err := strategy.Decide(ctx)
	if err != nil {
		t.Fatalf("Decide (first): %v", err)
	}
	if action == nil {
		t.Fatal("expected a submit action for the mandatory proof at 101")
	}
	if _, err := action.Submit(ctx); err != nil {
		t.Fatalf("Submit (101): %v", err)
	}

	best, err := target.BestFinalizedHeaderNumberAt(ctx, source.ChainID())
	if err != nil {
		t.Fatalf("BestFinalizedHeaderNumberAt: %v", err)
	}
	if best != 101 {
		t.Fatalf("expected the mandatory proof for 101 to be submitted first, target now reports best=%d", best)
	}

	if err := strategy.ReadTarget(ctx); err != nil {
		t.Fatalf("ReadTarget (second): %v", err)
	}
	action, err = strategy.Decide(ctx)
	if err != nil {
		t.Fatalf("Decide (second): %v", err)
	}
	if action == nil {
		t.Fatal("expected a submit action for the coalesced tip at 103")
	}
	if _, err := action.Submit(ctx); err != nil {
		t.Fatalf("Submit (103): %v", err)
	}

	best, err = target.BestFinalizedHeaderNumberAt(ctx, source.ChainID())
	if err != nil {
		t.Fatalf("BestFinalizedHeaderNumberAt: %v", err)
	}
	if best != 103 {
		t.Fatalf("expected the coalesced proof for 102 and 103 to land on 103, target reports best=%d", best)
	}

	action, err = strategy.Decide(ctx)
	if err != nil {
		t.Fatalf("Decide (third): %v", err)
	}
	if action != nil {
		t.Fatal("expected nothing left to submit once the target has caught up to 103")
	}
}
