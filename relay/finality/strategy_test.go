package finality

import (
	"context"
	"testing"
	"time"

	"github.com/paritytech/parity-bridges-common/core"
)

type fakeFinalityChain struct {
	id core.ChainID

	finalized core.Header
	proofs    map[core.BlockNumber]core.FinalityProof

	bestAtTarget core.BlockNumber

	submitted []core.FinalityProof
	submitErr error
}

func (c *fakeFinalityChain) ChainID() core.ChainID                  { return c.id }
func (c *fakeFinalityChain) Name() string                           { return c.id.String() }
func (c *fakeFinalityChain) AverageBlockTime() time.Duration        { return time.Second }
func (c *fakeFinalityChain) BestHeader(ctx context.Context) (core.Header, error) {
	return c.finalized, nil
}
func (c *fakeFinalityChain) FinalizedHeader(ctx context.Context) (core.Header, error) {
	return c.finalized, nil
}
func (c *fakeFinalityChain) SubscribeNewHeads(ctx context.Context) (<-chan core.Header, error) {
	ch := make(chan core.Header)
	return ch, nil
}
func (c *fakeFinalityChain) SubscribeFinalized(ctx context.Context) (<-chan core.Header, error) {
	ch := make(chan core.Header)
	return ch, nil
}
func (c *fakeFinalityChain) WatchTransaction(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
	ch := make(chan core.TxStatusEvent, 1)
	ch <- core.TxStatusEvent{Status: core.TxFinalized}
	close(ch)
	return ch, nil
}
func (c *fakeFinalityChain) CurrentVoterSet(ctx context.Context, at core.Hash) (core.VoterSetID, error) {
	return 1, nil
}
func (c *fakeFinalityChain) FinalityProof(ctx context.Context, number core.BlockNumber) (*core.FinalityProof, error) {
	if p, ok := c.proofs[number]; ok {
		return &p, nil
	}
	return nil, nil
}
func (c *fakeFinalityChain) SubmitFinalityProof(ctx context.Context, header core.Header, proof core.FinalityProof, signer core.Signer) (core.TxHandle, error) {
	if c.submitErr != nil {
		return core.TxHandle{}, c.submitErr
	}
	c.submitted = append(c.submitted, proof)
	return core.TxHandle{Chain: c.id, Hash: core.Hash{byte(proof.TargetNumber)}}, nil
}
func (c *fakeFinalityChain) BestFinalizedHeaderNumberAt(ctx context.Context, sourceChain core.ChainID) (core.BlockNumber, error) {
	return c.bestAtTarget, nil
}

var _ core.ChainWithFinality = (*fakeFinalityChain)(nil)

func TestStrategyReadSourceBuffersNewProof(t *testing.T) {
	source := &fakeFinalityChain{
		id:        core.ChainID{'s', 'r', 'c', '0'},
		finalized: core.Header{Number: 10},
		proofs: map[core.BlockNumber]core.FinalityProof{
			10: {TargetNumber: 10, Mandatory: false},
		},
	}
	target := &fakeFinalityChain{id: core.ChainID{'t', 'g', 't', '0'}}

	s := &Strategy{Source: source, Target: target}
	if err := s.ReadSource(context.Background()); err != nil {
		t.Fatalf("ReadSource: %v", err)
	}
	if len(s.pending) != 1 || s.pending[0].TargetNumber != 10 {
		t.Fatalf("expected one pending proof for block 10, got %+v", s.pending)
	}
}

func TestStrategyDecideSubmitsWhenTargetBehind(t *testing.T) {
	source := &fakeFinalityChain{id: core.ChainID{'s', 'r', 'c', '0'}}
	target := &fakeFinalityChain{id: core.ChainID{'t', 'g', 't', '0'}, bestAtTarget: 5}

	s := &Strategy{Source: source, Target: target}
	s.pending = []core.FinalityProof{{TargetNumber: 12}}
	s.bestAtTarget = 5

	action, err := s.Decide(context.Background())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if action == nil {
		t.Fatal("expected a submit action")
	}

	tx, err := action.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(target.submitted) != 1 || target.submitted[0].TargetNumber != 12 {
		t.Fatalf("expected proof for block 12 to be submitted, got %+v", target.submitted)
	}
	if tx.Chain != target.id {
		t.Fatalf("tx handle chain mismatch: %v", tx.Chain)
	}

	events, err := action.Track(context.Background(), tx)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	ev := <-events
	if ev.Status != core.TxFinalized {
		t.Fatalf("expected finalized event, got %v", ev.Status)
	}
}

func TestStrategyDecideIdleWhenTargetCaughtUp(t *testing.T) {
	source := &fakeFinalityChain{id: core.ChainID{'s', 'r', 'c', '0'}}
	target := &fakeFinalityChain{id: core.ChainID{'t', 'g', 't', '0'}}

	s := &Strategy{Source: source, Target: target}
	s.pending = []core.FinalityProof{{TargetNumber: 5}}
	s.bestAtTarget = 5

	action, err := s.Decide(context.Background())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if action != nil {
		t.Fatalf("expected no action, target already at 5")
	}
}

func TestStrategyOnlyMandatoryFiltersNonMandatory(t *testing.T) {
	source := &fakeFinalityChain{id: core.ChainID{'s', 'r', 'c', '0'}}
	target := &fakeFinalityChain{id: core.ChainID{'t', 'g', 't', '0'}}

	s := &Strategy{Source: source, Target: target, OnlyMandatory: true}
	s.pending = []core.FinalityProof{{TargetNumber: 20, Mandatory: false}}
	s.bestAtTarget = 5

	action, err := s.Decide(context.Background())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if action != nil {
		t.Fatal("expected non-mandatory proof to be filtered out")
	}
}

func TestStrategyReadSourceReportsStarvationAfterThreshold(t *testing.T) {
	source := &fakeFinalityChain{
		id:        core.ChainID{'s', 'r', 'c', '0'},
		finalized: core.Header{Number: 10},
		proofs:    map[core.BlockNumber]core.FinalityProof{},
	}
	target := &fakeFinalityChain{id: core.ChainID{'t', 'g', 't', '0'}}

	s := &Strategy{Source: source, Target: target, StarvationThreshold: 3}
	var lastErr error
	for i := 0; i < 3; i++ {
		lastErr = s.ReadSource(context.Background())
	}
	if _, ok := lastErr.(*core.StarvationError); !ok {
		t.Fatalf("expected StarvationError after threshold, got %v", lastErr)
	}
}

func TestClassifySubmitErrorMapsRejectionToInvalid(t *testing.T) {
	err := classifySubmitError(rejectionError{})
	if _, ok := err.(*core.InvalidError); !ok {
		t.Fatalf("expected InvalidError, got %T", err)
	}

	err = classifySubmitError(context.DeadlineExceeded)
	if _, ok := err.(*core.TransientError); !ok {
		t.Fatalf("expected TransientError, got %T", err)
	}
}

type rejectionError struct{}

func (rejectionError) Error() string          { return "bad proof" }
func (rejectionError) IsProofRejection() bool { return true }
