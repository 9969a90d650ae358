// Package parachains implements the Parachain Head Loop of §4.3: it anchors
// a batch of parachain heads to a finalized relay-chain header and submits
// them to a target's light client once the target's light client has that
// relay-chain header available.
package parachains

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
)

// Strategy implements core.Strategy for one direction of the parachain head
// loop: Relay is the relay chain hosting the parachains named by Parachains;
// Target is the chain whose light client records their heads.
type Strategy struct {
	Relay      core.ChainWithParachains
	Target     core.ChainWithParachains
	Signer     core.Signer
	Parachains []core.ParachainID

	Logger *slog.Logger

	mu                sync.Mutex
	anchor            core.Header
	sourceHeads       []core.ParachainHeadProof
	targetHeads       map[core.ParachainID]core.Hash
	targetRelayNumber core.BlockNumber
}

var _ core.Strategy = (*Strategy)(nil)

func (s *Strategy) Name() string { return "parachains" }

func (s *Strategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.GetLogger().WithModule("parachains.strategy").Logger
}

// ReadSource anchors on the relay chain's currently finalized header and
// reads every tracked parachain's head and storage proof at that anchor.
// The relay's light client on Target only ever accepts an anchor it has
// already imported, so submission (Decide) separately checks that before
// building an Action; ReadSource always reads the freshest anchor available.
func (s *Strategy) ReadSource(ctx context.Context) error {
	anchor, err := s.Relay.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	heads := make([]core.ParachainHeadProof, 0, len(s.Parachains))
	for _, id := range s.Parachains {
		head, err := s.Relay.ParachainHead(ctx, anchor.Hash, id)
		if err != nil {
			return core.NewTransientError(err)
		}
		heads = append(heads, head)
	}

	s.mu.Lock()
	s.anchor = anchor
	s.sourceHeads = heads
	s.mu.Unlock()
	return nil
}

// ReadTarget reads the target's recorded relay-chain anchor and per-
// parachain head.
func (s *Strategy) ReadTarget(ctx context.Context) error {
	heads := make(map[core.ParachainID]core.Hash, len(s.Parachains))
	for _, id := range s.Parachains {
		head, err := s.Target.RecordedParachainHead(ctx, id)
		if err != nil {
			return core.NewTransientError(err)
		}
		heads[id] = head
	}

	targetRelayNumber, err := s.targetRelayAnchor(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.targetHeads = heads
	s.targetRelayNumber = targetRelayNumber
	s.mu.Unlock()
	return nil
}

// targetRelayAnchor reads the highest relay-chain header number the target's
// light client currently trusts, if Target also implements
// ChainWithFinality (the common case: a bridge hub tracks GRANDPA finality
// of its relay chain directly). If it doesn't, submission proceeds without
// the anchor-availability gate and relies on the target simply rejecting an
// unknown anchor.
func (s *Strategy) targetRelayAnchor(ctx context.Context) (core.BlockNumber, error) {
	withFinality, ok := s.Target.(core.ChainWithFinality)
	if !ok {
		return 0, nil
	}
	n, err := withFinality.BestFinalizedHeaderNumberAt(ctx, s.Relay.ChainID())
	if err != nil {
		return 0, core.NewTransientError(err)
	}
	return n, nil
}

// Decide implements §4.3's submission rule: submit the subset of tracked
// parachains whose source head differs from the target's recorded head,
// anchored at the relay-chain header ReadSource last read as finalized on
// the relay chain itself; heads are not read at the target's own best
// relay header. Decide returns no action when the target reports a
// nonzero best relay header number below the anchor's, or when every
// tracked head already matches. A target reporting zero, or one without
// relay-chain finality, is not gated.
func (s *Strategy) Decide(ctx context.Context) (*core.Action, error) {
	s.mu.Lock()
	anchor := s.anchor
	sourceHeads := s.sourceHeads
	targetHeads := s.targetHeads
	targetRelayNumber := s.targetRelayNumber
	s.mu.Unlock()

	if targetRelayNumber != 0 && anchor.Number > targetRelayNumber {
		// The target's light client hasn't imported an anchor recent enough
		// to accept a proof rooted at our current view; wait for the
		// finality loop to catch it up. Sparse relay-chain finality means
		// this is the common case between mandatory headers.
		return nil, nil
	}

	var stale []core.ParachainHeadProof
	for _, head := range sourceHeads {
		if core.NeedsSubmission(head.Head, targetHeads[head.ID]) {
			stale = append(stale, head)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	anchorHash := anchor.Hash
	action := &core.Action{
		Submit: func(ctx context.Context) (core.TxHandle, error) {
			return s.Target.SubmitParachainHeads(ctx, anchorHash, stale, s.Signer)
		},
		Track: func(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
			return s.Target.WatchTransaction(ctx, tx)
		},
	}
	return action, nil
}
