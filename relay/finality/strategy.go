// Package finality implements the Finality Loop of §4.2: it tracks
// source-chain finality and submits proofs to the target so the target's
// on-chain light client advances.
package finality

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
)

// Strategy implements core.Strategy for the finality loop. Its state is a
// buffer of unconsumed source finality proofs plus the target's last
// observed best-known source height.
type Strategy struct {
	Source core.ChainWithFinality
	Target core.ChainWithFinality
	Signer core.Signer

	// OnlyMandatory restricts submission to mandatory (voter-set-change)
	// proofs, matching the CLI's --only-mandatory-headers flag (§6).
	OnlyMandatory bool

	// StarvationThreshold is the number of consecutive ticks the source may
	// report a finalized header with no buffered proof before ReadSource
	// gives up and reports a StarvationError (§4.2: "mandatory proof
	// unavailable from source: fatal for the loop"). Zero uses the default
	// of 30.
	StarvationThreshold uint

	Logger *slog.Logger

	mu                 sync.Mutex
	pending            []core.FinalityProof
	bestAtTarget       core.BlockNumber
	lastSubmitted      core.BlockNumber
	unavailableStreak  uint
	unavailableAt      core.BlockNumber
}

const defaultStarvationThreshold = 30

var _ core.Strategy = (*Strategy)(nil)

func (s *Strategy) Name() string { return "finality" }

func (s *Strategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.GetLogger().WithModule("finality.strategy").Logger
}

// ReadSource pulls the source's currently finalized header and, if it
// advanced since the last read, appends its proof to the pending buffer.
func (s *Strategy) ReadSource(ctx context.Context) error {
	header, err := s.Source.FinalizedHeader(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	s.mu.Lock()
	last := s.lastSubmitted
	if len(s.pending) > 0 {
		last = s.pending[len(s.pending)-1].TargetNumber
	}
	s.mu.Unlock()

	if header.Number <= last {
		return nil
	}

	proof, err := s.Source.FinalityProof(ctx, header.Number)
	if err != nil {
		return core.NewTransientError(err)
	}
	if proof == nil {
		threshold := s.StarvationThreshold
		if threshold == 0 {
			threshold = defaultStarvationThreshold
		}
		s.mu.Lock()
		if s.unavailableStreak == 0 || s.unavailableAt != header.Number {
			s.unavailableAt = header.Number
			s.unavailableStreak = 1
		} else {
			s.unavailableStreak++
		}
		streak := s.unavailableStreak
		s.mu.Unlock()
		if streak >= threshold {
			return &core.StarvationError{Chain: s.Source.ChainID(), Since: header.Number}
		}
		return nil
	}

	s.mu.Lock()
	s.pending = append(s.pending, *proof)
	s.unavailableStreak = 0
	s.mu.Unlock()
	return nil
}

// ReadTarget pulls the target's current view of the best finalized source
// header number.
func (s *Strategy) ReadTarget(ctx context.Context) error {
	best, err := s.Target.BestFinalizedHeaderNumberAt(ctx, s.Source.ChainID())
	if err != nil {
		return core.NewTransientError(err)
	}
	s.mu.Lock()
	s.bestAtTarget = best
	s.mu.Unlock()
	return nil
}

// Decide implements §4.2's submission decision, coalescing rule, and
// tie-break rule.
func (s *Strategy) Decide(ctx context.Context) (*core.Action, error) {
	s.mu.Lock()
	candidates := core.SelectFinalityProofsToSubmit(s.pending, s.bestAtTarget)
	s.mu.Unlock()

	if s.OnlyMandatory {
		candidates = mandatoryOnly(candidates)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// candidates is ordered by target number, one entry per mandatory
	// boundary (§4.2): submit the earliest pending one first, since a
	// mandatory proof must land before any later proof signed under its
	// resulting voter set can verify. Tie-break only within candidates
	// that share that earliest target number, in case ReadSource ever
	// buffers more than one proof for the same header.
	earliest := candidates[0].TargetNumber
	var tied []core.FinalityProof
	for _, c := range candidates {
		if c.TargetNumber == earliest {
			tied = append(tied, c)
		}
	}
	proof, ok := core.TieBreakFinalityProof(tied)
	if !ok {
		return nil, nil
	}

	header := core.Header{Number: proof.TargetNumber}
	action := &core.Action{
		Submit: func(ctx context.Context) (core.TxHandle, error) {
			tx, err := s.Target.SubmitFinalityProof(ctx, header, proof, s.Signer)
			if err != nil {
				return core.TxHandle{}, classifySubmitError(err)
			}
			s.mu.Lock()
			s.pending = removeUpTo(s.pending, proof.TargetNumber)
			s.lastSubmitted = proof.TargetNumber
			s.mu.Unlock()
			return tx, nil
		},
		Track: func(ctx context.Context, tx core.TxHandle) (<-chan core.TxStatusEvent, error) {
			return s.Target.WatchTransaction(ctx, tx)
		},
	}
	return action, nil
}

func mandatoryOnly(proofs []core.FinalityProof) []core.FinalityProof {
	var out []core.FinalityProof
	for _, p := range proofs {
		if p.Mandatory {
			out = append(out, p)
		}
	}
	return out
}

func removeUpTo(proofs []core.FinalityProof, n core.BlockNumber) []core.FinalityProof {
	var out []core.FinalityProof
	for _, p := range proofs {
		if p.TargetNumber > n {
			out = append(out, p)
		}
	}
	return out
}

// classifySubmitError maps a raw submission error onto the taxonomy of §7:
// a proof rejected as stale/wrong-voter-set/malformed is Invalid and must
// never be resubmitted; anything else is Transient.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	if isProofRejection(err) {
		return core.NewInvalidError("target rejected finality proof", err)
	}
	return core.NewTransientError(err)
}

func isProofRejection(err error) bool {
	type rejector interface{ IsProofRejection() bool }
	if r, ok := err.(rejector); ok {
		return r.IsProofRejection()
	}
	return false
}
