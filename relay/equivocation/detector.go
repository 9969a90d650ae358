// Package equivocation implements the equivocation detector of §4.7:
// it watches a chain's own finality justifications for a voter that signed
// two different blocks in the same GRANDPA round, and reports each one it
// catches (once per voter and round) back to that chain.
package equivocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
)

// Detector accumulates signed votes seen across a chain's finality
// justifications and reports each equivocation it finds, grounded on
// original_source's equivocation_loop.rs scan-the-justification approach.
type Detector struct {
	Chain  core.ChainWithEquivocationDetection
	Signer core.Signer

	// PollInterval does not pace scanning: Run scans each finalized header
	// as the finality subscription delivers it.
	PollInterval time.Duration

	Logger *slog.Logger

	seen     map[voteKey]core.SignedVote
	reported map[voteKey]bool
}

type voteKey struct {
	VoterSet core.VoterSetID
	Round    uint64
	Voter    [32]byte
}

// Run scans every newly finalized header's justification until ctx is
// cancelled, reporting the first equivocation found for each voter/round
// exactly once. If the finality subscription closes first, Run stops
// scanning and waits for ctx to be cancelled.
func (d *Detector) Run(ctx context.Context) error {
	logger := d.logger()
	if d.seen == nil {
		d.seen = make(map[voteKey]core.SignedVote)
	}

	interval := d.PollInterval
	if interval <= 0 {
		interval = d.Chain.AverageBlockTime()
	}
	if interval <= 0 {
		interval = 6 * time.Second
	}

	headers, err := d.Chain.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case header, ok := <-headers:
			if !ok {
				logger.WarnContext(ctx, "equivocation scanning stopped", "chain", d.Chain.ChainID().String(), "error", errFinalitySubscriptionClosed)
				headers = nil
				continue
			}
			if err := d.scan(ctx, header.Number); err != nil {
				if isFatal(err) {
					return err
				}
				logger.ErrorContext(ctx, "equivocation scan failed", "chain", d.Chain.ChainID().String(), "block", header.Number, "error", err)
			}
		}
	}
}

// scan reads the votes aggregated by the justification finalizing number,
// checks each against every vote previously seen for its voter/round, and
// reports each voter/round's first conflict found.
func (d *Detector) scan(ctx context.Context, number core.BlockNumber) error {
	votes, err := d.Chain.FinalityProofVotes(ctx, number)
	if err != nil {
		return core.NewTransientError(err)
	}

	for _, v := range votes {
		k := voteKey{VoterSet: v.VoterSet, Round: v.Round, Voter: v.Voter}
		prior, ok := d.seen[k]
		if !ok {
			d.seen[k] = v
			continue
		}
		proof, isEquiv := core.FindEquivocation(prior, v)
		if !isEquiv || d.reported[k] {
			continue
		}
		if err := d.report(ctx, proof); err != nil {
			return err
		}
		if d.reported == nil {
			d.reported = make(map[voteKey]bool)
		}
		d.reported[k] = true
	}
	return nil
}

func (d *Detector) report(ctx context.Context, proof core.EquivocationProof) error {
	logger := d.logger()
	logger.WarnContext(ctx, "equivocation detected",
		"chain", d.Chain.ChainID().String(),
		"voter_set", proof.VoterSet,
		"round", proof.Round,
	)

	tx, err := d.Chain.SubmitReportEquivocation(ctx, proof, d.Signer)
	if err != nil {
		return core.NewTransientError(err)
	}

	events, err := d.Chain.WatchTransaction(ctx, tx)
	if err != nil {
		return core.NewTransientError(err)
	}
	status := core.NewTransactionTracker(alwaysOkEnv{}, tx, time.Minute, events).Wait(ctx)
	logger.InfoContext(ctx, "equivocation report reached terminal status",
		"chain", d.Chain.ChainID().String(), "status", status.String())
	return nil
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return &log.GetLogger().WithModule("equivocation.detector").Logger
}

func isFatal(err error) bool {
	switch err.(type) {
	case *core.FatalError, *core.IncompatibleRuntimeError:
		return true
	default:
		return false
	}
}

type alwaysOkEnv struct{}

func (alwaysOkEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash core.Hash) (core.DispatchOutcome, error) {
	return core.DispatchOk, nil
}

type finalitySubscriptionClosedError string

func (e finalitySubscriptionClosedError) Error() string { return string(e) }

const errFinalitySubscriptionClosed = finalitySubscriptionClosedError("finality subscription closed")
