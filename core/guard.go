package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/paritytech/parity-bridges-common/log"
)

// GuardVerdict is the outcome of comparing the bundled expected runtime
// version against the version actually reported by a target chain.
type GuardVerdict int

const (
	Compatible GuardVerdict = iota
	SpecOnly
	Incompatible
)

func (v GuardVerdict) String() string {
	switch v {
	case Compatible:
		return "Compatible"
	case SpecOnly:
		return "SpecOnly"
	case Incompatible:
		return "Incompatible"
	default:
		return "Unknown"
	}
}

// RuntimeVersionGuard implements §4.1: it periodically compares a chain's
// reported runtime version against the version bundled with the relay
// binary and aborts the affected loop on an incompatible change.
//
// PermissiveSpecBump resolves Open Question (b): when true, a SpecOnly
// change is logged at INFO; when false (the default) it is logged at WARN.
// Either way SpecOnly never aborts — only a transaction_version change
// does, per §4.1's contract.
type RuntimeVersionGuard struct {
	Chain              ChainID
	Expected           RuntimeVersion
	CheckInterval      time.Duration
	PermissiveSpecBump bool

	logger *slog.Logger
}

// NewRuntimeVersionGuard constructs a guard for chain with the given
// bundled expectation.
func NewRuntimeVersionGuard(chain ChainID, expected RuntimeVersion, checkInterval time.Duration, permissiveSpecBump bool, logger *slog.Logger) *RuntimeVersionGuard {
	if logger == nil {
		logger = &log.GetLogger().WithModule("core.guard").Logger
	}
	return &RuntimeVersionGuard{
		Chain:              chain,
		Expected:           expected,
		CheckInterval:      checkInterval,
		PermissiveSpecBump: permissiveSpecBump,
		logger:             logger,
	}
}

// Check compares expected against actual and returns the verdict, per
// §4.1's `check(chain) -> Compatible | SpecOnly | Incompatible` contract.
func (g *RuntimeVersionGuard) Check(actual RuntimeVersion) GuardVerdict {
	if actual.TransactionVersion != g.Expected.TransactionVersion {
		return Incompatible
	}
	if actual.SpecVersion != g.Expected.SpecVersion {
		return SpecOnly
	}
	return Compatible
}

// Run polls chain's reported runtime version every CheckInterval until ctx
// is cancelled or an Incompatible verdict is observed, in which case it
// returns an *IncompatibleRuntimeError so the caller can abort the
// affected loop within one polling interval, per §4.1.
func (g *RuntimeVersionGuard) Run(ctx context.Context, chain ChainWithRuntimeVersion) error {
	ticker := time.NewTicker(g.CheckInterval)
	defer ticker.Stop()

	// Check once immediately on startup, per §4.1 ("On startup and
	// periodically during operation").
	if err := g.checkOnce(ctx, chain); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.checkOnce(ctx, chain); err != nil {
				return err
			}
		}
	}
}

func (g *RuntimeVersionGuard) checkOnce(ctx context.Context, chain ChainWithRuntimeVersion) error {
	actual, err := chain.RuntimeVersion(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to read runtime version", "chain", g.Chain.String(), "error", err)
		return nil
	}
	switch g.Check(actual) {
	case Incompatible:
		g.logger.ErrorContext(ctx, "Aborting relay",
			"chain", g.Chain.String(),
			"expected_tx_version", g.Expected.TransactionVersion,
			"actual_tx_version", actual.TransactionVersion,
		)
		return &IncompatibleRuntimeError{Chain: g.Chain, Expected: g.Expected, Actual: actual}
	case SpecOnly:
		level := slog.LevelWarn
		if g.PermissiveSpecBump {
			level = slog.LevelInfo
		}
		g.logger.Log(ctx, level, "runtime spec version bumped, transaction version unchanged; continuing",
			"chain", g.Chain.String(),
			"expected_spec_version", g.Expected.SpecVersion,
			"actual_spec_version", actual.SpecVersion,
		)
	}
	return nil
}
