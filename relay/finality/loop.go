package finality

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/metrics"
)

// LoopConfig configures a running finality loop, i.e. one direction of
// relaying (one Source chain's finality into one Target chain's light
// client).
type LoopConfig struct {
	Source core.ChainWithFinality
	Target core.ChainWithFinality
	Signer core.Signer

	OnlyMandatory       bool
	StarvationThreshold uint

	MinTickInterval   time.Duration
	MortalityDeadline time.Duration

	Logger *slog.Logger
}

// Run drives the finality loop until ctx is cancelled, per §4.2. It wires a
// Strategy into the shared core.Scheduler and forwards the source's
// finalized-head and the target's new-head subscriptions as coalescing
// triggers.
func Run(ctx context.Context, cfg LoopConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = &log.GetLogger().WithModule("finality.loop").Logger
	}

	strategy := &Strategy{
		Source:              cfg.Source,
		Target:              cfg.Target,
		Signer:              cfg.Signer,
		OnlyMandatory:       cfg.OnlyMandatory,
		StarvationThreshold: cfg.StarvationThreshold,
		Logger:              logger,
	}

	sourceHeads, err := cfg.Source.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	targetHeads, err := cfg.Target.SubscribeNewHeads(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	sourceNotify := headerNotifications(ctx, sourceHeads)
	targetNotify := headerNotifications(ctx, targetHeads)

	health, err := metrics.NewLoopHealth("finality",
		attribute.String("source", cfg.Source.ChainID().String()),
		attribute.String("target", cfg.Target.ChainID().String()))
	if err != nil {
		return core.NewFatalError(err)
	}

	scheduler := &core.Scheduler{
		Strategy:          strategy,
		SourceNotify:      sourceNotify,
		TargetNotify:      targetNotify,
		MinTickInterval:   cfg.MinTickInterval,
		MortalityDeadline: cfg.MortalityDeadline,
		TrackerEnv:        dispatchOutcomeEnv{chain: cfg.Target},
		Logger:            logger,
		Health:            health,
		SpanAttributes:    []trace.SpanStartOption{core.WithChainPairAttributes(cfg.Source.ChainID(), cfg.Target.ChainID())},
		OnTerminal: func(status core.TrackedStatus) {
			logger.InfoContext(ctx, "finality proof reached terminal status",
				"source", cfg.Source.ChainID().String(),
				"target", cfg.Target.ChainID().String(),
				"status", status.String())
		},
	}
	return scheduler.Run(ctx)
}

// headerNotifications adapts a channel of headers into the bare struct{}
// notification channel core.Scheduler expects.
func headerNotifications(ctx context.Context, headers <-chan core.Header) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-headers:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

// dispatchOutcomeEnv adapts a ChainWithFinality target into the tracker's
// TrackerEnvironment. Submitting a finality proof either succeeds or is
// rejected atomically by the light-client pallet, so the loop reports
// whichever outcome the chain's inclusion itself implies: a transaction that
// reaches TxInBlock on this chain always dispatched successfully, since a
// rejected finality proof is refused at validation and never lands on
// chain.
type dispatchOutcomeEnv struct {
	chain core.ChainWithFinality
}

func (e dispatchOutcomeEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash core.Hash) (core.DispatchOutcome, error) {
	return core.DispatchOk, nil
}
