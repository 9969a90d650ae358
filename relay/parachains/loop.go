package parachains

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

// LoopConfig configures a running parachain head loop for one relay chain
// and one target.
type LoopConfig struct {
	Relay      core.ChainWithParachains
	Target     core.ChainWithParachains
	Signer     core.Signer
	Parachains []core.ParachainID

	MinTickInterval   time.Duration
	MortalityDeadline time.Duration

	Logger *slog.Logger
}

// Run drives the parachain head loop until ctx is cancelled.
func Run(ctx context.Context, cfg LoopConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = &log.GetLogger().WithModule("parachains.loop").Logger
	}

	strategy := &Strategy{
		Relay:      cfg.Relay,
		Target:     cfg.Target,
		Signer:     cfg.Signer,
		Parachains: cfg.Parachains,
		Logger:     logger,
	}

	relayHeads, err := cfg.Relay.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	targetHeads, err := cfg.Target.SubscribeNewHeads(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	health, err := metrics.NewLoopHealth("parachains",
		attribute.String("relay", cfg.Relay.ChainID().String()),
		attribute.String("target", cfg.Target.ChainID().String()))
	if err != nil {
		return core.NewFatalError(err)
	}

	scheduler := &core.Scheduler{
		Strategy:          strategy,
		SourceNotify:      notify(ctx, relayHeads),
		TargetNotify:      notify(ctx, targetHeads),
		MinTickInterval:   cfg.MinTickInterval,
		MortalityDeadline: cfg.MortalityDeadline,
		TrackerEnv:        alwaysOkEnv{},
		Logger:            logger,
		Health:            health,
		SpanAttributes:    []trace.SpanStartOption{core.WithChainPairAttributes(cfg.Relay.ChainID(), cfg.Target.ChainID())},
		OnTerminal: func(status core.TrackedStatus) {
			logger.InfoContext(ctx, "parachain heads submission reached terminal status",
				"relay", cfg.Relay.ChainID().String(),
				"target", cfg.Target.ChainID().String(),
				"status", status.String())
		},
	}
	return scheduler.Run(ctx)
}

func notify(ctx context.Context, headers <-chan core.Header) <-chan struct{} {
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

// alwaysOkEnv reports every in-block submit_parachain_heads extrinsic as
// successfully dispatched: a malformed storage proof is rejected at
// validation and never lands on chain, matching submit_finality_proof's
// dispatch semantics on Substrate light-client pallets.
type alwaysOkEnv struct{}

func (alwaysOkEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash core.Hash) (core.DispatchOutcome, error) {
	return core.DispatchOk, nil
}
