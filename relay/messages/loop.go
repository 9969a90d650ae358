package messages

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/paritytech/parity-bridges-common/core"
	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/metrics"
)

// LoopConfig configures one lane's bidirectional message relaying: a
// delivery race carrying messages Source -> Target, and a confirmation race
// carrying reward-accounting proofs Target -> Source, run concurrently.
type LoopConfig struct {
	Source core.ChainWithMessages
	Target core.ChainWithMessages
	Lane   core.LaneID
	Signer core.Signer
	Caps   DeliveryCaps

	MinTickInterval   time.Duration
	MortalityDeadline time.Duration

	Logger *slog.Logger
}

// Run drives both the delivery and confirmation races for one lane until
// ctx is cancelled or either race returns a fatal or incompatible-runtime
// error, matching §5's per-lane concurrency model.
func Run(ctx context.Context, cfg LoopConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = &log.GetLogger().WithModule("messages.loop").Logger
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return runDelivery(egCtx, cfg, logger)
	})
	eg.Go(func() error {
		return runConfirmation(egCtx, cfg, logger)
	})

	return eg.Wait()
}

func runDelivery(ctx context.Context, cfg LoopConfig, logger *slog.Logger) error {
	strategy := &DeliveryStrategy{
		Source: cfg.Source,
		Target: cfg.Target,
		Lane:   cfg.Lane,
		Signer: cfg.Signer,
		Caps:   cfg.Caps,
		Logger: logger,
	}

	sourceHeads, err := cfg.Source.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	targetHeads, err := cfg.Target.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	health, err := metrics.NewLoopHealth("delivery",
		attribute.String("lane", cfg.Lane.String()),
		attribute.String("source", cfg.Source.ChainID().String()),
		attribute.String("target", cfg.Target.ChainID().String()))
	if err != nil {
		return core.NewFatalError(err)
	}

	scheduler := &core.Scheduler{
		Strategy:          strategy,
		SourceNotify:      notify(ctx, sourceHeads),
		TargetNotify:      notify(ctx, targetHeads),
		MinTickInterval:   cfg.MinTickInterval,
		MortalityDeadline: cfg.MortalityDeadline,
		TrackerEnv:        alwaysOkEnv{},
		Logger:            logger,
		Health:            health,
		SpanAttributes: []trace.SpanStartOption{
			core.WithChainPairAttributes(cfg.Source.ChainID(), cfg.Target.ChainID()),
			core.WithLaneAttribute(cfg.Lane),
		},
		OnTerminal: func(status core.TrackedStatus) {
			logger.InfoContext(ctx, "delivery transaction reached terminal status",
				"lane", cfg.Lane.String(), "status", status.String())
		},
	}
	return scheduler.Run(ctx)
}

func runConfirmation(ctx context.Context, cfg LoopConfig, logger *slog.Logger) error {
	strategy := &ConfirmationStrategy{
		Receiving: cfg.Target,
		Emitting:  cfg.Source,
		Lane:      cfg.Lane,
		Signer:    cfg.Signer,
		Logger:    logger,
	}

	receivingHeads, err := cfg.Target.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}
	emittingHeads, err := cfg.Source.SubscribeFinalized(ctx)
	if err != nil {
		return core.NewTransientError(err)
	}

	health, err := metrics.NewLoopHealth("confirmation",
		attribute.String("lane", cfg.Lane.String()),
		attribute.String("source", cfg.Source.ChainID().String()),
		attribute.String("target", cfg.Target.ChainID().String()))
	if err != nil {
		return core.NewFatalError(err)
	}

	scheduler := &core.Scheduler{
		Strategy:          strategy,
		SourceNotify:      notify(ctx, receivingHeads),
		TargetNotify:      notify(ctx, emittingHeads),
		MinTickInterval:   cfg.MinTickInterval,
		MortalityDeadline: cfg.MortalityDeadline,
		TrackerEnv:        alwaysOkEnv{},
		Logger:            logger,
		Health:            health,
		SpanAttributes: []trace.SpanStartOption{
			core.WithChainPairAttributes(cfg.Source.ChainID(), cfg.Target.ChainID()),
			core.WithLaneAttribute(cfg.Lane),
		},
		OnTerminal: func(status core.TrackedStatus) {
			logger.InfoContext(ctx, "confirmation transaction reached terminal status",
				"lane", cfg.Lane.String(), "status", status.String())
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

// alwaysOkEnv reports every in-block message-lane extrinsic as successfully
// dispatched: receive_messages_proof and receive_messages_delivery_proof
// both reject a malformed proof at validation, before dispatch.
type alwaysOkEnv struct{}

func (alwaysOkEnv) ExtrinsicDispatchOutcome(ctx context.Context, blockHash, txHash core.Hash) (core.DispatchOutcome, error) {
	return core.DispatchOk, nil
}
