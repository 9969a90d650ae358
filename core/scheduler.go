package core

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/paritytech/parity-bridges-common/log"
	"github.com/paritytech/parity-bridges-common/metrics"
)

// Strategy is the shared skeleton of §4.5: given a coalesced pair of
// source/target reads, decide whether to submit a transaction. It hosts
// the finality, parachain, delivery, and confirmation loops unchanged;
// only the strategy differs (§4.5).
type Strategy interface {
	// Name identifies the strategy in logs and traces (e.g.
	// "finality", "parachain", "delivery", "confirmation").
	Name() string

	// ReadSource re-reads the minimal source-side state the strategy
	// needs. Called at most once per tick.
	ReadSource(ctx context.Context) error

	// ReadTarget re-reads the minimal target-side state the strategy
	// needs. Called at most once per tick.
	ReadTarget(ctx context.Context) error

	// Decide inspects the state most recently read by ReadSource/ReadTarget
	// and returns an Action to submit, or nil for Idle.
	Decide(ctx context.Context) (*Action, error)
}

// Action is a transaction the scheduler should submit and then track to a
// terminal status.
type Action struct {
	// Submit sends the transaction and returns a handle to it.
	Submit func(ctx context.Context) (TxHandle, error)
	// Track returns a channel of status events for the submitted
	// transaction, e.g. backed by a node's transaction-watch subscription.
	Track func(ctx context.Context, tx TxHandle) (<-chan TxStatusEvent, error)
	// MortalityWindow overrides the scheduler's default deadline for this
	// action, if non-zero.
	MortalityWindow time.Duration
}

// Scheduler runs one Strategy to completion, serializing submissions
// through a single in-flight slot per §5 ("Per lane, submissions are
// serialized: the scheduler blocks on its single in-flight slot").
type Scheduler struct {
	Strategy Strategy

	// SourceNotify and TargetNotify deliver a value whenever new state
	// might be available on that side (new best header, new finality
	// notification, lane storage change, ...). The scheduler coalesces a
	// storm of notifications into at most one re-read per tick.
	SourceNotify <-chan struct{}
	TargetNotify <-chan struct{}

	// MinTickInterval is the coalescing floor of §4.5 (~500ms).
	MinTickInterval time.Duration

	// MortalityDeadline is the default transaction-tracker deadline,
	// overridable per-Action.
	MortalityDeadline time.Duration

	TrackerEnv TrackerEnvironment

	Logger *slog.Logger

	// OnTerminal, if set, is invoked after every tracked transaction
	// reaches a terminal status, primarily for tests and metrics.
	OnTerminal func(status TrackedStatus)

	// Health, if set, receives an up/stalled report after every tick,
	// implementing §4.2's "Stalled ... used to compute health metrics"
	// and §5's stall metric.
	Health *metrics.LoopHealth

	// SpanAttributes tags every tick's span, e.g. with
	// WithChainPairAttributes/WithLaneAttribute from the owning loop.
	SpanAttributes []trace.SpanStartOption

	starvationStreak uint
	transientStreak  uint
	stalledSince     time.Time
}

// Run drives the scheduler until ctx is cancelled, then returns ctx.Err();
// a tick error that ends the loop early (e.g. Fatal or IncompatibleRuntime)
// is returned instead. It never returns nil (drain mode is the caller's
// responsibility: see service.Bridge.Run).
func (s *Scheduler) Run(ctx context.Context) error {
	logger := s.logger()
	if s.MinTickInterval <= 0 {
		s.MinTickInterval = 500 * time.Millisecond
	}
	if s.MortalityDeadline <= 0 {
		s.MortalityDeadline = time.Minute
	}

	sourceDirty, targetDirty := coalesce(ctx, s.SourceNotify), coalesce(ctx, s.TargetNotify)
	ticker := time.NewTicker(s.MinTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sourceDirty:
		case <-targetDirty:
		case <-ticker.C:
		}

		if err := s.tick(ctx); err != nil {
			if isFatalOrIncompatible(err) {
				return err
			}
			logger.ErrorContext(ctx, "scheduler tick failed", "strategy", s.Strategy.Name(), "error", err)
			if starve, ok := err.(*StarvationError); ok {
				// The bridge cannot progress without a mandatory proof:
				// never skip it, just back off harder than the usual tick.
				s.starvationStreak++
				if werr := wait(ctx, jitteredExponentialBackoff(s.starvationStreak, starve, nil)); werr != nil {
					return werr
				}
				continue
			}
			s.starvationStreak = 0
			if transient, ok := err.(*TransientError); ok {
				// RPC hiccup: back off per §4.2/§7 (capped exponential, base
				// ~1s, cap ~60s, jitter +-20%) instead of hammering the node
				// at MinTickInterval.
				s.transientStreak++
				if werr := wait(ctx, jitteredExponentialBackoff(s.transientStreak, transient, nil)); werr != nil {
					return werr
				}
				continue
			}
			s.transientStreak = 0
		} else {
			s.starvationStreak = 0
			s.transientStreak = 0
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	logger := s.logger()

	opts := append([]trace.SpanStartOption{trace.WithAttributes(attribute.String("strategy", s.Strategy.Name()))}, s.SpanAttributes...)
	ctx, span := Tracer().Start(ctx, "Scheduler.tick", opts...)
	defer span.End()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.Strategy.ReadSource(egCtx) })
	eg.Go(func() error { return s.Strategy.ReadTarget(egCtx) })
	if err := eg.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportHealth(true)
		return classify(err)
	}

	action, err := s.Strategy.Decide(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportHealth(true)
		return classify(err)
	}
	if action == nil {
		s.reportHealth(false)
		return nil
	}

	tx, err := action.Submit(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportHealth(true)
		return classify(err)
	}

	events, err := action.Track(ctx, tx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportHealth(true)
		return classify(err)
	}

	deadline := s.MortalityDeadline
	if action.MortalityWindow > 0 {
		deadline = action.MortalityWindow
	}
	tracker := NewTransactionTracker(s.TrackerEnv, tx, deadline, events)
	status := tracker.Wait(ctx)
	s.reportHealth(status == TrackedStalled)
	span.SetAttributes(attribute.String("status", status.String()))
	if status == TrackedStalled {
		span.SetStatus(codes.Error, "transaction stalled")
	}

	logger.InfoContext(ctx, "transaction tracked to terminal status",
		"strategy", s.Strategy.Name(), "status", status.String())
	if s.OnTerminal != nil {
		s.OnTerminal(status)
	}
	return nil
}

// reportHealth forwards a tick's outcome to Health, tracking how long the
// current stall streak has run so ReportStalled can carry a duration
// instead of a bare flag.
func (s *Scheduler) reportHealth(stalled bool) {
	if s.Health == nil {
		return
	}
	if !stalled {
		s.stalledSince = time.Time{}
		s.Health.ReportUp()
		return
	}
	if s.stalledSince.IsZero() {
		s.stalledSince = time.Now()
	}
	s.Health.ReportStalled(int64(time.Since(s.stalledSince).Seconds()))
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.GetLogger().WithModule("core.scheduler").Logger
}

// coalesce drains a notification channel into a single-slot "dirty"
// channel: a storm of sends on in collapses to at most one pending signal
// on the returned channel, implementing §4.5's "at most one re-read per
// tick" rule.
func coalesce(ctx context.Context, in <-chan struct{}) <-chan struct{} {
	out := make(chan struct{}, 1)
	if in == nil {
		return out
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-in:
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

func classify(err error) error {
	if err == nil {
		return nil
	}
	// Errors already in the taxonomy pass through unchanged.
	switch err.(type) {
	case *TransientError, *StaleError, *InvalidError, *IncompatibleRuntimeError, *FatalError, *StarvationError:
		return err
	default:
		return NewTransientError(err)
	}
}

func isFatalOrIncompatible(err error) bool {
	switch err.(type) {
	case *FatalError, *IncompatibleRuntimeError:
		return true
	default:
		return false
	}
}
