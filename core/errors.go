package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// This file implements the error taxonomy of §7. Every relay loop
// classifies the errors it observes into exactly one of these six kinds,
// so that the scheduler and the loops above it can apply the matching
// policy without re-inspecting error strings.

// TransientError wraps an RPC timeout, network blip, or "node not ready"
// condition. Policy: retry with backoff; never surfaced to the operator.
type TransientError struct {
	cause error
}

func NewTransientError(cause error) *TransientError {
	return &TransientError{cause: errors.WithStack(cause)}
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %s", e.cause) }
func (e *TransientError) Unwrap() error { return e.cause }

// StaleError wraps a submitted transaction rejected because chain state
// moved before it landed. Policy: re-read, rebuild; counts as normal flow.
type StaleError struct {
	cause error
}

func NewStaleError(cause error) *StaleError {
	return &StaleError{cause: errors.WithStack(cause)}
}

func (e *StaleError) Error() string { return fmt.Sprintf("stale: %s", e.cause) }
func (e *StaleError) Unwrap() error { return e.cause }

// InvalidError wraps a proof rejected by the target as malformed, or an
// internally detected invariant violation. Policy: log ERROR, drop the
// proof, continue.
type InvalidError struct {
	Reason string
	cause  error
}

// NewInvalidError constructs an InvalidError for a proof or invariant
// violation detected outside the core package. cause may be nil.
func NewInvalidError(reason string, cause error) *InvalidError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &InvalidError{Reason: reason, cause: cause}
}

func (e *InvalidError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid: %s: %s", e.Reason, e.cause)
	}
	return fmt.Sprintf("invalid: %s", e.Reason)
}
func (e *InvalidError) Unwrap() error { return e.cause }

// IncompatibleRuntimeError signals the runtime-version guard tripped.
// Policy: abort the affected loop(s); process exits with code 2.
type IncompatibleRuntimeError struct {
	Chain    ChainID
	Expected RuntimeVersion
	Actual   RuntimeVersion
}

func (e *IncompatibleRuntimeError) Error() string {
	return fmt.Sprintf(
		"incompatible runtime on %s: expected tx_version=%d, got tx_version=%d (spec %d -> %d)",
		e.Chain, e.Expected.TransactionVersion, e.Actual.TransactionVersion,
		e.Expected.SpecVersion, e.Actual.SpecVersion,
	)
}

// FatalError wraps a missing signer or a contradictory configuration.
// Policy: exit 1 at startup; ERROR during operation.
type FatalError struct {
	cause error
}

func NewFatalError(cause error) *FatalError {
	return &FatalError{cause: errors.WithStack(cause)}
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %s", e.cause) }
func (e *FatalError) Unwrap() error { return e.cause }

// StarvationError signals that no mandatory finality proof is available
// from the source. Policy: ERROR the loop, long backoff, reflect the stall
// in a metric; never skip the mandatory proof.
type StarvationError struct {
	Chain ChainID
	Since BlockNumber
}

func (e *StarvationError) Error() string {
	return fmt.Sprintf("mandatory finality proof unavailable from %s since block %d", e.Chain, e.Since)
}

// ExitCode maps a terminal error to the process exit code defined in §6's
// CLI surface table.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var incompat *IncompatibleRuntimeError
	if errors.As(err, &incompat) {
		return 2
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return 1
	}
	var starve *StarvationError
	if errors.As(err, &starve) {
		return 3
	}
	return 1
}
