package core

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the package-wide OTel tracer, matching the teacher's
// core/tracer.go verbatim in approach.
var tracer = otel.Tracer("github.com/paritytech/parity-bridges-common/core")

// WithChainPairAttributes returns span-start options tagging a span with
// the source/target chain ids of a directed pair.
func WithChainPairAttributes(src, dst ChainID) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("bridge.source_chain", src.String()),
		attribute.String("bridge.target_chain", dst.String()),
	)
}

// WithLaneAttribute returns a span-start option tagging a span with a lane
// id, for the message loop's per-lane spans.
func WithLaneAttribute(lane LaneID) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("bridge.lane", lane.String()))
}

// Tracer exposes the package tracer to other packages (relay/finality,
// relay/messages, ...) so every loop's tick becomes one span.
func Tracer() trace.Tracer { return tracer }
