package metrics

import "go.opentelemetry.io/otel/attribute"

// LoopHealth exposes the two gauges every loop reports against: whether its
// last tick succeeded, and how long (in seconds) its current stall streak
// has run, per §5's liveness-deadline design note.
type LoopHealth struct {
	up    *Int64SyncGauge
	stall *Int64SyncGauge
	attrs []attribute.KeyValue
}

// NewLoopHealth registers the pair of gauges for one named loop instance
// (e.g. "finality", chain="pdot"). Returns a nil *LoopHealth, nil error if
// Initialize was never called: the Prometheus endpoint is opt-in, and a
// loop's health reporting is then simply a no-op.
func NewLoopHealth(loop string, attrs ...attribute.KeyValue) (*LoopHealth, error) {
	if Meter() == nil {
		return nil, nil
	}
	up, err := NewInt64SyncGauge(Meter(), "bridge_relay_loop_up")
	if err != nil {
		return nil, err
	}
	stall, err := NewInt64SyncGauge(Meter(), "bridge_relay_loop_stall_seconds")
	if err != nil {
		return nil, err
	}
	tagged := append([]attribute.KeyValue{attribute.String("loop", loop)}, attrs...)
	return &LoopHealth{up: up, stall: stall, attrs: tagged}, nil
}

// ReportUp marks the loop as healthy and clears its stall streak.
func (h *LoopHealth) ReportUp() {
	h.up.Set(1, h.attrs...)
	h.stall.Set(0, h.attrs...)
}

// ReportStalled marks the loop as unhealthy with a stall streak of
// stallSeconds.
func (h *LoopHealth) ReportStalled(stallSeconds int64) {
	h.up.Set(0, h.attrs...)
	h.stall.Set(stallSeconds, h.attrs...)
}
