package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

type int64WithAttributes struct {
	value int64
	attrs attribute.Set
}

// Int64SyncGauge adapts OTel's callback-driven observable gauge into a
// plain Set(value) API, grounded on the teacher's core/sync_gauge.go. Used
// for the health/stall gauges of §4.2's Stalled state and §5's liveness
// deadlines, where a loop just wants to report "here is the current value"
// without threading an observer callback through its own control flow.
type Int64SyncGauge struct {
	gauge         api.Int64ObservableGauge
	mutex         *sync.RWMutex
	attrsValueMap map[string]*int64WithAttributes
}

// NewInt64SyncGauge registers a new observable gauge under name against
// meter.
func NewInt64SyncGauge(meter api.Meter, name string, options ...api.Int64ObservableGaugeOption) (*Int64SyncGauge, error) {
	mutex := &sync.RWMutex{}
	attrsValueMap := make(map[string]*int64WithAttributes)
	callback := func(ctx context.Context, observer api.Int64Observer) error {
		mutex.RLock()
		defer mutex.RUnlock()
		for _, entry := range attrsValueMap {
			observer.Observe(entry.value, api.WithAttributeSet(entry.attrs))
		}
		return nil
	}
	options = append(options, api.WithInt64Callback(callback))
	gauge, err := meter.Int64ObservableGauge(name, options...)
	if err != nil {
		return nil, err
	}
	return &Int64SyncGauge{gauge, mutex, attrsValueMap}, nil
}

// Set records value for the given attribute set, overwriting any prior
// value recorded under the same attributes.
func (g *Int64SyncGauge) Set(value int64, attr ...attribute.KeyValue) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	attrs := attribute.NewSet(attr...)
	encoded := attrs.Encoded(attribute.DefaultEncoder())
	g.attrsValueMap[encoded] = &int64WithAttributes{value, attrs}
}
