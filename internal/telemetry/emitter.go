// Package telemetry records write-once events for every step of the inbound
// message pipeline.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/pkg/metrics"
)

// Emitter hands telemetry events to a sink. Callers treat errors as
// best-effort and never block the primary path on them.
type Emitter interface {
	Emit(ctx context.Context, event model.TelemetryEvent) error
}

// Sink is an Emitter with a name used in failure metrics.
type Sink interface {
	Emitter
	Name() string
}

// Multi fans an event out to every sink. All sinks are attempted; their
// errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out emitter. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Emit stamps missing ids and timestamps, then sends the event to every sink.
func (m *Multi) Emit(ctx context.Context, event model.TelemetryEvent) error {
	event = Stamp(event)

	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, event); err != nil {
			metrics.TelemetryEmitFailuresTotal.WithLabelValues(s.Name()).Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stamp fills the id and occurrence time of an event when unset.
func Stamp(event model.TelemetryEvent) model.TelemetryEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return event
}

// Nop discards events.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(context.Context, model.TelemetryEvent) error { return nil }

// MetricsSink counts events by type and risk level.
type MetricsSink struct{}

// Name implements Sink.
func (MetricsSink) Name() string { return "prometheus" }

// Emit implements Emitter.
func (MetricsSink) Emit(_ context.Context, event model.TelemetryEvent) error {
	metrics.TelemetryEventsTotal.WithLabelValues(string(event.Type), string(event.RiskLevel)).Inc()
	return nil
}
