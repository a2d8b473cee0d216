package telemetry

import (
	"context"

	"github.com/solaracontrol/mission-control/internal/model"
)

// Publisher publishes telemetry events on JetStream.
type Publisher interface {
	PublishTelemetry(ctx context.Context, event model.TelemetryEvent) (uint64, error)
}

// NATSSink publishes events on mc.telemetry.<event_type>.
type NATSSink struct {
	pub Publisher
}

// NewNATSSink creates a JetStream telemetry sink.
func NewNATSSink(pub Publisher) *NATSSink {
	return &NATSSink{pub: pub}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "jetstream" }

// Emit implements Emitter.
func (s *NATSSink) Emit(ctx context.Context, event model.TelemetryEvent) error {
	_, err := s.pub.PublishTelemetry(ctx, event)
	return err
}
