package monitor

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/RegPulseAI/regpulse/engine/dedup"
	"github.com/RegPulseAI/regpulse/pkg/natsutil"
)

// Sink receives the scored updates of a cycle. A sink failure is logged and
// never blocks the loop or the other sinks.
type Sink interface {
	Name() string
	Publish(ctx context.Context, scored []dedup.ScoredUpdate) error
}

// NATSSink publishes each scored update as a JSON message.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSSink creates a sink publishing to the given subject.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Publish implements Sink.
func (s *NATSSink) Publish(ctx context.Context, scored []dedup.ScoredUpdate) error {
	for _, su := range scored {
		if err := natsutil.Publish(ctx, s.nc, s.subject, su); err != nil {
			return err
		}
	}
	return nil
}

// LogSink writes scored updates to the structured log. Used standalone in
// development and alongside NATS in production.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Publish implements Sink.
func (s *LogSink) Publish(_ context.Context, scored []dedup.ScoredUpdate) error {
	for _, su := range scored {
		s.log.Info("scored update",
			"id", su.Update.ID,
			"source", su.Update.Source,
			"title", su.Update.Title,
			"score", su.Impact.Score,
			"severity", su.Impact.Severity,
		)
	}
	return nil
}
