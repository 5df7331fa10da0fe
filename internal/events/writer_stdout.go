package events

import (
	"context"

	"go.uber.org/zap"
)

// StdoutWriter logs every event, it is the default sink.
type StdoutWriter struct{}

func (s *StdoutWriter) Write(ctx context.Context, topic string, e Event) error {
	zap.S().Named("stdout_writer").Infow("event wrote", "topic", topic, "id", e.ID, "type", e.Type, "data", string(e.Data))
	return nil
}

func (s *StdoutWriter) Close(_ context.Context) error {
	return nil
}

// NoopWriter drops every event.
type NoopWriter struct{}

func (n *NoopWriter) Write(_ context.Context, _ string, _ Event) error {
	return nil
}

func (n *NoopWriter) Close(_ context.Context) error {
	return nil
}
