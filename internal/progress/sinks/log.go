// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/progress"
)

// LogSink emits structured logs for crawl progress. It is the default sink
// for interactive runs where no metrics endpoint is scraped.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	s.logger.Info("crawl progress",
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
		zap.Int("depth", evt.Depth),
		zap.String("name", evt.Name),
		zap.String("url", evt.URL),
		zap.Int("current", evt.Current),
		zap.Int("total", evt.Total),
		zap.String("note", evt.Note),
	)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
