package publish

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes posts to the log instead of a channel. It is the
// dry-run mode for validating the pipeline without touching production.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLog creates a log-backed publisher.
func NewLog(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the post text.
func (p *LogPublisher) Publish(_ context.Context, text string) error {
	p.logger.Info("dry-run publish", zap.String("text", text))
	return nil
}
