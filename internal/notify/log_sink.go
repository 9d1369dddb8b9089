package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes notifications to the application log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("kind", n.Kind),
		zap.String("protocol", n.Number),
		zap.String("unit", n.UnitCode),
		zap.String("status", n.Status))
	return nil
}
