package eventbus

import (
	"context"

	"go.uber.org/zap"
)

// LogConsumer logs every event for observability.
type LogConsumer struct {
	logger *zap.Logger
}

func NewLogConsumer(logger *zap.Logger) *LogConsumer {
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	c.logger.Info("entity event",
		zap.String("type", string(evt.Type)),
		zap.String("entity_id", evt.EntityID),
		zap.String("entity_type_id", evt.EntityTypeID),
		zap.String("name", evt.Name),
	)
	return nil
}
