package mq

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrSubscribeUnsupported is returned by backends that cannot deliver messages.
var ErrSubscribeUnsupported = errors.New("subscribe is not supported by the log backend")

// LogBackend writes published messages to the logger instead of a broker.
type LogBackend struct {
	logger *zap.Logger
}

func NewLogBackend(logger *zap.Logger) *LogBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogBackend{logger: logger}
}

func (l *LogBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id := newMessageID()
	l.logger.Info("event",
		zap.String("channel", channel),
		zap.String("message_id", id),
		zap.Any("attributes", attrs),
		zap.ByteString("data", data),
	)
	return id, nil
}

func (l *LogBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return ErrSubscribeUnsupported
}

func (l *LogBackend) Close() error {
	return nil
}
