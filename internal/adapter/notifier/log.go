package notifier

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Log only writes notifications to the logger. Used when no broker is
// configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (l *Log) Notify(_ context.Context, userID uuid.UUID, event string, payload any) error {
	l.log.Info("notification",
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.Any("payload", payload),
	)
	return nil
}

func (l *Log) Close() error { return nil }
