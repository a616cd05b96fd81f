package sender

import (
	"context"

	"go.uber.org/zap"
)

// LogSender accepts every delivery and only logs it. It is the dry-run
// sender used when no gateway is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.With(zap.String("component", "log_sender"))}
}

func (s *LogSender) Send(ctx context.Context, d Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("dry-run delivery",
		zap.String("item_id", d.ItemID),
		zap.String("run_id", d.RunID),
		zap.String("contact_id", d.ContactID),
		zap.String("step_id", d.StepID),
		zap.Int("attempt", d.Attempt))
	return nil
}

var _ Sender = (*LogSender)(nil)
