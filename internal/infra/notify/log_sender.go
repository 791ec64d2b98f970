package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/infra/logger"
)

// LogSender writes verification codes to the service log instead of sending
// them out of band. It stands in until a mail provider is wired up; the code
// itself is only emitted at debug level.
type LogSender struct {
	log *zap.Logger
}

var _ port.VerificationSender = (*LogSender)(nil)

// NewLogSender constructs a LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

// SendVerificationCode logs the dispatch with a masked recipient address.
func (s *LogSender) SendVerificationCode(ctx context.Context, email, code string) error {
	s.log.Info("verification code dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
	)
	s.log.Debug("verification code value", zap.String("code", code))
	return nil
}
