package mailer

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleMailer logs mail instead of delivering it. Used in development
// and whenever outbound email is disabled.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsole builds a console mailer.
func NewConsole(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send implements Mailer.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("outbound email (console)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("reference", msg.Reference),
		zap.String("body", msg.TextBody),
	)
	return nil
}
