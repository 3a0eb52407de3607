package mailer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogMailer writes outbound email to the log instead of sending it. Used in
// development and tests where no email provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	m.logger.InfoContext(ctx, "email (log only)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("message_id", id),
		slog.String("text", msg.Text),
	)
	return id, nil
}
