package mailer

import (
	"context"
	"log/slog"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
	"gitlab.com/acme/acme-auth/pkg/logging"
)

// Log writes emails to the logger instead of delivering them. Local use only:
// the text body carries the one-time code.
type Log struct {
	logger *slog.Logger
	from   string
}

func NewLog(l *slog.Logger, from string) *Log {
	if l == nil {
		l = logger
	}
	return &Log{logger: l, from: from}
}

func (s *Log) SendMail(ctx context.Context, payload mails.Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "email sent",
		slog.String("from", fromOrDefault(payload.From, s.from)),
		slog.String("to", logging.RedactEmail(payload.To)),
		slog.String("subject", payload.Subject),
		slog.String("text", payload.Text),
	)
	return nil
}
