package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
)

var (
	tracer = otel.Tracer("acme/internal/adapters/services/mailer")
	logger = otelslog.NewLogger("acme/internal/adapters/services/mailer")
)

type Provider string

const (
	ProviderLog    Provider = "log"
	ProviderResend Provider = "resend"
	ProviderSES    Provider = "ses"
)

// Sender delivers one rendered email. Errors from the hosted provider are
// returned unchanged in meaning so the outbox can redeliver the event.
type Sender interface {
	SendMail(ctx context.Context, payload mails.Payload) error
}

type Config struct {
	Provider      Provider
	From          string
	ResendAPIKey  string
	ResendBaseURL string
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg Config, l *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case ProviderResend:
		s, err := NewResend(ResendArgs{
			APIKey:  cfg.ResendAPIKey,
			BaseURL: cfg.ResendBaseURL,
			From:    cfg.From,
			Logger:  l,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderSES:
		s, err := NewSES(ctx, SESArgs{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			From:      cfg.From,
			Logger:    l,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderLog, "":
		return NewLog(l, cfg.From), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func fromOrDefault(from, def string) string {
	if from != "" {
		return from
	}
	return def
}
