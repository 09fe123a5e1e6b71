package mailevent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/application/mail/mailtmpl"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
)

var (
	tracer = otel.Tracer("acme/application/mail/event")
	logger = otelslog.NewLogger("acme/application/mail/event")
)

type MailSender interface {
	SendMail(ctx context.Context, payload mails.Payload) error
}

type Renderer interface {
	RenderVerification(data mailtmpl.VerificationData) (mailtmpl.Rendered, error)
}

type MailEventHandler struct {
	tracer       trace.Tracer
	logger       *slog.Logger
	mailsender   MailSender
	renderer     Renderer
	from         string
	brand        string
	supportEmail string
}

type MailEventHandlerArgs struct {
	Tracer       trace.Tracer
	Logger       *slog.Logger
	Mailsender   MailSender
	Renderer     Renderer
	From         string
	Brand        string
	SupportEmail string
}

func NewMailEventHandler(args MailEventHandlerArgs) *MailEventHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Renderer == nil {
		args.Renderer = mailtmpl.MustNewRenderer()
	}

	return &MailEventHandler{
		tracer:       args.Tracer,
		logger:       args.Logger,
		mailsender:   args.Mailsender,
		renderer:     args.Renderer,
		from:         args.From,
		brand:        args.Brand,
		supportEmail: args.SupportEmail,
	}
}
