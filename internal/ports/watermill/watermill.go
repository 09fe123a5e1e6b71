package watermill

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/acme/acme-auth/internal/application/mail"
	"gitlab.com/acme/acme-auth/pkg/watermillx"
)

const (
	HandlerMailOnCodeRequested = "MailOnCodeRequested"
	HandlerMailOnCodeResent    = "MailOnCodeResent"
)

// Port feeds outbox events to the application's event handlers.
type Port struct {
	eventProcessor *cqrs.EventProcessor
}

type AppEventHandlers struct {
	Mail *mail.App
}

func NewPort(router *message.Router, conn *pgxpool.Pool, wmlogger watermill.LoggerAdapter) (*Port, error) {
	return newPort(router, conn, wmlogger, watermillx.DefaultSubscriberOptions)
}

// NewPortForTest polls the outbox every few milliseconds and expects the schema to exist.
func NewPortForTest(router *message.Router, conn *pgxpool.Pool, wmlogger watermill.LoggerAdapter) (*Port, error) {
	return newPort(router, conn, wmlogger, watermillx.TestSubscriberOptions)
}

func newPort(
	router *message.Router,
	conn *pgxpool.Pool,
	wmlogger watermill.LoggerAdapter,
	opts watermillx.SubscriberOptions,
) (*Port, error) {
	eventProcessor, err := watermillx.NewEventProcessor(router, conn, wmlogger, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}

	return &Port{eventProcessor: eventProcessor}, nil
}

// Register adds the handlers to the router. Call it before router.Run.
func (p *Port) Register(handlers AppEventHandlers) error {
	err := p.eventProcessor.AddHandlers(
		cqrs.NewEventHandler(HandlerMailOnCodeRequested, handlers.Mail.Event.HandleCodeRequested),
		cqrs.NewEventHandler(HandlerMailOnCodeResent, handlers.Mail.Event.HandleCodeResent),
	)
	if err != nil {
		return fmt.Errorf("failed to add event handlers: %w", err)
	}

	return nil
}
