package mail

import (
	mailevent "gitlab.com/acme/acme-auth/internal/application/mail/event"
)

type App struct {
	Event *mailevent.MailEventHandler
}

type Args struct {
	Mailsender   mailevent.MailSender
	Renderer     mailevent.Renderer
	From         string
	Brand        string
	SupportEmail string
}

func NewApp(args Args) *App {
	return &App{
		Event: mailevent.NewMailEventHandler(mailevent.MailEventHandlerArgs{
			Mailsender:   args.Mailsender,
			Renderer:     args.Renderer,
			From:         args.From,
			Brand:        args.Brand,
			SupportEmail: args.SupportEmail,
		}),
	}
}
