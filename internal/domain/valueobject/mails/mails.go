package mails

import (
	"github.com/ARUMANDESU/validation"
	"github.com/ARUMANDESU/validation/is"
)

// Payload is one outgoing email. HTML is the rendered body and Text its
// plain-text alternative. From may carry a display name, e.g.
// "Acme Inc. <no-reply@acme.com>"; senders fall back to their default when empty.
type Payload struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

func (p Payload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.To, validation.Required, is.EmailFormat),
		validation.Field(&p.Subject, validation.Required, validation.Length(1, 998)),
		validation.Field(&p.HTML, validation.Required.When(p.Text == "")),
	)
}
