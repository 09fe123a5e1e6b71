// Package mailtmpl renders transactional emails from the embedded templates.
package mailtmpl

import (
	"bytes"
	htmltemplate "html/template"
	"io/fs"
	texttemplate "text/template"

	acmeauth "gitlab.com/acme/acme-auth"
	"gitlab.com/acme/acme-auth/pkg/errorx"
)

const (
	VerificationSubject = "Your verification code"

	DefaultBrand            = "Acme Inc."
	DefaultSupportEmail     = "support@acme.com"
	DefaultExpiresInMinutes = 5
)

type VerificationData struct {
	OTP              string
	Brand            string
	SupportEmail     string
	ExpiresInMinutes int
}

type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer struct {
	verificationHTML *htmltemplate.Template
	verificationText *texttemplate.Template
}

// NewRenderer parses the email templates found under templates/email in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	const op = "mailtmpl.NewRenderer"

	html, err := htmltemplate.ParseFS(fsys, "templates/email/verification.html")
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}
	text, err := texttemplate.ParseFS(fsys, "templates/email/verification.txt")
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	return &Renderer{
		verificationHTML: html.Option("missingkey=error"),
		verificationText: text.Option("missingkey=error"),
	}, nil
}

// MustNewRenderer uses the templates embedded in the binary.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer(acmeauth.Templates)
	if err != nil {
		panic(err)
	}
	return r
}

// RenderVerification renders the one-time code email. Blank fields take the defaults.
func (r *Renderer) RenderVerification(d VerificationData) (Rendered, error) {
	const op = "mailtmpl.Renderer.RenderVerification"

	if d.Brand == "" {
		d.Brand = DefaultBrand
	}
	if d.SupportEmail == "" {
		d.SupportEmail = DefaultSupportEmail
	}
	if d.ExpiresInMinutes <= 0 {
		d.ExpiresInMinutes = DefaultExpiresInMinutes
	}

	view := struct {
		VerificationData
		Subject string
	}{d, VerificationSubject}

	var html, text bytes.Buffer
	if err := r.verificationHTML.Execute(&html, view); err != nil {
		return Rendered{}, errorx.Wrap(err, op)
	}
	if err := r.verificationText.Execute(&text, view); err != nil {
		return Rendered{}, errorx.Wrap(err, op)
	}

	return Rendered{
		Subject: VerificationSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
