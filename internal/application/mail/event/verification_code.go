package mailevent

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ARUMANDESU/validation"
	"github.com/ARUMANDESU/validation/is"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/application/mail/mailtmpl"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/mails"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/logging"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

// verificationCodeMail is what CodeRequested and CodeResent have in common.
type verificationCodeMail struct {
	name           string
	verificationID verification.ID
	email          string
	code           string
	issuedAt       time.Time
	expiresAt      time.Time
}

func (h *MailEventHandler) HandleCodeRequested(ctx context.Context, e *verification.CodeRequested) error {
	if e == nil {
		return nil
	}
	const op = "mailevent.MailEventHandler.HandleCodeRequested"

	ctx, span := h.tracer.Start(ctx, "MailEventHandler.HandleCodeRequested", otelx.ConsumerSpanOptions(e)...)
	defer span.End()

	err := h.sendVerificationCode(ctx, span, verificationCodeMail{
		name:           "CodeRequested",
		verificationID: e.VerificationID,
		email:          e.Email,
		code:           e.Code,
		issuedAt:       e.Timestamp,
		expiresAt:      e.ExpiresAt,
	})
	return errorx.Wrap(err, op)
}

func (h *MailEventHandler) HandleCodeResent(ctx context.Context, e *verification.CodeResent) error {
	if e == nil {
		return nil
	}
	const op = "mailevent.MailEventHandler.HandleCodeResent"

	ctx, span := h.tracer.Start(ctx, "MailEventHandler.HandleCodeResent", otelx.ConsumerSpanOptions(e)...)
	defer span.End()

	err := h.sendVerificationCode(ctx, span, verificationCodeMail{
		name:           "CodeResent",
		verificationID: e.VerificationID,
		email:          e.Email,
		code:           e.Code,
		issuedAt:       e.Timestamp,
		expiresAt:      e.ExpiresAt,
	})
	return errorx.Wrap(err, op)
}

func (h *MailEventHandler) sendVerificationCode(ctx context.Context, span trace.Span, m verificationCodeMail) error {
	l := h.logger.With(
		slog.String("event", m.name),
		slog.String("verification.id", m.verificationID.String()),
		slog.String("verification.email", logging.RedactEmail(m.email)),
	)
	span.SetAttributes(
		attribute.String(otelx.AttrVerification, m.verificationID.String()),
		otelx.EmailAttr(m.email),
	)

	err := validation.Errors{
		"email": validation.Validate(m.email, validation.Required, is.EmailFormat),
		"code":  validation.Validate(m.code, validation.Required, is.Digit),
	}.Filter()
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid verification code event")
		l.ErrorContext(ctx, "invalid verification code event", slog.Any("error", err))
		return err
	}

	if !m.expiresAt.IsZero() && time.Now().After(m.expiresAt) {
		// a redelivered event for a dead code; the user will request a new one
		l.WarnContext(ctx, "verification code already expired, skipping email")
		return nil
	}

	rendered, err := h.renderer.RenderVerification(mailtmpl.VerificationData{
		OTP:              m.code,
		Brand:            h.brand,
		SupportEmail:     h.supportEmail,
		ExpiresInMinutes: minutesBetween(m.issuedAt, m.expiresAt),
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to render verification email")
		l.ErrorContext(ctx, "failed to render verification email", slog.Any("error", err))
		return err
	}

	err = h.mailsender.SendMail(ctx, mails.Payload{
		From:    h.from,
		To:      m.email,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to send verification email")
		l.ErrorContext(ctx, "failed to send verification email", slog.Any("error", err))
		return err
	}

	l.DebugContext(ctx, "verification email sent")
	return nil
}

// minutesBetween rounds up; zero means unknown and lets the template default apply.
func minutesBetween(from, to time.Time) int {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return 0
	}
	return int(math.Ceil(to.Sub(from).Minutes()))
}
