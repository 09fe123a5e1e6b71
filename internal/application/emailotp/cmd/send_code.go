package cmd

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

var (
	tracer = otel.Tracer("acme/application/emailotp/cmd")
	logger = otelslog.NewLogger("acme/application/emailotp/cmd")
)

type SendCode struct {
	Email   string
	Purpose verification.Purpose
}

// SendCodeResult reports whether a code went out. Sent is false when a live
// challenge is still inside its resend cooldown; the caller proceeds to the
// verification step either way.
type SendCodeResult struct {
	Sent      bool
	Cooldown  cooldown.Snapshot
	ExpiresAt time.Time
}

type SendCodeHandler struct {
	tracer trace.Tracer
	logger *slog.Logger
	mode   env.Mode
	repo   VerificationRepo

	codeTTL        time.Duration
	resendCooldown time.Duration
}

type SendCodeHandlerArgs struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	Mode   env.Mode
	Repo   VerificationRepo

	CodeTTL        time.Duration
	ResendCooldown time.Duration
}

func NewSendCodeHandler(args SendCodeHandlerArgs) *SendCodeHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &SendCodeHandler{
		tracer:         args.Tracer,
		logger:         args.Logger,
		mode:           args.Mode,
		repo:           args.Repo,
		codeTTL:        args.CodeTTL,
		resendCooldown: args.ResendCooldown,
	}
}

func (h *SendCodeHandler) Handle(ctx context.Context, cmd SendCode) (SendCodeResult, error) {
	const op = "cmd.SendCodeHandler.Handle"
	email := user.NormalizeEmail(cmd.Email)
	ctx, span := h.tracer.Start(ctx, "SendCodeHandler.Handle",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, cmd.Purpose.String()),
		))
	defer span.End()

	if err := verification.ValidateEmail(email, h.mode); err != nil {
		otelx.RecordSpanError(span, err, "invalid email")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}
	if !cmd.Purpose.IsValid() {
		otelx.RecordSpanError(span, verification.ErrInvalidPurpose, "invalid purpose")
		return SendCodeResult{}, errorx.Wrap(verification.ErrInvalidPurpose, op)
	}

	existing, err := h.repo.GetVerification(ctx, email, cmd.Purpose)
	if err != nil && !errorx.IsNotFound(err) {
		otelx.RecordSpanError(span, err, "failed to get verification")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}

	now := time.Now().UTC()
	// The cooldown binds any unverified challenge, including one locked out
	// by failed attempts.
	if existing != nil && !existing.IsStatus(verification.StatusVerified) && !existing.CanResend(now) {
		span.SetAttributes(attribute.String(otelx.AttrVerification, existing.ID().String()))
		span.AddEvent("challenge inside cooldown, nothing sent")
		return SendCodeResult{
			Sent:      false,
			Cooldown:  existing.Cooldown().Snapshot(now),
			ExpiresAt: existing.ExpiresAt(),
		}, nil
	}
	if existing != nil && existing.IsActive(now) {
		span.SetAttributes(attribute.String(otelx.AttrVerification, existing.ID().String()))
		return h.resend(ctx, span, email, cmd.Purpose)
	}

	v, err := verification.New(verification.Args{
		Email:          email,
		Purpose:        cmd.Purpose,
		Mode:           h.mode,
		CodeTTL:        h.codeTTL,
		ResendCooldown: h.resendCooldown,
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to create verification")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrVerification, v.ID().String()))

	if err := h.repo.SaveVerification(ctx, v); err != nil {
		otelx.RecordSpanError(span, err, "failed to save verification")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}
	span.AddEvent("verification code issued")

	return SendCodeResult{
		Sent:      true,
		Cooldown:  v.Cooldown().Snapshot(time.Now().UTC()),
		ExpiresAt: v.ExpiresAt(),
	}, nil
}

func (h *SendCodeHandler) resend(
	ctx context.Context,
	span trace.Span,
	email string,
	purpose verification.Purpose,
) (SendCodeResult, error) {
	const op = "cmd.SendCodeHandler.resend"

	var res SendCodeResult
	err := h.repo.UpdateVerification(ctx, email, purpose, func(ctx context.Context, v *verification.Verification) error {
		if err := v.Resend(); err != nil {
			return err
		}
		res = SendCodeResult{
			Sent:      true,
			Cooldown:  v.Cooldown().Snapshot(time.Now().UTC()),
			ExpiresAt: v.ExpiresAt(),
		}
		return nil
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to resend verification code")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}
	span.AddEvent("verification code resent")

	return res, nil
}
