package cmd

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

type ResendCode struct {
	Email   string
	Purpose verification.Purpose
}

type ResendCodeHandler struct {
	tracer trace.Tracer
	logger *slog.Logger
	repo   VerificationRepo
}

type ResendCodeHandlerArgs struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	Repo   VerificationRepo
}

func NewResendCodeHandler(args ResendCodeHandlerArgs) *ResendCodeHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &ResendCodeHandler{
		tracer: args.Tracer,
		logger: args.Logger,
		repo:   args.Repo,
	}
}

func (h *ResendCodeHandler) Handle(ctx context.Context, cmd ResendCode) (SendCodeResult, error) {
	const op = "cmd.ResendCodeHandler.Handle"
	email := user.NormalizeEmail(cmd.Email)
	ctx, span := h.tracer.Start(ctx, "ResendCodeHandler.Handle",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, cmd.Purpose.String()),
		))
	defer span.End()

	if !cmd.Purpose.IsValid() {
		otelx.RecordSpanError(span, verification.ErrInvalidPurpose, "invalid purpose")
		return SendCodeResult{}, errorx.Wrap(verification.ErrInvalidPurpose, op)
	}

	var res SendCodeResult
	err := h.repo.UpdateVerification(ctx, email, cmd.Purpose, func(ctx context.Context, v *verification.Verification) error {
		span := trace.SpanFromContext(ctx)
		otelx.SetSpanAttrs(span, map[string]any{
			otelx.AttrVerification: v.ID().String(),
			"verification.status":  v.Status().String(),
		})

		if err := v.Resend(); err != nil {
			span.AddEvent("failed to resend code")
			return err
		}

		res = SendCodeResult{
			Sent:      true,
			Cooldown:  v.Cooldown().Snapshot(time.Now().UTC()),
			ExpiresAt: v.ExpiresAt(),
		}
		span.AddEvent("code resent successfully")
		return nil
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to resend verification code")
		return SendCodeResult{}, errorx.Wrap(err, op)
	}

	return res, nil
}
