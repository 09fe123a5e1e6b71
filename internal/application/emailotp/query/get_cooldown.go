package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

var tracer = otel.Tracer("acme/application/emailotp/query")

type VerificationGetter interface {
	GetVerification(ctx context.Context, email string, purpose verification.Purpose) (*verification.Verification, error)
}

type GetCooldown struct {
	Email   string
	Purpose verification.Purpose
}

type CooldownView struct {
	cooldown.Snapshot
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	// Active is false once the code expired or was used up.
	Active bool `json:"active"`
}

type GetCooldownHandler struct {
	tracer trace.Tracer
	getter VerificationGetter
	now    func() time.Time
}

func NewGetCooldownHandler(getter VerificationGetter) *GetCooldownHandler {
	return &GetCooldownHandler{
		tracer: tracer,
		getter: getter,
		now:    time.Now,
	}
}

func (h *GetCooldownHandler) Handle(ctx context.Context, q GetCooldown) (CooldownView, error) {
	const op = "query.GetCooldownHandler.Handle"
	email := user.NormalizeEmail(q.Email)
	ctx, span := h.tracer.Start(ctx, "GetCooldownHandler.Handle",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, q.Purpose.String()),
		))
	defer span.End()

	v, err := h.getter.GetVerification(ctx, email, q.Purpose)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get verification")
		return CooldownView{}, errorx.Wrap(err, op)
	}

	now := h.now().UTC()
	return CooldownView{
		Snapshot:  v.Cooldown().Snapshot(now),
		Email:     v.Email(),
		ExpiresAt: v.ExpiresAt(),
		Active:    v.IsActive(now),
	}, nil
}
