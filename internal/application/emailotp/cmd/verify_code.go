package cmd

import (
	"context"
	"log/slog"

	"github.com/ARUMANDESU/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

type VerifyCode struct {
	Email     string
	Code      string
	Purpose   verification.Purpose
	IPAddress string
	UserAgent string
}

type VerifyCodeResult struct {
	User    *user.User
	Session *session.Session
	Token   string
	// SignedUp is true when the verification created the user.
	SignedUp bool
}

type VerifyCodeHandler struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	repo          VerificationRepo
	userrepo      UserRepo
	sessionissuer SessionIssuer
}

type VerifyCodeHandlerArgs struct {
	Tracer        trace.Tracer
	Logger        *slog.Logger
	Repo          VerificationRepo
	UserRepo      UserRepo
	SessionIssuer SessionIssuer
}

func NewVerifyCodeHandler(args VerifyCodeHandlerArgs) *VerifyCodeHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &VerifyCodeHandler{
		tracer:        args.Tracer,
		logger:        args.Logger,
		repo:          args.Repo,
		userrepo:      args.UserRepo,
		sessionissuer: args.SessionIssuer,
	}
}

// Handle checks the code and signs the user in. Sign-in creates the user on
// first use; email verification requires the user to exist already.
func (h *VerifyCodeHandler) Handle(ctx context.Context, cmd VerifyCode) (VerifyCodeResult, error) {
	const op = "cmd.VerifyCodeHandler.Handle"
	email := user.NormalizeEmail(cmd.Email)
	ctx, span := h.tracer.Start(ctx, "VerifyCodeHandler.Handle",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, cmd.Purpose.String()),
		))
	defer span.End()

	// malformed codes never reach storage, so they cannot burn an attempt
	err := validation.Errors{
		"email": validation.Validate(email, validation.Required),
		"code":  validation.Validate(cmd.Code, validationx.VerificationCodeRules...),
	}.Filter()
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid verification input")
		return VerifyCodeResult{}, errorx.Wrap(err, op)
	}
	if !cmd.Purpose.IsValid() {
		otelx.RecordSpanError(span, verification.ErrInvalidPurpose, "invalid purpose")
		return VerifyCodeResult{}, errorx.Wrap(verification.ErrInvalidPurpose, op)
	}
	if cmd.Purpose == verification.PurposeEmailVerification {
		if _, err := h.userrepo.GetUserByEmail(ctx, email); err != nil {
			otelx.RecordSpanError(span, err, "no user to verify")
			return VerifyCodeResult{}, errorx.Wrap(err, op)
		}
	}

	var verificationID verification.ID
	err = h.repo.UpdateVerification(ctx, email, cmd.Purpose, func(ctx context.Context, v *verification.Verification) error {
		verificationID = v.ID()
		return v.Verify(cmd.Code)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to verify code")
		return VerifyCodeResult{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrVerification, verificationID.String()))
	span.AddEvent("code verified")

	u, signedUp, err := h.resolveUser(ctx, email, cmd.Purpose)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to resolve user")
		return VerifyCodeResult{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrUserID, u.ID().String()))

	// the challenge is already verified and cannot be replayed, so a failed delete only leaves a stale row
	if err := h.repo.DeleteVerification(ctx, verificationID); err != nil && !errorx.IsNotFound(err) {
		h.logger.WarnContext(ctx, "failed to delete verification",
			slog.String("verification.id", verificationID.String()),
			slog.Any("error", err),
		)
	}

	issued, err := h.sessionissuer.IssueSessionHandle(ctx, authapp.IssueSession{
		UserID:    u.ID(),
		IPAddress: cmd.IPAddress,
		UserAgent: cmd.UserAgent,
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to issue session")
		return VerifyCodeResult{}, errorx.Wrap(err, op)
	}

	return VerifyCodeResult{
		User:     u,
		Session:  issued.Session,
		Token:    issued.Token,
		SignedUp: signedUp,
	}, nil
}

func (h *VerifyCodeHandler) resolveUser(
	ctx context.Context,
	email string,
	purpose verification.Purpose,
) (*user.User, bool, error) {
	u, err := h.userrepo.GetUserByEmail(ctx, email)
	if err != nil && !errorx.IsNotFound(err) {
		return nil, false, err
	}

	if u == nil {
		if purpose == verification.PurposeEmailVerification {
			return nil, false, user.ErrNotFound
		}

		u, err = user.NewFromEmail(email)
		if err != nil {
			return nil, false, err
		}
		err = h.userrepo.SaveUser(ctx, u)
		if errorx.IsDuplicateEntry(err) {
			// a concurrent verification created the user first
			u, err = h.userrepo.GetUserByEmail(ctx, email)
			return u, false, err
		}
		if err != nil {
			return nil, false, err
		}
		return u, true, nil
	}

	if u.EmailVerified() {
		return u, false, nil
	}

	err = h.userrepo.UpdateUser(ctx, u.ID(), func(ctx context.Context, fresh *user.User) error {
		if err := fresh.MarkEmailVerified(); err != nil {
			return err
		}
		u = fresh
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return u, false, nil
}
