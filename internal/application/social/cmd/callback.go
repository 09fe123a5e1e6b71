package cmd

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

type Callback struct {
	Provider string
	Code     string
	State    string
	// ExpectedState and Verifier come from the state cookie set by Start.
	ExpectedState string
	Verifier      string
	IPAddress     string
	UserAgent     string
}

type CallbackResult struct {
	User     *user.User
	Session  *session.Session
	Token    string
	SignedUp bool
}

type CallbackHandler struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	providers     map[account.ProviderID]Provider
	userrepo      UserRepo
	accountrepo   AccountRepo
	sessionissuer SessionIssuer
}

type CallbackHandlerArgs struct {
	Tracer        trace.Tracer
	Logger        *slog.Logger
	Providers     []Provider
	UserRepo      UserRepo
	AccountRepo   AccountRepo
	SessionIssuer SessionIssuer
}

func NewCallbackHandler(args CallbackHandlerArgs) *CallbackHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &CallbackHandler{
		tracer:        args.Tracer,
		logger:        args.Logger,
		providers:     providerSet(args.Providers),
		userrepo:      args.UserRepo,
		accountrepo:   args.AccountRepo,
		sessionissuer: args.SessionIssuer,
	}
}

func (h *CallbackHandler) Handle(ctx context.Context, cmd Callback) (CallbackResult, error) {
	const op = "cmd.CallbackHandler.Handle"
	ctx, span := h.tracer.Start(ctx, "CallbackHandler.Handle",
		trace.WithAttributes(attribute.String(otelx.AttrProvider, cmd.Provider)))
	defer span.End()

	provider, ok := h.providers[account.ProviderID(cmd.Provider)]
	if !ok {
		err := errorx.NewProviderNotSupported(cmd.Provider)
		otelx.RecordSpanError(span, err, "provider not configured")
		return CallbackResult{}, errorx.Wrap(err, op)
	}

	if cmd.State == "" || cmd.Verifier == "" || cmd.Code == "" ||
		subtle.ConstantTimeCompare([]byte(cmd.State), []byte(cmd.ExpectedState)) != 1 {
		otelx.RecordSpanError(span, ErrInvalidState, "state mismatch")
		return CallbackResult{}, errorx.Wrap(ErrInvalidState, op)
	}

	identity, tokens, err := provider.Exchange(ctx, cmd.Code, cmd.Verifier)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to exchange code")
		return CallbackResult{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(otelx.EmailAttr(identity.Email))

	u, signedUp, err := h.resolveUser(ctx, provider.ID(), identity, tokens)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to resolve user")
		return CallbackResult{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrUserID, u.ID().String()))

	issued, err := h.sessionissuer.IssueSessionHandle(ctx, authapp.IssueSession{
		UserID:    u.ID(),
		IPAddress: cmd.IPAddress,
		UserAgent: cmd.UserAgent,
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to issue session")
		return CallbackResult{}, errorx.Wrap(err, op)
	}

	return CallbackResult{
		User:     u,
		Session:  issued.Session,
		Token:    issued.Token,
		SignedUp: signedUp,
	}, nil
}

// resolveUser finds the user behind identity: a linked account first, then an
// existing user with the same verified email, else a new user.
func (h *CallbackHandler) resolveUser(
	ctx context.Context,
	provider account.ProviderID,
	identity account.Identity,
	tokens account.Tokens,
) (*user.User, bool, error) {
	linked, err := h.accountrepo.GetAccount(ctx, provider, identity.Subject)
	if err != nil && !errorx.IsNotFound(err) {
		return nil, false, err
	}

	if linked != nil {
		err := h.accountrepo.UpdateAccount(ctx, provider, identity.Subject, func(ctx context.Context, a *account.Account) error {
			a.UpdateTokens(tokens)
			return nil
		})
		if err != nil {
			return nil, false, err
		}

		u, err := h.syncProfile(ctx, linked.UserID(), identity)
		return u, false, err
	}

	// only a provider-verified email may link or sign up
	if !identity.EmailVerified {
		return nil, false, ErrEmailNotVerified
	}

	u, err := h.userrepo.GetUserByEmail(ctx, user.NormalizeEmail(identity.Email))
	if err != nil && !errorx.IsNotFound(err) {
		return nil, false, err
	}

	signedUp := false
	if u != nil {
		if u, err = h.syncProfile(ctx, u.ID(), identity); err != nil {
			return nil, false, err
		}
	} else {
		u, err = user.NewFromProfile(user.Profile{
			Email:         identity.Email,
			EmailVerified: identity.EmailVerified,
			Name:          identity.Name,
			Image:         identity.Picture,
		})
		if err != nil {
			return nil, false, err
		}
		if err := h.userrepo.SaveUser(ctx, u); err != nil {
			return nil, false, err
		}
		signedUp = true
	}

	a, err := account.New(account.Args{
		UserID:     u.ID(),
		ProviderID: provider,
		AccountID:  identity.Subject,
		Tokens:     tokens,
	})
	if err != nil {
		return nil, false, err
	}
	if err := h.accountrepo.SaveAccount(ctx, a); err != nil {
		return nil, false, err
	}

	return u, signedUp, nil
}

// syncProfile fills blank profile fields from the provider and marks the email
// verified when the provider vouches for it.
func (h *CallbackHandler) syncProfile(ctx context.Context, id user.ID, identity account.Identity) (*user.User, error) {
	var u *user.User
	err := h.userrepo.UpdateUser(ctx, id, func(ctx context.Context, fresh *user.User) error {
		fresh.UpdateProfile(identity.Name, identity.Picture)
		if identity.EmailVerified && user.NormalizeEmail(identity.Email) == fresh.Email() {
			if err := fresh.MarkEmailVerified(); err != nil {
				return err
			}
		}
		u = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
