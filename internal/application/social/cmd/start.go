package cmd

import (
	"context"
	"log/slog"

	"github.com/ARUMANDESU/validation"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/randcode"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

var (
	tracer = otel.Tracer("acme/application/social/cmd")
	logger = otelslog.NewLogger("acme/application/social/cmd")
)

const (
	DefaultCallbackURL = "/dashboard"
	stateBytes         = 32
)

type Start struct {
	Provider string
	// CallbackURL is where the browser lands after a successful sign-in. Only paths on this site are accepted.
	CallbackURL string
}

type StartResult struct {
	AuthURL     string
	State       string
	Verifier    string
	CallbackURL string
}

type StartHandler struct {
	tracer    trace.Tracer
	logger    *slog.Logger
	providers map[account.ProviderID]Provider
}

type StartHandlerArgs struct {
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Providers []Provider
}

func NewStartHandler(args StartHandlerArgs) *StartHandler {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &StartHandler{
		tracer:    args.Tracer,
		logger:    args.Logger,
		providers: providerSet(args.Providers),
	}
}

func (h *StartHandler) Handle(ctx context.Context, cmd Start) (StartResult, error) {
	const op = "cmd.StartHandler.Handle"
	_, span := h.tracer.Start(ctx, "StartHandler.Handle",
		trace.WithAttributes(attribute.String(otelx.AttrProvider, cmd.Provider)))
	defer span.End()

	provider, ok := h.providers[account.ProviderID(cmd.Provider)]
	if !ok {
		err := errorx.NewProviderNotSupported(cmd.Provider)
		otelx.RecordSpanError(span, err, "provider not configured")
		return StartResult{}, errorx.Wrap(err, op)
	}

	callbackURL := cmd.CallbackURL
	if callbackURL == "" {
		callbackURL = DefaultCallbackURL
	}
	err := validation.Errors{
		"callbackURL": validation.Validate(callbackURL, validationx.CallbackPathRules...),
	}.Filter()
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid callback url")
		return StartResult{}, errorx.Wrap(err, op)
	}

	state, err := randcode.GenerateURLSafeToken(stateBytes)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to generate state")
		return StartResult{}, errorx.Wrap(err, op)
	}
	verifier := oauth2.GenerateVerifier()

	return StartResult{
		AuthURL:     provider.AuthCodeURL(state, verifier),
		State:       state,
		Verifier:    verifier,
		CallbackURL: callbackURL,
	}, nil
}

func providerSet(providers []Provider) map[account.ProviderID]Provider {
	set := make(map[account.ProviderID]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			set[p.ID()] = p
		}
	}
	return set
}
