package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

var (
	tracer = otel.Tracer("acme/internal/adapters/services/google")
	logger = otelslog.NewLogger("acme/internal/adapters/services/google")
)

var Scopes = []string{"openid", "email", "profile"}

var (
	ErrMissingIDToken = errors.New("token response has no id_token")
	ErrMissingSubject = errors.New("id token has no subject")
)

// IDTokenValidator checks an ID token signature and audience. idtoken.Validate satisfies it.
type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type Args struct {
	Tracer       trace.Tracer
	Logger       *slog.Logger
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint defaults to Google's OAuth 2.0 endpoint.
	Endpoint   *oauth2.Endpoint
	HTTPClient *http.Client
	Validator  IDTokenValidator
}

// Provider signs users in with Google using the authorization code flow with PKCE.
type Provider struct {
	tracer    trace.Tracer
	logger    *slog.Logger
	oauth     *oauth2.Config
	client    *http.Client
	validator IDTokenValidator
}

func NewProvider(args Args) (*Provider, error) {
	const op = "google.NewProvider"
	if args.ClientID == "" || args.ClientSecret == "" {
		return nil, errorx.Wrap(errors.New("google client id and secret are required"), op)
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	endpoint := googleoauth.Endpoint
	if args.Endpoint != nil {
		endpoint = *args.Endpoint
	}
	if args.HTTPClient == nil {
		args.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if args.Validator == nil {
		args.Validator = idtoken.Validate
	}

	return &Provider{
		tracer: args.Tracer,
		logger: args.Logger,
		oauth: &oauth2.Config{
			ClientID:     args.ClientID,
			ClientSecret: args.ClientSecret,
			RedirectURL:  args.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		client:    args.HTTPClient,
		validator: args.Validator,
	}, nil
}

func (p *Provider) ID() account.ProviderID {
	return account.ProviderGoogle
}

func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the authorization code for tokens and reads the identity
// from the validated ID token.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (account.Identity, account.Tokens, error) {
	const op = "google.Provider.Exchange"
	ctx, span := p.tracer.Start(ctx, "Provider.Exchange",
		trace.WithAttributes(attribute.String(otelx.AttrProvider, account.ProviderGoogle.String())))
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		otelx.RecordSpanError(span, err, "code exchange failed")
		return account.Identity{}, account.Tokens{}, errorx.Wrap(errorx.NewUpstreamServiceError().WithCause(err), op)
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		otelx.RecordSpanError(span, ErrMissingIDToken, "no id token")
		return account.Identity{}, account.Tokens{}, errorx.Wrap(errorx.NewUpstreamServiceError().WithCause(ErrMissingIDToken), op)
	}

	payload, err := p.validator(ctx, rawIDToken, p.oauth.ClientID)
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid id token")
		return account.Identity{}, account.Tokens{}, errorx.Wrap(errorx.NewUnauthorized().WithCause(err), op)
	}
	if payload.Subject == "" {
		otelx.RecordSpanError(span, ErrMissingSubject, "invalid id token")
		return account.Identity{}, account.Tokens{}, errorx.Wrap(errorx.NewUnauthorized().WithCause(ErrMissingSubject), op)
	}

	identity := identityFromClaims(payload)
	scope, _ := tok.Extra("scope").(string)
	tokens := account.Tokens{
		AccessToken:          tok.AccessToken,
		RefreshToken:         tok.RefreshToken,
		IDToken:              rawIDToken,
		Scope:                scope,
		AccessTokenExpiresAt: tok.Expiry,
	}

	p.logger.DebugContext(ctx, "google identity resolved",
		slog.Bool("email_verified", identity.EmailVerified),
		slog.Bool("refresh_token", tokens.RefreshToken != ""),
	)

	return identity, tokens, nil
}

func identityFromClaims(p *idtoken.Payload) account.Identity {
	email, _ := p.Claims["email"].(string)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)

	// Google sends email_verified as a bool, some older tokens as the string "true"
	var verified bool
	switch v := p.Claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}

	return account.Identity{
		Subject:       p.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
		Picture:       picture,
	}
}
