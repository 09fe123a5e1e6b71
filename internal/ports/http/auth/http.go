package authhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ARUMANDESU/validation"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	otpcmd "gitlab.com/acme/acme-auth/internal/application/emailotp/cmd"
	"gitlab.com/acme/acme-auth/internal/application/emailotp/query"
	socialapp "gitlab.com/acme/acme-auth/internal/application/social"
	socialcmd "gitlab.com/acme/acme-auth/internal/application/social/cmd"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/pkg/logging"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/sanitizex"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

const (
	BasePath = "/api/auth"
	// SignInPagePath receives the browser when a social callback fails.
	SignInPagePath = "/sign-in"
)

var (
	tracer = otel.Tracer("acme/internal/ports/http/auth")
	logger = otelslog.NewLogger("acme/internal/ports/http/auth")
)

type HTTP struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	otp        *emailotp.App
	auth       *authapp.App
	social     *socialapp.App
	cookies    *Cookies
	errhandler *httpx.ErrorHandler
	limit      func(http.Handler) http.Handler
}

type Args struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	OTP        *emailotp.App
	Auth       *authapp.App
	Social     *socialapp.App
	Cookies    *Cookies
	Errhandler *httpx.ErrorHandler
	// Limit guards the endpoints that send mail or check codes. Nil means no limit.
	Limit func(http.Handler) http.Handler
}

func NewHTTP(args Args) *HTTP {
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Errhandler == nil {
		args.Errhandler = httpx.NewErrorHandler()
	}
	if args.Limit == nil {
		args.Limit = func(next http.Handler) http.Handler { return next }
	}

	return &HTTP{
		tracer:     args.Tracer,
		logger:     args.Logger,
		otp:        args.OTP,
		auth:       args.Auth,
		social:     args.Social,
		cookies:    args.Cookies,
		errhandler: args.Errhandler,
		limit:      args.Limit,
	}
}

func (h *HTTP) Route(r chi.Router) {
	r.Route(BasePath, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.limit)
			r.Post("/email-otp/send-verification-otp", h.SendVerificationOTP)
			r.Post("/email-otp/resend-verification-otp", h.ResendVerificationOTP)
			r.Post("/email-otp/verify-email", h.VerifyEmail)
			r.Post("/sign-in/email-otp", h.SignInEmailOTP)
		})
		r.Get("/email-otp/cooldown", h.Cooldown)
		r.Post("/sign-in/social", h.SignInSocial)
		r.Get("/callback/{provider}", h.Callback)
		r.Get("/get-session", h.GetSession)
		r.Post("/sign-out", h.SignOut)
	})
}

type SendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (r *SendOTPRequest) Sanitized() {
	r.Email = sanitizex.CleanEmail(r.Email)
	r.Type = sanitizex.CleanSingleLine(r.Type)
}

func (r *SendOTPRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{
		otelx.AttrEmail:   logging.RedactEmail(r.Email),
		otelx.AttrPurpose: r.Type,
	})
}

func (r *SendOTPRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validationx.EmailRules...),
		validation.Field(&r.Type, validation.In(
			"",
			verification.PurposeSignIn.String(),
			verification.PurposeEmailVerification.String(),
		).ErrorObject(validation.NewError(i18nx.ValidationIsVerificationPurpose, "must be sign-in or email-verification"))),
	)
}

func (h *HTTP) SendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendVerificationOTP")
	defer span.End()

	var req SendOTPRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}
	purpose, _ := verification.ParsePurpose(req.Type)

	res, err := h.otp.CMD.SendCode.Handle(ctx, otpcmd.SendCode{Email: req.Email, Purpose: purpose})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to send verification code")
		return
	}

	httpx.Success(w, r, http.StatusOK, sendResultEnvelope(res))
}

func (h *HTTP) ResendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ResendVerificationOTP")
	defer span.End()

	var req SendOTPRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}
	purpose, _ := verification.ParsePurpose(req.Type)

	res, err := h.otp.CMD.ResendCode.Handle(ctx, otpcmd.ResendCode{Email: req.Email, Purpose: purpose})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to resend verification code")
		return
	}

	httpx.Success(w, r, http.StatusOK, sendResultEnvelope(res))
}

func sendResultEnvelope(res otpcmd.SendCodeResult) httpx.Envelope {
	return httpx.Envelope{
		"sent":       res.Sent,
		"cooldown":   res.Cooldown,
		"expires_at": res.ExpiresAt,
	}
}

func (h *HTTP) Cooldown(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Cooldown")
	defer span.End()

	req := SendOTPRequest{
		Email: r.URL.Query().Get("email"),
		Type:  r.URL.Query().Get("type"),
	}
	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate query")
		return
	}
	purpose, _ := verification.ParsePurpose(req.Type)

	view, err := h.otp.Query.GetCooldown.Handle(ctx, query.GetCooldown{Email: req.Email, Purpose: purpose})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to get cooldown")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{"cooldown": view})
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyOTPRequest) Sanitized() {
	r.Email = sanitizex.CleanEmail(r.Email)
	r.OTP = sanitizex.CleanCode(r.OTP)
}

func (r *VerifyOTPRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{otelx.AttrEmail: logging.RedactEmail(r.Email)})
}

func (r *VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validationx.EmailRules...),
		validation.Field(&r.OTP, validationx.VerificationCodeRules...),
	)
}

func (h *HTTP) SignInEmailOTP(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, verification.PurposeSignIn, "SignInEmailOTP")
}

func (h *HTTP) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, verification.PurposeEmailVerification, "VerifyEmail")
}

func (h *HTTP) verify(w http.ResponseWriter, r *http.Request, purpose verification.Purpose, spanName string) {
	ctx, span := h.tracer.Start(r.Context(), spanName)
	defer span.End()

	var req VerifyOTPRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}

	res, err := h.otp.CMD.VerifyCode.Handle(ctx, otpcmd.VerifyCode{
		Email:     req.Email,
		Code:      req.OTP,
		Purpose:   purpose,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to verify code")
		return
	}

	h.cookies.SetSession(w, res.Token, res.Session.ExpiresAt())
	span.SetAttributes(attribute.Bool("signed_up", res.SignedUp))

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{
		"token": res.Token,
		"user":  NewUserResponse(res.User),
	})
}

type SignInSocialRequest struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackURL"`
}

func (r *SignInSocialRequest) Sanitized() {
	r.Provider = sanitizex.CleanSingleLine(r.Provider)
	r.CallbackURL = sanitizex.CleanSingleLine(r.CallbackURL)
}

func (r *SignInSocialRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{otelx.AttrProvider: r.Provider})
}

func (r *SignInSocialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Provider, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.CallbackURL, validationx.CallbackPathRules...),
	)
}

func (h *HTTP) SignInSocial(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SignInSocial")
	defer span.End()

	var req SignInSocialRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to read json")
		return
	}

	req.Sanitized()
	req.SetSpanAttrs(span)
	if err := req.Validate(); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to validate request body")
		return
	}

	authURL, err := h.StartSocial(ctx, w, req.Provider, req.CallbackURL)
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to start social sign-in")
		return
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{"url": authURL, "redirect": true})
}

// StartSocial begins a social sign-in, remembering state and PKCE verifier in
// a signed cookie, and returns the provider URL to send the browser to.
func (h *HTTP) StartSocial(ctx context.Context, w http.ResponseWriter, provider, callbackURL string) (string, error) {
	res, err := h.social.CMD.Start.Handle(ctx, socialcmd.Start{
		Provider:    provider,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return "", err
	}

	err = h.cookies.SetOAuthState(w, OAuthState{
		State:       res.State,
		Verifier:    res.Verifier,
		CallbackURL: res.CallbackURL,
	})
	if err != nil {
		return "", errorx.Wrap(err, "authhttp.StartSocial")
	}

	return res.AuthURL, nil
}

func (h *HTTP) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Callback")
	defer span.End()

	provider := chi.URLParam(r, "provider")
	span.SetAttributes(attribute.String(otelx.AttrProvider, provider))

	// the provider reports a user cancel or consent failure in the error parameter
	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		span.AddEvent("provider returned an error", trace.WithAttributes(attribute.String("oauth.error", providerErr)))
		h.failSocial(w, r, span, errorx.NewUnauthorized(), "provider returned an error")
		return
	}

	saved, err := h.cookies.OAuthState(r)
	h.cookies.ClearOAuthState(w)
	if err != nil {
		h.failSocial(w, r, span, socialcmd.ErrInvalidState.WithCause(err), "missing or invalid state cookie")
		return
	}

	res, err := h.social.CMD.Callback.Handle(ctx, socialcmd.Callback{
		Provider:      provider,
		Code:          r.URL.Query().Get("code"),
		State:         r.URL.Query().Get("state"),
		ExpectedState: saved.State,
		Verifier:      saved.Verifier,
		IPAddress:     httpx.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.failSocial(w, r, span, err, "social callback failed")
		return
	}

	h.cookies.SetSession(w, res.Token, res.Session.ExpiresAt())
	span.SetAttributes(attribute.Bool("signed_up", res.SignedUp))

	callbackURL := saved.CallbackURL
	if callbackURL == "" {
		callbackURL = socialcmd.DefaultCallbackURL
	}
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

func (h *HTTP) failSocial(w http.ResponseWriter, r *http.Request, span trace.Span, err error, desc string) {
	otelx.RecordSpanError(span, err, desc)
	h.logger.WarnContext(r.Context(), desc, slog.Any("error", err))

	h.cookies.SetFlash(w, h.errhandler.Translate(r, i18nx.FlashGoogleSignInFailed, nil))
	http.Redirect(w, r, SignInPagePath+"?error="+url.QueryEscape(string(errorCode(err))), http.StatusSeeOther)
}

func errorCode(err error) errorx.Code {
	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return errorx.CodeInternal
}

func (h *HTTP) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetSession")
	defer span.End()

	token, err := SessionToken(r)
	if err != nil {
		httpx.Null(w, r)
		return
	}

	view, err := h.auth.GetSessionHandle(ctx, authapp.GetSession{Token: token})
	if errorx.IsUnauthorized(err) || errorx.IsCode(err, errorx.CodeTokenExpired) {
		span.AddEvent("anonymous request", trace.WithAttributes(attribute.String("reason", err.Error())))
		h.cookies.ClearSession(w)
		httpx.Null(w, r)
		return
	}
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to get session")
		return
	}

	if view.Refreshed {
		h.cookies.SetSession(w, view.Token, view.Session.ExpiresAt())
	}

	httpx.Success(w, r, http.StatusOK, httpx.Envelope{
		"session": NewSessionResponse(view.Session),
		"user":    NewUserResponse(view.User),
	})
}

func (h *HTTP) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SignOut")
	defer span.End()

	token, _ := SessionToken(r)
	if err := h.auth.SignOutHandle(ctx, authapp.SignOut{Token: token}); err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to sign out")
		return
	}
	h.cookies.ClearSession(w)

	httpx.Success(w, r, http.StatusOK, nil)
}
