package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ARUMANDESU/validation"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	otpcmd "gitlab.com/acme/acme-auth/internal/application/emailotp/cmd"
	"gitlab.com/acme/acme-auth/internal/application/emailotp/query"
	socialcmd "gitlab.com/acme/acme-auth/internal/application/social/cmd"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	authhttp "gitlab.com/acme/acme-auth/internal/ports/http/auth"
	"gitlab.com/acme/acme-auth/pkg/ctxs"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/sanitizex"
	"gitlab.com/acme/acme-auth/pkg/validationx"
)

const (
	modeSignIn = "sign-in"
	modeSignUp = "sign-up"

	signInPath      = "/sign-in"
	verifyEmailPath = "/verify-email"
	dashboardPath   = "/dashboard"
)

func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	_, span := p.tracer.Start(r.Context(), "Home")
	defer span.End()

	p.render(w, r, http.StatusOK, pageHome, pageData{})
}

func (p *Pages) SignIn(w http.ResponseWriter, r *http.Request) {
	p.renderAuth(w, r, http.StatusOK, pageData{Mode: modeSignIn})
}

func (p *Pages) SignUp(w http.ResponseWriter, r *http.Request) {
	p.renderAuth(w, r, http.StatusOK, pageData{Mode: modeSignUp})
}

func (p *Pages) renderAuth(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if data.Mode == modeSignUp {
		data.Heading = "Create an account"
		data.Subheading = "Sign up with your Email or Google account"
	} else {
		data.Mode = modeSignIn
		data.Heading = "Welcome back"
		data.Subheading = "Sign in with your Email or Google account"
	}
	p.render(w, r, status, pageAuth, data)
}

// RequestCode sends a sign-in code to the submitted address and moves the
// browser to the code entry page.
func (p *Pages) RequestCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "RequestCode")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		otelx.RecordSpanError(span, err, "failed to parse form")
		p.renderAuth(w, r, http.StatusBadRequest, pageData{Error: p.t(r, i18nx.FlashInvalidEmail, nil)})
		return
	}
	mode := r.PostForm.Get("mode")
	email := sanitizex.CleanEmail(r.PostForm.Get("email"))
	span.SetAttributes(otelx.EmailAttr(email))

	if err := validation.Validate(email, validationx.EmailRules...); err != nil {
		otelx.RecordSpanError(span, err, "invalid email")
		p.renderAuth(w, r, http.StatusUnprocessableEntity, pageData{
			Mode:  mode,
			Email: email,
			Error: p.t(r, i18nx.FlashInvalidEmail, nil),
		})
		return
	}

	_, err := p.otp.CMD.SendCode.Handle(ctx, otpcmd.SendCode{Email: email, Purpose: verification.PurposeSignIn})
	if err != nil {
		p.fail(ctx, span, err, "failed to send verification code")
		p.renderAuth(w, r, statusOf(err), pageData{
			Mode:  mode,
			Email: email,
			Error: p.t(r, i18nx.FlashSendCodeFailed, nil),
		})
		return
	}

	p.cookies.SetPending(w, email)
	http.Redirect(w, r, verifyURL(email), http.StatusSeeOther)
}

func (p *Pages) SignInWithGoogle(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "SignInWithGoogle")
	defer span.End()

	authURL, err := p.social.StartSocial(ctx, w, account.ProviderGoogle.String(), socialcmd.DefaultCallbackURL)
	if err != nil {
		p.fail(ctx, span, err, "failed to start google sign-in")
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashGoogleSignInFailed, nil))
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// VerifyEmail renders the code entry page for the address in the query or,
// failing that, the one remembered by RequestCode.
func (p *Pages) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "VerifyEmail")
	defer span.End()

	email := p.pendingEmail(r, r.URL.Query().Get("email"))
	if email == "" {
		span.AddEvent("no email to verify")
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashEmailNotFound, nil))
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	p.renderVerify(ctx, w, r, http.StatusOK, email, "")
}

func (p *Pages) renderVerify(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, email, errMsg string) {
	data := pageData{Email: email, Error: errMsg}

	view, err := p.otp.Query.GetCooldown.Handle(ctx, query.GetCooldown{Email: email, Purpose: verification.PurposeSignIn})
	if err == nil && view.State == cooldown.StateCounting {
		data.Counting = true
		data.RemainingSeconds = view.RemainingSeconds
	}

	p.render(w, r, status, pageVerifyEmail, data)
}

func (p *Pages) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "VerifyCode")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		otelx.RecordSpanError(span, err, "failed to parse form")
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}
	email := p.pendingEmail(r, r.PostForm.Get("email"))
	if email == "" {
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashEmailNotFound, nil))
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}
	span.SetAttributes(otelx.EmailAttr(email))

	code := sanitizex.CleanCode(r.PostForm.Get("code"))
	if key := codeProblem(code); key != "" {
		span.AddEvent("malformed code rejected")
		p.renderVerify(ctx, w, r, http.StatusUnprocessableEntity, email, p.t(r, key, nil))
		return
	}

	res, err := p.otp.CMD.VerifyCode.Handle(ctx, otpcmd.VerifyCode{
		Email:     email,
		Code:      code,
		Purpose:   verification.PurposeSignIn,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		p.fail(ctx, span, err, "failed to verify code")
		p.renderVerify(ctx, w, r, statusOf(err), email, p.t(r, i18nx.FlashVerifyFailed, nil))
		return
	}

	p.cookies.ClearPending(w)
	p.cookies.SetSession(w, res.Token, res.Session.ExpiresAt())
	p.cookies.SetFlash(w, p.t(r, i18nx.FlashEmailVerified, nil))
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// codeProblem returns the message key describing why code is not six ASCII digits.
func codeProblem(code string) string {
	if len(code) != validationx.VerificationCodeLen {
		return i18nx.FlashCodeMustBe6Digits
	}
	for i := range len(code) {
		if code[i] < '0' || code[i] > '9' {
			return i18nx.FlashCodeMustBeNumeric
		}
	}
	return ""
}

func (p *Pages) ResendCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "ResendCode")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		otelx.RecordSpanError(span, err, "failed to parse form")
	}
	email := p.pendingEmail(r, r.PostForm.Get("email"))
	if email == "" {
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashEmailNotFound, nil))
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}
	span.SetAttributes(otelx.EmailAttr(email))

	_, err := p.otp.CMD.ResendCode.Handle(ctx, otpcmd.ResendCode{Email: email, Purpose: verification.PurposeSignIn})
	if errorx.IsNotFound(err) {
		// the challenge is gone, e.g. swept after expiry, so start a new one
		_, err = p.otp.CMD.SendCode.Handle(ctx, otpcmd.SendCode{Email: email, Purpose: verification.PurposeSignIn})
	}

	switch {
	case err == nil:
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashCodeResent, nil))
	case errorx.IsCode(err, errorx.CodeRateLimitExceeded):
		span.AddEvent("resend refused while cooling down")
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashWaitBeforeResend, map[string]any{
			i18nx.ArgRetryAfter: retryAfter(err),
		}))
	default:
		p.fail(ctx, span, err, "failed to resend verification code")
		p.cookies.SetFlash(w, p.t(r, i18nx.FlashResendFailed, nil))
	}

	http.Redirect(w, r, verifyURL(email), http.StatusSeeOther)
}

// CooldownStream pushes one cooldown snapshot per second as Server-Sent
// Events until the resend button may be enabled or the client goes away.
func (p *Pages) CooldownStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "CooldownStream")
	defer span.End()

	email := p.pendingEmail(r, r.URL.Query().Get("email"))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(otelx.EmailAttr(email))

	// a missing challenge means the user may resend right away; an expired or
	// locked out one still counts down its own cooldown
	cd := cooldown.Rehydrate(0, time.Time{})
	view, err := p.otp.Query.GetCooldown.Handle(ctx, query.GetCooldown{Email: email, Purpose: verification.PurposeSignIn})
	switch {
	case err == nil:
		cd = cooldown.Rehydrate(0, view.ReadyAt)
	case err != nil && !errorx.IsNotFound(err):
		p.fail(ctx, span, err, "failed to get cooldown")
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var opts []cooldown.TickerOption
	if p.ticks != nil {
		opts = append(opts, cooldown.WithTickSource(p.ticks))
	}
	err = cooldown.NewTicker(cd, opts...).Run(ctx, func(s cooldown.Snapshot) {
		data, err := json.Marshal(s)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: cooldown\ndata: %s\n\n", data)
		_ = rc.Flush()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.DebugContext(ctx, "cooldown stream ended", slog.Any("error", err))
	}
}

func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, span := p.tracer.Start(r.Context(), "Dashboard")
	defer span.End()

	u, ok := ctxs.UserFromCtx(r.Context())
	if !ok {
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	p.render(w, r, http.StatusOK, pageDashboard, pageData{User: u})
}

func (p *Pages) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "SignOut")
	defer span.End()

	token, _ := authhttp.SessionToken(r)
	if err := p.auth.SignOutHandle(ctx, authapp.SignOut{Token: token}); err != nil {
		p.fail(ctx, span, err, "failed to sign out")
	}

	p.cookies.ClearSession(w)
	p.cookies.SetFlash(w, p.t(r, i18nx.FlashSignedOut, nil))
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

func (p *Pages) pendingEmail(r *http.Request, candidate string) string {
	if email := sanitizex.CleanEmail(candidate); email != "" {
		return email
	}
	return sanitizex.CleanEmail(p.cookies.Pending(r))
}

func (p *Pages) fail(ctx context.Context, span trace.Span, err error, desc string) {
	otelx.RecordSpanError(span, err, desc)
	if statusOf(err) >= http.StatusInternalServerError {
		p.logger.ErrorContext(ctx, desc, slog.Any("error", err))
		return
	}
	p.logger.DebugContext(ctx, desc, slog.Any("error", err))
}

func verifyURL(email string) string {
	return verifyEmailPath + "?email=" + url.QueryEscape(email)
}

func statusOf(err error) int {
	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatusCode()
	}
	var valErrs validation.Errors
	if errors.As(err, &valErrs) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func retryAfter(err error) any {
	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		if v, ok := appErr.MessageArgs[i18nx.ArgRetryAfter]; ok {
			return v
		}
	}
	return int(verification.ResendCooldown / time.Second)
}
