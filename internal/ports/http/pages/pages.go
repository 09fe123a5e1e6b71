// Package pages serves the server-rendered sign-in flow: the sign-in and
// sign-up forms, the code entry page with its resend countdown, and a
// minimal dashboard for signed-in users.
package pages

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	acmeauth "gitlab.com/acme/acme-auth"
	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	authhttp "gitlab.com/acme/acme-auth/internal/ports/http/auth"
	"gitlab.com/acme/acme-auth/pkg/ctxs"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
)

const DefaultBrand = "Acme Inc."

const (
	pageHome        = "home"
	pageAuth        = "auth"
	pageVerifyEmail = "verify_email"
	pageDashboard   = "dashboard"
)

var (
	tracer = otel.Tracer("acme/internal/ports/http/pages")
	logger = otelslog.NewLogger("acme/internal/ports/http/pages")
)

// SocialStarter begins a social sign-in and returns the provider URL.
type SocialStarter interface {
	StartSocial(ctx context.Context, w http.ResponseWriter, provider, callbackURL string) (string, error)
}

type Pages struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	otp        *emailotp.App
	auth       *authapp.App
	social     SocialStarter
	cookies    *authhttp.Cookies
	errhandler *httpx.ErrorHandler
	templates  map[string]*template.Template
	brand      string

	limit         func(http.Handler) http.Handler
	requireSignIn func(http.Handler) http.Handler
	optionalUser  func(http.Handler) http.Handler
	ticks         cooldown.TickSource
}

type Args struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	OTP        *emailotp.App
	Auth       *authapp.App
	Social     SocialStarter
	Cookies    *authhttp.Cookies
	Errhandler *httpx.ErrorHandler
	Brand      string
	// Templates defaults to the templates embedded in the binary.
	Templates fs.FS

	Limit         func(http.Handler) http.Handler
	RequireSignIn func(http.Handler) http.Handler
	OptionalUser  func(http.Handler) http.Handler
	// TickSource drives the cooldown stream; tests replace it.
	TickSource cooldown.TickSource
}

func NewPages(args Args) (*Pages, error) {
	const op = "pages.NewPages"
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Errhandler == nil {
		args.Errhandler = httpx.NewErrorHandler()
	}
	if args.Templates == nil {
		args.Templates = acmeauth.Templates
	}
	if args.Brand == "" {
		args.Brand = DefaultBrand
	}
	passthrough := func(next http.Handler) http.Handler { return next }
	if args.Limit == nil {
		args.Limit = passthrough
	}
	if args.OptionalUser == nil {
		args.OptionalUser = passthrough
	}
	if args.RequireSignIn == nil {
		args.RequireSignIn = passthrough
	}

	templates, err := parseTemplates(args.Templates)
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	return &Pages{
		tracer:        args.Tracer,
		logger:        args.Logger,
		otp:           args.OTP,
		auth:          args.Auth,
		social:        args.Social,
		cookies:       args.Cookies,
		errhandler:    args.Errhandler,
		templates:     templates,
		brand:         args.Brand,
		limit:         args.Limit,
		requireSignIn: args.RequireSignIn,
		optionalUser:  args.OptionalUser,
		ticks:         args.TickSource,
	}, nil
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, 4)
	for _, name := range []string{pageHome, pageAuth, pageVerifyEmail, pageDashboard} {
		t, err := template.ParseFS(fsys, "templates/pages/layout.html", "templates/pages/"+name+".html")
		if err != nil {
			return nil, err
		}
		templates[name] = t
	}
	return templates, nil
}

func (p *Pages) Route(r chi.Router) {
	r.With(p.optionalUser).Get("/", p.Home)
	r.Get("/sign-in", p.SignIn)
	r.Get("/sign-up", p.SignUp)
	r.With(p.limit).Post("/auth/email", p.RequestCode)
	r.Post("/auth/google", p.SignInWithGoogle)

	r.Get("/verify-email", p.VerifyEmail)
	r.With(p.limit).Post("/verify-email", p.VerifyCode)
	r.With(p.limit).Post("/verify-email/resend", p.ResendCode)
	r.Get("/verify-email/cooldown", p.CooldownStream)

	r.With(p.requireSignIn).Get("/dashboard", p.Dashboard)
	r.Post("/sign-out", p.SignOut)
}

type pageData struct {
	Brand string
	Flash string
	Error string
	User  *ctxs.User

	Heading    string
	Subheading string
	Mode       string
	Email      string

	Counting         bool
	RemainingSeconds int
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.Brand = p.brand
	if data.Flash == "" {
		data.Flash = p.cookies.PopFlash(w, r)
	}
	if data.User == nil {
		data.User, _ = ctxs.UserFromCtx(r.Context())
	}

	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.ErrorContext(r.Context(), "failed to render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *Pages) t(r *http.Request, key string, args map[string]any) string {
	return p.errhandler.Translate(r, key, args)
}
