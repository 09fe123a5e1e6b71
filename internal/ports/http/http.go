package http

import (
	"log/slog"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	socialapp "gitlab.com/acme/acme-auth/internal/application/social"
	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	authhttp "gitlab.com/acme/acme-auth/internal/ports/http/auth"
	"gitlab.com/acme/acme-auth/internal/ports/http/middlewares"
	"gitlab.com/acme/acme-auth/internal/ports/http/pages"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
)

const HealthPath = "/healthz"

type Port struct {
	logger  *slog.Logger
	origins []string

	auth  *authhttp.HTTP
	pages *pages.Pages
}

type Args struct {
	Logger    *slog.Logger
	OTPApp    *emailotp.App
	AuthApp   *authapp.App
	SocialApp *socialapp.App

	Mode          env.Mode
	CookieDomain  string
	SessionSecret []byte
	Brand         string

	RateLimitRPS   float64
	RateLimitBurst int
	// AllowedOrigins enables CORS for the API. Empty means same-origin only.
	AllowedOrigins []string

	TickSource cooldown.TickSource
	Now        func() time.Time
}

func NewPort(args Args) (*Port, error) {
	const op = "http.NewPort"
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	errhandler := httpx.NewErrorHandler()
	cookies := authhttp.NewCookies(authhttp.CookiesArgs{
		Domain: args.CookieDomain,
		Mode:   args.Mode,
		Secret: args.SessionSecret,
	})
	limiter := middlewares.NewRateLimiter(middlewares.RateLimiterArgs{
		RPS:        args.RateLimitRPS,
		Burst:      args.RateLimitBurst,
		Errhandler: errhandler,
		Now:        args.Now,
	})
	session := middlewares.NewSession(middlewares.SessionArgs{
		Resolver:   args.AuthApp,
		Cookies:    cookies,
		Errhandler: errhandler,
	})

	auth := authhttp.NewHTTP(authhttp.Args{
		OTP:        args.OTPApp,
		Auth:       args.AuthApp,
		Social:     args.SocialApp,
		Cookies:    cookies,
		Errhandler: errhandler,
		Limit:      limiter.Limit,
	})

	pg, err := pages.NewPages(pages.Args{
		OTP:           args.OTPApp,
		Auth:          args.AuthApp,
		Social:        auth,
		Cookies:       cookies,
		Errhandler:    errhandler,
		Brand:         args.Brand,
		Limit:         limiter.Limit,
		RequireSignIn: session.RequirePage(authhttp.SignInPagePath),
		OptionalUser:  session.Optional,
		TickSource:    args.TickSource,
	})
	if err != nil {
		return nil, errorx.Wrap(err, op)
	}

	return &Port{
		logger:  args.Logger,
		origins: args.AllowedOrigins,
		auth:    auth,
		pages:   pg,
	}, nil
}

// Route mounts the API and the pages on r, or on a new router when r is nil.
func (p *Port) Route(r chi.Router) chi.Router {
	if r == nil {
		r = chi.NewRouter()
	}

	p.auth.Route(r)
	p.pages.Route(r)

	return r
}

// Handler returns the full router with the shared middleware stack.
func (p *Port) Handler() stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middlewares.OTel,
		middlewares.Logger(p.logger),
		middleware.Recoverer,
	)
	if len(p.origins) > 0 {
		r.Use(middlewares.CORS(p.origins))
	}

	r.Get(HealthPath, func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return p.Route(r)
}
