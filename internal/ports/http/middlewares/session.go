package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	authhttp "gitlab.com/acme/acme-auth/internal/ports/http/auth"
	"gitlab.com/acme/acme-auth/pkg/ctxs"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/httpx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

var (
	tracer = otel.Tracer("acme/internal/ports/http/middlewares")
	logger = otelslog.NewLogger("acme/internal/ports/http/middlewares")
)

type SessionResolver interface {
	GetSessionHandle(ctx context.Context, q authapp.GetSession) (authapp.SessionView, error)
}

// Session resolves the session cookie and attaches the user to the request context.
type Session struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	resolver   SessionResolver
	cookies    *authhttp.Cookies
	errhandler *httpx.ErrorHandler
}

type SessionArgs struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	Resolver   SessionResolver
	Cookies    *authhttp.Cookies
	Errhandler *httpx.ErrorHandler
}

func NewSession(args SessionArgs) *Session {
	if args.Resolver == nil {
		panic("session resolver is required")
	}
	if args.Cookies == nil {
		panic("cookies are required")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Errhandler == nil {
		args.Errhandler = httpx.NewErrorHandler()
	}

	return &Session{
		tracer:     args.Tracer,
		logger:     args.Logger,
		resolver:   args.Resolver,
		cookies:    args.Cookies,
		errhandler: args.Errhandler,
	}
}

// RequireAPI answers 401 when the request has no valid session.
func (m *Session) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "SessionMiddleware.RequireAPI")
		defer span.End()

		r, err := m.resolve(w, r.WithContext(ctx), span)
		if err != nil {
			m.errhandler.HandleError(w, r, span, err, "no valid session")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePage redirects to loginPath when the request has no valid session.
func (m *Session) RequirePage(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "SessionMiddleware.RequirePage")
			defer span.End()

			r, err := m.resolve(w, r.WithContext(ctx), span)
			if err != nil {
				otelx.RecordSpanError(span, err, "no valid session")
				if !errorx.IsUnauthorized(err) {
					m.logger.ErrorContext(ctx, "failed to resolve session", slog.Any("error", err))
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Session) resolve(w http.ResponseWriter, r *http.Request, span trace.Span) (*http.Request, error) {
	token, err := authhttp.SessionToken(r)
	if err != nil {
		return r, errorx.NewUnauthorized().WithCause(err)
	}

	view, err := m.resolver.GetSessionHandle(r.Context(), authapp.GetSession{Token: token})
	if err != nil {
		if errorx.IsUnauthorized(err) {
			m.cookies.ClearSession(w)
		}
		return r, err
	}
	if view.Refreshed {
		m.cookies.SetSession(w, view.Token, view.Session.ExpiresAt())
	}

	span.SetAttributes(
		attribute.String(otelx.AttrUserID, view.User.ID().String()),
		attribute.String(otelx.AttrSessionID, view.Session.ID().String()),
	)
	ctx := ctxs.WithUser(r.Context(), &ctxs.User{
		ID:        view.User.ID(),
		Email:     view.User.Email(),
		SessionID: view.Session.ID(),
	})
	return r.WithContext(ctx), nil
}

// Optional attaches the user when the request carries a valid session and passes through otherwise.
func (m *Session) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := authhttp.SessionToken(r); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := m.tracer.Start(r.Context(), "SessionMiddleware.Optional")
		resolved, err := m.resolve(w, r.WithContext(ctx), span)
		if err != nil && !errorx.IsUnauthorized(err) {
			otelx.RecordSpanError(span, err, "failed to resolve session")
		}
		span.End()

		if err == nil {
			if u, ok := ctxs.UserFromCtx(resolved.Context()); ok {
				r = r.WithContext(ctxs.WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}
