package authapp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

const (
	Issuer         = "acme_auth"
	SessionSubject = "session"
)

var (
	tracer = otel.Tracer("acme/internal/application/auth")
	logger = otelslog.NewLogger("acme/internal/application/auth")
)

var ErrInvalidSessionToken = errorx.NewUnauthorized().WithKey(i18nx.KeyInvalidSessionJWT)

type SessionRepo interface {
	SaveSession(ctx context.Context, s *session.Session) error
	GetSessionByID(ctx context.Context, id session.ID) (*session.Session, error)
	UpdateSession(ctx context.Context, id session.ID, fn func(context.Context, *session.Session) error) error
	DeleteSession(ctx context.Context, id session.ID) error
}

type UserGetter interface {
	GetUserByID(ctx context.Context, id user.ID) (*user.User, error)
}

// App issues and resolves browser sessions. A session lives in the session
// table; the cookie carries an HS256 token naming it.
type App struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	sessions   SessionRepo
	usergetter UserGetter

	sessionTTL    time.Duration
	updateAge     time.Duration
	secretKey     []byte
	signingMethod *jwt.SigningMethodHMAC
	now           func() time.Time
}

type Args struct {
	Tracer      trace.Tracer
	Logger      *slog.Logger
	SessionRepo SessionRepo
	UserGetter  UserGetter

	SecretKey  string
	SessionTTL *time.Duration
	UpdateAge  *time.Duration
	// Now is used in tests to move the clock.
	Now func() time.Time
}

func NewApp(args Args) *App {
	app := &App{
		tracer:     tracer,
		logger:     logger,
		sessions:   args.SessionRepo,
		usergetter: args.UserGetter,

		sessionTTL:    session.DefaultTTL,
		updateAge:     session.DefaultUpdateAge,
		secretKey:     []byte(args.SecretKey),
		signingMethod: jwt.SigningMethodHS256,
		now:           time.Now,
	}

	if args.SessionTTL != nil {
		app.sessionTTL = *args.SessionTTL
	}
	if args.UpdateAge != nil {
		app.updateAge = *args.UpdateAge
	}
	if args.Tracer != nil {
		app.tracer = args.Tracer
	}
	if args.Logger != nil {
		app.logger = args.Logger
	}
	if args.Now != nil {
		app.now = args.Now
	}

	return app
}

func (a *App) SessionTTL() time.Duration {
	return a.sessionTTL
}

type IssueSession struct {
	UserID    user.ID
	IPAddress string
	UserAgent string
}

type IssuedSession struct {
	Session *session.Session
	Token   string
}

func (a *App) IssueSessionHandle(ctx context.Context, cmd IssueSession) (IssuedSession, error) {
	const op = "authapp.App.IssueSessionHandle"
	ctx, span := a.tracer.Start(ctx, "App.IssueSessionHandle",
		trace.WithAttributes(
			attribute.String(otelx.AttrUserID, cmd.UserID.String()),
			attribute.String("session_ttl", a.sessionTTL.String()),
		),
	)
	defer span.End()

	s, err := session.New(session.Args{
		UserID:    cmd.UserID,
		TTL:       a.sessionTTL,
		IPAddress: cmd.IPAddress,
		UserAgent: cmd.UserAgent,
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to create session")
		return IssuedSession{}, errorx.Wrap(err, op)
	}

	if err := a.sessions.SaveSession(ctx, s); err != nil {
		otelx.RecordSpanError(span, err, "failed to save session")
		return IssuedSession{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrSessionID, s.ID().String()))

	token, err := a.sign(s)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to sign session token")
		return IssuedSession{}, errorx.Wrap(err, op)
	}

	a.logger.DebugContext(ctx, "session issued", slog.String("session.id", s.ID().String()))
	return IssuedSession{Session: s, Token: token}, nil
}

type GetSession struct {
	Token string
}

type SessionView struct {
	Session *session.Session
	User    *user.User
	// Token is a fresh token when the session slid forward, else the one presented.
	Token     string
	Refreshed bool
}

func (a *App) GetSessionHandle(ctx context.Context, q GetSession) (SessionView, error) {
	const op = "authapp.App.GetSessionHandle"
	ctx, span := a.tracer.Start(ctx, "App.GetSessionHandle")
	defer span.End()

	claims, err := a.parse(q.Token, true)
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid session token")
		return SessionView{}, errorx.Wrap(err, op)
	}
	span.SetAttributes(attribute.String(otelx.AttrSessionID, claims.sessionID.String()))

	s, err := a.sessions.GetSessionByID(ctx, claims.sessionID)
	if errorx.IsNotFound(err) {
		otelx.RecordSpanError(span, err, "session not found")
		return SessionView{}, errorx.Wrap(session.ErrNotFound.WithCause(err), op)
	}
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get session")
		return SessionView{}, errorx.Wrap(err, op)
	}
	if s.UserID() != claims.userID {
		err := ErrInvalidSessionToken.WithCause(errors.New("token user does not own the session"))
		otelx.RecordSpanError(span, err, "session owner mismatch")
		return SessionView{}, errorx.Wrap(err, op)
	}

	now := a.now().UTC()
	if s.IsExpired(now) {
		otelx.RecordSpanError(span, session.ErrExpired, "session expired")
		if err := a.sessions.DeleteSession(ctx, s.ID()); err != nil && !errorx.IsNotFound(err) {
			a.logger.WarnContext(ctx, "failed to delete expired session", slog.Any("error", err))
		}
		return SessionView{}, errorx.Wrap(session.ErrExpired, op)
	}

	u, err := a.usergetter.GetUserByID(ctx, s.UserID())
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get session user")
		if errorx.IsNotFound(err) {
			return SessionView{}, errorx.Wrap(session.ErrNotFound.WithCause(err), op)
		}
		return SessionView{}, errorx.Wrap(err, op)
	}

	view := SessionView{Session: s, User: u, Token: q.Token}
	if !s.NeedsRefresh(now, a.updateAge) {
		return view, nil
	}

	err = a.sessions.UpdateSession(ctx, s.ID(), func(ctx context.Context, fresh *session.Session) error {
		if err := fresh.Extend(now, a.sessionTTL); err != nil {
			return err
		}
		s = fresh
		return nil
	})
	if err != nil {
		// the current session is still valid, serve it unrefreshed
		otelx.RecordSpanError(span, err, "failed to extend session")
		a.logger.WarnContext(ctx, "failed to extend session", slog.Any("error", err))
		return view, nil
	}

	token, err := a.sign(s)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to sign refreshed session token")
		return SessionView{}, errorx.Wrap(err, op)
	}
	span.AddEvent("session refreshed")

	return SessionView{Session: s, User: u, Token: token, Refreshed: true}, nil
}

type SignOut struct {
	Token string
}

// SignOutHandle deletes the session named by the token. Unknown, expired or
// malformed tokens are not an error.
func (a *App) SignOutHandle(ctx context.Context, cmd SignOut) error {
	const op = "authapp.App.SignOutHandle"
	ctx, span := a.tracer.Start(ctx, "App.SignOutHandle")
	defer span.End()

	claims, err := a.parse(cmd.Token, false)
	if err != nil {
		span.AddEvent("nothing to sign out")
		return nil
	}
	span.SetAttributes(attribute.String(otelx.AttrSessionID, claims.sessionID.String()))

	err = a.sessions.DeleteSession(ctx, claims.sessionID)
	if err != nil && !errorx.IsNotFound(err) {
		otelx.RecordSpanError(span, err, "failed to delete session")
		return errorx.Wrap(err, op)
	}

	return nil
}

type sessionClaims struct {
	sessionID session.ID
	userID    user.ID
}

func (a *App) sign(s *session.Session) (string, error) {
	token := jwt.NewWithClaims(a.signingMethod, jwt.MapClaims{
		"iss": Issuer,
		"sub": SessionSubject,
		"exp": s.ExpiresAt().Unix(),
		"iat": a.now().Unix(),
		"sid": s.ID().String(),
		"uid": s.UserID().String(),
	})

	return token.SignedString(a.secretKey)
}

func (a *App) parse(raw string, validateExpiry bool) (sessionClaims, error) {
	if raw == "" {
		return sessionClaims{}, ErrInvalidSessionToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{a.signingMethod.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithSubject(SessionSubject),
		jwt.WithTimeFunc(a.now),
	}
	if validateExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return sessionClaims{}, session.ErrExpired.WithCause(err)
		}
		return sessionClaims{}, ErrInvalidSessionToken.WithCause(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return sessionClaims{}, ErrInvalidSessionToken
	}

	sid, _ := claims["sid"].(string)
	sessionID, err := session.ParseID(sid)
	if err != nil {
		return sessionClaims{}, ErrInvalidSessionToken.WithCause(err)
	}
	uid, _ := claims["uid"].(string)
	userID, err := user.ParseID(uid)
	if err != nil {
		return sessionClaims{}, ErrInvalidSessionToken.WithCause(err)
	}

	return sessionClaims{sessionID: sessionID, userID: userID}, nil
}
