package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	acmeauth "gitlab.com/acme/acme-auth"
	"gitlab.com/acme/acme-auth/internal/adapters/repos/postgres"
	"gitlab.com/acme/acme-auth/internal/adapters/services/google"
	"gitlab.com/acme/acme-auth/internal/adapters/services/mailer"
	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	"gitlab.com/acme/acme-auth/internal/application/mail"
	"gitlab.com/acme/acme-auth/internal/application/mail/mailtmpl"
	socialapp "gitlab.com/acme/acme-auth/internal/application/social"
	socialcmd "gitlab.com/acme/acme-auth/internal/application/social/cmd"
	"gitlab.com/acme/acme-auth/internal/config"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	httpport "gitlab.com/acme/acme-auth/internal/ports/http"
	watermillport "gitlab.com/acme/acme-auth/internal/ports/watermill"
	"gitlab.com/acme/acme-auth/pkg/logging"
	pgpkg "gitlab.com/acme/acme-auth/pkg/postgres"
	"gitlab.com/acme/acme-auth/pkg/watermillx"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 10 * time.Minute
)

// Application holds all the application dependencies
type Application struct {
	OTP    *emailotp.App
	Auth   *authapp.App
	Social *socialapp.App
	Mail   *mail.App
}

type Repositories struct {
	User         *postgres.UserRepo
	Session      *postgres.SessionRepo
	Account      *postgres.AccountRepo
	Verification *postgres.VerificationRepo
}

func main() {
	if err := run(); err != nil {
		slog.Error("acme-auth stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdownOTel, err := setupOTelSDK(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry SDK: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			slog.Error("failed to shutdown OpenTelemetry SDK", "error", err)
		}
	}()

	logger, cleanup := logging.Setup(cfg.Mode)
	defer func() { _ = cleanup() }()
	slog.SetDefault(logger)

	slog.InfoContext(ctx, "starting acme-auth", "mode", cfg.Mode, "port", cfg.Port)

	pool, err := setupDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	wlogger := watermillx.NewFilteredSlogLogger(logger, slog.LevelInfo)
	if err := watermillx.InitializeEventSchema(ctx, pool, wlogger, verification.EventStreamName, user.EventStreamName); err != nil {
		return fmt.Errorf("failed to initialize event schema: %w", err)
	}

	repos := setupRepositories(pool)
	apps, err := setupApplications(ctx, cfg, repos, logger)
	if err != nil {
		return err
	}

	eventRouter, err := message.NewRouter(message.RouterConfig{}, wlogger)
	if err != nil {
		return fmt.Errorf("failed to create watermill router: %w", err)
	}
	wmport, err := watermillport.NewPort(eventRouter, pool, wlogger)
	if err != nil {
		return fmt.Errorf("failed to create watermill port: %w", err)
	}
	if err := wmport.Register(watermillport.AppEventHandlers{Mail: apps.Mail}); err != nil {
		return err
	}

	httpPort, err := httpport.NewPort(httpport.Args{
		Logger:         logger,
		OTPApp:         apps.OTP,
		AuthApp:        apps.Auth,
		SocialApp:      apps.Social,
		Mode:           cfg.Mode,
		CookieDomain:   cfg.Session.CookieDomain,
		SessionSecret:  []byte(cfg.Session.Secret),
		Brand:          cfg.Brand,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to create http port: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpPort.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The cooldown stream stays open for up to a minute.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 2)
	go func() {
		if err := eventRouter.Run(ctx); err != nil {
			errc <- fmt.Errorf("event router: %w", err)
		}
	}()
	go func() {
		slog.InfoContext(ctx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go runJanitor(ctx, repos, janitorInterval, cfg.OTP.CodeTTL)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errc:
		slog.Error("component failed, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		err = errors.Join(err, fmt.Errorf("http shutdown: %w", serr))
	}
	if cerr := eventRouter.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("event router close: %w", cerr))
	}

	slog.Info("server exited")
	return err
}

func setupDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgpkg.NewPgxPool(ctx, cfg.PgDSN, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pgpkg.Migrate(cfg.PgDSN, acmeauth.Migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pool, nil
}

func setupRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		User:         postgres.NewUserRepo(pool, nil, nil),
		Session:      postgres.NewSessionRepo(pool, nil, nil),
		Account:      postgres.NewAccountRepo(pool, nil, nil),
		Verification: postgres.NewVerificationRepo(pool, nil, nil),
	}
}

func setupApplications(ctx context.Context, cfg *config.Config, repos *Repositories, logger *slog.Logger) (*Application, error) {
	authApp := authapp.NewApp(authapp.Args{
		SessionRepo: repos.Session,
		UserGetter:  repos.User,
		SecretKey:   cfg.Session.Secret,
		SessionTTL:  &cfg.Session.TTL,
		UpdateAge:   &cfg.Session.UpdateAge,
	})

	otpApp := emailotp.NewApp(emailotp.Args{
		Mode:           cfg.Mode,
		Repo:           repos.Verification,
		UserRepo:       repos.User,
		SessionIssuer:  authApp,
		CodeTTL:        cfg.OTP.CodeTTL,
		ResendCooldown: cfg.OTP.ResendCooldown,
	})

	var providers []socialcmd.Provider
	if cfg.GoogleEnabled() {
		g, err := google.NewProvider(google.Args{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create google provider: %w", err)
		}
		providers = append(providers, g)
	} else {
		slog.WarnContext(ctx, "google sign-in disabled, GOOGLE_CLIENT_ID is not set")
	}

	socialApp := socialapp.NewApp(socialapp.Args{
		Providers:     providers,
		UserRepo:      repos.User,
		AccountRepo:   repos.Account,
		SessionIssuer: authApp,
	})

	sender, err := mailer.New(ctx, cfg.MailerConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail sender: %w", err)
	}
	renderer, err := mailtmpl.NewRenderer(acmeauth.Templates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	mailApp := mail.NewApp(mail.Args{
		Mailsender:   sender,
		Renderer:     renderer,
		From:         cfg.Mail.From,
		Brand:        cfg.Brand,
		SupportEmail: cfg.SupportEmail,
	})

	return &Application{
		OTP:    otpApp,
		Auth:   authApp,
		Social: socialApp,
		Mail:   mailApp,
	}, nil
}

// runJanitor removes expired sessions until ctx is done, along with
// verification challenges that have been dead for longer than grace.
func runJanitor(ctx context.Context, repos *Repositories, every, grace time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions, err := repos.Session.DeleteExpiredSessions(ctx, now)
			if err != nil {
				slog.ErrorContext(ctx, "failed to delete expired sessions", "error", err)
			}
			codes, err := repos.Verification.DeleteExpiredVerifications(ctx, now.Add(-grace))
			if err != nil {
				slog.ErrorContext(ctx, "failed to delete expired verifications", "error", err)
			}
			if sessions > 0 || codes > 0 {
				slog.DebugContext(ctx, "janitor pass", "sessions", sessions, "verifications", codes)
			}
		}
	}
}
