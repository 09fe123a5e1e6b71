package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	acmeauth "gitlab.com/acme/acme-auth"
	"gitlab.com/acme/acme-auth/internal/adapters/repos/postgres"
	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	"gitlab.com/acme/acme-auth/internal/application/mail"
	"gitlab.com/acme/acme-auth/internal/application/mail/mailtmpl"
	socialapp "gitlab.com/acme/acme-auth/internal/application/social"
	socialcmd "gitlab.com/acme/acme-auth/internal/application/social/cmd"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	httpport "gitlab.com/acme/acme-auth/internal/ports/http"
	watermillport "gitlab.com/acme/acme-auth/internal/ports/watermill"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

// App is the whole service wired against a real database, with mail and
// Google replaced by in-memory fakes.
type App struct {
	HTTPHandler    http.Handler
	MockMailSender *mocks.MockMailSender
	Google         *mocks.Provider

	UserRepo         *postgres.UserRepo
	SessionRepo      *postgres.SessionRepo
	AccountRepo      *postgres.AccountRepo
	VerificationRepo *postgres.VerificationRepo
}

// NewApp builds the service and starts its outbox router. The router stops
// when the test ends.
func NewApp(t testing.TB, db *Database) *App {
	t.Helper()

	userRepo := postgres.NewUserRepo(db.Pool, nil, nil)
	sessionRepo := postgres.NewSessionRepo(db.Pool, nil, nil)
	accountRepo := postgres.NewAccountRepo(db.Pool, nil, nil)
	verificationRepo := postgres.NewVerificationRepo(db.Pool, nil, nil)

	authApp := authapp.NewApp(authapp.Args{
		SessionRepo: sessionRepo,
		UserGetter:  userRepo,
		SecretKey:   builders.TestSecret,
	})
	otpApp := emailotp.NewApp(emailotp.Args{
		Mode:          env.Test,
		Repo:          verificationRepo,
		UserRepo:      userRepo,
		SessionIssuer: authApp,
	})
	google := mocks.NewProvider(account.ProviderGoogle)
	socialApp := socialapp.NewApp(socialapp.Args{
		Providers:     []socialcmd.Provider{google},
		UserRepo:      userRepo,
		AccountRepo:   accountRepo,
		SessionIssuer: authApp,
	})

	sender := mocks.NewMockMailSender()
	renderer, err := mailtmpl.NewRenderer(acmeauth.Templates)
	require.NoError(t, err)
	mailApp := mail.NewApp(mail.Args{
		Mailsender:   sender,
		Renderer:     renderer,
		From:         "Acme Inc. <no-reply@acme.test>",
		Brand:        "Acme Inc.",
		SupportEmail: "support@acme.test",
	})

	wlogger := watermill.NopLogger{}
	router, err := message.NewRouter(message.RouterConfig{}, wlogger)
	require.NoError(t, err)
	wport, err := watermillport.NewPortForTest(router, db.Pool, wlogger)
	require.NoError(t, err)
	require.NoError(t, wport.Register(watermillport.AppEventHandlers{Mail: mailApp}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-router.Running():
	case <-time.After(10 * time.Second):
		t.Fatal("watermill router did not start")
	}

	hport, err := httpport.NewPort(httpport.Args{
		OTPApp:         otpApp,
		AuthApp:        authApp,
		SocialApp:      socialApp,
		Mode:           env.Test,
		SessionSecret:  []byte(builders.TestSecret),
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	})
	require.NoError(t, err)

	return &App{
		HTTPHandler:      hport.Handler(),
		MockMailSender:   sender,
		Google:           google,
		UserRepo:         userRepo,
		SessionRepo:      sessionRepo,
		AccountRepo:      accountRepo,
		VerificationRepo: verificationRepo,
	}
}
