package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/application/emailotp"
	socialapp "gitlab.com/acme/acme-auth/internal/application/social"
	socialcmd "gitlab.com/acme/acme-auth/internal/application/social/cmd"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	authhttp "gitlab.com/acme/acme-auth/internal/ports/http/auth"
	"gitlab.com/acme/acme-auth/internal/ports/http/middlewares"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

const email = "ada@example.com"

type PagesSuite struct {
	Router      chi.Router
	Cookies     *authhttp.Cookies
	Auth        *authapp.App
	VerRepo     *mocks.VerificationRepo
	UserRepo    *mocks.UserRepo
	SessionRepo *mocks.SessionRepo
	Ticks       chan time.Time
}

func NewPagesSuite(t *testing.T) *PagesSuite {
	t.Helper()

	verRepo := mocks.NewVerificationRepo()
	userRepo := mocks.NewUserRepo()
	sessionRepo := mocks.NewSessionRepo()

	auth := authapp.NewApp(authapp.Args{
		SessionRepo: sessionRepo,
		UserGetter:  userRepo,
		SecretKey:   builders.TestSecret,
	})
	otp := emailotp.NewApp(emailotp.Args{
		Mode:          env.Test,
		Repo:          verRepo,
		UserRepo:      userRepo,
		SessionIssuer: auth,
	})
	cookies := authhttp.NewCookies(authhttp.CookiesArgs{Mode: env.Test, Secret: []byte(builders.TestSecret)})
	api := authhttp.NewHTTP(authhttp.Args{
		OTP:  otp,
		Auth: auth,
		Social: socialapp.NewApp(socialapp.Args{
			Providers:     []socialcmd.Provider{mocks.NewProvider(account.ProviderGoogle)},
			UserRepo:      userRepo,
			AccountRepo:   mocks.NewAccountRepo(),
			SessionIssuer: auth,
		}),
		Cookies: cookies,
	})
	session := middlewares.NewSession(middlewares.SessionArgs{Resolver: auth, Cookies: cookies})

	ticks := make(chan time.Time)
	p, err := NewPages(Args{
		OTP:           otp,
		Auth:          auth,
		Social:        api,
		Cookies:       cookies,
		RequireSignIn: session.RequirePage(signInPath),
		OptionalUser:  session.Optional,
		TickSource: func(time.Duration) (<-chan time.Time, func()) {
			return ticks, func() {}
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	p.Route(r)

	return &PagesSuite{
		Router:      r,
		Cookies:     cookies,
		Auth:        auth,
		VerRepo:     verRepo,
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Ticks:       ticks,
	}
}

func (s *PagesSuite) Get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(httptest.NewRequest(http.MethodGet, target, nil), cookies)
}

func (s *PagesSuite) PostForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, cookies)
}

func (s *PagesSuite) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func (s *PagesSuite) SignIn(t *testing.T) *http.Cookie {
	t.Helper()

	u := builders.NewFactory().User.Verified(email)
	s.UserRepo.SeedUser(t, u)
	issued, err := s.Auth.IssueSessionHandle(t.Context(), authapp.IssueSession{UserID: u.ID()})
	require.NoError(t, err)
	return &http.Cookie{Name: authhttp.SessionCookie, Value: issued.Token}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashOf reads the flash a response left for the next page.
func (s *PagesSuite) flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	c := cookieNamed(rec, authhttp.FlashCookie)
	require.NotNil(t, c, "expected a flash cookie")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return s.Cookies.PopFlash(httptest.NewRecorder(), req)
}

func TestPages_Static(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want []string
	}{
		{path: "/", want: []string{"Home Page", "Let's build something great!", DefaultBrand}},
		{path: "/sign-in", want: []string{"Welcome back", "Sign in with your Email or Google account", `href="/sign-up"`}},
		{path: "/sign-up", want: []string{"Create an account", "Sign up with your Email or Google account", `href="/sign-in"`}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := NewPagesSuite(t)
			rec := s.Get(t, tt.path)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			for _, want := range tt.want {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestPages_FlashShownOnce(t *testing.T) {
	t.Parallel()

	s := NewPagesSuite(t)
	flashRec := httptest.NewRecorder()
	s.Cookies.SetFlash(flashRec, "You have been signed out.")

	rec := s.Get(t, "/sign-in", cookieNamed(flashRec, authhttp.FlashCookie))
	assert.Contains(t, rec.Body.String(), "You have been signed out.")

	cleared := cookieNamed(rec, authhttp.FlashCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestRequestCode(t *testing.T) {
	t.Parallel()

	t.Run("valid email", func(t *testing.T) {
		s := NewPagesSuite(t)

		rec := s.PostForm(t, "/auth/email", url.Values{"email": {" Ada@Example.com "}, "mode": {"sign-in"}})
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.Equal(t, "/verify-email?email=ada%40example.com", rec.Header().Get("Location"))

		require.NotNil(t, cookieNamed(rec, authhttp.PendingVerificationCookie))
		s.VerRepo.AssertVerificationExists(t, email, verification.PurposeSignIn)
		mocks.RequireEventExists(t, s.VerRepo.EventRepo, &verification.CodeRequested{})
	})

	t.Run("invalid email", func(t *testing.T) {
		s := NewPagesSuite(t)

		rec := s.PostForm(t, "/auth/email", url.Values{"email": {"nope"}, "mode": {"sign-up"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please enter a valid email address.")
		assert.Contains(t, rec.Body.String(), "Create an account")
		s.VerRepo.AssertEventCount(t, 0)
	})
}

func TestVerifyEmailPage(t *testing.T) {
	t.Parallel()

	t.Run("no email anywhere", func(t *testing.T) {
		s := NewPagesSuite(t)

		rec := s.Get(t, "/verify-email")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, signInPath, rec.Header().Get("Location"))
		assert.Equal(t, "Email not found. Please try signing in again.", s.flashOf(t, rec))
	})

	t.Run("email from pending cookie while counting", func(t *testing.T) {
		s := NewPagesSuite(t)
		s.VerRepo.SeedVerification(t, builders.NewVerificationBuilder().WithEmail(email).WithResendIn(42*time.Second).Build())
		pendingRec := httptest.NewRecorder()
		s.Cookies.SetPending(pendingRec, email)

		rec := s.Get(t, "/verify-email", cookieNamed(pendingRec, authhttp.PendingVerificationCookie))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, email)
		assert.Contains(t, body, " disabled")
		assert.Regexp(t, `Resend code in 4[12]s`, body)
		assert.Contains(t, body, "Back to sign in")
	})

	t.Run("resend ready", func(t *testing.T) {
		s := NewPagesSuite(t)
		s.VerRepo.SeedVerification(t, builders.NewFactory().Verification.ResendReady(email))

		rec := s.Get(t, "/verify-email?email="+url.QueryEscape(email))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Resend code in")
	})
}

func TestVerifyCode(t *testing.T) {
	t.Parallel()

	t.Run("malformed codes never reach the challenge", func(t *testing.T) {
		tests := []struct {
			code string
			want string
		}{
			{code: "123", want: "Verification code must be 6 digits"},
			{code: "1234567", want: "Verification code must be 6 digits"},
			{code: "12345a", want: "Verification code must contain only numbers"},
		}
		for _, tt := range tests {
			t.Run(tt.code, func(t *testing.T) {
				s := NewPagesSuite(t)
				s.VerRepo.SeedVerification(t, builders.NewFactory().Verification.Pending(email))

				rec := s.PostForm(t, "/verify-email", url.Values{"email": {email}, "code": {tt.code}})
				assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
				assert.Contains(t, rec.Body.String(), tt.want)

				v := s.VerRepo.AssertVerificationExists(t, email, verification.PurposeSignIn)
				assert.Zero(t, v.Verification.Attempts())
			})
		}
	})

	t.Run("wrong code clears the input", func(t *testing.T) {
		s := NewPagesSuite(t)
		s.VerRepo.SeedVerification(t, builders.NewFactory().Verification.Pending(email))

		rec := s.PostForm(t, "/verify-email", url.Values{"email": {email}, "code": {"000000"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Failed to verify email. Please check your code and try again.")
		assert.Contains(t, body, `name="code" inputmode="numeric" autocomplete="one-time-code" maxlength="6" value=""`)
		assert.NotContains(t, body, "000000")
		assert.Nil(t, cookieNamed(rec, authhttp.SessionCookie))
	})

	t.Run("valid code signs in", func(t *testing.T) {
		s := NewPagesSuite(t)
		s.VerRepo.SeedVerification(t, builders.NewFactory().Verification.Pending(email))

		rec := s.PostForm(t, "/verify-email", url.Values{"email": {email}, "code": {builders.DefaultCode}})
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.Equal(t, dashboardPath, rec.Header().Get("Location"))

		session := cookieNamed(rec, authhttp.SessionCookie)
		require.NotNil(t, session)
		assert.NotEmpty(t, session.Value)
		pending := cookieNamed(rec, authhttp.PendingVerificationCookie)
		require.NotNil(t, pending)
		assert.Empty(t, pending.Value)
		assert.Equal(t, "Email verified successfully!", s.flashOf(t, rec))

		s.UserRepo.AssertUserExistsByEmail(t, email)
	})
}

func TestResendCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seed      *builders.VerificationBuilder
		wantFlash string
		wantEvent bool
	}{
		{
			name:      "cooldown elapsed",
			seed:      builders.NewVerificationBuilder().WithEmail(email).WithResendAvailable(),
			wantFlash: "Verification code resent successfully!",
			wantEvent: true,
		},
		{
			name:      "cooldown counting",
			seed:      builders.NewVerificationBuilder().WithEmail(email).WithResendIn(30 * time.Second),
			wantFlash: "Please wait 30 seconds before requesting a new code.",
		},
		{
			name:      "challenge already used",
			seed:      builders.NewVerificationBuilder().WithEmail(email).WithResendAvailable().Verified(),
			wantFlash: "Failed to resend verification code. Please try again.",
		},
		{
			name:      "challenge gone starts a new one",
			wantFlash: "Verification code resent successfully!",
			wantEvent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPagesSuite(t)
			if tt.seed != nil {
				s.VerRepo.SeedVerification(t, tt.seed.Build())
			}

			rec := s.PostForm(t, "/verify-email/resend", url.Values{"email": {email}})
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/verify-email?email=ada%40example.com", rec.Header().Get("Location"))
			assert.Equal(t, tt.wantFlash, s.flashOf(t, rec))

			if tt.wantEvent {
				assert.NotEmpty(t, s.VerRepo.EventsOn(verification.EventStreamName))
			} else {
				s.VerRepo.AssertEventCount(t, 0)
			}
		})
	}
}

func TestCooldownStream(t *testing.T) {
	t.Parallel()

	t.Run("nothing to wait for", func(t *testing.T) {
		s := NewPagesSuite(t)

		rec := s.Get(t, "/verify-email/cooldown?email="+url.QueryEscape(email))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, 1, strings.Count(rec.Body.String(), "event: cooldown\n"))
		assert.Contains(t, rec.Body.String(), `"state":"ready"`)
	})

	t.Run("counting until the client leaves", func(t *testing.T) {
		s := NewPagesSuite(t)
		s.VerRepo.SeedVerification(t, builders.NewVerificationBuilder().WithEmail(email).WithResendIn(30*time.Second).Build())

		ctx, cancel := context.WithCancel(t.Context())
		req := httptest.NewRequest(http.MethodGet, "/verify-email/cooldown?email="+url.QueryEscape(email), nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Router.ServeHTTP(rec, req)
		}()

		s.Ticks <- time.Now()
		cancel()
		<-done

		body := rec.Body.String()
		assert.Equal(t, 2, strings.Count(body, "event: cooldown\n"))
		assert.Equal(t, 2, strings.Count(body, `"state":"counting"`))
		assert.NotContains(t, body, `"state":"ready"`)
	})

	t.Run("missing email", func(t *testing.T) {
		s := NewPagesSuite(t)
		assert.Equal(t, http.StatusBadRequest, s.Get(t, "/verify-email/cooldown").Code)
	})
}

func TestLockoutInsideCooldown(t *testing.T) {
	t.Parallel()

	s := NewPagesSuite(t)
	s.VerRepo.SeedVerification(t, builders.NewVerificationBuilder().WithEmail(email).WithResendIn(40*time.Second).Build())
	for range verification.MaxAttempts {
		s.PostForm(t, "/verify-email", url.Values{"email": {email}, "code": {"000000"}})
	}
	s.VerRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
		AssertStatus(t, verification.StatusExpired)

	page := s.Get(t, "/verify-email?email="+url.QueryEscape(email))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Regexp(t, `Resend code in (39|40)s`, page.Body.String())
	assert.Contains(t, page.Body.String(), " disabled")

	ctx, cancel := context.WithCancel(t.Context())
	req := httptest.NewRequest(http.MethodGet, "/verify-email/cooldown?email="+url.QueryEscape(email), nil).WithContext(ctx)
	stream := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Router.ServeHTTP(stream, req)
	}()
	s.Ticks <- time.Now()
	cancel()
	<-done
	assert.Contains(t, stream.Body.String(), `"state":"counting"`)
	assert.NotContains(t, stream.Body.String(), `"state":"ready"`)

	published := len(s.VerRepo.Events())
	rec := s.PostForm(t, "/auth/email", url.Values{"email": {email}, "mode": {"sign-in"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Len(t, s.VerRepo.Events(), published)
	s.VerRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
		AssertStatus(t, verification.StatusExpired)
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	s := NewPagesSuite(t)

	rec := s.Get(t, dashboardPath)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, signInPath, rec.Header().Get("Location"))

	rec = s.Get(t, dashboardPath, s.SignIn(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), email)
	assert.Contains(t, rec.Body.String(), `action="/sign-out"`)
}

func TestSignOutPage(t *testing.T) {
	t.Parallel()

	s := NewPagesSuite(t)
	session := s.SignIn(t)

	rec := s.PostForm(t, "/sign-out", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, signInPath, rec.Header().Get("Location"))
	assert.Equal(t, "You have been signed out.", s.flashOf(t, rec))

	rec = s.Get(t, dashboardPath, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSignInWithGoogle(t *testing.T) {
	t.Parallel()

	s := NewPagesSuite(t)

	rec := s.PostForm(t, "/auth/google", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://accounts.example.com/"))
	assert.NotNil(t, cookieNamed(rec, authhttp.OAuthStateCookie))
}

func TestCodeProblem(t *testing.T) {
	t.Parallel()

	assert.Empty(t, codeProblem("123456"))
	assert.Equal(t, i18nx.FlashCodeMustBe6Digits, codeProblem(""))
	assert.Equal(t, i18nx.FlashCodeMustBe6Digits, codeProblem("12345"))
	assert.Equal(t, i18nx.FlashCodeMustBeNumeric, codeProblem("12 456"))
	assert.Equal(t, i18nx.FlashCodeMustBeNumeric, codeProblem("12345x"))
}
