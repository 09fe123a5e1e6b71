package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

const (
	testState    = "state-123"
	testVerifier = "verifier-123"
	testCode     = "auth-code"
)

type CallbackSuite struct {
	Handler         *CallbackHandler
	Provider        *mocks.Provider
	MockUserRepo    *mocks.UserRepo
	MockAccountRepo *mocks.AccountRepo
	MockSessionRepo *mocks.SessionRepo
}

func NewCallbackSuite(t *testing.T) *CallbackSuite {
	t.Helper()

	provider := mocks.NewProvider(account.ProviderGoogle)
	userRepo := mocks.NewUserRepo()
	accountRepo := mocks.NewAccountRepo()
	sessionRepo := mocks.NewSessionRepo()

	return &CallbackSuite{
		Handler: NewCallbackHandler(CallbackHandlerArgs{
			Providers:   []Provider{provider},
			UserRepo:    userRepo,
			AccountRepo: accountRepo,
			SessionIssuer: authapp.NewApp(authapp.Args{
				SessionRepo: sessionRepo,
				UserGetter:  userRepo,
				SecretKey:   builders.TestSecret,
			}),
		}),
		Provider:        provider,
		MockUserRepo:    userRepo,
		MockAccountRepo: accountRepo,
		MockSessionRepo: sessionRepo,
	}
}

func validCallback() Callback {
	return Callback{
		Provider:      "google",
		Code:          testCode,
		State:         testState,
		ExpectedState: testState,
		Verifier:      testVerifier,
		IPAddress:     "10.0.0.2",
		UserAgent:     "test-agent",
	}
}

func googleIdentity(email string) account.Identity {
	return account.Identity{
		Subject:       "google-sub-" + email,
		Email:         email,
		EmailVerified: true,
		Name:          "Ada Lovelace",
		Picture:       "https://lh3.googleusercontent.com/a/photo.jpg",
	}
}

func TestCallbackHandler_HappyPath(t *testing.T) {
	t.Parallel()

	t.Run("new user signs up", func(t *testing.T) {
		s := NewCallbackSuite(t)
		identity := googleIdentity("ada@gmail.com")
		s.Provider.Grant(testCode, testVerifier, identity, account.Tokens{AccessToken: "at", RefreshToken: "rt"})

		res, err := s.Handler.Handle(t.Context(), validCallback())
		require.NoError(t, err)

		assert.True(t, res.SignedUp)
		assert.NotEmpty(t, res.Token)
		s.MockUserRepo.AssertUserExistsByEmail(t, "ada@gmail.com").
			AssertName(t, "Ada Lovelace").
			AssertImage(t, identity.Picture).
			AssertEmailVerified(t, true)
		e := mocks.RequireEventExists(t, s.MockUserRepo.EventRepo, &user.SignedUp{})
		assert.Equal(t, user.SignUpMethodGoogle, e.Method)

		a := s.MockAccountRepo.AssertAccountExists(t, account.ProviderGoogle, identity.Subject)
		assert.Equal(t, res.User.ID(), a.UserID())
		assert.Equal(t, "rt", a.Tokens().RefreshToken)

		stored := s.MockSessionRepo.AssertSessionExists(t, res.Session.ID())
		assert.Equal(t, "10.0.0.2", stored.IPAddress())
	})

	t.Run("existing email user is linked", func(t *testing.T) {
		s := NewCallbackSuite(t)
		existing := builders.NewUserBuilder().WithEmail("linked@gmail.com").Unverified().Build()
		s.MockUserRepo.SeedUser(t, existing)
		identity := googleIdentity("Linked@Gmail.com")
		s.Provider.Grant(testCode, testVerifier, identity, account.Tokens{AccessToken: "at"})

		res, err := s.Handler.Handle(t.Context(), validCallback())
		require.NoError(t, err)

		assert.False(t, res.SignedUp)
		assert.Equal(t, existing.ID(), res.User.ID())
		assert.Equal(t, 1, s.MockUserRepo.Count())
		s.MockUserRepo.AssertUserExistsByEmail(t, "linked@gmail.com").
			AssertName(t, "Ada Lovelace").
			AssertEmailVerified(t, true)
		a := s.MockAccountRepo.AssertAccountExists(t, account.ProviderGoogle, identity.Subject)
		assert.Equal(t, existing.ID(), a.UserID())
	})

	t.Run("returning account refreshes tokens and keeps the profile", func(t *testing.T) {
		s := NewCallbackSuite(t)
		existing := builders.NewUserBuilder().WithEmail("back@gmail.com").WithName("Countess").Build()
		s.MockUserRepo.SeedUser(t, existing)
		identity := googleIdentity("back@gmail.com")
		linked, err := account.New(account.Args{
			UserID:     existing.ID(),
			ProviderID: account.ProviderGoogle,
			AccountID:  identity.Subject,
			Tokens:     account.Tokens{AccessToken: "old", RefreshToken: "keep-me"},
		})
		require.NoError(t, err)
		s.MockAccountRepo.SeedAccount(t, linked)
		s.Provider.Grant(testCode, testVerifier, identity, account.Tokens{AccessToken: "new"})

		res, err := s.Handler.Handle(t.Context(), validCallback())
		require.NoError(t, err)

		assert.False(t, res.SignedUp)
		assert.Equal(t, existing.ID(), res.User.ID())
		s.MockUserRepo.AssertUserExistsByEmail(t, "back@gmail.com").AssertName(t, "Countess")
		a := s.MockAccountRepo.AssertAccountExists(t, account.ProviderGoogle, identity.Subject)
		assert.Equal(t, "new", a.Tokens().AccessToken)
		assert.Equal(t, "keep-me", a.Tokens().RefreshToken)
	})
}

func TestCallbackHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Callback)
		wantErr error
	}{
		{name: "state mismatch", mutate: func(c *Callback) { c.ExpectedState = "other" }, wantErr: ErrInvalidState},
		{name: "missing state cookie", mutate: func(c *Callback) { c.ExpectedState = "" }, wantErr: ErrInvalidState},
		{name: "missing state", mutate: func(c *Callback) { c.State = ""; c.ExpectedState = "" }, wantErr: ErrInvalidState},
		{name: "missing verifier", mutate: func(c *Callback) { c.Verifier = "" }, wantErr: ErrInvalidState},
		{name: "missing code", mutate: func(c *Callback) { c.Code = "" }, wantErr: ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewCallbackSuite(t)
			s.Provider.Grant(testCode, testVerifier, googleIdentity("x@gmail.com"), account.Tokens{})

			c := validCallback()
			tt.mutate(&c)
			_, err := s.Handler.Handle(t.Context(), c)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, s.MockUserRepo.Count())
		})
	}

	t.Run("exchange fails", func(t *testing.T) {
		t.Parallel()
		s := NewCallbackSuite(t)
		upstream := errors.New("google is down")
		s.Provider.FailWith(upstream)

		_, err := s.Handler.Handle(t.Context(), validCallback())
		assert.ErrorIs(t, err, upstream)
	})

	t.Run("unverified provider email cannot take over a user", func(t *testing.T) {
		t.Parallel()
		s := NewCallbackSuite(t)
		s.MockUserRepo.SeedUser(t, builders.NewUserBuilder().WithEmail("victim@example.com").Build())
		identity := googleIdentity("victim@example.com")
		identity.EmailVerified = false
		s.Provider.Grant(testCode, testVerifier, identity, account.Tokens{})

		_, err := s.Handler.Handle(t.Context(), validCallback())
		assert.ErrorIs(t, err, ErrEmailNotVerified)
		assert.Empty(t, s.MockSessionRepo.SessionsOf(s.MockUserRepo.GetByEmail(t, "victim@example.com").ID()))
	})

	t.Run("unverified provider email cannot sign up", func(t *testing.T) {
		t.Parallel()
		s := NewCallbackSuite(t)
		identity := googleIdentity("nobody@example.com")
		identity.EmailVerified = false
		s.Provider.Grant(testCode, testVerifier, identity, account.Tokens{AccessToken: "at"})

		_, err := s.Handler.Handle(t.Context(), validCallback())
		assert.ErrorIs(t, err, ErrEmailNotVerified)

		s.MockUserRepo.AssertUserNotExistsByEmail(t, "nobody@example.com")
		assert.Zero(t, s.MockUserRepo.Count())
		_, err = s.MockAccountRepo.GetAccount(t.Context(), account.ProviderGoogle, identity.Subject)
		assert.True(t, errorx.IsNotFound(err))
		s.MockUserRepo.AssertEventCount(t, 0)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		t.Parallel()
		s := NewCallbackSuite(t)

		c := validCallback()
		c.Provider = "github"
		_, err := s.Handler.Handle(t.Context(), c)
		assert.Error(t, err)
	})
}
