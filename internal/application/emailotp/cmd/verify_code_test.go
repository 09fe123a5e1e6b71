package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "gitlab.com/acme/acme-auth/internal/application/auth"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

type VerifyCodeSuite struct {
	Handler         *VerifyCodeHandler
	MockRepo        *mocks.VerificationRepo
	MockUserRepo    *mocks.UserRepo
	MockSessionRepo *mocks.SessionRepo
	Factory         *builders.Factory
}

func NewVerifyCodeSuite(t *testing.T) *VerifyCodeSuite {
	t.Helper()

	mockRepo := mocks.NewVerificationRepo()
	mockUserRepo := mocks.NewUserRepo()
	mockSessionRepo := mocks.NewSessionRepo()
	sessions := authapp.NewApp(authapp.Args{
		SessionRepo: mockSessionRepo,
		UserGetter:  mockUserRepo,
		SecretKey:   builders.TestSecret,
	})

	return &VerifyCodeSuite{
		Handler: NewVerifyCodeHandler(VerifyCodeHandlerArgs{
			Repo:          mockRepo,
			UserRepo:      mockUserRepo,
			SessionIssuer: sessions,
		}),
		MockRepo:        mockRepo,
		MockUserRepo:    mockUserRepo,
		MockSessionRepo: mockSessionRepo,
		Factory:         builders.NewFactory(),
	}
}

func TestVerifyCodeHandler_HappyPath(t *testing.T) {
	t.Parallel()

	t.Run("first sign in creates the user", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "newcomer@test.com"
		s.MockRepo.SeedVerification(t, s.Factory.Verification.Pending(email))

		res, err := s.Handler.Handle(t.Context(), VerifyCode{
			Email:     email,
			Code:      builders.DefaultCode,
			Purpose:   verification.PurposeSignIn,
			IPAddress: "10.1.1.1",
			UserAgent: "test-agent",
		})
		require.NoError(t, err)

		assert.True(t, res.SignedUp)
		assert.NotEmpty(t, res.Token)
		require.NotNil(t, res.Session)
		assert.Equal(t, res.User.ID(), res.Session.UserID())

		s.MockUserRepo.AssertUserExistsByEmail(t, email).
			AssertEmailVerified(t, true)
		mocks.RequireEventExists(t, s.MockUserRepo.EventRepo, &user.SignedUp{})
		s.MockRepo.AssertVerificationNotExists(t, email, verification.PurposeSignIn)
		mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.CodeVerified{})

		stored := s.MockSessionRepo.AssertSessionExists(t, res.Session.ID())
		assert.Equal(t, "10.1.1.1", stored.IPAddress())
		assert.Equal(t, "test-agent", stored.UserAgent())
	})

	t.Run("returning user gets a new session", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "returning@test.com"
		existing := builders.NewUserBuilder().WithEmail(email).Build()
		s.MockUserRepo.SeedUser(t, existing)
		s.MockRepo.SeedVerification(t, s.Factory.Verification.Pending(email))

		res, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: builders.DefaultCode, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		assert.False(t, res.SignedUp)
		assert.Equal(t, existing.ID(), res.User.ID())
		assert.Equal(t, 1, s.MockUserRepo.Count())
		s.MockUserRepo.AssertEventNotExists(t, &user.SignedUp{})
		assert.Len(t, s.MockSessionRepo.SessionsOf(existing.ID()), 1)
	})

	t.Run("email verification marks the user verified", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "unverified@test.com"
		s.MockUserRepo.SeedUser(t, s.Factory.User.Unverified(email))
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().
			WithEmail(email).
			WithPurpose(verification.PurposeEmailVerification).
			Build())

		_, err := s.Handler.Handle(t.Context(), VerifyCode{
			Email:   email,
			Code:    builders.DefaultCode,
			Purpose: verification.PurposeEmailVerification,
		})
		require.NoError(t, err)

		s.MockUserRepo.AssertUserExistsByEmail(t, email).AssertEmailVerified(t, true)
		mocks.RequireEventExists(t, s.MockUserRepo.EventRepo, &user.EmailVerified{})
	})

	t.Run("email is normalized before lookup", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		s.MockRepo.SeedVerification(t, s.Factory.Verification.Pending("case@test.com"))

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: " CASE@test.com", Code: builders.DefaultCode, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)
	})
}

func TestVerifyCodeHandler_RejectsMalformedCodeBeforeStorage(t *testing.T) {
	t.Parallel()

	codes := []string{"", "12345", "1234567", "12a456", "１２３４５６", " 123456"}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			t.Parallel()
			s := NewVerifyCodeSuite(t)
			email := "format@test.com"
			s.MockRepo.SeedVerification(t, s.Factory.Verification.Pending(email))

			_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: code, Purpose: verification.PurposeSignIn})
			require.Error(t, err)
			assert.False(t, errorx.IsNotFound(err))

			s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
				AssertAttempts(t, 0).
				AssertStatus(t, verification.StatusPending)
			assert.Equal(t, 0, s.MockUserRepo.Count())
		})
	}
}

func TestVerifyCodeHandler_Errors(t *testing.T) {
	t.Parallel()

	t.Run("wrong code counts an attempt", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "wrong@test.com"
		s.MockRepo.SeedVerification(t, s.Factory.Verification.Pending(email))

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: "654321", Purpose: verification.PurposeSignIn})
		require.Error(t, err)
		assert.ErrorIs(t, err, verification.ErrCodeMismatch)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertAttempts(t, 1).
			AssertStatus(t, verification.StatusPending)
		s.MockUserRepo.AssertUserNotExistsByEmail(t, email)
	})

	t.Run("last attempt expires the challenge", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "last@test.com"
		s.MockRepo.SeedVerification(t, s.Factory.Verification.WithFailedAttempts(email, verification.MaxAttempts-1))

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: "654321", Purpose: verification.PurposeSignIn})
		assert.ErrorIs(t, err, verification.ErrTooManyAttempts)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusExpired)
		mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.VerificationFailed{})

		// even the right code is refused now
		_, err = s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: builders.DefaultCode, Purpose: verification.PurposeSignIn})
		assert.ErrorIs(t, err, verification.ErrInvalidStatus)
	})

	t.Run("expired code", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "late@test.com"
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().
			WithEmail(email).
			WithExpiredCode().
			Build())

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: builders.DefaultCode, Purpose: verification.PurposeSignIn})
		assert.ErrorIs(t, err, verification.ErrCodeExpired)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusExpired)
	})

	t.Run("no verification", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: "none@test.com", Code: builders.DefaultCode, Purpose: verification.PurposeSignIn})
		require.Error(t, err)
		assert.True(t, errorx.IsNotFound(err))
	})

	t.Run("email verification for unknown user", func(t *testing.T) {
		s := NewVerifyCodeSuite(t)
		email := "nobody@test.com"
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().
			WithEmail(email).
			WithPurpose(verification.PurposeEmailVerification).
			Build())

		_, err := s.Handler.Handle(t.Context(), VerifyCode{Email: email, Code: builders.DefaultCode, Purpose: verification.PurposeEmailVerification})
		assert.ErrorIs(t, err, user.ErrNotFound)
		s.MockUserRepo.AssertUserNotExistsByEmail(t, email)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeEmailVerification).
			AssertStatus(t, verification.StatusPending).
			AssertAttempts(t, 0)
	})
}
