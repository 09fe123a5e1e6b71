package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

type ResendCodeSuite struct {
	Handler  *ResendCodeHandler
	MockRepo *mocks.VerificationRepo
}

func NewResendCodeSuite(t *testing.T) *ResendCodeSuite {
	t.Helper()

	mockRepo := mocks.NewVerificationRepo()

	return &ResendCodeSuite{
		Handler:  NewResendCodeHandler(ResendCodeHandlerArgs{Repo: mockRepo}),
		MockRepo: mockRepo,
	}
}

func TestResendCodeHandler_HappyPath(t *testing.T) {
	t.Parallel()

	t.Run("pending and resend available", func(t *testing.T) {
		s := NewResendCodeSuite(t)
		email := "happypath1@test.com"
		v := builders.NewVerificationBuilder().
			WithEmail(email).
			WithResendAvailable().
			Build()
		s.MockRepo.SeedVerification(t, v)

		res, err := s.Handler.Handle(t.Context(), ResendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)
		assert.True(t, res.Sent)
		assert.Equal(t, cooldown.StateCounting, res.Cooldown.State)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusPending).
			AssertAttempts(t, 0).
			AssertCooldownState(t, cooldown.StateCounting).
			AssertCodeDoesNotMatch(t, builders.DefaultCode).
			AssertResendAt(t, time.Now().Add(verification.ResendCooldown))

		e := mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.CodeResent{})
		verification.NewCodeResentAssertion(e).
			AssertVerificationID(t, v.ID()).
			AssertEmail(t, email).
			AssertCodeIsNumeric(t)
	})

	t.Run("expired and resend available", func(t *testing.T) {
		s := NewResendCodeSuite(t)
		email := "happypath2@test.com"
		v := builders.NewVerificationBuilder().
			WithEmail(email).
			Expired().
			WithAttempts(verification.MaxAttempts).
			WithResendAvailable().
			Build()
		s.MockRepo.SeedVerification(t, v)

		_, err := s.Handler.Handle(t.Context(), ResendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusPending).
			AssertAttempts(t, 0).
			AssertExpiresAt(t, time.Now().Add(verification.CodeTTL))
	})
}

func TestResendCodeHandler_Errors(t *testing.T) {
	t.Parallel()

	t.Run("cooldown still counting", func(t *testing.T) {
		s := NewResendCodeSuite(t)
		email := "wait@test.com"
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().
			WithEmail(email).
			WithResendIn(30*time.Second).
			Build())

		_, err := s.Handler.Handle(t.Context(), ResendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.Error(t, err)
		assert.ErrorIs(t, err, verification.ErrWaitUntilResend)

		var i18nErr *errorx.I18nError
		require.ErrorAs(t, err, &i18nErr)
		assert.InDelta(t, 30, i18nErr.MessageArgs[i18nx.ArgRetryAfter], 1)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertCodeMatches(t, builders.DefaultCode)
		s.MockRepo.AssertEventCount(t, 0)
	})

	t.Run("already verified", func(t *testing.T) {
		s := NewResendCodeSuite(t)
		email := "done@test.com"
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().
			WithEmail(email).
			Verified().
			WithResendAvailable().
			Build())

		_, err := s.Handler.Handle(t.Context(), ResendCode{Email: email, Purpose: verification.PurposeSignIn})
		assert.ErrorIs(t, err, verification.ErrInvalidStatus)
		s.MockRepo.AssertEventCount(t, 0)
	})

	t.Run("no pending verification", func(t *testing.T) {
		s := NewResendCodeSuite(t)

		_, err := s.Handler.Handle(t.Context(), ResendCode{Email: "ghost@test.com", Purpose: verification.PurposeSignIn})
		require.Error(t, err)
		assert.True(t, errorx.IsNotFound(err))
	})

	t.Run("invalid purpose", func(t *testing.T) {
		s := NewResendCodeSuite(t)

		_, err := s.Handler.Handle(t.Context(), ResendCode{Email: "user@test.com", Purpose: "bogus"})
		assert.ErrorIs(t, err, verification.ErrInvalidPurpose)
	})
}
