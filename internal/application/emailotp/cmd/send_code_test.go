package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/env"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

type SendCodeSuite struct {
	Handler  *SendCodeHandler
	MockRepo *mocks.VerificationRepo
}

func NewSendCodeSuite(t *testing.T) *SendCodeSuite {
	t.Helper()

	mockRepo := mocks.NewVerificationRepo()

	return &SendCodeSuite{
		Handler: NewSendCodeHandler(SendCodeHandlerArgs{
			Mode: env.Test,
			Repo: mockRepo,
		}),
		MockRepo: mockRepo,
	}
}

func TestSendCodeHandler_HappyPath(t *testing.T) {
	t.Parallel()

	t.Run("first request issues a code", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "first@test.com"

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		assert.True(t, res.Sent)
		assert.Equal(t, cooldown.StateCounting, res.Cooldown.State)
		assert.Equal(t, int(verification.ResendCooldown/time.Second), res.Cooldown.RemainingSeconds)
		assert.WithinDuration(t, time.Now().Add(verification.CodeTTL), res.ExpiresAt, 2*time.Second)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusPending).
			AssertAttempts(t, 0).
			AssertCooldownState(t, cooldown.StateCounting)

		e := mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.CodeRequested{})
		verification.NewCodeRequestedAssertion(e).
			AssertEmail(t, email).
			AssertCodeIsNumeric(t)
		s.MockRepo.AssertEventCount(t, 1)
	})

	t.Run("email is normalized", func(t *testing.T) {
		s := NewSendCodeSuite(t)

		_, err := s.Handler.Handle(t.Context(), SendCode{Email: "  Mixed.Case@Test.COM ", Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		s.MockRepo.AssertVerificationExists(t, "mixed.case@test.com", verification.PurposeSignIn)
	})

	t.Run("resubmission inside the cooldown sends nothing", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "again@test.com"
		v := builders.NewVerificationBuilder().
			WithEmail(email).
			WithResendIn(40 * time.Second).
			Build()
		s.MockRepo.SeedVerification(t, v)

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		assert.False(t, res.Sent)
		assert.Equal(t, cooldown.StateCounting, res.Cooldown.State)
		assert.InDelta(t, 40, res.Cooldown.RemainingSeconds, 1)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertCodeMatches(t, builders.DefaultCode)
		s.MockRepo.AssertEventCount(t, 0)
	})

	t.Run("live challenge with ready cooldown is resent", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "ready@test.com"
		v := builders.NewVerificationBuilder().
			WithEmail(email).
			WithAttempts(2).
			WithResendAvailable().
			Build()
		s.MockRepo.SeedVerification(t, v)

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		assert.True(t, res.Sent)
		assert.Equal(t, cooldown.StateCounting, res.Cooldown.State)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertAttempts(t, 0).
			AssertCodeDoesNotMatch(t, builders.DefaultCode)

		e := mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.CodeResent{})
		verification.NewCodeResentAssertion(e).
			AssertVerificationID(t, v.ID()).
			AssertEmail(t, email)
		s.MockRepo.AssertEventNotExists(t, &verification.CodeRequested{})
	})

	t.Run("expired challenge is replaced", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "stale@test.com"
		stale := builders.NewVerificationBuilder().WithEmail(email).Expired().WithResendAvailable().Build()
		s.MockRepo.SeedVerification(t, stale)

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)
		assert.True(t, res.Sent)

		e := mocks.RequireEventExists(t, s.MockRepo.EventRepo, &verification.CodeRequested{})
		assert.NotEqual(t, stale.ID(), e.VerificationID)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusPending)
	})

	t.Run("lockout inside the cooldown sends nothing", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "locked@test.com"
		locked := builders.NewVerificationBuilder().
			WithEmail(email).
			WithStatus(verification.StatusExpired).
			WithAttempts(verification.MaxAttempts).
			WithResendIn(40 * time.Second).
			Build()
		s.MockRepo.SeedVerification(t, locked)

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeSignIn})
		require.NoError(t, err)

		assert.False(t, res.Sent)
		assert.Equal(t, cooldown.StateCounting, res.Cooldown.State)
		assert.InDelta(t, 40, res.Cooldown.RemainingSeconds, 1)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn).
			AssertStatus(t, verification.StatusExpired).
			AssertAttempts(t, verification.MaxAttempts)
		s.MockRepo.AssertEventCount(t, 0)
	})

	t.Run("purposes are independent", func(t *testing.T) {
		s := NewSendCodeSuite(t)
		email := "both@test.com"
		s.MockRepo.SeedVerification(t, builders.NewVerificationBuilder().WithEmail(email).Build())

		res, err := s.Handler.Handle(t.Context(), SendCode{Email: email, Purpose: verification.PurposeEmailVerification})
		require.NoError(t, err)
		assert.True(t, res.Sent)

		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeSignIn)
		s.MockRepo.AssertVerificationExists(t, email, verification.PurposeEmailVerification)
	})
}

func TestSendCodeHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cmd     SendCode
		wantErr error
	}{
		{
			name:    "empty email",
			cmd:     SendCode{Email: "", Purpose: verification.PurposeSignIn},
			wantErr: verification.ErrInvalidEmail,
		},
		{
			name:    "malformed email",
			cmd:     SendCode{Email: "not-an-email", Purpose: verification.PurposeSignIn},
			wantErr: verification.ErrInvalidEmail,
		},
		{
			name:    "unknown purpose",
			cmd:     SendCode{Email: "user@test.com", Purpose: "password-reset"},
			wantErr: verification.ErrInvalidPurpose,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewSendCodeSuite(t)

			res, err := s.Handler.Handle(t.Context(), tt.cmd)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, res.Sent)
			s.MockRepo.AssertEventCount(t, 0)
		})
	}
}
