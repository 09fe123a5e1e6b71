package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/valueobject/cooldown"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/tests/builders"
	"gitlab.com/acme/acme-auth/tests/mocks"
)

func TestGetCooldownHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		build         func(email string) *verification.Verification
		wantState     cooldown.State
		wantRemaining int
		wantActive    bool
	}{
		{
			name: "counting",
			build: func(email string) *verification.Verification {
				return builders.NewVerificationBuilder().WithEmail(email).WithResendIn(45 * time.Second).Build()
			},
			wantState:     cooldown.StateCounting,
			wantRemaining: 45,
			wantActive:    true,
		},
		{
			name: "ready",
			build: func(email string) *verification.Verification {
				return builders.NewVerificationBuilder().WithEmail(email).WithResendAvailable().Build()
			},
			wantState:  cooldown.StateReady,
			wantActive: true,
		},
		{
			name: "expired code with ready cooldown",
			build: func(email string) *verification.Verification {
				return builders.NewVerificationBuilder().WithEmail(email).Expired().WithResendAvailable().Build()
			},
			wantState:  cooldown.StateReady,
			wantActive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := mocks.NewVerificationRepo()
			v := tt.build("cooldown@test.com")
			repo.SeedVerification(t, v)

			view, err := NewGetCooldownHandler(repo).Handle(t.Context(), GetCooldown{
				Email:   "Cooldown@Test.com",
				Purpose: verification.PurposeSignIn,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, view.State)
			assert.InDelta(t, tt.wantRemaining, view.RemainingSeconds, 1)
			assert.Equal(t, tt.wantActive, view.Active)
			assert.Equal(t, "cooldown@test.com", view.Email)
			assert.Equal(t, v.ExpiresAt(), view.ExpiresAt)
		})
	}
}

func TestGetCooldownHandler_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewGetCooldownHandler(mocks.NewVerificationRepo()).Handle(t.Context(), GetCooldown{
		Email:   "missing@test.com",
		Purpose: verification.PurposeSignIn,
	})
	require.Error(t, err)
	assert.True(t, errorx.IsNotFound(err))
}
